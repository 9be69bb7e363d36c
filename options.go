package nodez

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// Option configures the dispatch pipeline for a single registration.
// Middleware wraps the observer: a dispatch flows through the middleware
// before the observer runs. Middleware failures surface through the
// DispatchFailed signal and metrics; they never propagate to the writer.
type Option func(pipz.Chainable[*Dispatch]) pipz.Chainable[*Dispatch]

// buildPipeline wraps the observer terminal with registration options.
func buildPipeline(terminal pipz.Chainable[*Dispatch], opts []Option) pipz.Chainable[*Dispatch] {
	pipeline := terminal
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}

// WithFilter invokes the observer only when the predicate holds for the
// written node. Filtered dispatches pass through silently.
func WithFilter(pred func(*Node) bool) Option {
	return func(p pipz.Chainable[*Dispatch]) pipz.Chainable[*Dispatch] {
		condition := func(_ context.Context, d *Dispatch) bool {
			return pred(d.Node)
		}
		return pipz.NewFilter(pipz.Name("filter"), condition, p)
	}
}

// WithTimeout bounds a single observer invocation. Observers run on the
// writer's goroutine, so a stalled observer stalls the writer; the timeout
// turns an indefinite stall into a reported dispatch failure.
func WithTimeout(d time.Duration) Option {
	return func(p pipz.Chainable[*Dispatch]) pipz.Chainable[*Dispatch] {
		return pipz.NewTimeout("timeout", p, d)
	}
}

// WithRetry retries a failing observer pipeline up to maxAttempts times.
// Useful when the observer forwards to an external sink that can fail
// transiently.
func WithRetry(maxAttempts int) Option {
	return func(p pipz.Chainable[*Dispatch]) pipz.Chainable[*Dispatch] {
		return pipz.NewRetry("retry", p, maxAttempts)
	}
}

// UseEffect creates a middleware stage that observes the dispatch without
// altering it, for use with WithMiddleware.
func UseEffect(name string, fn func(context.Context, *Dispatch) error) pipz.Chainable[*Dispatch] {
	return pipz.Effect(pipz.Name(name), fn)
}

// WithMiddleware runs a sequence of processors before the observer, in
// order.
func WithMiddleware(processors ...pipz.Chainable[*Dispatch]) Option {
	return func(p pipz.Chainable[*Dispatch]) pipz.Chainable[*Dispatch] {
		all := make([]pipz.Chainable[*Dispatch], 0, len(processors)+1)
		all = append(all, processors...)
		all = append(all, p)
		return pipz.NewSequence("middleware", all...)
	}
}

package nodez

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// FeedState represents the current state of a Feed.
type FeedState int32

const (
	// FeedLoading indicates the Feed has not yet applied any update.
	FeedLoading FeedState = iota

	// FeedLive indicates the last update applied cleanly.
	FeedLive

	// FeedDegraded indicates the last update failed to decode or apply.
	// Previously applied node values remain in place and the Feed keeps
	// watching.
	FeedDegraded
)

// String returns the string representation of the feed state.
func (s FeedState) String() string {
	switch s {
	case FeedLoading:
		return "loading"
	case FeedLive:
		return "live"
	case FeedDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Feed pumps device-driven updates from a Watcher into a Map. Each update
// document is a flat mapping of node name to value; every named node is
// written through ApplyExternal, so observers fire on the feed's goroutine
// — the "device-event thread" of the concurrency model.
//
// Updates are never coalesced: each document received is applied and
// dispatched, because updates are events, not configuration snapshots.
type Feed struct {
	watcher  Watcher
	target   *Map
	codec    Codec
	metrics  MetricsProvider
	syncMode bool

	state        atomic.Int32
	lastError    atomic.Pointer[error]
	errorHistory *errorRing

	mu      sync.Mutex
	started bool

	// For sync mode: channel to receive updates
	updates <-chan []byte
}

// NewFeed creates a Feed that applies updates from the watcher to the map.
// Update documents decode with YAMLCodec by default (which also accepts
// JSON).
func NewFeed(watcher Watcher, target *Map) *Feed {
	f := &Feed{
		watcher: watcher,
		target:  target,
		codec:   YAMLCodec{},
	}
	f.state.Store(int32(FeedLoading))
	return f
}

// Codec sets the codec for decoding update documents.
// Default: YAMLCodec. Must be called before Start().
func (f *Feed) Codec(codec Codec) *Feed {
	f.codec = codec
	return f
}

// SyncMode enables synchronous processing for testing.
// In sync mode, updates are processed only through Process(), making tests
// deterministic. Must be called before Start().
func (f *Feed) SyncMode() *Feed {
	f.syncMode = true
	return f
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (f *Feed) Metrics(provider MetricsProvider) *Feed {
	f.metrics = provider
	return f
}

// ErrorHistorySize sets the number of recent errors to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (f *Feed) ErrorHistorySize(n int) *Feed {
	f.errorHistory = newErrorRing(n)
	return f
}

// State returns the current state of the Feed.
func (f *Feed) State() FeedState {
	return FeedState(f.state.Load())
}

// LastError returns the last error encountered, or nil.
func (f *Feed) LastError() error {
	ptr := f.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns the recent error history, oldest first.
// Returns nil if error history is not enabled.
func (f *Feed) ErrorHistory() []error {
	return f.errorHistory.all()
}

// Start begins watching for updates. It blocks until the watcher's initial
// emission is processed (success or failure), then continues applying
// updates asynchronously. In sync mode, Start only processes the initial
// value; use Process() to apply subsequent updates.
//
// Start can only be called once.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return fmt.Errorf("feed already started")
	}
	f.started = true
	f.mu.Unlock()

	capitan.Emit(ctx, FeedStarted,
		KeyMap.Field(f.target.name),
	)

	updates, err := f.watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	var initialErr error
	select {
	case <-ctx.Done():
		return ctx.Err()
	case raw, ok := <-updates:
		if !ok {
			return fmt.Errorf("watcher closed before emitting initial value")
		}
		initialErr = f.apply(ctx, raw)
	}

	if f.syncMode {
		f.updates = updates
		return initialErr
	}

	go f.watch(ctx, updates)
	return initialErr
}

// Process reads and applies the next update from the watcher.
// Only available in sync mode; returns false if no update is available or
// the channel is closed.
func (f *Feed) Process(ctx context.Context) bool {
	if !f.syncMode {
		return false
	}
	select {
	case raw, ok := <-f.updates:
		if !ok {
			return false
		}
		_ = f.apply(ctx, raw) //nolint:errcheck // Errors stored via setError
		return true
	default:
		return false
	}
}

// apply decodes one update document and writes every named node.
func (f *Feed) apply(ctx context.Context, raw []byte) error {
	capitan.Emit(ctx, FeedUpdateReceived,
		KeyMap.Field(f.target.name),
	)

	var doc map[string]any
	if err := f.codec.Unmarshal(raw, &doc); err != nil {
		err = fmt.Errorf("decode update: %w", err)
		f.fail(ctx, err)
		return err
	}

	// Apply in name order so partial failures are deterministic.
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := f.target.ApplyExternal(ctx, name, doc[name]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		f.fail(ctx, err)
		return err
	}

	f.lastError.Store(nil)
	f.errorHistory.clear()
	f.transition(ctx, FeedLive)
	return nil
}

// fail records an apply failure and degrades the feed.
func (f *Feed) fail(ctx context.Context, err error) {
	e := err
	f.lastError.Store(&e)
	f.errorHistory.push(err)
	f.transition(ctx, FeedDegraded)
	capitan.Emit(ctx, FeedApplyFailed,
		KeyMap.Field(f.target.name),
		KeyError.Field(err.Error()),
	)
}

// transition updates the state and emits a state change event if changed.
func (f *Feed) transition(ctx context.Context, next FeedState) {
	prev := FeedState(f.state.Swap(int32(next)))
	if prev == next {
		return
	}
	capitan.Emit(ctx, FeedStateChanged,
		KeyMap.Field(f.target.name),
		KeyOldState.Field(prev.String()),
		KeyNewState.Field(next.String()),
	)
}

// watch applies updates from the watcher channel until it closes.
func (f *Feed) watch(ctx context.Context, updates <-chan []byte) {
	defer capitan.Emit(ctx, FeedStopped,
		KeyMap.Field(f.target.name),
		KeyState.Field(f.State().String()),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-updates:
			if !ok {
				return
			}
			_ = f.apply(ctx, raw) //nolint:errcheck // Errors stored via fail
		}
	}
}

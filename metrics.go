package nodez

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key registry and feed events.
type MetricsProvider interface {
	// OnRegister is called when an observer is registered to the node.
	OnRegister(node string)

	// OnDeregister is called when a registration is removed from the node.
	OnDeregister(node string)

	// OnDispatch is called after all observers for a write have run.
	// Observers is the number invoked; duration covers the full dispatch.
	OnDispatch(node string, observers int, duration time.Duration)

	// OnDispatchError is called when an observer pipeline fails.
	OnDispatchError(node string, duration time.Duration)

	// OnExternalUpdate is called when a device-driven update is applied to
	// the node.
	OnExternalUpdate(node string)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnRegister(_ string)                         {}
func (NoOpMetricsProvider) OnDeregister(_ string)                       {}
func (NoOpMetricsProvider) OnDispatch(_ string, _ int, _ time.Duration) {}
func (NoOpMetricsProvider) OnDispatchError(_ string, _ time.Duration)   {}
func (NoOpMetricsProvider) OnExternalUpdate(_ string)                   {}

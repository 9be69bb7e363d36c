package nodez

import "github.com/zoobzio/capitan"

// Registry signals.
var (
	// ObserverRegistered is emitted when an observer is registered to a node.
	ObserverRegistered = capitan.NewSignal(
		"nodez.registry.observer.registered",
		"Observer registered to node",
	)

	// ObserverDeregistered is emitted when a registration is removed.
	ObserverDeregistered = capitan.NewSignal(
		"nodez.registry.observer.deregistered",
		"Observer deregistered from node",
	)

	// DispatchFailed is emitted when an observer pipeline fails. Observer
	// failures never propagate to the writer; this signal is how they
	// surface.
	DispatchFailed = capitan.NewSignal(
		"nodez.registry.dispatch.failed",
		"Observer pipeline failed",
	)
)

// Map signals.
var (
	// NodeWritten is emitted on every successful write, local or
	// device-driven, before observers are dispatched. Dispatch is
	// write-triggered, so rewriting the current value emits too.
	NodeWritten = capitan.NewSignal(
		"nodez.map.node.written",
		"Node value written",
	)

	// MapClosed is emitted when a map is closed and outstanding
	// registrations are force-released.
	MapClosed = capitan.NewSignal(
		"nodez.map.closed",
		"Node map closed",
	)
)

// Event channel signals.
var (
	// ChannelStateChanged is emitted when an event kind transitions
	// between enablement states.
	ChannelStateChanged = capitan.NewSignal(
		"nodez.events.channel.state.changed",
		"Event channel state transition",
	)
)

// Feed signals.
var (
	// FeedStarted is emitted when a Feed begins watching its source.
	FeedStarted = capitan.NewSignal(
		"nodez.feed.started",
		"Feed watching started",
	)

	// FeedStopped is emitted when a Feed stops watching.
	FeedStopped = capitan.NewSignal(
		"nodez.feed.stopped",
		"Feed watching stopped",
	)

	// FeedUpdateReceived is emitted when a raw update document is received
	// from the watcher.
	FeedUpdateReceived = capitan.NewSignal(
		"nodez.feed.update.received",
		"Raw update received from watcher",
	)

	// FeedApplyFailed is emitted when an update document cannot be decoded
	// or applied.
	FeedApplyFailed = capitan.NewSignal(
		"nodez.feed.apply.failed",
		"Update could not be applied",
	)

	// FeedStateChanged is emitted when a Feed transitions between states.
	FeedStateChanged = capitan.NewSignal(
		"nodez.feed.state.changed",
		"Feed state transition",
	)
)

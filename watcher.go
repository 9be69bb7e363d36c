package nodez

import "context"

// Watcher observes an external source of device-driven updates and emits
// raw update documents on a channel. Implementations must emit the current
// value immediately upon Watch() being called so a Feed can apply the
// source's present state before streaming changes.
type Watcher interface {
	// Watch begins observing the source and returns a channel that emits
	// raw bytes when updates occur. The channel is closed when the context
	// is canceled or an unrecoverable error occurs.
	//
	// Implementations should emit the current value immediately.
	Watch(ctx context.Context) (<-chan []byte, error)
}

package nodez

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Map, Registry, and EventChannels operations.
// Use errors.Is to classify failures.
var (
	// ErrNotFound indicates a node name is absent from the map, or a nil
	// node was passed to an operation that requires one.
	ErrNotFound = errors.New("node not found")

	// ErrNotReadable indicates the node is not readable in the current
	// device state. Readability is computed per call and may change as
	// other nodes are written.
	ErrNotReadable = errors.New("node not readable")

	// ErrNotWritable indicates the node is not writable in the current
	// device state.
	ErrNotWritable = errors.New("node not writable")

	// ErrWrongType indicates a typed accessor or setter was used on a node
	// of a different type.
	ErrWrongType = errors.New("wrong node type")

	// ErrInvalidHandle indicates a deregistration used a handle that is
	// stale, already deregistered, or belongs to another registry.
	ErrInvalidHandle = errors.New("invalid callback handle")

	// ErrClosed indicates the map has been closed and no longer accepts
	// writes or registrations.
	ErrClosed = errors.New("node map closed")

	// ErrFrameTimeout indicates NextFrame did not receive a frame within
	// the requested timeout.
	ErrFrameTimeout = errors.New("frame timeout")
)

// DeviceError is an opaque failure surfaced from the device collaborator,
// carrying enough context (operation, node) to diagnose it.
type DeviceError struct {
	Op   string
	Node string
	Err  error
}

// Error returns the formatted error message.
func (e *DeviceError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("device %s %q: %v", e.Op, e.Node, e.Err)
	}
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

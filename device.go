package nodez

import (
	"context"
	"time"
)

// Maps holds the node maps one device exposes. Each map is independent:
// registrations, event channels, and closure on one never affect the
// others.
type Maps struct {
	// Device is the device's own configuration map.
	Device *Map

	// TLDevice is the transport-layer device map.
	TLDevice *Map

	// TLStream is the transport-layer stream map.
	TLStream *Map
}

// All returns the three maps in device, TL-device, TL-stream order.
func (m Maps) All() []*Map {
	return []*Map{m.Device, m.TLDevice, m.TLStream}
}

// Frame is one acquired image's metadata. Pixel data stays with the device
// collaborator; this core only observes acquisition.
type Frame struct {
	ID       uint64
	Width    int64
	Height   int64
	Complete bool
	Status   string
}

// Device is the external collaborator contract. Implementations own node
// and map lifetime: the maps returned by Open are valid until Close, and
// every callback handle registered on them must be deregistered before
// Close.
//
// Device-driven node updates (event delivery, hardware state changes) may
// originate from the device's own goroutine; maps are safe against that.
type Device interface {
	// Open binds the device and returns its node maps.
	Open(ctx context.Context) (Maps, error)

	// BeginAcquisition starts streaming frames.
	BeginAcquisition(ctx context.Context) error

	// NextFrame returns the next frame, or ErrFrameTimeout if none arrives
	// within the timeout.
	NextFrame(ctx context.Context, timeout time.Duration) (*Frame, error)

	// EndAcquisition stops streaming frames.
	EndAcquisition(ctx context.Context) error

	// Close releases the device and its maps.
	Close(ctx context.Context) error
}

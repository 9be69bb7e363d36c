// Package simcam provides an in-process simulated camera system
// implementing the nodez device collaborator contract.
//
// A System enumerates simulated cameras; each Camera exposes the three
// conventional node maps (device, transport-layer device, transport-layer
// stream) built from embedded YAML definitions, paces frames with an
// injectable clock, and delivers event data updates through the maps'
// external-update path when the corresponding event kinds are enabled.
package simcam

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/nodez"
)

//go:embed definitions/*.yaml
var definitions embed.FS

// Version is the simulated library version, in major.minor.type.build form.
const Version = "4.2.0.83"

// System owns the simulated cameras. Acquire one with NewSystem, enumerate
// with Cameras, and Release it when done; Release closes any camera left
// open.
type System struct {
	clock clockz.Clock

	mu       sync.Mutex
	cameras  []*Camera
	released bool
}

// NewSystem creates a camera system with no cameras attached.
func NewSystem() *System {
	return &System{clock: clockz.RealClock}
}

// Clock sets a custom clock used for frame pacing and event timestamps.
// Use clockz.FakeClock for deterministic tests. Must be called before
// AddCamera.
func (s *System) Clock(clock clockz.Clock) *System {
	s.clock = clock
	return s
}

// AddCamera attaches a simulated camera with the given serial number.
func (s *System) AddCamera(serial string) *System {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras = append(s.cameras, &Camera{
		serial: serial,
		clock:  s.clock,
	})
	return s
}

// Cameras returns the attached cameras in attachment order.
func (s *System) Cameras() []*Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Camera, len(s.cameras))
	copy(out, s.cameras)
	return out
}

// Version returns the simulated library version.
func (s *System) Version() string {
	return Version
}

// Release tears the system down, closing any camera still open. Releasing
// twice is a no-op.
func (s *System) Release(ctx context.Context) error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	cameras := s.cameras
	s.mu.Unlock()

	var errs []error
	for _, cam := range cameras {
		if cam.isOpen() {
			errs = append(errs, cam.Close(ctx))
		}
	}
	return errors.Join(errs...)
}

// Camera is a simulated machine-vision camera implementing nodez.Device.
type Camera struct {
	serial        string
	clock         clockz.Clock
	frameInterval time.Duration
	dropEvery     uint64

	mu        sync.Mutex
	open      bool
	acquiring bool
	frameSeq  uint64
	delivered int64
	dropped   int64
	maps      nodez.Maps
}

// Serial returns the camera's serial number.
func (c *Camera) Serial() string {
	return c.serial
}

// FrameInterval sets the simulated exposure duration per frame. Zero (the
// default) delivers frames immediately. Must be called before Open.
func (c *Camera) FrameInterval(d time.Duration) *Camera {
	c.frameInterval = d
	return c
}

// DropEvery makes every nth frame incomplete, triggering the stream's
// FrameDropped event when enabled. Zero (the default) drops nothing.
// Must be called before Open.
func (c *Camera) DropEvery(n uint64) *Camera {
	c.dropEvery = n
	return c
}

// Open builds the camera's node maps and binds device identity onto them.
func (c *Camera) Open(ctx context.Context) (nodez.Maps, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return nodez.Maps{}, &nodez.DeviceError{Op: "open", Err: errors.New("already open")}
	}

	device, err := loadDefinition("definitions/device.yaml")
	if err != nil {
		return nodez.Maps{}, err
	}
	tlDevice, err := loadDefinition("definitions/tldevice.yaml")
	if err != nil {
		return nodez.Maps{}, err
	}
	tlStream, err := loadDefinition("definitions/tlstream.yaml")
	if err != nil {
		return nodez.Maps{}, err
	}
	c.maps = nodez.Maps{Device: device, TLDevice: tlDevice, TLStream: tlStream}

	if err := tlDevice.ApplyExternal(ctx, "DeviceSerialNumber", c.serial); err != nil {
		return nodez.Maps{}, &nodez.DeviceError{Op: "open", Node: "DeviceSerialNumber", Err: err}
	}
	if err := tlStream.ApplyExternal(ctx, "StreamID", "Stream0"); err != nil {
		return nodez.Maps{}, &nodez.DeviceError{Op: "open", Node: "StreamID", Err: err}
	}

	c.open = true
	c.frameSeq = 0
	c.delivered = 0
	c.dropped = 0
	return c.maps, nil
}

// BeginAcquisition starts streaming frames.
func (c *Camera) BeginAcquisition(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return &nodez.DeviceError{Op: "begin acquisition", Err: errors.New("device not open")}
	}
	if c.acquiring {
		return &nodez.DeviceError{Op: "begin acquisition", Err: errors.New("already acquiring")}
	}
	c.acquiring = true
	return nil
}

// NextFrame delivers the next simulated frame, firing the frame-start and
// exposure-end event data nodes for every kind the client has enabled.
// Incomplete frames additionally fire the stream's frame-dropped event.
func (c *Camera) NextFrame(ctx context.Context, timeout time.Duration) (*nodez.Frame, error) {
	c.mu.Lock()
	if !c.acquiring {
		c.mu.Unlock()
		return nil, &nodez.DeviceError{Op: "next frame", Err: errors.New("acquisition not started")}
	}
	interval := c.frameInterval
	c.mu.Unlock()

	if interval > 0 {
		if interval > timeout {
			return nil, nodez.ErrFrameTimeout
		}
		timer := c.clock.NewTimer(interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C():
		}
	}

	c.mu.Lock()
	c.frameSeq++
	seq := c.frameSeq
	device := c.maps.Device
	stream := c.maps.TLStream
	dropped := c.dropEvery > 0 && seq%c.dropEvery == 0
	if dropped {
		c.dropped++
	} else {
		c.delivered++
	}
	delivered, droppedCount := c.delivered, c.dropped
	c.mu.Unlock()

	width := nodeInt(device.Get("Width"))
	height := nodeInt(device.Get("Height"))
	now := c.clock.Now().UnixNano()

	c.fireEvent(ctx, device, "FrameStart", map[string]any{
		"EventFrameStartTimestamp": now,
		"EventFrameStartFrameID":   int64(seq),
	})
	c.fireEvent(ctx, device, "ExposureEnd", map[string]any{
		"EventExposureEndTimestamp": c.clock.Now().UnixNano(),
		"EventExposureEndFrameID":   int64(seq),
	})

	if dropped {
		c.fireEvent(ctx, stream, "FrameDropped", map[string]any{
			"EventFrameDroppedTimestamp": c.clock.Now().UnixNano(),
			"EventFrameDroppedFrameID":   int64(seq),
		})
		_ = stream.ApplyExternal(ctx, "StreamDroppedFrameCount", droppedCount) //nolint:errcheck // Counter update is best-effort
		return &nodez.Frame{ID: seq, Width: width, Height: height, Complete: false, Status: "incomplete"}, nil
	}

	_ = stream.ApplyExternal(ctx, "StreamDeliveredFrameCount", delivered) //nolint:errcheck // Counter update is best-effort
	return &nodez.Frame{ID: seq, Width: width, Height: height, Complete: true, Status: "complete"}, nil
}

// EndAcquisition stops streaming frames.
func (c *Camera) EndAcquisition(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.acquiring {
		return &nodez.DeviceError{Op: "end acquisition", Err: errors.New("acquisition not started")}
	}
	c.acquiring = false
	return nil
}

// Close releases the camera's maps, force-releasing any registrations the
// client left outstanding.
func (c *Camera) Close(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return &nodez.DeviceError{Op: "close", Err: errors.New("device not open")}
	}
	c.open = false
	c.acquiring = false
	return errors.Join(
		c.maps.Device.Close(),
		c.maps.TLDevice.Close(),
		c.maps.TLStream.Close(),
	)
}

// fireEvent applies the event kind's data updates if the client enabled
// notification for it while it was selected.
func (c *Camera) fireEvent(ctx context.Context, m *nodez.Map, symbolic string, data map[string]any) {
	sel := m.Get(nodez.DefaultSelectorNode)
	notif := m.Get(nodez.DefaultNotificationNode)
	if sel == nil || notif == nil {
		return
	}
	entry, err := sel.EntryByName(symbolic)
	if err != nil {
		return
	}
	state, err := m.ScopedEntry(notif, entry.Value)
	if err != nil || state.Symbolic != "On" {
		return
	}

	category := m.Get("Event" + symbolic + "Data")
	for _, feature := range m.Features(category) {
		value, ok := data[feature.Name()]
		if !ok {
			continue
		}
		_ = m.ApplyExternal(ctx, feature.Name(), value) //nolint:errcheck // Event delivery is fire-and-forget
	}
}

// isOpen reports whether the camera is currently open.
func (c *Camera) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// nodeInt reads an integer node, zero on failure.
func nodeInt(n *nodez.Node) int64 {
	v, err := n.Int()
	if err != nil {
		return 0
	}
	return v
}

// loadDefinition builds a map from an embedded YAML definition.
func loadDefinition(path string) (*nodez.Map, error) {
	data, err := definitions.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition %s: %w", path, err)
	}
	m, err := nodez.LoadMap(data, nodez.YAMLCodec{})
	if err != nil {
		return nil, fmt.Errorf("build map from %s: %w", path, err)
	}
	return m, nil
}

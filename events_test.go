package nodez

import (
	"context"
	"errors"
	"testing"
)

func TestEventChannels_EnableTransitions(t *testing.T) {
	ctx := context.Background()
	m := newCameraMap(t)
	ch := NewEventChannels(m)

	if ch.State("ExposureEnd") != ChannelDisabled {
		t.Errorf("expected disabled before enable, got %s", ch.State("ExposureEnd"))
	}

	if _, err := ch.Enable(ctx, "ExposureEnd", func(*Node) {}); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if ch.State("ExposureEnd") != ChannelEnabled {
		t.Errorf("expected enabled, got %s", ch.State("ExposureEnd"))
	}
	if ch.State("FrameStart") != ChannelDisabled {
		t.Errorf("other kind affected: %s", ch.State("FrameStart"))
	}
}

func TestEventChannels_EnableWritesScopedNotification(t *testing.T) {
	ctx := context.Background()
	m := newCameraMap(t)
	ch := NewEventChannels(m)

	if _, err := ch.Enable(ctx, "ExposureEnd", func(*Node) {}); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}

	sel := m.Get("EventSelector")
	notif := m.Get("EventNotification")
	exposureEnd, _ := sel.EntryByName("ExposureEnd")
	frameStart, _ := sel.EntryByName("FrameStart")

	e, err := m.ScopedEntry(notif, exposureEnd.Value)
	if err != nil {
		t.Fatalf("ScopedEntry failed: %v", err)
	}
	if e.Symbolic != "On" {
		t.Errorf("expected On for enabled kind, got %s", e.Symbolic)
	}
	e, _ = m.ScopedEntry(notif, frameStart.Value)
	if e.Symbolic != "Off" {
		t.Errorf("expected Off for untouched kind, got %s", e.Symbolic)
	}
}

func TestEventChannels_EnableRegistersDataObservers(t *testing.T) {
	ctx := context.Background()
	m := newCameraMap(t)
	ch := NewEventChannels(m)

	var frameID int64
	handles, err := ch.Enable(ctx, "ExposureEnd", func(n *Node) {
		frameID, _ = n.Int()
	})
	if err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if len(handles) != 1 {
		t.Fatalf("expected 1 handle, got %d", len(handles))
	}

	// Simulate the device delivering event data.
	if err := m.ApplyExternal(ctx, "EventExposureEndFrameID", 42); err != nil {
		t.Fatalf("ApplyExternal failed: %v", err)
	}
	if frameID != 42 {
		t.Errorf("observer saw %d, expected 42", frameID)
	}
}

func TestEventChannels_EnableAllCoversEveryKind(t *testing.T) {
	ctx := context.Background()
	m := newCameraMap(t)
	ch := NewEventChannels(m)

	handles, err := ch.EnableAll(ctx, func(*Node) {})
	if err != nil {
		t.Fatalf("EnableAll failed: %v", err)
	}
	// One data node per kind in the fixture.
	if len(handles) != 2 {
		t.Errorf("expected 2 handles, got %d", len(handles))
	}
	if ch.State("ExposureEnd") != ChannelEnabled {
		t.Errorf("ExposureEnd not enabled: %s", ch.State("ExposureEnd"))
	}
	if ch.State("FrameStart") != ChannelEnabled {
		t.Errorf("FrameStart not enabled: %s", ch.State("FrameStart"))
	}
}

func TestEventChannels_EnableUnknownKind(t *testing.T) {
	ctx := context.Background()
	m := newCameraMap(t)
	ch := NewEventChannels(m)

	_, err := ch.Enable(ctx, "DeviceLost", func(*Node) {})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if ch.State("DeviceLost") != ChannelDisabled {
		t.Errorf("failed enable left state %s", ch.State("DeviceLost"))
	}
}

func TestEventChannels_MissingSelectorFailsEnable(t *testing.T) {
	ctx := context.Background()
	def := MapDefinition{
		Name: "bare",
		Nodes: []NodeDefinition{
			{Name: "Height", Type: "integer"},
		},
	}
	m, err := def.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ch := NewEventChannels(m)

	if _, err := ch.EnableAll(ctx, func(*Node) {}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEventChannels_KindWithoutDataCategoryStillEnables(t *testing.T) {
	ctx := context.Background()
	def := MapDefinition{
		Name: "stream",
		Nodes: []NodeDefinition{
			{Name: "EventSelector", Type: "enumeration", Entries: []EntryDefinition{
				{Symbolic: "FrameDropped", Value: 0},
			}},
			{Name: "EventNotification", Type: "enumeration", ScopedBy: "EventSelector", Entries: []EntryDefinition{
				{Symbolic: "Off", Value: 0},
				{Symbolic: "On", Value: 1},
			}},
		},
	}
	m, err := def.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ch := NewEventChannels(m)

	handles, err := ch.Enable(ctx, "FrameDropped", func(*Node) {})
	if err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if len(handles) != 0 {
		t.Errorf("expected no handles, got %d", len(handles))
	}
	if ch.State("FrameDropped") != ChannelEnabled {
		t.Errorf("expected enabled, got %s", ch.State("FrameDropped"))
	}
}

func TestEventChannels_DisableAllReturnsToDisabled(t *testing.T) {
	ctx := context.Background()
	m := newCameraMap(t)
	ch := NewEventChannels(m)

	if _, err := ch.EnableAll(ctx, func(*Node) {}); err != nil {
		t.Fatalf("EnableAll failed: %v", err)
	}
	if err := ch.DisableAll(ctx); err != nil {
		t.Fatalf("DisableAll failed: %v", err)
	}

	if ch.State("ExposureEnd") != ChannelDisabled {
		t.Errorf("ExposureEnd not disabled: %s", ch.State("ExposureEnd"))
	}
	if ch.State("FrameStart") != ChannelDisabled {
		t.Errorf("FrameStart not disabled: %s", ch.State("FrameStart"))
	}

	notif := m.Get("EventNotification")
	sel := m.Get("EventSelector")
	for _, entry := range m.Entries(sel) {
		e, err := m.ScopedEntry(notif, entry.Value)
		if err != nil {
			t.Fatalf("ScopedEntry failed: %v", err)
		}
		if e.Symbolic != "Off" {
			t.Errorf("kind %s still %s", entry.Symbolic, e.Symbolic)
		}
	}
}

func TestEventChannels_DisableAllIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newCameraMap(t)
	ch := NewEventChannels(m)

	// Nothing was ever enabled; the sweep writes Off everywhere and
	// succeeds.
	if err := ch.DisableAll(ctx); err != nil {
		t.Errorf("DisableAll on untouched map failed: %v", err)
	}
	if err := ch.DisableAll(ctx); err != nil {
		t.Errorf("second DisableAll failed: %v", err)
	}
}

func TestEventChannels_DisableAllMissingSelectorNil(t *testing.T) {
	ctx := context.Background()
	def := MapDefinition{
		Name: "bare",
		Nodes: []NodeDefinition{
			{Name: "Height", Type: "integer"},
		},
	}
	m, err := def.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if err := NewEventChannels(m).DisableAll(ctx); err != nil {
		t.Errorf("expected nil for absent selector, got %v", err)
	}
}

func TestEventChannels_CustomNodeNames(t *testing.T) {
	ctx := context.Background()
	def := MapDefinition{
		Name: "custom",
		Nodes: []NodeDefinition{
			{Name: "TriggerSelector", Type: "enumeration", Entries: []EntryDefinition{
				{Symbolic: "FrameStart", Value: 0},
			}},
			{Name: "TriggerMode", Type: "enumeration", ScopedBy: "TriggerSelector", Entries: []EntryDefinition{
				{Symbolic: "Off", Value: 0},
				{Symbolic: "On", Value: 1},
			}},
		},
	}
	m, err := def.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ch := NewEventChannels(m).
		Selector("TriggerSelector").
		Notification("TriggerMode")
	if _, err := ch.Enable(ctx, "FrameStart", func(*Node) {}); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if ch.State("FrameStart") != ChannelEnabled {
		t.Errorf("expected enabled, got %s", ch.State("FrameStart"))
	}
}

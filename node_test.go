package nodez

import (
	"context"
	"errors"
	"testing"
)

func TestNode_NilAccessors(t *testing.T) {
	var n *Node

	if n.Name() != "" {
		t.Error("nil node has a name")
	}
	if n.DisplayName() != "" {
		t.Error("nil node has a display name")
	}
	if _, err := n.Int(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := n.Entry(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNode_TypedAccessorsRejectWrongType(t *testing.T) {
	m := newCameraMap(t)
	height := m.Get("Height")

	if _, err := height.Float(); !errors.Is(err, ErrWrongType) {
		t.Errorf("expected ErrWrongType, got %v", err)
	}
	if _, err := height.Bool(); !errors.Is(err, ErrWrongType) {
		t.Errorf("expected ErrWrongType, got %v", err)
	}
	if _, err := height.Str(); !errors.Is(err, ErrWrongType) {
		t.Errorf("expected ErrWrongType, got %v", err)
	}
	if _, err := height.Entry(); !errors.Is(err, ErrWrongType) {
		t.Errorf("expected ErrWrongType, got %v", err)
	}
}

func TestNode_ReadFailsOnWriteOnlyNode(t *testing.T) {
	m := newCameraMap(t)

	_, err := m.Get("TriggerSoftware").Str()
	if !errors.Is(err, ErrNotReadable) {
		t.Errorf("expected ErrNotReadable, got %v", err)
	}
}

func TestNode_IntegerBounds(t *testing.T) {
	m := newCameraMap(t)
	height := m.Get("Height")

	if height.Min() != 4 {
		t.Errorf("expected min 4, got %d", height.Min())
	}
	if height.Max() != 1024 {
		t.Errorf("expected max 1024, got %d", height.Max())
	}
	if height.Inc() != 4 {
		t.Errorf("expected increment 4, got %d", height.Inc())
	}
}

func TestNode_FloatBounds(t *testing.T) {
	m := newCameraMap(t)
	gain := m.Get("Gain")

	if gain.FloatMin() != 0 {
		t.Errorf("expected min 0, got %g", gain.FloatMin())
	}
	if gain.FloatMax() != 48 {
		t.Errorf("expected max 48, got %g", gain.FloatMax())
	}
}

func TestNode_EntryByName(t *testing.T) {
	m := newCameraMap(t)
	auto := m.Get("GainAuto")

	e, err := auto.EntryByName("Once")
	if err != nil {
		t.Fatalf("EntryByName failed: %v", err)
	}
	if e.Value != 1 {
		t.Errorf("expected value 1, got %d", e.Value)
	}

	if _, err := auto.EntryByName("Never"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNode_DisplayNameDefaultsToName(t *testing.T) {
	m := newCameraMap(t)

	// GainAuto declares no display name.
	if got := m.Get("GainAuto").DisplayName(); got != "GainAuto" {
		t.Errorf("expected GainAuto, got %s", got)
	}
	if got := m.Get("Height").DisplayName(); got != "Height" {
		t.Errorf("expected Height, got %s", got)
	}
}

func TestNode_ValueString(t *testing.T) {
	ctx := context.Background()
	m := newCameraMap(t)

	if got := m.Get("Height").ValueString(); got != "540" {
		t.Errorf("integer: expected 540, got %q", got)
	}
	if got := m.Get("GainAuto").ValueString(); got != "Continuous" {
		t.Errorf("enumeration: expected Continuous, got %q", got)
	}
	if got := m.Get("Reverse").ValueString(); got != "false" {
		t.Errorf("boolean: expected false, got %q", got)
	}
	if got := m.Get("DeviceSerialNumber").ValueString(); got != "23172624" {
		t.Errorf("string: expected serial, got %q", got)
	}
	if got := m.Get("DeviceInformation").ValueString(); got != "" {
		t.Errorf("category: expected empty, got %q", got)
	}
	if got := m.Get("TriggerSoftware").ValueString(); got != "" {
		t.Errorf("write-only: expected empty, got %q", got)
	}

	m.SetEnum(ctx, m.Get("GainAuto"), "Off")
	if got := m.Get("Gain").ValueString(); got != "0" {
		t.Errorf("float: expected 0, got %q", got)
	}
}

func TestNodeType_String(t *testing.T) {
	cases := []struct {
		typ  NodeType
		want string
	}{
		{NodeInteger, "integer"},
		{NodeFloat, "float"},
		{NodeBoolean, "boolean"},
		{NodeString, "string"},
		{NodeEnumeration, "enumeration"},
		{NodeCategory, "category"},
		{NodeType(99), "unknown"},
	}
	for _, c := range cases {
		if got := c.typ.String(); got != c.want {
			t.Errorf("expected %s, got %s", c.want, got)
		}
	}
}

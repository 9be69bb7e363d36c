package nodez

import (
	"math"
	"strings"
	"testing"
)

func TestDefinition_ValidateRequiresName(t *testing.T) {
	def := MapDefinition{Nodes: []NodeDefinition{{Name: "A", Type: "integer"}}}

	if err := def.Validate(); err == nil {
		t.Error("expected missing map name error")
	}
}

func TestDefinition_ValidateRequiresNodes(t *testing.T) {
	def := MapDefinition{Name: "empty"}

	if err := def.Validate(); err == nil {
		t.Error("expected empty node list error")
	}
}

func TestDefinition_ValidateDuplicateNames(t *testing.T) {
	def := MapDefinition{
		Name: "dup",
		Nodes: []NodeDefinition{
			{Name: "A", Type: "integer"},
			{Name: "A", Type: "float"},
		},
	}

	err := def.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate name error, got %v", err)
	}
}

func TestDefinition_ValidateUnknownType(t *testing.T) {
	def := MapDefinition{
		Name:  "bad",
		Nodes: []NodeDefinition{{Name: "A", Type: "decimal"}},
	}

	err := def.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown node type") {
		t.Errorf("expected unknown type error, got %v", err)
	}
}

func TestDefinition_ValidateUnknownAccess(t *testing.T) {
	def := MapDefinition{
		Name:  "bad",
		Nodes: []NodeDefinition{{Name: "A", Type: "integer", Access: "rwx"}},
	}

	if err := def.Validate(); err == nil {
		t.Error("expected unknown access error")
	}
}

func TestDefinition_ValidateEnumerationNeedsEntries(t *testing.T) {
	def := MapDefinition{
		Name:  "bad",
		Nodes: []NodeDefinition{{Name: "Mode", Type: "enumeration"}},
	}

	if err := def.Validate(); err == nil {
		t.Error("expected missing entries error")
	}
}

func TestDefinition_ValidateDuplicateEntries(t *testing.T) {
	def := MapDefinition{
		Name: "bad",
		Nodes: []NodeDefinition{
			{Name: "Mode", Type: "enumeration", Entries: []EntryDefinition{
				{Symbolic: "On", Value: 0},
				{Symbolic: "On", Value: 1},
			}},
		},
	}

	if err := def.Validate(); err == nil {
		t.Error("expected duplicate entry error")
	}

	def.Nodes[0].Entries = []EntryDefinition{
		{Symbolic: "On", Value: 0},
		{Symbolic: "Off", Value: 0},
	}
	if err := def.Validate(); err == nil {
		t.Error("expected duplicate entry value error")
	}
}

func TestDefinition_ValidateInitialEntryMustExist(t *testing.T) {
	def := MapDefinition{
		Name: "bad",
		Nodes: []NodeDefinition{
			{Name: "Mode", Type: "enumeration", Value: "Auto", Entries: []EntryDefinition{
				{Symbolic: "Off", Value: 0},
			}},
		},
	}

	if err := def.Validate(); err == nil {
		t.Error("expected undeclared initial entry error")
	}
}

func TestDefinition_ValidateScopedByMustBeEnum(t *testing.T) {
	def := MapDefinition{
		Name: "bad",
		Nodes: []NodeDefinition{
			{Name: "Width", Type: "integer"},
			{Name: "Mode", Type: "enumeration", ScopedBy: "Width", Entries: []EntryDefinition{
				{Symbolic: "Off", Value: 0},
			}},
		},
	}

	if err := def.Validate(); err == nil {
		t.Error("expected scopedBy type error")
	}

	def.Nodes[1].ScopedBy = "Nowhere"
	if err := def.Validate(); err == nil {
		t.Error("expected unknown scopedBy error")
	}
}

func TestDefinition_ValidateCategoryFeatures(t *testing.T) {
	def := MapDefinition{
		Name: "bad",
		Nodes: []NodeDefinition{
			{Name: "Info", Type: "category", Features: []string{"Info"}},
		},
	}
	if err := def.Validate(); err == nil {
		t.Error("expected self-referential category error")
	}

	def.Nodes[0].Features = []string{"Missing"}
	if err := def.Validate(); err == nil {
		t.Error("expected unknown feature error")
	}
}

func TestDefinition_ValidateRuleReferences(t *testing.T) {
	def := MapDefinition{
		Name: "bad",
		Nodes: []NodeDefinition{
			{Name: "Gain", Type: "float"},
			{Name: "GainAuto", Type: "enumeration", Entries: []EntryDefinition{
				{Symbolic: "Off", Value: 0},
			}},
		},
		Rules: []AccessRuleDefinition{
			{Node: "Exposure", WritableWhen: &ConditionDefinition{Node: "GainAuto", Equals: "Off"}},
		},
	}
	if err := def.Validate(); err == nil {
		t.Error("expected unknown rule node error")
	}

	def.Rules[0].Node = "Gain"
	def.Rules[0].WritableWhen.Node = "Gain"
	if err := def.Validate(); err == nil {
		t.Error("expected non-enumeration condition node error")
	}

	def.Rules[0].WritableWhen.Node = "GainAuto"
	def.Rules[0].WritableWhen.Equals = "Sometimes"
	if err := def.Validate(); err == nil {
		t.Error("expected undeclared condition entry error")
	}

	def.Rules[0].WritableWhen.Equals = "Off"
	if err := def.Validate(); err != nil {
		t.Errorf("valid rule rejected: %v", err)
	}
}

func TestDefinition_ValidateNegativeIncrement(t *testing.T) {
	def := MapDefinition{
		Name:  "bad",
		Nodes: []NodeDefinition{{Name: "A", Type: "integer", Inc: i64(-4)}},
	}

	if err := def.Validate(); err == nil {
		t.Error("expected negative increment error")
	}
}

func TestDefinition_ValidateMinExceedsMax(t *testing.T) {
	def := MapDefinition{
		Name:  "bad",
		Nodes: []NodeDefinition{{Name: "A", Type: "integer", Min: f64(10), Max: f64(4)}},
	}

	if err := def.Validate(); err == nil {
		t.Error("expected min/max ordering error")
	}
}

func TestDefinition_BuildDefaults(t *testing.T) {
	def := MapDefinition{
		Name: "defaults",
		Nodes: []NodeDefinition{
			{Name: "Count", Type: "integer"},
			{Name: "Temp", Type: "float"},
			{Name: "Mode", Type: "enumeration", Entries: []EntryDefinition{
				{Symbolic: "Off", Value: 0},
				{Symbolic: "On", Value: 1},
			}},
		},
	}
	m, err := def.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	count := m.Get("Count")
	if count.Min() != 0 || count.Max() != math.MaxInt64 || count.Inc() != 1 {
		t.Errorf("unexpected integer defaults: [%d, %d] inc %d", count.Min(), count.Max(), count.Inc())
	}
	v, _ := count.Int()
	if v != 0 {
		t.Errorf("expected initial 0, got %d", v)
	}

	// Enum defaults to its first declared entry.
	e, _ := m.Get("Mode").Entry()
	if e.Symbolic != "Off" {
		t.Errorf("expected Off, got %s", e.Symbolic)
	}
}

func TestDefinition_BuildInitialValueInBounds(t *testing.T) {
	def := MapDefinition{
		Name:  "bad",
		Nodes: []NodeDefinition{{Name: "A", Type: "integer", Value: 100, Min: f64(0), Max: f64(10)}},
	}

	if _, err := def.Build(); err == nil {
		t.Error("expected out-of-bounds initial value error")
	}
}

func TestDefinition_BuildIntegerInitialValueFromMin(t *testing.T) {
	def := MapDefinition{
		Name:  "m",
		Nodes: []NodeDefinition{{Name: "Width", Type: "integer", Min: f64(4), Max: f64(1440)}},
	}
	m, err := def.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	v, _ := m.Get("Width").Int()
	if v != 4 {
		t.Errorf("expected initial value at min, got %d", v)
	}
}

func TestLoadMap_YAML(t *testing.T) {
	data := []byte(`
name: device
nodes:
  - name: Height
    type: integer
    value: 540
    min: 4
    max: 1024
    inc: 4
  - name: GainAuto
    type: enumeration
    value: Continuous
    entries:
      - symbolic: "Off"
        value: 0
      - symbolic: Continuous
        value: 2
`)
	m, err := LoadMap(data, YAMLCodec{})
	if err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}

	v, _ := m.Get("Height").Int()
	if v != 540 {
		t.Errorf("expected 540, got %d", v)
	}
	e, _ := m.Get("GainAuto").Entry()
	if e.Symbolic != "Continuous" {
		t.Errorf("expected Continuous, got %s", e.Symbolic)
	}
}

func TestLoadMap_JSON(t *testing.T) {
	data := []byte(`{
  "name": "device",
  "nodes": [
    {"name": "Gain", "type": "float", "value": 1.5, "min": 0, "max": 48}
  ]
}`)
	m, err := LoadMap(data, JSONCodec{})
	if err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}

	v, _ := m.Get("Gain").Float()
	if v != 1.5 {
		t.Errorf("expected 1.5, got %g", v)
	}
}

func TestLoadMap_MalformedDocument(t *testing.T) {
	if _, err := LoadMap([]byte("{not yaml"), YAMLCodec{}); err == nil {
		t.Error("expected decode error")
	}
}

package nodez

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance.
var validate = validator.New()

// MapDefinition is the declarative description of a node map: its nodes in
// declared order plus the access rules tying one node's readability or
// writability to another node's current selection.
//
// Definitions are decoded from JSON or YAML with a Codec and validated
// before building; Build produces the live Map.
type MapDefinition struct {
	Name  string                 `json:"name" yaml:"name" validate:"required"`
	Nodes []NodeDefinition       `json:"nodes" yaml:"nodes" validate:"required,min=1,dive"`
	Rules []AccessRuleDefinition `json:"rules,omitempty" yaml:"rules,omitempty" validate:"dive"`
}

// NodeDefinition describes a single node.
type NodeDefinition struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`

	// Type is one of integer, float, boolean, string, enumeration,
	// category.
	Type string `json:"type" yaml:"type" validate:"required"`

	// Access is rw (default), ro, or wo.
	Access string `json:"access,omitempty" yaml:"access,omitempty" validate:"omitempty,oneof=rw ro wo"`

	// Value is the initial value. Integer and float nodes accept numbers,
	// enumeration nodes accept a symbolic entry name.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`

	// Min, Max, and Inc bound integer and float nodes. Inc applies to
	// integer nodes only.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Inc *int64   `json:"inc,omitempty" yaml:"inc,omitempty"`

	// Entries lists the options of an enumeration node in declared order.
	Entries []EntryDefinition `json:"entries,omitempty" yaml:"entries,omitempty" validate:"dive"`

	// ScopedBy names a selector enumeration node whose current selection
	// scopes this node's value (the EventNotification pattern).
	ScopedBy string `json:"scopedBy,omitempty" yaml:"scopedBy,omitempty"`

	// Features lists the children of a category node by name, in declared
	// order.
	Features []string `json:"features,omitempty" yaml:"features,omitempty"`
}

// EntryDefinition describes one enumeration entry.
type EntryDefinition struct {
	Symbolic    string `json:"symbolic" yaml:"symbolic" validate:"required"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Value       int64  `json:"value" yaml:"value"`
}

// AccessRuleDefinition ties a node's access to another node's current
// enumeration selection. A node with a writableWhen rule is writable only
// while the referenced node's current entry matches; readableWhen works the
// same way for reads.
type AccessRuleDefinition struct {
	Node         string               `json:"node" yaml:"node"`
	ReadableWhen *ConditionDefinition `json:"readableWhen,omitempty" yaml:"readableWhen,omitempty"`
	WritableWhen *ConditionDefinition `json:"writableWhen,omitempty" yaml:"writableWhen,omitempty"`
}

// ConditionDefinition matches an enumeration node's current entry by
// symbolic name.
type ConditionDefinition struct {
	Node   string `json:"node" yaml:"node"`
	Equals string `json:"equals" yaml:"equals"`
}

// Validate checks the definition for structural errors, naming the
// offending node in every failure.
func (d MapDefinition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("map definition: %w", err)
	}

	names := make(map[string]NodeDefinition, len(d.Nodes))
	for _, nd := range d.Nodes {
		if _, dup := names[nd.Name]; dup {
			return fmt.Errorf("node %q: duplicate name", nd.Name)
		}
		names[nd.Name] = nd
	}

	for _, nd := range d.Nodes {
		if _, err := parseNodeType(nd.Type); err != nil {
			return fmt.Errorf("node %q: %w", nd.Name, err)
		}
		typ, _ := parseNodeType(nd.Type)
		switch typ {
		case NodeInteger:
			if nd.Inc != nil && *nd.Inc <= 0 {
				return fmt.Errorf("node %q: increment must be positive", nd.Name)
			}
			if nd.Min != nil && nd.Max != nil && *nd.Min > *nd.Max {
				return fmt.Errorf("node %q: min exceeds max", nd.Name)
			}
		case NodeFloat:
			if nd.Min != nil && nd.Max != nil && *nd.Min > *nd.Max {
				return fmt.Errorf("node %q: min exceeds max", nd.Name)
			}
		case NodeEnumeration:
			if len(nd.Entries) == 0 {
				return fmt.Errorf("node %q: enumeration requires entries", nd.Name)
			}
			symbolics := make(map[string]bool, len(nd.Entries))
			values := make(map[int64]bool, len(nd.Entries))
			for _, e := range nd.Entries {
				if symbolics[e.Symbolic] {
					return fmt.Errorf("node %q: duplicate entry %q", nd.Name, e.Symbolic)
				}
				if values[e.Value] {
					return fmt.Errorf("node %q: duplicate entry value %d", nd.Name, e.Value)
				}
				symbolics[e.Symbolic] = true
				values[e.Value] = true
			}
			if s, ok := nd.Value.(string); ok && !symbolics[s] {
				return fmt.Errorf("node %q: initial entry %q not declared", nd.Name, s)
			}
			if nd.ScopedBy != "" {
				sel, ok := names[nd.ScopedBy]
				if !ok {
					return fmt.Errorf("node %q: scopedBy references unknown node %q", nd.Name, nd.ScopedBy)
				}
				if t, _ := parseNodeType(sel.Type); t != NodeEnumeration {
					return fmt.Errorf("node %q: scopedBy node %q is not an enumeration", nd.Name, nd.ScopedBy)
				}
			}
		case NodeCategory:
			for _, f := range nd.Features {
				if f == nd.Name {
					return fmt.Errorf("node %q: category cannot contain itself", nd.Name)
				}
				if _, ok := names[f]; !ok {
					return fmt.Errorf("node %q: feature %q not declared", nd.Name, f)
				}
			}
		}
	}

	for _, r := range d.Rules {
		if _, ok := names[r.Node]; !ok {
			return fmt.Errorf("rule for %q: unknown node", r.Node)
		}
		for _, cond := range []*ConditionDefinition{r.ReadableWhen, r.WritableWhen} {
			if cond == nil {
				continue
			}
			ref, ok := names[cond.Node]
			if !ok {
				return fmt.Errorf("rule for %q: condition references unknown node %q", r.Node, cond.Node)
			}
			if t, _ := parseNodeType(ref.Type); t != NodeEnumeration {
				return fmt.Errorf("rule for %q: condition node %q is not an enumeration", r.Node, cond.Node)
			}
			found := false
			for _, e := range ref.Entries {
				if e.Symbolic == cond.Equals {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("rule for %q: condition entry %q not declared on %q", r.Node, cond.Equals, cond.Node)
			}
		}
	}
	return nil
}

// Build validates the definition and produces a live Map. The map's node
// set is fixed from this point on.
func (d MapDefinition) Build() (*Map, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	m := &Map{
		name:  d.Name,
		nodes: make(map[string]*Node, len(d.Nodes)),
	}
	m.reg = newRegistry(m)

	for _, nd := range d.Nodes {
		typ, _ := parseNodeType(nd.Type)
		n := &Node{
			name:        nd.Name,
			displayName: nd.DisplayName,
			typ:         typ,
			owner:       m,
			readable:    nd.Access != "wo",
			writable:    nd.Access == "" || nd.Access == "rw" || nd.Access == "wo",
			scopedBy:    nd.ScopedBy,
		}
		if n.displayName == "" {
			n.displayName = nd.Name
		}
		if typ == NodeCategory {
			n.readable = nd.Access != "wo"
			n.writable = false
		}
		if err := n.applyDefaults(nd); err != nil {
			return nil, fmt.Errorf("node %q: %w", nd.Name, err)
		}
		m.nodes[nd.Name] = n
		m.order = append(m.order, n)
	}

	// Link category features in declared order.
	for _, nd := range d.Nodes {
		if t, _ := parseNodeType(nd.Type); t != NodeCategory {
			continue
		}
		n := m.nodes[nd.Name]
		for _, f := range nd.Features {
			n.features = append(n.features, m.nodes[f])
		}
	}

	for _, r := range d.Rules {
		rule := accessRule{node: r.Node}
		if r.ReadableWhen != nil {
			rule.readableWhen = &ruleCondition{node: r.ReadableWhen.Node, equals: r.ReadableWhen.Equals}
		}
		if r.WritableWhen != nil {
			rule.writableWhen = &ruleCondition{node: r.WritableWhen.Node, equals: r.WritableWhen.Equals}
		}
		m.rules = append(m.rules, rule)
	}
	return m, nil
}

// applyDefaults sets bounds and the initial value from the definition.
func (n *Node) applyDefaults(nd NodeDefinition) error {
	switch n.typ {
	case NodeInteger:
		n.min = 0
		n.max = math.MaxInt64
		n.inc = 1
		if nd.Min != nil {
			n.min = int64(*nd.Min)
		}
		if nd.Max != nil {
			n.max = int64(*nd.Max)
		}
		if nd.Inc != nil {
			n.inc = *nd.Inc
		}
		n.intVal = n.min
		if nd.Value != nil {
			v, err := toInt64(nd.Value)
			if err != nil {
				return err
			}
			if v < n.min || v > n.max {
				return fmt.Errorf("initial value %d outside [%d, %d]", v, n.min, n.max)
			}
			n.intVal = v
		}
	case NodeFloat:
		n.floatMin = -math.MaxFloat64
		n.floatMax = math.MaxFloat64
		if nd.Min != nil {
			n.floatMin = *nd.Min
		}
		if nd.Max != nil {
			n.floatMax = *nd.Max
		}
		if nd.Value != nil {
			v, err := toFloat64(nd.Value)
			if err != nil {
				return err
			}
			if v < n.floatMin || v > n.floatMax {
				return fmt.Errorf("initial value %g outside [%g, %g]", v, n.floatMin, n.floatMax)
			}
			n.floatVal = v
		}
	case NodeBoolean:
		if nd.Value != nil {
			v, ok := nd.Value.(bool)
			if !ok {
				return fmt.Errorf("initial value %v is not a boolean", nd.Value)
			}
			n.boolVal = v
		}
	case NodeString:
		if nd.Value != nil {
			v, ok := nd.Value.(string)
			if !ok {
				return fmt.Errorf("initial value %v is not a string", nd.Value)
			}
			n.strVal = v
		}
	case NodeEnumeration:
		for _, e := range nd.Entries {
			entry := EnumEntry{Symbolic: e.Symbolic, DisplayName: e.DisplayName, Value: e.Value}
			if entry.DisplayName == "" {
				entry.DisplayName = e.Symbolic
			}
			n.entries = append(n.entries, entry)
		}
		n.intVal = n.entries[0].Value
		if s, ok := nd.Value.(string); ok {
			for _, e := range n.entries {
				if e.Symbolic == s {
					n.intVal = e.Value
					break
				}
			}
		}
	}
	return nil
}

func parseNodeType(s string) (NodeType, error) {
	switch s {
	case "integer":
		return NodeInteger, nil
	case "float":
		return NodeFloat, nil
	case "boolean":
		return NodeBoolean, nil
	case "string":
		return NodeString, nil
	case "enumeration":
		return NodeEnumeration, nil
	case "category":
		return NodeCategory, nil
	default:
		return 0, fmt.Errorf("unknown node type %q", s)
	}
}

// LoadMap decodes a map definition with the codec, validates it, and builds
// the live Map.
func LoadMap(data []byte, codec Codec) (*Map, error) {
	var def MapDefinition
	if err := codec.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode map definition: %w", err)
	}
	return def.Build()
}

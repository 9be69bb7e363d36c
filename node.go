package nodez

import (
	"fmt"
	"strconv"
)

// NodeType identifies the value kind a Node carries. The type is fixed for
// the lifetime of the node.
type NodeType int

const (
	// NodeInteger is a bounded integer value with an increment.
	NodeInteger NodeType = iota

	// NodeFloat is a bounded floating-point value.
	NodeFloat

	// NodeBoolean is a true/false value.
	NodeBoolean

	// NodeString is a text value.
	NodeString

	// NodeEnumeration is a value selected from a fixed set of entries.
	NodeEnumeration

	// NodeCategory groups other nodes for enumeration purposes. Categories
	// carry no value of their own.
	NodeCategory
)

// String returns the string representation of the node type.
func (t NodeType) String() string {
	switch t {
	case NodeInteger:
		return "integer"
	case NodeFloat:
		return "float"
	case NodeBoolean:
		return "boolean"
	case NodeString:
		return "string"
	case NodeEnumeration:
		return "enumeration"
	case NodeCategory:
		return "category"
	default:
		return "unknown"
	}
}

// EnumEntry is one named option of an enumeration node.
type EnumEntry struct {
	// Symbolic is the programmatic name of the entry, e.g. "ExposureEnd".
	Symbolic string

	// DisplayName is the human-readable name of the entry.
	DisplayName string

	// Value is the integer value written to the node when the entry is
	// selected.
	Value int64
}

// Node is a single named, typed, observable value owned by a Map. Nodes are
// created by building a MapDefinition and are never constructed directly.
//
// A Node reference handed to an observer is a non-owning view; the owning
// Map controls its lifetime.
type Node struct {
	name        string
	displayName string
	typ         NodeType
	owner       *Map

	readable bool
	writable bool

	intVal   int64
	floatVal float64
	boolVal  bool
	strVal   string

	min, max, inc      int64
	floatMin, floatMax float64

	entries []EnumEntry

	// scopedBy names a selector enumeration node. When set, the node's
	// value is stored per current selector selection rather than globally
	// (the EventNotification pattern).
	scopedBy string
	scoped   map[int64]int64

	features []*Node
}

// Name returns the node's unique name within its map.
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	return n.name
}

// DisplayName returns the node's human-readable name.
func (n *Node) DisplayName() string {
	if n == nil {
		return ""
	}
	return n.displayName
}

// Type returns the node's fixed type.
func (n *Node) Type() NodeType {
	if n == nil {
		return NodeType(-1)
	}
	return n.typ
}

// Int returns the current integer value. Fails with ErrWrongType for
// non-integer nodes and ErrNotReadable when the node cannot currently be
// read.
func (n *Node) Int() (int64, error) {
	if n == nil {
		return 0, ErrNotFound
	}
	if n.typ != NodeInteger {
		return 0, fmt.Errorf("%q is %s: %w", n.name, n.typ, ErrWrongType)
	}
	if !n.owner.IsReadable(n) {
		return 0, fmt.Errorf("%q: %w", n.name, ErrNotReadable)
	}
	n.owner.mu.Lock()
	defer n.owner.mu.Unlock()
	return n.intVal, nil
}

// Min returns the minimum value of an integer node.
func (n *Node) Min() int64 { return n.min }

// Max returns the maximum value of an integer node.
func (n *Node) Max() int64 { return n.max }

// Inc returns the increment of an integer node.
func (n *Node) Inc() int64 { return n.inc }

// Float returns the current float value.
func (n *Node) Float() (float64, error) {
	if n == nil {
		return 0, ErrNotFound
	}
	if n.typ != NodeFloat {
		return 0, fmt.Errorf("%q is %s: %w", n.name, n.typ, ErrWrongType)
	}
	if !n.owner.IsReadable(n) {
		return 0, fmt.Errorf("%q: %w", n.name, ErrNotReadable)
	}
	n.owner.mu.Lock()
	defer n.owner.mu.Unlock()
	return n.floatVal, nil
}

// FloatMin returns the minimum value of a float node.
func (n *Node) FloatMin() float64 { return n.floatMin }

// FloatMax returns the maximum value of a float node.
func (n *Node) FloatMax() float64 { return n.floatMax }

// Bool returns the current boolean value.
func (n *Node) Bool() (bool, error) {
	if n == nil {
		return false, ErrNotFound
	}
	if n.typ != NodeBoolean {
		return false, fmt.Errorf("%q is %s: %w", n.name, n.typ, ErrWrongType)
	}
	if !n.owner.IsReadable(n) {
		return false, fmt.Errorf("%q: %w", n.name, ErrNotReadable)
	}
	n.owner.mu.Lock()
	defer n.owner.mu.Unlock()
	return n.boolVal, nil
}

// Str returns the current string value.
func (n *Node) Str() (string, error) {
	if n == nil {
		return "", ErrNotFound
	}
	if n.typ != NodeString {
		return "", fmt.Errorf("%q is %s: %w", n.name, n.typ, ErrWrongType)
	}
	if !n.owner.IsReadable(n) {
		return "", fmt.Errorf("%q: %w", n.name, ErrNotReadable)
	}
	n.owner.mu.Lock()
	defer n.owner.mu.Unlock()
	return n.strVal, nil
}

// Entry returns the currently selected entry of an enumeration node. For
// selector-scoped nodes the entry selected under the current scope is
// returned.
func (n *Node) Entry() (EnumEntry, error) {
	if n == nil {
		return EnumEntry{}, ErrNotFound
	}
	if n.typ != NodeEnumeration {
		return EnumEntry{}, fmt.Errorf("%q is %s: %w", n.name, n.typ, ErrWrongType)
	}
	if !n.owner.IsReadable(n) {
		return EnumEntry{}, fmt.Errorf("%q: %w", n.name, ErrNotReadable)
	}
	n.owner.mu.Lock()
	defer n.owner.mu.Unlock()
	return n.entryLocked()
}

// entryLocked resolves the current entry. Caller holds the owner's mutex.
func (n *Node) entryLocked() (EnumEntry, error) {
	val := n.intVal
	if n.scopedBy != "" {
		if sel, ok := n.owner.nodes[n.scopedBy]; ok {
			if v, set := n.scoped[sel.intVal]; set {
				val = v
			}
		}
	}
	for _, e := range n.entries {
		if e.Value == val {
			return e, nil
		}
	}
	return EnumEntry{}, fmt.Errorf("%q: no entry with value %d: %w", n.name, val, ErrNotFound)
}

// EntryByName returns the entry with the given symbolic name.
func (n *Node) EntryByName(symbolic string) (EnumEntry, error) {
	if n == nil {
		return EnumEntry{}, ErrNotFound
	}
	if n.typ != NodeEnumeration {
		return EnumEntry{}, fmt.Errorf("%q is %s: %w", n.name, n.typ, ErrWrongType)
	}
	for _, e := range n.entries {
		if e.Symbolic == symbolic {
			return e, nil
		}
	}
	return EnumEntry{}, fmt.Errorf("%q: no entry %q: %w", n.name, symbolic, ErrNotFound)
}

// ValueString renders the current value as text regardless of node type.
// Unreadable nodes and categories render as an empty string. Used for
// device-information listings.
func (n *Node) ValueString() string {
	if n == nil || !n.owner.IsReadable(n) {
		return ""
	}
	n.owner.mu.Lock()
	defer n.owner.mu.Unlock()
	switch n.typ {
	case NodeInteger:
		return strconv.FormatInt(n.intVal, 10)
	case NodeFloat:
		return strconv.FormatFloat(n.floatVal, 'g', -1, 64)
	case NodeBoolean:
		return strconv.FormatBool(n.boolVal)
	case NodeString:
		return n.strVal
	case NodeEnumeration:
		if e, err := n.entryLocked(); err == nil {
			return e.Symbolic
		}
		return strconv.FormatInt(n.intVal, 10)
	default:
		return ""
	}
}

package nodez

import (
	"context"
	"fmt"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Map is a keyed collection of Nodes belonging to one logical interface of a
// device (device proper, transport-layer device, or transport-layer stream).
// Maps are built from a MapDefinition and are never mutated structurally
// afterwards.
//
// All reads, writes, and callback dispatch are synchronous. Writes may
// cascade: setting one node (e.g. an enum selector) can change the
// readability or writability of other nodes. Readability and writability are
// computed per call, never cached.
//
// A Map is safe for concurrent use by a local writer and a device-update
// goroutine calling ApplyExternal.
type Map struct {
	name    string
	nodes   map[string]*Node
	order   []*Node
	rules   []accessRule
	reg     *Registry
	metrics MetricsProvider

	mu     sync.Mutex
	closed bool
}

type accessRule struct {
	node         string
	readableWhen *ruleCondition
	writableWhen *ruleCondition
}

type ruleCondition struct {
	node   string
	equals string
}

// Name returns the map's name.
func (m *Map) Name() string {
	return m.name
}

// Registry returns the callback registry owning observer registrations for
// this map's nodes.
func (m *Map) Registry() *Registry {
	return m.reg
}

// Clock sets a custom clock for dispatch timing. Must be called before any
// registrations or writes.
func (m *Map) Clock(clock clockz.Clock) *Map {
	m.reg.clock = clock
	return m
}

// Metrics sets a metrics provider for observability integration. Must be
// called before any registrations or writes.
func (m *Map) Metrics(provider MetricsProvider) *Map {
	m.metrics = provider
	m.reg.metrics = provider
	return m
}

// Get returns the node with the given name, case-sensitive. Absent names
// yield nil; IsReadable and IsWritable treat nil as an absent node, so
// callers can guard with those instead of treating absence as fatal.
func (m *Map) Get(name string) *Node {
	return m.nodes[name]
}

// Nodes returns all nodes in declared order.
func (m *Map) Nodes() []*Node {
	out := make([]*Node, len(m.order))
	copy(out, m.order)
	return out
}

// IsReadable reports whether the node can currently be read. Computed from
// current map state on every call. A nil node is never readable.
func (m *Map) IsReadable(n *Node) bool {
	if n == nil || n.owner != m || !n.readable {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessAllowedLocked(n, func(r accessRule) *ruleCondition { return r.readableWhen })
}

// IsWritable reports whether the node can currently be written. Computed
// from current map state on every call. A nil node is never writable.
func (m *Map) IsWritable(n *Node) bool {
	if n == nil || n.owner != m || !n.writable {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	return m.accessAllowedLocked(n, func(r accessRule) *ruleCondition { return r.writableWhen })
}

func (m *Map) accessAllowedLocked(n *Node, pick func(accessRule) *ruleCondition) bool {
	for _, r := range m.rules {
		if r.node != n.name {
			continue
		}
		cond := pick(r)
		if cond == nil {
			continue
		}
		ref, ok := m.nodes[cond.node]
		if !ok || ref.typ != NodeEnumeration {
			return false
		}
		e, err := ref.entryLocked()
		if err != nil || e.Symbolic != cond.equals {
			return false
		}
	}
	return true
}

// Entries returns the ordered entries of an enumeration node, reflecting
// declared order. Non-enumeration nodes yield an empty sequence.
func (m *Map) Entries(n *Node) []EnumEntry {
	if n == nil || n.owner != m || n.typ != NodeEnumeration {
		return nil
	}
	out := make([]EnumEntry, len(n.entries))
	copy(out, n.entries)
	return out
}

// Features returns the children of a category node in declared order.
// Non-category nodes yield an empty sequence.
func (m *Map) Features(n *Node) []*Node {
	if n == nil || n.owner != m || n.typ != NodeCategory {
		return nil
	}
	out := make([]*Node, len(n.features))
	copy(out, n.features)
	return out
}

// ScopedEntry returns the entry a selector-scoped enumeration node holds
// under the given scope value, independent of the selector's current
// selection. For unscoped nodes the current entry is returned.
func (m *Map) ScopedEntry(n *Node, scope int64) (EnumEntry, error) {
	if n == nil || n.owner != m {
		return EnumEntry{}, ErrNotFound
	}
	if n.typ != NodeEnumeration {
		return EnumEntry{}, fmt.Errorf("%q is %s: %w", n.name, n.typ, ErrWrongType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	val := n.intVal
	if n.scopedBy != "" {
		if v, set := n.scoped[scope]; set {
			val = v
		}
	}
	for _, e := range n.entries {
		if e.Value == val {
			return e, nil
		}
	}
	return EnumEntry{}, fmt.Errorf("%q: no entry with value %d: %w", n.name, val, ErrNotFound)
}

// SetInt writes a new value to an integer node and synchronously dispatches
// every observer registered to it, in registration order. Dispatch is
// write-triggered: writing a value equal to the current one still fires.
func (m *Map) SetInt(ctx context.Context, n *Node, v int64) error {
	if err := m.checkWrite(n, NodeInteger); err != nil {
		return err
	}
	if v < n.min || v > n.max || (n.inc > 0 && (v-n.min)%n.inc != 0) {
		return fmt.Errorf("%q: value %d outside [%d, %d] increment %d", n.name, v, n.min, n.max, n.inc)
	}
	m.mu.Lock()
	n.intVal = v
	m.mu.Unlock()
	m.written(ctx, n)
	return nil
}

// SetFloat writes a new value to a float node and dispatches its observers.
func (m *Map) SetFloat(ctx context.Context, n *Node, v float64) error {
	if err := m.checkWrite(n, NodeFloat); err != nil {
		return err
	}
	if v < n.floatMin || v > n.floatMax {
		return fmt.Errorf("%q: value %g outside [%g, %g]", n.name, v, n.floatMin, n.floatMax)
	}
	m.mu.Lock()
	n.floatVal = v
	m.mu.Unlock()
	m.written(ctx, n)
	return nil
}

// SetBool writes a new value to a boolean node and dispatches its observers.
func (m *Map) SetBool(ctx context.Context, n *Node, v bool) error {
	if err := m.checkWrite(n, NodeBoolean); err != nil {
		return err
	}
	m.mu.Lock()
	n.boolVal = v
	m.mu.Unlock()
	m.written(ctx, n)
	return nil
}

// SetString writes a new value to a string node and dispatches its observers.
func (m *Map) SetString(ctx context.Context, n *Node, v string) error {
	if err := m.checkWrite(n, NodeString); err != nil {
		return err
	}
	m.mu.Lock()
	n.strVal = v
	m.mu.Unlock()
	m.written(ctx, n)
	return nil
}

// SetEnum selects the entry with the given symbolic name on an enumeration
// node and dispatches its observers.
func (m *Map) SetEnum(ctx context.Context, n *Node, symbolic string) error {
	e, err := n.EntryByName(symbolic)
	if err != nil {
		return err
	}
	return m.SetEnumValue(ctx, n, e.Value)
}

// SetEnumValue selects the entry with the given integer value on an
// enumeration node and dispatches its observers. For selector-scoped nodes
// the value is stored under the selector's current selection.
func (m *Map) SetEnumValue(ctx context.Context, n *Node, v int64) error {
	if err := m.checkWrite(n, NodeEnumeration); err != nil {
		return err
	}
	found := false
	for _, e := range n.entries {
		if e.Value == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%q: no entry with value %d: %w", n.name, v, ErrNotFound)
	}
	m.mu.Lock()
	if n.scopedBy != "" {
		scope := int64(0)
		if sel, ok := m.nodes[n.scopedBy]; ok {
			scope = sel.intVal
		}
		if n.scoped == nil {
			n.scoped = make(map[int64]int64)
		}
		n.scoped[scope] = v
	} else {
		n.intVal = v
	}
	m.mu.Unlock()
	m.written(ctx, n)
	return nil
}

// ApplyExternal applies a device-driven update to the named node and
// dispatches its observers on the calling goroutine. Writability is not
// checked: the device may update nodes the client cannot write, including
// event data nodes. Values are coerced to the node's type.
func (m *Map) ApplyExternal(ctx context.Context, name string, value any) error {
	n := m.Get(name)
	if n == nil {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("%q: %w", m.name, ErrClosed)
	}
	var err error
	switch n.typ {
	case NodeInteger:
		var v int64
		if v, err = toInt64(value); err == nil {
			n.intVal = v
		}
	case NodeFloat:
		var v float64
		if v, err = toFloat64(value); err == nil {
			n.floatVal = v
		}
	case NodeBoolean:
		if v, ok := value.(bool); ok {
			n.boolVal = v
		} else {
			err = fmt.Errorf("%v is not a boolean", value)
		}
	case NodeString:
		if v, ok := value.(string); ok {
			n.strVal = v
		} else {
			err = fmt.Errorf("%v is not a string", value)
		}
	case NodeEnumeration:
		err = m.applyEnumLocked(n, value)
	default:
		err = fmt.Errorf("%q is %s: %w", n.name, n.typ, ErrWrongType)
	}
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%q: %w", name, err)
	}
	if m.metrics != nil {
		m.metrics.OnExternalUpdate(name)
	}
	m.written(ctx, n)
	return nil
}

// applyEnumLocked coerces an external value (symbolic name or integer) onto
// an enumeration node. Selector-scoped nodes store the value under the
// selector's current selection, matching SetEnumValue. Caller holds the map
// mutex.
func (m *Map) applyEnumLocked(n *Node, value any) error {
	var target int64
	switch v := value.(type) {
	case string:
		e, err := n.EntryByName(v)
		if err != nil {
			return err
		}
		target = e.Value
	default:
		iv, err := toInt64(value)
		if err != nil {
			return err
		}
		found := false
		for _, e := range n.entries {
			if e.Value == iv {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no entry with value %d: %w", iv, ErrNotFound)
		}
		target = iv
	}
	if n.scopedBy != "" {
		scope := int64(0)
		if sel, ok := m.nodes[n.scopedBy]; ok {
			scope = sel.intVal
		}
		if n.scoped == nil {
			n.scoped = make(map[int64]int64)
		}
		n.scoped[scope] = target
	} else {
		n.intVal = target
	}
	return nil
}

// Close force-releases all outstanding callback registrations and marks the
// map closed. Handles not deregistered before Close are treated as orphaned
// resources; further writes and registrations fail with ErrClosed.
func (m *Map) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	released := m.reg.releaseAll()
	capitan.Emit(context.Background(), MapClosed,
		KeyMap.Field(m.name),
		KeyReleased.Field(released),
	)
	return nil
}

func (m *Map) checkWrite(n *Node, want NodeType) error {
	if n == nil {
		return ErrNotFound
	}
	if n.owner != m {
		return fmt.Errorf("%q: %w", n.name, ErrNotFound)
	}
	if n.typ != want {
		return fmt.Errorf("%q is %s: %w", n.name, n.typ, ErrWrongType)
	}
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return fmt.Errorf("%q: %w", m.name, ErrClosed)
	}
	if !m.IsWritable(n) {
		return fmt.Errorf("%q: %w", n.name, ErrNotWritable)
	}
	return nil
}

// written emits the write signal and dispatches observers for the node.
func (m *Map) written(ctx context.Context, n *Node) {
	capitan.Emit(ctx, NodeWritten,
		KeyMap.Field(m.name),
		KeyNode.Field(n.name),
		KeyNodeType.Field(n.typ.String()),
		KeyValue.Field(n.ValueString()),
	)
	m.reg.dispatch(ctx, n)
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%v is not an integer", value)
	}
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%v is not a float", value)
	}
}

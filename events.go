package nodez

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zoobzio/capitan"
)

// DefaultSelectorNode is the conventional name of the shared event selector
// enumeration node.
const DefaultSelectorNode = "EventSelector"

// DefaultNotificationNode is the conventional name of the shared event
// notification enumeration node, scoped by the selector.
const DefaultNotificationNode = "EventNotification"

// EventChannels drives the select-then-enable pattern that gates delivery
// of device and stream events as ordinary observable nodes.
//
// Every event kind on a map shares one selector enumeration node and one
// notification enumeration node. Enabling a kind selects it on the selector
// and immediately writes "On" to the notification node while that selection
// is current. Once enabled, the kind's data nodes — the features of the
// category named "Event" + symbolic + "Data" — are registered with the
// map's registry and from then on behave exactly like any other observed
// node. EventChannels is purely an enablement gate, not the delivery
// mechanism.
type EventChannels struct {
	m            *Map
	selector     string
	notification string

	mu     sync.Mutex
	states map[string]ChannelState
}

// NewEventChannels creates an EventChannels over the map using the
// conventional selector and notification node names.
func NewEventChannels(m *Map) *EventChannels {
	return &EventChannels{
		m:            m,
		selector:     DefaultSelectorNode,
		notification: DefaultNotificationNode,
		states:       make(map[string]ChannelState),
	}
}

// Selector overrides the selector node name. Must be called before Enable.
func (e *EventChannels) Selector(name string) *EventChannels {
	e.selector = name
	return e
}

// Notification overrides the notification node name. Must be called before
// Enable.
func (e *EventChannels) Notification(name string) *EventChannels {
	e.notification = name
	return e
}

// State returns the enablement state of the event kind with the given
// symbolic name. Kinds never enabled report ChannelDisabled.
func (e *EventChannels) State(symbolic string) ChannelState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[symbolic]
}

// EnableAll enables every event kind the selector offers and registers the
// observer on each kind's data nodes. Kinds whose enablement fails are
// skipped, matching the best-effort semantics of device event setup; a
// missing or inaccessible selector fails the whole call so the caller can
// degrade to "no events on this map".
//
// The returned handles are owned by the caller and must be deregistered
// before the map is closed.
func (e *EventChannels) EnableAll(ctx context.Context, fn Observer, opts ...Option) ([]Handle, error) {
	sel := e.m.Get(e.selector)
	if sel == nil {
		return nil, fmt.Errorf("%q: %w", e.selector, ErrNotFound)
	}
	if !e.m.IsReadable(sel) || !e.m.IsWritable(sel) {
		return nil, fmt.Errorf("%q: %w", e.selector, ErrNotWritable)
	}

	var handles []Handle
	for _, entry := range e.m.Entries(sel) {
		hs, err := e.enable(ctx, sel, entry, fn, opts...)
		if err != nil {
			// Skip kinds the device does not let us enable.
			continue
		}
		handles = append(handles, hs...)
	}
	return handles, nil
}

// Enable enables a single event kind by symbolic name and registers the
// observer on its data nodes.
func (e *EventChannels) Enable(ctx context.Context, symbolic string, fn Observer, opts ...Option) ([]Handle, error) {
	sel := e.m.Get(e.selector)
	if sel == nil {
		return nil, fmt.Errorf("%q: %w", e.selector, ErrNotFound)
	}
	if !e.m.IsReadable(sel) || !e.m.IsWritable(sel) {
		return nil, fmt.Errorf("%q: %w", e.selector, ErrNotWritable)
	}
	entry, err := sel.EntryByName(symbolic)
	if err != nil {
		return nil, err
	}
	return e.enable(ctx, sel, entry, fn, opts...)
}

// enable performs the Disabled → Selected → Enabled transition for one
// kind. The notification write must happen while the selection is current.
func (e *EventChannels) enable(ctx context.Context, sel *Node, entry EnumEntry, fn Observer, opts ...Option) ([]Handle, error) {
	if err := e.m.SetEnumValue(ctx, sel, entry.Value); err != nil {
		return nil, fmt.Errorf("select %q: %w", entry.Symbolic, err)
	}
	e.transition(ctx, entry.Symbolic, ChannelSelected)

	notif := e.m.Get(e.notification)
	if !e.m.IsReadable(notif) {
		e.transition(ctx, entry.Symbolic, ChannelDisabled)
		return nil, fmt.Errorf("%q: %w", e.notification, ErrNotReadable)
	}
	if _, err := notif.EntryByName("On"); err != nil {
		e.transition(ctx, entry.Symbolic, ChannelDisabled)
		return nil, err
	}
	if !e.m.IsWritable(notif) {
		e.transition(ctx, entry.Symbolic, ChannelDisabled)
		return nil, fmt.Errorf("%q: %w", e.notification, ErrNotWritable)
	}
	if err := e.m.SetEnum(ctx, notif, "On"); err != nil {
		e.transition(ctx, entry.Symbolic, ChannelDisabled)
		return nil, fmt.Errorf("enable %q: %w", entry.Symbolic, err)
	}
	e.transition(ctx, entry.Symbolic, ChannelEnabled)

	// Event data nodes follow the "Event" + symbolic + "Data" category
	// naming convention. A kind without a data category is still enabled.
	category := e.m.Get("Event" + entry.Symbolic + "Data")
	if category == nil {
		return nil, nil
	}
	var handles []Handle
	for _, feature := range e.m.Features(category) {
		h, err := e.m.Registry().Register(feature, fn, opts...)
		if err != nil {
			continue
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// DisableAll writes "Off" to the notification node for every kind the
// selector offers, returning all kinds to ChannelDisabled. The sweep is
// partial-failure tolerant: every kind is attempted even if one fails, and
// failures are accumulated into a single joined error. Disabling an
// already-disabled kind is an idempotent "Off" write and produces no error.
//
// A missing or inaccessible selector yields nil: there is nothing left to
// disable.
func (e *EventChannels) DisableAll(ctx context.Context) error {
	sel := e.m.Get(e.selector)
	if sel == nil || !e.m.IsReadable(sel) || !e.m.IsWritable(sel) {
		return nil
	}

	var errs []error
	for _, entry := range e.m.Entries(sel) {
		if err := e.m.SetEnumValue(ctx, sel, entry.Value); err != nil {
			errs = append(errs, fmt.Errorf("select %q: %w", entry.Symbolic, err))
			continue
		}
		notif := e.m.Get(e.notification)
		if !e.m.IsReadable(notif) {
			errs = append(errs, fmt.Errorf("%q: %w", e.notification, ErrNotReadable))
			continue
		}
		if _, err := notif.EntryByName("Off"); err != nil {
			errs = append(errs, err)
			continue
		}
		if !e.m.IsWritable(notif) {
			errs = append(errs, fmt.Errorf("%q: %w", e.notification, ErrNotWritable))
			continue
		}
		if err := e.m.SetEnum(ctx, notif, "Off"); err != nil {
			errs = append(errs, fmt.Errorf("disable %q: %w", entry.Symbolic, err))
			continue
		}
		e.transition(ctx, entry.Symbolic, ChannelDisabled)
	}
	return errors.Join(errs...)
}

// transition records a state change and emits the channel signal.
func (e *EventChannels) transition(ctx context.Context, symbolic string, next ChannelState) {
	e.mu.Lock()
	prev := e.states[symbolic]
	if prev == next {
		e.mu.Unlock()
		return
	}
	e.states[symbolic] = next
	e.mu.Unlock()

	capitan.Emit(ctx, ChannelStateChanged,
		KeyMap.Field(e.m.name),
		KeyEvent.Field(symbolic),
		KeyOldState.Field(prev.String()),
		KeyNewState.Field(next.String()),
	)
}

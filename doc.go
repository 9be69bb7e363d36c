// Package nodez provides typed, hierarchical configuration node maps with
// synchronous change callbacks, in the style of machine-vision feature
// registries.
//
// # Node maps
//
// A Map is a keyed collection of typed Nodes — integer, float, boolean,
// string, enumeration, or category — built from a declarative
// MapDefinition (JSON or YAML via a Codec):
//
//	m, err := nodez.LoadMap(data, nodez.YAMLCodec{})
//	height := m.Get("Height")
//	if m.IsWritable(height) {
//	    err = m.SetInt(ctx, height, 1024)
//	}
//
// Readability and writability are computed per call: access rules tie one
// node's access to another node's current selection, so writing an enum
// selector can make an unrelated node read-only.
//
// # Callbacks
//
// Each Map owns a Registry. Registering an observer returns an opaque
// Handle, the sole token for deregistration:
//
//	h, err := m.Registry().Register(height, func(n *nodez.Node) {
//	    v, _ := n.Int()
//	    log.Printf("height changed to %d", v)
//	})
//	defer m.Registry().Deregister(h)
//
// Dispatch is synchronous, in registration order, on the goroutine that
// performed the write. An observer writing to a node triggers nested
// dispatch depth-first. Registration options wrap the observer with
// middleware:
//
//	m.Registry().Register(height, obs,
//	    nodez.WithFilter(func(n *nodez.Node) bool { return m.IsReadable(n) }),
//	    nodez.WithTimeout(time.Second),
//	)
//
// # Event channels
//
// Device and stream events follow the shared selector + notification
// pattern: EventChannels selects each kind on the selector node,
// immediately enables notification, and registers the observer on the
// kind's data nodes. Teardown is a partial-failure tolerant sweep:
//
//	ec := nodez.NewEventChannels(m)
//	handles, err := ec.EnableAll(ctx, onEvent)
//	defer ec.DisableAll(ctx)
//
// # External updates
//
// A Feed applies device-driven update documents from a Watcher (file,
// channel, or custom source) through Map.ApplyExternal, so observers fire
// from the feed goroutine exactly as they do for local writes.
//
// # Observability
//
// Lifecycle and dispatch events are emitted as capitan signals; attach
// hooks to see registrations, writes, dispatch failures, and event channel
// transitions. A MetricsProvider receives dispatch counts and durations.
package nodez

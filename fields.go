package nodez

import "github.com/zoobzio/capitan"

// Field keys for nodez events.
var (
	// KeyMap is the name of the map involved.
	KeyMap = capitan.NewStringKey("map")

	// KeyNode is the name of the node involved.
	KeyNode = capitan.NewStringKey("node")

	// KeyNodeType is the type of the node involved.
	KeyNodeType = capitan.NewStringKey("node_type")

	// KeyValue is the written value rendered as text.
	KeyValue = capitan.NewStringKey("value")

	// KeyHandle is the registration handle identifier.
	KeyHandle = capitan.NewIntKey("handle")

	// KeyReleased is the number of registrations force-released at close.
	KeyReleased = capitan.NewIntKey("released")

	// KeyEvent is the symbolic name of an event kind.
	KeyEvent = capitan.NewStringKey("event")

	// KeyState is the current state of a feed.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")
)

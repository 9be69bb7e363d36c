package nodez

// ChannelState represents the enablement state of one event kind on an
// event channel.
type ChannelState int32

const (
	// ChannelDisabled indicates notification for the event kind is off.
	// This is the initial state and the required terminal state at device
	// release.
	ChannelDisabled ChannelState = iota

	// ChannelSelected indicates the event kind is current on the shared
	// selector but notification has not been enabled yet. The selection is
	// only valid until the selector is written again, so enablement must
	// follow immediately.
	ChannelSelected

	// ChannelEnabled indicates notification for the event kind is on and
	// its event data nodes are live.
	ChannelEnabled
)

// String returns the string representation of the channel state.
func (s ChannelState) String() string {
	switch s {
	case ChannelDisabled:
		return "disabled"
	case ChannelSelected:
		return "selected"
	case ChannelEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

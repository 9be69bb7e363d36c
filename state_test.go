package nodez

import "testing"

func TestChannelState_String(t *testing.T) {
	cases := []struct {
		state ChannelState
		want  string
	}{
		{ChannelDisabled, "disabled"},
		{ChannelSelected, "selected"},
		{ChannelEnabled, "enabled"},
		{ChannelState(99), "unknown"},
	}
	for _, c := range cases {
		if got := c.state.String(); got != c.want {
			t.Errorf("expected %s, got %s", c.want, got)
		}
	}
}

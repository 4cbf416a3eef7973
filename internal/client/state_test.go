package client

import "testing"

func TestNextStateTransitions(t *testing.T) {
	tests := []struct {
		state    State
		event    Event
		expected State
	}{
		{StateDisconnected, EventDialStart, StateConnecting},
		{StateConnecting, EventDialDone, StateAuthenticating},
		{StateAuthenticating, EventAuthOK, StateAuthenticated},
		{StateAuthenticating, EventAuthFail, StateDisconnected},
		{StateAuthenticated, EventLinkDown, StateDisconnected},
		{StateConnecting, EventLinkDown, StateDisconnected},
		{StateAuthenticating, EventLinkDown, StateDisconnected},
		// 未定义的组合保持原状态
		{StateDisconnected, EventAuthOK, StateDisconnected},
		{StateDisconnected, EventDialDone, StateDisconnected},
		{StateAuthenticated, EventDialStart, StateAuthenticated},
		{StateAuthenticated, EventAuthOK, StateAuthenticated},
		{StateDisconnected, EventLinkDown, StateDisconnected},
	}

	for _, tt := range tests {
		got := NextState(tt.state, tt.event)
		if got != tt.expected {
			t.Errorf("NextState(%v, %v) 期望=%v 实际=%v", tt.state, tt.event, tt.expected, got)
		}
	}
}

func TestStateString(t *testing.T) {
	if got := StateAuthenticated.String(); got != "AUTHENTICATED" {
		t.Errorf("State字符串 期望=AUTHENTICATED 实际=%s", got)
	}
	if got := State(99).String(); got != "UNKNOWN(99)" {
		t.Errorf("未知State字符串 期望=UNKNOWN(99) 实际=%s", got)
	}
	if got := EventLinkDown.String(); got != "LINK_DOWN" {
		t.Errorf("Event字符串 期望=LINK_DOWN 实际=%s", got)
	}
}

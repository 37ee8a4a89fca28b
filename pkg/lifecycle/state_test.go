package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStates = []State{
	StateUnknown, StateStarting, StateRunning, StateDraining,
	StateStopped, StateFailed,
}

func TestState_Valid(t *testing.T) {
	for _, s := range allStates {
		assert.True(t, s.Valid(), s)
		assert.Equal(t, string(s), s.String())
	}
	for _, s := range []State{"", "paused", "RUNNING", "stopping"} {
		assert.False(t, s.Valid(), s)
	}
}

func TestState_IsTerminal(t *testing.T) {
	for _, s := range allStates {
		want := s == StateStopped || s == StateFailed
		assert.Equal(t, want, s.IsTerminal(), s)
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateUnknown, StateStarting, true},
		{StateUnknown, StateFailed, true},
		{StateStarting, StateRunning, true},
		{StateStarting, StateDraining, true},
		{StateStarting, StateFailed, true},
		{StateRunning, StateDraining, true},
		{StateRunning, StateFailed, true},
		{StateDraining, StateStopped, true},
		{StateDraining, StateFailed, true},
		{StateStopped, StateStarting, true},
		{StateFailed, StateStarting, true},

		// Running must drain before it stops.
		{StateRunning, StateStopped, false},
		{StateUnknown, StateRunning, false},
		{StateDraining, StateRunning, false},
		{StateStopped, StateRunning, false},
		{StateFailed, StateRunning, false},
		{StateUnknown, StateStopped, false},
		{State("bogus"), StateStarting, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, ValidTransition(tt.from, tt.to))
		})
	}

	for _, s := range allStates {
		assert.False(t, ValidTransition(s, s), "same-state transition %q", s)
	}
}

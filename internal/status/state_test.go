package status

import (
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/freechat/internal/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	empty    State = "EMPTY"
	drafting State = "DRAFTING"
	sending  State = "SENDING"
	sent     State = "SENT"
)

var draftTable = Table{
	empty:    {drafting},
	drafting: {empty, sending},
	sending:  {sent, drafting},
}

func TestTableAllows(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{empty, drafting, true},
		{drafting, sending, true},
		{sending, drafting, true},
		{empty, sending, false},
		{sent, empty, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, draftTable.Allows(tt.from, tt.to))
		})
	}
	assert.True(t, draftTable.Terminal(sent))
	assert.False(t, draftTable.Terminal(empty))
}

func TestRejectedTransitionKeepsState(t *testing.T) {
	m := NewMachine(nil, "compose.state_changed", 3, empty, draftTable)

	err := m.Transition(sent)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, TransitionError{Subject: 3, From: empty, To: sent}, *te)
	assert.Equal(t, "conversation 3: invalid transition EMPTY -> SENT", err.Error())
	assert.Equal(t, empty, m.Current())
}

func TestMachineWalksLifecycle(t *testing.T) {
	m := NewMachine(nil, "compose.state_changed", 1, empty, draftTable)
	for _, to := range []State{drafting, sending, drafting, sending, sent} {
		require.NoError(t, m.Transition(to))
	}
	assert.True(t, m.Is(sent))
	assert.False(t, m.Is(empty, drafting, sending))
}

func TestTransitionEmitsChange(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("compose.", 4)
	defer unsub()

	m := NewMachine(b, "compose.state_changed", 42, empty, draftTable)
	require.NoError(t, m.Transition(drafting))
	require.Error(t, m.Transition(sent))

	select {
	case evt := <-ch:
		assert.Equal(t, "compose.state_changed", evt.Kind)
		assert.Equal(t, StatusChange{Subject: 42, From: empty, To: drafting}, evt.Payload)
	case <-time.After(time.Second):
		t.Fatal("no state change published")
	}
	select {
	case evt := <-ch:
		t.Fatalf("rejected transition published %+v", evt)
	default:
	}
}

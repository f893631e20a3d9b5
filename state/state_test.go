package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockState counts hook calls.
type MockState struct {
	ID     string
	enters int
	exits  int
}

func (m *MockState) OnEnter()      { m.enters++ }
func (m *MockState) OnExit()       { m.exits++ }
func (m *MockState) GetID() string { return m.ID }

// lifecycle builds the connection lifecycle used by sessions:
// connected -> in_room -> closed, with connected -> closed for early leavers.
func lifecycle() (*BaseStateMachine, *MockState, *MockState, *MockState) {
	connected := &MockState{ID: "connected"}
	inRoom := &MockState{ID: "in_room"}
	closed := &MockState{ID: "closed"}

	sm := NewStrictStateMachine(connected)
	sm.AddTransition(connected, inRoom, nil)
	sm.AddTransition(connected, closed, nil)
	sm.AddTransition(inRoom, closed, nil)
	return sm, connected, inRoom, closed
}

func TestStateMachine_InitialStateEntered(t *testing.T) {
	sm, connected, _, _ := lifecycle()
	assert.Equal(t, 1, connected.enters)
	assert.Same(t, connected, sm.GetCurrentState())
}

func TestStateMachine_JoinThenClose(t *testing.T) {
	sm, connected, inRoom, closed := lifecycle()

	require.NoError(t, sm.ChangeState(inRoom))
	assert.Equal(t, 1, connected.exits)
	assert.Equal(t, 1, inRoom.enters)

	require.NoError(t, sm.ChangeState(closed))
	assert.Equal(t, 1, inRoom.exits)
	assert.Equal(t, "closed", sm.GetCurrentState().GetID())
}

func TestStateMachine_NoSecondRoom(t *testing.T) {
	sm, _, inRoom, _ := lifecycle()
	require.NoError(t, sm.ChangeState(inRoom))

	assert.ErrorIs(t, sm.ChangeState(inRoom), ErrTransitionNotAllowed)
	assert.Equal(t, 1, inRoom.enters, "rejected transition must not fire hooks")
}

func TestStateMachine_ClosedIsTerminal(t *testing.T) {
	sm, connected, inRoom, closed := lifecycle()
	require.NoError(t, sm.ChangeState(closed))

	assert.ErrorIs(t, sm.ChangeState(connected), ErrTransitionNotAllowed)
	assert.ErrorIs(t, sm.ChangeState(inRoom), ErrTransitionNotAllowed)
	assert.ErrorIs(t, sm.ChangeState(closed), ErrTransitionNotAllowed)
	assert.Equal(t, 1, closed.enters)
}

func TestStateMachine_ConditionBlocks(t *testing.T) {
	connected := &MockState{ID: "connected"}
	inRoom := &MockState{ID: "in_room"}

	allowed := false
	sm := NewBaseStateMachine(connected)
	sm.AddTransition(connected, inRoom, func() bool { return allowed })

	assert.ErrorIs(t, sm.ChangeState(inRoom), ErrTransitionNotAllowed)
	allowed = true
	assert.NoError(t, sm.ChangeState(inRoom))
}

func TestStateMachine_LenientAllowsUnregistered(t *testing.T) {
	a := &MockState{ID: "a"}
	b := &MockState{ID: "b"}
	sm := NewBaseStateMachine(a)
	assert.NoError(t, sm.ChangeState(b))
}

func TestStateMachine_ConcurrentCloseWinsOnce(t *testing.T) {
	sm, _, inRoom, closed := lifecycle()
	require.NoError(t, sm.ChangeState(inRoom))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sm.ChangeState(closed) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestSimple_Hooks(t *testing.T) {
	var entered, exited int
	a := &Simple{ID: "a", Exit: func() { exited++ }}
	b := &Simple{ID: "b", Enter: func() { entered++ }}

	sm := NewBaseStateMachine(a)
	require.NoError(t, sm.ChangeState(b))
	assert.Equal(t, 1, entered)
	assert.Equal(t, 1, exited)
	assert.Equal(t, "b", b.GetID())
}

package migrate

import "fmt"

const (
	stateIdleStringConstant           = "idle"
	stateDetectingStringConstant      = "detecting"
	stateReadingStringConstant        = "reading"
	stateNormalizingStringConstant    = "normalizing"
	stateResolvingStringConstant      = "resolving"
	stateEmittingStringConstant       = "emitting"
	stateDoneStringConstant           = "done"
	stateFailedStringConstant         = "failed"
	invalidTransitionTemplateConstant = "invalid migration state transition from %s to %s"
)

// State identifies a stage of the migration run.
type State string

// Migration run states. Done and Failed are terminal.
const (
	StateIdle        State = State(stateIdleStringConstant)
	StateDetecting   State = State(stateDetectingStringConstant)
	StateReading     State = State(stateReadingStringConstant)
	StateNormalizing State = State(stateNormalizingStringConstant)
	StateResolving   State = State(stateResolvingStringConstant)
	StateEmitting    State = State(stateEmittingStringConstant)
	StateDone        State = State(stateDoneStringConstant)
	StateFailed      State = State(stateFailedStringConstant)
)

// IsTerminal reports whether the state ends the run.
func (state State) IsTerminal() bool {
	return state == StateDone || state == StateFailed
}

var forwardStateTransitions = map[State]State{
	StateIdle:        StateDetecting,
	StateDetecting:   StateReading,
	StateReading:     StateNormalizing,
	StateNormalizing: StateResolving,
	StateResolving:   StateEmitting,
	StateEmitting:    StateDone,
}

// stateMachine tracks the run through its stages and rejects transitions the
// pipeline does not define.
type stateMachine struct {
	current State
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateIdle}
}

// Current returns the state the run is in.
func (machine *stateMachine) Current() State {
	return machine.current
}

// Advance moves the run to the next pipeline stage.
func (machine *stateMachine) Advance(nextState State) error {
	if forwardStateTransitions[machine.current] != nextState {
		return fmt.Errorf(invalidTransitionTemplateConstant, machine.current, nextState)
	}
	machine.current = nextState
	return nil
}

// Fail moves the run to the failed state from any non-terminal state.
func (machine *stateMachine) Fail() error {
	if machine.current.IsTerminal() {
		return fmt.Errorf(invalidTransitionTemplateConstant, machine.current, StateFailed)
	}
	machine.current = StateFailed
	return nil
}

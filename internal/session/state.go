package session

import "slices"

// State is the lifecycle phase of one narration session.
type State string

const (
	StateIdle         State = "idle"
	StateSynthesizing State = "synthesizing"
	StatePlaying      State = "playing"
	StatePaused       State = "paused"
	StateStopped      State = "stopped"
	StateCompleted    State = "completed"
)

// StateMachine guards session lifecycle transitions. Stopped and Completed
// are terminal; a new utterance gets a fresh machine.
type StateMachine struct {
	currentState State
}

func NewStateMachine() *StateMachine {
	return &StateMachine{
		currentState: StateIdle,
	}
}

func (sm *StateMachine) CanTransition(to State) bool {
	from := sm.currentState

	validTransitions := map[State][]State{
		StateIdle:         {StateSynthesizing, StateStopped},
		StateSynthesizing: {StatePlaying, StatePaused, StateStopped},
		StatePlaying:      {StatePaused, StateSynthesizing, StateCompleted, StateStopped},
		StatePaused:       {StatePlaying, StateSynthesizing, StateStopped},
	}

	validTo, ok := validTransitions[from]
	if !ok {
		return false
	}

	return slices.Contains(validTo, to)
}

func (sm *StateMachine) Transition(to State) bool {
	if sm.CanTransition(to) {
		sm.currentState = to
		return true
	}
	return false
}

func (sm *StateMachine) Current() State {
	return sm.currentState
}

package session

import "time"

type EventType string

const (
	EventTypeStateChanged       EventType = "state_changed"
	EventTypeWordBoundary       EventType = "word_boundary"
	EventTypeUtteranceCompleted EventType = "utterance_completed"
	EventTypeUtteranceFailed    EventType = "utterance_failed"
)

type Event interface {
	Type() EventType
	Timestamp() time.Time
}

type EventHandler func(Event)

type BaseEvent struct {
	eventType EventType
	timestamp time.Time
}

func (e *BaseEvent) Type() EventType {
	return e.eventType
}

func (e *BaseEvent) Timestamp() time.Time {
	return e.timestamp
}

// StateChangedEvent announces a session lifecycle transition.
type StateChangedEvent struct {
	BaseEvent
	UtteranceID string
	OldState    State
	NewState    State
}

func NewStateChangedEvent(utteranceID string, oldState, newState State) *StateChangedEvent {
	return &StateChangedEvent{
		BaseEvent: BaseEvent{
			eventType: EventTypeStateChanged,
			timestamp: time.Now(),
		},
		UtteranceID: utteranceID,
		OldState:    oldState,
		NewState:    newState,
	}
}

// WordBoundary marks the estimated start of one spoken word within an
// utterance. CharOffset is relative to the chunk text the clip was
// synthesized from.
type WordBoundary struct {
	ChunkIndex int
	WordIndex  int
	Word       string
	CharOffset int
	Elapsed    time.Duration
}

type WordBoundaryEvent struct {
	BaseEvent
	UtteranceID string
	Boundary    WordBoundary
}

func NewWordBoundaryEvent(utteranceID string, boundary WordBoundary) *WordBoundaryEvent {
	return &WordBoundaryEvent{
		BaseEvent: BaseEvent{
			eventType: EventTypeWordBoundary,
			timestamp: time.Now(),
		},
		UtteranceID: utteranceID,
		Boundary:    boundary,
	}
}

// UtteranceCompletedEvent fires once when every chunk of an utterance has
// played to the end.
type UtteranceCompletedEvent struct {
	BaseEvent
	UtteranceID string
}

func NewUtteranceCompletedEvent(utteranceID string) *UtteranceCompletedEvent {
	return &UtteranceCompletedEvent{
		BaseEvent: BaseEvent{
			eventType: EventTypeUtteranceCompleted,
			timestamp: time.Now(),
		},
		UtteranceID: utteranceID,
	}
}

// UtteranceFailedEvent fires when an utterance is abandoned because a chunk
// could not be synthesized or decoded.
type UtteranceFailedEvent struct {
	BaseEvent
	UtteranceID string
	ChunkIndex  int
	Err         error
}

func NewUtteranceFailedEvent(utteranceID string, chunkIndex int, err error) *UtteranceFailedEvent {
	return &UtteranceFailedEvent{
		BaseEvent: BaseEvent{
			eventType: EventTypeUtteranceFailed,
			timestamp: time.Now(),
		},
		UtteranceID: utteranceID,
		ChunkIndex:  chunkIndex,
		Err:         err,
	}
}

package session

import (
	"sync"
)

// EventBus decouples session progress from its observers. Handlers run on
// their own goroutines so a slow subscriber cannot stall playback.
type EventBus interface {
	Publish(event Event)
	Subscribe(eventType EventType, handler EventHandler)
}

type eventBus struct {
	subscribers map[EventType][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() EventBus {
	return &eventBus{
		subscribers: make(map[EventType][]EventHandler),
	}
}

func (eb *eventBus) Publish(event Event) {
	eb.mu.RLock()
	handlers, ok := eb.subscribers[event.Type()]
	eb.mu.RUnlock()

	if ok {
		for _, handler := range handlers {
			go handler(event)
		}
	}
}

func (eb *eventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], handler)
}

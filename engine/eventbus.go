package engine

import (
	"slices"
	"sync"
	"time"
)

type EventType int

type SubscriberID int

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type handler struct {
	id SubscriberID
	fn func(Event)
}

// EventBus delivers each event synchronously to the handlers registered for
// its type, in registration order. Handlers run on the emitting goroutine,
// after the emitting transaction has committed.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]handler
	nextID   SubscriberID
}

func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[EventType][]handler)}
}

// SubscribeTypes registers fn for every listed type under a single id.
func (eb *EventBus) SubscribeTypes(fn func(Event), types ...EventType) SubscriberID {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	for _, t := range types {
		eb.handlers[t] = append(eb.handlers[t], handler{id: eb.nextID, fn: fn})
	}
	return eb.nextID
}

// On registers fn for events of the listed types whose payload is a T.
// Events carrying any other payload are skipped.
func On[T any](eb *EventBus, fn func(T), types ...EventType) SubscriberID {
	return eb.SubscribeTypes(func(evt Event) {
		if p, ok := evt.Payload.(T); ok {
			fn(p)
		}
	}, types...)
}

// Unsubscribe removes every registration made under the given ids.
func (eb *EventBus) Unsubscribe(ids ...SubscriberID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for t, hs := range eb.handlers {
		hs = slices.DeleteFunc(slices.Clone(hs), func(h handler) bool {
			return slices.Contains(ids, h.id)
		})
		if len(hs) == 0 {
			delete(eb.handlers, t)
		} else {
			eb.handlers[t] = hs
		}
	}
}

func (eb *EventBus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	eb.mu.RLock()
	hs := slices.Clone(eb.handlers[evt.Type])
	eb.mu.RUnlock()

	for _, h := range hs {
		h.fn(evt)
	}
}

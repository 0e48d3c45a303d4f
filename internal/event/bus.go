package event

import (
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Handler is a function that handles an event.
type Handler func(Event)

type subscription struct {
	id        string
	eventType string
	handler   Handler
}

// Bus is a synchronous pub-sub bus. Handlers run on the publisher's goroutine
// in registration order, specific handlers before wildcard handlers.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription
	nextID        atomic.Uint64
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscriptions: make(map[string][]subscription),
	}
}

// Subscribe registers a handler for one event type and returns its subscription id.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := "sub-" + strconv.FormatUint(b.nextID.Add(1), 10)
	b.subscriptions[eventType] = append(b.subscriptions[eventType], subscription{
		id:        id,
		eventType: eventType,
		handler:   handler,
	})
	return id
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(Wildcard, handler)
}

// Unsubscribe removes a subscription by id. Returns false if it was not found.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				next := make([]subscription, 0, len(subs)-1)
				next = append(next, subs[:i]...)
				next = append(next, subs[i+1:]...)
				b.subscriptions[eventType] = next
				return true
			}
		}
	}
	return false
}

// Channel subscribes a buffered channel to every event. Sends never block the
// publisher; a full channel drops the event. The returned func unsubscribes
// and closes the channel.
func (b *Bus) Channel(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	var closed atomic.Bool
	var mu sync.Mutex

	id := b.SubscribeAll(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed.Load() {
			return
		}
		select {
		case ch <- e:
		default:
			logger.WithComponent("event-bus").Warn().
				Str("event", e.EventType()).
				Msg("Subscriber channel full, dropping event")
		}
	})

	cancel := func() {
		b.Unsubscribe(id)
		mu.Lock()
		defer mu.Unlock()
		if closed.CompareAndSwap(false, true) {
			close(ch)
		}
	}
	return ch, cancel
}

// Publish dispatches an event to all registered handlers. A panicking handler
// is logged and skipped.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	eventType := event.EventType()

	specific := make([]subscription, len(b.subscriptions[eventType]))
	copy(specific, b.subscriptions[eventType])

	wildcard := make([]subscription, len(b.subscriptions[Wildcard]))
	copy(wildcard, b.subscriptions[Wildcard])
	b.mu.RUnlock()

	for _, sub := range specific {
		b.safeCall(sub.handler, event)
	}
	for _, sub := range wildcard {
		b.safeCall(sub.handler, event)
	}
}

func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithComponent("event-bus").Error().
				Str("event", event.EventType()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Event handler panicked")
		}
	}()
	handler(event)
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subscriptions {
		count += len(subs)
	}
	return count
}

// Package bus provides an in-process publish/subscribe channel for
// loosely coupled signaling between application components.
package bus

import (
	"log/slog"
	"sync"
)

// Handler is a callback invoked with the payload of a published event.
type Handler func(payload any)

// Subscription is an opaque token returned by Subscribe and accepted by
// Unsubscribe. A zero or nil Subscription is never registered.
type Subscription struct {
	topic string
	id    uint64
}

type entry struct {
	id uint64
	fn Handler
}

// Bus delivers events synchronously to all handlers registered for a topic,
// in registration order, on the publishing goroutine. The bus keeps no
// history: a handler registered after a publish never sees that event.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	topics map[string][]entry
	logger *slog.Logger
}

// New creates an empty Bus. Handler panics are logged through the given logger.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		topics: make(map[string][]entry),
		logger: logger.With("component", "bus"),
	}
}

// Subscribe registers a handler for a topic and returns its token.
func (b *Bus) Subscribe(topic string, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.topics[topic] = append(b.topics[topic], entry{id: b.nextID, fn: fn})
	return &Subscription{topic: topic, id: b.nextID}
}

// Unsubscribe removes a previously registered handler. Unsubscribing a nil
// token, a token twice, or a token that was never registered is a no-op.
// After Unsubscribe returns, the handler is not invoked by later publishes.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.topics[sub.topic]
	for i, e := range entries {
		if e.id == sub.id {
			b.topics[sub.topic] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(b.topics[sub.topic]) == 0 {
		delete(b.topics, sub.topic)
	}
}

// Publish delivers payload to every handler currently registered for topic
// before returning. Publishing on a topic with no handlers is a no-op.
// A panicking handler does not prevent delivery to the remaining handlers.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	entries := b.topics[topic]
	handlers := make([]Handler, len(entries))
	for i, e := range entries {
		handlers[i] = e.fn
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		b.dispatch(topic, fn, payload)
	}
}

// dispatch invokes a single handler, isolating its panics.
func (b *Bus) dispatch(topic string, fn Handler, payload any) {
	defer func() {
		if rvr := recover(); rvr != nil {
			b.logger.Error("handler panic recovered", "topic", topic, "panic", rvr)
		}
	}()
	fn(payload)
}

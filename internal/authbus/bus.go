// Package authbus is the in-process publish/subscribe channel that decouples
// the HTTP layer from UI state: the transport announces "logout" without
// knowing who listens.
package authbus

import (
	"sync"

	"go.uber.org/zap"
)

// Event kinds broadcast on the bus.
const KindLogout = "logout"

// Event is an ephemeral auth notification. It is not persisted and may reach
// zero or many subscribers.
type Event struct {
	Kind    string
	Payload any
}

// Handler receives every emitted event.
type Handler func(Event)

// Bus fans events out synchronously to subscribers in subscription order, on
// the emitter's goroutine. No queuing: a slow subscriber delays the emitter.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
	logger *zap.Logger
}

type subscription struct {
	id int
	fn Handler
}

// New creates a bus. A nil logger is replaced with a no-op one.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribing during an in-progress Emit does not affect that emission's
// remaining handler invocations.
func (b *Bus) Subscribe(fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit invokes every currently-subscribed handler with the event. A handler
// that panics does not prevent the remaining handlers from running.
func (b *Bus) Emit(kind string, payload any) {
	b.mu.Lock()
	snapshot := make([]subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	ev := Event{Kind: kind, Payload: payload}
	for _, s := range snapshot {
		b.call(s, ev)
	}
}

func (b *Bus) call(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("auth event handler panic",
				zap.Any("reason", r),
				zap.String("kind", ev.Kind),
			)
		}
	}()
	s.fn(ev)
}

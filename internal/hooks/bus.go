// Package hooks provides the refresh registry shared by the payment flow and
// the live metrics widget.
//
// Components that can be poked from elsewhere register a callback under a
// Topic and unregister it when they shut down. Callers trigger topics without
// knowing who, if anyone, is listening.
package hooks

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Topic names a hook.
type Topic string

// RefetchActiveSubscriptions forces an immediate re-fetch of the active
// subscriptions metric. The payment-success callback triggers it.
const RefetchActiveSubscriptions Topic = "refetch-active-subscriptions"

// Bus maps topics to registered callbacks.
type Bus struct {
	logger *slog.Logger

	mu    sync.RWMutex
	hooks map[Topic]map[uuid.UUID]func()
}

// NewBus creates an empty Bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger,
		hooks:  make(map[Topic]map[uuid.UUID]func()),
	}
}

// Registration is a handle to one registered callback.
type Registration struct {
	ID    uuid.UUID
	Topic Topic

	bus *Bus
}

// Unregister removes the callback. Safe to call more than once, and on the
// zero Registration.
func (r Registration) Unregister() {
	if r.bus == nil {
		return
	}
	r.bus.mu.Lock()
	defer r.bus.mu.Unlock()

	hooks := r.bus.hooks[r.Topic]
	delete(hooks, r.ID)
	if len(hooks) == 0 {
		delete(r.bus.hooks, r.Topic)
	}
}

// Register adds fn under topic.
func (b *Bus) Register(topic Topic, fn func()) Registration {
	id := uuid.New()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hooks[topic] == nil {
		b.hooks[topic] = make(map[uuid.UUID]func())
	}
	b.hooks[topic][id] = fn

	b.logger.Debug("hook registered", "topic", topic, "id", id)
	return Registration{ID: id, Topic: topic, bus: b}
}

// Trigger invokes every callback registered under topic. With nothing
// registered it does nothing. A panicking callback is logged and does not
// stop the others.
func (b *Bus) Trigger(topic Topic) {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.hooks[topic]))
	for _, fn := range b.hooks[topic] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	if len(fns) == 0 {
		b.logger.Debug("hook triggered with no listeners", "topic", topic)
		return
	}

	for _, fn := range fns {
		b.invoke(topic, fn)
	}
}

// Registered returns the number of callbacks under topic.
func (b *Bus) Registered(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.hooks[topic])
}

func (b *Bus) invoke(topic Topic, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("hook panicked", "topic", topic, "panic", r)
		}
	}()
	fn()
}

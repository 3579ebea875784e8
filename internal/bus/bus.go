// Package bus is the engine's in-process event bus. Components announce
// what happened (selection changed, edit committed, element removed) and
// interested parties subscribe by event name. Handlers run synchronously in
// emit order; a panicking handler is isolated and logged so one misbehaving
// subscriber cannot take down the dispatch.
package bus

import (
	"log/slog"
	"sync"
)

// Handler receives an emitted event payload.
type Handler func(payload any)

// Bus is a named-event dispatcher. Safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	handlers map[string]map[int]Handler
	nextID   int
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:   logger,
		handlers: make(map[string]map[int]Handler),
	}
}

// On subscribes a handler to an event name and returns an unsubscribe
// function. Unsubscribing twice is safe.
func (b *Bus) On(event string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.handlers[event][id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[event], id)
	}
}

// Emit dispatches an event to every subscriber, synchronously, in
// subscription order. Panics in handlers are recovered and logged.
func (b *Bus) Emit(event string, payload any) {
	b.mu.RLock()
	subs := make([]Handler, 0, len(b.handlers[event]))
	ids := make([]int, 0, len(b.handlers[event]))
	for id := range b.handlers[event] {
		ids = append(ids, id)
	}
	// Map order is random; dispatch in subscription order.
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	for _, id := range ids {
		subs = append(subs, b.handlers[event][id])
	}
	b.mu.RUnlock()

	for _, h := range subs {
		b.dispatch(event, h, payload)
	}
}

func (b *Bus) dispatch(event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus: handler panicked", "event", event, "panic", r)
		}
	}()
	h(payload)
}

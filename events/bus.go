// Package events provides the synchronous publish/subscribe bus that carries
// data change notifications.
package events

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Well-known event names published by data objects.
const (
	Load   = "load"   // Values holds the applied map.
	Update = "update" // Property and Value hold the write.
)

// PropertyUpdate returns the name-scoped update event ("update.<name>").
func PropertyUpdate(name string) string { return Update + "." + name }

// Event represents a published event.
type Event struct {
	// Name is the event name (e.g., "load", "update", "update.title").
	Name string

	// Property is the property written by an update event.
	Property string

	// Value is the new value of Property, in its external representation.
	Value any

	// Values contains the full input map of a load event.
	Values map[string]any
}

// Handler is a function that processes an event.
type Handler func(event Event) error

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event.
// The handler will be called whenever the event is published.
// Supports wildcard subscriptions:
//   - "update.title" - exact match
//   - "update.*" - all name-scoped update events
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Publish emits an event to all matching handlers.
// Handlers are called synchronously in registration order.
// If any handler returns an error, publishing continues but errors are logged.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	matched := b.match(event.Name)
	b.mu.RUnlock()

	b.logger.Debug().
		Str("event", event.Name).
		Str("property", event.Property).
		Int("handlers", len(matched)).
		Msg("event emitted")

	for _, handler := range matched {
		if err := handler(event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// Notify publishes event; it lets a Bus serve as a data notifier.
func (b *Bus) Notify(event Event) { b.Publish(event) }

// HasSubscribers checks if any handlers are registered for an event.
func (b *Bus) HasSubscribers(event string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.match(event)) > 0
}

// match collects handlers for name: exact, then prefix wildcard, then global.
// Callers hold b.mu.
func (b *Bus) match(name string) []Handler {
	var matched []Handler
	matched = append(matched, b.handlers[name]...)
	if i := strings.IndexByte(name, '.'); i > 0 {
		matched = append(matched, b.handlers[name[:i]+".*"]...)
	}
	if name != "*" {
		matched = append(matched, b.handlers["*"]...)
	}
	return matched
}

package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/storefront-client/internal/domain"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryDispatcher invokes handlers synchronously, in subscription order,
// on the publisher's goroutine. Handler errors never block later handlers:
// a session-invalidated event must reach every listener even if one fails.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
	}
}

// Publish synchronously invokes handlers for the given event.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// NewSessionInvalidated builds the canonical invalidation event.
func NewSessionInvalidated(cause InvalidationCause) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      EventSessionInvalidated,
		Timestamp: time.Now(),
		Payload:   SessionInvalidatedPayload{Cause: cause},
	}
}

// NewSessionVerified builds the event emitted after a successful check.
func NewSessionVerified(identity domain.Identity, path string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      EventSessionVerified,
		Timestamp: time.Now(),
		Payload:   SessionVerifiedPayload{Identity: identity, Path: path},
	}
}

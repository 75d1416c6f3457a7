package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// RecordingHandler is a shared.EventHandler that keeps what it receives.
type RecordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewRecordingHandler subscribes to eventTypes.
func NewRecordingHandler(eventTypes ...string) *RecordingHandler {
	return &RecordingHandler{eventTypes: eventTypes}
}

// EventTypes returns the event types this handler subscribes to.
func (h *RecordingHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records the event and returns the configured error.
func (h *RecordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Handled returns a copy of the recorded events.
func (h *RecordingHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

// Types returns the recorded event types in order.
func (h *RecordingHandler) Types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	types := make([]string, len(h.handled))
	for i, evt := range h.handled {
		types[i] = evt.EventType()
	}
	return types
}

// HandledCount returns the number of recorded events.
func (h *RecordingHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// SetError makes later Handle calls fail with err.
func (h *RecordingHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Reset clears recorded events and the configured error.
func (h *RecordingHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = nil
	h.err = nil
}

// RecordingPublisher is a shared.EventPublisher that keeps published events.
type RecordingPublisher struct {
	RecordingHandler
}

// Publish records events in order.
func (p *RecordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, evt := range events {
		if err := p.Handle(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// TestEvent is a minimal domain event.
type TestEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

// NewTestEvent creates an event of eventType on a fresh aggregate.
func NewTestEvent(eventType string) *TestEvent {
	return &TestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test-data",
	}
}

var (
	_ shared.EventHandler   = (*RecordingHandler)(nil)
	_ shared.EventPublisher = (*RecordingPublisher)(nil)
)

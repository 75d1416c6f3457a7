package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
)

// Envelope is the wire format of events leaving the process
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps evt; the payload is the event's own JSON encoding
func NewEnvelope(evt shared.DomainEvent, producer, correlationID string) (*Envelope, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", evt.EventType(), err)
	}

	version := 1
	if v, ok := evt.(shared.VersionedEvent); ok {
		version = v.SchemaVersion()
	}

	return &Envelope{
		EventID:       evt.EventID().String(),
		EventType:     evt.EventType(),
		EventVersion:  version,
		OccurredAt:    evt.OccurredAt().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		AggregateType: evt.AggregateType(),
		AggregateID:   evt.AggregateID().String(),
		Payload:       payload,
	}, nil
}

package catalog

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// AggregateTypeProductMedia is the aggregate type for product media
const AggregateTypeProductMedia = "ProductMedia"

// Media event types
const (
	EventTypeMediaCreated   = "ProductMediaCreated"
	EventTypeMediaConfirmed = "ProductMediaConfirmed"
	EventTypeMediaDeleted   = "ProductMediaDeleted"
)

// MediaEvent is raised on every lifecycle change of a media item
type MediaEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID   `json:"product_id"`
	StorageKey string      `json:"storage_key"`
	Status     MediaStatus `json:"status"`
}

// NewMediaEvent creates a media lifecycle event of the given type
func NewMediaEvent(eventType string, m *ProductMedia) *MediaEvent {
	return &MediaEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeProductMedia, m.ID),
		ProductID:       m.ProductID,
		StorageKey:      m.StorageKey,
		Status:          m.Status,
	}
}

package catalog

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCategory = "Category"

// Event type constants
const (
	EventTypeCategoryCreated = "CategoryCreated"
	EventTypeCategoryUpdated = "CategoryUpdated"
)

// CategoryCreatedEvent is published when a new category is created
type CategoryCreatedEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID  `json:"category_id"`
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
}

// NewCategoryCreatedEvent creates a new CategoryCreatedEvent
func NewCategoryCreatedEvent(category *Category) *CategoryCreatedEvent {
	return &CategoryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryCreated, AggregateTypeCategory, category.ID),
		CategoryID:      category.ID,
		Name:            category.Name,
		Slug:            category.Slug,
		ParentID:        category.ParentID,
	}
}

// CategoryUpdatedEvent is published when a category is renamed or moved
type CategoryUpdatedEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID  `json:"category_id"`
	Name       string     `json:"name"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
}

// NewCategoryUpdatedEvent creates a new CategoryUpdatedEvent
func NewCategoryUpdatedEvent(category *Category) *CategoryUpdatedEvent {
	return &CategoryUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryUpdated, AggregateTypeCategory, category.ID),
		CategoryID:      category.ID,
		Name:            category.Name,
		ParentID:        category.ParentID,
	}
}

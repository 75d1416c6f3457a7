package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Category groups products into a browsable tree
type Category struct {
	shared.BaseAggregateRoot
	Name        string
	Slug        string
	Description string
	Icon        string
	ParentID    *uuid.UUID
	SortOrder   int
	IsActive    bool
}

// NewCategory creates a new active category; parentID nil makes it a root
func NewCategory(name string, parentID *uuid.UUID) (*Category, error) {
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}

	category := &Category{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Slug:              Slugify(name),
		ParentID:          parentID,
		IsActive:          true,
	}
	if category.Slug == "" {
		return nil, shared.NewDomainError("INVALID_SLUG", "Category name must contain letters or digits")
	}
	if parentID != nil && *parentID == category.ID {
		return nil, shared.NewDomainError("CATEGORY_CYCLE", "A category cannot be its own parent")
	}

	category.AddDomainEvent(NewCategoryCreatedEvent(category))

	return category, nil
}

// Update updates the category's descriptive fields
func (c *Category) Update(name, description, icon string) error {
	if err := validateCategoryName(name); err != nil {
		return err
	}
	if len(icon) > 255 {
		return shared.NewDomainError("INVALID_ICON", "Icon cannot exceed 255 characters")
	}

	c.Name = strings.TrimSpace(name)
	c.Description = description
	c.Icon = icon
	c.touch()

	c.AddDomainEvent(NewCategoryUpdatedEvent(c))

	return nil
}

// SetSlug overrides the generated slug
func (c *Category) SetSlug(slug string) error {
	slug = Slugify(slug)
	if slug == "" {
		return shared.NewDomainError("INVALID_SLUG", "Slug must contain letters or digits")
	}
	c.Slug = slug
	c.touch()
	return nil
}

// MoveTo reparents the category. all must contain every category so the
// move can be checked for cycles.
func (c *Category) MoveTo(parentID *uuid.UUID, all []Category) error {
	if parentID != nil {
		if *parentID == c.ID {
			return shared.NewDomainError("CATEGORY_CYCLE", "A category cannot be its own parent")
		}
		if IsDescendant(all, *parentID, c.ID) {
			return shared.NewDomainError("CATEGORY_CYCLE", "Cannot move a category under one of its descendants")
		}
	}
	c.ParentID = parentID
	c.touch()
	c.AddDomainEvent(NewCategoryUpdatedEvent(c))
	return nil
}

// SetSortOrder sets the display order among siblings
func (c *Category) SetSortOrder(order int) {
	c.SortOrder = order
	c.touch()
}

// Activate shows the category in the storefront
func (c *Category) Activate() {
	c.IsActive = true
	c.touch()
}

// Deactivate hides the category from the storefront
func (c *Category) Deactivate() {
	c.IsActive = false
	c.touch()
}

// IsRoot returns true if the category has no parent
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

func (c *Category) touch() {
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

func validateCategoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot exceed 100 characters")
	}
	return nil
}

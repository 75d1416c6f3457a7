package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategory(t *testing.T) {
	t.Run("creates active root category", func(t *testing.T) {
		c, err := NewCategory("Home & Kitchen", nil)
		require.NoError(t, err)
		assert.Equal(t, "Home & Kitchen", c.Name)
		assert.Equal(t, "home-kitchen", c.Slug)
		assert.True(t, c.IsActive)
		assert.True(t, c.IsRoot())

		events := c.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeCategoryCreated, events[0].EventType())
	})

	t.Run("creates child category", func(t *testing.T) {
		parent := uuid.New()
		c, err := NewCategory("Cookware", &parent)
		require.NoError(t, err)
		assert.False(t, c.IsRoot())
		assert.Equal(t, parent, *c.ParentID)
	})

	tests := []struct {
		name    string
		input   string
		errCode string
	}{
		{"empty name", "", "INVALID_NAME"},
		{"punctuation only", "!!!", "INVALID_SLUG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCategory(tt.input, nil)
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.errCode, de.Code)
		})
	}
}

func TestCategory_MoveTo(t *testing.T) {
	root, _ := NewCategory("Root", nil)
	child, _ := NewCategory("Child", &root.ID)
	grandchild, _ := NewCategory("Grandchild", &child.ID)
	other, _ := NewCategory("Other", nil)
	all := []Category{*root, *child, *grandchild, *other}

	t.Run("moves under an unrelated category", func(t *testing.T) {
		c := *child
		require.NoError(t, c.MoveTo(&other.ID, all))
		assert.Equal(t, other.ID, *c.ParentID)
	})

	t.Run("moves to root", func(t *testing.T) {
		c := *grandchild
		require.NoError(t, c.MoveTo(nil, all))
		assert.True(t, c.IsRoot())
	})

	t.Run("rejects itself as parent", func(t *testing.T) {
		c := *child
		err := c.MoveTo(&child.ID, all)
		assert.ErrorIs(t, err, ErrCategoryCycle)
	})

	t.Run("rejects a descendant as parent", func(t *testing.T) {
		c := *root
		err := c.MoveTo(&grandchild.ID, all)
		assert.ErrorIs(t, err, ErrCategoryCycle)
		assert.Nil(t, c.ParentID)
	})
}

func TestCategory_Update(t *testing.T) {
	c, err := NewCategory("Toys", nil)
	require.NoError(t, err)
	c.ClearDomainEvents()

	require.NoError(t, c.Update("Toys & Games", "Fun things", "puzzle"))
	assert.Equal(t, "Toys & Games", c.Name)
	assert.Equal(t, "toys", c.Slug, "slug is not regenerated on rename")
	assert.Equal(t, "puzzle", c.Icon)
	assert.Len(t, c.GetDomainEvents(), 1)

	require.NoError(t, c.SetSlug("Toys and Games"))
	assert.Equal(t, "toys-and-games", c.Slug)
}

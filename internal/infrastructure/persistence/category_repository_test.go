package persistence

import (
	"context"
	"testing"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCategoryRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCategoryRepository(db)
	ctx := context.Background()

	apparel, err := catalog.NewCategory("Apparel", nil)
	require.NoError(t, err)
	shirts, err := catalog.NewCategory("Shirts", &apparel.ID)
	require.NoError(t, err)
	kitchen, err := catalog.NewCategory("Kitchen", nil)
	require.NoError(t, err)
	kitchen.SetSortOrder(-1)
	kitchen.Deactivate()

	for _, c := range []*catalog.Category{apparel, shirts, kitchen} {
		require.NoError(t, repo.Save(ctx, c))
	}

	t.Run("lists by sort order then name", func(t *testing.T) {
		all, err := repo.FindAll(ctx, false)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Kitchen", all[0].Name)
		assert.Equal(t, "Apparel", all[1].Name)

		active, err := repo.FindAll(ctx, true)
		require.NoError(t, err)
		assert.Len(t, active, 2)
	})

	t.Run("children and slugs", func(t *testing.T) {
		has, err := repo.HasChildren(ctx, apparel.ID)
		require.NoError(t, err)
		assert.True(t, has)

		found, err := repo.FindBySlug(ctx, "shirts")
		require.NoError(t, err)
		assert.Equal(t, &apparel.ID, found.ParentID)

		taken, err := repo.ExistsBySlug(ctx, "apparel", &apparel.ID)
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, shirts.ID))
		_, err := repo.FindByID(ctx, shirts.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

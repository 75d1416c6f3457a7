package catalog

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatCategory(name string, parent *uuid.UUID, sortOrder int) Category {
	c := Category{Name: name, Slug: Slugify(name), ParentID: parent, SortOrder: sortOrder, IsActive: true}
	c.ID = uuid.New()
	return c
}

// randomForest builds n categories where each one points at a random earlier category or none
func randomForest(r *rand.Rand, n int) []Category {
	out := make([]Category, 0, n)
	for i := 0; i < n; i++ {
		var parent *uuid.UUID
		if i > 0 && r.Intn(4) != 0 {
			id := out[r.Intn(i)].ID
			parent = &id
		}
		out = append(out, flatCategory(fmt.Sprintf("cat-%d", i), parent, r.Intn(5)))
	}
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func assertParentLinks(t *testing.T, nodes []*CategoryNode) {
	t.Helper()
	for _, n := range nodes {
		for _, child := range n.Children {
			require.NotNil(t, child.ParentID)
			assert.Equal(t, n.ID, *child.ParentID)
		}
		assertParentLinks(t, n.Children)
	}
}

func TestBuildHierarchy_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		flat := randomForest(r, 1+r.Intn(60))

		roots, err := BuildHierarchy(flat)
		require.NoError(t, err)

		assertParentLinks(t, roots)
		total, err := CountNodes(roots)
		require.NoError(t, err)
		assert.Equal(t, len(flat), total)
	}
}

func TestBuildHierarchy(t *testing.T) {
	t.Run("nests and sorts children", func(t *testing.T) {
		root := flatCategory("Clothing", nil, 0)
		b := flatCategory("Shirts", &root.ID, 2)
		a := flatCategory("Jeans", &root.ID, 1)
		c := flatCategory("Accessories", &root.ID, 2)

		roots, err := BuildHierarchy([]Category{b, a, c, root})
		require.NoError(t, err)
		require.Len(t, roots, 1)
		require.Len(t, roots[0].Children, 3)
		assert.Equal(t, "Jeans", roots[0].Children[0].Name)
		assert.Equal(t, "Accessories", roots[0].Children[1].Name)
		assert.Equal(t, "Shirts", roots[0].Children[2].Name)
	})

	t.Run("orphans become roots", func(t *testing.T) {
		missing := uuid.New()
		orphan := flatCategory("Orphan", &missing, 0)
		roots, err := BuildHierarchy([]Category{orphan})
		require.NoError(t, err)
		require.Len(t, roots, 1)
		assert.Equal(t, orphan.ID, roots[0].ID)
	})

	t.Run("empty input", func(t *testing.T) {
		roots, err := BuildHierarchy(nil)
		require.NoError(t, err)
		assert.Empty(t, roots)
	})

	t.Run("deep chain", func(t *testing.T) {
		const levels = 500
		flat := make([]Category, 0, levels)
		var parent *uuid.UUID
		for i := 0; i < levels; i++ {
			c := flatCategory(fmt.Sprintf("level-%d", i), parent, 0)
			flat = append(flat, c)
			id := c.ID
			parent = &id
		}
		roots, err := BuildHierarchy(flat)
		require.NoError(t, err)
		require.Len(t, roots, 1)

		n, err := CountDescendants(roots[0])
		require.NoError(t, err)
		assert.Equal(t, levels-1, n)

		deepest, err := FindNode(roots, flat[levels-1].ID)
		require.NoError(t, err)
		require.NotNil(t, deepest)
		assert.Equal(t, "level-499", deepest.Name)

		ids, err := DescendantIDs(roots[0])
		require.NoError(t, err)
		assert.Equal(t, flat[0].ID, ids[0])
		assert.Equal(t, flat[levels-1].ID, ids[levels-1])
	})

	t.Run("rejects parent cycle", func(t *testing.T) {
		a := flatCategory("A", nil, 0)
		b := flatCategory("B", &a.ID, 0)
		a.ParentID = &b.ID
		ok := flatCategory("Fine", nil, 0)

		_, err := BuildHierarchy([]Category{a, b, ok})
		assert.ErrorIs(t, err, ErrCategoryCycle)
	})

	t.Run("rejects self parent", func(t *testing.T) {
		a := flatCategory("A", nil, 0)
		a.ParentID = &a.ID
		_, err := BuildHierarchy([]Category{a})
		assert.ErrorIs(t, err, ErrCategoryCycle)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		a := flatCategory("A", nil, 0)
		_, err := BuildHierarchy([]Category{a, a})
		assert.Error(t, err)
	})
}

func TestEnsureHierarchy(t *testing.T) {
	root := flatCategory("Root", nil, 0)
	child := flatCategory("Child", &root.ID, 0)

	t.Run("builds flat nodes", func(t *testing.T) {
		nodes := []*CategoryNode{NewCategoryNode(&child), NewCategoryNode(&root)}
		roots, err := EnsureHierarchy(nodes)
		require.NoError(t, err)
		require.Len(t, roots, 1)
		assert.Equal(t, root.ID, roots[0].ID)
		require.Len(t, roots[0].Children, 1)
	})

	t.Run("returns nested input as is", func(t *testing.T) {
		r := NewCategoryNode(&root)
		r.Children = append(r.Children, NewCategoryNode(&child))
		nested := []*CategoryNode{r}
		out, err := EnsureHierarchy(nested)
		require.NoError(t, err)
		assert.Same(t, r, out[0])
	})
}

func TestFindNodeAndDescendants(t *testing.T) {
	root := flatCategory("Root", nil, 0)
	a := flatCategory("A", &root.ID, 0)
	b := flatCategory("B", &root.ID, 1)
	a1 := flatCategory("A1", &a.ID, 0)
	a2 := flatCategory("A2", &a.ID, 1)
	other := flatCategory("Other", nil, 1)

	roots, err := BuildHierarchy([]Category{root, a, b, a1, a2, other})
	require.NoError(t, err)

	node, err := FindNode(roots, a.ID)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "A", node.Name)

	n, err := CountDescendants(node)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = CountDescendants(roots[0])
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	ids, err := DescendantIDs(node)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, a1.ID, a2.ID}, ids)

	missing, err := FindNode(roots, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTreeWalk_GuardsAgainstCycles(t *testing.T) {
	a := &CategoryNode{ID: uuid.New(), Name: "A"}
	b := &CategoryNode{ID: uuid.New(), Name: "B"}
	a.Children = []*CategoryNode{b}
	b.Children = []*CategoryNode{a}

	_, err := CountDescendants(a)
	assert.ErrorIs(t, err, ErrCategoryCycle)

	_, err = FindNode([]*CategoryNode{a}, uuid.New())
	assert.ErrorIs(t, err, ErrCategoryCycle)
}

func TestIsDescendant(t *testing.T) {
	root := flatCategory("Root", nil, 0)
	child := flatCategory("Child", &root.ID, 0)
	leaf := flatCategory("Leaf", &child.ID, 0)
	all := []Category{root, child, leaf}

	assert.True(t, IsDescendant(all, leaf.ID, root.ID))
	assert.True(t, IsDescendant(all, child.ID, root.ID))
	assert.False(t, IsDescendant(all, root.ID, leaf.ID))
	assert.False(t, IsDescendant(all, uuid.New(), root.ID))

	x := flatCategory("X", nil, 0)
	y := flatCategory("Y", &x.ID, 0)
	x.ParentID = &y.ID
	assert.False(t, IsDescendant([]Category{x, y}, x.ID, uuid.New()), "terminates on cycles")
}

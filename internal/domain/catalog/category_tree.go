package catalog

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// CategoryNode is a category with its children attached
type CategoryNode struct {
	ID        uuid.UUID       `json:"id"`
	ParentID  *uuid.UUID      `json:"parent_id,omitempty"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Icon      string          `json:"icon,omitempty"`
	SortOrder int             `json:"sort_order"`
	IsActive  bool            `json:"is_active"`
	Children  []*CategoryNode `json:"children"`
}

// NewCategoryNode creates a childless node from a category
func NewCategoryNode(c *Category) *CategoryNode {
	return &CategoryNode{
		ID:        c.ID,
		ParentID:  c.ParentID,
		Name:      c.Name,
		Slug:      c.Slug,
		Icon:      c.Icon,
		SortOrder: c.SortOrder,
		IsActive:  c.IsActive,
		Children:  make([]*CategoryNode, 0),
	}
}

// ErrCategoryCycle is returned when parent references loop back on themselves
var ErrCategoryCycle = shared.NewDomainError("CATEGORY_CYCLE", "Category hierarchy contains a cycle")

// BuildHierarchy attaches every category to its parent and returns the roots.
// Categories whose parent is missing from the list become roots.
// Input containing a parent cycle or duplicate IDs is rejected.
func BuildHierarchy(categories []Category) ([]*CategoryNode, error) {
	nodes := make(map[uuid.UUID]*CategoryNode, len(categories))
	order := make([]uuid.UUID, 0, len(categories))
	for i := range categories {
		c := &categories[i]
		if _, dup := nodes[c.ID]; dup {
			return nil, shared.NewDomainError("DUPLICATE_CATEGORY", fmt.Sprintf("Category %s appears more than once", c.ID))
		}
		nodes[c.ID] = NewCategoryNode(c)
		order = append(order, c.ID)
	}

	roots := make([]*CategoryNode, 0)
	for _, id := range order {
		node := nodes[id]
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*node.ParentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	// Nodes caught in a cycle are never reachable from a root.
	reached := 0
	visited := make(map[uuid.UUID]bool, len(nodes))
	for _, root := range roots {
		n, err := walk(root, visited, nil)
		if err != nil {
			return nil, err
		}
		reached += n
	}
	if reached != len(nodes) {
		return nil, ErrCategoryCycle
	}

	sortNodes(roots)
	return roots, nil
}

// EnsureHierarchy accepts either a flat node list (parent references only) or an
// already nested one. Nested input is returned unchanged.
func EnsureHierarchy(nodes []*CategoryNode) ([]*CategoryNode, error) {
	for _, n := range nodes {
		if len(n.Children) > 0 {
			return nodes, nil
		}
	}

	flat := make([]Category, 0, len(nodes))
	for _, n := range nodes {
		c := Category{Name: n.Name, Slug: n.Slug, Icon: n.Icon, ParentID: n.ParentID, SortOrder: n.SortOrder, IsActive: n.IsActive}
		c.ID = n.ID
		flat = append(flat, c)
	}
	return BuildHierarchy(flat)
}

// CountDescendants counts every node below node
func CountDescendants(node *CategoryNode) (int, error) {
	if node == nil {
		return 0, nil
	}
	n, err := walk(node, make(map[uuid.UUID]bool), nil)
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

// DescendantIDs returns the IDs of node and everything below it, depth first
func DescendantIDs(node *CategoryNode) ([]uuid.UUID, error) {
	if node == nil {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0)
	_, err := walk(node, make(map[uuid.UUID]bool), func(n *CategoryNode) bool {
		ids = append(ids, n.ID)
		return false
	})
	return ids, err
}

// FindNode searches a nested structure depth first
func FindNode(nodes []*CategoryNode, id uuid.UUID) (*CategoryNode, error) {
	var found *CategoryNode
	visited := make(map[uuid.UUID]bool)
	for _, root := range nodes {
		_, err := walk(root, visited, func(n *CategoryNode) bool {
			if n.ID == id {
				found = n
				return true
			}
			return false
		})
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, nil
}

// CountNodes counts all nodes in a forest
func CountNodes(nodes []*CategoryNode) (int, error) {
	total := 0
	visited := make(map[uuid.UUID]bool)
	for _, root := range nodes {
		n, err := walk(root, visited, nil)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// IsDescendant reports whether candidate sits somewhere below ancestor in the flat list.
// It walks parent links upward from candidate and stops on a repeated ID.
func IsDescendant(categories []Category, candidate, ancestor uuid.UUID) bool {
	parents := make(map[uuid.UUID]*uuid.UUID, len(categories))
	for i := range categories {
		parents[categories[i].ID] = categories[i].ParentID
	}

	seen := make(map[uuid.UUID]bool)
	current := candidate
	for {
		if seen[current] {
			return false
		}
		seen[current] = true

		parent, ok := parents[current]
		if !ok || parent == nil {
			return false
		}
		if *parent == ancestor {
			return true
		}
		current = *parent
	}
}

// walk visits node and its subtree depth first and returns the number of nodes seen.
// stop, when non-nil, ends the walk early by returning true.
// It uses an explicit stack so depth is bounded only by the input.
func walk(node *CategoryNode, visited map[uuid.UUID]bool, stop func(*CategoryNode) bool) (int, error) {
	count := 0
	stack := []*CategoryNode{node}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[current.ID] {
			return 0, ErrCategoryCycle
		}
		visited[current.ID] = true
		count++

		if stop != nil && stop(current) {
			return count, nil
		}
		for i := len(current.Children) - 1; i >= 0; i-- {
			stack = append(stack, current.Children[i])
		}
	}
	return count, nil
}

func sortNodes(nodes []*CategoryNode) {
	pending := [][]*CategoryNode{nodes}
	for len(pending) > 0 {
		level := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		sort.SliceStable(level, func(i, j int) bool {
			if level[i].SortOrder != level[j].SortOrder {
				return level[i].SortOrder < level[j].SortOrder
			}
			return level[i].Name < level[j].Name
		})
		for _, n := range level {
			if len(n.Children) > 0 {
				pending = append(pending, n.Children)
			}
		}
	}
}

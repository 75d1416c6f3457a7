package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CategoryService handles category tree browsing and administration
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	productRepo  catalog.ProductRepository
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	categoryRepo catalog.CategoryRepository,
	productRepo catalog.ProductRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// GetTree returns the nested tree of active categories
func (s *CategoryService) GetTree(ctx context.Context) ([]*catalog.CategoryNode, error) {
	return s.tree(ctx, true)
}

// AdminGetTree returns the nested tree including inactive categories
func (s *CategoryService) AdminGetTree(ctx context.Context) ([]*catalog.CategoryNode, error) {
	return s.tree(ctx, false)
}

func (s *CategoryService) tree(ctx context.Context, activeOnly bool) ([]*catalog.CategoryNode, error) {
	categories, err := s.categoryRepo.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	roots, err := catalog.BuildHierarchy(categories)
	if err != nil {
		s.logger.Error("Category tree is inconsistent", zap.Int("categories", len(categories)), zap.Error(err))
		return nil, err
	}
	return roots, nil
}

// List returns every category as a flat list ordered by sort order
func (s *CategoryService) List(ctx context.Context) ([]CategoryResponse, error) {
	categories, err := s.categoryRepo.FindAll(ctx, false)
	if err != nil {
		return nil, err
	}
	responses := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		responses = append(responses, ToCategoryResponse(&categories[i]))
	}
	return responses, nil
}

// GetByID returns an active category with its descendant count
func (s *CategoryService) GetByID(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !category.IsActive {
		return nil, shared.NewDomainError("NOT_FOUND", "Category not found")
	}
	return s.withDescendants(ctx, category, true)
}

// GetBySlug returns an active category by slug with its descendant count
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Category not found")
		}
		return nil, err
	}
	if !category.IsActive {
		return nil, shared.NewDomainError("NOT_FOUND", "Category not found")
	}
	return s.withDescendants(ctx, category, true)
}

// AdminGetByID returns any category with its descendant count
func (s *CategoryService) AdminGetByID(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withDescendants(ctx, category, false)
}

func (s *CategoryService) withDescendants(ctx context.Context, category *catalog.Category, activeOnly bool) (*CategoryResponse, error) {
	resp := ToCategoryResponse(category)
	roots, err := s.tree(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	node, err := catalog.FindNode(roots, category.ID)
	if err != nil {
		return nil, err
	}
	if node != nil {
		count, err := catalog.CountDescendants(node)
		if err != nil {
			return nil, err
		}
		resp.DescendantCount = count
	}
	return &resp, nil
}

// Create creates a new category
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	if req.ParentID != nil {
		if _, err := s.find(ctx, *req.ParentID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("PARENT_NOT_FOUND", "Parent category not found")
			}
			return nil, err
		}
	}

	category, err := catalog.NewCategory(req.Name, req.ParentID)
	if err != nil {
		return nil, err
	}
	if req.Slug != "" {
		if err := category.SetSlug(req.Slug); err != nil {
			return nil, err
		}
	}
	if err := s.ensureSlugAvailable(ctx, category.Slug, nil); err != nil {
		return nil, err
	}
	if req.Description != "" || req.Icon != "" {
		if err := category.Update(category.Name, req.Description, req.Icon); err != nil {
			return nil, err
		}
	}
	if req.SortOrder != 0 {
		category.SetSortOrder(req.SortOrder)
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.publish(ctx, category.PopDomainEvents()...)

	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Update applies a partial update; a parent change is rejected when it would create a cycle
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Description != nil || req.Icon != nil {
		name, description, icon := category.Name, category.Description, category.Icon
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		if req.Icon != nil {
			icon = *req.Icon
		}
		if err := category.Update(name, description, icon); err != nil {
			return nil, err
		}
	}

	if req.Slug != nil {
		if err := category.SetSlug(*req.Slug); err != nil {
			return nil, err
		}
		if err := s.ensureSlugAvailable(ctx, category.Slug, &category.ID); err != nil {
			return nil, err
		}
	}

	if req.MoveToRoot || req.ParentID != nil {
		if err := s.move(ctx, category, req); err != nil {
			return nil, err
		}
	}

	if req.SortOrder != nil {
		category.SetSortOrder(*req.SortOrder)
	}
	if req.IsActive != nil {
		if *req.IsActive {
			category.Activate()
		} else {
			category.Deactivate()
		}
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.publish(ctx, category.PopDomainEvents()...)

	return s.withDescendants(ctx, category, false)
}

func (s *CategoryService) move(ctx context.Context, category *catalog.Category, req UpdateCategoryRequest) error {
	var parentID *uuid.UUID
	if !req.MoveToRoot {
		parentID = req.ParentID
	}
	if parentID != nil {
		if _, err := s.find(ctx, *parentID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("PARENT_NOT_FOUND", "Parent category not found")
			}
			return err
		}
	}

	all, err := s.categoryRepo.FindAll(ctx, false)
	if err != nil {
		return err
	}
	return category.MoveTo(parentID, all)
}

// Delete deletes a category without children or products
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	category, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	hasChildren, err := s.categoryRepo.HasChildren(ctx, category.ID)
	if err != nil {
		return err
	}
	if hasChildren {
		return shared.NewDomainError("HAS_CHILDREN", "Cannot delete category with children")
	}

	products, err := s.productRepo.CountByCategory(ctx, category.ID)
	if err != nil {
		return err
	}
	if products > 0 {
		return shared.NewDomainError("HAS_PRODUCTS",
			fmt.Sprintf("Cannot delete category with %d associated products", products))
	}

	return s.categoryRepo.Delete(ctx, id)
}

func (s *CategoryService) find(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Category not found")
		}
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) ensureSlugAvailable(ctx context.Context, slug string, excludeID *uuid.UUID) error {
	exists, err := s.categoryRepo.ExistsBySlug(ctx, slug, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Category slug %q is already in use", slug))
	}
	return nil
}

func (s *CategoryService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish category events", zap.Int("events", len(events)), zap.Error(err))
	}
}

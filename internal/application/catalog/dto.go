package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
)

// ProductSearchRequest holds the query string of a product listing
type ProductSearchRequest struct {
	Query       string     `form:"q" binding:"max=100"`
	CategoryID  *uuid.UUID `form:"category_id"`
	MinPrice    *float64   `form:"min_price" binding:"omitempty,min=0"`
	MaxPrice    *float64   `form:"max_price" binding:"omitempty,min=0,gtefield=MinPrice"`
	InStockOnly bool       `form:"in_stock"`
	SortBy      string     `form:"sort_by" binding:"omitempty,oneof=created_at price name"`
	SortDir     string     `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name            string             `json:"name" binding:"required,min=1,max=200"`
	Slug            string             `json:"slug" binding:"max=220"`
	Description     string             `json:"description" binding:"max=5000"`
	CategoryID      *uuid.UUID         `json:"category_id"`
	Price           decimal.Decimal    `json:"price" binding:"required"`
	MRP             *decimal.Decimal   `json:"mrp"`
	DiscountPercent *decimal.Decimal   `json:"discount_percent"`
	Stock           int                `json:"stock" binding:"min=0"`
	IsReplaceable   bool               `json:"is_replaceable"`
	Variations      []VariationRequest `json:"variations" binding:"omitempty,dive"`
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	Name            *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Slug            *string          `json:"slug" binding:"omitempty,max=220"`
	Description     *string          `json:"description" binding:"omitempty,max=5000"`
	CategoryID      *uuid.UUID       `json:"category_id"`
	ClearCategory   bool             `json:"clear_category"`
	Price           *decimal.Decimal `json:"price"`
	MRP             *decimal.Decimal `json:"mrp"`
	ClearMRP        bool             `json:"clear_mrp"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	Stock           *int             `json:"stock" binding:"omitempty,min=0"`
	IsReplaceable   *bool            `json:"is_replaceable"`
}

// VariationRequest adds a size/color variation
type VariationRequest struct {
	Size          string           `json:"size" binding:"max=50"`
	Color         string           `json:"color" binding:"max=50"`
	Stock         int              `json:"stock" binding:"min=0"`
	PriceOverride *decimal.Decimal `json:"price_override"`
}

// UpdateVariationRequest changes a variation's stock and price override
type UpdateVariationRequest struct {
	Stock         int              `json:"stock" binding:"min=0"`
	PriceOverride *decimal.Decimal `json:"price_override"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID              uuid.UUID           `json:"id"`
	Name            string              `json:"name"`
	Slug            string              `json:"slug"`
	Description     string              `json:"description"`
	CategoryID      *uuid.UUID          `json:"category_id,omitempty"`
	Price           decimal.Decimal     `json:"price"`
	MRP             *decimal.Decimal    `json:"mrp,omitempty"`
	DiscountPercent decimal.Decimal     `json:"discount_percent"`
	FinalPrice      decimal.Decimal     `json:"final_price"`
	EffectiveMRP    decimal.Decimal     `json:"effective_mrp"`
	TotalQuantity   int                 `json:"total_quantity"`
	InStock         bool                `json:"in_stock"`
	IsApproved      bool                `json:"is_approved"`
	IsReplaceable   bool                `json:"is_replaceable"`
	Variations      []VariationResponse `json:"variations"`
	Media           []MediaResponse     `json:"media,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Version         int                 `json:"version"`
}

// VariationResponse represents a variation in API responses
type VariationResponse struct {
	ID            uuid.UUID        `json:"id"`
	Size          string           `json:"size,omitempty"`
	Color         string           `json:"color,omitempty"`
	Label         string           `json:"label"`
	StockQuantity int              `json:"stock_quantity"`
	InStock       bool             `json:"in_stock"`
	PriceOverride *decimal.Decimal `json:"price_override,omitempty"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
}

// ToProductResponse converts a domain product
func ToProductResponse(p *catalog.Product) ProductResponse {
	resp := ProductResponse{
		ID:              p.ID,
		Name:            p.Name,
		Slug:            p.Slug,
		Description:     p.Description,
		CategoryID:      p.CategoryID,
		Price:           p.Price,
		DiscountPercent: p.DiscountPercent,
		FinalPrice:      p.FinalPrice().Amount(),
		EffectiveMRP:    p.EffectiveMRP().Amount(),
		TotalQuantity:   p.TotalQuantity,
		InStock:         p.TotalQuantity > 0,
		IsApproved:      p.IsApproved,
		IsReplaceable:   p.IsReplaceable,
		Variations:      make([]VariationResponse, 0, len(p.Variations)),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Version:         p.Version,
	}
	if p.MRP.Valid {
		mrp := p.MRP.Decimal
		resp.MRP = &mrp
	}
	for i := range p.Variations {
		v := &p.Variations[i]
		vr := VariationResponse{
			ID:            v.ID,
			Size:          v.Size,
			Color:         v.Color,
			Label:         v.Label(),
			StockQuantity: v.StockQuantity,
			InStock:       v.InStock,
			UnitPrice:     p.FinalPrice().Amount(),
		}
		if v.PriceOverride.Valid {
			override := v.PriceOverride.Decimal
			vr.PriceOverride = &override
			vr.UnitPrice = override
		}
		resp.Variations = append(resp.Variations, vr)
	}
	return resp
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name        string     `json:"name" binding:"required,min=1,max=100"`
	Slug        string     `json:"slug" binding:"max=120"`
	Description string     `json:"description" binding:"max=1000"`
	Icon        string     `json:"icon" binding:"max=255"`
	ParentID    *uuid.UUID `json:"parent_id"`
	SortOrder   int        `json:"sort_order"`
}

// UpdateCategoryRequest represents a partial category update.
// ParentID moves the category; MoveToRoot detaches it from its parent.
type UpdateCategoryRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=1,max=100"`
	Slug        *string    `json:"slug" binding:"omitempty,max=120"`
	Description *string    `json:"description" binding:"omitempty,max=1000"`
	Icon        *string    `json:"icon" binding:"omitempty,max=255"`
	ParentID    *uuid.UUID `json:"parent_id"`
	MoveToRoot  bool       `json:"move_to_root"`
	SortOrder   *int       `json:"sort_order"`
	IsActive    *bool      `json:"is_active"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	Description     string     `json:"description"`
	Icon            string     `json:"icon,omitempty"`
	ParentID        *uuid.UUID `json:"parent_id,omitempty"`
	SortOrder       int        `json:"sort_order"`
	IsActive        bool       `json:"is_active"`
	DescendantCount int        `json:"descendant_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ToCategoryResponse converts a domain category
func ToCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Icon:        c.Icon,
		ParentID:    c.ParentID,
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// InitiateUploadRequest starts a direct-to-storage media upload
type InitiateUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,min=1,max=255"`
	FileSize    int64  `json:"file_size" binding:"required,min=1"`
	ContentType string `json:"content_type" binding:"required,max=100"`
	AltText     string `json:"alt_text" binding:"max=255"`
}

// InitiateUploadResponse carries the pending media and its presigned upload URL
type InitiateUploadResponse struct {
	Media     MediaResponse `json:"media"`
	UploadURL string        `json:"upload_url"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// UpdateMediaRequest changes alt text or the primary flag
type UpdateMediaRequest struct {
	AltText   *string `json:"alt_text" binding:"omitempty,max=255"`
	IsPrimary *bool   `json:"is_primary"`
}

// ReorderMediaRequest lists media IDs in their new gallery order
type ReorderMediaRequest struct {
	MediaIDs []uuid.UUID `json:"media_ids" binding:"required,min=1,max=50"`
}

// MediaResponse represents product media in API responses
type MediaResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   uuid.UUID  `json:"product_id"`
	Status      string     `json:"status"`
	FileName    string     `json:"file_name"`
	FileSize    int64      `json:"file_size"`
	ContentType string     `json:"content_type"`
	AltText     string     `json:"alt_text,omitempty"`
	IsPrimary   bool       `json:"is_primary"`
	SortOrder   int        `json:"sort_order"`
	URL         string     `json:"url,omitempty"`
	URLExpires  *time.Time `json:"url_expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToMediaResponse converts domain media without a download URL
func ToMediaResponse(m *catalog.ProductMedia) MediaResponse {
	return MediaResponse{
		ID:          m.ID,
		ProductID:   m.ProductID,
		Status:      string(m.Status),
		FileName:    m.FileName,
		FileSize:    m.FileSize,
		ContentType: m.ContentType,
		AltText:     m.AltText,
		IsPrimary:   m.IsPrimary,
		SortOrder:   m.SortOrder,
		CreatedAt:   m.CreatedAt,
	}
}

// RecentlyViewedResponse is one entry of a recently viewed list
type RecentlyViewedResponse struct {
	ID        uuid.UUID        `json:"id"`
	ProductID uuid.UUID        `json:"product_id"`
	ViewedAt  time.Time        `json:"viewed_at"`
	Product   *ProductResponse `json:"product,omitempty"`
}

// AdminRecentlyViewedResponse adds the owner for back-office listings
type AdminRecentlyViewedResponse struct {
	RecentlyViewedResponse
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
}

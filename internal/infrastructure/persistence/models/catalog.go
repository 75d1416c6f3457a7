package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	AggregateModel
	Name            string                  `gorm:"type:varchar(200);not null"`
	Slug            string                  `gorm:"type:varchar(150);not null;uniqueIndex:idx_products_slug"`
	Description     string                  `gorm:"type:text"`
	CategoryID      *uuid.UUID              `gorm:"type:uuid;index"`
	Price           decimal.Decimal         `gorm:"type:decimal(18,2);not null;default:0"`
	MRP             decimal.NullDecimal     `gorm:"column:mrp;type:decimal(18,2)"`
	DiscountPercent decimal.Decimal         `gorm:"type:decimal(5,2);not null;default:0"`
	TotalQuantity   int                     `gorm:"not null;default:0"`
	IsApproved      bool                    `gorm:"not null;default:false;index"`
	IsReplaceable   bool                    `gorm:"not null;default:false"`
	Variations      []ProductVariationModel `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		Slug:              m.Slug,
		Description:       m.Description,
		CategoryID:        m.CategoryID,
		Price:             m.Price,
		MRP:               m.MRP,
		DiscountPercent:   m.DiscountPercent,
		TotalQuantity:     m.TotalQuantity,
		IsApproved:        m.IsApproved,
		IsReplaceable:     m.IsReplaceable,
		Variations:        make([]catalog.Variation, 0, len(m.Variations)),
	}
	for i := range m.Variations {
		p.Variations = append(p.Variations, *m.Variations[i].ToDomain())
	}
	return p
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.Slug = p.Slug
	m.Description = p.Description
	m.CategoryID = p.CategoryID
	m.Price = p.Price
	m.MRP = p.MRP
	m.DiscountPercent = p.DiscountPercent
	m.TotalQuantity = p.TotalQuantity
	m.IsApproved = p.IsApproved
	m.IsReplaceable = p.IsReplaceable
	m.Variations = make([]ProductVariationModel, 0, len(p.Variations))
	for i := range p.Variations {
		m.Variations = append(m.Variations, *ProductVariationModelFromDomain(&p.Variations[i]))
	}
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// ProductVariationModel is the persistence model for a product variation.
type ProductVariationModel struct {
	BaseModel
	ProductID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	Size          string              `gorm:"type:varchar(50)"`
	Color         string              `gorm:"type:varchar(50)"`
	StockQuantity int                 `gorm:"not null;default:0"`
	InStock       bool                `gorm:"not null;default:false"`
	PriceOverride decimal.NullDecimal `gorm:"type:decimal(18,2)"`
}

// TableName returns the table name for GORM
func (ProductVariationModel) TableName() string {
	return "product_variations"
}

// ToDomain converts the persistence model to a domain Variation.
func (m *ProductVariationModel) ToDomain() *catalog.Variation {
	return &catalog.Variation{
		BaseEntity:    m.BaseModel.ToDomain(),
		ProductID:     m.ProductID,
		Size:          m.Size,
		Color:         m.Color,
		StockQuantity: m.StockQuantity,
		InStock:       m.InStock,
		PriceOverride: m.PriceOverride,
	}
}

// ProductVariationModelFromDomain creates a persistence model from a domain Variation.
func ProductVariationModelFromDomain(v *catalog.Variation) *ProductVariationModel {
	m := &ProductVariationModel{
		ProductID:     v.ProductID,
		Size:          v.Size,
		Color:         v.Color,
		StockQuantity: v.StockQuantity,
		InStock:       v.InStock,
		PriceOverride: v.PriceOverride,
	}
	m.FromDomainBaseEntity(v.BaseEntity)
	return m
}

// CategoryModel is the persistence model for the Category domain entity.
type CategoryModel struct {
	AggregateModel
	Name        string     `gorm:"type:varchar(100);not null"`
	Slug        string     `gorm:"type:varchar(120);not null;uniqueIndex:idx_categories_slug"`
	Description string     `gorm:"type:text"`
	Icon        string     `gorm:"type:varchar(255)"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"`
	SortOrder   int        `gorm:"not null;default:0"`
	IsActive    bool       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category entity.
func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		Slug:              m.Slug,
		Description:       m.Description,
		Icon:              m.Icon,
		ParentID:          m.ParentID,
		SortOrder:         m.SortOrder,
		IsActive:          m.IsActive,
	}
}

// CategoryModelFromDomain creates a new persistence model from a domain Category entity.
func CategoryModelFromDomain(c *catalog.Category) *CategoryModel {
	m := &CategoryModel{
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Icon:        c.Icon,
		ParentID:    c.ParentID,
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}

// ProductMediaModel is the persistence model for product gallery media.
type ProductMediaModel struct {
	AggregateModel
	ProductID   uuid.UUID           `gorm:"type:uuid;not null;index:idx_product_media_product"`
	Status      catalog.MediaStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	FileName    string              `gorm:"type:varchar(255);not null"`
	FileSize    int64               `gorm:"not null"`
	ContentType string              `gorm:"type:varchar(100);not null"`
	StorageKey  string              `gorm:"type:varchar(500);not null;uniqueIndex"`
	AltText     string              `gorm:"type:varchar(255)"`
	IsPrimary   bool                `gorm:"not null;default:false"`
	SortOrder   int                 `gorm:"not null;default:0"`
	UploadedBy  *uuid.UUID          `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ProductMediaModel) TableName() string {
	return "product_media"
}

// ToDomain converts the persistence model to a domain ProductMedia.
func (m *ProductMediaModel) ToDomain() *catalog.ProductMedia {
	return &catalog.ProductMedia{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ProductID:         m.ProductID,
		Status:            m.Status,
		FileName:          m.FileName,
		FileSize:          m.FileSize,
		ContentType:       m.ContentType,
		StorageKey:        m.StorageKey,
		AltText:           m.AltText,
		IsPrimary:         m.IsPrimary,
		SortOrder:         m.SortOrder,
		UploadedBy:        m.UploadedBy,
	}
}

// ProductMediaModelFromDomain creates a persistence model from a domain ProductMedia.
func ProductMediaModelFromDomain(pm *catalog.ProductMedia) *ProductMediaModel {
	m := &ProductMediaModel{
		ProductID:   pm.ProductID,
		Status:      pm.Status,
		FileName:    pm.FileName,
		FileSize:    pm.FileSize,
		ContentType: pm.ContentType,
		StorageKey:  pm.StorageKey,
		AltText:     pm.AltText,
		IsPrimary:   pm.IsPrimary,
		SortOrder:   pm.SortOrder,
		UploadedBy:  pm.UploadedBy,
	}
	m.FromDomainAggregateRoot(pm.BaseAggregateRoot)
	return m
}

// RecentlyViewedModel stores one view entry per owner and product.
type RecentlyViewedModel struct {
	BaseModel
	UserID    *uuid.UUID `gorm:"type:uuid;index:idx_recently_viewed_user"`
	SessionID string     `gorm:"type:varchar(128);index:idx_recently_viewed_session"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null"`
	ViewedAt  time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (RecentlyViewedModel) TableName() string {
	return "recently_viewed"
}

// ToDomain converts the persistence model to a domain RecentlyViewed entry.
func (m *RecentlyViewedModel) ToDomain() *catalog.RecentlyViewed {
	return &catalog.RecentlyViewed{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		SessionID:  m.SessionID,
		ProductID:  m.ProductID,
		ViewedAt:   m.ViewedAt,
	}
}

// RecentlyViewedModelFromDomain creates a persistence model from a domain entry.
func RecentlyViewedModelFromDomain(r *catalog.RecentlyViewed) *RecentlyViewedModel {
	m := &RecentlyViewedModel{
		UserID:    r.UserID,
		SessionID: r.SessionID,
		ProductID: r.ProductID,
		ViewedAt:  r.ViewedAt,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}


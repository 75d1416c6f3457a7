package catalog

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// MaxMediaFileSize is the largest accepted upload (20MB)
const MaxMediaFileSize = 20 * 1024 * 1024

// MaxMediaPerProduct caps the gallery size of one product
const MaxMediaPerProduct = 12

// MediaStatus is the upload lifecycle state of a media item
type MediaStatus string

const (
	MediaStatusPending MediaStatus = "pending"
	MediaStatusActive  MediaStatus = "active"
	MediaStatusDeleted MediaStatus = "deleted"
)

// IsValid checks if the media status is valid
func (s MediaStatus) IsValid() bool {
	switch s {
	case MediaStatusPending, MediaStatusActive, MediaStatusDeleted:
		return true
	default:
		return false
	}
}

var allowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"video/mp4":  true,
}

// ProductMedia is an image or video shown in a product gallery.
// Uploads go straight to object storage; the record starts pending and is
// activated once the client confirms the upload.
type ProductMedia struct {
	shared.BaseAggregateRoot
	ProductID   uuid.UUID
	Status      MediaStatus
	FileName    string
	FileSize    int64
	ContentType string
	StorageKey  string
	AltText     string
	IsPrimary   bool
	SortOrder   int
	UploadedBy  *uuid.UUID
}

// NewProductMedia creates a pending media record
func NewProductMedia(productID uuid.UUID, fileName string, fileSize int64, contentType string, uploadedBy *uuid.UUID) (*ProductMedia, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT_ID", "Product ID cannot be empty")
	}
	if err := validateFileName(fileName); err != nil {
		return nil, err
	}
	if fileSize <= 0 {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File size must be greater than 0")
	}
	if fileSize > MaxMediaFileSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "File size cannot exceed 20MB")
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !allowedMediaTypes[contentType] {
		return nil, shared.NewDomainError("UNSUPPORTED_MEDIA_TYPE",
			fmt.Sprintf("Content type %q is not accepted for product media", contentType))
	}

	m := &ProductMedia{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		Status:            MediaStatusPending,
		FileName:          fileName,
		FileSize:          fileSize,
		ContentType:       contentType,
		UploadedBy:        uploadedBy,
	}
	m.StorageKey = MediaStorageKey(productID, m.ID, fileName)

	m.AddDomainEvent(NewMediaEvent(EventTypeMediaCreated, m))

	return m, nil
}

// MediaStorageKey builds the object key: products/<product>/<media><ext>
func MediaStorageKey(productID, mediaID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("products/%s/%s%s", productID, mediaID, ext)
}

// Confirm activates the media after the file landed in storage
func (m *ProductMedia) Confirm() error {
	switch m.Status {
	case MediaStatusActive:
		return shared.NewDomainError("ALREADY_CONFIRMED", "Media is already confirmed")
	case MediaStatusDeleted:
		return shared.NewDomainError("CANNOT_CONFIRM_DELETED", "Cannot confirm deleted media")
	}

	m.Status = MediaStatusActive
	m.touch()
	m.AddDomainEvent(NewMediaEvent(EventTypeMediaConfirmed, m))
	return nil
}

// Delete soft-deletes the media
func (m *ProductMedia) Delete() error {
	if m.Status == MediaStatusDeleted {
		return shared.NewDomainError("ALREADY_DELETED", "Media is already deleted")
	}
	m.Status = MediaStatusDeleted
	m.IsPrimary = false
	m.touch()
	m.AddDomainEvent(NewMediaEvent(EventTypeMediaDeleted, m))
	return nil
}

// Update changes alt text
func (m *ProductMedia) Update(altText string) error {
	if m.Status == MediaStatusDeleted {
		return shared.NewDomainError("CANNOT_UPDATE_DELETED", "Cannot update deleted media")
	}
	if len(altText) > 255 {
		return shared.NewDomainError("INVALID_ALT_TEXT", "Alt text cannot exceed 255 characters")
	}
	m.AltText = strings.TrimSpace(altText)
	m.touch()
	return nil
}

// SetPrimary marks or unmarks the media as the product's cover image
func (m *ProductMedia) SetPrimary(primary bool) error {
	if primary && !m.IsActive() {
		return shared.NewDomainError("MEDIA_NOT_ACTIVE", "Only confirmed media can be the primary image")
	}
	if primary && !m.IsImage() {
		return shared.NewDomainError("NOT_AN_IMAGE", "Only images can be the primary media")
	}
	m.IsPrimary = primary
	m.touch()
	return nil
}

// SetSortOrder sets the gallery position
func (m *ProductMedia) SetSortOrder(order int) error {
	if m.Status == MediaStatusDeleted {
		return shared.NewDomainError("CANNOT_UPDATE_DELETED", "Cannot update deleted media")
	}
	if order < 0 {
		return shared.NewDomainError("INVALID_SORT_ORDER", "Sort order cannot be negative")
	}
	m.SortOrder = order
	m.touch()
	return nil
}

// IsPending returns true if the upload is not confirmed yet
func (m *ProductMedia) IsPending() bool {
	return m.Status == MediaStatusPending
}

// IsActive returns true if the media is visible
func (m *ProductMedia) IsActive() bool {
	return m.Status == MediaStatusActive
}

// IsDeleted returns true if the media is soft-deleted
func (m *ProductMedia) IsDeleted() bool {
	return m.Status == MediaStatusDeleted
}

// IsImage returns true for image content types
func (m *ProductMedia) IsImage() bool {
	return strings.HasPrefix(m.ContentType, "image/")
}

func (m *ProductMedia) touch() {
	m.UpdatedAt = time.Now()
	m.IncrementVersion()
}

func validateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if len(name) > 255 {
		return shared.NewDomainError("INVALID_FILE_NAME", "File name cannot exceed 255 characters")
	}
	for _, r := range name {
		if r < 32 || r == 127 {
			return shared.NewDomainError("INVALID_FILE_NAME", "File name contains invalid characters")
		}
	}
	if strings.ContainsAny(name, `/\`) {
		return shared.NewDomainError("INVALID_FILE_NAME", "File name cannot contain path separators")
	}
	return nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ObjectStorageService defines the object storage operations used for product media.
// It is implemented by the S3 and stub storages in the infrastructure layer.
type ObjectStorageService interface {
	// GenerateUploadURL returns a presigned PUT URL and its expiry
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL returns a presigned GET URL and its expiry
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	DeleteObject(ctx context.Context, storageKey string) error
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// MediaServiceConfig holds configuration for the media service
type MediaServiceConfig struct {
	// UploadURLExpiry is how long upload URLs stay valid
	UploadURLExpiry time.Duration
	// DownloadURLExpiry is how long download URLs stay valid
	DownloadURLExpiry time.Duration
	// MaxMediaPerProduct caps non-deleted media of one product
	MaxMediaPerProduct int
}

// DefaultMediaServiceConfig returns the default configuration
func DefaultMediaServiceConfig() MediaServiceConfig {
	return MediaServiceConfig{
		UploadURLExpiry:    15 * time.Minute,
		DownloadURLExpiry:  1 * time.Hour,
		MaxMediaPerProduct: catalog.MaxMediaPerProduct,
	}
}

// MediaService handles product gallery uploads and ordering
type MediaService struct {
	mediaRepo   catalog.MediaRepository
	productRepo catalog.ProductRepository
	storage     ObjectStorageService
	publisher   shared.EventPublisher
	config      MediaServiceConfig
	logger      *zap.Logger
}

// NewMediaService creates a new MediaService
func NewMediaService(
	mediaRepo catalog.MediaRepository,
	productRepo catalog.ProductRepository,
	storage ObjectStorageService,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{
		mediaRepo:   mediaRepo,
		productRepo: productRepo,
		storage:     storage,
		publisher:   publisher,
		config:      DefaultMediaServiceConfig(),
		logger:      logger,
	}
}

// SetConfig sets the service configuration
func (s *MediaService) SetConfig(config MediaServiceConfig) {
	s.config = config
}

// InitiateUpload creates a pending media record and returns a presigned upload URL
func (s *MediaService) InitiateUpload(
	ctx context.Context,
	productID uuid.UUID,
	req InitiateUploadRequest,
	uploadedBy *uuid.UUID,
) (*InitiateUploadResponse, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}

	count, err := s.mediaRepo.CountByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if count >= int64(s.config.MaxMediaPerProduct) {
		return nil, shared.NewDomainError("MEDIA_LIMIT_EXCEEDED",
			fmt.Sprintf("Maximum %d media per product allowed", s.config.MaxMediaPerProduct))
	}

	media, err := catalog.NewProductMedia(productID, req.FileName, req.FileSize, req.ContentType, uploadedBy)
	if err != nil {
		return nil, err
	}
	if req.AltText != "" {
		if err := media.Update(req.AltText); err != nil {
			return nil, err
		}
	}
	if err := media.SetSortOrder(int(count)); err != nil {
		return nil, err
	}

	if err := s.mediaRepo.Save(ctx, media); err != nil {
		return nil, err
	}

	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, media.StorageKey, media.ContentType, s.config.UploadURLExpiry)
	if err != nil {
		s.logger.Error("Failed to presign media upload",
			zap.String("media_id", media.ID.String()),
			zap.String("storage_key", media.StorageKey),
			zap.Error(err))
		if delErr := s.mediaRepo.Delete(ctx, media.ID); delErr != nil {
			s.logger.Warn("Failed to clean up pending media", zap.String("media_id", media.ID.String()), zap.Error(delErr))
		}
		return nil, shared.WrapDomainError("UPLOAD_URL_FAILED", "Failed to generate upload URL", err)
	}
	s.publish(ctx, media.PopDomainEvents()...)

	return &InitiateUploadResponse{
		Media:     ToMediaResponse(media),
		UploadURL: uploadURL,
		ExpiresAt: expiresAt,
	}, nil
}

// ConfirmUpload verifies the object landed in storage and activates the media.
// The first confirmed image becomes the primary image.
func (s *MediaService) ConfirmUpload(ctx context.Context, productID, mediaID uuid.UUID) (*MediaResponse, error) {
	media, err := s.find(ctx, productID, mediaID)
	if err != nil {
		return nil, err
	}

	exists, err := s.storage.ObjectExists(ctx, media.StorageKey)
	if err != nil {
		return nil, shared.WrapDomainError("STORAGE_CHECK_FAILED", "Failed to verify upload", err)
	}
	if !exists {
		return nil, shared.NewDomainError("UPLOAD_NOT_FOUND", "File not found in storage. Please upload the file first.")
	}

	if err := media.Confirm(); err != nil {
		return nil, err
	}

	if media.IsImage() {
		siblings, err := s.mediaRepo.FindByProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		if primaryOf(siblings) == nil {
			if err := media.SetPrimary(true); err != nil {
				return nil, err
			}
		}
	}

	if err := s.mediaRepo.Save(ctx, media); err != nil {
		return nil, err
	}
	s.publish(ctx, media.PopDomainEvents()...)

	resp := s.withURL(ctx, media)
	return &resp, nil
}

// List returns the non-deleted media of a product in gallery order
func (s *MediaService) List(ctx context.Context, productID uuid.UUID) ([]MediaResponse, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	items, err := s.mediaRepo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	responses := make([]MediaResponse, 0, len(items))
	for i := range items {
		responses = append(responses, s.withURL(ctx, &items[i]))
	}
	return responses, nil
}

// ActiveMedia returns active media of several products with download URLs
func (s *MediaService) ActiveMedia(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]MediaResponse, error) {
	byProduct, err := s.mediaRepo.FindActiveByProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	result := make(map[uuid.UUID][]MediaResponse, len(byProduct))
	for productID, items := range byProduct {
		responses := make([]MediaResponse, 0, len(items))
		for i := range items {
			responses = append(responses, s.withURL(ctx, &items[i]))
		}
		result[productID] = responses
	}
	return result, nil
}

// Update changes alt text and the primary flag
func (s *MediaService) Update(ctx context.Context, productID, mediaID uuid.UUID, req UpdateMediaRequest) (*MediaResponse, error) {
	media, err := s.find(ctx, productID, mediaID)
	if err != nil {
		return nil, err
	}

	if req.AltText != nil {
		if err := media.Update(*req.AltText); err != nil {
			return nil, err
		}
	}

	toSave := []*catalog.ProductMedia{media}
	if req.IsPrimary != nil {
		if *req.IsPrimary {
			demoted, err := s.demoteCurrentPrimary(ctx, media)
			if err != nil {
				return nil, err
			}
			toSave = append(toSave, demoted...)
		}
		if err := media.SetPrimary(*req.IsPrimary); err != nil {
			return nil, err
		}
	}

	if err := s.mediaRepo.SaveBatch(ctx, toSave); err != nil {
		return nil, err
	}

	resp := s.withURL(ctx, media)
	return &resp, nil
}

func (s *MediaService) demoteCurrentPrimary(ctx context.Context, media *catalog.ProductMedia) ([]*catalog.ProductMedia, error) {
	siblings, err := s.mediaRepo.FindByProduct(ctx, media.ProductID)
	if err != nil {
		return nil, err
	}
	demoted := make([]*catalog.ProductMedia, 0, 1)
	for i := range siblings {
		sib := &siblings[i]
		if sib.ID == media.ID || !sib.IsPrimary {
			continue
		}
		if err := sib.SetPrimary(false); err != nil {
			return nil, err
		}
		demoted = append(demoted, sib)
	}
	return demoted, nil
}

// Reorder sets the gallery order; mediaIDs must list every non-deleted media of the product
func (s *MediaService) Reorder(ctx context.Context, productID uuid.UUID, mediaIDs []uuid.UUID) ([]MediaResponse, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	items, err := s.mediaRepo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*catalog.ProductMedia, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}
	if len(mediaIDs) != len(byID) {
		return nil, shared.NewDomainError("INVALID_MEDIA_ORDER",
			fmt.Sprintf("Expected %d media IDs, got %d", len(byID), len(mediaIDs)))
	}

	seen := make(map[uuid.UUID]bool, len(mediaIDs))
	ordered := make([]*catalog.ProductMedia, 0, len(mediaIDs))
	for i, id := range mediaIDs {
		m, ok := byID[id]
		if !ok {
			return nil, shared.NewDomainError("INVALID_MEDIA_ORDER",
				fmt.Sprintf("Media %s does not belong to this product", id))
		}
		if seen[id] {
			return nil, shared.NewDomainError("INVALID_MEDIA_ORDER",
				fmt.Sprintf("Media %s is listed more than once", id))
		}
		seen[id] = true
		if err := m.SetSortOrder(i); err != nil {
			return nil, err
		}
		ordered = append(ordered, m)
	}

	if err := s.mediaRepo.SaveBatch(ctx, ordered); err != nil {
		return nil, err
	}

	responses := make([]MediaResponse, 0, len(ordered))
	for _, m := range ordered {
		responses = append(responses, s.withURL(ctx, m))
	}
	return responses, nil
}

// Delete soft-deletes the media, then removes the stored object and the record.
// A failed storage delete leaves the soft-deleted record for a later cleanup.
func (s *MediaService) Delete(ctx context.Context, productID, mediaID uuid.UUID) error {
	media, err := s.find(ctx, productID, mediaID)
	if err != nil {
		return err
	}
	wasPrimary := media.IsPrimary

	if err := media.Delete(); err != nil {
		return err
	}
	if err := s.mediaRepo.Save(ctx, media); err != nil {
		return err
	}
	s.publish(ctx, media.PopDomainEvents()...)

	if wasPrimary {
		s.promoteNextPrimary(ctx, productID)
	}

	if err := s.storage.DeleteObject(ctx, media.StorageKey); err != nil {
		s.logger.Warn("Failed to delete media object from storage",
			zap.String("media_id", media.ID.String()),
			zap.String("storage_key", media.StorageKey),
			zap.Error(err))
		return nil
	}
	return s.mediaRepo.Delete(ctx, media.ID)
}

// promoteNextPrimary makes the first remaining active image primary
func (s *MediaService) promoteNextPrimary(ctx context.Context, productID uuid.UUID) {
	items, err := s.mediaRepo.FindByProduct(ctx, productID)
	if err != nil {
		s.logger.Warn("Failed to load media for primary promotion", zap.String("product_id", productID.String()), zap.Error(err))
		return
	}
	for i := range items {
		m := &items[i]
		if !m.IsActive() || !m.IsImage() {
			continue
		}
		if err := m.SetPrimary(true); err != nil {
			return
		}
		if err := s.mediaRepo.Save(ctx, m); err != nil {
			s.logger.Warn("Failed to promote primary media", zap.String("media_id", m.ID.String()), zap.Error(err))
		}
		return
	}
}

func (s *MediaService) find(ctx context.Context, productID, mediaID uuid.UUID) (*catalog.ProductMedia, error) {
	media, err := s.mediaRepo.FindByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Media not found")
		}
		return nil, err
	}
	if media.ProductID != productID || media.IsDeleted() {
		return nil, shared.NewDomainError("NOT_FOUND", "Media not found")
	}
	return media, nil
}

func (s *MediaService) ensureProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
		}
		return err
	}
	return nil
}

// withURL adds a download URL to active media
func (s *MediaService) withURL(ctx context.Context, media *catalog.ProductMedia) MediaResponse {
	resp := ToMediaResponse(media)
	if !media.IsActive() {
		return resp
	}
	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, media.StorageKey, s.config.DownloadURLExpiry)
	if err != nil {
		s.logger.Warn("Failed to presign media download", zap.String("media_id", media.ID.String()), zap.Error(err))
		return resp
	}
	resp.URL = url
	resp.URLExpires = &expiresAt
	return resp
}

func (s *MediaService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish media events", zap.Int("events", len(events)), zap.Error(err))
	}
}

func primaryOf(items []catalog.ProductMedia) *catalog.ProductMedia {
	for i := range items {
		if items[i].IsPrimary && !items[i].IsDeleted() {
			return &items[i]
		}
	}
	return nil
}

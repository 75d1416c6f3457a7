package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
)

var _ catalogapp.ObjectStorageService = (*StubObjectStorage)(nil)

// StubObjectStorage is used when object storage is disabled.
// It hands out fake URLs and treats every key as uploaded unless it was deleted.
type StubObjectStorage struct {
	BaseURL string

	mu      sync.Mutex
	deleted map[string]struct{}
}

// NewStubObjectStorage creates a stub rooted at baseURL
func NewStubObjectStorage(baseURL string) *StubObjectStorage {
	if baseURL == "" {
		baseURL = "http://localhost:8080/media"
	}
	return &StubObjectStorage{
		BaseURL: strings.TrimRight(baseURL, "/"),
		deleted: make(map[string]struct{}),
	}
}

// GenerateUploadURL returns a fake upload URL
func (s *StubObjectStorage) GenerateUploadURL(_ context.Context, storageKey, _ string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errEmptyKey
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/upload/" + storageKey, expiresAt, nil
}

// GenerateDownloadURL returns a fake download URL
func (s *StubObjectStorage) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errEmptyKey
	}
	return s.BaseURL + "/" + storageKey, time.Now().Add(expiresIn), nil
}

// DeleteObject remembers the key as deleted
func (s *StubObjectStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted[storageKey] = struct{}{}
	return nil
}

// ObjectExists is true for every key not deleted through the stub
func (s *StubObjectStorage) ObjectExists(_ context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, gone := s.deleted[storageKey]
	return !gone, nil
}

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubObjectStorage(t *testing.T) {
	ctx := context.Background()
	stub := NewStubObjectStorage("https://cdn.test/media/")

	uploadURL, expiresAt, err := stub.GenerateUploadURL(ctx, "products/p1/a.jpg", "image/jpeg", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/media/upload/products/p1/a.jpg", uploadURL)
	assert.True(t, expiresAt.After(time.Now()))

	downloadURL, _, err := stub.GenerateDownloadURL(ctx, "products/p1/a.jpg", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/media/products/p1/a.jpg", downloadURL)

	exists, err := stub.ObjectExists(ctx, "products/p1/a.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, stub.DeleteObject(ctx, "products/p1/a.jpg"))
	exists, err = stub.ObjectExists(ctx, "products/p1/a.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStubObjectStorage_EmptyKey(t *testing.T) {
	ctx := context.Background()
	stub := NewStubObjectStorage("")

	_, _, err := stub.GenerateUploadURL(ctx, "", "image/png", time.Minute)
	assert.ErrorIs(t, err, errEmptyKey)
	_, _, err = stub.GenerateDownloadURL(ctx, "", time.Minute)
	assert.ErrorIs(t, err, errEmptyKey)
	assert.ErrorIs(t, stub.DeleteObject(ctx, ""), errEmptyKey)
	_, err = stub.ObjectExists(ctx, "")
	assert.ErrorIs(t, err, errEmptyKey)
}

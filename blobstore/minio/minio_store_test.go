package minio

import (
	"context"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/strata/blobstore"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{StatusCode: http.StatusNotFound}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}))
}

func TestMinioBlob_Bounds(t *testing.T) {
	b := &minioBlob{size: 10}
	ctx := context.Background()

	n, err := b.ReadAt(ctx, make([]byte, 4), 10)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	n, err = b.ReadAt(ctx, nil, 3)
	assert.Equal(t, 0, n)
	assert.NoError(t, err)

	rc, err := b.ReadRange(ctx, 12, 4)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Empty(t, data)

	assert.Equal(t, int64(9), b.clamp(6, 100))
	assert.Equal(t, int64(7), b.clamp(6, 2))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Set MINIO_ENDPOINT (e.g. localhost:9000) to enable it.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("Skipping MinIO integration test: MINIO_ENDPOINT not set")
	}
	bucket := "test-strata"

	store, err := Connect(Config{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}, bucket, "test-prefix/")
	require.NoError(t, err)

	ctx := context.Background()

	exists, err := store.client.BucketExists(ctx, bucket)
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}
	if !exists {
		require.NoError(t, store.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.txt", data))

	blob, err := store.Open(ctx, "test.txt")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, len(data))
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	n, err = blob.ReadAt(ctx, buf, 6)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "minio world", string(buf[:n]))

	w, err := store.Create(ctx, "stream.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = store.Create(ctx, "aborted.bin")
	require.NoError(t, err)
	_, _ = w.Write([]byte("partial"))
	require.NoError(t, w.(blobstore.Aborter).Abort())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "stream.bin")
	assert.NotContains(t, names, "aborted.bin")

	_, err = store.Open(ctx, "aborted.bin")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	for _, name := range []string{"test.txt", "stream.bin"} {
		require.NoError(t, store.Delete(ctx, name))
	}
}

package minio_test

import (
	"context"
	"os"
	"testing"

	"github.com/katalvlaran/wavemoth/blobstore"
	"github.com/katalvlaran/wavemoth/blobstore/minio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDial(t *testing.T) {
	c, err := minio.Dial("localhost:9000", "key", "secret", false)
	require.NoError(t, err)
	assert.NotNil(t, minio.NewStore(c, "bucket", "prefix"))
}

// TestStoreIntegration runs against a live server when WAVEMOTH_MINIO_ENDPOINT
// names one; the bucket in WAVEMOTH_MINIO_BUCKET must exist.
func TestStoreIntegration(t *testing.T) {
	endpoint := os.Getenv("WAVEMOTH_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("WAVEMOTH_MINIO_ENDPOINT not set")
	}
	c, err := minio.Dial(endpoint, os.Getenv("WAVEMOTH_MINIO_ACCESS_KEY"), os.Getenv("WAVEMOTH_MINIO_SECRET_KEY"), false)
	require.NoError(t, err)
	s := minio.NewStore(c, os.Getenv("WAVEMOTH_MINIO_BUCKET"), "wavemoth-test")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "rev1/4.dat", []byte("0123456789")))
	defer func() { _ = s.Delete(ctx, "rev1/4.dat") }()

	b, err := s.Open(ctx, "rev1/4.dat")
	require.NoError(t, err)
	buf := make([]byte, 3)
	_, err = b.ReadAt(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, "456", string(buf))

	names, err := s.List(ctx, "rev1/")
	require.NoError(t, err)
	assert.Contains(t, names, "rev1/4.dat")

	_, err = s.Open(ctx, "rev1/missing.dat")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

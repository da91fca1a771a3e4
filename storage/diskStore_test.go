package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_SaveAndDelete(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")

	store, err := NewDiskStore(dir, "/uploads/")
	require.NoError(t, err)

	ref, err := store.Save(ctx, "1700000000000-abcd1234.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1700000000000-abcd1234.png", ref)

	data, err := os.ReadFile(filepath.Join(dir, "1700000000000-abcd1234.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = store.Save(ctx, "1700000000000-abcd1234.png", "image/png", strings.NewReader("again"))
	assert.Error(t, err, "existing files are never overwritten")

	require.NoError(t, store.Delete(ctx, ref))
	_, err = os.Stat(filepath.Join(dir, "1700000000000-abcd1234.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, ref), "deleting a missing file is a no-op")
}

func TestDiskStore_SaveStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "/uploads")
	require.NoError(t, err)

	ref, err := store.Save(context.Background(), "../../escape.jpg", "image/jpeg", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/escape.jpg", ref)
	assert.FileExists(t, filepath.Join(dir, "escape.jpg"))
}

func TestS3Store_Key(t *testing.T) {
	s := &S3Store{bucket: "b", baseURL: "https://b.s3.eu-west-1.amazonaws.com/", prefix: "issues"}
	assert.Equal(t, "issues/a.png", s.key("a.png"))

	s.prefix = ""
	assert.Equal(t, "a.png", s.key("a.png"))

	err := s.Delete(context.Background(), "https://elsewhere.example.com/a.png")
	assert.Error(t, err)
}

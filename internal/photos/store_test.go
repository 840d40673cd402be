package photos

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("0000JFIF")...)
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		max      int64
		expected string
		err      error
	}{
		{name: "jpeg", data: jpegBytes, expected: "image/jpeg"},
		{name: "png", data: pngBytes, expected: "image/png"},
		{name: "text rejected", data: []byte("hello world"), err: ErrUnsupportedType},
		{name: "too large", data: pngBytes, max: 4, err: ErrTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Sniff(tc.data, tc.max)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestDiskStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "photos")
	store, err := NewDiskStore(dir, 1<<20)
	require.NoError(t, err)

	saved, err := store.Save(context.Background(), pngBytes)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(saved.Key, ".png"))
	assert.Equal(t, "image/png", saved.ContentType)

	reader, info, err := store.Open(context.Background(), saved.Key)
	require.NoError(t, err)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, body)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, int64(len(pngBytes)), info.Size)
}

func TestDiskStoreOpenRejectsTraversal(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), 0)
	require.NoError(t, err)

	_, _, err = store.Open(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = store.Open(context.Background(), "missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStoreRejectsNonImages(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), 0)
	require.NoError(t, err)
	_, err = store.Save(context.Background(), []byte("<html></html>"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDiskStoreDelete(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), 0)
	require.NoError(t, err)
	ctx := context.Background()

	saved, err := store.Save(ctx, jpegBytes)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, saved.Key))

	_, _, err = store.Open(ctx, saved.Key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(ctx, saved.Key), "deleting twice is a no-op")
	assert.ErrorIs(t, store.Delete(ctx, "../outside.jpg"), ErrNotFound)
}

package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType rejects uploads that are not JPEG, PNG or WebP.
	ErrUnsupportedType = errors.New("only JPEG, PNG and WebP images are allowed")
	// ErrTooLarge rejects uploads over the configured size limit.
	ErrTooLarge = errors.New("photo exceeds size limit")
	// ErrNotFound is returned when a photo key does not exist.
	ErrNotFound = errors.New("photo not found")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Photo is a stored complaint photo.
type Photo struct {
	Key         string
	ContentType string
	Size        int64
}

// Store persists complaint photos.
type Store interface {
	Save(ctx context.Context, data []byte) (Photo, error)
	Open(ctx context.Context, key string) (io.ReadCloser, Photo, error)
	// Delete removes a photo. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// Sniff validates the image payload and returns its content type. Client
// supplied headers are ignored.
func Sniff(data []byte, maxBytes int64) (string, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	contentType := http.DetectContentType(data)
	if _, ok := extensions[contentType]; !ok {
		return "", ErrUnsupportedType
	}
	return contentType, nil
}

func newKey(contentType string) string {
	return uuid.NewString() + extensions[contentType]
}

func contentTypeForKey(key string) string {
	for contentType, ext := range extensions {
		if strings.EqualFold(filepath.Ext(key), ext) {
			return contentType
		}
	}
	return "application/octet-stream"
}

// DiskStore keeps photos in a local directory.
type DiskStore struct {
	dir      string
	maxBytes int64
}

// NewDiskStore creates the directory if needed.
func NewDiskStore(dir string, maxBytes int64) (*DiskStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("photo directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo dir: %w", err)
	}
	return &DiskStore{dir: dir, maxBytes: maxBytes}, nil
}

// Save writes the photo under a random name.
func (s *DiskStore) Save(_ context.Context, data []byte) (Photo, error) {
	contentType, err := Sniff(data, s.maxBytes)
	if err != nil {
		return Photo{}, err
	}
	key := newKey(contentType)
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return Photo{}, fmt.Errorf("write photo: %w", err)
	}
	return Photo{Key: key, ContentType: contentType, Size: int64(len(data))}, nil
}

// Open returns a reader for a stored photo.
func (s *DiskStore) Open(_ context.Context, key string) (io.ReadCloser, Photo, error) {
	if key == "" || key != filepath.Base(key) {
		return nil, Photo{}, ErrNotFound
	}
	file, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Photo{}, ErrNotFound
		}
		return nil, Photo{}, fmt.Errorf("open photo: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, Photo{}, fmt.Errorf("stat photo: %w", err)
	}
	return file, Photo{Key: key, ContentType: contentTypeForKey(key), Size: info.Size()}, nil
}

// Delete removes a stored photo.
func (s *DiskStore) Delete(_ context.Context, key string) error {
	if key == "" || key != filepath.Base(key) {
		return ErrNotFound
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

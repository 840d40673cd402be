package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// MinioConfig locates an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore keeps photos in an S3-compatible bucket.
type MinioStore struct {
	client   *minio.Client
	bucket   string
	maxBytes int64
}

// NewMinioStore connects to the endpoint and creates the bucket when missing.
func NewMinioStore(ctx context.Context, cfg MinioConfig, maxBytes int64) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		logrus.WithField("bucket", cfg.Bucket).Info("created photo bucket")
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, maxBytes: maxBytes}, nil
}

// Save uploads the photo under a random key.
func (s *MinioStore) Save(ctx context.Context, data []byte) (Photo, error) {
	contentType, err := Sniff(data, s.maxBytes)
	if err != nil {
		return Photo{}, err
	}
	key := newKey(contentType)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Photo{}, fmt.Errorf("failed to upload photo: %w", err)
	}
	return Photo{Key: key, ContentType: contentType, Size: int64(len(data))}, nil
}

// Open streams a stored photo.
func (s *MinioStore) Open(ctx context.Context, key string) (io.ReadCloser, Photo, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Photo{}, fmt.Errorf("failed to get object: %w", err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, Photo{}, ErrNotFound
		}
		return nil, Photo{}, fmt.Errorf("stat object: %w", err)
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = contentTypeForKey(key)
	}
	return obj, Photo{Key: key, ContentType: contentType, Size: info.Size}, nil
}

// Delete removes the object. S3 treats missing keys as deleted.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"github.com/inkpress/storybook-api/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the interface to the binary storage backend. Photos and
// illustration images are stored here; only their object names are persisted
// in the database.
type ObjectStore interface {
	// Put uploads the content of reader under the given object name and
	// returns the object name. size may be -1 if unknown.
	Put(ctx context.Context, objectName string, reader io.Reader, size int64) (string, error)

	// PresignedURL returns a time-limited GET URL for the given object.
	PresignedURL(ctx context.Context, objectName string) (string, error)
}

// MinioStore implements ObjectStore using a MinIO (or any S3-compatible)
// bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	urlExpiry time.Duration
	logger    *slog.Logger
}

// NewMinioStore creates a new MinIO-backed object store and ensures the
// configured bucket exists. If logger is nil, a default logger will be used.
func NewMinioStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("storage endpoint cannot be empty")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket cannot be empty")
	}

	if logger == nil {
		logger = slog.Default()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.Bucket, err)
		}
		logger.Info("storage bucket created", slog.String("bucket", cfg.Bucket))
	}

	expiry := time.Duration(cfg.URLExpiryHours) * time.Hour
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	return &MinioStore{
		client:    client,
		bucket:    cfg.Bucket,
		urlExpiry: expiry,
		logger:    logger.With(slog.String("component", "object_store")),
	}, nil
}

// Ensure MinioStore implements ObjectStore
var _ ObjectStore = (*MinioStore)(nil)

// Put implements ObjectStore.Put
func (s *MinioStore) Put(
	ctx context.Context,
	objectName string,
	reader io.Reader,
	size int64,
) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: ContentTypeForObject(objectName),
	})
	if err != nil {
		s.logger.Error("failed to upload object",
			slog.String("error", err.Error()),
			slog.String("object", objectName))
		return "", fmt.Errorf("failed to upload %q: %w", objectName, err)
	}

	s.logger.Debug("object uploaded", slog.String("object", objectName))
	return objectName, nil
}

// PresignedURL implements ObjectStore.PresignedURL
func (s *MinioStore) PresignedURL(ctx context.Context, objectName string) (string, error) {
	presigned, err := s.client.PresignedGetObject(
		ctx,
		s.bucket,
		objectName,
		s.urlExpiry,
		url.Values{},
	)
	if err != nil {
		s.logger.Error("failed to presign object URL",
			slog.String("error", err.Error()),
			slog.String("object", objectName))
		return "", fmt.Errorf("failed to presign %q: %w", objectName, err)
	}

	return presigned.String(), nil
}

// ContentTypeForObject derives a content type from the object name's
// extension, defaulting to application/octet-stream.
func ContentTypeForObject(objectName string) string {
	switch filepath.Ext(objectName) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

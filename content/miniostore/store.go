// Package miniostore provides a MinIO/S3-backed content.Store. Artifacts are
// regular objects in a single bucket; temporary links are presigned GET URLs.
package miniostore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/A-calculus/personalisedU/logging"
)

// Config carries the MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Options configures the store beyond connection settings.
type Options struct {
	Logger logging.Logger
}

// Store implements content.Store on a MinIO bucket.
type Store struct {
	mc     *minio.Client
	bucket string
	logger logging.Logger
}

// NewStore creates a MinIO-backed store. The bucket must be ensured
// separately via EnsureBucket before first use.
func NewStore(cfg Config, optFns ...func(o *Options)) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access key and secret key are required")
	}

	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "personalisedu"
	}
	return &Store{mc: mc, bucket: bucket, logger: opts.Logger}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		s.logger.Info("content.minio.bucket_created", "bucket", s.bucket)
	}
	return nil
}

// Put uploads the artifact bytes under name.
func (s *Store) Put(ctx context.Context, name string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.mc.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	s.logger.Debug("content.minio.uploaded", "name", name, "bytes", len(data))
	return nil
}

// TemporaryLink returns a presigned GET URL valid for ttl.
func (s *Store) TemporaryLink(ctx context.Context, name string, ttl time.Duration) (string, error) {
	u, err := s.mc.PresignedGetObject(ctx, s.bucket, name, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", name, err)
	}
	return u.String(), nil
}

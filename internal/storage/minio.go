package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"flower-shop/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioImageStore keeps images in an S3-compatible bucket. Images are still
// addressed by the application's public prefix and streamed through it.
type MinioImageStore struct {
	client *minio.Client
	bucket string
	prefix string
	logger *zap.Logger
}

func NewMinioImageStore(ctx context.Context, cfg config.MinioConfig, prefix string, logger *zap.Logger) (*MinioImageStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("MinIO endpoint is not configured")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("image bucket is not configured")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	store := &MinioImageStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
		logger: logger,
	}

	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *MinioImageStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check image bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create image bucket: %w", err)
	}

	s.logger.Info("Created image bucket", zap.String("bucket", s.bucket))
	return nil
}

func (s *MinioImageStore) Save(ctx context.Context, r io.Reader, size int64, originalFilename string) (string, error) {
	if r == nil || size == 0 {
		return "", nil
	}

	name := NewImageName(originalFilename)

	info, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: ContentType(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	if info.Size == 0 {
		_ = s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
		return "", nil
	}

	s.logger.Debug("Image uploaded",
		zap.String("bucket", s.bucket),
		zap.String("name", name),
		zap.Int64("bytes", info.Size),
	)

	return publicURL(s.prefix, name), nil
}

func (s *MinioImageStore) DeleteIfExists(ctx context.Context, url string) error {
	name, ok := NameFromURL(s.prefix, url)
	if !ok {
		return nil
	}

	err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	s.logger.Debug("Image deleted", zap.String("bucket", s.bucket), zap.String("name", name))
	return nil
}

func (s *MinioImageStore) Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error) {
	if !IsImageName(name) {
		return nil, ObjectInfo{}, ErrImageNotFound
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ObjectInfo{}, ErrImageNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("failed to get image: %w", err)
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, ObjectInfo{}, ErrImageNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("failed to stat image: %w", err)
	}

	return obj, ObjectInfo{
		Name:        name,
		Size:        stat.Size,
		ContentType: stat.ContentType,
		ModTime:     stat.LastModified,
	}, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// Package documents хранит загруженные продавцами документы (удостоверения личности) в S3-совместимом хранилище.
package documents

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config описывает подключение к хранилищу.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store загружает документы в бакет MinIO.
type Store struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewStore подключается к хранилищу и создаёт бакет, если его ещё нет.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("document bucket created", zap.String("bucket", cfg.Bucket))
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.Named("documents"),
	}, nil
}

// ObjectKey формирует уникальный ключ объекта, сохраняя расширение исходного файла.
func ObjectKey(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("id-documents/%s%s", uuid.NewString(), ext)
}

// Upload сохраняет документ и возвращает его ключ в бакете.
func (s *Store) Upload(ctx context.Context, originalName, contentType string, r io.Reader, size int64) (string, error) {
	key := ObjectKey(originalName)

	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	s.logger.Info("id document uploaded",
		zap.String("key", key),
		zap.Int64("size", info.Size))

	return key, nil
}

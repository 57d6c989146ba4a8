// Package storage archives rendered report files in an S3 compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/config"
)

// Archive uploads report files.
type Archive interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// MinioArchive stores objects in a single bucket.
type MinioArchive struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewMinioArchive connects to the endpoint and makes sure the bucket exists.
func NewMinioArchive(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*MinioArchive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("report bucket created", zap.String("bucket", cfg.Bucket))
	}

	return &MinioArchive{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Upload writes r under key, replacing any previous object.
func (a *MinioArchive) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	info, err := a.client.PutObject(ctx, a.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	a.logger.Info("report archived", zap.String("bucket", a.bucket), zap.String("key", key), zap.Int64("size", info.Size))
	return nil
}

// DailyReportKey is the object key of a scheduled daily workbook.
func DailyReportKey(section, periodKey string, day int) string {
	return path.Join("reports", section, periodKey, fmt.Sprintf("daily_%02d.xlsx", day))
}

package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/sinyoro/market-service/internal/config"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

// S3Storage offloads listing photos to a MinIO (S3 compatible) bucket.
type S3Storage struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

func NewS3Storage(ctx context.Context, cfg *config.MinIOConfig, log *logger.Logger) (*S3Storage, error) {
	log = log.Named("s3")
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to make bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("S3Storage: bucket created", zap.String("bucket", cfg.Bucket))
	}

	return &S3Storage{client: client, bucket: cfg.Bucket, logger: log}, nil
}

// objectKey keeps the caller's directory and extension and makes the base
// name unique so a re-upload never overwrites an older photo.
func objectKey(fileName string) string {
	dir, base := path.Split(fileName)
	ext := strings.ToLower(path.Ext(base))
	return "photos/" + dir + uuid.NewString() + ext
}

func (s *S3Storage) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	key := objectKey(fileName)

	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: http.DetectContentType(data),
	})
	if err != nil {
		s.logger.Error("S3Storage.Upload: PutObject failed", zap.String("bucket", s.bucket), zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", key, s.bucket, err)
	}

	s.logger.Info("S3Storage.Upload: file uploaded",
		zap.String("key", info.Key),
		zap.String("etag", info.ETag),
		zap.Int64("size", info.Size))

	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, key), nil
}

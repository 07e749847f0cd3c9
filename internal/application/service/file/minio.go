package file

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/agentmemz/agentmemz/internal/config"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

// minioBlobStore stores audio artifacts in a MinIO (or S3-compatible)
// bucket.
type minioBlobStore struct {
	client *minio.Client
	bucket string
}

// NewMinioBlobStore creates a MinIO-backed blob store, creating the bucket
// if it does not exist yet.
func NewMinioBlobStore(cfg config.BlobConfig) (interfaces.BlobStore, error) {
	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check MinIO bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create MinIO bucket: %w", err)
		}
	}

	return &minioBlobStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *minioBlobStore) Store(ctx context.Context, userID, sessionID, filename string, data io.Reader, size int64, contentType string) (string, error) {
	key := objectKey(userID, sessionID, filename)

	_, err := s.client.PutObject(ctx, s.bucket, key, data, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio to MinIO: %w", err)
	}

	return fmt.Sprintf("minio://%s/%s", s.bucket, key), nil
}

func (s *minioBlobStore) PresignedURL(ctx context.Context, ref string) (string, error) {
	bucket, key, err := parseRef(ref, "minio://")
	if err != nil {
		return "", err
	}

	u, err := s.client.PresignedGetObject(ctx, bucket, key, presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate MinIO presigned URL: %w", err)
	}
	return u.String(), nil
}

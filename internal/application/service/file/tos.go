package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volcengine/ve-tos-golang-sdk/v2/tos"
	"github.com/volcengine/ve-tos-golang-sdk/v2/tos/enum"

	"github.com/agentmemz/agentmemz/internal/config"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

// tosBlobStore stores audio artifacts in Volcengine TOS.
type tosBlobStore struct {
	client *tos.ClientV2
	bucket string
}

// NewTOSBlobStore creates a TOS-backed blob store, creating the bucket if
// it does not exist yet.
func NewTOSBlobStore(cfg config.BlobConfig) (interfaces.BlobStore, error) {
	client, err := tos.NewClientV2(
		cfg.TOS.Endpoint,
		tos.WithRegion(cfg.TOS.Region),
		tos.WithCredentials(tos.NewStaticCredentials(cfg.TOS.AccessKey, cfg.TOS.SecretKey)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize TOS client: %w", err)
	}

	if err := ensureTOSBucket(client, cfg.Bucket); err != nil {
		return nil, err
	}

	return &tosBlobStore{client: client, bucket: cfg.Bucket}, nil
}

func ensureTOSBucket(client *tos.ClientV2, bucket string) error {
	_, err := client.HeadBucket(context.Background(), &tos.HeadBucketInput{
		Bucket: bucket,
	})
	if err == nil {
		return nil
	}

	var serverErr *tos.TosServerError
	if errors.As(err, &serverErr) && serverErr.StatusCode == 404 {
		_, createErr := client.CreateBucketV2(context.Background(), &tos.CreateBucketV2Input{
			Bucket: bucket,
		})
		if createErr == nil {
			return nil
		}
		if errors.As(createErr, &serverErr) && serverErr.StatusCode == 409 {
			return nil
		}
		return fmt.Errorf("failed to create TOS bucket: %w", createErr)
	}

	return fmt.Errorf("failed to check TOS bucket: %w", err)
}

func (s *tosBlobStore) Store(ctx context.Context, userID, sessionID, filename string, data io.Reader, size int64, contentType string) (string, error) {
	key := objectKey(userID, sessionID, filename)

	_, err := s.client.PutObjectV2(ctx, &tos.PutObjectV2Input{
		PutObjectBasicInput: tos.PutObjectBasicInput{
			Bucket:        s.bucket,
			Key:           key,
			ContentType:   contentType,
			ContentLength: size,
		},
		Content: data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio to TOS: %w", err)
	}

	return fmt.Sprintf("tos://%s/%s", s.bucket, key), nil
}

func (s *tosBlobStore) PresignedURL(ctx context.Context, ref string) (string, error) {
	bucket, key, err := parseRef(ref, "tos://")
	if err != nil {
		return "", err
	}

	output, err := s.client.PreSignedURL(&tos.PreSignedURLInput{
		HTTPMethod: enum.HttpMethodGet,
		Bucket:     bucket,
		Key:        key,
		Expires:    int64(presignExpiry.Seconds()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOS presigned URL: %w", err)
	}
	return output.SignedUrl, nil
}

// presignExpiry matches the embedding cache retention so a stored audio
// reference stays resolvable for at least as long as its transcript.
const presignExpiry = 7 * 24 * time.Hour

func objectKey(userID, sessionID, filename string) string {
	ext := filepath.Ext(filename)
	parts := []string{"audio", userID, sessionID, uuid.New().String() + ext}
	filtered := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			filtered = append(filtered, p)
		}
	}
	return strings.Join(filtered, "/")
}

func parseRef(ref, scheme string) (bucket, key string, err error) {
	if !strings.HasPrefix(ref, scheme) {
		return "", "", fmt.Errorf("invalid blob reference: %s", ref)
	}
	rest := strings.TrimPrefix(ref, scheme)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid blob reference: %s", ref)
	}
	return parts[0], parts[1], nil
}

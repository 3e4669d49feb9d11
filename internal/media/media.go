package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Uploader stores publication images and hands back public URLs. Remove
// exists so a failed publication can clean up what it already uploaded.
type Uploader interface {
	Upload(ctx context.Context, img Image) (string, error)
	Remove(ctx context.Context, publicURL string) error
}

// Image is one image payload headed for object storage.
type Image struct {
	Data        []byte
	ContentType string
	// Filename is only used for its extension.
	Filename string
}

// Config mirrors the media section of the service configuration.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// ObjectStore is the S3-compatible Uploader.
type ObjectStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *zap.SugaredLogger
}

func NewObjectStore(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("media client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("media bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("media bucket create: %w", err)
		}
		if logger != nil {
			logger.Infow("Created media bucket", "bucket", cfg.Bucket)
		}
	}

	return &ObjectStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    logger,
	}, nil
}

// Upload writes one image under a fresh key and returns its public URL.
func (s *ObjectStore) Upload(ctx context.Context, img Image) (string, error) {
	key := objectKey(img.Filename)
	opts := minio.PutObjectOptions{ContentType: img.ContentType}
	if opts.ContentType == "" {
		opts.ContentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(img.Data), int64(len(img.Data)), opts)
	if err != nil {
		return "", fmt.Errorf("media upload: %w", err)
	}

	return s.publicURL + "/" + key, nil
}

// Remove deletes the object behind a URL previously returned by Upload.
// Unknown URLs are ignored so compensation never fails on partial state.
func (s *ObjectStore) Remove(ctx context.Context, publicURL string) error {
	key := strings.TrimPrefix(publicURL, s.publicURL+"/")
	if key == publicURL || key == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("media remove: %w", err)
	}
	return nil
}

// objectKey shards uploads by month so bucket listings stay usable.
func objectKey(filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("animals/%s/%s%s", time.Now().Format("2006-01"), uuid.New().String(), ext)
}

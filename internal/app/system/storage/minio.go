// internal/app/system/storage/minio.go
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig configures an S3-compatible bucket.
type MinIOConfig struct {
	Endpoint  string // host:port, no scheme
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base clients use to fetch objects. Empty means
	// <scheme>://<endpoint>/<bucket>.
	PublicURL string
}

// MinIO stores objects in an S3-compatible bucket.
type MinIO struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIO connects and makes sure the bucket exists.
func NewMinIO(ctx context.Context, cfg MinIOConfig) (*MinIO, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIO{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicBase(cfg),
	}, nil
}

func publicBase(cfg MinIOConfig) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
}

// Put uploads r as a new object.
func (m *MinIO) Put(ctx context.Context, area, filename string, r io.Reader, size int64, contentType string) (Object, error) {
	key := ObjectKey(area, filename, time.Now())
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload file to MinIO: %w", err)
	}
	return Object{
		ID:          key,
		URL:         m.publicURL + "/" + key,
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}

// Delete removes the object. S3 treats deleting a missing key as success;
// NoSuchKey is tolerated as well for gateways that report it.
func (m *MinIO) Delete(ctx context.Context, id string) error {
	err := m.client.RemoveObject(ctx, m.bucket, id, minio.RemoveObjectOptions{})
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil
	}
	return fmt.Errorf("failed to remove file from MinIO: %w", err)
}

// IDFromURL recovers the object key from a public URL.
func (m *MinIO) IDFromURL(rawURL string) (string, bool) {
	prefix := m.publicURL + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	id, err := url.PathUnescape(strings.TrimPrefix(rawURL, prefix))
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

// PresignedURL returns a time-limited download URL for the object.
func (m *MinIO) PresignedURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, id, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

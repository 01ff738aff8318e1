// internal/app/system/storage/storage.go
//
// Package storage is the object storage gateway for uploaded files. Objects
// are addressed by an opaque id (the object key); clients only ever see the
// object's public URL.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Object is a stored file.
type Object struct {
	ID          string // object key, used for deletes
	URL         string // absolute http(s) URL clients fetch the file from
	Size        int64
	ContentType string
}

// Gateway stores and removes uploaded files.
//
// Delete is idempotent: removing an object that does not exist is not an
// error.
type Gateway interface {
	Put(ctx context.Context, area, filename string, r io.Reader, size int64, contentType string) (Object, error)
	Delete(ctx context.Context, id string) error
	IDFromURL(rawURL string) (string, bool)
}

// Presigner is implemented by gateways that can mint time-limited
// download URLs.
type Presigner interface {
	PresignedURL(ctx context.Context, id string, expiry time.Duration) (string, error)
}

var (
	_ Gateway   = (*Local)(nil)
	_ Gateway   = (*MinIO)(nil)
	_ Presigner = (*MinIO)(nil)
)

// ObjectKey builds a unique key of the form area/YYYY/MM/uuid8-filename.
func ObjectKey(area, filename string, now time.Time) string {
	now = now.UTC()
	dateDir := fmt.Sprintf("%s/%04d/%02d", area, now.Year(), now.Month())
	uniqueName := fmt.Sprintf("%s-%s", uuid.New().String()[:8], sanitizeFilename(filename))
	return path.Join(dateDir, uniqueName)
}

// sanitizeFilename removes or replaces characters that could be problematic in keys and URLs.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filepath.ToSlash(filename))
	if filename == "." || filename == "/" {
		filename = ""
	}

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "file"
	}
	if len(result) > 100 {
		// Truncate but preserve extension if present
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}
	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}

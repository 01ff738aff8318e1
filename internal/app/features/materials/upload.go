package materials

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/dalemusser/tutorhub/internal/app/system/storage"
)

// storageArea is the key prefix for material objects.
const storageArea = "materials"

// allowedTypes are the content types a material file may have.
var allowedTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain": true,
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// formFile returns the "file" part, or nil when the request has none.
func formFile(r *http.Request) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 || files[0].Size == 0 {
		return nil
	}
	return files[0]
}

// checkFile enforces the size cap and the type whitelist and returns the
// resolved content type. Nothing has been uploaded yet when it fails.
func (h *Handler) checkFile(fh *multipart.FileHeader) (string, error) {
	if fh.Size > h.MaxUpload {
		return "", apierr.BadRequest(fmt.Sprintf("File too large (max %d MB)", h.MaxUpload>>20))
	}
	ct, err := contentType(fh)
	if err != nil {
		return "", err
	}
	if !allowedTypes[ct] {
		return "", apierr.BadRequest("Unsupported file type: " + ct)
	}
	return ct, nil
}

// contentType trusts the part header first, then the file extension, then
// sniffs the leading bytes.
func contentType(fh *multipart.FileHeader) (string, error) {
	if mt, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type")); err == nil && mt != "application/octet-stream" {
		return mt, nil
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename))); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt, nil
		}
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := io.ReadFull(f, buf)
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(buf[:n]))
	return mt, nil
}

// put streams the part into object storage.
func (h *Handler) put(ctx context.Context, fh *multipart.FileHeader, ct string) (storage.Object, error) {
	f, err := fh.Open()
	if err != nil {
		return storage.Object{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	obj, err := h.Storage.Put(ctx, storageArea, fh.Filename, f, fh.Size, ct)
	if err != nil {
		return storage.Object{}, fmt.Errorf("upload material file: %w", err)
	}
	return obj, nil
}

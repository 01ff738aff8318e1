// internal/app/system/storage/local.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	wafflestorage "github.com/dalemusser/waffle/pantry/storage"
)

// Local keeps objects on the local filesystem through waffle's local
// backend and serves them from baseURL (e.g. http://localhost:8080/files).
type Local struct {
	store   *wafflestorage.Local
	root    string
	baseURL string
	urlPath string
}

// NewLocal creates root if needed. baseURL must be an absolute http(s) URL.
func NewLocal(root, baseURL string) (*Local, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("storage: local base URL %q must be an absolute http(s) URL", baseURL)
	}
	store, err := wafflestorage.NewLocal(wafflestorage.LocalConfig{
		BasePath: root,
		BaseURL:  baseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: local backend: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root %q: %w", root, err)
	}
	return &Local{
		store:   store,
		root:    abs,
		baseURL: strings.TrimRight(baseURL, "/"),
		urlPath: "/" + strings.Trim(u.Path, "/"),
	}, nil
}

// Put writes r to a new object under a fresh key.
func (l *Local) Put(ctx context.Context, area, filename string, r io.Reader, size int64, contentType string) (Object, error) {
	key := ObjectKey(area, filename, time.Now())
	cr := &countingReader{r: r}
	if err := l.store.Put(ctx, key, cr, &wafflestorage.PutOptions{ContentType: contentType}); err != nil {
		return Object{}, fmt.Errorf("storage: write %s: %w", key, err)
	}
	return Object{
		ID:          key,
		URL:         l.store.URL(key),
		Size:        cr.n,
		ContentType: contentType,
	}, nil
}

// Delete removes the object; a missing object is not an error.
func (l *Local) Delete(ctx context.Context, id string) error {
	err := l.store.Delete(ctx, id)
	if err == nil || errors.Is(err, wafflestorage.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("storage: delete %s: %w", id, err)
}

// IDFromURL recovers the object key from a URL produced by Put.
func (l *Local) IDFromURL(rawURL string) (string, bool) {
	prefix := l.baseURL + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(rawURL, prefix)
	if id == "" {
		return "", false
	}
	return id, true
}

// URLPath is the path component files are served under (e.g. "/files").
func (l *Local) URLPath() string { return l.urlPath }

// Handler serves stored objects; mount it at URLPath().
func (l *Local) Handler() http.Handler {
	return http.StripPrefix(l.urlPath, http.FileServer(http.Dir(l.root)))
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

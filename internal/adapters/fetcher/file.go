package fetcher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

// FileFetcher serves file:// URLs from local disk, for blob stores mirrored to a directory.
// A missing file is reported as 404 so callers treat it like an HTTP miss.
type FileFetcher struct{}

// NewFileFetcher creates a local file fetcher.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Fetch opens the file named by a file:// URL.
func (f *FileFetcher) Fetch(ctx context.Context, rawURL string) (*ports.Resource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	path := filepath.FromSlash(u.Path)

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return &ports.Resource{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &ports.Resource{
		StatusCode:  http.StatusOK,
		ContentType: contentType,
		Body:        file,
	}, nil
}

// MultiFetcher dispatches by URL scheme.
type MultiFetcher struct {
	fetchers map[string]ports.ContentFetcher
}

// NewMultiFetcher handles http, https and file URLs.
func NewMultiFetcher(web ports.ContentFetcher) *MultiFetcher {
	return &MultiFetcher{
		fetchers: map[string]ports.ContentFetcher{
			"http":  web,
			"https": web,
			"file":  NewFileFetcher(),
		},
	}
}

// Fetch dispatches to the fetcher registered for the URL's scheme.
func (m *MultiFetcher) Fetch(ctx context.Context, rawURL string) (*ports.Resource, error) {
	scheme, _, ok := strings.Cut(rawURL, "://")
	if !ok {
		return nil, fmt.Errorf("no scheme in %q", rawURL)
	}
	f, ok := m.fetchers[strings.ToLower(scheme)]
	if !ok {
		return nil, fmt.Errorf("unsupported scheme %q", scheme)
	}
	return f.Fetch(ctx, rawURL)
}

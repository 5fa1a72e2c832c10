// Package fetcher provides content fetching adapters.
// Clean Architecture: Adapter implementing ports.ContentFetcher.
// Attachment bytes are read over plain HTTP from the blob store's public URLs.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

// HTTPFetcher implements ports.ContentFetcher with an http.Client.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher with the given timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: "deskmate/1.0",
	}
}

// Fetch issues a GET. Non-2xx responses are returned, not treated as errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*ports.Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	return &ports.Resource{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
	}, nil
}

// IsHealthy checks that a URL answers with 200.
func (f *HTTPFetcher) IsHealthy(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Package blobstore resolves stored object paths to public URLs.
package blobstore

import (
	"net/url"
	"strings"
)

// PublicBucket implements ports.BlobStore for a storage bucket served at
// <base>/storage/v1/object/public/<bucket>/<path>.
type PublicBucket struct {
	baseURL string
	bucket  string
}

// NewPublicBucket creates a resolver for one bucket.
func NewPublicBucket(baseURL, bucket string) *PublicBucket {
	return &PublicBucket{
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
	}
}

// PublicURL escapes every path segment and keeps the separators.
func (b *PublicBucket) PublicURL(path string) string {
	if path == "" || b.baseURL == "" {
		return ""
	}
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.baseURL + "/storage/v1/object/public/" + url.PathEscape(b.bucket) + "/" + strings.Join(segments, "/")
}

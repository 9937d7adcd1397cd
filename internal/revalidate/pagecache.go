// Package revalidate caches rendered product pages and invalidates them after catalog mutations.
package revalidate

import (
	"context"
	"path"
	"strings"
	"time"
)

// DefaultPageTTL is how long a rendered page may be served before it is rebuilt.
const DefaultPageTTL = 60 * time.Second

// PageCache stores rendered pages keyed by their URL path.
type PageCache interface {
	// Get returns the cached page and true on a hit.
	Get(ctx context.Context, pagePath string) ([]byte, bool, error)
	// Set stores page for ttl.
	Set(ctx context.Context, pagePath string, page []byte, ttl time.Duration) error
	// Invalidate drops the cached page so the next read rebuilds it. Invalidating an
	// unknown path is not an error.
	Invalidate(ctx context.Context, pagePath string) error
}

// CacheKey normalizes a page path so "/products/a/", "products/a" and "/products/a" share one entry.
func CacheKey(pagePath string) string {
	if !strings.HasPrefix(pagePath, "/") {
		pagePath = "/" + pagePath
	}
	return path.Clean(pagePath)
}

// ProductPath is the page path of the product with slug.
func ProductPath(slug string) string {
	return "/products/" + slug
}

package cache

import (
	"net/url"
	"strings"
)

// CacheKey identifies the page cache of one API root in a shared store.
type CacheKey struct {
	// BaseURL is the API root the crawl was made against.
	BaseURL string

	// Namespace separates independent deployments sharing a Redis instance.
	Namespace string
}

// String generates a deterministic key.
// Format: swapi[:namespace]:host/path:page_cache
//
// Example:
//
//	swapi:swapi.dev/api:page_cache
func (k CacheKey) String() string {
	parts := []string{"swapi"}

	if ns := strings.TrimSpace(k.Namespace); ns != "" {
		parts = append(parts, ns)
	}

	root := strings.TrimSpace(k.BaseURL)
	if u, err := url.Parse(root); err == nil && u.Host != "" {
		root = u.Host + u.Path
	}
	if root = strings.Trim(strings.ToLower(root), "/"); root != "" {
		parts = append(parts, root)
	}

	parts = append(parts, "page_cache")
	return strings.Join(parts, ":")
}

// Package cache provides the short-TTL response cache for hot list endpoints.
// Staleness within the TTL is acceptable; concurrent access must be safe.
package cache

import (
	"context"
	"time"
)

// ResponseCache stores serialized response payloads keyed by endpoint+filter.
type ResponseCache interface {
	// Get returns the cached payload and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a payload with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete drops one entry.
	Delete(ctx context.Context, key string)

	// DeletePrefix drops every entry whose key starts with prefix. Used to
	// invalidate per-tenant entries after a write.
	DeletePrefix(ctx context.Context, prefix string)
}

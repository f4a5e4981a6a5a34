// Package cache provides pluggable byte caches for registry responses.
//
// Backends store opaque blobs under string keys with a per-entry TTL. The
// registry clients hash search-request URLs into keys and cache decoded
// responses; which backend is used (file, redis, none) is a configuration
// concern.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrBackend is returned when a cache backend fails in a way the caller may
// want to distinguish from a plain miss (I/O failure, connection refused).
var ErrBackend = errors.New("cache backend error")

// Cache stores opaque blobs with expiry.
//
// Get reports (data, true, nil) on a hit, (nil, false, nil) on a miss, and
// (nil, false, err) on backend failure. Implementations must be safe for
// concurrent use; the aggregator fans out to sources that share a backend.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

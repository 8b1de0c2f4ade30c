package cache

import (
	"context"
	"errors"
	"time"
)

// Cache provides a generic caching interface with TTL support. Both the
// Redis and in-memory implementations satisfy it, so callers never depend
// on which backend is configured.
type Cache interface {
	// Get retrieves a value by key
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with optional TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists
	Exists(ctx context.Context, key string) (bool, error)

	// GetJSON retrieves and unmarshals JSON data
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// SetJSON marshals and stores JSON data
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// Key prefixes for consistent cache key naming
const (
	AnalysisPrefix      = "tpb:analysis:"
	StaleAnalysisPrefix = "tpb:analysis:last:"
)

// Common TTL values
const (
	// AnalysisTTL bounds how long a per-pattern analysis is served before
	// the model is consulted again.
	AnalysisTTL = 5 * time.Minute

	// StaleTTL bounds how long an expired analysis remains usable as a
	// degraded fallback when the model is unavailable.
	StaleTTL = 1 * time.Hour
)

// ErrCacheKeyNotFound is returned when a cache key doesn't exist
type ErrCacheKeyNotFound struct {
	Key string
}

func (e ErrCacheKeyNotFound) Error() string {
	return "cache key not found: " + e.Key
}

// IsNotFound reports whether err is a cache miss.
func IsNotFound(err error) bool {
	var notFound ErrCacheKeyNotFound
	return errors.As(err, &notFound)
}

// Package kv provides a minimal key-value store abstraction with an
// in-memory implementation for tests and local runs and a Redis
// implementation for deployments.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is the common interface implemented by every backend.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes keys and reports how many existed.
	Del(ctx context.Context, keys ...string) (int, error)

	// Exists reports how many of the given keys exist.
	Exists(ctx context.Context, keys ...string) (int, error)

	// Close releases backend resources.
	Close() error
}

// Package kv provides a minimal key-value blob store used as the snapshot
// persistence boundary. Values are JSON-encoded; the store is opaque to the
// caller.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store reads and writes JSON blobs by key.
type Store interface {
	Set(ctx context.Context, key string, value interface{}) error
	Get(ctx context.Context, key string, dest interface{}) error
	Close() error
}

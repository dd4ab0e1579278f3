package ports

import (
	"context"
	"time"
)

// Cache is the key/value layer in front of the persistent store. Reads
// that fail fall back to the store; writes are best-effort unless stated
// otherwise by the caller.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// SetNX writes the key only if it does not exist and reports whether
	// the write happened. Used as a short-lived per-account compute lock.
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Ping() error
	Close() error
}

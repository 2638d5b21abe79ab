// Package cache is the shared key/value store with per-key expiry that backs
// write leases. Entries disappear on their own once their TTL elapses.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache: not found")

type Store interface {
	// Get returns the value and its expiry. Expired keys report ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, time.Time, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Add stores value only when key is absent and reports whether it did.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Delete removes key and reports whether a live entry existed.
	Delete(ctx context.Context, key string) (bool, error)
	// CompareAndDelete removes key only while it still holds expected.
	CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error)
	Close() error
}

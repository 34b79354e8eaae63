package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrKeyNotFound      = errors.New("key not found")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Store is the key-value backend shared state lives in. Implementations must
// guarantee per-key atomicity: GetDel observes and removes a key in one step,
// so two concurrent callers can never both receive the same value.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	SAdd(ctx context.Context, key, member string, ttl time.Duration) error
	SRem(ctx context.Context, key, member string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	// Keys enumerates keys matching a "prefix*" pattern. It is O(N) over the
	// keyspace and reserved for administrative operations.
	Keys(ctx context.Context, pattern string) ([]string, error)

	Close() error
}

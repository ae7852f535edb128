package state

import (
	"context"
	"strconv"
	"time"
)

// Store persists session documents.
type Store interface {
	// Get decodes the value at key into dst and reports whether it existed.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Put overwrites key with v. A ttl <= 0 keeps the entry until deleted.
	Put(ctx context.Context, key string, v any, ttl time.Duration) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Ping checks that the backend answers.
	Ping(ctx context.Context) error
}

// Key builds the canonical "<kind>:<owner>" session key.
func Key(kind string, owner int64) string {
	return kind + ":" + strconv.FormatInt(owner, 10)
}

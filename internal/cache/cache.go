package cache

import (
	"context"
	"time"
)

// Cache is a TTL'd key-value store for request-identity-keyed snapshots
// (current question, admin stats). Entries are advisory: every consumer must
// tolerate a miss, since the engine runs as multiple stateless replicas.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper gives at-most-once semantics to inbound message processing,
// keyed by connector-provided external message id.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce tries to acquire a dedup lock for a given scope + external id.
// Returns true the first time, false for a duplicate. When redis is
// unavailable it fails open and returns true rather than dropping mail.
func (d *Deduper) AcquireOnce(ctx context.Context, scope, externalID string) bool {
	key := fmt.Sprintf("dedup:%s:%s", scope, externalID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

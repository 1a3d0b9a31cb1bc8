package billing

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventDeduper guards against redelivered webhook events. Seen reports
// whether the event was already applied; MarkSeen records it as applied.
// The reconciler marks an event only after its transition commits, so a
// delivery that failed to persist stays eligible for redelivery.
type EventDeduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
}

// RedisDeduper implements EventDeduper on Redis with TTL-bounded guard keys.
// Losing a guard record is safe: all state transitions are idempotent, so a
// reprocessed event converges to the same record.
type RedisDeduper struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisDeduper creates a replay guard with the given retention window.
func NewRedisDeduper(client redis.UniversalClient, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupeKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduper) MarkSeen(ctx context.Context, eventID string) error {
	return d.client.Set(ctx, dedupeKey(eventID), 1, d.ttl).Err()
}

func dedupeKey(eventID string) string {
	return "billing:webhook:" + eventID
}

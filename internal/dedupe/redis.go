// Package dedupe はイベントの重複配信を検出する。
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/backoffice/internal/trigger"
)

// DefaultTTL は処理済みマークの保持期間の既定値。
const DefaultTTL = 24 * time.Hour

const keyPrefix = "backoffice:event:"

// Store は重複検出で使用するRedisコマンドの部分集合。
// *redis.Client がこのインターフェースをみたす。
type Store interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisDeduplicator はSET NXで処理済みキーを記録するDeduplicator。
type RedisDeduplicator struct {
	store Store
	ttl   time.Duration
}

var _ trigger.Deduplicator = (*RedisDeduplicator)(nil)

// NewRedisDeduplicator はRedisDeduplicatorを生成する。
// ttlが0以下の場合はDefaultTTLを使用する。
func NewRedisDeduplicator(store Store, ttl time.Duration) *RedisDeduplicator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisDeduplicator{store: store, ttl: ttl}
}

// Acquire はキーを記録し、初回ならtrueを返す。
func (d *RedisDeduplicator) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := d.store.SetNX(ctx, keyPrefix+key, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event %s: %w", key, err)
	}
	return ok, nil
}

// Release はキーの記録を削除する。
func (d *RedisDeduplicator) Release(ctx context.Context, key string) error {
	if err := d.store.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release event %s: %w", key, err)
	}
	return nil
}

package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hitoshi/backoffice/internal/trigger"
)

// DefaultMemorySize はMemoryDeduplicatorが保持するキー数の既定値。
const DefaultMemorySize = 100_000

// MemoryDeduplicator はプロセス内のLRUで処理済みキーを記録するDeduplicator。
// Redisを使わない単一インスタンス構成で使用する。再起動すると記録は失われる。
type MemoryDeduplicator struct {
	mu   sync.Mutex
	keys *expirable.LRU[string, time.Time]
}

var _ trigger.Deduplicator = (*MemoryDeduplicator)(nil)

// NewMemoryDeduplicator はMemoryDeduplicatorを生成する。
// sizeが0以下の場合はDefaultMemorySize、ttlが0以下の場合はDefaultTTLを使用する。
func NewMemoryDeduplicator(size int, ttl time.Duration) *MemoryDeduplicator {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryDeduplicator{keys: expirable.NewLRU[string, time.Time](size, nil, ttl)}
}

// Acquire はキーを記録し、初回ならtrueを返す。
func (d *MemoryDeduplicator) Acquire(ctx context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.keys.Contains(key) {
		return false, nil
	}
	d.keys.Add(key, time.Now())
	return true, nil
}

// Release はキーの記録を削除する。
func (d *MemoryDeduplicator) Release(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys.Remove(key)
	return nil
}

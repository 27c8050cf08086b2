package dedupe

import (
	"context"
	"testing"
	"time"
)

func TestMemoryDeduplicator_AcquireOnce(t *testing.T) {
	d := NewMemoryDeduplicator(0, time.Hour)
	ctx := context.Background()

	first, err := d.Acquire(ctx, "evt-1/deleteProduct")
	if err != nil || !first {
		t.Fatalf("first Acquire = %v, %v; want true, nil", first, err)
	}
	second, err := d.Acquire(ctx, "evt-1/deleteProduct")
	if err != nil || second {
		t.Fatalf("second Acquire = %v, %v; want false, nil", second, err)
	}
	other, err := d.Acquire(ctx, "evt-1/unindexProduct")
	if err != nil || !other {
		t.Errorf("Acquire for another function = %v, %v; want true, nil", other, err)
	}
}

func TestMemoryDeduplicator_ReleaseAllowsRetry(t *testing.T) {
	d := NewMemoryDeduplicator(10, 0)
	ctx := context.Background()

	if _, err := d.Acquire(ctx, "evt-2/unindexProduct"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := d.Release(ctx, "evt-2/unindexProduct"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := d.Acquire(ctx, "evt-2/unindexProduct")
	if err != nil || !again {
		t.Errorf("Acquire after Release = %v, %v; want true, nil", again, err)
	}
}

// 保持期間を過ぎたキーは再び初回として扱われることを検証
func TestMemoryDeduplicator_Expires(t *testing.T) {
	d := NewMemoryDeduplicator(10, 20*time.Millisecond)
	ctx := context.Background()

	if first, _ := d.Acquire(ctx, "evt-3/deleteProduct"); !first {
		t.Fatal("first Acquire should succeed")
	}
	time.Sleep(60 * time.Millisecond)
	again, err := d.Acquire(ctx, "evt-3/deleteProduct")
	if err != nil || !again {
		t.Errorf("Acquire after ttl = %v, %v; want true, nil", again, err)
	}
}

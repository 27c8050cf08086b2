package listen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/hitoshi/backoffice/internal/trigger"
)

// --- モック定義 ---

type fakeIterator struct {
	ctx     context.Context
	snaps   []*firestore.QuerySnapshot
	err     error
	stopped bool
}

func (f *fakeIterator) Next() (*firestore.QuerySnapshot, error) {
	if len(f.snaps) > 0 {
		s := f.snaps[0]
		f.snaps = f.snaps[1:]
		return s, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	<-f.ctx.Done()
	return nil, f.ctx.Err()
}

func (f *fakeIterator) Stop() { f.stopped = true }

type recordingDispatcher struct {
	mu       sync.Mutex
	events   []trigger.Event
	received chan struct{}
	err      error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, ev trigger.Event) error {
	d.mu.Lock()
	d.events = append(d.events, ev)
	d.mu.Unlock()
	if d.received != nil {
		d.received <- struct{}{}
	}
	return d.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func docChange(kind firestore.DocumentChangeKind, id string) firestore.DocumentChange {
	return firestore.DocumentChange{
		Kind: kind,
		Doc:  &firestore.DocumentSnapshot{Ref: &firestore.DocumentRef{ID: id}},
	}
}

// --- tracker ---

func TestTracker_InitialSnapshotProducesNoEvents(t *testing.T) {
	tr := newTracker("products")
	events := tr.apply([]Change{
		{Kind: ChangeAdded, DocumentID: "p1", Data: map[string]any{"name": "Tee"}},
		{Kind: ChangeAdded, DocumentID: "p2", Data: map[string]any{"name": "Cap"}},
	}, time.Now(), true)

	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if tr.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tr.Len())
	}
}

func TestTracker_ConvertsChangesToEvents(t *testing.T) {
	tr := newTracker("products")
	tr.apply([]Change{{Kind: ChangeAdded, DocumentID: "p1", Data: map[string]any{"price": 10}}}, time.Now(), true)

	readTime := time.Unix(1700000000, 0)
	events := tr.apply([]Change{
		{Kind: ChangeAdded, DocumentID: "p2", Data: map[string]any{"price": 5}, UpdateTime: readTime},
		{Kind: ChangeModified, DocumentID: "p1", Data: map[string]any{"price": 12}, UpdateTime: readTime},
		{Kind: ChangeRemoved, DocumentID: "p2", Data: map[string]any{"price": 5}},
	}, readTime, false)

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	created := events[0]
	if created.Type != trigger.KindDocumentCreated || created.DocumentID != "p2" || created.After["price"] != 5 {
		t.Errorf("unexpected created event: %+v", created)
	}
	if created.Before != nil {
		t.Errorf("created event must not carry before data: %+v", created.Before)
	}

	updated := events[1]
	if updated.Type != trigger.KindDocumentUpdated {
		t.Fatalf("events[1].Type = %q", updated.Type)
	}
	if updated.Before["price"] != 10 || updated.After["price"] != 12 {
		t.Errorf("before/after = %v / %v, want 10 / 12", updated.Before, updated.After)
	}

	deleted := events[2]
	if deleted.Type != trigger.KindDocumentDeleted || deleted.Before["price"] != 5 {
		t.Errorf("unexpected deleted event: %+v", deleted)
	}
	if deleted.After != nil {
		t.Errorf("deleted event must not carry after data")
	}

	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			t.Errorf("event %s failed validation: %v", ev.ID, err)
		}
		if ev.Collection != "products" {
			t.Errorf("Collection = %q, want products", ev.Collection)
		}
	}
	if tr.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tr.Len())
	}
}

func TestTracker_ModifiedUnknownDocumentHasNoBefore(t *testing.T) {
	tr := newTracker("cats")
	events := tr.apply([]Change{{Kind: ChangeModified, DocumentID: "c9", Data: map[string]any{"title": "x"}}}, time.Now(), false)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Before != nil {
		t.Errorf("Before = %v, want nil", events[0].Before)
	}
}

func TestTracker_RemovedWithoutDataIsSkipped(t *testing.T) {
	tr := newTracker("cats")
	events := tr.apply([]Change{{Kind: ChangeRemoved, DocumentID: "c1"}}, time.Now(), false)

	if len(events) != 0 {
		t.Errorf("expected removal without data to be skipped, got %+v", events)
	}
}

func TestEventID_StableAcrossObservers(t *testing.T) {
	updated := time.Unix(1700000000, 42)
	c := Change{Kind: ChangeModified, DocumentID: "p1", UpdateTime: updated}

	a := newTracker("products").apply([]Change{c}, time.Unix(1, 0), false)
	b := newTracker("products").apply([]Change{c}, time.Unix(2, 0), false)

	if a[0].ID != b[0].ID {
		t.Errorf("event IDs differ: %q vs %q", a[0].ID, b[0].ID)
	}
	if !strings.HasPrefix(a[0].ID, "document.updated/products/p1/") {
		t.Errorf("ID = %q", a[0].ID)
	}
}

// 異なる読み取り時刻で同じ削除を観測したワーカーが同じイベントIDを生成することを検証
func TestEventID_RemovedStableAcrossObservers(t *testing.T) {
	lastUpdate := time.Unix(1700000000, 42)
	existing := Change{Kind: ChangeAdded, DocumentID: "p1", Data: map[string]any{"brand": "b", "category": "c"}, UpdateTime: lastUpdate}

	tests := []struct {
		name    string
		removed Change
	}{
		{"削除前の更新時刻あり", Change{Kind: ChangeRemoved, DocumentID: "p1", Data: existing.Data, UpdateTime: lastUpdate}},
		{"更新時刻は保持内容から補う", Change{Kind: ChangeRemoved, DocumentID: "p1", Data: existing.Data}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := newTracker("products")
			first.apply([]Change{existing}, time.Unix(100, 0), true)
			second := newTracker("products")
			second.apply([]Change{existing}, time.Unix(200, 0), true)

			a := first.apply([]Change{tt.removed}, time.Unix(1700000100, 1), false)
			b := second.apply([]Change{tt.removed}, time.Unix(1700000100, 9), false)

			if len(a) != 1 || len(b) != 1 {
				t.Fatalf("expected one event from each tracker, got %d and %d", len(a), len(b))
			}
			if a[0].ID != b[0].ID {
				t.Errorf("event IDs differ: %q vs %q", a[0].ID, b[0].ID)
			}
			want := fmt.Sprintf("document.deleted/products/p1/%d", lastUpdate.UnixNano())
			if a[0].ID != want {
				t.Errorf("ID = %q, want %q", a[0].ID, want)
			}
		})
	}
}

func TestChangesFromSnapshot_MapsKinds(t *testing.T) {
	snap := &firestore.QuerySnapshot{
		Changes: []firestore.DocumentChange{
			docChange(firestore.DocumentAdded, "a"),
			docChange(firestore.DocumentModified, "b"),
			docChange(firestore.DocumentRemoved, "c"),
			{Kind: firestore.DocumentAdded},
		},
	}

	changes := ChangesFromSnapshot(snap)
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(changes))
	}
	want := []ChangeKind{ChangeAdded, ChangeModified, ChangeRemoved}
	for i, c := range changes {
		if c.Kind != want[i] {
			t.Errorf("changes[%d].Kind = %d, want %d", i, c.Kind, want[i])
		}
	}
	if ChangesFromSnapshot(nil) != nil {
		t.Error("expected nil for nil snapshot")
	}
}

// --- Listener ---

func TestListener_DispatchesChangesAfterInitialSnapshot(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var it *fakeIterator
	opener := func(ctx context.Context, collection string) SnapshotIterator {
		it = &fakeIterator{
			ctx: ctx,
			snaps: []*firestore.QuerySnapshot{
				{Changes: []firestore.DocumentChange{docChange(firestore.DocumentAdded, "p1")}},
				{Changes: []firestore.DocumentChange{docChange(firestore.DocumentAdded, "p2")}},
			},
		}
		return it
	}
	dispatcher := &recordingDispatcher{received: make(chan struct{}, 1)}
	l := NewListener(opener, dispatcher, newTestLogger(&buf), "products")

	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	select {
	case <-dispatcher.received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if len(dispatcher.events) != 1 {
		t.Fatalf("expected 1 dispatched event, got %d", len(dispatcher.events))
	}
	ev := dispatcher.events[0]
	if ev.Type != trigger.KindDocumentCreated || ev.DocumentID != "p2" || ev.Collection != "products" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if !it.stopped {
		t.Error("iterator should be stopped")
	}
}

func TestListener_DispatchErrorIsLoggedNotRedelivered(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opener := func(ctx context.Context, collection string) SnapshotIterator {
		return &fakeIterator{
			ctx: ctx,
			snaps: []*firestore.QuerySnapshot{
				{},
				{Changes: []firestore.DocumentChange{docChange(firestore.DocumentAdded, "c1")}},
			},
		}
	}
	dispatcher := &recordingDispatcher{received: make(chan struct{}, 1), err: errors.New("algolia unavailable")}
	l := NewListener(opener, dispatcher, newTestLogger(&buf), "cats")

	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	<-dispatcher.received
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("dispatch errors must not stop the listener: %v", err)
	}

	if !strings.Contains(buf.String(), "algolia unavailable") {
		t.Errorf("expected dispatch error in log, got: %s", buf.String())
	}
	// 失敗したイベントは再配信されない
	if len(dispatcher.events) != 1 {
		t.Errorf("dispatched %d times, want 1", len(dispatcher.events))
	}
}

func TestListener_StreamErrorStopsListener(t *testing.T) {
	var buf bytes.Buffer
	opener := func(ctx context.Context, collection string) SnapshotIterator {
		if collection == "cats" {
			return &fakeIterator{ctx: ctx, err: errors.New("permission denied")}
		}
		return &fakeIterator{ctx: ctx}
	}
	l := NewListener(opener, &recordingDispatcher{}, newTestLogger(&buf), "products", "cats")

	err := l.Start(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "cats") {
		t.Errorf("error should name the collection: %v", err)
	}
}

package listen

import (
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/hitoshi/backoffice/internal/trigger"
)

// ChangeKind はスナップショット内のドキュメント変更の種別。
type ChangeKind int

// 変更種別
const (
	ChangeAdded ChangeKind = iota
	ChangeModified
	ChangeRemoved
)

// Change はストア非依存のドキュメント変更。
type Change struct {
	Kind       ChangeKind
	DocumentID string
	Data       map[string]any
	UpdateTime time.Time
}

// ChangesFromSnapshot はFirestoreのクエリスナップショットをChangeの列に変換する。
func ChangesFromSnapshot(snap *firestore.QuerySnapshot) []Change {
	if snap == nil {
		return nil
	}
	changes := make([]Change, 0, len(snap.Changes))
	for _, dc := range snap.Changes {
		if dc.Doc == nil || dc.Doc.Ref == nil {
			continue
		}
		c := Change{
			DocumentID: dc.Doc.Ref.ID,
			Data:       dc.Doc.Data(),
			UpdateTime: dc.Doc.UpdateTime,
		}
		switch dc.Kind {
		case firestore.DocumentAdded:
			c.Kind = ChangeAdded
		case firestore.DocumentModified:
			c.Kind = ChangeModified
		case firestore.DocumentRemoved:
			c.Kind = ChangeRemoved
		default:
			continue
		}
		changes = append(changes, c)
	}
	return changes
}

// observed は最後に観測したドキュメントの内容と更新時刻。
type observed struct {
	data       map[string]any
	updateTime time.Time
}

// tracker はコレクションごとに最後に観測したドキュメントを保持し、
// 変更をトリガーイベントに変換する。
// 更新イベントの変更前データと削除イベントのデータはこの保持内容から取る。
type tracker struct {
	collection string
	seen       map[string]observed
}

func newTracker(collection string) *tracker {
	return &tracker{collection: collection, seen: make(map[string]observed)}
}

// apply は変更を保持内容へ反映し、配信すべきイベントを返す。
// 初回スナップショット（initial=true）は既存ドキュメントの一覧であるため、
// 保持内容の構築のみを行いイベントは生成しない。
func (t *tracker) apply(changes []Change, readTime time.Time, initial bool) []trigger.Event {
	var events []trigger.Event
	for _, c := range changes {
		prev, known := t.seen[c.DocumentID]

		switch c.Kind {
		case ChangeAdded, ChangeModified:
			t.seen[c.DocumentID] = observed{data: c.Data, updateTime: c.UpdateTime}
		case ChangeRemoved:
			delete(t.seen, c.DocumentID)
		}

		if initial {
			continue
		}

		ev := trigger.Event{
			Collection: t.collection,
			DocumentID: c.DocumentID,
		}
		at := c.UpdateTime
		switch c.Kind {
		case ChangeAdded:
			ev.Type = trigger.KindDocumentCreated
			ev.After = c.Data
		case ChangeModified:
			ev.Type = trigger.KindDocumentUpdated
			ev.After = c.Data
			if known {
				ev.Before = prev.data
			}
		case ChangeRemoved:
			ev.Type = trigger.KindDocumentDeleted
			ev.Before = prev.data
			if !known {
				// 未観測のドキュメントは変更に付いてきた削除前のデータを使う。
				ev.Before = c.Data
			}
			if at.IsZero() {
				at = prev.updateTime
			}
		}
		if ev.Type == trigger.KindDocumentDeleted && ev.Before == nil {
			continue
		}
		if at.IsZero() {
			at = readTime
		}
		ev.ID = eventID(ev, at)
		events = append(events, ev)
	}
	return events
}

// eventID は複数のワーカーが同じ変更を観測しても同じ値となるIDを返す。
// atは変更後（削除では削除直前）のドキュメント更新時刻で、ワーカーごとに異なる読み取り時刻は使わない。
func eventID(ev trigger.Event, at time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%d", ev.Type, ev.Collection, ev.DocumentID, at.UnixNano())
}

// Len は保持しているドキュメント数を返す。
func (t *tracker) Len() int {
	return len(t.seen)
}

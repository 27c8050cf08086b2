// Package listen はドキュメントストアの変更を購読し、登録済み関数へ配信するワーカーを提供する。
package listen

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/backoffice/internal/trigger"
)

// Dispatcher はイベントを登録済み関数へ配信するインターフェース。
// *trigger.Registry がこのインターフェースをみたす。
type Dispatcher interface {
	Dispatch(ctx context.Context, ev trigger.Event) error
}

// SnapshotIterator はクエリスナップショットを順に返すイテレータ。
// *firestore.QuerySnapshotIterator がこのインターフェースをみたす。
type SnapshotIterator interface {
	Next() (*firestore.QuerySnapshot, error)
	Stop()
}

// SnapshotOpener はコレクションのスナップショット購読を開始する関数。
type SnapshotOpener func(ctx context.Context, collection string) SnapshotIterator

// FirestoreOpener はFirestoreのコレクション全体を購読するSnapshotOpenerを返す。
func FirestoreOpener(client *firestore.Client) SnapshotOpener {
	return func(ctx context.Context, collection string) SnapshotIterator {
		return client.Collection(collection).Snapshots(ctx)
	}
}

// Listener は指定コレクションの変更を購読し、イベントとして配信する。
// コレクションごとに1つのgoroutineで購読し、同一コレクション内の配信順序は変更順を保つ。
//
// 配信はベストエフォートで、失敗したイベントはログに残して破棄し再配信しない。
// 停止中に行われた変更は再起動後の初回スナップショットに吸収され、イベントにはならない。
// 再配信が必要な環境ではプラットフォームからPOST /eventsへプッシュ配信する。
type Listener struct {
	open        SnapshotOpener
	dispatcher  Dispatcher
	logger      *slog.Logger
	collections []string
}

// NewListener はListenerを生成する。
func NewListener(open SnapshotOpener, dispatcher Dispatcher, logger *slog.Logger, collections ...string) *Listener {
	return &Listener{
		open:        open,
		dispatcher:  dispatcher,
		logger:      logger,
		collections: collections,
	}
}

// Start は全コレクションの購読を開始し、コンテキストがキャンセルされるまでブロックする。
// いずれかの購読がエラーで終了した場合は他の購読も停止してエラーを返す。
func (l *Listener) Start(ctx context.Context) error {
	l.logger.Info("ドキュメント変更の購読を開始しました",
		slog.Any("collections", l.collections),
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, collection := range l.collections {
		g.Go(func() error {
			return l.watch(ctx, collection)
		})
	}
	err := g.Wait()

	l.logger.Info("ドキュメント変更の購読を停止しました")
	return err
}

func (l *Listener) watch(ctx context.Context, collection string) error {
	it := l.open(ctx, collection)
	defer it.Stop()

	t := newTracker(collection)
	initial := true

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to receive %s snapshot: %w", collection, err)
		}

		events := t.apply(ChangesFromSnapshot(snap), snap.ReadTime, initial)
		if initial {
			l.logger.Info("初回スナップショットを読み込みました",
				slog.String("collection", collection),
				slog.Int("documents", t.Len()),
			)
			initial = false
		}

		for _, ev := range events {
			if err := l.dispatcher.Dispatch(ctx, ev); err != nil {
				l.logger.Error("イベントの配信に失敗しました",
					slog.String("event_id", ev.ID),
					slog.String("type", string(ev.Type)),
					slog.String("collection", ev.Collection),
					slog.String("document_id", ev.DocumentID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitoshi/backoffice/internal/model"
)

// wrapFirestoreError はFirestoreのエラーに操作名を付けてラップする。
// gRPCのNotFoundはErrNotFoundとしても判定できるようにする。
func wrapFirestoreError(op string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// FirestoreDocumentLister はFirestoreのコレクションを走査するDocumentLister。
type FirestoreDocumentLister struct {
	client *firestore.Client
}

// NewFirestoreDocumentLister はFirestoreDocumentListerを生成する。
func NewFirestoreDocumentLister(client *firestore.Client) *FirestoreDocumentLister {
	return &FirestoreDocumentLister{client: client}
}

// ForEach はコレクションの全ドキュメントに対してfnを呼び出す。
func (l *FirestoreDocumentLister) ForEach(ctx context.Context, collection string, fn func(doc *model.Document) error) error {
	iter := l.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return wrapFirestoreError("failed to list documents", err)
		}
		if err := fn(DocumentFromSnapshot(collection, snap)); err != nil {
			return err
		}
	}
}

// Ping はFirestoreへの疎通を確認する。
// Firestoreには疎通確認APIが無いため、usersコレクションを1件だけ読み出す。
func (l *FirestoreDocumentLister) Ping(ctx context.Context) error {
	iter := l.client.Collection(model.CollectionUsers).Limit(1).Documents(ctx)
	defer iter.Stop()

	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return wrapFirestoreError("failed to ping firestore", err)
	}
	return nil
}

// DocumentFromSnapshot はFirestoreのスナップショットをmodel.Documentに変換する。
func DocumentFromSnapshot(collection string, snap *firestore.DocumentSnapshot) *model.Document {
	data := snap.Data()
	if data == nil {
		data = map[string]interface{}{}
	}
	return &model.Document{
		Collection: collection,
		ID:         snap.Ref.ID,
		Data:       data,
	}
}

// compile-time interface check
var (
	_ DocumentLister = (*FirestoreDocumentLister)(nil)
	_ HealthChecker  = (*FirestoreDocumentLister)(nil)
)

package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/hitoshi/backoffice/internal/model"
)

// FirestoreCounterRepo はFirestoreを使用した集計カウンタリポジトリ。
type FirestoreCounterRepo struct {
	client *firestore.Client
}

// NewFirestoreCounterRepo はFirestoreCounterRepoを生成する。
func NewFirestoreCounterRepo(client *firestore.Client) *FirestoreCounterRepo {
	return &FirestoreCounterRepo{client: client}
}

// Adjust はbrandsとcatsのamountを1つのバッチでdeltaだけ増減する。
// updateを使うため、どちらかのドキュメントが無ければバッチ全体が失敗する。
func (r *FirestoreCounterRepo) Adjust(ctx context.Context, brandID, categoryID string, delta int64) error {
	inc := []firestore.Update{{Path: model.FieldAmount, Value: firestore.Increment(delta)}}

	batch := r.client.Batch()
	batch.Update(r.client.Collection(model.CollectionBrands).Doc(brandID), inc)
	batch.Update(r.client.Collection(model.CollectionCats).Doc(categoryID), inc)

	if _, err := batch.Commit(ctx); err != nil {
		return wrapFirestoreError("failed to adjust counters", err)
	}
	return nil
}

// compile-time interface check
var _ CounterRepository = (*FirestoreCounterRepo)(nil)

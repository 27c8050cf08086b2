package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/backoffice/internal/model"
)

// MongoCounterRepo はMongoDBを使用した集計カウンタリポジトリ。
type MongoCounterRepo struct {
	store *MongoStore
}

// NewMongoCounterRepo はMongoCounterRepoを生成する。
func NewMongoCounterRepo(store *MongoStore) *MongoCounterRepo {
	return &MongoCounterRepo{store: store}
}

// Adjust はbrandsとcatsのamountを1つのトランザクションでdeltaだけ増減する。
// どちらかのドキュメントが無い場合はトランザクションをアボートする。
func (r *MongoCounterRepo) Adjust(ctx context.Context, brandID, categoryID string, delta int64) error {
	inc := bson.M{"$inc": bson.M{model.FieldAmount: delta}}

	err := r.store.withTransaction(ctx, func(sc mongo.SessionContext) error {
		targets := []struct{ collection, id string }{
			{model.CollectionBrands, brandID},
			{model.CollectionCats, categoryID},
		}
		for _, t := range targets {
			res, err := r.store.collection(t.collection).UpdateOne(sc, bson.M{"_id": t.id}, inc)
			if err != nil {
				return err
			}
			if res.MatchedCount == 0 {
				return fmt.Errorf("%w: %s/%s", ErrNotFound, t.collection, t.id)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to adjust counters: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CounterRepository = (*MongoCounterRepo)(nil)

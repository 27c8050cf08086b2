package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/backoffice/internal/model"
)

// MongoProfileRepo はMongoDBを使用したプロフィールリポジトリ。
type MongoProfileRepo struct {
	store *MongoStore
}

// NewMongoProfileRepo はMongoProfileRepoを生成する。
func NewMongoProfileRepo(store *MongoStore) *MongoProfileRepo {
	return &MongoProfileRepo{store: store}
}

// Create はcreatedTimestampのみを持つプロフィールを作成する。
// 置換ではサーバー時刻を使えないため、アプリケーション側の時刻を書き込む。
func (r *MongoProfileRepo) Create(ctx context.Context, uid string) error {
	_, err := r.store.collection(model.CollectionUsers).ReplaceOne(ctx,
		bson.M{"_id": uid},
		bson.M{model.FieldCreatedTimestamp: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// MarkEmailVerified はemailVerifiedとemailVerifiedTimestampをマージ書き込みする。
func (r *MongoProfileRepo) MarkEmailVerified(ctx context.Context, uid string) error {
	_, err := r.store.collection(model.CollectionUsers).UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{
			"$set":         bson.M{model.FieldEmailVerified: true},
			"$currentDate": bson.M{model.FieldEmailVerifiedTimestamp: true},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return nil
}

// DeleteWithRole はusers/{uid}とroles/{uid}を1つのトランザクションで削除する。
func (r *MongoProfileRepo) DeleteWithRole(ctx context.Context, uid string) error {
	err := r.store.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.store.collection(model.CollectionUsers).DeleteOne(sc, bson.M{"_id": uid}); err != nil {
			return err
		}
		if _, err := r.store.collection(model.CollectionRoles).DeleteOne(sc, bson.M{"_id": uid}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete profile and role: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*MongoProfileRepo)(nil)

package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/backoffice/internal/model"
)

// MongoRoleRepo はMongoDBを使用したロールリポジトリ。
type MongoRoleRepo struct {
	store *MongoStore
}

// NewMongoRoleRepo はMongoRoleRepoを生成する。
func NewMongoRoleRepo(store *MongoStore) *MongoRoleRepo {
	return &MongoRoleRepo{store: store}
}

// Set はロールドキュメントを上書き作成する。
func (r *MongoRoleRepo) Set(ctx context.Context, uid, email, role string) error {
	_, err := r.store.collection(model.CollectionRoles).ReplaceOne(ctx,
		bson.M{"_id": uid},
		bson.M{
			model.FieldEmail:            email,
			model.FieldRole:             role,
			model.FieldCreatedTimestamp: time.Now().UTC(),
		},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set role record: %w", err)
	}
	return nil
}

// Merge はロールドキュメントをマージ書き込みする。
func (r *MongoRoleRepo) Merge(ctx context.Context, uid, email, role string) error {
	_, err := r.store.collection(model.CollectionRoles).UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{
			"$set":         bson.M{model.FieldEmail: email, model.FieldRole: role},
			"$currentDate": bson.M{model.FieldCreatedTimestamp: true},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to merge role record: %w", err)
	}
	return nil
}

// UpdateRole は既存ドキュメントのroleフィールドのみを更新する。
func (r *MongoRoleRepo) UpdateRole(ctx context.Context, uid, role string) error {
	res, err := r.store.collection(model.CollectionRoles).UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{model.FieldRole: role}},
	)
	if err != nil {
		return fmt.Errorf("failed to update role record: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("failed to update role record: %w: %s/%s", ErrNotFound, model.CollectionRoles, uid)
	}
	return nil
}

// compile-time interface check
var _ RoleRepository = (*MongoRoleRepo)(nil)

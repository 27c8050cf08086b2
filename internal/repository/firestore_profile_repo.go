package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/hitoshi/backoffice/internal/model"
)

// FirestoreProfileRepo はFirestoreを使用したプロフィールリポジトリ。
type FirestoreProfileRepo struct {
	client *firestore.Client
}

// NewFirestoreProfileRepo はFirestoreProfileRepoを生成する。
func NewFirestoreProfileRepo(client *firestore.Client) *FirestoreProfileRepo {
	return &FirestoreProfileRepo{client: client}
}

// Create はcreatedTimestampのみを持つプロフィールを作成する。
func (r *FirestoreProfileRepo) Create(ctx context.Context, uid string) error {
	_, err := r.client.Collection(model.CollectionUsers).Doc(uid).Set(ctx, map[string]interface{}{
		model.FieldCreatedTimestamp: firestore.ServerTimestamp,
	})
	if err != nil {
		return wrapFirestoreError("failed to create profile", err)
	}
	return nil
}

// MarkEmailVerified はemailVerifiedとemailVerifiedTimestampをマージ書き込みする。
func (r *FirestoreProfileRepo) MarkEmailVerified(ctx context.Context, uid string) error {
	_, err := r.client.Collection(model.CollectionUsers).Doc(uid).Set(ctx, map[string]interface{}{
		model.FieldEmailVerified:          true,
		model.FieldEmailVerifiedTimestamp: firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return wrapFirestoreError("failed to mark email verified", err)
	}
	return nil
}

// DeleteWithRole はusers/{uid}とroles/{uid}を1つのバッチで削除する。
func (r *FirestoreProfileRepo) DeleteWithRole(ctx context.Context, uid string) error {
	batch := r.client.Batch()
	batch.Delete(r.client.Collection(model.CollectionUsers).Doc(uid))
	batch.Delete(r.client.Collection(model.CollectionRoles).Doc(uid))

	if _, err := batch.Commit(ctx); err != nil {
		return wrapFirestoreError("failed to delete profile and role", err)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*FirestoreProfileRepo)(nil)

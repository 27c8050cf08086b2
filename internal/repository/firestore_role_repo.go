package repository

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/hitoshi/backoffice/internal/model"
)

// FirestoreRoleRepo はFirestoreを使用したロールリポジトリ。
type FirestoreRoleRepo struct {
	client *firestore.Client
}

// NewFirestoreRoleRepo はFirestoreRoleRepoを生成する。
func NewFirestoreRoleRepo(client *firestore.Client) *FirestoreRoleRepo {
	return &FirestoreRoleRepo{client: client}
}

func roleFields(email, role string) map[string]interface{} {
	return map[string]interface{}{
		model.FieldEmail:            email,
		model.FieldRole:             role,
		model.FieldCreatedTimestamp: firestore.ServerTimestamp,
	}
}

// Set はロールドキュメントを上書き作成する。
func (r *FirestoreRoleRepo) Set(ctx context.Context, uid, email, role string) error {
	_, err := r.client.Collection(model.CollectionRoles).Doc(uid).Set(ctx, roleFields(email, role))
	if err != nil {
		return wrapFirestoreError("failed to set role record", err)
	}
	return nil
}

// Merge はロールドキュメントをマージ書き込みする。
func (r *FirestoreRoleRepo) Merge(ctx context.Context, uid, email, role string) error {
	_, err := r.client.Collection(model.CollectionRoles).Doc(uid).Set(ctx, roleFields(email, role), firestore.MergeAll)
	if err != nil {
		return wrapFirestoreError("failed to merge role record", err)
	}
	return nil
}

// UpdateRole は既存ドキュメントのroleフィールドのみを更新する。
// Firestoreのupdateは対象が無い場合NotFoundで失敗する。
func (r *FirestoreRoleRepo) UpdateRole(ctx context.Context, uid, role string) error {
	_, err := r.client.Collection(model.CollectionRoles).Doc(uid).Update(ctx, []firestore.Update{
		{Path: model.FieldRole, Value: role},
	})
	if err != nil {
		return wrapFirestoreError("failed to update role record", err)
	}
	return nil
}

// compile-time interface check
var _ RoleRepository = (*FirestoreRoleRepo)(nil)

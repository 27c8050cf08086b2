// Package functions は本サービスが公開する名前付き関数をRegistryに登録する。
package functions

import (
	"context"

	"github.com/hitoshi/backoffice/internal/model"
	"github.com/hitoshi/backoffice/internal/trigger"
)

// 関数名
const (
	CreateUserDoc       = "createUserDoc"
	DeleteUserDoc       = "deleteUserDoc"
	UpdateEmailVerified = "updateEmailVerified"
	CreateUserWithRole  = "createUserWithRole"
	DeleteUserWithRole  = "deleteUserWithRole"
	EditUserRole        = "editUserRole"
	AddUserRoleByEmail  = "addUserRoleByEmail"
	IndexProduct        = "indexProduct"
	ReindexProduct      = "reindexProduct"
	UnindexProduct      = "unindexProduct"
	DeleteProductImages = "deleteProductImages"
	DeleteCatImages     = "deleteCatImages"
	CreateProduct       = "createProduct"
	DeleteProduct       = "deleteProduct"
)

// AccountService はアカウントのライフサイクル処理のインターフェース。
type AccountService interface {
	OnUserCreated(ctx context.Context, acct model.Account) error
	OnUserDeleted(ctx context.Context, acct model.Account) error
	MarkEmailVerified(ctx context.Context, uid string) error
}

// RoleService はロール管理のインターフェース。
type RoleService interface {
	CreateUserWithRole(ctx context.Context, email, password, role string) (*model.Account, error)
	DeleteUserWithRole(ctx context.Context, uid string) error
	EditUserRole(ctx context.Context, uid, role string) error
	AddUserRoleByEmail(ctx context.Context, email, role string) (*model.Account, error)
}

// ProductIndexer は検索インデックス同期のインターフェース。
type ProductIndexer interface {
	IndexProduct(ctx context.Context, doc *model.Document) error
	ReindexProduct(ctx context.Context, before, after *model.Document) error
	UnindexProduct(ctx context.Context, doc *model.Document) error
}

// CounterService は集計カウンタ更新のインターフェース。
type CounterService interface {
	OnProductCreated(ctx context.Context, doc *model.Document) error
	OnProductDeleted(ctx context.Context, doc *model.Document) error
}

// ImageService は画像削除のインターフェース。
type ImageService interface {
	DeleteImages(ctx context.Context, collection string, doc *model.Document) error
}

// Deps は関数の登録に必要な依存関係。
type Deps struct {
	Accounts AccountService
	Roles    RoleService
	Indexer  ProductIndexer
	Counters CounterService
	Images   ImageService
}

// Register は全ての関数をregに登録する。
func Register(reg *trigger.Registry, deps Deps) error {
	fns := append(authFunctions(deps), callableFunctions(deps)...)
	fns = append(fns, catalogFunctions(deps)...)
	for _, fn := range fns {
		if err := reg.Register(fn); err != nil {
			return err
		}
	}
	return nil
}

func authFunctions(deps Deps) []trigger.Function {
	return []trigger.Function{
		{
			Name: CreateUserDoc,
			Kind: trigger.KindUserCreated,
			Handle: func(ctx context.Context, ev trigger.Event) error {
				return deps.Accounts.OnUserCreated(ctx, ev.Account())
			},
		},
		{
			Name: DeleteUserDoc,
			Kind: trigger.KindUserDeleted,
			Handle: func(ctx context.Context, ev trigger.Event) error {
				return deps.Accounts.OnUserDeleted(ctx, ev.Account())
			},
		},
	}
}

func catalogFunctions(deps Deps) []trigger.Function {
	products := model.CollectionProducts
	return []trigger.Function{
		{
			Name:       IndexProduct,
			Kind:       trigger.KindDocumentCreated,
			Collection: products,
			Handle: func(ctx context.Context, ev trigger.Event) error {
				return deps.Indexer.IndexProduct(ctx, ev.AfterDocument())
			},
		},
		{
			Name:       ReindexProduct,
			Kind:       trigger.KindDocumentUpdated,
			Collection: products,
			Handle: func(ctx context.Context, ev trigger.Event) error {
				return deps.Indexer.ReindexProduct(ctx, ev.BeforeDocument(), ev.AfterDocument())
			},
		},
		{
			Name:       UnindexProduct,
			Kind:       trigger.KindDocumentDeleted,
			Collection: products,
			Handle: func(ctx context.Context, ev trigger.Event) error {
				return deps.Indexer.UnindexProduct(ctx, ev.BeforeDocument())
			},
		},
		{
			Name:       DeleteProductImages,
			Kind:       trigger.KindDocumentDeleted,
			Collection: products,
			Handle: func(ctx context.Context, ev trigger.Event) error {
				return deps.Images.DeleteImages(ctx, model.CollectionProducts, ev.BeforeDocument())
			},
		},
		{
			Name:       DeleteCatImages,
			Kind:       trigger.KindDocumentDeleted,
			Collection: model.CollectionCats,
			Handle: func(ctx context.Context, ev trigger.Event) error {
				return deps.Images.DeleteImages(ctx, model.CollectionCats, ev.BeforeDocument())
			},
		},
		{
			Name:       CreateProduct,
			Kind:       trigger.KindDocumentCreated,
			Collection: products,
			Handle: func(ctx context.Context, ev trigger.Event) error {
				return deps.Counters.OnProductCreated(ctx, ev.AfterDocument())
			},
		},
		{
			Name:       DeleteProduct,
			Kind:       trigger.KindDocumentDeleted,
			Collection: products,
			Handle: func(ctx context.Context, ev trigger.Event) error {
				return deps.Counters.OnProductDeleted(ctx, ev.BeforeDocument())
			},
		},
	}
}

// Package repository はドキュメントストアへの永続化インターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/backoffice/internal/model"
)

// ErrNotFound は更新対象のドキュメントが存在しないことを表す。
// ストア固有のエラー（gRPCのNotFound等）と併せてラップして返す。
var ErrNotFound = errors.New("document not found")

// ProfileRepository はプロフィールドキュメント（users/{uid}）の永続化インターフェース。
type ProfileRepository interface {
	// Create はcreatedTimestampのみを持つプロフィールを作成する。
	// 既存ドキュメントは上書きする（set）。
	Create(ctx context.Context, uid string) error

	// MarkEmailVerified はemailVerifiedとemailVerifiedTimestampをマージ書き込みする。
	// ドキュメントが無い場合は作成する。
	MarkEmailVerified(ctx context.Context, uid string) error

	// DeleteWithRole はusers/{uid}とroles/{uid}を1つのアトミックなバッチで削除する。
	// 両方削除されるか、どちらも削除されないかのいずれかとなる。
	DeleteWithRole(ctx context.Context, uid string) error
}

// RoleRepository はロールドキュメント（roles/{uid}）の永続化インターフェース。
type RoleRepository interface {
	// Set はロールドキュメントを上書き作成する。createdTimestampはサーバー時刻。
	Set(ctx context.Context, uid, email, role string) error

	// Merge はロールドキュメントをマージ書き込みする。無い場合は作成する。
	Merge(ctx context.Context, uid, email, role string) error

	// UpdateRole は既存ドキュメントのroleフィールドのみを更新する。
	// ドキュメントが無い場合はErrNotFoundをラップしたエラーを返す。
	UpdateRole(ctx context.Context, uid, role string) error
}

// CounterRepository はブランド・カテゴリの集計カウンタの永続化インターフェース。
type CounterRepository interface {
	// Adjust はbrands/{brandID}とcats/{categoryID}のamountをdeltaだけ増減する。
	// 2つの更新は1つのアトミックなバッチで適用される。
	// いずれかのドキュメントが無い場合はどちらも更新されない。
	Adjust(ctx context.Context, brandID, categoryID string, delta int64) error
}

// DocumentLister はコレクション内の全ドキュメントを走査するインターフェース。
type DocumentLister interface {
	// ForEach はコレクションの全ドキュメントに対してfnを呼び出す。
	// fnがエラーを返した場合はその時点で走査を打ち切る。
	ForEach(ctx context.Context, collection string, fn func(doc *model.Document) error) error
}

// HealthChecker はドキュメントストアへの疎通確認インターフェース。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// IsNotFound はerrがドキュメント未検出を表すかどうかを返す。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

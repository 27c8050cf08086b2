// Package trigger はプラットフォームイベントと登録済み関数の対応付けを提供する。
package trigger

import (
	"fmt"

	"github.com/hitoshi/backoffice/internal/model"
)

// Kind は関数を起動するイベントの種別。
type Kind string

// イベント種別
const (
	KindUserCreated     Kind = "auth.user.created"
	KindUserDeleted     Kind = "auth.user.deleted"
	KindCallable        Kind = "callable"
	KindDocumentCreated Kind = "document.created"
	KindDocumentUpdated Kind = "document.updated"
	KindDocumentDeleted Kind = "document.deleted"
)

// IsDocument はドキュメントストアのイベント種別かどうかを返す。
func (k Kind) IsDocument() bool {
	return k == KindDocumentCreated || k == KindDocumentUpdated || k == KindDocumentDeleted
}

// IsAuth はIdPのイベント種別かどうかを返す。
func (k Kind) IsAuth() bool {
	return k == KindUserCreated || k == KindUserDeleted
}

// User はIdPイベントのアカウント情報。
type User struct {
	UID           string `json:"uid"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
}

// Event はプラットフォームから配信されるイベントの共通エンベロープ。
// ドキュメントイベントはBefore・Afterに変更前後のフィールドを持つ。
// 作成イベントにBeforeは無く、削除イベントにAfterは無い。
type Event struct {
	ID         string         `json:"id"`
	Type       Kind           `json:"type"`
	Collection string         `json:"collection,omitempty"`
	DocumentID string         `json:"documentId,omitempty"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	User       *User          `json:"user,omitempty"`
}

// Validate はイベントの種別に必要なフィールドが揃っているかを検証する。
func (e Event) Validate() error {
	switch {
	case e.Type.IsAuth():
		if e.User == nil || e.User.UID == "" {
			return model.NewInvalidArgumentError(fmt.Sprintf("%s イベントに user.uid がありません", e.Type))
		}
	case e.Type.IsDocument():
		if e.Collection == "" || e.DocumentID == "" {
			return model.NewInvalidArgumentError(fmt.Sprintf("%s イベントに collection・documentId がありません", e.Type))
		}
		if e.Type == KindDocumentCreated && e.After == nil {
			return model.NewInvalidArgumentError("document.created イベントに after がありません")
		}
		if e.Type == KindDocumentUpdated && e.After == nil {
			return model.NewInvalidArgumentError("document.updated イベントに after がありません")
		}
		if e.Type == KindDocumentDeleted && e.Before == nil {
			return model.NewInvalidArgumentError("document.deleted イベントに before がありません")
		}
	default:
		return model.NewInvalidArgumentError(fmt.Sprintf("未対応のイベント種別です: %q", e.Type))
	}
	return nil
}

// BeforeDocument は変更前のドキュメントを返す。無い場合はnil。
func (e Event) BeforeDocument() *model.Document {
	return e.document(e.Before)
}

// AfterDocument は変更後のドキュメントを返す。無い場合はnil。
func (e Event) AfterDocument() *model.Document {
	return e.document(e.After)
}

// Document はイベントの対象ドキュメントを返す。
// 削除イベントでは変更前、それ以外では変更後のドキュメント。
func (e Event) Document() *model.Document {
	if e.Type == KindDocumentDeleted {
		return e.BeforeDocument()
	}
	return e.AfterDocument()
}

func (e Event) document(data map[string]any) *model.Document {
	if data == nil {
		return nil
	}
	return &model.Document{Collection: e.Collection, ID: e.DocumentID, Data: data}
}

// Account はIdPイベントのアカウントを返す。
func (e Event) Account() model.Account {
	if e.User == nil {
		return model.Account{}
	}
	return model.Account{UID: e.User.UID, Email: e.User.Email, EmailVerified: e.User.EmailVerified}
}

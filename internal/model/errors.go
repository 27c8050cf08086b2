// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 呼び出し元に返す原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
	Action   string // 呼び出し元向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidArgument  = "INVALID_ARGUMENT"
	ErrCodeInvalidDocument  = "INVALID_DOCUMENT"
	ErrCodeFunctionNotFound = "FUNCTION_NOT_FOUND"
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodePartialFailure   = "PARTIAL_FAILURE"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeInternal         = "INTERNAL"
)

// NewInvalidArgumentError は呼び出しパラメータ不正エラーを生成する。
func NewInvalidArgumentError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArgument,
		Message:  fmt.Sprintf("パラメータが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストの data フィールドを確認してください。",
	}
}

// NewInvalidDocumentError はイベントで受け取ったドキュメントが想定の形式でない場合のエラーを生成する。
func NewInvalidDocumentError(path, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDocument,
		Message:  fmt.Sprintf("ドキュメントの形式が不正です: %s: %s", path, reason),
		Category: "catalog",
		Action:   "ドキュメントのフィールドを確認してください。",
	}
}

// NewFunctionNotFoundError は未登録の関数名が指定された場合のエラーを生成する。
func NewFunctionNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeFunctionNotFound,
		Message:  fmt.Sprintf("関数が見つかりません: %s", name),
		Category: "validation",
		Action:   "呼び出し可能な関数名を指定してください。",
	}
}

// NewUnauthenticatedError はIDトークンの検証に失敗した場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "IDトークンを検証できませんでした。",
		Category: "auth",
		Action:   "再ログインしてから再度お試しください。",
	}
}

// NewNotFoundError は対象のアカウントまたはドキュメントが存在しない場合のエラーを生成する。
func NewNotFoundError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("対象が見つかりません: %s", reason),
		Category: "validation",
		Action:   "uid・メールアドレスを確認してください。",
	}
}

// NewAlreadyExistsError は既に存在するアカウントを作成しようとした場合のエラーを生成する。
func NewAlreadyExistsError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyExists,
		Message:  fmt.Sprintf("既に存在します: %s", reason),
		Category: "auth",
		Action:   "別のメールアドレスを指定するか、addUserRoleByEmail を使用してください。",
	}
}

// NewPartialFailureError は複数ステップの操作が途中で失敗した場合のエラーを生成する。
func NewPartialFailureError(operation string, completed []string) *APIError {
	return &APIError{
		Code:     ErrCodePartialFailure,
		Message:  fmt.Sprintf("%s が途中で失敗しました（完了済み: %v）", operation, completed),
		Category: "system",
		Action:   "アカウントのクレームと roles ドキュメントの状態を確認し、必要に応じて再実行してください。",
	}
}

// NewInternalError は内部エラーの統一エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

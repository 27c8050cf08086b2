// Package model はドメインモデルを定義する。
package model

import "time"

// Account はIdPに登録されたユーザーアカウントを表す。
type Account struct {
	UID           string
	Email         string
	EmailVerified bool
	Claims        map[string]any
}

// Role はAccountのカスタムクレームに設定された権限ロールを返す。
// 未設定の場合は空文字を返す。
func (a *Account) Role() string {
	if a == nil || a.Claims == nil {
		return ""
	}
	role, _ := a.Claims[ClaimRole].(string)
	return role
}

// Profile はアカウントごとのライフサイクル情報を保持するドキュメント（users/{uid}）。
type Profile struct {
	CreatedTimestamp       time.Time `firestore:"createdTimestamp,omitempty" bson:"createdTimestamp,omitempty"`
	EmailVerified          bool      `firestore:"emailVerified,omitempty" bson:"emailVerified,omitempty"`
	EmailVerifiedTimestamp time.Time `firestore:"emailVerifiedTimestamp,omitempty" bson:"emailVerifiedTimestamp,omitempty"`
}

// RoleRecord はカスタムクレームをミラーした権限ドキュメント（roles/{uid}）。
type RoleRecord struct {
	Email            string    `firestore:"email" bson:"email"`
	Role             string    `firestore:"role" bson:"role"`
	CreatedTimestamp time.Time `firestore:"createdTimestamp,omitempty" bson:"createdTimestamp,omitempty"`
}

// ClaimRole はロールを格納するカスタムクレームのキー。
const ClaimRole = "role"

// RoleClaims はロールから書き込むカスタムクレームを生成する。
// クレームは常に {role} のみで構成する。
func RoleClaims(role string) map[string]any {
	return map[string]any{ClaimRole: role}
}

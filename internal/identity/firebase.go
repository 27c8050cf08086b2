// Package identity はIdP（Firebase Authentication）へのアクセスを提供する。
package identity

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/auth"

	"github.com/hitoshi/backoffice/internal/model"
)

// AuthClient はFirebase Auth Admin SDKのうち本サービスが利用する操作の部分集合。
// *auth.Client がこのインターフェースをみたす。
type AuthClient interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]interface{}) error
	DeleteUser(ctx context.Context, uid string) error
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseProvider はFirebase Authenticationを使用したIdPアダプタ。
type FirebaseProvider struct {
	client AuthClient
}

// NewFirebaseProvider はFirebaseProviderを生成する。
func NewFirebaseProvider(client AuthClient) *FirebaseProvider {
	return &FirebaseProvider{client: client}
}

// CreateUser はメールアドレス確認済みのアカウントを作成する。
func (p *FirebaseProvider) CreateUser(ctx context.Context, email, password string) (*model.Account, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		EmailVerified(true).
		Password(password)

	record, err := p.client.CreateUser(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return toAccount(record), nil
}

// SetRoleClaim はアカウントのカスタムクレームを {role} で置き換える。
func (p *FirebaseProvider) SetRoleClaim(ctx context.Context, uid, role string) error {
	if err := p.client.SetCustomUserClaims(ctx, uid, model.RoleClaims(role)); err != nil {
		return fmt.Errorf("failed to set custom claims: %w", err)
	}
	return nil
}

// DeleteUser はアカウントを削除する。
func (p *FirebaseProvider) DeleteUser(ctx context.Context, uid string) error {
	if err := p.client.DeleteUser(ctx, uid); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// GetUserByEmail はメールアドレスからアカウントを取得する。
func (p *FirebaseProvider) GetUserByEmail(ctx context.Context, email string) (*model.Account, error) {
	record, err := p.client.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return toAccount(record), nil
}

// VerifyToken はIDトークンを検証し、トークンのuidを返す。
func (p *FirebaseProvider) VerifyToken(ctx context.Context, idToken string) (string, error) {
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("failed to verify ID token: %w", err)
	}
	return token.UID, nil
}

// IsNotFound はerrがアカウント未検出を表すかどうかを返す。
// ラップされたエラーも判定する。
func IsNotFound(err error) bool {
	return matchChain(err, auth.IsUserNotFound)
}

// IsAlreadyExists はerrがメールアドレス・uidの重複を表すかどうかを返す。
// ラップされたエラーも判定する。
func IsAlreadyExists(err error) bool {
	return matchChain(err, func(e error) bool {
		return auth.IsEmailAlreadyExists(e) || auth.IsUIDAlreadyExists(e)
	})
}

// matchChain はerrのラップチェーンのいずれかがmatchをみたすかどうかを返す。
// Admin SDKの判定関数はラップを辿らないため、ここで辿る。
func matchChain(err error, match func(error) bool) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if match(err) {
			return true
		}
	}
	return false
}

func toAccount(record *auth.UserRecord) *model.Account {
	a := &model.Account{
		EmailVerified: record.EmailVerified,
		Claims:        record.CustomClaims,
	}
	if record.UserInfo != nil {
		a.UID = record.UID
		a.Email = record.Email
	}
	return a
}

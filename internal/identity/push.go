package identity

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// ValidateFunc はGoogle署名のIDトークンを検証する関数。
// idtoken.Validateがこの型をみたす。
type ValidateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// PushTokenVerifier はイベント配信元（Pub/Subプッシュ、Eventarcなど）が付与する
// OIDCトークンを検証する。
type PushTokenVerifier struct {
	audience       string
	serviceAccount string
	validate       ValidateFunc
}

// NewPushTokenVerifier はPushTokenVerifierを生成する。
// serviceAccountが空でない場合、トークンのemailクレームがそれと一致することも要求する。
func NewPushTokenVerifier(audience, serviceAccount string) *PushTokenVerifier {
	return newPushTokenVerifier(audience, serviceAccount, idtoken.Validate)
}

func newPushTokenVerifier(audience, serviceAccount string, validate ValidateFunc) *PushTokenVerifier {
	return &PushTokenVerifier{audience: audience, serviceAccount: serviceAccount, validate: validate}
}

// VerifyPushToken はトークンの署名・有効期限・audienceを検証し、配信元のサービスアカウントを返す。
func (v *PushTokenVerifier) VerifyPushToken(ctx context.Context, token string) (string, error) {
	if v.audience == "" {
		return "", errors.New("push audience is not configured")
	}
	payload, err := v.validate(ctx, token, v.audience)
	if err != nil {
		return "", fmt.Errorf("failed to validate push token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if v.serviceAccount != "" {
		if email != v.serviceAccount {
			return "", fmt.Errorf("push token was issued to %q, want %q", email, v.serviceAccount)
		}
		if verified, _ := payload.Claims["email_verified"].(bool); !verified {
			return "", fmt.Errorf("push token email %q is not verified", email)
		}
	}
	if email == "" {
		return payload.Subject, nil
	}
	return email, nil
}

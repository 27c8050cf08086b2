package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/backoffice/internal/model"
)

// PushVerifier はイベント配信元が付与するOIDCトークンの検証に必要なインターフェース。
// identity.PushTokenVerifierがこのインターフェースをみたす。
type PushVerifier interface {
	// VerifyPushToken はトークンを検証し、配信元のサービスアカウントを返す。
	VerifyPushToken(ctx context.Context, token string) (string, error)
}

// NewPushAuthMiddleware はイベント配信エンドポイント用の認証ミドルウェアを返す。
// NewAuthMiddlewareと異なり、トークンの無いリクエストも401で拒否する。
// verifierがnilの場合は全てのリクエストを拒否する。
func NewPushAuthMiddleware(verifier PushVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				slog.Warn("event push rejected: push verifier is not configured",
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			sender, err := verifier.VerifyPushToken(r.Context(), token)
			if err != nil {
				slog.Warn("failed to verify push token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			noteCaller(r.Context(), sender)
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

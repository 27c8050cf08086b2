// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/backoffice/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストに呼び出し元のuidを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenVerifier はIDトークンの検証に必要なインターフェース。
// identity.FirebaseProviderがこのインターフェースをみたす。
type TokenVerifier interface {
	VerifyToken(ctx context.Context, idToken string) (string, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 呼び出し元のuidをリクエストコンテキストに注入するミドルウェアを返す。
// ヘッダーが無いリクエストはそのまま通し、検証に失敗したトークンには401を返す。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			uid, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				slog.Warn("failed to verify ID token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			noteCaller(r.Context(), uid)
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), uid)))
		})
	}
}

// UserIDFromContext はリクエストコンテキストから呼び出し元のuidを取得する。
// 認証ミドルウェアで検証済みのトークンがあるリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにuidを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

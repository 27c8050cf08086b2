package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/backoffice/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	PushVerifier      middleware.PushVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 関数
	Functions FunctionCaller
	Events    EventDispatcher

	// 運用
	HealthChecker HealthChecker
	Metrics       http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → SecurityHeaders → CORS → Auth → RateLimit(/functions のみ)
//	Recovery → RequestID → Logging → SecurityHeaders → CORS → PushAuth(/events)
//
// /health と /metrics は認証の外に配置する。
// /events は配信元のOIDCトークンが必須で、PushVerifierが未設定の場合は全て401を返す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewRequestIDMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.CORSAllowedOrigin != "" {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	}

	healthHandler := NewHealthHandler(deps.HealthChecker)
	functionHandler := NewFunctionHandler(deps.Functions)
	eventHandler := NewEventHandler(deps.Events)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Health)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	// --- 呼び出し可能関数 ---
	// ミドルウェアスタック: Auth → RateLimit
	r.Group(func(r chi.Router) {
		if deps.TokenVerifier != nil {
			r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		}
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.CallableMiddleware())
		}
		r.Post("/functions/{name}", functionHandler.Call)
	})

	// --- イベント配信 ---
	r.With(middleware.NewPushAuthMiddleware(deps.PushVerifier)).Post("/events", eventHandler.Receive)

	return r
}

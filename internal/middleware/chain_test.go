package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// TestMiddlewareChain_RecoversPanic はpanicが統一エラーの500に変換されることを検証する。
func TestMiddlewareChain_RecoversPanic(t *testing.T) {
	r := chi.NewRouter()
	r.Use(NewRecoveryMiddleware())
	r.Use(NewRequestIDMiddleware())
	r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error.Status != "INTERNAL" {
		t.Errorf("status name = %q, want INTERNAL", body.Error.Status)
	}
}

// TestMiddlewareChain_AuthThenRateLimit は認証で得たuidがレート制限のキーになることを検証する。
func TestMiddlewareChain_AuthThenRateLimit(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyFn: func(ctx context.Context, idToken string) (string, error) {
			return "uid-" + idToken, nil
		},
	}
	rl := NewRateLimiter(RateLimiterConfig{CallableRate: 0.1, CallableBurst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	r := chi.NewRouter()
	r.Use(NewAuthMiddleware(verifier))
	r.With(rl.CallableMiddleware()).Post("/functions/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/functions/editUserRole", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("a"); code != http.StatusOK {
		t.Errorf("first call for a: status = %d", code)
	}
	if code := send("b"); code != http.StatusOK {
		t.Errorf("first call for b from the same address: status = %d", code)
	}
	if code := send("a"); code != http.StatusTooManyRequests {
		t.Errorf("second call for a: status = %d, want 429", code)
	}
}

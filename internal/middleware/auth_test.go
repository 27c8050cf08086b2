package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// --- モック ---

type mockTokenVerifier struct {
	verifyFn func(ctx context.Context, idToken string) (string, error)
}

func (m *mockTokenVerifier) VerifyToken(ctx context.Context, idToken string) (string, error) {
	return m.verifyFn(ctx, idToken)
}

// --- テスト ---

func TestAuthMiddleware(t *testing.T) {
	verifier := &mockTokenVerifier{
		verifyFn: func(ctx context.Context, idToken string) (string, error) {
			if idToken == "valid-token" {
				return "user-123", nil
			}
			return "", errors.New("ID token has expired")
		},
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUID    string
	}{
		{"トークンなし", "", http.StatusOK, ""},
		{"有効なトークン", "Bearer valid-token", http.StatusOK, "user-123"},
		{"無効なトークン", "Bearer expired-token", http.StatusUnauthorized, ""},
		{"Bearerでない", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"トークンが空", "Bearer ", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUID string
			handler := NewAuthMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUID, _ = UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/functions/editUserRole", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if gotUID != tt.wantUID {
				t.Errorf("uid = %q, want %q", gotUID, tt.wantUID)
			}
		})
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error when uid is not set")
	}
}

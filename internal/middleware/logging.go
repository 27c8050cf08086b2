package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// responseRecorder はhttp.ResponseWriterをラップし、ステータスコードと書き込みバイト数を記録する。
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

// accessEntry は内側のミドルウェアがアクセスログへ書き足す値。
// 認証はロギングより内側で行われるため、検証済みuidはここを経由して受け渡す。
type accessEntry struct {
	callerUID string
}

var accessEntryContextKey = contextKey("access_entry")

// noteCaller は検証済みの呼び出し元uidをアクセスログに記録する。
func noteCaller(ctx context.Context, uid string) {
	if e, ok := ctx.Value(accessEntryContextKey).(*accessEntry); ok {
		e.callerUID = uid
	}
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// method、path、status、bytes、duration_ms、request_idに加え、
// 関数呼び出しではfunction、認証済みの呼び出しではuser_idを出力する。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			entry := &accessEntry{}
			rec := &responseRecorder{ResponseWriter: w}
			r = r.WithContext(context.WithValue(r.Context(), accessEntryContextKey, entry))

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", rec.bytes),
				slog.Float64("duration_ms", float64(time.Since(start).Nanoseconds())/float64(time.Millisecond)),
			}
			if id := RequestIDFromContext(r.Context()); id != "" {
				args = append(args, slog.String("request_id", id))
			}
			// chiのルーティング結果はリクエスト処理後に参照できる
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if name := rctx.URLParam("name"); name != "" {
					args = append(args, slog.String("function", name))
				}
			}
			uid := entry.callerUID
			if uid == "" {
				uid, _ = UserIDFromContext(r.Context())
			}
			if uid != "" {
				args = append(args, slog.String("user_id", uid))
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}

package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/backoffice/internal/model"
)

// ErrorResponseBody は関数呼び出しのエラーレスポンスのフォーマット。
// {"error": {...}} の形で返す。
type ErrorResponseBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail はエラーの内容。原因カテゴリと対処方法を含む。
// Statusは呼び出しプロトコルのステータス名（INVALID_ARGUMENT等）。
type ErrorDetail struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// callableStatus はHTTPステータスコードに対応する呼び出しプロトコルのステータス名。
var callableStatus = map[int]string{
	http.StatusBadRequest:          "INVALID_ARGUMENT",
	http.StatusUnauthorized:        "UNAUTHENTICATED",
	http.StatusForbidden:           "PERMISSION_DENIED",
	http.StatusNotFound:            "NOT_FOUND",
	http.StatusConflict:            "ALREADY_EXISTS",
	http.StatusTooManyRequests:     "RESOURCE_EXHAUSTED",
	http.StatusInternalServerError: "INTERNAL",
	http.StatusServiceUnavailable:  "UNAVAILABLE",
}

// StatusName はHTTPステータスコードに対応するステータス名を返す。
func StatusName(statusCode int) string {
	if s, ok := callableStatus[statusCode]; ok {
		return s
	}
	return "UNKNOWN"
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{Error: ErrorDetail{
		Status:   StatusName(statusCode),
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	}})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、呼び出し元には一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

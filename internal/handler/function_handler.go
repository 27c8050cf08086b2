package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/backoffice/internal/model"
)

// maxRequestBodySize はリクエストボディの上限（1MiB）。
const maxRequestBodySize = 1 << 20

// FunctionCaller は呼び出し可能関数の実行インターフェース。
// trigger.Registryがこのインターフェースをみたす。
type FunctionCaller interface {
	Call(ctx context.Context, name string, data json.RawMessage) (any, error)
}

// callRequest は関数呼び出しのリクエストボディ。
type callRequest struct {
	Data json.RawMessage `json:"data"`
}

// callResponse は関数呼び出しの成功レスポンス。
type callResponse struct {
	Result any `json:"result"`
}

// FunctionHandler は関数の直接呼び出しを受け付けるHTTPハンドラー。
type FunctionHandler struct {
	caller FunctionCaller
}

// NewFunctionHandler はFunctionHandlerを生成する。
func NewFunctionHandler(caller FunctionCaller) *FunctionHandler {
	return &FunctionHandler{caller: caller}
}

// Call は名前で指定された関数を実行する。
// POST /functions/{name}
// リクエスト {"data": {...}}、レスポンス {"result": ...}
func (h *FunctionHandler) Call(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req callRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentError("リクエストボディをデコードできません"))
		return
	}

	result, err := h.caller.Call(r.Context(), name, req.Data)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, callResponse{Result: result})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

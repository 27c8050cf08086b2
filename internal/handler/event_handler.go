package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/backoffice/internal/model"
	"github.com/hitoshi/backoffice/internal/trigger"
)

// EventDispatcher はイベントを登録済み関数に振り分けるインターフェース。
// trigger.Registryがこのインターフェースをみたす。
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev trigger.Event) error
}

// EventHandler はプラットフォームからプッシュ配信されるイベントを受け付けるHTTPハンドラー。
type EventHandler struct {
	dispatcher EventDispatcher
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(dispatcher EventDispatcher) *EventHandler {
	return &EventHandler{dispatcher: dispatcher}
}

// Receive はイベントを処理する。
// POST /events
// 成功時は204を返す。5xxを返したイベントはプラットフォームが再配信する。
func (h *EventHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var ev trigger.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&ev); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArgumentError("イベントをデコードできません"))
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), ev); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

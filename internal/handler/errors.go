package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"go.uber.org/multierr"

	"github.com/hitoshi/backoffice/internal/identity"
	"github.com/hitoshi/backoffice/internal/middleware"
	"github.com/hitoshi/backoffice/internal/model"
	"github.com/hitoshi/backoffice/internal/repository"
	"github.com/hitoshi/backoffice/internal/role"
)

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	statusCode, apiErr := resolveError(err)
	if statusCode >= http.StatusInternalServerError {
		slog.Error("function failed", slog.String("error", err.Error()))
	}
	writeAPIErrorResponse(w, statusCode, apiErr)
}

// resolveError はエラーからHTTPステータスコードと呼び出し元に返すAPIErrorを決定する。
// 部分失敗は元のエラーでステータスを決め、本文には完了済みステップを含める。
// 複数の失敗をまとめたエラーは、1つでも5xxに当たるものがあれば500とする。
func resolveError(err error) (int, *model.APIError) {
	if parts := multierr.Errors(err); len(parts) > 1 {
		return resolveCombined(parts)
	}

	var partial *role.PartialFailureError
	if errors.As(err, &partial) {
		statusCode, _ := resolveError(partial.Err)
		return statusCode, partial.APIError()
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return mapAPIErrorToHTTPStatus(apiErr), apiErr
	}

	switch {
	case repository.IsNotFound(err):
		return http.StatusNotFound, model.NewNotFoundError("ドキュメントが存在しません")
	case identity.IsNotFound(err):
		return http.StatusNotFound, model.NewNotFoundError("アカウントが存在しません")
	case identity.IsAlreadyExists(err):
		return http.StatusConflict, model.NewAlreadyExistsError("メールアドレスは登録済みです")
	}

	return http.StatusInternalServerError, model.NewInternalError()
}

// resolveCombined は複数の失敗から1つのステータスを決める。
// 全てが4xxの場合のみ最初の失敗のステータスを返し、再配信されないようにする。
func resolveCombined(parts []error) (int, *model.APIError) {
	var (
		firstStatus int
		firstErr    *model.APIError
	)
	for i, part := range parts {
		statusCode, apiErr := resolveError(part)
		if statusCode >= http.StatusInternalServerError {
			return http.StatusInternalServerError, model.NewInternalError()
		}
		if i == 0 {
			firstStatus, firstErr = statusCode, apiErr
		}
	}
	return firstStatus, firstErr
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidArgument, model.ErrCodeInvalidDocument:
		return http.StatusBadRequest
	case model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeFunctionNotFound, model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

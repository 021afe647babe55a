package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/think/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
}

// StatusFor はエラーカテゴリに対応するHTTPステータスを返す。
// 認証・認可・公開状態の変更拒否はクライアントが本文で判定するため200を返す。
func StatusFor(apiErr *model.APIError) int {
	switch apiErr.Category {
	case model.CategoryValidation, model.CategoryNotFound:
		return http.StatusBadRequest
	case model.CategoryIntegrity:
		return http.StatusConflict
	case model.CategoryAuth, model.CategoryPermission, model.CategoryDeclined:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Success:  false,
		ErrorMsg: apiErr.Message,
	})
}

// WriteError はerrをステータスとエンベロープに変換して書き込む。
// APIError以外のエラーは詳細をログに残し、500と一般的なメッセージを返す。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteErrorResponse(w, StatusFor(apiErr), apiErr)
		return
	}
	slog.Error("unexpected error", slog.String("error", err.Error()))
	WriteInternalServerError(w)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

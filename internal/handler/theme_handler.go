package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/think/internal/middleware"
	"github.com/hitoshi/think/internal/security"
)

// ThemeServiceInterface はThemeハンドラーが必要とするサービスインターフェース。
type ThemeServiceInterface interface {
	// Upsert はThemeを作成または更新し、IDを返す。
	Upsert(ctx context.Context, p *themePayload, userID string) (string, error)
	// Delete はThemeを削除する。
	Delete(ctx context.Context, themeID, userID string) error
}

// ThemeHandler はTheme管理のHTTPハンドラー。
type ThemeHandler struct {
	service   ThemeServiceInterface
	sanitizer security.TextSanitizer
}

// NewThemeHandler はThemeHandlerを生成する。
func NewThemeHandler(service ThemeServiceInterface, sanitizer security.TextSanitizer) *ThemeHandler {
	return &ThemeHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// SaveTheme はThemeを作成または更新する。
// PUT /theme
func (h *ThemeHandler) SaveTheme(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, middleware.AuthError(middleware.ViewerFromContext(r.Context())))
		return
	}

	var req saveThemeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	req.Theme.clean(h.sanitizer)

	id, err := h.service.Upsert(r.Context(), req.Theme, userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{Success: true, ID: id})
}

// DeleteTheme はThemeを削除する。参照していたThoughtからは外される。
// DELETE /theme?id=xxx
func (h *ThemeHandler) DeleteTheme(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, middleware.AuthError(middleware.ViewerFromContext(r.Context())))
		return
	}

	id, err := requiredQuery(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

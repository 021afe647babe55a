package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/think/internal/middleware"
	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/security"
)

// collectionAll はGET /thought?collection=all の値。
const collectionAll = "all"

// ThoughtServiceInterface はThoughtハンドラーが必要とするサービスインターフェース。
type ThoughtServiceInterface interface {
	// GetByID はIDで指定されたThoughtを閲覧者の権限で取得する。
	GetByID(ctx context.Context, id string, viewer model.Viewer) (*thoughtResponse, error)
	// GetByName は名前で指定されたThoughtを閲覧者の権限で取得する。
	GetByName(ctx context.Context, name string, viewer model.Viewer) (*thoughtResponse, error)
	// DescribeForUser はユーザーが閲覧できるThoughtの一覧を返す。
	DescribeForUser(ctx context.Context, userID string) ([]thoughtDescriptionResponse, error)
	// Save はThoughtを作成または更新し、IDを返す。
	Save(ctx context.Context, p *thoughtPayload, userID string) (string, error)
	// Delete はThoughtを削除する。
	Delete(ctx context.Context, thoughtID, userID string) error
	// SetVisibility はThoughtの公開状態を切り替える。
	SetVisibility(ctx context.Context, thoughtID, userID string, public bool) error
}

// ThoughtHandler はThoughtと公開状態のHTTPハンドラー。
type ThoughtHandler struct {
	service   ThoughtServiceInterface
	sanitizer security.TextSanitizer
}

// NewThoughtHandler はThoughtHandlerを生成する。
func NewThoughtHandler(service ThoughtServiceInterface, sanitizer security.TextSanitizer) *ThoughtHandler {
	return &ThoughtHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// GetThought はThought1件またはログインユーザーのThought一覧を返す。
// GET /thought?id=xxx | ?name=xxx | ?collection=all
//
// id、name、collection のうち正確に1つを指定する必要がある。
func (h *ThoughtHandler) GetThought(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("id"))
	name := strings.TrimSpace(q.Get("name"))
	collection := strings.TrimSpace(q.Get("collection"))

	given := 0
	for _, v := range []string{id, name, collection} {
		if v != "" {
			given++
		}
	}
	if given != 1 {
		middleware.WriteError(w, model.NewBadRequestError("Exactly one of id, name or collection must be given."))
		return
	}

	viewer := middleware.ViewerFromContext(r.Context())

	if collection != "" {
		if collection != collectionAll {
			middleware.WriteError(w, model.NewBadRequestError("Unknown collection."))
			return
		}
		if !viewer.Authenticated() {
			middleware.WriteError(w, middleware.AuthError(viewer))
			return
		}
		descs, err := h.service.DescribeForUser(r.Context(), viewer.UserID)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, thoughtDescriptionsEnvelope{Success: true, ThoughtDescriptions: descs})
		return
	}

	var (
		resp *thoughtResponse
		err  error
	)
	if id != "" {
		resp, err = h.service.GetByID(r.Context(), id, viewer)
	} else {
		resp, err = h.service.GetByName(r.Context(), name, viewer)
	}
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, thoughtEnvelope{Success: true, Thought: resp})
}

// SaveThought はThoughtを作成または更新する。
// POST /thought, PUT /thought
//
// idが無い、または既に存在しないThoughtを指す場合は新規作成になる。
func (h *ThoughtHandler) SaveThought(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, middleware.AuthError(middleware.ViewerFromContext(r.Context())))
		return
	}

	var req saveThoughtRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	req.Thought.clean(h.sanitizer)

	id, err := h.service.Save(r.Context(), req.Thought, userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{Success: true, ID: id})
}

// DeleteThought はThoughtを削除する。
// DELETE /thought?id=xxx
func (h *ThoughtHandler) DeleteThought(w http.ResponseWriter, r *http.Request) {
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

// Publish はThoughtを公開する。既に公開済みの場合はエラーを返す。
// POST /public?id=xxx
func (h *ThoughtHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setVisibility(w, r, true)
}

// Unpublish はThoughtを非公開にする。既に非公開の場合はエラーを返す。
// DELETE /public?id=xxx
func (h *ThoughtHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setVisibility(w, r, false)
}

func (h *ThoughtHandler) setVisibility(w http.ResponseWriter, r *http.Request, public bool) {
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
	if err := h.service.SetVisibility(r.Context(), id, userID, public); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

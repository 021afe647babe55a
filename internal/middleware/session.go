// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/think/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// viewerContextKey はリクエストコンテキストに閲覧者を格納するためのキー。
var viewerContextKey = contextKey("viewer")

// ViewerResolver はセッションIDから閲覧者を判定するインターフェース。
type ViewerResolver interface {
	Viewer(ctx context.Context, sessionID string) (model.Viewer, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 閲覧者（匿名・期限切れ・認証済み）をリクエストコンテキストに注入するミドルウェアを返す。
// 認証を要求しないため、公開Thoughtの閲覧などでは未認証のまま通過する。
func NewSessionMiddleware(resolver ViewerResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewer := model.AnonymousViewer()

			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				v, err := resolver.Viewer(r.Context(), cookie.Value)
				if err != nil {
					slog.Error("failed to resolve session",
						slog.String("error", err.Error()),
					)
				}
				viewer = v
			}
			if info := requestInfoFromContext(r.Context()); info != nil && viewer.Authenticated() {
				info.userID = viewer.UserID
			}

			next.ServeHTTP(w, r.WithContext(ContextWithViewer(r.Context(), viewer)))
		})
	}
}

// RequireUser は認証済みの閲覧者のみを通過させるミドルウェア。
// 未認証の場合はセッションの状態に応じたエラーをエンベロープで返す。
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer := ViewerFromContext(r.Context())
		if !viewer.Authenticated() {
			WriteError(w, AuthError(viewer))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthError は未認証の閲覧者に返すエラーを返す。
func AuthError(viewer model.Viewer) *model.APIError {
	if viewer.State == model.SessionExpired {
		return model.NewSessionExpiredError()
	}
	return model.NewNotLoggedInError()
}

// ViewerFromContext はリクエストコンテキストから閲覧者を取得する。
// セッションミドルウェアを通過していない場合は匿名の閲覧者を返す。
func ViewerFromContext(ctx context.Context) model.Viewer {
	viewer, ok := ctx.Value(viewerContextKey).(model.Viewer)
	if !ok {
		return model.AnonymousViewer()
	}
	return viewer
}

// ContextWithViewer はコンテキストに閲覧者を注入する。
func ContextWithViewer(ctx context.Context, viewer model.Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey, viewer)
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	viewer := ViewerFromContext(ctx)
	if !viewer.Authenticated() {
		return "", fmt.Errorf("user ID not found in context")
	}
	return viewer.UserID, nil
}

// ContextWithUserID はコンテキストに認証済みユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return ContextWithViewer(ctx, model.Viewer{UserID: userID, State: model.SessionActive})
}

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/think/internal/model"
)

// mockViewerResolver はViewerResolverのモック。
type mockViewerResolver struct {
	viewerFn func(ctx context.Context, sessionID string) (model.Viewer, error)
}

func (m *mockViewerResolver) Viewer(ctx context.Context, sessionID string) (model.Viewer, error) {
	if m.viewerFn != nil {
		return m.viewerFn(ctx, sessionID)
	}
	return model.Viewer{State: model.SessionExpired}, nil
}

var _ ViewerResolver = (*mockViewerResolver)(nil)

// activeResolver は"valid-session"のみを認証済みとして扱う。
func activeResolver(userID string) *mockViewerResolver {
	return &mockViewerResolver{
		viewerFn: func(ctx context.Context, sessionID string) (model.Viewer, error) {
			if sessionID == "valid-session" {
				return model.Viewer{UserID: userID, State: model.SessionActive}, nil
			}
			return model.Viewer{State: model.SessionExpired}, nil
		},
	}
}

func captureViewer(t *testing.T, mw func(http.Handler) http.Handler, cookie string) model.Viewer {
	t.Helper()
	var captured model.Viewer
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = ViewerFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/thought", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie})
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return captured
}

func TestSessionMiddleware_ValidSession_InjectsViewer(t *testing.T) {
	viewer := captureViewer(t, NewSessionMiddleware(activeResolver("user-123")), "valid-session")

	if !viewer.Authenticated() {
		t.Fatal("expected authenticated viewer")
	}
	if viewer.UserID != "user-123" {
		t.Errorf("userID = %q, want %q", viewer.UserID, "user-123")
	}
}

func TestSessionMiddleware_NoCookie_Anonymous(t *testing.T) {
	resolver := &mockViewerResolver{
		viewerFn: func(ctx context.Context, sessionID string) (model.Viewer, error) {
			t.Error("resolver should not be called without cookie")
			return model.Viewer{}, nil
		},
	}

	viewer := captureViewer(t, NewSessionMiddleware(resolver), "")

	if viewer.State != model.SessionNone {
		t.Errorf("state = %v, want SessionNone", viewer.State)
	}
}

func TestSessionMiddleware_UnknownSession_Expired(t *testing.T) {
	viewer := captureViewer(t, NewSessionMiddleware(activeResolver("user-123")), "stale-session")

	if viewer.State != model.SessionExpired {
		t.Errorf("state = %v, want SessionExpired", viewer.State)
	}
}

func TestSessionMiddleware_ResolverError_NotAuthenticated(t *testing.T) {
	resolver := &mockViewerResolver{
		viewerFn: func(ctx context.Context, sessionID string) (model.Viewer, error) {
			return model.Viewer{State: model.SessionExpired}, errors.New("db down")
		},
	}

	viewer := captureViewer(t, NewSessionMiddleware(resolver), "valid-session")

	if viewer.Authenticated() {
		t.Error("viewer should not be authenticated when resolver fails")
	}
}

func TestRequireUser(t *testing.T) {
	tests := []struct {
		name       string
		viewer     model.Viewer
		wantCalled bool
		wantMsg    string
	}{
		{"認証済み", model.Viewer{UserID: "u", State: model.SessionActive}, true, ""},
		{"未ログイン", model.AnonymousViewer(), false, "You are not logged in."},
		{"セッション切れ", model.Viewer{State: model.SessionExpired}, false, "Your session has expired."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodPost, "/thought", nil)
			req = req.WithContext(ContextWithViewer(req.Context(), tt.viewer))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if called != tt.wantCalled {
				t.Fatalf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if tt.wantCalled {
				return
			}
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Success || body.ErrorMsg != tt.wantMsg {
				t.Errorf("body = %+v, want errorMsg %q", body, tt.wantMsg)
			}
		})
	}
}

func TestUserIDFromContext_NoValue_ReturnsError(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}
}

func TestUserIDFromContext_ValidValue_ReturnsUserID(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-456")

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-456" {
		t.Errorf("userID = %q, want %q", userID, "user-456")
	}
}

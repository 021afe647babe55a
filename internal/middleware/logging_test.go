package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/think/internal/model"
)

// serveAndCapture はhandlerにreqを送り、出力された1行のJSONログを返す。
func serveAndCapture(t *testing.T, wrap func(http.Handler) http.Handler, inner http.HandlerFunc, req *http.Request) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var h http.Handler = inner
	if wrap != nil {
		h = wrap(h)
	}
	NewLoggingMiddleware(logger)(h).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

func TestLoggingMiddleware_RequestFields(t *testing.T) {
	entry := serveAndCapture(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, httptest.NewRequest(http.MethodDelete, "/thought?id=t-1", nil))

	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", entry["msg"])
	}
	if entry["method"] != http.MethodDelete {
		t.Errorf("method = %v, want DELETE", entry["method"])
	}
	// クエリ文字列はログに含めない
	if entry["path"] != "/thought" {
		t.Errorf("path = %v, want /thought", entry["path"])
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if d, ok := entry["duration_ms"].(float64); !ok || d < 0 {
		t.Errorf("duration_ms = %v, want a non-negative number", entry["duration_ms"])
	}
}

func TestLoggingMiddleware_UserIDFromSession(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		want   string
	}{
		{name: "有効なセッション", cookie: "valid-session", want: "user-123"},
		{name: "期限切れのセッション", cookie: "stale-session", want: ""},
		{name: "Cookieなし", cookie: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/thought?collection=all", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}

			entry := serveAndCapture(t, NewSessionMiddleware(activeResolver("user-123")), func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}, req)

			got, present := entry["user_id"]
			if tt.want == "" {
				if present {
					t.Errorf("user_id = %v, want the attribute to be omitted", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("user_id = %v, want %q", got, tt.want)
			}
		})
	}
}

// エンベロープのエラーは分類に応じたステータスで返るため、ログレベルもそれに従う。
func TestLoggingMiddleware_LevelFollowsErrorStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{name: "閲覧権限なしは200", err: model.NewThoughtInvisibleError(), wantLevel: "INFO"},
		{name: "存在しないThoughtは400", err: model.NewThoughtNotFoundError("t-9"), wantLevel: "WARN"},
		{name: "参照整合性エラーは409", err: model.NewIntegrityError(), wantLevel: "WARN"},
		{name: "想定外のエラーは500", err: errors.New("connection reset"), wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := serveAndCapture(t, nil, func(w http.ResponseWriter, r *http.Request) {
				WriteError(w, tt.err)
			}, httptest.NewRequest(http.MethodPut, "/thought", nil))

			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s (status %v)", entry["level"], tt.wantLevel, entry["status"])
			}
		})
	}
}

func TestLoggingMiddleware_ImplicitStatusOnWrite(t *testing.T) {
	entry := serveAndCapture(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
		// Write後のWriteHeaderはステータスを変えない
		w.WriteHeader(http.StatusInternalServerError)
	}, httptest.NewRequest(http.MethodGet, "/health", nil))

	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/think/internal/middleware"
	"github.com/hitoshi/think/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	ViewerResolver    middleware.ViewerResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HTTPMetrics       middleware.HTTPMetricsRecorder
	Sanitizer         security.TextSanitizer

	// 認証
	AuthService AuthServiceInterface
	Identity    IdentityReader
	AuthConfig  AuthHandlerConfig

	// Thought・Theme
	ThoughtService ThoughtServiceInterface
	ThemeService   ThemeServiceInterface

	// 運用
	HealthChecks   map[string]Pinger
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → Metrics → CORS → SecurityHeaders → Session → RateLimit(General)
//
// /health と /metrics はセッションとレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecks).Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Identity, deps.AuthConfig)
	thoughtHandler := NewThoughtHandler(deps.ThoughtService, deps.Sanitizer)
	themeHandler := NewThemeHandler(deps.ThemeService, deps.Sanitizer)

	// --- セッションを解決するルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.ViewerResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ログイン・ログアウト
		r.Get("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)

		// 閲覧は公開Thoughtなら未ログインでも可能
		r.Get("/thought", thoughtHandler.GetThought)

		// --- ログインが必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			// POST/PUT /thought - 保存（保存専用レート制限を追加）
			r.With(deps.RateLimiter.SaveMiddleware()).Post("/thought", thoughtHandler.SaveThought)
			r.With(deps.RateLimiter.SaveMiddleware()).Put("/thought", thoughtHandler.SaveThought)
			r.Delete("/thought", thoughtHandler.DeleteThought)

			// 公開状態
			r.Post("/public", thoughtHandler.Publish)
			r.Delete("/public", thoughtHandler.Unpublish)

			// Theme
			r.Put("/theme", themeHandler.SaveTheme)
			r.Delete("/theme", themeHandler.DeleteTheme)
		})
	})

	return r
}

package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/think/internal/auth"
	"github.com/hitoshi/think/internal/bootstrap"
	"github.com/hitoshi/think/internal/config"
	"github.com/hitoshi/think/internal/database"
	"github.com/hitoshi/think/internal/handler"
	"github.com/hitoshi/think/internal/metrics"
	"github.com/hitoshi/think/internal/middleware"
	"github.com/hitoshi/think/internal/repository"
	"github.com/hitoshi/think/internal/repository/memstore"
	"github.com/hitoshi/think/internal/security"
	"github.com/hitoshi/think/internal/session"
	"github.com/hitoshi/think/internal/theme"
	"github.com/hitoshi/think/internal/thought"
)

// sessionStore はAPIとワーカーの双方が使うセッションの保存先。
type sessionStore interface {
	repository.SessionRepository
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// runtime はプロセスが保持する永続化層への接続をまとめる。
type runtime struct {
	store    repository.Store
	sessions sessionStore
	checks   map[string]handler.Pinger
	closers  []func() error
}

// openRuntime は設定に従ってStoreとセッションの保存先を開き、疎通を確認する。
func openRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{checks: make(map[string]handler.Pinger)}

	var db *sql.DB
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		var err error
		db, err = database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)

		if err := database.PingWithRetry(ctx, db, cfg.DatabaseConnectAttempts); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)

		store := repository.NewPostgresStore(db)
		rt.store = store
		rt.checks["database"] = store
	default:
		store := memstore.New()
		rt.store = store
		rt.checks["store"] = store
		slog.Warn("using in-memory store; data is lost on restart")
	}

	switch cfg.SessionStore {
	case config.BackendPostgres:
		rt.sessions = repository.NewPostgresSessionRepo(db)
	case config.BackendRedis:
		rs, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		rt.closers = append(rt.closers, rs.Close)

		if err := rs.Ping(ctx); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		rt.sessions = rs
		rt.checks["sessions"] = rs
	default:
		rt.sessions = memstore.NewSessionRepo()
	}

	return rt, nil
}

// Close は開いた接続をすべて閉じる。
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// api はserveモードで組み立てたHTTPハンドラーと付随するコンポーネント。
type api struct {
	handler   http.Handler
	collector *metrics.Collector
	limiter   *middleware.RateLimiter
}

// buildAPI は全サービスをワイヤリングしてルーターを構築する。
// 呼び出し側はlimiter.Stopでレート制限の掃除ループを止めること。
func buildAPI(rt *runtime, cfg *config.Config, registry *prometheus.Registry) *api {
	collector := metrics.NewCollector(registry)

	themes := theme.NewService(rt.store)
	thoughts := thought.NewService(rt.store, themes, thought.WithMetrics(collector))
	authService := auth.NewService(
		rt.store.Repositories().Users, rt.sessions,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	limiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSave),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		ViewerResolver:    authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		HTTPMetrics:       collector,
		Sanitizer:         security.NewTextSanitizer(),

		AuthService: authService,
		Identity:    auth.NewHeaderIdentity(cfg.OpenIDIdentityHeader),
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ThoughtService: handler.NewThoughtServiceAdapter(thoughts),
		ThemeService:   handler.NewThemeServiceAdapter(themes),

		HealthChecks:   rt.checks,
		MetricsHandler: metrics.Handler(registry),
	})

	return &api{handler: router, collector: collector, limiter: limiter}
}

// seedTutorial は組み込みのTutorialを投入する。投入済みなら何もしない。
func seedTutorial(ctx context.Context, store repository.Store) error {
	doc, err := bootstrap.Tutorial()
	if err != nil {
		return fmt.Errorf("failed to load tutorial: %w", err)
	}

	seeded, err := bootstrap.NewRunner(store).Run(ctx, doc)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	slog.Info("bootstrap finished", slog.Bool("seeded", seeded))
	return nil
}

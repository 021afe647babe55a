package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 永続化バックエンド
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreBackend            string
	DatabaseURL             string
	DatabaseConnectAttempts int

	// Session
	SessionStore         string
	RedisURL             string
	SessionMaxAge        int
	SessionSweepInterval time.Duration

	// OpenID
	OpenIDIdentityHeader string

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral int
	RateLimitSave    int

	// Logging
	LogLevel string

	// Bootstrap
	BootstrapOnStart bool

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はまとめてエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.StoreBackend = strings.ToLower(getEnvString("STORE_BACKEND", BackendPostgres))
	if cfg.StoreBackend != BackendPostgres && cfg.StoreBackend != BackendMemory {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, cfg.StoreBackend)
	}

	// セッションの保存先は既定でStoreと同じ
	cfg.SessionStore = strings.ToLower(getEnvString("SESSION_STORE", cfg.StoreBackend))
	switch cfg.SessionStore {
	case BackendRedis, BackendMemory:
	case BackendPostgres:
		if cfg.StoreBackend != BackendPostgres {
			return nil, fmt.Errorf("SESSION_STORE=%s requires STORE_BACKEND=%s", BackendPostgres, BackendPostgres)
		}
	default:
		return nil, fmt.Errorf("SESSION_STORE must be %q, %q or %q, got %q", BackendPostgres, BackendRedis, BackendMemory, cfg.SessionStore)
	}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && cfg.StoreBackend == BackendPostgres {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" && cfg.SessionStore == BackendRedis {
		missing = append(missing, "REDIS_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DatabaseConnectAttempts = getEnvInt("DATABASE_CONNECT_ATTEMPTS", 5)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionSweepInterval = getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour)
	cfg.OpenIDIdentityHeader = getEnvString("OPENID_IDENTITY_HEADER", "X-OpenID-Claimed-Id")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSave = getEnvInt("RATE_LIMIT_SAVE", 30)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.BootstrapOnStart = getEnvBool("BOOTSTRAP_ON_START", true)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// SessionTTL はセッションの有効期間を返す。
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionMaxAge) * time.Second
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

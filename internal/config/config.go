package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ストレージドライバ名
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Remote API
	StoreAPIBaseURL    string
	StoreAPIMethodPath string
	APITimeout         time.Duration

	// Storage
	StorageDriver string
	StoragePath   string
	DatabaseURL   string
	StorageScope  string
	CartPersist   bool

	// Server
	ServerPort        string
	LoginPath         string
	CORSAllowedOrigin string

	// Rate Limit
	RateLimitLogin int

	// Image proxy
	ImageProxyTimeout      time.Duration
	ImageProxyMaxSize      int64
	ImageProxyAllowedHosts []string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.StoreAPIBaseURL = strings.TrimRight(os.Getenv("STORE_API_BASE_URL"), "/")
	if cfg.StoreAPIBaseURL == "" {
		missing = append(missing, "STORE_API_BASE_URL")
	}

	cfg.StorageDriver = getEnvString("STORAGE_DRIVER", DriverSQLite)
	switch cfg.StorageDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		// postgresの場合のみDATABASE_URLが必須
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER: %q (allowed: %s, %s, %s)",
			cfg.StorageDriver, DriverSQLite, DriverPostgres, DriverMemory)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.StoreAPIMethodPath = getEnvString("STORE_API_METHOD_PATH", "test_google.google_testing.api")
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 10*time.Second)
	cfg.StoragePath = getEnvString("STORAGE_PATH", "storefront.db")
	cfg.StorageScope = getEnvString("STORAGE_SCOPE", "storefront")
	cfg.CartPersist = getEnvBool("CART_PERSIST", false)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LoginPath = getEnvString("LOGIN_PATH", "/login")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.ImageProxyTimeout = getEnvDuration("IMAGE_PROXY_TIMEOUT", 10*time.Second)
	cfg.ImageProxyMaxSize = getEnvInt64("IMAGE_PROXY_MAX_SIZE", 5242880)
	cfg.ImageProxyAllowedHosts = getEnvList("IMAGE_PROXY_ALLOWED_HOSTS")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// StorageURL はgolang-migrateに渡すデータベースURLを返す。
// memoryドライバの場合は空文字列を返す。
func (c *Config) StorageURL() string {
	switch c.StorageDriver {
	case DriverSQLite:
		return "sqlite3://" + c.StoragePath
	case DriverPostgres:
		return c.DatabaseURL
	default:
		return ""
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvList はカンマ区切りの値を空要素を除いて返す。
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
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
	if err != nil {
		return defaultVal
	}
	return d
}

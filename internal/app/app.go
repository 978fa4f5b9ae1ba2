// Package app は設定の読み込み、依存関係のワイヤリング、各サブコマンドの実行を担う。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/config"
	"github.com/hitoshi/storefront/internal/database"
	"github.com/hitoshi/storefront/internal/gate"
	"github.com/hitoshi/storefront/internal/handler"
	"github.com/hitoshi/storefront/internal/logger"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/security"
	"github.com/hitoshi/storefront/internal/session"
	"github.com/hitoshi/storefront/internal/storage"
	"github.com/hitoshi/storefront/internal/storeapi"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// logLevelが空でない場合はLOG_LEVELより優先する。
func Init(w io.Writer, logLevel string) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(logLevel))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Components はserveで使う依存関係一式。
type Components struct {
	Handler http.Handler
	Session *session.Store
	Cart    *cart.Store
	Metrics *metrics.Collector

	closers []func()
}

// Close はBuildで確保したリソースを逆順に解放する。
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build は設定から全依存関係をワイヤリングする。
// セッションの復元とカートの読み込みまで行い、リクエストを受け付けられる状態で返す。
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Components, error) {
	c := &Components{}

	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.NewCollector(reg)

	// 2. ストレージ
	backend, db, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	if db != nil {
		c.closers = append(c.closers, func() { db.Close() })
	}
	adapter := storage.NewAdapter(backend, log, c.Metrics)

	// 3. リモートAPIクライアント
	httpClient, err := storeapi.NewHTTPClient(cfg.APITimeout)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create store api client: %w", err)
	}
	api := storeapi.NewClient(httpClient, log, cfg.StoreAPIBaseURL, cfg.StoreAPIMethodPath)
	api.SetRecorder(c.Metrics)

	// 4. セッション
	c.Session = session.NewStore(api, adapter,
		session.WithLogger(log),
		session.WithMetrics(c.Metrics),
	)
	c.closers = append(c.closers, c.Session.Close)
	c.Session.Subscribe(func(st session.State) {
		userID := ""
		if st.Identity != nil {
			userID = st.Identity.ID
		}
		log.Debug("session state changed",
			slog.Bool("is_authenticated", st.IsAuthenticated),
			slog.Bool("is_loading", st.IsLoading),
			slog.String("user_id", userID),
		)
	})
	if err := c.Session.Initialize(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	// 5. カート
	sanitizer := security.NewSanitizer()
	cartOpts := []cart.Option{
		cart.WithSanitizer(sanitizer),
		cart.WithLogger(log),
		cart.WithMetrics(c.Metrics),
	}
	if cfg.CartPersist {
		cartOpts = append(cartOpts, cart.WithPersistence(adapter))
	}
	c.Cart = cart.NewStore(cartOpts...)
	c.closers = append(c.closers, c.Cart.Close)
	restored := c.Cart.Load(ctx)
	log.Info("cart ready",
		slog.Bool("persist", cfg.CartPersist),
		slog.Int("item_count", restored.ItemCount),
	)

	// 6. 画像プロキシ
	guard := security.NewImageGuard(cfg.ImageProxyAllowedHosts...)

	// 7. ルーター
	limiter := middleware.NewRateLimiter(middleware.LoginRateLimiterConfig(cfg.RateLimitLogin), log)
	c.closers = append(c.closers, limiter.Stop)

	deps := &handler.RouterDeps{
		Logger:            log,
		Metrics:           c.Metrics,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		LoginRateLimiter:  limiter,
		Gate:              gate.New(cfg.LoginPath),

		MetricsHandler: metrics.Handler(reg),

		Session: c.Session,
		Cart:    c.Cart,

		Catalog:      api,
		Sanitizer:    sanitizer,
		AssetBaseURL: cfg.StoreAPIBaseURL,

		ImageValidator: guard,
		ImageClient:    guard.NewSafeClient(cfg.ImageProxyTimeout),
		ImageMaxSize:   cfg.ImageProxyMaxSize,
	}
	if db != nil {
		deps.HealthChecker = db
	}
	c.Handler = handler.NewRouter(deps)

	return c, nil
}

// openStorage は設定に応じたストレージバックエンドを開く。
// SQLドライバの場合はマイグレーションを適用してから接続する。memoryの場合dbはnil。
func openStorage(cfg *config.Config) (storage.Backend, *sql.DB, error) {
	var dsn string
	switch cfg.StorageDriver {
	case config.DriverMemory:
		slog.Warn("using in-memory storage, session and cart will not survive restarts")
		return storage.NewMemoryBackend(), nil, nil
	case config.DriverSQLite:
		dsn = cfg.StoragePath
	default:
		dsn = cfg.DatabaseURL
	}

	if err := database.RunMigrations(cfg.StorageURL()); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate storage: %w", err)
	}

	db, err := database.Open(cfg.StorageDriver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("storage connection established",
		slog.String("driver", cfg.StorageDriver),
		slog.String("scope", cfg.StorageScope),
	)
	return storage.NewSQLBackend(db, cfg.StorageScope), db, nil
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	components, err := Build(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer components.Close()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      components.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はストレージのマイグレーションを実行する。
// memoryドライバではスキーマがないため何もしない。
func runMigrate(cfg *config.Config) error {
	if cfg.StorageDriver == config.DriverMemory {
		slog.Info("memory storage has no schema, nothing to migrate")
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.StorageURL())),
	)

	if err := database.RunMigrations(cfg.StorageURL()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

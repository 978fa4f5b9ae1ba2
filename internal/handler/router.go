package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/storefront/internal/gate"
	"github.com/hitoshi/storefront/internal/middleware"
)

// SessionBackend はセッションのハンドラーとアクセスゲートの両方が参照するストア。
// *session.Storeが満たす。
type SessionBackend interface {
	SessionService
	IdentitySource
	middleware.GateSource
}

// Recorder はHTTP層のメトリクス記録先。*metrics.Collectorが満たす。
type Recorder interface {
	middleware.StatusRecorder
	CheckoutRecorder
	ImageProxyRecorder
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           Recorder
	CORSAllowedOrigin string
	LoginRateLimiter  *middleware.RateLimiter
	Gate              *gate.Gate

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// セッション・カート
	Session SessionBackend
	Cart    CartService

	// カタログ
	Catalog      CatalogService
	Sanitizer    CatalogSanitizer
	AssetBaseURL string

	// 画像プロキシ
	ImageValidator URLValidator
	ImageClient    *http.Client
	ImageMaxSize   int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → SecurityHeaders → CORS
//
// ログイン・会員登録にはクライアントごとのレート制限、
// プロフィールとチェックアウトにはアクセスゲートを追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := deps.Gate
	if g == nil {
		g = gate.New(gate.DefaultLoginPath)
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	sessionHandler := NewSessionHandler(deps.Session)
	cartHandler := NewCartHandler(deps.Cart)
	checkoutHandler := NewCheckoutHandler(deps.Cart, deps.Session, deps.Metrics, logger)
	catalogHandler := NewCatalogHandler(deps.Catalog, deps.Sanitizer, deps.AssetBaseURL, logger)
	imageHandler := NewImageHandler(deps.ImageValidator, deps.ImageClient, deps.Metrics, logger, ImageHandlerConfig{
		AssetBaseURL: deps.AssetBaseURL,
		MaxSize:      deps.ImageMaxSize,
	})

	// --- 運用 ---
	r.Get("/health", HealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- セッション ---
	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", sessionHandler.GetSession)

		r.Group(func(r chi.Router) {
			if deps.LoginRateLimiter != nil {
				r.Use(deps.LoginRateLimiter.Middleware())
			}
			r.Post("/login", sessionHandler.Login)
			r.Post("/signup", sessionHandler.Signup)
		})

		r.Post("/logout", sessionHandler.Logout)
	})

	// --- カート ---
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)

		r.Post("/items", cartHandler.AddItem)
		r.Route("/items/{id}", func(r chi.Router) {
			r.Put("/", cartHandler.UpdateQuantity)
			r.Delete("/", cartHandler.RemoveItem)
		})
	})

	// --- カタログ ---
	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/categories", catalogHandler.ListCategories)
		r.Get("/items", catalogHandler.ListItems)
		r.Get("/subcategories", catalogHandler.ListSubcategories)
		r.Get("/settings", catalogHandler.GetSettings)
	})
	r.Get("/api/images", imageHandler.Proxy)

	// --- ログインが必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAccessGateMiddleware(g, deps.Session))

		r.Get("/api/profile", sessionHandler.GetProfile)
		r.Patch("/api/profile", sessionHandler.UpdateProfile)
		r.Post("/api/checkout", checkoutHandler.Checkout)
	})

	return r
}

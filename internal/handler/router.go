package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/playerapi/internal/metrics"
	"github.com/hitoshi/playerapi/internal/middleware"
	"github.com/hitoshi/playerapi/internal/validation"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認可
	DeleteClaimType  string
	DeleteClaimValue string

	// アカウント
	IdentityService IdentityServiceInterface
	AccountConfig   AccountHandlerConfig

	// プレイヤー
	PlayerStore PlayerStore

	// 運用
	HealthChecker   HealthChecker
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → Metrics → SecurityHeaders → CORS
//
// ルートごとに以下を追加する:
//
//	/registration, /login: RateLimit(Auth)
//	認証が必要なルート: Auth → RateLimit(General)
//	DELETE /player/{id}: 上記 + RequireClaim
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.Noop{}
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(mc))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	v := validation.New()
	accountHandler := NewAccountHandler(deps.IdentityService, v, mc, deps.AccountConfig)
	playerHandler := NewPlayerHandler(deps.PlayerStore, v, mc)

	// --- 運用エンドポイント ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証不要のルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/registration", accountHandler.Register)
		r.Post("/login", accountHandler.Login)
	})

	r.Get("/player", playerHandler.ListPlayers)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/player", playerHandler.CreatePlayer)

		r.Route("/player/{id}", func(r chi.Router) {
			r.Get("/", playerHandler.GetPlayer)
			r.Put("/", playerHandler.UpdatePlayer)
			r.With(middleware.RequireClaim(deps.DeleteClaimType, deps.DeleteClaimValue)).
				Delete("/", playerHandler.DeletePlayer)
		})
	})

	return r
}

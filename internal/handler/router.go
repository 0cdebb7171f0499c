package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/askman/internal/metrics"
	"github.com/hitoshi/askman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 検索
	SearchService  SearchServiceInterface
	SearchDefaults SearchDefaults

	// メトリクス（nilの場合は/metricsルートを公開しない）
	Gatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	SecurityHeaders → CORS → Logging → Recovery → RateLimit
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())

	searchHandler := NewSearchHandler(deps.SearchService, deps.SearchDefaults)
	pageHandler := NewPageHandler()
	healthHandler := NewHealthHandler()

	// --- レート制限の外のルート ---

	r.Get("/health", healthHandler.Health)

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- レート制限付きのルート ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", pageHandler.Index)
		r.Get("/api/search", searchHandler.Search)
		r.Get("/api/search.csv", searchHandler.SearchCSV)
	})

	return r
}

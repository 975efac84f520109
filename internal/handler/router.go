package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/divelog/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	RequestTimeout    time.Duration
	MetricsRecorder   middleware.HTTPRecorder

	// ヘルスチェック
	DB DBPinger

	// メトリクス公開
	MetricsHandler http.Handler

	// アップロード画像の静的配信
	UploadsDir string

	// ドメインサービス
	DiveService    DiveServiceInterface
	UserService    UserServiceInterface
	AccountService AccountServiceInterface
	SiteService    SiteServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → Timeout → RateLimit(General)
//
// ヘルスチェックとメトリクスはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}

	diveHandler := NewDiveHandler(deps.DiveService)
	userHandler := NewUserHandler(deps.UserService, deps.AccountService)
	siteHandler := NewSiteHandler(deps.SiteService)
	healthHandler := NewHealthHandler(deps.DB)

	// --- 運用系ルート（レート制限の外）---

	r.Get("/health", healthHandler.Health)
	r.Get("/db/health", healthHandler.DBHealth)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// アップロード画像の静的配信
	if deps.UploadsDir != "" {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadsDir)))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	}

	// --- APIルート ---
	// ミドルウェアスタック: Timeout → RateLimit(General)
	r.Group(func(r chi.Router) {
		if deps.RequestTimeout > 0 {
			r.Use(middleware.NewTimeoutMiddleware(deps.RequestTimeout))
		}
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ダイブ記録
		r.Route("/dives", func(r chi.Router) {
			r.Post("/", diveHandler.CreateDive)
			r.Get("/", diveHandler.ListDives)
		})

		// ユーザー管理
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", userHandler.GetUser)
			r.Put("/", userHandler.UpdateUser)

			// DELETE /users/{id} - アカウント削除（削除専用レート制限を追加）
			r.With(deps.RateLimiter.DeletionMiddleware()).Delete("/", userHandler.DeleteUser)

			r.Post("/upload", userHandler.UploadFiles)
		})

		// ダイブサイト閲覧
		r.Route("/dive-sites", func(r chi.Router) {
			r.Get("/", siteHandler.ListSites)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", siteHandler.GetSite)
				r.Post("/reviews", siteHandler.CreateSiteReview)
			})
		})

		// ダイブクラブ閲覧
		r.Route("/dive-clubs", func(r chi.Router) {
			r.Get("/", siteHandler.ListClubs)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", siteHandler.GetClub)
				r.Post("/reviews", siteHandler.CreateClubReview)
			})
		})
	})

	return r
}

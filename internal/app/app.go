// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/divelog/internal/account"
	"github.com/hitoshi/divelog/internal/config"
	"github.com/hitoshi/divelog/internal/database"
	"github.com/hitoshi/divelog/internal/dive"
	"github.com/hitoshi/divelog/internal/handler"
	"github.com/hitoshi/divelog/internal/logger"
	"github.com/hitoshi/divelog/internal/mail"
	"github.com/hitoshi/divelog/internal/metrics"
	"github.com/hitoshi/divelog/internal/middleware"
	"github.com/hitoshi/divelog/internal/repository"
	"github.com/hitoshi/divelog/internal/schema"
	"github.com/hitoshi/divelog/internal/security"
	"github.com/hitoshi/divelog/internal/site"
	"github.com/hitoshi/divelog/internal/upload"
	"github.com/hitoshi/divelog/internal/user"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("schema_variant", cfg.SchemaVariant),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、スキーマバリアントを確定し、全依存関係をワイヤリングして
// HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. スキーマバリアントの確定（起動時に1回だけ。以降は変化しない）
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	variant := schema.Resolve(ctx, db, cfg.SchemaVariant, slog.Default())
	cancel()

	// 3. リポジトリの初期化
	diveRepo := repository.NewPostgresDiveRepo(db, variant)
	userRepo := repository.NewPostgresUserRepo(db)
	reviewRepo := repository.NewPostgresReviewRepo(db)
	siteRepo := repository.NewPostgresSiteRepo(db)
	clubRepo := repository.NewPostgresClubRepo(db)

	// 4. セキュリティサービスの初期化
	sanitizer := security.NewContentSanitizer()
	ssrfGuard := security.NewSSRFGuard()

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. アップロードストレージの初期化
	storage, err := upload.NewStorage(cfg.UploadsDir, cfg.UploadMaxBytes)
	if err != nil {
		return fmt.Errorf("failed to initialize upload storage: %w", err)
	}
	importer := upload.NewImporter(ssrfGuard, cfg.UploadMaxBytes)

	// 7. ドメインサービスの初期化
	notifier := mail.NewFromConfig(cfg)

	diveService := dive.NewService(diveRepo, sanitizer, collector)
	accountService := account.NewService(db, userRepo, diveRepo, reviewRepo, notifier, collector)
	userService := user.NewService(userRepo, storage, importer)
	siteService := site.NewService(siteRepo, clubRepo, reviewRepo, sanitizer)

	// 8. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitDeletion),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		RequestTimeout:    cfg.RequestTimeout,
		MetricsRecorder:   collector,

		DB:             db,
		MetricsHandler: metrics.Handler(registry),
		UploadsDir:     storage.Dir(),

		DiveService:    diveService,
		UserService:    userService,
		AccountService: accountService,
		SiteService:    siteService,
	})

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
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

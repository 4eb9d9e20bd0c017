// Package app はアプリケーションの起動とワイヤリングを行う。
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
	"golang.org/x/time/rate"

	"github.com/hitoshi/podclub/internal/auth"
	"github.com/hitoshi/podclub/internal/challenge"
	"github.com/hitoshi/podclub/internal/comment"
	"github.com/hitoshi/podclub/internal/config"
	"github.com/hitoshi/podclub/internal/database"
	"github.com/hitoshi/podclub/internal/episode"
	"github.com/hitoshi/podclub/internal/feedimport"
	"github.com/hitoshi/podclub/internal/handler"
	"github.com/hitoshi/podclub/internal/logger"
	"github.com/hitoshi/podclub/internal/metrics"
	"github.com/hitoshi/podclub/internal/middleware"
	"github.com/hitoshi/podclub/internal/repository"
	"github.com/hitoshi/podclub/internal/security"
	"github.com/hitoshi/podclub/internal/view"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

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
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// バックエンド接続設定が不正な場合もサーバーは起動し、
// 全データ操作がCONFIGURATION_ERRORを返す縮退モードで動作する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続（設定不備の場合はスキップして縮退モード）
	var db *sql.DB
	if cfg.BackendErr == nil {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			// 接続失敗は起動を止めない。各操作はTRANSIENT_FAILUREに分類される
			slog.Warn("database ping failed, operations will return transient errors",
				slog.String("error", err.Error()))
		} else {
			slog.Info("database connection established")
		}
	} else {
		slog.Warn("backend configuration invalid, starting in degraded mode",
			slog.String("error", cfg.BackendErr.Message))
	}

	// 2. リポジトリの初期化
	var (
		userRepo      repository.UserRepository
		sessionRepo   repository.SessionRepository
		episodeRepo   repository.EpisodeRepository
		challengeRepo repository.ChallengeRepository
		commentRepo   repository.CommentRepository
	)
	if db != nil {
		userRepo = repository.NewPostgresUserRepo(db)
		sessionRepo = repository.NewPostgresSessionRepo(db)
		episodeRepo = repository.NewPostgresEpisodeRepo(db)
		challengeRepo = repository.NewPostgresChallengeRepo(db)
		commentRepo = repository.NewPostgresCommentRepo(db)
	}

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. ドメインサービスの初期化
	notifier := auth.NewNotifier()
	authService := auth.NewService(userRepo, sessionRepo, notifier, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
		AdminEmails:   cfg.AdminEmails,
		BackendErr:    cfg.BackendErr,
	})

	episodeService := episode.NewService(episodeRepo, sanitizer, cfg.BackendErr)
	challengeService := challenge.NewService(challengeRepo, sanitizer, cfg.BackendErr)
	commentService := comment.NewService(commentRepo, sanitizer, cfg.BackendErr)

	detector := feedimport.NewDetector(ssrfGuard, cfg.ImportTimeout, cfg.ImportMaxSize)
	importer := feedimport.NewImporter(detector, episodeService, cfg.BackendErr)

	// 5. メトリクスの初期化
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	handler.SetMetricsRecorder(collector)
	unsubscribe := collector.ObserveAuthEvents(notifier)
	defer unsubscribe()

	// 6. ビューとハンドラーの構築
	renderer, err := view.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to build renderer: %w", err)
	}

	authHandler := handler.NewAuthHandler(authService, handler.CookieConfig{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
		MaxAge: cfg.SessionMaxAge,
	})
	pageHandler := handler.NewPageHandler(renderer, episodeService, challengeService, commentService)
	adminHandler := handler.NewAdminHandler(renderer, episodeService, challengeService, importer)
	apiHandler := handler.NewAPIHandler(episodeService, challengeService, commentService)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	router := handler.NewRouter(handler.RouterDeps{
		Logger:            slog.Default(),
		AuthHandler:       authHandler,
		PageHandler:       pageHandler,
		AdminHandler:      adminHandler,
		APIHandler:        apiHandler,
		SessionResolver:   authService,
		RateLimiter:       rateLimiter,
		CSRFConfig:        middleware.CSRFConfig{CookieSecure: cfg.CookieSecure, CookieDomain: cfg.CookieDomain},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		MetricsMiddleware: collector.Middleware(),
		MetricsHandler:    metrics.SetupMetricsRoute(reg),
	})

	// 8. HTTPサーバーの起動
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
		slog.Info("web server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// rateLimiterConfig はレート制限設定を環境変数の値（req/min）から組み立てる。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	limiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		limiterCfg.GeneralRate = perMinute(cfg.RateLimitGeneral)
		limiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitComment > 0 {
		limiterCfg.CommentRate = perMinute(cfg.RateLimitComment)
		limiterCfg.CommentBurst = cfg.RateLimitComment
	}
	return limiterCfg
}

// perMinute はreq/min単位の値をrate.Limit（req/sec）に変換する。
func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.BackendErr != nil {
		return cfg.BackendErr
	}

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
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
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

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/podclub/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger          *slog.Logger
	AuthHandler     *AuthHandler
	PageHandler     *PageHandler
	AdminHandler    *AdminHandler
	APIHandler      *APIHandler
	SessionResolver middleware.UserResolver
	RateLimiter     *middleware.RateLimiter
	CSRFConfig      middleware.CSRFConfig

	CORSAllowedOrigin string

	// MetricsMiddleware とMetricsHandler は省略可能（テスト等）。
	MetricsMiddleware func(next http.Handler) http.Handler
	MetricsHandler    http.Handler
}

// NewRouter はアプリケーション全体のルーティングを構築する。
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.MetricsMiddleware != nil {
		r.Use(deps.MetricsMiddleware)
	}
	r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))

	// 監視用エンドポイントはレート制限・CSRF検証の対象外
	r.Get("/healthz", handleHealthz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// 公開ページはトップとログインページのみ
		r.Get("/", deps.PageHandler.Landing)
		r.Get("/auth", deps.PageHandler.AuthPage)

		// 認証フォーム
		r.Post("/auth/login", deps.AuthHandler.Login)
		r.Post("/auth/signup", deps.AuthHandler.Signup)
		r.Post("/auth/logout", deps.AuthHandler.Logout)

		// ログイン必須ページ
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			r.Get("/feed", deps.PageHandler.Feed)
			r.Get("/community", deps.PageHandler.Community)
			r.Get("/episode/{id}", deps.PageHandler.EpisodeDetail)
			r.Get("/profile", deps.PageHandler.Profile)
			r.Post("/profile", deps.AuthHandler.UpdateProfile)
			r.With(deps.RateLimiter.CommentMiddleware()).
				Post("/episode/{id}/comments", deps.PageHandler.PostComment)
		})

		// 管理者専用
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/admin", deps.AdminHandler.Console)
			r.Post("/admin/episodes", deps.AdminHandler.CreateEpisode)
			r.Post("/admin/episodes/{id}", deps.AdminHandler.UpdateEpisode)
			r.Post("/admin/episodes/{id}/delete", deps.AdminHandler.DeleteEpisode)
			r.Post("/admin/challenges", deps.AdminHandler.CreateChallenge)
			r.Post("/admin/challenges/{id}", deps.AdminHandler.UpdateChallenge)
			r.Post("/admin/challenges/{id}/delete", deps.AdminHandler.DeleteChallenge)
			r.Post("/admin/import", deps.AdminHandler.ImportFeed)
			r.Post("/episode/{id}/comments/{commentID}/delete", deps.PageHandler.DeleteComment)
		})

		// JSON API
		r.Route("/api", func(r chi.Router) {
			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

			r.Get("/episodes", deps.APIHandler.ListEpisodes)
			r.Get("/episodes/{id}", deps.APIHandler.GetEpisode)
			r.Get("/episodes/{id}/comments", deps.APIHandler.ListComments)
			r.Get("/challenges/current", deps.APIHandler.CurrentChallenge)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUserAPI)

				r.Get("/auth/me", deps.APIHandler.Me)
				r.With(deps.RateLimiter.CommentMiddleware()).
					Post("/episodes/{id}/comments", deps.APIHandler.PostComment)
			})

			r.With(middleware.RequireAdminAPI).
				Delete("/comments/{id}", deps.APIHandler.DeleteComment)
		})
	})

	return r
}

// handleHealthz は死活監視用エンドポイント。
func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

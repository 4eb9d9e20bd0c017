package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/podclub/internal/challenge"
	"github.com/hitoshi/podclub/internal/comment"
	"github.com/hitoshi/podclub/internal/episode"
	"github.com/hitoshi/podclub/internal/middleware"
	"github.com/hitoshi/podclub/internal/model"
	"github.com/hitoshi/podclub/internal/repository"
	"github.com/hitoshi/podclub/internal/view"
)

// EpisodeService はエピソード操作のインターフェース。
type EpisodeService interface {
	List(ctx context.Context) ([]*episode.View, error)
	GetByID(ctx context.Context, id string) (*episode.View, error)
	Create(ctx context.Context, authz repository.Authz, input episode.CreateInput) (*episode.View, error)
	Update(ctx context.Context, authz repository.Authz, id string, input episode.CreateInput) (*episode.View, error)
	Delete(ctx context.Context, authz repository.Authz, id string) error
}

// ChallengeService はチャレンジ操作のインターフェース。
type ChallengeService interface {
	List(ctx context.Context) ([]*model.Challenge, error)
	Current(ctx context.Context) (*model.Challenge, error)
	Create(ctx context.Context, authz repository.Authz, input challenge.Input) (*model.Challenge, error)
	Update(ctx context.Context, authz repository.Authz, id string, input challenge.Input) (*model.Challenge, error)
	Delete(ctx context.Context, authz repository.Authz, id string) error
}

// CommentService はコメント操作のインターフェース。
type CommentService interface {
	ListByEpisode(ctx context.Context, episodeID string) ([]*comment.View, error)
	Create(ctx context.Context, authz repository.Authz, author *model.User, episodeID, content string) (*comment.View, error)
	Delete(ctx context.Context, authz repository.Authz, id string) error
}

// PageHandler は閲覧ページのHTTPハンドラー。
type PageHandler struct {
	renderer   *view.Renderer
	episodes   EpisodeService
	challenges ChallengeService
	comments   CommentService
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(renderer *view.Renderer, episodes EpisodeService, challenges ChallengeService, comments CommentService) *PageHandler {
	return &PageHandler{
		renderer:   renderer,
		episodes:   episodes,
		challenges: challenges,
		comments:   comments,
	}
}

// pageData は全ページ共通のレンダリングデータを組み立てる。
func (h *PageHandler) pageData(w http.ResponseWriter, r *http.Request, title string, data any) view.PageData {
	return view.PageData{
		Title:     title,
		User:      middleware.UserFromContext(r.Context()),
		CSRFToken: middleware.CSRFTokenFromRequest(r),
		Flash:     popFlash(w, r),
		Data:      data,
	}
}

// render はページを描画する。描画失敗はログに残すのみ。
func (h *PageHandler) render(w http.ResponseWriter, statusCode int, page string, data view.PageData) {
	if err := h.renderer.Render(w, statusCode, page, data); err != nil {
		slog.Error("render failed", slog.String("page", page), slog.String("error", err.Error()))
	}
}

// renderError はエラー全画面を描画する。
func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := model.AsAPIError(err)
	recordGatewayError(apiErr.Code)
	data := h.pageData(w, r, "エラー", map[string]string{
		"Message": apiErr.Message,
		"Action":  apiErr.Action,
	})
	h.render(w, mapAPIErrorToHTTPStatus(apiErr), "error", data)
}

// Landing はトップページを表示する。
// GET /
func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	current, err := h.challenges.Current(r.Context())
	data := h.pageData(w, r, "PodClub", map[string]any{"Challenge": current})
	if err != nil {
		// チャレンジ取得に失敗してもページ自体は表示する
		apiErr := model.AsAPIError(err)
		slog.Warn("failed to load current challenge", slog.String("code", apiErr.Code))
		if data.Flash == nil {
			data.Flash = &view.Flash{Kind: "error", Message: apiErr.Message, Action: apiErr.Action}
		}
	}
	h.render(w, http.StatusOK, "landing", data)
}

// AuthPage はログイン・新規登録ページを表示する。ログイン済みならフィードへ。
// GET /auth
func (h *PageHandler) AuthPage(w http.ResponseWriter, r *http.Request) {
	if middleware.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/feed", http.StatusFound)
		return
	}
	h.render(w, http.StatusOK, "auth", h.pageData(w, r, "ログイン", nil))
}

// Feed はエピソード一覧を表示する。
// GET /feed
func (h *PageHandler) Feed(w http.ResponseWriter, r *http.Request) {
	episodes, err := h.episodes.List(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	data := h.pageData(w, r, "エピソード", map[string]any{"Episodes": episodes})
	h.render(w, http.StatusOK, "feed", data)
}

// EpisodeDetail はエピソード詳細を表示する。
// 存在しないIDは専用の「見つかりません」画面を描画する。
// GET /episode/{id}
func (h *PageHandler) EpisodeDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ep, err := h.episodes.GetByID(r.Context(), id)
	if err != nil {
		apiErr := model.AsAPIError(err)
		if apiErr.Code == model.ErrCodeEpisodeNotFound {
			data := h.pageData(w, r, "エピソードが見つかりません", map[string]any{"NotFound": true})
			h.render(w, http.StatusNotFound, "episode", data)
			return
		}
		h.renderError(w, r, err)
		return
	}

	comments, err := h.comments.ListByEpisode(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	authz := middleware.AuthzFromContext(r.Context())
	data := h.pageData(w, r, ep.Title, map[string]any{
		"Episode":  ep,
		"Comments": comments,
		"IsAdmin":  authz.IsAdmin,
	})
	h.render(w, http.StatusOK, "episode", data)
}

// Community はコミュニティページを表示する。
// GET /community
func (h *PageHandler) Community(w http.ResponseWriter, r *http.Request) {
	current, err := h.challenges.Current(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	data := h.pageData(w, r, "コミュニティ", map[string]any{"Challenge": current})
	h.render(w, http.StatusOK, "community", data)
}

// Profile はプロフィールページを表示する。
// GET /profile
func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "profile", h.pageData(w, r, "プロフィール", nil))
}

// PostComment はコメント投稿フォームのPOSTを処理する。
// POST /episode/{id}/comments
func (h *PageHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	episodeID := chi.URLParam(r, "id")

	if err := r.ParseForm(); err != nil {
		setFlash(w, "error", "リクエストの形式が不正です。", "")
		http.Redirect(w, r, "/episode/"+episodeID, http.StatusFound)
		return
	}

	authz := middleware.AuthzFromContext(r.Context())
	author := middleware.UserFromContext(r.Context())
	content := r.PostFormValue("content")

	if _, err := h.comments.Create(r.Context(), authz, author, episodeID, content); err != nil {
		apiErr := model.AsAPIError(err)
		recordGatewayError(apiErr.Code)
		setFlash(w, "error", apiErr.Message, apiErr.Action)
		http.Redirect(w, r, "/episode/"+episodeID, http.StatusFound)
		return
	}

	if metricsRecorder != nil {
		metricsRecorder.RecordCommentPosted()
	}

	setFlash(w, "success", "コメントを投稿しました。", "")
	http.Redirect(w, r, "/episode/"+episodeID, http.StatusFound)
}

// DeleteComment はコメント削除フォームのPOSTを処理する。管理者専用。
// POST /episode/{id}/comments/{commentID}/delete
func (h *PageHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	episodeID := chi.URLParam(r, "id")
	commentID := chi.URLParam(r, "commentID")

	authz := middleware.AuthzFromContext(r.Context())
	if err := h.comments.Delete(r.Context(), authz, commentID); err != nil {
		apiErr := model.AsAPIError(err)
		recordGatewayError(apiErr.Code)
		setFlash(w, "error", apiErr.Message, apiErr.Action)
		http.Redirect(w, r, "/episode/"+episodeID, http.StatusFound)
		return
	}

	setFlash(w, "success", "コメントを削除しました。", "")
	http.Redirect(w, r, "/episode/"+episodeID, http.StatusFound)
}

package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/podclub/internal/challenge"
	"github.com/hitoshi/podclub/internal/episode"
	"github.com/hitoshi/podclub/internal/feedimport"
	"github.com/hitoshi/podclub/internal/middleware"
	"github.com/hitoshi/podclub/internal/model"
	"github.com/hitoshi/podclub/internal/repository"
	"github.com/hitoshi/podclub/internal/view"
)

// ImportService はフィード取り込みのインターフェース。
type ImportService interface {
	Import(ctx context.Context, authz repository.Authz, url string) (*feedimport.Result, error)
}

// AdminHandler は管理コンソールのHTTPハンドラー。
type AdminHandler struct {
	renderer   *view.Renderer
	episodes   EpisodeService
	challenges ChallengeService
	importer   ImportService
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(renderer *view.Renderer, episodes EpisodeService, challenges ChallengeService, importer ImportService) *AdminHandler {
	return &AdminHandler{
		renderer:   renderer,
		episodes:   episodes,
		challenges: challenges,
		importer:   importer,
	}
}

// adminTab は?tabパラメータを正規化する。
func adminTab(r *http.Request) string {
	switch tab := r.URL.Query().Get("tab"); tab {
	case "challenges", "import":
		return tab
	default:
		return "episodes"
	}
}

// adminPageData は管理コンソールの描画データを組み立てる。
// extraのキーは一覧データにマージされる。
func (h *AdminHandler) adminPageData(w http.ResponseWriter, r *http.Request, extra map[string]any) (view.PageData, error) {
	episodes, err := h.episodes.List(r.Context())
	if err != nil {
		return view.PageData{}, err
	}
	challenges, err := h.challenges.List(r.Context())
	if err != nil {
		return view.PageData{}, err
	}

	data := map[string]any{
		"ActiveTab":     adminTab(r),
		"Episodes":      episodes,
		"Challenges":    challenges,
		"EditEpisode":   nil,
		"EditChallenge": nil,
		"ImportResult":  nil,
	}
	for k, v := range extra {
		data[k] = v
	}

	return view.PageData{
		Title:     "管理コンソール",
		User:      middleware.UserFromContext(r.Context()),
		CSRFToken: middleware.CSRFTokenFromRequest(r),
		Flash:     popFlash(w, r),
		Data:      data,
	}, nil
}

// render は管理コンソールを描画する。
func (h *AdminHandler) render(w http.ResponseWriter, statusCode int, data view.PageData) {
	if err := h.renderer.Render(w, statusCode, "admin", data); err != nil {
		slog.Error("render failed", slog.String("page", "admin"), slog.String("error", err.Error()))
	}
}

// renderError はエラー全画面を描画する。
func (h *AdminHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := model.AsAPIError(err)
	recordGatewayError(apiErr.Code)
	data := view.PageData{
		Title:     "エラー",
		User:      middleware.UserFromContext(r.Context()),
		CSRFToken: middleware.CSRFTokenFromRequest(r),
		Data: map[string]string{
			"Message": apiErr.Message,
			"Action":  apiErr.Action,
		},
	}
	if err := h.renderer.Render(w, mapAPIErrorToHTTPStatus(apiErr), "error", data); err != nil {
		slog.Error("render failed", slog.String("page", "error"), slog.String("error", err.Error()))
	}
}

// redirectWithError はサービスエラーをフラッシュ通知に変換してリダイレクトする。
func (h *AdminHandler) redirectWithError(w http.ResponseWriter, r *http.Request, target string, err error) {
	apiErr := model.AsAPIError(err)
	recordGatewayError(apiErr.Code)
	setFlash(w, "error", apiErr.Message, apiErr.Action)
	http.Redirect(w, r, target, http.StatusFound)
}

// Console は管理コンソールを表示する。?edit={id}で編集フォームを開く。
// GET /admin
func (h *AdminHandler) Console(w http.ResponseWriter, r *http.Request) {
	extra := map[string]any{}

	if editID := r.URL.Query().Get("edit"); editID != "" {
		switch adminTab(r) {
		case "episodes":
			ep, err := h.episodes.GetByID(r.Context(), editID)
			if err != nil {
				h.redirectWithError(w, r, "/admin?tab=episodes", err)
				return
			}
			extra["EditEpisode"] = ep
		case "challenges":
			ch, err := h.findChallenge(r.Context(), editID)
			if err != nil {
				h.redirectWithError(w, r, "/admin?tab=challenges", err)
				return
			}
			extra["EditChallenge"] = ch
		}
	}

	data, err := h.adminPageData(w, r, extra)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, http.StatusOK, data)
}

// findChallenge は一覧からIDで検索する。
func (h *AdminHandler) findChallenge(ctx context.Context, id string) (*model.Challenge, error) {
	challenges, err := h.challenges.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range challenges {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, model.NewNotFoundError("チャレンジ", id)
}

// CreateEpisode はエピソード作成フォームのPOSTを処理する。
// POST /admin/episodes
func (h *AdminHandler) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(w, "error", "リクエストの形式が不正です。", "")
		http.Redirect(w, r, "/admin?tab=episodes", http.StatusFound)
		return
	}

	authz := middleware.AuthzFromContext(r.Context())
	input := episode.CreateInput{
		Title:      r.PostFormValue("title"),
		SpotifyURL: r.PostFormValue("spotify_url"),
		BonusText:  r.PostFormValue("bonus_text"),
	}

	if _, err := h.episodes.Create(r.Context(), authz, input); err != nil {
		h.redirectWithError(w, r, "/admin?tab=episodes", err)
		return
	}

	setFlash(w, "success", "エピソードを作成しました。", "")
	http.Redirect(w, r, "/admin?tab=episodes", http.StatusFound)
}

// UpdateEpisode はエピソード更新フォームのPOSTを処理する。
// POST /admin/episodes/{id}
func (h *AdminHandler) UpdateEpisode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := r.ParseForm(); err != nil {
		setFlash(w, "error", "リクエストの形式が不正です。", "")
		http.Redirect(w, r, "/admin?tab=episodes", http.StatusFound)
		return
	}

	authz := middleware.AuthzFromContext(r.Context())
	input := episode.CreateInput{
		Title:      r.PostFormValue("title"),
		SpotifyURL: r.PostFormValue("spotify_url"),
		BonusText:  r.PostFormValue("bonus_text"),
	}

	if _, err := h.episodes.Update(r.Context(), authz, id, input); err != nil {
		h.redirectWithError(w, r, "/admin?tab=episodes", err)
		return
	}

	setFlash(w, "success", "エピソードを更新しました。", "")
	http.Redirect(w, r, "/admin?tab=episodes", http.StatusFound)
}

// DeleteEpisode はエピソード削除フォームのPOSTを処理する。
// POST /admin/episodes/{id}/delete
func (h *AdminHandler) DeleteEpisode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	authz := middleware.AuthzFromContext(r.Context())

	if err := h.episodes.Delete(r.Context(), authz, id); err != nil {
		h.redirectWithError(w, r, "/admin?tab=episodes", err)
		return
	}

	setFlash(w, "success", "エピソードを削除しました。", "")
	http.Redirect(w, r, "/admin?tab=episodes", http.StatusFound)
}

// CreateChallenge はチャレンジ作成フォームのPOSTを処理する。
// POST /admin/challenges
func (h *AdminHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(w, "error", "リクエストの形式が不正です。", "")
		http.Redirect(w, r, "/admin?tab=challenges", http.StatusFound)
		return
	}

	authz := middleware.AuthzFromContext(r.Context())
	input := challenge.Input{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
	}

	if _, err := h.challenges.Create(r.Context(), authz, input); err != nil {
		h.redirectWithError(w, r, "/admin?tab=challenges", err)
		return
	}

	setFlash(w, "success", "チャレンジを作成しました。", "")
	http.Redirect(w, r, "/admin?tab=challenges", http.StatusFound)
}

// UpdateChallenge はチャレンジ更新フォームのPOSTを処理する。
// POST /admin/challenges/{id}
func (h *AdminHandler) UpdateChallenge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := r.ParseForm(); err != nil {
		setFlash(w, "error", "リクエストの形式が不正です。", "")
		http.Redirect(w, r, "/admin?tab=challenges", http.StatusFound)
		return
	}

	authz := middleware.AuthzFromContext(r.Context())
	input := challenge.Input{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
	}

	if _, err := h.challenges.Update(r.Context(), authz, id, input); err != nil {
		h.redirectWithError(w, r, "/admin?tab=challenges", err)
		return
	}

	setFlash(w, "success", "チャレンジを更新しました。", "")
	http.Redirect(w, r, "/admin?tab=challenges", http.StatusFound)
}

// DeleteChallenge はチャレンジ削除フォームのPOSTを処理する。
// POST /admin/challenges/{id}/delete
func (h *AdminHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	authz := middleware.AuthzFromContext(r.Context())

	if err := h.challenges.Delete(r.Context(), authz, id); err != nil {
		h.redirectWithError(w, r, "/admin?tab=challenges", err)
		return
	}

	setFlash(w, "success", "チャレンジを削除しました。", "")
	http.Redirect(w, r, "/admin?tab=challenges", http.StatusFound)
}

// ImportFeed はRSSフィードからのエピソード一括取り込みを処理する。
// 結果サマリーは取り込みタブにそのまま描画する。
// POST /admin/import
func (h *AdminHandler) ImportFeed(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(w, "error", "リクエストの形式が不正です。", "")
		http.Redirect(w, r, "/admin?tab=import", http.StatusFound)
		return
	}

	authz := middleware.AuthzFromContext(r.Context())
	result, err := h.importer.Import(r.Context(), authz, r.PostFormValue("url"))
	if err != nil {
		h.redirectWithError(w, r, "/admin?tab=import", err)
		return
	}

	if metricsRecorder != nil {
		metricsRecorder.RecordEpisodesImported(result.Imported)
	}
	slog.Info("feed imported",
		slog.String("feed_url", result.FeedURL),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped))

	data, derr := h.adminPageData(w, r, map[string]any{
		"ActiveTab":    "import",
		"ImportResult": result,
	})
	if derr != nil {
		h.renderError(w, r, derr)
		return
	}
	data.Flash = &view.Flash{
		Kind:    "success",
		Message: fmt.Sprintf("%d件のエピソードを取り込みました（スキップ%d件）。", result.Imported, result.Skipped),
	}
	h.render(w, http.StatusOK, data)
}

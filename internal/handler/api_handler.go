package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/podclub/internal/middleware"
	"github.com/hitoshi/podclub/internal/model"
)

// APIHandler はJSON APIのHTTPハンドラー。ページと同じサービス層を共有する。
type APIHandler struct {
	episodes   EpisodeService
	challenges ChallengeService
	comments   CommentService
}

// NewAPIHandler はAPIHandlerを生成する。
func NewAPIHandler(episodes EpisodeService, challenges ChallengeService, comments CommentService) *APIHandler {
	return &APIHandler{
		episodes:   episodes,
		challenges: challenges,
		comments:   comments,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode json response", slog.String("error", err.Error()))
	}
}

// ListEpisodes はエピソード一覧を返す。
// GET /api/episodes
func (h *APIHandler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := h.episodes.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"episodes": episodes})
}

// GetEpisode はエピソード詳細を返す。
// GET /api/episodes/{id}
func (h *APIHandler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	ep, err := h.episodes.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"episode": ep})
}

// ListComments はエピソードのコメント一覧を返す。
// GET /api/episodes/{id}/comments
func (h *APIHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.ListByEpisode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// PostComment はコメントを投稿する。ログイン必須。
// POST /api/episodes/{id}/comments
func (h *APIHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleServiceError(w, model.NewValidationFailedError("body", "JSONの形式が不正です"))
		return
	}

	authz := middleware.AuthzFromContext(r.Context())
	author := middleware.UserFromContext(r.Context())
	created, err := h.comments.Create(r.Context(), authz, author, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if metricsRecorder != nil {
		metricsRecorder.RecordCommentPosted()
	}
	writeJSON(w, http.StatusCreated, map[string]any{"comment": created})
}

// DeleteComment はコメントを削除する。管理者専用。
// DELETE /api/comments/{id}
func (h *APIHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	authz := middleware.AuthzFromContext(r.Context())
	if err := h.comments.Delete(r.Context(), authz, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CurrentChallenge は最新のチャレンジを返す。未設定時はnull。
// GET /api/challenges/current
func (h *APIHandler) CurrentChallenge(w http.ResponseWriter, r *http.Request) {
	current, err := h.challenges.Current(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"challenge": current})
}

// Me はログイン中のユーザー情報を返す。
// GET /api/auth/me
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		handleServiceError(w, model.NewUnauthorizedError())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           user.ID,
		"email":        user.Email,
		"username":     user.Username,
		"display_name": user.DisplayName(),
		"role":         string(user.Role),
	})
}

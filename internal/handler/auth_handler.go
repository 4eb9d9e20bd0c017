package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/podclub/internal/middleware"
	"github.com/hitoshi/podclub/internal/model"
)

const sessionCookieName = "session_id"

// AuthService は認証操作のインターフェース。
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	SignIn(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	UpdateUserMetadata(ctx context.Context, userID, username string) error
}

// CookieConfig はセッションCookieの発行設定。
type CookieConfig struct {
	Secure bool
	Domain string
	MaxAge int
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthService
	cookie  CookieConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{service: service, cookie: cookie}
}

// Login はログインフォームのPOSTを処理する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(w, "error", "リクエストの形式が不正です。", "")
		http.Redirect(w, r, "/auth", http.StatusFound)
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	user, session, err := h.service.SignIn(r.Context(), email, password)
	if err != nil {
		h.redirectWithError(w, r, "/auth", err)
		return
	}

	h.setSessionCookie(w, session.ID)
	slog.Info("user logged in", slog.String("user_id", user.ID))

	setFlash(w, "success", "ログインしました。", "")
	http.Redirect(w, r, "/feed", http.StatusFound)
}

// Signup は新規登録フォームのPOSTを処理する。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(w, "error", "リクエストの形式が不正です。", "")
		http.Redirect(w, r, "/auth", http.StatusFound)
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	user, session, err := h.service.SignUp(r.Context(), email, password)
	if err != nil {
		h.redirectWithError(w, r, "/auth", err)
		return
	}

	h.setSessionCookie(w, session.ID)
	slog.Info("user signed up", slog.String("user_id", user.ID))

	setFlash(w, "success", "登録が完了しました。", "")
	http.Redirect(w, r, "/feed", http.StatusFound)
}

// Logout はログアウトを処理する。セッションの削除が完了してから
// Cookieを破棄しリダイレクトする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			slog.Warn("logout failed", slog.String("error", err.Error()))
		}
	}

	h.clearSessionCookie(w)
	setFlash(w, "success", "ログアウトしました。", "")
	http.Redirect(w, r, "/", http.StatusFound)
}

// UpdateProfile はユーザー名の変更を処理する。
// POST /profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/auth", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		setFlash(w, "error", "リクエストの形式が不正です。", "")
		http.Redirect(w, r, "/profile", http.StatusFound)
		return
	}

	username := r.PostFormValue("username")
	if err := h.service.UpdateUserMetadata(r.Context(), user.ID, username); err != nil {
		h.redirectWithError(w, r, "/profile", err)
		return
	}

	setFlash(w, "success", "プロフィールを更新しました。", "")
	http.Redirect(w, r, "/profile", http.StatusFound)
}

// redirectWithError はサービスエラーをフラッシュ通知に変換してリダイレクトする。
func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, target string, err error) {
	apiErr := model.AsAPIError(err)
	recordGatewayError(apiErr.Code)
	setFlash(w, "error", apiErr.Message, apiErr.Action)
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   h.cookie.MaxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

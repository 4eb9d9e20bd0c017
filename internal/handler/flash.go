package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/podclub/internal/view"
)

const flashCookieName = "flash"

// setFlash はリダイレクト先のページで一度だけ表示する通知をCookieに保存する。
// Cookie値は "kind|message|action" をそれぞれエスケープした形式。
func setFlash(w http.ResponseWriter, kind, message, action string) {
	value := url.QueryEscape(kind) + "|" + url.QueryEscape(message) + "|" + url.QueryEscape(action)
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash は保存された通知を読み出してCookieを削除する。
// 通知がなければnilを返す。
func popFlash(w http.ResponseWriter, r *http.Request) *view.Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	parts := strings.SplitN(cookie.Value, "|", 3)
	if len(parts) != 3 {
		return nil
	}
	kind, err1 := url.QueryUnescape(parts[0])
	message, err2 := url.QueryUnescape(parts[1])
	action, err3 := url.QueryUnescape(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || message == "" {
		return nil
	}
	return &view.Flash{Kind: kind, Message: message, Action: action}
}

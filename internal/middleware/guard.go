package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/podclub/internal/model"
)

// RequireUser は認証必須のページ用ガード。
// 未認証の場合は認証ページへリダイレクトする。
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			http.Redirect(w, r, "/auth", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin は管理者専用ページ用ガード。
// 未認証・非管理者のいずれもルートへリダイレクトする。
// 「管理ページの存在を知らせない」ため、両者を区別しない。
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || user.Role != model.RoleAdmin {
			if user != nil {
				slog.Warn("admin page access denied",
					slog.String("user_id", user.ID),
					slog.String("path", r.URL.Path),
				)
			}
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUserAPI は認証必須のAPI用ガード。未認証には401を返す。
func RequireUserAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminAPI は管理者専用API用ガード。
// 未認証には401、非管理者には403を返す。
func RequireAdminAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		if user.Role != model.RoleAdmin {
			slog.Warn("admin API access denied",
				slog.String("user_id", user.ID),
				slog.String("path", r.URL.Path),
			)
			WriteErrorResponse(w, http.StatusForbidden, model.NewPermissionDeniedError(r.URL.Path))
			return
		}
		next.ServeHTTP(w, r)
	})
}

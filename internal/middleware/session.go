// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/podclub/internal/model"
	"github.com/hitoshi/podclub/internal/repository"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// UserResolver はセッションIDから現在のユーザーを解決するインターフェース。
// auth.Serviceの部分集合として定義する。
type UserResolver interface {
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// NewSessionMiddleware はCookieのセッションIDから現在のユーザーを解決し、
// リクエストコンテキストに注入するミドルウェアを返す。
// Cookieなし・無効セッション・解決失敗はいずれも「未認証」として扱い、
// リクエスト自体は通す。アクセス制御は後段のガードが行う。
func NewSessionMiddleware(resolver UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.GetCurrentUser(r.Context(), cookie.Value)
			if err != nil {
				// 解決失敗は未認証に縮退する。バックエンド未設定で全リクエストが
				// 落ちることを防ぐため、ここではエラーレスポンスにしない。
				slog.Warn("session resolution failed",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				next.ServeHTTP(w, r)
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 未認証の場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// ContextWithUser はコンテキストにユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// AuthzFromContext はコンテキストのユーザーから認可コンテキストを組み立てる。
// 未認証の場合はゼロ値（匿名）を返す。
func AuthzFromContext(ctx context.Context) repository.Authz {
	user := UserFromContext(ctx)
	if user == nil {
		return repository.Authz{}
	}
	return repository.Authz{
		UserID:  user.ID,
		IsAdmin: user.Role == model.RoleAdmin,
	}
}

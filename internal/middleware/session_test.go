package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/podclub/internal/model"
	"github.com/hitoshi/podclub/internal/repository"
)

// mockUserResolver はUserResolverのテスト用実装。
type mockUserResolver struct {
	users map[string]*model.User
	err   error
}

func (m *mockUserResolver) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[sessionID], nil
}

func captureUserHandler(got **model.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

// TestSessionMiddleware はCookieからのユーザー解決をテストする。
func TestSessionMiddleware(t *testing.T) {
	resolver := &mockUserResolver{users: map[string]*model.User{
		"valid-session": {ID: "u-1", Email: "user@example.com", Role: model.RoleUser},
	}}
	mw := NewSessionMiddleware(resolver)

	t.Run("有効なセッションはユーザーを注入する", func(t *testing.T) {
		var got *model.User
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
		rec := httptest.NewRecorder()

		mw(captureUserHandler(&got)).ServeHTTP(rec, req)

		if got == nil || got.ID != "u-1" {
			t.Errorf("expected user u-1 in context, got %+v", got)
		}
	})

	t.Run("Cookieなしは未認証として通す", func(t *testing.T) {
		var got *model.User
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		mw(captureUserHandler(&got)).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected pass-through, got status %d", rec.Code)
		}
		if got != nil {
			t.Errorf("expected no user, got %+v", got)
		}
	})

	t.Run("無効なセッションは未認証として通す", func(t *testing.T) {
		var got *model.User
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired"})
		rec := httptest.NewRecorder()

		mw(captureUserHandler(&got)).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || got != nil {
			t.Errorf("expected anonymous pass-through, status %d user %+v", rec.Code, got)
		}
	})

	t.Run("解決失敗も未認証に縮退する", func(t *testing.T) {
		failing := NewSessionMiddleware(&mockUserResolver{err: errors.New("connection refused")})
		var got *model.User
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "any"})
		rec := httptest.NewRecorder()

		failing(captureUserHandler(&got)).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || got != nil {
			t.Errorf("expected anonymous pass-through on failure, status %d user %+v", rec.Code, got)
		}
	})
}

// TestAuthzFromContext は認可コンテキストの組み立てをテストする。
func TestAuthzFromContext(t *testing.T) {
	t.Run("未認証は匿名", func(t *testing.T) {
		authz := AuthzFromContext(context.Background())
		if authz != (repository.Authz{}) {
			t.Errorf("expected zero authz, got %+v", authz)
		}
	})

	t.Run("管理者はIsAdmin", func(t *testing.T) {
		ctx := ContextWithUser(context.Background(), &model.User{ID: "a-1", Role: model.RoleAdmin})
		authz := AuthzFromContext(ctx)
		if authz.UserID != "a-1" || !authz.IsAdmin {
			t.Errorf("unexpected authz: %+v", authz)
		}
	})
}

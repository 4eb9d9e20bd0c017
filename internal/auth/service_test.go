package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/podclub/internal/model"
)

type mockUserRepo struct {
	byEmail   map[string]*model.User
	byID      map[string]*model.User
	createErr error
	usernames map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byEmail:   map[string]*model.User{},
		byID:      map[string]*model.User{},
		usernames: map[string]string{},
	}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byEmail[user.Email]; ok {
		return &pq.Error{Code: "23505"}
	}
	m.byEmail[user.Email] = user
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	return m.byID[id], nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return m.byEmail[email], nil
}

func (m *mockUserRepo) UpdateUsername(_ context.Context, id, username string) error {
	m.usernames[id] = username
	return nil
}

type mockSessionRepo struct {
	sessions map[string]*model.Session
	findErr  error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*model.Session{}}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.sessions[id], nil
}

func (m *mockSessionRepo) DeleteByID(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(_ context.Context, userID string) error {
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func newTestService(users *mockUserRepo, sessions *mockSessionRepo) *Service {
	return NewService(users, sessions, NewNotifier(), ServiceConfig{
		SessionMaxAge: 3600,
		AdminEmails:   []string{"host@example.com"},
	})
}

func TestSignUpCreatesUserAndSession(t *testing.T) {
	users := newMockUserRepo()
	sessions := newMockSessionRepo()
	svc := newTestService(users, sessions)

	user, session, err := svc.SignUp(context.Background(), "Listener@Example.com", "secret")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if user.Email != "listener@example.com" {
		t.Errorf("email should be normalized to lowercase, got %q", user.Email)
	}
	if user.PasswordHash == "secret" || user.PasswordHash == "" {
		t.Error("password must be stored as a bcrypt hash")
	}
	if user.Role != model.RoleUser {
		t.Errorf("role = %q, want user", user.Role)
	}
	if session == nil || sessions.sessions[session.ID] == nil {
		t.Fatal("session should be persisted")
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Error("session should expire in the future")
	}
}

func TestSignUpAdminAllowListGrantsAdminRole(t *testing.T) {
	svc := newTestService(newMockUserRepo(), newMockSessionRepo())

	user, _, err := svc.SignUp(context.Background(), "host@example.com", "secret")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", user.Role)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := newTestService(newMockUserRepo(), newMockSessionRepo())
	ctx := context.Background()

	if _, _, err := svc.SignUp(ctx, "listener@example.com", "secret"); err != nil {
		t.Fatalf("first SignUp: %v", err)
	}

	_, _, err := svc.SignUp(ctx, "listener@example.com", "another")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateEmail {
		t.Errorf("err = %v, want DUPLICATE_EMAIL", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := newTestService(newMockUserRepo(), newMockSessionRepo())
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: "", password: "secret"},
		{name: "email without at sign", email: "not-an-email", password: "secret"},
		{name: "empty password", email: "a@example.com", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.SignUp(ctx, tt.email, tt.password)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
				t.Errorf("err = %v, want VALIDATION_FAILED", err)
			}
		})
	}
}

// 不明なメールアドレスとパスワード不一致が同一のエラーになることを検証する。
// どちらが間違っているかを応答から区別できてはならない。
func TestSignInFailuresAreIndistinguishable(t *testing.T) {
	svc := newTestService(newMockUserRepo(), newMockSessionRepo())
	ctx := context.Background()

	if _, _, err := svc.SignUp(ctx, "listener@example.com", "correct"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	_, _, errUnknown := svc.SignIn(ctx, "nobody@example.com", "whatever")
	_, _, errWrongPass := svc.SignIn(ctx, "listener@example.com", "wrong")

	var apiErr1, apiErr2 *model.APIError
	if !errors.As(errUnknown, &apiErr1) || apiErr1.Code != model.ErrCodeAuthFailed {
		t.Fatalf("unknown email err = %v, want AUTH_FAILED", errUnknown)
	}
	if !errors.As(errWrongPass, &apiErr2) || apiErr2.Code != model.ErrCodeAuthFailed {
		t.Fatalf("wrong password err = %v, want AUTH_FAILED", errWrongPass)
	}
	if apiErr1.Message != apiErr2.Message {
		t.Error("both failures must return the identical message")
	}
}

func TestSignInSuccess(t *testing.T) {
	svc := newTestService(newMockUserRepo(), newMockSessionRepo())
	ctx := context.Background()

	if _, _, err := svc.SignUp(ctx, "listener@example.com", "correct"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	user, session, err := svc.SignIn(ctx, "  Listener@example.com ", "correct")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if user.Email != "listener@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if session == nil || session.ID == "" {
		t.Fatal("session should be issued")
	}
}

// ログアウトの同期性: 通知が配信される時点で、セッションは既に解決不能で
// なければならない。
func TestLogoutDeletesSessionBeforeNotification(t *testing.T) {
	users := newMockUserRepo()
	sessions := newMockSessionRepo()
	svc := newTestService(users, sessions)
	ctx := context.Background()

	_, session, err := svc.SignUp(ctx, "listener@example.com", "secret")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	var resolvedDuringNotify *model.Session
	unsub := svc.Notifier().Subscribe(func(e Event) {
		if e.Type == EventSignedOut {
			resolvedDuringNotify = sessions.sessions[session.ID]
		}
	})
	defer unsub()

	if err := svc.Logout(ctx, session.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if resolvedDuringNotify != nil {
		t.Error("session must already be deleted when signed_out is published")
	}
	if _, err := svc.GetCurrentUser(ctx, session.ID); err != nil {
		t.Fatalf("GetCurrentUser after logout: %v", err)
	}
}

func TestLogoutRequiresSessionID(t *testing.T) {
	svc := newTestService(newMockUserRepo(), newMockSessionRepo())
	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Error("empty session ID should be rejected")
	}
}

func TestGetCurrentUserResolvesRole(t *testing.T) {
	svc := newTestService(newMockUserRepo(), newMockSessionRepo())
	ctx := context.Background()

	_, session, err := svc.SignUp(ctx, "host@example.com", "secret")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	user, err := svc.GetCurrentUser(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if user == nil {
		t.Fatal("user should resolve")
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", user.Role)
	}
}

func TestGetCurrentUserUnknownSessionReturnsNil(t *testing.T) {
	svc := newTestService(newMockUserRepo(), newMockSessionRepo())

	user, err := svc.GetCurrentUser(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if user != nil {
		t.Error("unknown session should resolve to nil, not an error")
	}
}

func TestUpdateUserMetadataTrimsWhitespace(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestService(users, newMockSessionRepo())
	ctx := context.Background()

	user, _, err := svc.SignUp(ctx, "listener@example.com", "secret")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if err := svc.UpdateUserMetadata(ctx, user.ID, "  ポッド好き  "); err != nil {
		t.Fatalf("UpdateUserMetadata: %v", err)
	}
	if users.usernames[user.ID] != "ポッド好き" {
		t.Errorf("username = %q", users.usernames[user.ID])
	}

	// 空白のみは未設定に戻す
	if err := svc.UpdateUserMetadata(ctx, user.ID, "   "); err != nil {
		t.Fatalf("UpdateUserMetadata: %v", err)
	}
	if users.usernames[user.ID] != "" {
		t.Errorf("username = %q, want empty", users.usernames[user.ID])
	}
}

func TestAuthServiceBackendDegradation(t *testing.T) {
	backendErr := model.NewConfigurationError("DATABASE_URL")
	svc := NewService(newMockUserRepo(), newMockSessionRepo(), NewNotifier(), ServiceConfig{
		BackendErr: backendErr,
	})
	ctx := context.Background()

	if _, _, err := svc.SignUp(ctx, "a@example.com", "x"); !errors.Is(err, backendErr) {
		t.Errorf("SignUp err = %v, want backendErr", err)
	}
	if _, _, err := svc.SignIn(ctx, "a@example.com", "x"); !errors.Is(err, backendErr) {
		t.Errorf("SignIn err = %v, want backendErr", err)
	}
	if err := svc.Logout(ctx, "some-session"); !errors.Is(err, backendErr) {
		t.Errorf("Logout err = %v, want backendErr", err)
	}
	if _, err := svc.GetCurrentUser(ctx, "some-session"); !errors.Is(err, backendErr) {
		t.Errorf("GetCurrentUser err = %v, want backendErr", err)
	}
	if err := svc.UpdateUserMetadata(ctx, "u-1", "name"); !errors.Is(err, backendErr) {
		t.Errorf("UpdateUserMetadata err = %v, want backendErr", err)
	}
}

func TestDisplayNameFallback(t *testing.T) {
	u := &model.User{Email: "listener@example.com"}
	if got := u.DisplayName(); got != "listener" {
		t.Errorf("DisplayName = %q, want listener", got)
	}

	u.Username = "ポッド好き"
	if got := u.DisplayName(); got != "ポッド好き" {
		t.Errorf("DisplayName = %q, want ポッド好き", got)
	}
}

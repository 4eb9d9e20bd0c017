package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/podclub/internal/model"
	"github.com/hitoshi/podclub/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int      // セッション有効期間（秒）
	AdminEmails   []string // 管理者メールアドレスの許可リスト

	// BackendErr が設定されている場合、全操作はこのエラーを返して縮退する。
	BackendErr *model.APIError
}

// Service は認証に関するビジネスロジックを提供する。
// サインアップ、サインイン、サインアウト、セッション解決、
// ユーザーメタデータ更新、セッション変化通知の6操作を公開する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	notifier    *Notifier
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	notifier *Notifier,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		notifier:    notifier,
		config:      config,
	}
}

// Notifier はセッション変化通知の購読口を返す。
func (s *Service) Notifier() *Notifier {
	return s.notifier
}

// SignUp は新規ユーザーを登録し、セッションを発行する。
// メールアドレス重複はDuplicateEmailとして返す。
func (s *Service) SignUp(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	if s.config.BackendErr != nil {
		return nil, nil, s.config.BackendErr
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, model.NewValidationFailedError("email", "メールアドレスの形式が正しくありません")
	}
	if password == "" {
		return nil, nil, model.NewValidationFailedError("password", "パスワードを入力してください")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, nil, model.NewDuplicateEmailError()
		}
		return nil, nil, repository.Classify(err, "users.create")
	}

	user.Role = ResolveRole(user.Email, s.config.AdminEmails)

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("new user signed up",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	s.notifier.Publish(Event{Type: EventSignedIn, UserID: user.ID, Email: user.Email})

	return user, session, nil
}

// SignIn は資格情報を検証し、セッションを発行する。
// ユーザー不在とパスワード不一致は区別せず、同一のAuthFailedを返す。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	if s.config.BackendErr != nil {
		return nil, nil, s.config.BackendErr
	}

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, repository.Classify(err, "users.find")
	}
	if user == nil {
		return nil, nil, model.NewAuthFailedError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, model.NewAuthFailedError()
	}

	user.Role = ResolveRole(user.Email, s.config.AdminEmails)

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user signed in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	s.notifier.Publish(Event{Type: EventSignedIn, UserID: user.ID, Email: user.Email})

	return user, session, nil
}

// Logout はセッションを破棄する。
// セッションの消去は同期的に完了し、変化通知はその後に配信される。
// 通知前の時点で既にセッションは解決不能になっている。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	if s.config.BackendErr != nil {
		return s.config.BackendErr
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return repository.Classify(err, "sessions.find")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return repository.Classify(err, "sessions.delete")
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))

	if session != nil {
		s.notifier.Publish(Event{Type: EventSignedOut, UserID: session.UserID})
	}
	return nil
}

// GetCurrentUser はセッションIDから現在のユーザーをロール付きで解決する。
// セッションが無効・期限切れの場合はnilを返す。
// 呼び出し側は取得失敗を「未認証」として扱い、別個のエラー状態は設けない。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}
	if s.config.BackendErr != nil {
		return nil, s.config.BackendErr
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, repository.Classify(err, "sessions.find")
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, repository.Classify(err, "users.find")
	}
	if user == nil {
		return nil, nil
	}

	user.Role = ResolveRole(user.Email, s.config.AdminEmails)
	return user, nil
}

// UpdateUserMetadata はusernameメタデータを更新する。
// 空白のみの入力は未設定（メールのローカル部へのフォールバック）に戻す。
func (s *Service) UpdateUserMetadata(ctx context.Context, userID, username string) error {
	if s.config.BackendErr != nil {
		return s.config.BackendErr
	}

	username = strings.TrimSpace(username)
	if err := s.userRepo.UpdateUsername(ctx, userID, username); err != nil {
		return repository.Classify(err, "users.update_metadata")
	}

	slog.Info("user metadata updated", slog.String("user_id", userID))
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, repository.Classify(err, "sessions.create")
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Package episode はエピソードのゲートウェイを提供する。
//
// バックエンドの行をドメインエンティティに正規化し、書き込み前の検証と
// サニタイズを行う。isNewフラグは読み取り時に毎回導出し、保存しない。
package episode

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/podclub/internal/model"
	"github.com/hitoshi/podclub/internal/repository"
	"github.com/hitoshi/podclub/internal/security"
)

// View は表示用に正規化されたエピソード。
// IsNewとEmbedURLは読み取り時に導出され、永続化されない。
type View struct {
	model.Episode
	IsNew    bool
	EmbedURL string
}

// Service はエピソードに関するビジネスロジックを提供する。
type Service struct {
	repo       repository.EpisodeRepository
	sanitizer  security.ContentSanitizerService
	backendErr *model.APIError
	now        func() time.Time
}

// NewService はServiceを生成する。
// backendErrが非nilの場合、全操作は接続設定エラーを返して縮退する。
func NewService(repo repository.EpisodeRepository, sanitizer security.ContentSanitizerService, backendErr *model.APIError) *Service {
	return &Service{
		repo:       repo,
		sanitizer:  sanitizer,
		backendErr: backendErr,
		now:        time.Now,
	}
}

// List は全エピソードを新しい順に返す。
// 同一データに対する2回の呼び出しは（48時間境界をまたぐIsNewの再計算を除き）
// 同じ結果を返す。
func (s *Service) List(ctx context.Context) ([]*View, error) {
	if s.backendErr != nil {
		return nil, s.backendErr
	}

	episodes, err := s.repo.List(ctx)
	if err != nil {
		return nil, repository.Classify(err, "episodes.list")
	}

	now := s.now()
	views := make([]*View, 0, len(episodes))
	for _, e := range episodes {
		views = append(views, s.toView(e, now))
	}
	return views, nil
}

// GetByID は指定IDのエピソードを返す。
// 見つからない場合はEpisodeNotFoundを返す（リダイレクトではなく
// 終端表示に使われる）。
func (s *Service) GetByID(ctx context.Context, id string) (*View, error) {
	if s.backendErr != nil {
		return nil, s.backendErr
	}
	if strings.TrimSpace(id) == "" {
		return nil, model.NewEpisodeNotFoundError(id)
	}

	episode, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repository.Classify(err, "episodes.get")
	}
	if episode == nil {
		return nil, model.NewEpisodeNotFoundError(id)
	}

	return s.toView(episode, s.now()), nil
}

// CreateInput はエピソード作成/更新の入力。
type CreateInput struct {
	Title      string
	SpotifyURL string
	BonusText  string

	// PublishedAt が非nilの場合、created_atとして採用する。
	// RSSインポートが配信日時を保持するために使う。通常の作成では現在時刻。
	PublishedAt *time.Time
}

// Create はエピソードを作成する。
// Spotify URLの形式検証は書き込み時のみ行い、読み取り時には行わない。
func (s *Service) Create(ctx context.Context, authz repository.Authz, input CreateInput) (*View, error) {
	if s.backendErr != nil {
		return nil, s.backendErr
	}

	episode, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	episode.ID = uuid.New().String()
	if input.PublishedAt != nil {
		episode.CreatedAt = *input.PublishedAt
	} else {
		episode.CreatedAt = s.now()
	}

	if err := s.repo.Create(ctx, authz, episode); err != nil {
		return nil, repository.Classify(err, "episodes.create")
	}

	slog.Info("episode created", "episode_id", episode.ID, "user_id", authz.UserID)
	return s.toView(episode, s.now()), nil
}

// Update は指定IDのエピソードを更新する。
// ポリシーにより行が見えず更新が0行だった場合、行の実在を確認して
// NotFoundとPermissionDeniedを切り分ける。
func (s *Service) Update(ctx context.Context, authz repository.Authz, id string, input CreateInput) (*View, error) {
	if s.backendErr != nil {
		return nil, s.backendErr
	}

	episode, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	episode.ID = id

	updated, err := s.repo.Update(ctx, authz, episode)
	if err != nil {
		return nil, repository.Classify(err, "episodes.update")
	}
	if !updated {
		return nil, s.missingOrDenied(ctx, id, "episodes.update")
	}

	fresh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repository.Classify(err, "episodes.get")
	}
	slog.Info("episode updated", "episode_id", id, "user_id", authz.UserID)
	return s.toView(fresh, s.now()), nil
}

// Delete は指定IDのエピソードを削除する。
func (s *Service) Delete(ctx context.Context, authz repository.Authz, id string) error {
	if s.backendErr != nil {
		return s.backendErr
	}

	deleted, err := s.repo.Delete(ctx, authz, id)
	if err != nil {
		return repository.Classify(err, "episodes.delete")
	}
	if !deleted {
		return s.missingOrDenied(ctx, id, "episodes.delete")
	}

	slog.Info("episode deleted", "episode_id", id, "user_id", authz.UserID)
	return nil
}

// validate は入力を検証し、サニタイズ済みのエンティティを組み立てる。
func (s *Service) validate(input CreateInput) (*model.Episode, error) {
	title := s.sanitizer.Sanitize(input.Title)
	if title == "" {
		return nil, model.NewValidationFailedError("title", "タイトルを入力してください")
	}

	spotifyURL := NormalizeSpotifyURL(input.SpotifyURL)
	if !ValidateSpotifyURL(spotifyURL) {
		return nil, model.NewInvalidSpotifyURLError()
	}

	return &model.Episode{
		Title:      title,
		SpotifyURL: spotifyURL,
		BonusText:  s.sanitizer.Sanitize(input.BonusText),
	}, nil
}

// missingOrDenied は書き込みが0行だった原因を切り分ける。
// 行が存在しなければNotFound、存在するのに見えなければポリシー拒否。
func (s *Service) missingOrDenied(ctx context.Context, id, operation string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return repository.Classify(err, operation)
	}
	if existing == nil {
		return model.NewEpisodeNotFoundError(id)
	}
	return model.NewPermissionDeniedError(operation)
}

func (s *Service) toView(e *model.Episode, now time.Time) *View {
	return &View{
		Episode:  *e,
		IsNew:    e.IsNew(now),
		EmbedURL: SpotifyEmbedURL(e.SpotifyURL),
	}
}

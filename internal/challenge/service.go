// Package challenge はチャレンジ（今週のお題）のゲートウェイを提供する。
//
// 「現在のチャレンジ」は保存されたフラグではなく読み取り時の選択規則であり、
// 常に最新の1件を指す。行が1件も存在しない状態は正当であり、エラーではない。
package challenge

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/podclub/internal/model"
	"github.com/hitoshi/podclub/internal/repository"
	"github.com/hitoshi/podclub/internal/security"
)

// Service はチャレンジに関するビジネスロジックを提供する。
type Service struct {
	repo       repository.ChallengeRepository
	sanitizer  security.ContentSanitizerService
	backendErr *model.APIError
	now        func() time.Time
}

// NewService はServiceを生成する。
// backendErrが非nilの場合、全操作は接続設定エラーを返して縮退する。
func NewService(repo repository.ChallengeRepository, sanitizer security.ContentSanitizerService, backendErr *model.APIError) *Service {
	return &Service{
		repo:       repo,
		sanitizer:  sanitizer,
		backendErr: backendErr,
		now:        time.Now,
	}
}

// List は全チャレンジを新しい順に返す。管理画面の一覧で使う。
func (s *Service) List(ctx context.Context) ([]*model.Challenge, error) {
	if s.backendErr != nil {
		return nil, s.backendErr
	}

	challenges, err := s.repo.List(ctx)
	if err != nil {
		return nil, repository.Classify(err, "challenges.list")
	}
	return challenges, nil
}

// Current は現在のチャレンジ（最新の1件）を返す。
// チャレンジが1件も存在しない場合は (nil, nil) を返す。
// 呼び出し側はnilを「お題なし」として描画し、エラーとは区別する。
func (s *Service) Current(ctx context.Context) (*model.Challenge, error) {
	if s.backendErr != nil {
		return nil, s.backendErr
	}

	challenge, err := s.repo.FindLatest(ctx)
	if err != nil {
		return nil, repository.Classify(err, "challenges.current")
	}
	return challenge, nil
}

// Input はチャレンジ作成/更新の入力。
type Input struct {
	Title   string
	Content string
}

// Create はチャレンジを作成する。
// タイトル以外の内容検証は行わない。本文は空でもよい。
func (s *Service) Create(ctx context.Context, authz repository.Authz, input Input) (*model.Challenge, error) {
	if s.backendErr != nil {
		return nil, s.backendErr
	}

	challenge, err := s.build(input)
	if err != nil {
		return nil, err
	}
	challenge.ID = uuid.New().String()
	challenge.CreatedAt = s.now()

	if err := s.repo.Create(ctx, authz, challenge); err != nil {
		return nil, repository.Classify(err, "challenges.create")
	}

	slog.Info("challenge created", "challenge_id", challenge.ID, "user_id", authz.UserID)
	return challenge, nil
}

// Update は指定IDのチャレンジを更新する。
func (s *Service) Update(ctx context.Context, authz repository.Authz, id string, input Input) (*model.Challenge, error) {
	if s.backendErr != nil {
		return nil, s.backendErr
	}

	challenge, err := s.build(input)
	if err != nil {
		return nil, err
	}
	challenge.ID = id

	updated, err := s.repo.Update(ctx, authz, challenge)
	if err != nil {
		return nil, repository.Classify(err, "challenges.update")
	}
	if !updated {
		return nil, s.missingOrDenied(ctx, id, "challenges.update")
	}

	fresh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repository.Classify(err, "challenges.get")
	}
	slog.Info("challenge updated", "challenge_id", id, "user_id", authz.UserID)
	return fresh, nil
}

// Delete は指定IDのチャレンジを削除する。
func (s *Service) Delete(ctx context.Context, authz repository.Authz, id string) error {
	if s.backendErr != nil {
		return s.backendErr
	}

	deleted, err := s.repo.Delete(ctx, authz, id)
	if err != nil {
		return repository.Classify(err, "challenges.delete")
	}
	if !deleted {
		return s.missingOrDenied(ctx, id, "challenges.delete")
	}

	slog.Info("challenge deleted", "challenge_id", id, "user_id", authz.UserID)
	return nil
}

func (s *Service) build(input Input) (*model.Challenge, error) {
	title := s.sanitizer.Sanitize(input.Title)
	if title == "" {
		return nil, model.NewValidationFailedError("title", "タイトルを入力してください")
	}
	return &model.Challenge{
		Title:   title,
		Content: s.sanitizer.Sanitize(input.Content),
	}, nil
}

// missingOrDenied は書き込みが0行だった原因を切り分ける。
func (s *Service) missingOrDenied(ctx context.Context, id, operation string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return repository.Classify(err, operation)
	}
	if existing == nil {
		return model.NewNotFoundError("チャレンジ", id)
	}
	return model.NewPermissionDeniedError(operation)
}

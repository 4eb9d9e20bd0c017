// Package comment はエピソードコメントのゲートウェイを提供する。
//
// コメントは作成と削除のみで、更新は存在しない。
// 作成は認証済みユーザー本人として行い、削除は管理者のみ。
package comment

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/podclub/internal/model"
	"github.com/hitoshi/podclub/internal/repository"
	"github.com/hitoshi/podclub/internal/security"
)

// timeLabelFormat は表示用タイムスタンプの書式（日本ロケール）。
const timeLabelFormat = "2006/01/02 15:04"

// View は表示用に正規化されたコメント。
// CreatedAtLabelは取得時に整形され、保存はされない。
type View struct {
	model.Comment
	CreatedAtLabel string
}

// Service はコメントに関するビジネスロジックを提供する。
type Service struct {
	repo       repository.CommentRepository
	sanitizer  security.ContentSanitizerService
	backendErr *model.APIError
}

// NewService はServiceを生成する。
// backendErrが非nilの場合、全操作は接続設定エラーを返して縮退する。
func NewService(repo repository.CommentRepository, sanitizer security.ContentSanitizerService, backendErr *model.APIError) *Service {
	return &Service{
		repo:       repo,
		sanitizer:  sanitizer,
		backendErr: backendErr,
	}
}

// ListByEpisode はエピソードのコメント一覧を新しい順に返す。
// タイムスタンプはこの時点で表示文字列に整形する。
func (s *Service) ListByEpisode(ctx context.Context, episodeID string) ([]*View, error) {
	if s.backendErr != nil {
		return nil, s.backendErr
	}

	comments, err := s.repo.ListByEpisode(ctx, episodeID)
	if err != nil {
		return nil, repository.Classify(err, "comments.list")
	}

	views := make([]*View, 0, len(comments))
	for _, c := range comments {
		views = append(views, toView(c))
	}
	return views, nil
}

// Create はコメントを投稿する。
// 内容の検証は「空でないこと」のみ。投稿者は認可コンテキストの本人に固定され、
// 他ユーザーのIDでの投稿は行レベルポリシーが拒否する。
// 返却するViewには投稿者の表示名を載せ、一覧取得と同じ形にする。
func (s *Service) Create(ctx context.Context, authz repository.Authz, author *model.User, episodeID, content string) (*View, error) {
	if s.backendErr != nil {
		return nil, s.backendErr
	}
	if authz.UserID == "" || author == nil {
		return nil, model.NewUnauthorizedError()
	}

	content = s.sanitizer.Sanitize(content)
	if content == "" {
		return nil, model.NewValidationFailedError("content", "コメントを入力してください")
	}

	comment := &model.Comment{
		ID:        uuid.New().String(),
		UserID:    authz.UserID,
		EpisodeID: episodeID,
		Content:   content,
		CreatedAt: time.Now(),
		Username:  author.DisplayName(),
	}
	if err := s.repo.Create(ctx, authz, comment); err != nil {
		return nil, repository.Classify(err, "comments.create")
	}

	slog.Info("comment created", "comment_id", comment.ID, "episode_id", episodeID, "user_id", authz.UserID)
	return toView(comment), nil
}

// Delete は指定IDのコメントを削除する。管理者のみ成功する。
// 削除が0行だった場合、行の実在を確認してNotFoundとPermissionDeniedを切り分ける。
func (s *Service) Delete(ctx context.Context, authz repository.Authz, id string) error {
	if s.backendErr != nil {
		return s.backendErr
	}

	deleted, err := s.repo.Delete(ctx, authz, id)
	if err != nil {
		return repository.Classify(err, "comments.delete")
	}
	if !deleted {
		exists, err := s.repo.Exists(ctx, id)
		if err != nil {
			return repository.Classify(err, "comments.delete")
		}
		if !exists {
			return model.NewNotFoundError("コメント", id)
		}
		return model.NewPermissionDeniedError("comments.delete")
	}

	slog.Info("comment deleted", "comment_id", id, "user_id", authz.UserID)
	return nil
}

func toView(c *model.Comment) *View {
	return &View{
		Comment:        *c,
		CreatedAtLabel: c.CreatedAt.Format(timeLabelFormat),
	}
}

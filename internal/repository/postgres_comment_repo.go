package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/podclub/internal/model"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// ListByEpisode はエピソードのコメント一覧を投稿者の表示名付きで
// created_at降順で返す。表示名はusernameメタデータを優先し、
// 未設定の場合はメールのローカル部にフォールバックする。
func (r *PostgresCommentRepo) ListByEpisode(ctx context.Context, episodeID string) ([]*model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.episode_id, c.content, c.created_at,
		        u.username, u.email
		 FROM comments c
		 INNER JOIN users u ON c.user_id = u.id
		 WHERE c.episode_id = $1
		 ORDER BY c.created_at DESC`,
		episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var comments []*model.Comment
	for rows.Next() {
		c := &model.Comment{}
		var username sql.NullString
		var email string

		if err := rows.Scan(
			&c.ID, &c.UserID, &c.EpisodeID, &c.Content, &c.CreatedAt,
			&username, &email,
		); err != nil {
			return nil, fmt.Errorf("コメント行の読み取りに失敗しました: %w", err)
		}

		author := model.User{Email: email, Username: nullStringValue(username)}
		c.Username = author.DisplayName()

		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コメント一覧の走査に失敗しました: %w", err)
	}

	return comments, nil
}

// Create はコメントを作成し、バックエンドが採番したcreated_atを反映する。
// 行レベルポリシー違反（他人のuser_idでの投稿等）はエラーとして返る。
func (r *PostgresCommentRepo) Create(ctx context.Context, authz Authz, comment *model.Comment) error {
	return withAuthz(ctx, r.db, authz, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			`INSERT INTO comments (id, user_id, episode_id, content)
			 VALUES ($1, $2, $3, $4)
			 RETURNING created_at`,
			comment.ID, comment.UserID, comment.EpisodeID, comment.Content,
		).Scan(&comment.CreatedAt)
	})
}

// Delete は指定IDのコメントを削除する。
// DELETEポリシーは違反をエラーにせず対象行を不可視にするため、
// 削除できなかった場合はfalseを返し、切り分けは呼び出し側で行う。
func (r *PostgresCommentRepo) Delete(ctx context.Context, authz Authz, id string) (bool, error) {
	var affected int64
	err := withAuthz(ctx, r.db, authz, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM comments WHERE id = $1`,
			id,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Exists は指定IDのコメント行が存在するかを返す。
func (r *PostgresCommentRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("コメントの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/podclub/internal/model"
)

// PostgresChallengeRepo はPostgreSQLを使用したチャレンジリポジトリ。
type PostgresChallengeRepo struct {
	db *sql.DB
}

// NewPostgresChallengeRepo はPostgresChallengeRepoを生成する。
func NewPostgresChallengeRepo(db *sql.DB) *PostgresChallengeRepo {
	return &PostgresChallengeRepo{db: db}
}

// List は全チャレンジをcreated_at降順で返す。
func (r *PostgresChallengeRepo) List(ctx context.Context) ([]*model.Challenge, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, content, created_at
		 FROM challenges
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("チャレンジ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var challenges []*model.Challenge
	for rows.Next() {
		ch := &model.Challenge{}
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.Content, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("チャレンジ行の読み取りに失敗しました: %w", err)
		}
		challenges = append(challenges, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("チャレンジ一覧の走査に失敗しました: %w", err)
	}

	return challenges, nil
}

// FindLatest は最新の1件を返す。行が存在しない場合はnilを返す。
// 「行なし」は正当な状態でありエラーではない。呼び出し側で
// 「まだチャレンジがない」として扱う。
func (r *PostgresChallengeRepo) FindLatest(ctx context.Context) (*model.Challenge, error) {
	ch := &model.Challenge{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, content, created_at
		 FROM challenges
		 ORDER BY created_at DESC
		 LIMIT 1`,
	).Scan(&ch.ID, &ch.Title, &ch.Content, &ch.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("最新チャレンジの取得に失敗しました: %w", err)
	}

	return ch, nil
}

// FindByID は指定IDのチャレンジを取得する。見つからない場合はnilを返す。
func (r *PostgresChallengeRepo) FindByID(ctx context.Context, id string) (*model.Challenge, error) {
	ch := &model.Challenge{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, content, created_at
		 FROM challenges WHERE id = $1`,
		id,
	).Scan(&ch.ID, &ch.Title, &ch.Content, &ch.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("チャレンジの取得に失敗しました: %w", err)
	}

	return ch, nil
}

// Create はチャレンジを作成する。行レベルポリシー違反はエラーとして返る。
func (r *PostgresChallengeRepo) Create(ctx context.Context, authz Authz, challenge *model.Challenge) error {
	return withAuthz(ctx, r.db, authz, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO challenges (id, title, content, created_at)
			 VALUES ($1, $2, $3, $4)`,
			challenge.ID, challenge.Title, challenge.Content, challenge.CreatedAt,
		)
		return err
	})
}

// Update はチャレンジを更新する。
// ポリシーにより対象行が見えない場合はfalseを返す。
func (r *PostgresChallengeRepo) Update(ctx context.Context, authz Authz, challenge *model.Challenge) (bool, error) {
	var affected int64
	err := withAuthz(ctx, r.db, authz, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE challenges SET title = $2, content = $3 WHERE id = $1`,
			challenge.ID, challenge.Title, challenge.Content,
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

// Delete は指定IDのチャレンジを削除する。
// ポリシーにより対象行が見えない場合はfalseを返す。
func (r *PostgresChallengeRepo) Delete(ctx context.Context, authz Authz, id string) (bool, error) {
	var affected int64
	err := withAuthz(ctx, r.db, authz, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM challenges WHERE id = $1`,
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

// compile-time interface check
var _ ChallengeRepository = (*PostgresChallengeRepo)(nil)

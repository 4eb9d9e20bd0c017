package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/podclub/internal/model"
)

// PostgresEpisodeRepo はPostgreSQLを使用したエピソードリポジトリ。
type PostgresEpisodeRepo struct {
	db *sql.DB
}

// NewPostgresEpisodeRepo はPostgresEpisodeRepoを生成する。
func NewPostgresEpisodeRepo(db *sql.DB) *PostgresEpisodeRepo {
	return &PostgresEpisodeRepo{db: db}
}

// List は全エピソードをcreated_at降順で返す。
func (r *PostgresEpisodeRepo) List(ctx context.Context) ([]*model.Episode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, spotify_url, bonus_text, created_at
		 FROM episodes
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("エピソード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var episodes []*model.Episode
	for rows.Next() {
		ep, err := scanEpisode(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("エピソード行の読み取りに失敗しました: %w", err)
		}
		episodes = append(episodes, ep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("エピソード一覧の走査に失敗しました: %w", err)
	}

	return episodes, nil
}

// FindByID は指定IDのエピソードを取得する。見つからない場合はnilを返す。
func (r *PostgresEpisodeRepo) FindByID(ctx context.Context, id string) (*model.Episode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, spotify_url, bonus_text, created_at
		 FROM episodes WHERE id = $1`,
		id,
	)

	ep, err := scanEpisode(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("エピソードの取得に失敗しました: %w", err)
	}

	return ep, nil
}

// Create はエピソードを作成する。行レベルポリシー違反はエラーとして返る。
func (r *PostgresEpisodeRepo) Create(ctx context.Context, authz Authz, episode *model.Episode) error {
	return withAuthz(ctx, r.db, authz, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO episodes (id, title, spotify_url, bonus_text, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			episode.ID, episode.Title, episode.SpotifyURL, episode.BonusText, episode.CreatedAt,
		)
		return err
	})
}

// Update はエピソードを更新する。
// ポリシーにより対象行が見えない場合はfalseを返す。
func (r *PostgresEpisodeRepo) Update(ctx context.Context, authz Authz, episode *model.Episode) (bool, error) {
	var affected int64
	err := withAuthz(ctx, r.db, authz, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE episodes SET title = $2, spotify_url = $3, bonus_text = $4
			 WHERE id = $1`,
			episode.ID, episode.Title, episode.SpotifyURL, episode.BonusText,
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

// Delete は指定IDのエピソードを削除する。
// ポリシーにより対象行が見えない場合はfalseを返す。
func (r *PostgresEpisodeRepo) Delete(ctx context.Context, authz Authz, id string) (bool, error) {
	var affected int64
	err := withAuthz(ctx, r.db, authz, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM episodes WHERE id = $1`,
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

// scanEpisode は1行をスキャンしてエピソードに正規化する。
// created_atがNULLの行は現在時刻を代入する（常に新着として読まれる）。
func scanEpisode(scan func(dest ...any) error) (*model.Episode, error) {
	ep := &model.Episode{}
	var createdAt sql.NullTime

	if err := scan(&ep.ID, &ep.Title, &ep.SpotifyURL, &ep.BonusText, &createdAt); err != nil {
		return nil, err
	}

	if createdAt.Valid {
		ep.CreatedAt = createdAt.Time
	} else {
		ep.CreatedAt = time.Now()
	}

	return ep, nil
}

// compile-time interface check
var _ EpisodeRepository = (*PostgresEpisodeRepo)(nil)

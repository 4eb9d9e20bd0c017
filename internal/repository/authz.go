package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// applyAuthz は認可コンテキストをトランザクションローカルな接続設定として適用する。
// 行レベルポリシーはこの設定（podclub.user_id / podclub.is_admin）を参照する。
// SET LOCALはプレースホルダを受け付けないため、set_config経由で設定する。
func applyAuthz(ctx context.Context, tx *sql.Tx, authz Authz) error {
	_, err := tx.ExecContext(ctx,
		`SELECT set_config('podclub.user_id', $1, true),
		        set_config('podclub.is_admin', $2, true)`,
		authz.UserID, strconv.FormatBool(authz.IsAdmin),
	)
	if err != nil {
		return fmt.Errorf("認可コンテキストの適用に失敗しました: %w", err)
	}
	return nil
}

// withAuthz は認可コンテキスト付きのトランザクションでfnを実行する。
// fnがエラーを返した場合はロールバックし、元のエラーをそのまま返す。
func withAuthz(ctx context.Context, db *sql.DB, authz Authz, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}

	if err := applyAuthz(ctx, tx, authz); err != nil {
		tx.Rollback()
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open はPostgreSQLへの接続プールを生成する。
// 行レベルポリシーが参照する認可コンテキストはトランザクションローカルに
// 設定するため、接続自体はリクエスト間で共有してよい。
// sql.Openはこの時点では接続しない。疎通確認は呼び出し側がPingで行う。
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("データベース接続の初期化に失敗しました: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Package model はドメインモデルを定義する。
package model

import "time"

// Comment はエピソードに紐づくコメントを表す。
// ちょうど1つのエピソードにスコープされ、更新されることはない。
type Comment struct {
	ID        string
	UserID    string
	EpisodeID string
	Content   string
	CreatedAt time.Time

	// Username は表示用ラベル。投稿者のusernameメタデータを優先し、
	// 未設定の場合はメールのローカル部を使う。永続化されない。
	Username string
}

// Package model はドメインモデルを定義する。
package model

import "time"

// Challenge はコミュニティの「今週のチャレンジ」を表す。
// 「現在のチャレンジ」は保存フラグではなく、作成日時の降順で先頭1件を
// 選択する読み取り時ルールで決まる。
type Challenge struct {
	ID        string
	Title     string
	Content   string // Markdownサブセットの生テキスト
	CreatedAt time.Time
}

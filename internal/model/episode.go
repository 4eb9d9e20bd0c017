// Package model はドメインモデルを定義する。
package model

import "time"

// newEpisodeWindow は「NEW」バッジを表示する公開からの経過時間。
const newEpisodeWindow = 48 * time.Hour

// Episode はポッドキャストのエピソードを表す。
// BonusTextはMarkdownサブセットの生テキストで、描画時にのみ変換される。
type Episode struct {
	ID         string
	Title      string
	SpotifyURL string
	BonusText  string
	CreatedAt  time.Time
}

// IsNew は評価時点でエピソードが新着かどうかを返す。
// 公開から48時間未満（厳密に未満）の場合にtrue。
// created_atが欠落した行は正規化時に現在時刻が代入されるため、常に新着扱いとなる。
func (e *Episode) IsNew(now time.Time) bool {
	return now.Sub(e.CreatedAt) < newEpisodeWindow
}

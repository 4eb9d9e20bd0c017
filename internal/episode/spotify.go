package episode

import (
	"regexp"
	"strings"
)

// spotifyEpisodePattern はSpotifyエピソードURLの検証パターン。
// `open.spotify.com/episode/` の後に英数字1文字以上が続くこと。
// show や playlist のURLは一致しない。
var spotifyEpisodePattern = regexp.MustCompile(`open\.spotify\.com/episode/([a-zA-Z0-9]+)`)

// ValidateSpotifyURL はSpotifyエピソードURLとして妥当かを判定する。
func ValidateSpotifyURL(rawURL string) bool {
	return spotifyEpisodePattern.MatchString(rawURL)
}

// SpotifyEmbedURL はエピソードURLから埋め込みプレーヤーURLを導出する。
// 妥当なエピソードURLでない場合は空文字列を返す。
func SpotifyEmbedURL(rawURL string) string {
	m := spotifyEpisodePattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return "https://open.spotify.com/embed/episode/" + m[1]
}

// NormalizeSpotifyURL は前後の空白を除去したURLを返す。
// 検証と保存の前に適用する。
func NormalizeSpotifyURL(rawURL string) string {
	return strings.TrimSpace(rawURL)
}

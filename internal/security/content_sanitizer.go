// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー投稿テキスト（コメント、エピソードの
// ボーナステキスト、チャレンジ本文）からHTMLを除去する。
// これらのフィールドはプレーンテキストとして扱われ、装飾は保存後の
// Markdownサブセット描画でのみ行われるため、HTMLタグは一切許可しない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はテキストコンテンツのサニタイズ機能のインターフェースを定義する。
// コメント投稿およびエピソード・チャレンジの保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize は入力からHTMLタグを全て除去したテキストを返す。
	// script, iframe, style, on*イベント属性を含む全てのマークアップが対象。
	// タグ除去後にHTMLエンティティを元の文字へ復元する
	// （保存するのはテキストであり、エスケープはテンプレート描画時に行うため）。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、全てのHTML要素が除去される。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグを全て除去したテキストを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	stripped := s.policy.Sanitize(raw)
	// StrictPolicyは残存テキストをエンティティ化する。保存対象は
	// プレーンテキストなので復元し、前後の空白を落とす。
	return strings.TrimSpace(html.UnescapeString(stripped))
}

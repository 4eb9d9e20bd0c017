// Package markdown はエピソードのボーナステキストとチャレンジ本文が使う
// Markdownサブセットの行指向レンダラを提供する。
//
// 汎用Markdownパーサではない。認識するのは4つの行パターン
// （見出し1、見出し2、リスト項目、空行）と、段落内の **強調** のみ。
// ネスト、リンク、画像、コードブロック、複数行構文には対応しない。
// 変換は純関数であり、同一入力に対して常に同一のノード列を返す。
package markdown

import "strings"

// NodeType は行ノードの種別を表す。
type NodeType string

const (
	// NodeHeading1 は "# " で始まる行。
	NodeHeading1 NodeType = "heading1"
	// NodeHeading2 は "## " で始まる行。
	NodeHeading2 NodeType = "heading2"
	// NodeListItem は "- " で始まる行。各行が独立したノードになり、
	// リストコンテナへのグループ化は行わない。外側のリスト構造が必要な
	// 場合は消費側が補う。
	NodeListItem NodeType = "listItem"
	// NodeBlank は空行。
	NodeBlank NodeType = "blank"
	// NodeParagraph は上記いずれにも該当しない行。
	NodeParagraph NodeType = "paragraph"
)

// Span は段落内のテキスト断片を表す。
type Span struct {
	Text string
	Bold bool
}

// Node は1行分の描画ノードを表す。
type Node struct {
	Type NodeType
	Text string // heading1/heading2/listItemの本文。paragraph/blankでは空
	Spans []Span // paragraphのみ。元の並び順を保持する
}

// Render は生テキストを行ノード列に変換する。
// パターン照合はトリム後の行に対して上から順に行い、最初に一致した規則を適用する。
// 段落の分割だけは元の行に対して行い、行頭の字下げを保持する。
func Render(content string) []Node {
	lines := strings.Split(content, "\n")
	nodes := make([]Node, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "# "):
			nodes = append(nodes, Node{Type: NodeHeading1, Text: strings.TrimPrefix(trimmed, "# ")})
		case strings.HasPrefix(trimmed, "## "):
			nodes = append(nodes, Node{Type: NodeHeading2, Text: strings.TrimPrefix(trimmed, "## ")})
		case strings.HasPrefix(trimmed, "- "):
			nodes = append(nodes, Node{Type: NodeListItem, Text: strings.TrimPrefix(trimmed, "- ")})
		case trimmed == "":
			nodes = append(nodes, Node{Type: NodeBlank})
		default:
			nodes = append(nodes, Node{Type: NodeParagraph, Spans: splitSpans(line)})
		}
	}

	return nodes
}

// splitSpans は行を区切り文字 `**` で分割し、奇数位置のトークンを強調にする。
// 閉じられていない区切り（`**` が奇数個）でも機械的に交互適用し、
// 補正や先読みは行わない。空トークンは出力から除外する。
func splitSpans(line string) []Span {
	parts := strings.Split(line, "**")
	spans := make([]Span, 0, len(parts))

	for i, part := range parts {
		if part == "" {
			continue
		}
		spans = append(spans, Span{Text: part, Bold: i%2 == 1})
	}

	return spans
}

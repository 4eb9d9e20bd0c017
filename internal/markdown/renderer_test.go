package markdown

import (
	"reflect"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Node
	}{
		{
			name:    "混在ドキュメント",
			content: "# Title\n\nNormal **bold** text\n- item1",
			want: []Node{
				{Type: NodeHeading1, Text: "Title"},
				{Type: NodeBlank},
				{Type: NodeParagraph, Spans: []Span{
					{Text: "Normal ", Bold: false},
					{Text: "bold", Bold: true},
					{Text: " text", Bold: false},
				}},
				{Type: NodeListItem, Text: "item1"},
			},
		},
		{
			name:    "見出し2",
			content: "## 今週のお題",
			want: []Node{
				{Type: NodeHeading2, Text: "今週のお題"},
			},
		},
		{
			name:    "前後空白をトリムして照合する",
			content: "  # Title  ",
			want: []Node{
				{Type: NodeHeading1, Text: "Title"},
			},
		},
		{
			name:    "スペースのない接頭辞は段落扱い",
			content: "#Title\n-item",
			want: []Node{
				{Type: NodeParagraph, Spans: []Span{{Text: "#Title"}}},
				{Type: NodeParagraph, Spans: []Span{{Text: "-item"}}},
			},
		},
		{
			name:    "段落は元の行の字下げを保持する",
			content: "  indented **bold**",
			want: []Node{
				{Type: NodeParagraph, Spans: []Span{
					{Text: "  indented ", Bold: false},
					{Text: "bold", Bold: true},
				}},
			},
		},
		{
			name:    "空入力は空行1つ",
			content: "",
			want: []Node{
				{Type: NodeBlank},
			},
		},
		{
			name:    "連続するリスト項目はグループ化しない",
			content: "- a\n- b\n- c",
			want: []Node{
				{Type: NodeListItem, Text: "a"},
				{Type: NodeListItem, Text: "b"},
				{Type: NodeListItem, Text: "c"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Render() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSplitSpans(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []Span
	}{
		{
			name: "強調なし",
			line: "plain text",
			want: []Span{{Text: "plain text"}},
		},
		{
			name: "行頭の強調",
			line: "**bold** rest",
			want: []Span{
				{Text: "bold", Bold: true},
				{Text: " rest", Bold: false},
			},
		},
		{
			name: "閉じられていない区切りは機械的に交互適用する",
			line: "a **b** c **d",
			want: []Span{
				{Text: "a ", Bold: false},
				{Text: "b", Bold: true},
				{Text: " c ", Bold: false},
				{Text: "d", Bold: true},
			},
		},
		{
			name: "連続した区切りの空トークンは除外する",
			line: "a****b",
			want: []Span{
				{Text: "a", Bold: false},
				{Text: "b", Bold: false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSpans(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitSpans(%q) = %#v, want %#v", tt.line, got, tt.want)
			}
		})
	}
}

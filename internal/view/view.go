// Package view はサーバーレンダリングされるHTMLページの描画を提供する。
//
// テンプレートはバイナリに埋め込まれ、起動時に一度だけパースされる。
// ボーナステキストとチャレンジ本文はmarkdownヘルパーで行ノード列に変換され、
// テンプレート側でノード種別ごとに描画される。html/templateの自動エスケープが
// 全ての出力に適用される。
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/hitoshi/podclub/internal/markdown"
	"github.com/hitoshi/podclub/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

// pages は描画可能なページテンプレートの一覧。
// 各ページはlayout.htmlとパーツ群を組み合わせてパースされる。
var pages = []string{
	"landing",
	"auth",
	"feed",
	"episode",
	"community",
	"admin",
	"profile",
	"error",
}

// Flash はページ上部に表示する一時バナー。
// 成功は約3秒、エラーは約5秒で自動的に消える。
type Flash struct {
	Kind    string // "success" または "error"
	Message string
	Action  string // エラー時の対処方法。空なら非表示
}

// PageData は全ページ共通の描画データ。
type PageData struct {
	Title     string
	User      *model.User
	CSRFToken string
	Flash     *Flash
	Data      any
}

// Renderer はページテンプレートの描画を提供する。
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer は埋め込みテンプレートをパースしてRendererを生成する。
// テンプレートの欠落・構文エラーは起動時に検出される。
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"markdown": markdown.Render,
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS,
			"templates/layout.html",
			"templates/markdown.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = t
	}

	return &Renderer{templates: templates}, nil
}

// Render は指定ページをレイアウト込みで描画する。
func (r *Renderer) Render(w http.ResponseWriter, statusCode int, page string, data PageData) error {
	t, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown page template: %s", page)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	return t.ExecuteTemplate(w, "layout.html", data)
}

// RenderTo はテンプレートを任意のWriterに描画する。テスト用。
func (r *Renderer) RenderTo(w io.Writer, page string, data PageData) error {
	t, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown page template: %s", page)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}

// Package feedimport は番組RSSフィードからのエピソード取り込みを提供する。
//
// 取り込みは管理者操作によるリクエストスコープの処理であり、
// バックグラウンドの巡回は行わない。
package feedimport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hitoshi/podclub/internal/model"
)

// Candidate はHTMLから検出されたフィード候補を表す。
type Candidate struct {
	URL   string
	Type  string // "rss" または "atom"
	Title string
}

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Detector は番組ページからのフィード自動検出を提供する。
// 入力URLがフィードそのものであればそのまま返し、HTMLであれば
// headタグのalternateリンクからフィードURLを解決する。
type Detector struct {
	ssrfGuard    SSRFValidator
	fetchTimeout time.Duration
	maxBodySize  int64
}

// NewDetector はDetectorを生成する。
func NewDetector(ssrfGuard SSRFValidator, fetchTimeout time.Duration, maxBodySize int64) *Detector {
	return &Detector{
		ssrfGuard:    ssrfGuard,
		fetchTimeout: fetchTimeout,
		maxBodySize:  maxBodySize,
	}
}

// feedContentTypes はフィードとして直接認識するContent-Type。
var feedContentTypes = map[string]string{
	"application/rss+xml":  "rss",
	"application/atom+xml": "atom",
}

// xmlContentTypes は汎用XMLのContent-Type（ボディ先頭の解析が必要）。
var xmlContentTypes = map[string]bool{
	"text/xml":        true,
	"application/xml": true,
}

// Detect は入力URLからフィードURLを解決する。
//  1. SSRF事前検証
//  2. SSRF防止付きクライアントでフェッチ
//  3. Content-Typeとボディ先頭からフィード直接判定
//  4. HTMLならheadのalternateリンクから候補を検出し、優先順位で1つ選択
//  5. 未検出の場合は原因カテゴリ付きのエラーを返す
func (d *Detector) Detect(ctx context.Context, inputURL string) (string, error) {
	if strings.TrimSpace(inputURL) == "" {
		return "", model.NewInvalidURLError("URLが入力されていません")
	}

	if err := d.ssrfGuard.ValidateURL(inputURL); err != nil {
		return "", model.NewSSRFBlockedError()
	}

	contentType, body, err := d.Fetch(ctx, inputURL)
	if err != nil {
		return "", err
	}

	if isDirectFeed(contentType, body) {
		return inputURL, nil
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.Contains(strings.ToLower(mediaType), "html") {
		return "", model.NewFeedNotDetectedError(inputURL)
	}

	candidates := parseFeedLinks(body, inputURL)
	best := selectBest(candidates, inputURL)
	if best == nil {
		return "", model.NewFeedNotDetectedError(inputURL)
	}
	return best.URL, nil
}

// Fetch はSSRF防止付きクライアントでURLを取得する。
// インポート本体のフィード取得にも使われる。
func (d *Detector) Fetch(ctx context.Context, rawURL string) (contentType string, body []byte, err error) {
	client := d.ssrfGuard.NewSafeClient(d.fetchTimeout, d.maxBodySize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", "Podclub/1.0 Episode Importer")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		return "", nil, model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, model.NewFetchFailedError(fmt.Sprintf("HTTPステータス %d", resp.StatusCode))
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, d.maxBodySize))
	if err != nil {
		return "", nil, model.NewFetchFailedError(fmt.Sprintf("レスポンスの読み取りに失敗: %v", err))
	}
	return resp.Header.Get("Content-Type"), body, nil
}

// isDirectFeed はContent-Typeとボディ先頭からRSS/Atomフィードかを判定する。
func isDirectFeed(contentType string, body []byte) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	mediaType = strings.ToLower(mediaType)

	if _, ok := feedContentTypes[mediaType]; ok {
		return true
	}
	if !xmlContentTypes[mediaType] || len(body) == 0 {
		return false
	}

	// 先頭4KBにXMLプロローグとルート要素が含まれる前提で検査する
	prefix := body
	if len(prefix) > 4096 {
		prefix = prefix[:4096]
	}
	head := strings.ToLower(string(prefix))
	if strings.Contains(head, "<rss") || strings.Contains(head, "<rdf:rdf") {
		return true
	}
	return strings.Contains(head, "<feed") && strings.Contains(head, "http://www.w3.org/2005/atom")
}

// parseFeedLinks はHTMLのheadタグからrel="alternate"のフィードリンクを検出する。
// 相対URLはbaseURLを基準に絶対URLへ解決する。
func parseFeedLinks(htmlBody []byte, baseURL string) []Candidate {
	var candidates []Candidate

	baseU, err := url.Parse(baseURL)
	if err != nil {
		return candidates
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return candidates

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			switch tagName {
			case "head":
				inHead = true
				continue
			case "body":
				// bodyに入ったら解析を終了
				return candidates
			}
			if !inHead || tagName != "link" || !hasAttr {
				continue
			}

			var rel, linkType, href, title string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					linkType = strings.ToLower(string(val))
				case "href":
					href = string(val)
				case "title":
					title = string(val)
				}
				if !more {
					break
				}
			}

			if rel != "alternate" || href == "" {
				continue
			}
			feedType, ok := feedContentTypes[linkType]
			if !ok {
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			candidates = append(candidates, Candidate{
				URL:   baseU.ResolveReference(ref).String(),
				Type:  feedType,
				Title: title,
			})

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return candidates
			}
		}
	}
}

// selectBest は複数候補から1つを選択する。
// 優先順位: 同一ホスト > RSS > 先頭。ポッドキャスト配信はRSSが標準のため、
// Atomより優先する。
func selectBest(candidates []Candidate, inputURL string) *Candidate {
	if len(candidates) == 0 {
		return nil
	}

	inputHost := hostOf(inputURL)
	bestIdx := 0
	bestScore := -1

	for i, c := range candidates {
		score := 0
		if hostOf(c.URL) == inputHost {
			score += 100
		}
		if c.Type == "rss" {
			score += 10
		}
		// 同スコアは先頭を優先する
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return &candidates[bestIdx]
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

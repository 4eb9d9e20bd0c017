package feedimport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/podclub/internal/episode"
	"github.com/hitoshi/podclub/internal/model"
	"github.com/hitoshi/podclub/internal/repository"
)

// Result は1回のインポートの結果を表す。
type Result struct {
	FeedURL   string
	FeedTitle string
	Imported  int
	Skipped   int
	Episodes  []*episode.View
}

// Importer は番組フィードからエピソードを取り込む。
// 処理は管理者のリクエストに同期して実行され、完了または失敗で終わる。
type Importer struct {
	detector   *Detector
	episodes   *episode.Service
	backendErr *model.APIError
}

// NewImporter はImporterを生成する。
// backendErrが非nilの場合、全操作は接続設定エラーを返して縮退する。
func NewImporter(detector *Detector, episodes *episode.Service, backendErr *model.APIError) *Importer {
	return &Importer{
		detector:   detector,
		episodes:   episodes,
		backendErr: backendErr,
	}
}

// Import は指定URLからフィードを解決・取得し、エピソードを取り込む。
// Spotifyエピソードへのリンクを持たない項目と、登録済みURLの項目はスキップする。
// 途中の作成失敗は打ち切らず、その項目だけスキップして続行する。
func (im *Importer) Import(ctx context.Context, authz repository.Authz, inputURL string) (*Result, error) {
	if im.backendErr != nil {
		return nil, im.backendErr
	}

	feedURL, err := im.detector.Detect(ctx, inputURL)
	if err != nil {
		return nil, err
	}

	_, body, err := im.detector.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, model.NewParseFailedError()
	}

	known, err := im.knownSpotifyURLs(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{FeedURL: feedURL, FeedTitle: feed.Title}
	for _, item := range feed.Items {
		link := episode.NormalizeSpotifyURL(item.Link)
		if !episode.ValidateSpotifyURL(link) || known[link] {
			result.Skipped++
			continue
		}

		view, err := im.episodes.Create(ctx, authz, episode.CreateInput{
			Title:       item.Title,
			SpotifyURL:  link,
			BonusText:   item.Description,
			PublishedAt: item.PublishedParsed,
		})
		if err != nil {
			var apiErr *model.APIError
			if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodePermissionDenied {
				// ポリシー拒否は以降の項目でも繰り返すだけなので打ち切る
				return nil, err
			}
			slog.Warn("skipping feed item", "title", item.Title, "error", err)
			result.Skipped++
			continue
		}

		known[link] = true
		result.Imported++
		result.Episodes = append(result.Episodes, view)
	}

	slog.Info("feed import finished",
		"feed_url", feedURL,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"user_id", authz.UserID,
	)
	return result, nil
}

// knownSpotifyURLs は登録済みエピソードのSpotify URL集合を返す。重複取り込み防止に使う。
func (im *Importer) knownSpotifyURLs(ctx context.Context) (map[string]bool, error) {
	views, err := im.episodes.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(views))
	for _, v := range views {
		known[v.SpotifyURL] = true
	}
	return known, nil
}

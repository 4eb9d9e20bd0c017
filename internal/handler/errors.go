// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/podclub/internal/middleware"
	"github.com/hitoshi/podclub/internal/model"
)

// MetricsRecorder はハンドラー層が記録するメトリクスのインターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordGatewayError(code string)
	RecordCommentPosted()
	RecordEpisodesImported(count int)
}

// metricsRecorder はハンドラー全体で共有する計数先。
// 未設定（テスト等）の場合は計数しない。
var metricsRecorder MetricsRecorder

// SetMetricsRecorder は計数先を設定する。アプリ初期化時に一度だけ呼ぶ。
func SetMetricsRecorder(rec MetricsRecorder) {
	metricsRecorder = rec
}

// recordGatewayError はエラーコード別の計数を記録する。
func recordGatewayError(code string) {
	if metricsRecorder != nil {
		metricsRecorder.RecordGatewayError(code)
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードの
// JSONレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		recordGatewayError(apiErr.Code)
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidSpotifyURL, model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeAuthFailed:
		return http.StatusUnauthorized
	case model.ErrCodePermissionDenied, model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeNotFound, model.ErrCodeEpisodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateEmail:
		return http.StatusConflict
	case model.ErrCodeFeedNotDetected, model.ErrCodeParseFailed:
		return http.StatusUnprocessableEntity
	case model.ErrCodeFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodeTransientFailure:
		return http.StatusServiceUnavailable
	case model.ErrCodeConfigurationError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

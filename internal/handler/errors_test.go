package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/podclub/internal/model"
)

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *model.APIError
		want int
	}{
		{name: "validation failed", err: model.NewValidationFailedError("title", "必須です"), want: http.StatusBadRequest},
		{name: "invalid spotify url", err: model.NewInvalidSpotifyURLError(), want: http.StatusBadRequest},
		{name: "unauthorized", err: model.NewUnauthorizedError(), want: http.StatusUnauthorized},
		{name: "auth failed", err: model.NewAuthFailedError(), want: http.StatusUnauthorized},
		{name: "permission denied", err: model.NewPermissionDeniedError("削除"), want: http.StatusForbidden},
		{name: "ssrf blocked", err: model.NewSSRFBlockedError(), want: http.StatusForbidden},
		{name: "episode not found", err: model.NewEpisodeNotFoundError("ep-1"), want: http.StatusNotFound},
		{name: "not found", err: model.NewNotFoundError("チャレンジ", "ch-1"), want: http.StatusNotFound},
		{name: "duplicate email", err: model.NewDuplicateEmailError(), want: http.StatusConflict},
		{name: "feed not detected", err: model.NewFeedNotDetectedError("https://example.com"), want: http.StatusUnprocessableEntity},
		{name: "parse failed", err: model.NewParseFailedError(), want: http.StatusUnprocessableEntity},
		{name: "fetch failed", err: model.NewFetchFailedError("timeout"), want: http.StatusBadGateway},
		{name: "transient failure", err: model.NewTransientFailureError("connection reset"), want: http.StatusServiceUnavailable},
		{name: "configuration error", err: model.NewConfigurationError("DATABASE_URL"), want: http.StatusServiceUnavailable},
		{name: "unknown", err: model.NewUnknownError(), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapAPIErrorToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.err.Code, got, tt.want)
			}
		})
	}
}

func TestHandleServiceErrorWritesUnifiedJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, model.NewPermissionDeniedError("エピソードの更新"))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	var body struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Category string `json:"category"`
		Action   string `json:"action"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Code != model.ErrCodePermissionDenied {
		t.Errorf("code = %q, want PERMISSION_DENIED", body.Code)
	}
	if body.Category != "permission" {
		t.Errorf("category = %q, want permission", body.Category)
	}
	if body.Action == "" {
		t.Error("action should guide the user")
	}
}

func TestHandleServiceErrorFallsBackTo500(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, errors.New("unexpected"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestAsAPIErrorWrapsUnknown(t *testing.T) {
	apiErr := model.AsAPIError(errors.New("boom"))
	if apiErr.Code != model.ErrCodeUnknown {
		t.Errorf("code = %q, want UNKNOWN", apiErr.Code)
	}

	original := model.NewAuthFailedError()
	if got := model.AsAPIError(original); got != original {
		t.Error("AsAPIError should return the original APIError")
	}
}

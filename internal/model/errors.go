// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, permission, config, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInvalidSpotifyURL  = "INVALID_SPOTIFY_URL"
	ErrCodePermissionDenied   = "PERMISSION_DENIED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeEpisodeNotFound    = "EPISODE_NOT_FOUND"
	ErrCodeTransientFailure   = "TRANSIENT_FAILURE"
	ErrCodeConfigurationError = "CONFIGURATION_ERROR"
	ErrCodeAuthFailed         = "AUTH_FAILED"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeFeedNotDetected    = "FEED_NOT_DETECTED"
	ErrCodeInvalidURL         = "INVALID_URL"
	ErrCodeSSRFBlocked        = "SSRF_BLOCKED"
	ErrCodeFetchFailed        = "FETCH_FAILED"
	ErrCodeParseFailed        = "PARSE_FAILED"
	ErrCodeUnknown            = "UNKNOWN"
)

// NewValidationFailedError は入力検証エラーを生成する。
// fieldには対象フィールド名、reasonには失敗理由を指定する。
func NewValidationFailedError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります（%s）: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidSpotifyURLError はSpotify URL形式エラーを生成する。
func NewInvalidSpotifyURLError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSpotifyURL,
		Message:  "無効なSpotify URLです。open.spotify.com/episode/ を含むURLを指定してください。",
		Category: "validation",
		Action:   "Spotifyのエピソードページの共有URLを貼り付けてください。",
	}
}

// NewPermissionDeniedError は行レベルポリシー違反エラーを生成する。
// バックエンドのポリシー拒否を人間可読なヒント付きで再提示する。
func NewPermissionDeniedError(operation string) *APIError {
	return &APIError{
		Code:     ErrCodePermissionDenied,
		Message:  fmt.Sprintf("この操作（%s）は許可されていません。", operation),
		Category: "permission",
		Action:   "権限のあるアカウントでログインしているか確認してください。解決しない場合はバックエンドの行レベルポリシー設定を確認してください。",
	}
}

// NewNotFoundError は単一行取得で一致しなかった場合のエラーを生成する。
func NewNotFoundError(entity, id string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定された%sが見つかりません: %s", entity, id),
		Category: "validation",
		Action:   "IDを確認してください。",
	}
}

// NewEpisodeNotFoundError はエピソード未検出エラーを生成する。
func NewEpisodeNotFoundError(episodeID string) *APIError {
	return &APIError{
		Code:     ErrCodeEpisodeNotFound,
		Message:  fmt.Sprintf("指定されたエピソードが見つかりません: %s", episodeID),
		Category: "validation",
		Action:   "エピソードIDを確認してください。",
	}
}

// NewTransientFailureError はネットワーク/接続起因の一時的エラーを生成する。
func NewTransientFailureError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeTransientFailure,
		Message:  fmt.Sprintf("バックエンドへの接続に失敗しました: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewConfigurationError はバックエンド接続設定の欠落/プレースホルダエラーを生成する。
// 全データ操作に対して致命的であり、フォーム送信をブロックする。
func NewConfigurationError(missing string) *APIError {
	return &APIError{
		Code:     ErrCodeConfigurationError,
		Message:  fmt.Sprintf("バックエンド接続設定が正しくありません: %s", missing),
		Category: "config",
		Action:   "環境変数にバックエンドの接続情報を設定してください。プレースホルダ値のままでは接続できません。",
	}
}

// NewAuthFailedError は認証失敗（不正な資格情報）エラーを生成する。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewDuplicateEmailError は重複登録エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewFeedNotDetectedError はフィード未検出エラーを生成する。
func NewFeedNotDetectedError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedNotDetected,
		Message:  fmt.Sprintf("指定されたURLからRSS/Atomフィードを検出できませんでした: %s", url),
		Category: "validation",
		Action:   "番組のRSSフィードURLを直接入力するか、フィードが公開されているページのURLを確認してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewFetchFailedError はフェッチ失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("URLの取得に失敗しました: %s", reason),
		Category: "validation",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewParseFailedError はパース失敗エラーを生成する。
func NewParseFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeParseFailed,
		Message:  "フィードの解析に失敗しました。",
		Category: "validation",
		Action:   "有効なRSS/Atomフィードかどうか確認してください。",
	}
}

// NewUnknownError は分類不能なエラーを生成する。
func NewUnknownError() *APIError {
	return &APIError{
		Code:     ErrCodeUnknown,
		Message:  "予期しないエラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// AsAPIError はerrからAPIErrorを取り出す。APIErrorでない場合はUNKNOWNを返す。
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewUnknownError()
}

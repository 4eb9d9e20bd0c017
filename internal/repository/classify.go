package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/podclub/internal/model"
)

// pqErrCodeInsufficientPrivilege は行レベルポリシー違反のSQLSTATE。
const pqErrCodeInsufficientPrivilege = "42501"

// pqErrCodeUniqueViolation は一意性制約違反のSQLSTATE。
const pqErrCodeUniqueViolation = "23505"

// Classify はバックエンドから返されたエラーをエラー分類に対応付ける。
// 判定はここに集約し、呼び出し側でエラーメッセージの文字列照合を繰り返さない。
// operationはPermissionDeniedメッセージに含める操作名（例: "episodes.create"）。
//   - ポリシー違反（SQLSTATE 42501 または row-level security を含むメッセージ）
//     → PermissionDenied
//   - 接続・ネットワーク起因 → TransientFailure
//   - それ以外 → Unknown
func Classify(err error, operation string) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqErrCodeInsufficientPrivilege {
		return model.NewPermissionDeniedError(operation)
	}
	// ドライバ型を失ったラップ済みエラーにも対応するため、
	// ポリシー違反はメッセージ部分文字列でも判定する。
	if strings.Contains(err.Error(), "row-level security") {
		return model.NewPermissionDeniedError(operation)
	}

	if isTransient(err) {
		return model.NewTransientFailureError(err.Error())
	}

	return model.NewUnknownError()
}

// IsUniqueViolation は一意性制約違反かどうかを返す。
// 重複登録の検出（ユーザーのメールアドレス等）に使う。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqErrCodeUniqueViolation
}

// isTransient はネットワーク/接続起因の一時的エラーかどうかを判定する。
func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe")
}

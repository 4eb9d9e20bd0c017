// Package auth はメール/パスワード認証、セッション管理、ロール導出を提供する。
package auth

import (
	"strings"

	"github.com/hitoshi/podclub/internal/model"
)

// ResolveRole はメールアドレスと管理者許可リストからロールを導出する純関数。
// ロールはエンティティに保存せず、セッション解決のたびに計算する。
// 比較は大文字小文字を区別しない。
func ResolveRole(email string, allowList []string) model.Role {
	normalized := strings.ToLower(strings.TrimSpace(email))
	for _, allowed := range allowList {
		if normalized == strings.ToLower(allowed) {
			return model.RoleAdmin
		}
	}
	return model.RoleUser
}

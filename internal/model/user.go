// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限区分を表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
	// RoleAdmin は管理者。許可リストに含まれるメールアドレスのみ。
	RoleAdmin Role = "admin"
)

// User はサービス利用ユーザーを表す。
// Roleは保存されず、セッション解決時に許可リストから導出される。
type User struct {
	ID           string
	Email        string
	Username     string // 表示名メタデータ。空の場合はメールのローカル部を表示名とする
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName はコメント等に表示する名前を返す。
// usernameメタデータを優先し、未設定の場合はメールのローカル部を使う。
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	for i := 0; i < len(u.Email); i++ {
		if u.Email[i] == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

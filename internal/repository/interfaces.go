// Package repository はバックエンドの行CRUD契約へのアクセスを定義する。
// 緩く型付けされたワイヤ行はこの境界の内側でのみ扱い、
// ドメインエンティティに正規化してから外に渡す。
package repository

import (
	"context"

	"github.com/hitoshi/podclub/internal/model"
)

// Authz はバックエンドの行レベルポリシーに渡す認可コンテキスト。
// 書き込み系の操作でトランザクションローカルな接続設定として適用される。
type Authz struct {
	UserID  string // 認証済みユーザーのID。未認証は空
	IsAdmin bool   // 許可リスト判定の結果
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。メールアドレス重複は一意性違反として返る。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// UpdateUsername はusernameメタデータを更新する。空文字列は未設定に戻す。
	UpdateUsername(ctx context.Context, id, username string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// EpisodeRepository はエピソード行の永続化インターフェース。
type EpisodeRepository interface {
	// List は全エピソードをcreated_at降順で返す。
	List(ctx context.Context) ([]*model.Episode, error)

	// FindByID は指定IDのエピソードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Episode, error)

	// Create はエピソードを作成する。行レベルポリシー違反はエラーとして返る。
	Create(ctx context.Context, authz Authz, episode *model.Episode) error

	// Update はエピソードを更新する。
	// ポリシーにより対象行が見えない場合はfalseを返す。
	Update(ctx context.Context, authz Authz, episode *model.Episode) (bool, error)

	// Delete は指定IDのエピソードを削除する。
	// ポリシーにより対象行が見えない場合はfalseを返す。
	Delete(ctx context.Context, authz Authz, id string) (bool, error)
}

// ChallengeRepository はチャレンジ行の永続化インターフェース。
type ChallengeRepository interface {
	// List は全チャレンジをcreated_at降順で返す。
	List(ctx context.Context) ([]*model.Challenge, error)

	// FindLatest は最新の1件を返す。行が存在しない場合はnilを返す。
	// 「行なし」は正当な状態であり、エラーではない。
	FindLatest(ctx context.Context) (*model.Challenge, error)

	// FindByID は指定IDのチャレンジを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Challenge, error)

	// Create はチャレンジを作成する。
	Create(ctx context.Context, authz Authz, challenge *model.Challenge) error

	// Update はチャレンジを更新する。
	// ポリシーにより対象行が見えない場合はfalseを返す。
	Update(ctx context.Context, authz Authz, challenge *model.Challenge) (bool, error)

	// Delete は指定IDのチャレンジを削除する。
	// ポリシーにより対象行が見えない場合はfalseを返す。
	Delete(ctx context.Context, authz Authz, id string) (bool, error)
}

// CommentRepository はコメント行の永続化インターフェース。
type CommentRepository interface {
	// ListByEpisode はエピソードのコメント一覧を投稿者の表示名付きで
	// created_at降順で返す。
	ListByEpisode(ctx context.Context, episodeID string) ([]*model.Comment, error)

	// Create はコメントを作成し、バックエンドが採番したcreated_atを反映する。
	Create(ctx context.Context, authz Authz, comment *model.Comment) error

	// Delete は指定IDのコメントを削除する。
	// ポリシーにより対象行が見えない場合はfalseを返す。
	Delete(ctx context.Context, authz Authz, id string) (bool, error)

	// Exists は指定IDのコメント行が存在するかを返す。
	// 削除が0行だった場合のNotFound/PermissionDenied切り分けに使う。
	Exists(ctx context.Context, id string) (bool, error)
}

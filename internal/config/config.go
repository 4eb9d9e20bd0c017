// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/podclub/internal/model"
)

// 既知のプレースホルダ値。テンプレートからコピーしたまま未設定の状態を検出する。
const (
	placeholderDatabaseURL   = "YOUR_DATABASE_URL_HERE"
	placeholderSessionSecret = "YOUR_SESSION_SECRET_HERE"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	DatabaseURL string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Admin
	AdminEmails []string

	// Import
	ImportTimeout time.Duration
	ImportMaxSize int64

	// Rate Limit（req/min単位）
	RateLimitGeneral int
	RateLimitComment int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// BackendErr はバックエンド接続設定の検証結果。
	// 欠落またはプレースホルダ値の場合に設定され、全データ操作は
	// このエラーを返して縮退する。アプリケーション自体は起動する。
	BackendErr *model.APIError
}

// Load は環境変数からConfigを読み込む。
// バックエンド接続設定の不備はエラーにせずBackendErrとして保持する。
// 設定不備でもアプリケーションは起動し、データ操作のみが縮退する。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.BackendErr = validateBackend(cfg.DatabaseURL, cfg.SessionSecret)

	cfg.AdminEmails = parseAdminEmails(os.Getenv("ADMIN_EMAILS"))

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.ImportTimeout = getEnvDuration("IMPORT_TIMEOUT", 10*time.Second)
	cfg.ImportMaxSize = getEnvInt64("IMPORT_MAX_SIZE", 5242880)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitComment = getEnvInt("RATE_LIMIT_COMMENT", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// validateBackend はバックエンド接続に必須の2パラメータを検証する。
// 両方が存在し、DATABASE_URLがURLとしてパース可能で、
// いずれも既知のプレースホルダ値でないことを確認する。
// 不備がある場合はConfigurationErrorを返し、問題なければnilを返す。
func validateBackend(databaseURL, sessionSecret string) *model.APIError {
	var invalid []string

	switch {
	case databaseURL == "":
		invalid = append(invalid, "DATABASE_URL（未設定）")
	case databaseURL == placeholderDatabaseURL,
		strings.Contains(databaseURL, "placeholder"):
		invalid = append(invalid, "DATABASE_URL（プレースホルダ値）")
	default:
		if u, err := url.Parse(databaseURL); err != nil || u.Scheme == "" {
			invalid = append(invalid, "DATABASE_URL（URLとして不正）")
		}
	}

	switch {
	case sessionSecret == "":
		invalid = append(invalid, "SESSION_SECRET（未設定）")
	case sessionSecret == placeholderSessionSecret,
		strings.Contains(sessionSecret, "placeholder"):
		invalid = append(invalid, "SESSION_SECRET（プレースホルダ値）")
	}

	if len(invalid) > 0 {
		return model.NewConfigurationError(strings.Join(invalid, ", "))
	}
	return nil
}

// parseAdminEmails はカンマ区切りの管理者メールアドレス許可リストをパースする。
// 空白はトリムし、小文字に正規化する。空要素は除外する。
func parseAdminEmails(raw string) []string {
	if raw == "" {
		return nil
	}
	var emails []string
	for _, e := range strings.Split(raw, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			emails = append(emails, e)
		}
	}
	return emails
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

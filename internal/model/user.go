// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// ClaimedIDはOpenIDプロバイダーが保証したidentity文字列で、一意である。
type User struct {
	ID        string
	ClaimedID string
	CreatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
// 有効期限は作成時刻から固定のTTLで決まる。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はnow時点でセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionState はリクエストの認証状態を表す。
type SessionState int

const (
	// SessionNone はセッションCookieが存在しない状態。
	SessionNone SessionState = iota
	// SessionExpired はCookieはあるが、セッションが不明または期限切れの状態。
	SessionExpired
	// SessionActive は有効なセッションを持つ状態。
	SessionActive
)

// Viewer はリクエスト元の認証状態とユーザーIDを保持する。
// 匿名アクセスではUserIDは空文字列になる。
type Viewer struct {
	UserID string
	State  SessionState
}

// Authenticated は有効なセッションを持つかどうかを返す。
func (v Viewer) Authenticated() bool {
	return v.State == SessionActive && v.UserID != ""
}

// AnonymousViewer はセッションを持たない閲覧者を返す。
func AnonymousViewer() Viewer {
	return Viewer{State: SessionNone}
}

package model

import "time"

// Theme はThoughtの配色を表す。
type Theme struct {
	ID                    string
	Name                  string
	BackgroundTopColor    string
	BackgroundBottomColor string
	NodeOuterColor        string
	NodeInnerColor        string
	NodeTextColor         string
	ConnectionOuterColor  string
	ConnectionInnerColor  string
	ConnectionTextColor   string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Thought はマインドマップ1枚を表す。
// NodeとConnectionはthought_idで所有される。
type Thought struct {
	ID        string
	Name      string
	ThemeID   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasTheme はThemeが関連付けられているかどうかを返す。
func (t *Thought) HasTheme() bool {
	return t.ThemeID != nil && *t.ThemeID != ""
}

// Node はThought内の位置付きテキスト要素を表す。
// Textは空文字列を許容するがNULLにはならない。
type Node struct {
	ID        string
	ThoughtID string
	X         int
	Y         int
	Text      string
}

// SamePosition は座標とテキストが一致するかどうかを返す。
func (n *Node) SamePosition(x, y int, text string) bool {
	return n.X == x && n.Y == y && n.Text == text
}

// Connection は同一Thought内の2つのNodeを結ぶ辺を表す。
// 端点は順序付きペア（NodeOneID, NodeTwoID）として保持する。
type Connection struct {
	ID        string
	ThoughtID string
	NodeOneID string
	NodeTwoID string
}

// ThoughtDescription はThought一覧で返す概要。
type ThoughtDescription struct {
	ID   string
	Name string
}

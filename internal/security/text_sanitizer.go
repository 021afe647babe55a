// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はNodeのテキストやThought・Themeの名前を保存前に正規化する。
// 値はクライアントでプレーンテキストとして描画されるため、記号やマークアップに見える
// 文字列もそのまま保持し、保存先が受け付けない制御文字だけを取り除く。
package security

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TextSanitizer はユーザー入力テキストの正規化機能のインターフェースを定義する。
type TextSanitizer interface {
	// Clean はNFCに正規化し、タブと改行以外の制御文字を除いたテキストを返す。
	// 同じ値に2回適用しても結果は変わらない。
	Clean(text string) string
}

// textSanitizer はTextSanitizerの実装。
type textSanitizer struct{}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{}
}

// Clean はNFCに正規化し、制御文字を取り除いたテキストを返す。
func (s *textSanitizer) Clean(text string) string {
	if text == "" {
		return text
	}
	if strings.IndexFunc(text, isDroppedControl) >= 0 {
		text = strings.Map(func(r rune) rune {
			if isDroppedControl(r) {
				return -1
			}
			return r
		}, text)
	}
	return norm.NFC.String(text)
}

// isDroppedControl はC0制御文字（タブ・LF・CRを除く）とDELを判定する。
// PostgreSQLのTEXTはNUL文字を格納できない。
func isDroppedControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return r < 0x20 || r == 0x7f
}

// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// Messageはそのままレスポンスの errorMsg としてユーザーに表示される。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, permission, integrity, not_found, declined, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryPermission = "permission"
	CategoryIntegrity  = "integrity"
	CategoryNotFound   = "not_found"
	CategoryDeclined   = "declined"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeNotLoggedIn      = "NOT_LOGGED_IN"
	ErrCodeSessionExpired   = "SESSION_EXPIRED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeIntegrity        = "REFERENTIAL_INTEGRITY"
	ErrCodeThoughtNotFound  = "THOUGHT_NOT_FOUND"
	ErrCodeThoughtInvisible = "THOUGHT_INVISIBLE"
	ErrCodeThemeNotFound    = "THEME_NOT_FOUND"
	ErrCodeAlreadyPublic    = "ALREADY_PUBLIC"
	ErrCodeAlreadyPrivate   = "ALREADY_PRIVATE"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewValidationError は必須項目の欠落などの入力エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: CategoryValidation,
	}
}

// NewBadRequestError は識別パラメータの不足・過剰などの不正リクエストエラーを生成する。
func NewBadRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeBadRequest,
		Message:  message,
		Category: CategoryValidation,
	}
}

// NewNotLoggedInError はセッションCookieが無い場合のエラーを生成する。
func NewNotLoggedInError() *APIError {
	return &APIError{
		Code:     ErrCodeNotLoggedIn,
		Message:  "You are not logged in.",
		Category: CategoryAuth,
	}
}

// NewSessionExpiredError はセッションが不明または期限切れの場合のエラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "Your session has expired.",
		Category: CategoryAuth,
	}
}

// NewForbiddenError は権限不足のエラーを生成する。messageは操作ごとに異なる。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  message,
		Category: CategoryPermission,
	}
}

// NewIntegrityError はNode/Connectionの参照整合性エラーを生成する。
// 詳細はログにのみ残し、ユーザーには一般的なメッセージを返す。
func NewIntegrityError() *APIError {
	return &APIError{
		Code:     ErrCodeIntegrity,
		Message:  "The thought could not be saved.",
		Category: CategoryIntegrity,
	}
}

// NewThoughtNotFoundError はThoughtが存在しない場合のエラーを生成する。
func NewThoughtNotFoundError(identifier string) *APIError {
	return &APIError{
		Code:     ErrCodeThoughtNotFound,
		Message:  fmt.Sprintf("The thought %q does not exist.", identifier),
		Category: CategoryNotFound,
	}
}

// NewThoughtInvisibleError は閲覧権限の無い非公開Thoughtを要求された場合のエラーを生成する。
// 存在自体を秘匿するため、メッセージは未存在と区別しない。
func NewThoughtInvisibleError() *APIError {
	return &APIError{
		Code:     ErrCodeThoughtInvisible,
		Message:  "No such thought exists.",
		Category: CategoryPermission,
	}
}

// NewThemeNotFoundError はThemeが存在しない場合のエラーを生成する。
func NewThemeNotFoundError(themeID string) *APIError {
	return &APIError{
		Code:     ErrCodeThemeNotFound,
		Message:  fmt.Sprintf("The theme %q does not exist.", themeID),
		Category: CategoryNotFound,
	}
}

// NewAlreadyPublicError は既に公開済みのThoughtを公開しようとした場合のエラーを生成する。
func NewAlreadyPublicError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyPublic,
		Message:  "The thought is already public.",
		Category: CategoryDeclined,
	}
}

// NewAlreadyPrivateError は既に非公開のThoughtを非公開にしようとした場合のエラーを生成する。
func NewAlreadyPrivateError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyPrivate,
		Message:  "The thought is already private.",
		Category: CategoryDeclined,
	}
}

// NewInternalError は内部エラーの汎用レスポンスを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: CategorySystem,
	}
}

// HasCode はerrのチェーンに指定コードのAPIErrorが含まれるかどうかを返す。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

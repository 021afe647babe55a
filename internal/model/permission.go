package model

import (
	"fmt"
	"time"
)

// PermissionType はアクセス権の種類を表す。
type PermissionType string

const (
	PermitNone    PermissionType = "none"
	PermitView    PermissionType = "view"
	PermitModify  PermissionType = "modify"
	PermitAllView PermissionType = "all-view"
)

// Valid は定義済みの種類かどうかを返す。
func (t PermissionType) Valid() bool {
	switch t {
	case PermitNone, PermitView, PermitModify, PermitAllView:
		return true
	default:
		return false
	}
}

// SubjectKind はPermissionの対象種別。
type SubjectKind string

const (
	SubjectThought SubjectKind = "thought"
	SubjectTheme   SubjectKind = "theme"
)

// Subject はPermissionの対象（ThoughtまたはTheme）を表す。
type Subject struct {
	Kind SubjectKind
	ID   string
}

// ThoughtSubject はThoughtを対象とするSubjectを返す。
func ThoughtSubject(id string) Subject {
	return Subject{Kind: SubjectThought, ID: id}
}

// ThemeSubject はThemeを対象とするSubjectを返す。
func ThemeSubject(id string) Subject {
	return Subject{Kind: SubjectTheme, ID: id}
}

func (s Subject) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// Permission はThoughtまたはThemeに対するアクセス許可レコード。
// ThoughtIDとThemeIDはどちらか一方のみが設定される。
// UserIDがnilかつTypeがall-viewのレコードは対象を公開状態にする。
type Permission struct {
	ID        string
	Type      PermissionType
	ThoughtID *string
	ThemeID   *string
	UserID    *string
	CreatedAt time.Time
}

// NewPermission はsubjectに対するPermissionを生成する。userIDが空の場合はユーザー指定なしとなる。
func NewPermission(id string, subject Subject, userID string, typ PermissionType, now time.Time) *Permission {
	p := &Permission{
		ID:        id,
		Type:      typ,
		CreatedAt: now,
	}
	subjectID := subject.ID
	switch subject.Kind {
	case SubjectThought:
		p.ThoughtID = &subjectID
	case SubjectTheme:
		p.ThemeID = &subjectID
	}
	if userID != "" {
		uid := userID
		p.UserID = &uid
	}
	return p
}

// Subject はレコードの対象を返す。
func (p *Permission) Subject() Subject {
	if p.ThoughtID != nil {
		return ThoughtSubject(*p.ThoughtID)
	}
	if p.ThemeID != nil {
		return ThemeSubject(*p.ThemeID)
	}
	return Subject{}
}

// BelongsTo はuserIDに紐づくレコードかどうかを返す。
func (p *Permission) BelongsTo(userID string) bool {
	return p.UserID != nil && *p.UserID == userID
}

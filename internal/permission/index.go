// Package permission はThought/Themeに対するアクセス権の照会と変更を提供する。
package permission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/repository"
)

// Index はPermissionレコードに対する認可クエリを提供する。
// リポジトリがトランザクションに束縛されていれば、照会と変更もそのトランザクション内で行われる。
type Index struct {
	repo  repository.PermissionRepository
	newID func() string
	now   func() time.Time
}

// NewIndex はIndexを生成する。
func NewIndex(repo repository.PermissionRepository) *Index {
	return &Index{
		repo:  repo,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// IsPermitted はuserIDがsubjectに対してkindの権限を持つかを返す。
// kindがviewの場合、all-viewレコードがあればユーザーに関わらず許可する。
func (ix *Index) IsPermitted(ctx context.Context, subject model.Subject, userID string, kind model.PermissionType) (bool, error) {
	perms, err := ix.repo.ListBySubject(ctx, subject)
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	for _, p := range perms {
		if userID != "" && p.BelongsTo(userID) && p.Type == kind {
			return true, nil
		}
		if kind == model.PermitView && p.Type == model.PermitAllView {
			return true, nil
		}
	}
	return false, nil
}

// CanView はsubjectが公開されているか、userIDがviewまたはmodify権限を持つかを返す。
func (ix *Index) CanView(ctx context.Context, subject model.Subject, userID string) (bool, error) {
	perms, err := ix.repo.ListBySubject(ctx, subject)
	if err != nil {
		return false, fmt.Errorf("failed to check view permission: %w", err)
	}
	for _, p := range perms {
		if p.Type == model.PermitAllView {
			return true, nil
		}
		if userID != "" && p.BelongsTo(userID) && (p.Type == model.PermitView || p.Type == model.PermitModify) {
			return true, nil
		}
	}
	return false, nil
}

// IsPublic はsubjectにall-viewレコードが存在するかを返す。
func (ix *Index) IsPublic(ctx context.Context, subject model.Subject) (bool, error) {
	perms, err := ix.repo.ListBySubject(ctx, subject)
	if err != nil {
		return false, fmt.Errorf("failed to check public state: %w", err)
	}
	return len(allView(perms)) > 0, nil
}

// PermissionType はuserIDのsubjectに対する権限種別を返す。
// ユーザー固有のレコードを優先し、無ければall-viewレコードにフォールバックする。
// 同じ条件のレコードが複数ある場合は最も古いものを採用する。
// どちらも無い場合は (PermitNone, false) を返す。
func (ix *Index) PermissionType(ctx context.Context, subject model.Subject, userID string) (model.PermissionType, bool, error) {
	perms, err := ix.repo.ListBySubject(ctx, subject)
	if err != nil {
		return model.PermitNone, false, fmt.Errorf("failed to resolve permission type: %w", err)
	}

	// ListBySubjectはcreated_at昇順
	if userID != "" {
		for _, p := range perms {
			if p.BelongsTo(userID) {
				return p.Type, true, nil
			}
		}
	}
	if public := allView(perms); len(public) > 0 {
		return public[0].Type, true, nil
	}
	return model.PermitNone, false, nil
}

// SetPublic はsubjectにall-viewレコードを追加する。
// 既に公開されている場合はレコードを追加せずALREADY_PUBLICエラーを返す。
func (ix *Index) SetPublic(ctx context.Context, subject model.Subject) error {
	public, err := ix.IsPublic(ctx, subject)
	if err != nil {
		return err
	}
	if public {
		return model.NewAlreadyPublicError()
	}

	p := model.NewPermission(ix.newID(), subject, "", model.PermitAllView, ix.now())
	if err := ix.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("failed to set %s public: %w", subject, err)
	}
	return nil
}

// SetPrivate はsubjectの全てのall-viewレコードを削除する。
// 既に非公開の場合はALREADY_PRIVATEエラーを返す。
func (ix *Index) SetPrivate(ctx context.Context, subject model.Subject) error {
	perms, err := ix.repo.ListBySubject(ctx, subject)
	if err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}
	public := allView(perms)
	if len(public) == 0 {
		return model.NewAlreadyPrivateError()
	}

	ids := make([]string, 0, len(public))
	for _, p := range public {
		ids = append(ids, p.ID)
	}
	if err := ix.repo.DeleteByIDs(ctx, ids); err != nil {
		return fmt.Errorf("failed to set %s private: %w", subject, err)
	}
	return nil
}

// PermissionsFor はsubjectの全Permissionを返す。
func (ix *Index) PermissionsFor(ctx context.Context, subject model.Subject) ([]*model.Permission, error) {
	perms, err := ix.repo.ListBySubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

// Grant はsubjectに対するuserIDのPermissionを1件追加する。
func (ix *Index) Grant(ctx context.Context, subject model.Subject, userID string, typ model.PermissionType) (*model.Permission, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("invalid permission type: %q", typ)
	}
	p := model.NewPermission(ix.newID(), subject, userID, typ, ix.now())
	if err := ix.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to grant %s on %s: %w", typ, subject, err)
	}
	return p, nil
}

// RevokeAll はsubjectの全Permissionを削除する。
func (ix *Index) RevokeAll(ctx context.Context, subject model.Subject) error {
	if err := ix.repo.DeleteBySubject(ctx, subject); err != nil {
		return fmt.Errorf("failed to revoke permissions: %w", err)
	}
	return nil
}

func allView(perms []*model.Permission) []*model.Permission {
	var out []*model.Permission
	for _, p := range perms {
		if p.Type == model.PermitAllView {
			out = append(out, p)
		}
	}
	return out
}

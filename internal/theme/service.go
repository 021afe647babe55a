// Package theme はThemeの作成・更新・削除を提供する。
package theme

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/permission"
	"github.com/hitoshi/think/internal/repository"
)

// Input はクライアントが送信したTheme。IDが空なら新規作成。
type Input struct {
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
}

// apply はInputの名前と配色をthemeに反映する。
func (in Input) apply(theme *model.Theme) {
	theme.Name = in.Name
	theme.BackgroundTopColor = in.BackgroundTopColor
	theme.BackgroundBottomColor = in.BackgroundBottomColor
	theme.NodeOuterColor = in.NodeOuterColor
	theme.NodeInnerColor = in.NodeInnerColor
	theme.NodeTextColor = in.NodeTextColor
	theme.ConnectionOuterColor = in.ConnectionOuterColor
	theme.ConnectionInnerColor = in.ConnectionInnerColor
	theme.ConnectionTextColor = in.ConnectionTextColor
}

// matches はInputの名前と配色がthemeと一致するかどうかを返す。
func (in Input) matches(theme *model.Theme) bool {
	applied := *theme
	in.apply(&applied)
	return applied == *theme
}

// isReference はIDだけを指定したInputかどうかを返す。
func (in Input) isReference() bool {
	return in == Input{ID: in.ID}
}

// Service はTheme操作のサービス。
type Service struct {
	store repository.Store
	newID func() string
	now   func() time.Time
}

// NewService はServiceを生成する。
func NewService(store repository.Store) *Service {
	return &Service{
		store: store,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Upsert はThemeを作成または更新し、そのIDを返す。
func (s *Service) Upsert(ctx context.Context, in Input, userID string) (string, error) {
	var id string
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		var err error
		id, err = s.UpsertTx(ctx, r, in, userID)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpsertTx はトランザクション内でThemeを作成または更新する。
// 作成時は作成者にmodify権限を付与する。更新にはmodify権限が必要。
// modify権限が無くても閲覧できるThemeは、IDだけの指定か保存済みの内容と同じ指定であれば
// 変更せずにそのIDを返す。公開Themeを自分のThoughtに設定するときに使う。
func (s *Service) UpsertTx(ctx context.Context, r repository.Repositories, in Input, userID string) (string, error) {
	ix := permission.NewIndex(r.Permissions)

	if in.ID == "" {
		now := s.now()
		theme := &model.Theme{ID: s.newID(), CreatedAt: now, UpdatedAt: now}
		in.apply(theme)
		if err := r.Themes.Create(ctx, theme); err != nil {
			return "", err
		}
		if _, err := ix.Grant(ctx, model.ThemeSubject(theme.ID), userID, model.PermitModify); err != nil {
			return "", err
		}
		slog.Info("theme created", slog.String("theme_id", theme.ID), slog.String("user_id", userID))
		return theme.ID, nil
	}

	theme, err := r.Themes.FindByID(ctx, in.ID)
	if err != nil {
		return "", err
	}
	if theme == nil {
		return "", model.NewThemeNotFoundError(in.ID)
	}

	ok, err := ix.IsPermitted(ctx, model.ThemeSubject(theme.ID), userID, model.PermitModify)
	if err != nil {
		return "", err
	}
	if !ok {
		if !in.isReference() && !in.matches(theme) {
			return "", model.NewForbiddenError("You can not modify this theme.")
		}
		visible, err := ix.CanView(ctx, model.ThemeSubject(theme.ID), userID)
		if err != nil {
			return "", err
		}
		if !visible {
			return "", model.NewForbiddenError("You can not modify this theme.")
		}
		return theme.ID, nil
	}

	in.apply(theme)
	theme.UpdatedAt = s.now()
	if err := r.Themes.Update(ctx, theme); err != nil {
		return "", err
	}
	return theme.ID, nil
}

// Delete はmodify権限を確認した上でThemeを削除する。
func (s *Service) Delete(ctx context.Context, themeID, userID string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		theme, err := r.Themes.FindByID(ctx, themeID)
		if err != nil {
			return err
		}
		if theme == nil {
			return model.NewThemeNotFoundError(themeID)
		}

		ok, err := permission.NewIndex(r.Permissions).IsPermitted(ctx, model.ThemeSubject(themeID), userID, model.PermitModify)
		if err != nil {
			return err
		}
		if !ok {
			return model.NewForbiddenError("You can not delete this theme.")
		}

		return s.DeleteTx(ctx, r, themeID)
	})
}

// DeleteTx はトランザクション内でThemeを削除する。権限は確認しない。
// 参照している全ThoughtからThemeを外し、ThemeのPermissionを削除してから行を削除する。
func (s *Service) DeleteTx(ctx context.Context, r repository.Repositories, themeID string) error {
	thoughts, err := r.Thoughts.ListByTheme(ctx, themeID)
	if err != nil {
		return err
	}
	now := s.now()
	for _, t := range thoughts {
		t.ThemeID = nil
		t.UpdatedAt = now
		if err := r.Thoughts.Update(ctx, t); err != nil {
			return err
		}
	}

	if err := permission.NewIndex(r.Permissions).RevokeAll(ctx, model.ThemeSubject(themeID)); err != nil {
		return err
	}
	if err := r.Themes.Delete(ctx, themeID); err != nil {
		return err
	}

	slog.Info("theme deleted", slog.String("theme_id", themeID), slog.Int("detached_thoughts", len(thoughts)))
	return nil
}

package thought

import (
	"context"

	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/permission"
)

// View はGET /thought で返すThoughtの内容。
type View struct {
	Thought     *model.Thought
	Theme       *model.Theme
	Nodes       []*model.Node
	Connections []*model.Connection
	Modifiable  bool
	IsPublic    bool
}

// Get はidで指定されたThoughtをviewerの権限で取得する。
//
// 公開されていないThoughtは、未ログインなら NOT_LOGGED_IN、セッション切れなら SESSION_EXPIRED、
// 閲覧権限が無ければ THOUGHT_INVISIBLE を返す。存在しないThoughtは閲覧権限が無いものと同じ扱い。
func (s *Service) Get(ctx context.Context, id Identifier, viewer model.Viewer) (*View, error) {
	r := s.store.Repositories()

	t, err := id.Resolve(ctx, r)
	if err != nil {
		return nil, err
	}

	ix := permission.NewIndex(r.Permissions)
	public := false
	if t != nil {
		if public, err = ix.IsPublic(ctx, model.ThoughtSubject(t.ID)); err != nil {
			return nil, err
		}
	}
	if !public {
		switch viewer.State {
		case model.SessionNone:
			return nil, model.NewNotLoggedInError()
		case model.SessionExpired:
			return nil, model.NewSessionExpiredError()
		}
		if t == nil {
			return nil, model.NewThoughtInvisibleError()
		}
		ok, err := ix.CanView(ctx, model.ThoughtSubject(t.ID), viewer.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, model.NewThoughtInvisibleError()
		}
	}

	view := &View{Thought: t, IsPublic: public}
	if t.HasTheme() {
		if view.Theme, err = r.Themes.FindByID(ctx, *t.ThemeID); err != nil {
			return nil, err
		}
	}
	if view.Nodes, err = r.Nodes.ListByThought(ctx, t.ID); err != nil {
		return nil, err
	}
	if view.Connections, err = r.Connections.ListByThought(ctx, t.ID); err != nil {
		return nil, err
	}

	typ, _, err := ix.PermissionType(ctx, model.ThoughtSubject(t.ID), viewer.UserID)
	if err != nil {
		return nil, err
	}
	view.Modifiable = typ == model.PermitModify
	return view, nil
}

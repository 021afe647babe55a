package handler

import (
	"context"

	"github.com/hitoshi/think/internal/graph"
	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/theme"
	"github.com/hitoshi/think/internal/thought"
)

// ThoughtServiceAdapter は thought.Service を ThoughtServiceInterface に適合させるアダプタ。
type ThoughtServiceAdapter struct {
	svc *thought.Service
}

// NewThoughtServiceAdapter はThoughtServiceAdapterを生成する。
func NewThoughtServiceAdapter(svc *thought.Service) *ThoughtServiceAdapter {
	return &ThoughtServiceAdapter{svc: svc}
}

// GetByID はIDで指定されたThoughtをhandlerレスポンス型で返す。
func (a *ThoughtServiceAdapter) GetByID(ctx context.Context, id string, viewer model.Viewer) (*thoughtResponse, error) {
	return a.get(ctx, thought.ByID(id), viewer)
}

// GetByName は名前で指定されたThoughtをhandlerレスポンス型で返す。
func (a *ThoughtServiceAdapter) GetByName(ctx context.Context, name string, viewer model.Viewer) (*thoughtResponse, error) {
	return a.get(ctx, thought.ByName(name), viewer)
}

func (a *ThoughtServiceAdapter) get(ctx context.Context, id thought.Identifier, viewer model.Viewer) (*thoughtResponse, error) {
	view, err := a.svc.Get(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	return toThoughtResponse(view), nil
}

// DescribeForUser はユーザーが閲覧できるThoughtの一覧を返す。
func (a *ThoughtServiceAdapter) DescribeForUser(ctx context.Context, userID string) ([]thoughtDescriptionResponse, error) {
	descs, err := a.svc.DescribeForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	results := make([]thoughtDescriptionResponse, len(descs))
	for i, d := range descs {
		results[i] = thoughtDescriptionResponse{ID: d.ID, Name: d.Name}
	}
	return results, nil
}

// Save はペイロードをサービスの入力に変換して保存する。
func (a *ThoughtServiceAdapter) Save(ctx context.Context, p *thoughtPayload, userID string) (string, error) {
	return a.svc.Save(ctx, toThoughtInput(p), userID)
}

// Delete はThoughtを削除する。
func (a *ThoughtServiceAdapter) Delete(ctx context.Context, thoughtID, userID string) error {
	return a.svc.Delete(ctx, thoughtID, userID)
}

// SetVisibility はThoughtの公開状態を切り替える。
func (a *ThoughtServiceAdapter) SetVisibility(ctx context.Context, thoughtID, userID string, public bool) error {
	return a.svc.SetVisibility(ctx, thoughtID, userID, public)
}

// ThemeServiceAdapter は theme.Service を ThemeServiceInterface に適合させるアダプタ。
type ThemeServiceAdapter struct {
	svc *theme.Service
}

// NewThemeServiceAdapter はThemeServiceAdapterを生成する。
func NewThemeServiceAdapter(svc *theme.Service) *ThemeServiceAdapter {
	return &ThemeServiceAdapter{svc: svc}
}

// Upsert はThemeを作成または更新する。
func (a *ThemeServiceAdapter) Upsert(ctx context.Context, p *themePayload, userID string) (string, error) {
	return a.svc.Upsert(ctx, toThemeInput(p), userID)
}

// Delete はThemeを削除する。
func (a *ThemeServiceAdapter) Delete(ctx context.Context, themeID, userID string) error {
	return a.svc.Delete(ctx, themeID, userID)
}

func toThoughtInput(p *thoughtPayload) thought.Input {
	in := thought.Input{
		ID:   p.ID,
		Name: p.Name,
	}
	if p.Theme != nil {
		t := toThemeInput(p.Theme)
		in.Theme = &t
	}

	in.Graph.Nodes = make([]graph.SubmittedNode, len(p.Nodes))
	for i, n := range p.Nodes {
		in.Graph.Nodes[i] = graph.SubmittedNode{
			ID:       n.ID,
			Position: graph.Position{X: int(n.X), Y: int(n.Y), Text: n.Text},
		}
	}

	in.Graph.Connections = make([]graph.SubmittedConnection, len(p.Connections))
	for i, pair := range p.Connections {
		in.Graph.Connections[i] = graph.SubmittedConnection{
			One: toEndpoint(pair[0]),
			Two: toEndpoint(pair[1]),
		}
	}
	return in
}

func toEndpoint(e endpointPayload) graph.Endpoint {
	if e.ID != "" {
		return graph.Endpoint{ID: e.ID}
	}
	return graph.Endpoint{Pos: &graph.Position{X: int(e.X), Y: int(e.Y), Text: e.Text}}
}

func toThemeInput(p *themePayload) theme.Input {
	return theme.Input{
		ID:                    p.ID,
		Name:                  p.Name,
		BackgroundTopColor:    p.BackgroundTopColor,
		BackgroundBottomColor: p.BackgroundBottomColor,
		NodeOuterColor:        p.NodeOuterColor,
		NodeInnerColor:        p.NodeInnerColor,
		NodeTextColor:         p.NodeTextColor,
		ConnectionOuterColor:  p.ConnectionOuterColor,
		ConnectionInnerColor:  p.ConnectionInnerColor,
		ConnectionTextColor:   p.ConnectionTextColor,
	}
}

func toThoughtResponse(v *thought.View) *thoughtResponse {
	resp := &thoughtResponse{
		ID:          v.Thought.ID,
		Name:        v.Thought.Name,
		Nodes:       make([]nodeResponse, len(v.Nodes)),
		Connections: make([]connectionResponse, len(v.Connections)),
		Modifiable:  v.Modifiable,
		IsPublic:    v.IsPublic,
	}
	if v.Theme != nil {
		resp.Theme = toThemeResponse(v.Theme)
	}
	for i, n := range v.Nodes {
		resp.Nodes[i] = nodeResponse{ID: n.ID, X: n.X, Y: n.Y, Text: n.Text}
	}
	for i, c := range v.Connections {
		resp.Connections[i] = connectionResponse{NodeOne: c.NodeOneID, NodeTwo: c.NodeTwoID}
	}
	return resp
}

func toThemeResponse(t *model.Theme) *themeResponse {
	return &themeResponse{
		ID:                    t.ID,
		Name:                  t.Name,
		BackgroundTopColor:    t.BackgroundTopColor,
		BackgroundBottomColor: t.BackgroundBottomColor,
		NodeOuterColor:        t.NodeOuterColor,
		NodeInnerColor:        t.NodeInnerColor,
		NodeTextColor:         t.NodeTextColor,
		ConnectionOuterColor:  t.ConnectionOuterColor,
		ConnectionInnerColor:  t.ConnectionInnerColor,
		ConnectionTextColor:   t.ConnectionTextColor,
	}
}

package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/repository/memstore"
	"github.com/hitoshi/think/internal/theme"
	"github.com/hitoshi/think/internal/thought"
)

func TestTutorial_Parses(t *testing.T) {
	doc, err := Tutorial()
	require.NoError(t, err)

	require.Len(t, doc.Themes, 1)
	assert.Equal(t, "Think - Original", doc.Themes[0].Name)
	assert.Equal(t, "#abccff", doc.Themes[0].BackgroundTopColor)

	require.Len(t, doc.Thoughts, 1)
	tutorial := doc.Thoughts[0]
	assert.Equal(t, "Tutorial", tutorial.Name)
	assert.Equal(t, "original", tutorial.Theme)
	assert.True(t, tutorial.Public)
	assert.Len(t, tutorial.Nodes, 13)
	assert.Len(t, tutorial.Connections, 19)
	assert.Equal(t, [2]int{12, 1}, tutorial.Connections[6])
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"不正なYAML", "thoughts: [unclosed"},
		{"名前のないThought", "thoughts:\n  - nodes: []\n"},
		{"範囲外のNode", "thoughts:\n  - name: a\n    nodes:\n      - {x: 1, y: 1, text: a}\n    connections:\n      - [0, 1]\n"},
		{"未定義のTheme", "thoughts:\n  - name: a\n    theme: missing\n"},
		{"Themeキーの重複", "themes:\n  - {key: a, name: x}\n  - {key: a, name: y}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRunner_SeedsTutorialOnce(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	doc, err := Tutorial()
	require.NoError(t, err)

	runner := NewRunner(store)

	seeded, err := runner.Run(ctx, doc)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = runner.Run(ctx, doc)
	require.NoError(t, err)
	assert.False(t, seeded, "2回目は投入しない")

	r := store.Repositories()
	tutorial, err := r.Thoughts.FindByName(ctx, "Tutorial")
	require.NoError(t, err)
	require.NotNil(t, tutorial)

	nodes, err := r.Nodes.ListByThought(ctx, tutorial.ID)
	require.NoError(t, err)
	assert.Len(t, nodes, 13)
	conns, err := r.Connections.ListByThought(ctx, tutorial.ID)
	require.NoError(t, err)
	assert.Len(t, conns, 19)

	// 接続は投入順のNodeを指す
	assert.Equal(t, nodes[0].ID, conns[0].NodeOneID)
	assert.Equal(t, nodes[1].ID, conns[0].NodeTwoID)

	initialised, err := r.ServerState.IsInitialised(ctx)
	require.NoError(t, err)
	assert.True(t, initialised)
}

func TestRunner_TutorialIsPublic(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	doc, err := Tutorial()
	require.NoError(t, err)

	_, err = NewRunner(store).Run(ctx, doc)
	require.NoError(t, err)

	svc := thought.NewService(store, theme.NewService(store))
	view, err := svc.Get(ctx, thought.ByName("Tutorial"), model.AnonymousViewer())
	require.NoError(t, err)
	assert.True(t, view.IsPublic)
	assert.False(t, view.Modifiable)
	assert.Equal(t, "Drag a node to move it", view.Nodes[0].Text)
}

func TestRunner_SeededThemeCanBeAttached(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	doc, err := Tutorial()
	require.NoError(t, err)

	_, err = NewRunner(store).Run(ctx, doc)
	require.NoError(t, err)

	svc := thought.NewService(store, theme.NewService(store))
	tutorial, err := svc.Get(ctx, thought.ByName("Tutorial"), model.AnonymousViewer())
	require.NoError(t, err)
	require.NotNil(t, tutorial.Theme)
	seeded := tutorial.Theme

	// 閲覧できるThemeはIDだけで自分のThoughtに設定できる
	id, err := svc.Create(ctx, thought.Input{Name: "mine", Theme: &theme.Input{ID: seeded.ID}}, "alice")
	require.NoError(t, err)

	view, err := svc.Get(ctx, thought.ByID(id), model.Viewer{UserID: "alice", State: model.SessionActive})
	require.NoError(t, err)
	require.NotNil(t, view.Theme)
	assert.Equal(t, seeded.ID, view.Theme.ID)
	assert.Equal(t, "Think - Original", view.Theme.Name)

	// 内容の変更はmodify権限が無いため拒否される
	_, err = svc.Save(ctx, thought.Input{ID: id, Name: "mine", Theme: &theme.Input{ID: seeded.ID, Name: "hijacked"}}, "alice")
	assert.True(t, model.HasCode(err, model.ErrCodeForbidden))

	th, err := store.Repositories().Themes.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "Think - Original", th.Name)

	// 所有していないThemeはThoughtを削除しても残る
	require.NoError(t, svc.Delete(ctx, id, "alice"))
	th, err = store.Repositories().Themes.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.NotNil(t, th)
}

func TestRunner_ThemeReference(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	doc, err := Parse([]byte(`
themes:
  - {key: dark, name: Dark, public: true}
thoughts:
  - name: Styled
    theme: dark
    nodes:
      - {x: 0, y: 0, text: a}
`))
	require.NoError(t, err)

	_, err = NewRunner(store).Run(ctx, doc)
	require.NoError(t, err)

	r := store.Repositories()
	styled, err := r.Thoughts.FindByName(ctx, "Styled")
	require.NoError(t, err)
	require.True(t, styled.HasTheme())

	th, err := r.Themes.FindByID(ctx, *styled.ThemeID)
	require.NoError(t, err)
	assert.Equal(t, "Dark", th.Name)

	perms, err := r.Permissions.ListBySubject(ctx, model.ThemeSubject(th.ID))
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, model.PermitAllView, perms[0].Type)

	// 非公開のThoughtには権限レコードを作らない
	perms, err = r.Permissions.ListBySubject(ctx, model.ThoughtSubject(styled.ID))
	require.NoError(t, err)
	assert.Empty(t, perms)
}

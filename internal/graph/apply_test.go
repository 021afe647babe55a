package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/repository"
	"github.com/hitoshi/think/internal/repository/memstore"
)

func newTestRepos(t *testing.T) repository.Repositories {
	t.Helper()
	repos := memstore.New().Repositories()
	now := time.Now()
	require.NoError(t, repos.Thoughts.Create(context.Background(), &model.Thought{ID: "t", Name: "t", CreatedAt: now, UpdatedAt: now}))
	return repos
}

func seedGraph(t *testing.T, repos repository.Repositories, g Graph) {
	t.Helper()
	ctx := context.Background()
	for _, n := range g.Nodes {
		require.NoError(t, repos.Nodes.Create(ctx, n))
	}
	for _, c := range g.Connections {
		require.NoError(t, repos.Connections.Create(ctx, c))
	}
}

func TestApply_CreateThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	sub := Submission{
		Nodes: []SubmittedNode{
			{Position: Position{X: 10, Y: 20, Text: "root"}},
			{Position: Position{X: 30, Y: 40, Text: ""}},
		},
		Connections: []SubmittedConnection{
			{One: Endpoint{Pos: pos(10, 20, "root")}, Two: Endpoint{Pos: pos(30, 40, "")}},
		},
	}
	cs, err := PlanCreate("t", sub, sequentialIDs())
	require.NoError(t, err)
	require.NoError(t, Apply(ctx, repos.Nodes, repos.Connections, cs))

	g, err := Load(ctx, repos.Nodes, repos.Connections, "t")
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "root", g.Nodes[0].Text)
	assert.Equal(t, 30, g.Nodes[1].X)
	require.Len(t, g.Connections, 1)
	assert.Equal(t, g.Nodes[0].ID, g.Connections[0].NodeOneID)
	assert.Equal(t, g.Nodes[1].ID, g.Connections[0].NodeTwoID)
}

func TestApply_DeletesConnectionsBeforeNodes(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	seedGraph(t, repos, persistedAB())

	cs, err := Plan(persistedAB(), Submission{}, sequentialIDs())
	require.NoError(t, err)

	// memstoreは参照中のNode削除を拒否するため、順序が誤っていればエラーになる
	require.NoError(t, Apply(ctx, repos.Nodes, repos.Connections, cs))

	g, err := Load(ctx, repos.Nodes, repos.Connections, "t")
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Connections)
}

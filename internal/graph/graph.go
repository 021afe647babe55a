// Package graph はThoughtのNode/Connectionグラフについて、
// クライアントが送信したグラフと永続化済みグラフの差分を計算し、適用する。
package graph

import (
	"context"
	"fmt"

	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/repository"
)

// Position はNodeの座標とテキストの組。IDを持たないNodeはこの組で識別される。
type Position struct {
	X    int
	Y    int
	Text string
}

// SubmittedNode はクライアントが送信したNode。IDが空なら新規Node。
type SubmittedNode struct {
	ID string
	Position
}

// Endpoint はConnectionの端点の指定。IDまたはPosのいずれかで送信されたNodeを指す。
type Endpoint struct {
	ID  string
	Pos *Position
}

// HasID はIDで指定された端点かどうかを返す。
func (e Endpoint) HasID() bool {
	return e.ID != ""
}

func (e Endpoint) String() string {
	if e.HasID() {
		return "id:" + e.ID
	}
	if e.Pos != nil {
		return fmt.Sprintf("(%d,%d,%q)", e.Pos.X, e.Pos.Y, e.Pos.Text)
	}
	return "(empty)"
}

// SubmittedConnection はクライアントが送信したConnection。端点は順序付き。
type SubmittedConnection struct {
	One Endpoint
	Two Endpoint
}

// Submission はクライアントが意図するグラフ全体。
type Submission struct {
	Nodes       []SubmittedNode
	Connections []SubmittedConnection
}

// Graph は永続化済みのグラフ。
type Graph struct {
	ThoughtID   string
	Nodes       []*model.Node
	Connections []*model.Connection
}

// Load はThoughtの永続化済みグラフを読み込む。
func Load(ctx context.Context, nodes repository.NodeRepository, conns repository.ConnectionRepository, thoughtID string) (Graph, error) {
	ns, err := nodes.ListByThought(ctx, thoughtID)
	if err != nil {
		return Graph{}, fmt.Errorf("failed to load nodes: %w", err)
	}
	cs, err := conns.ListByThought(ctx, thoughtID)
	if err != nil {
		return Graph{}, fmt.Errorf("failed to load connections: %w", err)
	}
	return Graph{ThoughtID: thoughtID, Nodes: ns, Connections: cs}, nil
}

// IntegrityError は送信グラフが参照整合性を満たさないことを表す。
// 呼び出し側は操作全体を中止する。
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return "referential integrity: " + e.Reason
}

func integrityErrorf(format string, args ...interface{}) error {
	return &IntegrityError{Reason: fmt.Sprintf(format, args...)}
}

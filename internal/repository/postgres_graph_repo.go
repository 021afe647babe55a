package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/think/internal/model"
	"github.com/lib/pq"
)

// PostgresNodeRepo はPostgreSQLを使用したNodeリポジトリ。
type PostgresNodeRepo struct {
	q Querier
}

// NewPostgresNodeRepo はPostgresNodeRepoを生成する。
func NewPostgresNodeRepo(q Querier) *PostgresNodeRepo {
	return &PostgresNodeRepo{q: q}
}

// ListByThought はThoughtの全Nodeを作成順で返す。
func (r *PostgresNodeRepo) ListByThought(ctx context.Context, thoughtID string) ([]*model.Node, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, thought_id, x, y, text FROM nodes WHERE thought_id = $1 ORDER BY seq ASC`,
		thoughtID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []*model.Node{}
	for rows.Next() {
		n := &model.Node{}
		if err := rows.Scan(&n.ID, &n.ThoughtID, &n.X, &n.Y, &n.Text); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes: %w", err)
	}
	return nodes, nil
}

// Create はNodeを作成する。
func (r *PostgresNodeRepo) Create(ctx context.Context, node *model.Node) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO nodes (id, thought_id, x, y, text) VALUES ($1, $2, $3, $4, $5)`,
		node.ID, node.ThoughtID, node.X, node.Y, node.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}
	return nil
}

// Update はNodeの座標とテキストを更新する。
func (r *PostgresNodeRepo) Update(ctx context.Context, node *model.Node) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE nodes SET x = $1, y = $2, text = $3 WHERE id = $4 AND thought_id = $5`,
		node.X, node.Y, node.Text, node.ID, node.ThoughtID,
	)
	if err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}
	return expectOneRow(result, "node", node.ID)
}

// DeleteByIDs はThought内の指定Nodeを削除する。
func (r *PostgresNodeRepo) DeleteByIDs(ctx context.Context, thoughtID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM nodes WHERE thought_id = $1 AND id = ANY($2)`,
		thoughtID, pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to delete nodes: %w", err)
	}
	return nil
}

// DeleteByThought はThoughtの全Nodeを削除する。
func (r *PostgresNodeRepo) DeleteByThought(ctx context.Context, thoughtID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM nodes WHERE thought_id = $1`, thoughtID); err != nil {
		return fmt.Errorf("failed to delete nodes of thought: %w", err)
	}
	return nil
}

// PostgresConnectionRepo はPostgreSQLを使用したConnectionリポジトリ。
type PostgresConnectionRepo struct {
	q Querier
}

// NewPostgresConnectionRepo はPostgresConnectionRepoを生成する。
func NewPostgresConnectionRepo(q Querier) *PostgresConnectionRepo {
	return &PostgresConnectionRepo{q: q}
}

// ListByThought はThoughtの全Connectionを作成順で返す。
func (r *PostgresConnectionRepo) ListByThought(ctx context.Context, thoughtID string) ([]*model.Connection, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, thought_id, node_one_id, node_two_id FROM connections WHERE thought_id = $1 ORDER BY seq ASC`,
		thoughtID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	conns := []*model.Connection{}
	for rows.Next() {
		c := &model.Connection{}
		if err := rows.Scan(&c.ID, &c.ThoughtID, &c.NodeOneID, &c.NodeTwoID); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}
	return conns, nil
}

// Create はConnectionを作成する。
func (r *PostgresConnectionRepo) Create(ctx context.Context, conn *model.Connection) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO connections (id, thought_id, node_one_id, node_two_id) VALUES ($1, $2, $3, $4)`,
		conn.ID, conn.ThoughtID, conn.NodeOneID, conn.NodeTwoID,
	)
	if err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}
	return nil
}

// DeleteByIDs はThought内の指定Connectionを削除する。
func (r *PostgresConnectionRepo) DeleteByIDs(ctx context.Context, thoughtID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM connections WHERE thought_id = $1 AND id = ANY($2)`,
		thoughtID, pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to delete connections: %w", err)
	}
	return nil
}

// DeleteByThought はThoughtの全Connectionを削除する。
func (r *PostgresConnectionRepo) DeleteByThought(ctx context.Context, thoughtID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM connections WHERE thought_id = $1`, thoughtID); err != nil {
		return fmt.Errorf("failed to delete connections of thought: %w", err)
	}
	return nil
}

// compile-time interface check
var (
	_ NodeRepository       = (*PostgresNodeRepo)(nil)
	_ ConnectionRepository = (*PostgresConnectionRepo)(nil)
)

package graph

import (
	"context"
	"fmt"

	"github.com/hitoshi/think/internal/repository"
)

// Apply はChangesetを書き込む。順序はNode作成、Node更新、Connection作成、Connection削除、Node削除。
// 端点が常に存在するNodeを指すよう、Nodeの削除は最後に行う。
// 原子性は呼び出し側のトランザクションに依存する。
func Apply(ctx context.Context, nodes repository.NodeRepository, conns repository.ConnectionRepository, cs *Changeset) error {
	for _, n := range cs.CreateNodes {
		if err := nodes.Create(ctx, n); err != nil {
			return fmt.Errorf("failed to apply node creation: %w", err)
		}
	}
	for _, n := range cs.UpdateNodes {
		if err := nodes.Update(ctx, n); err != nil {
			return fmt.Errorf("failed to apply node update: %w", err)
		}
	}
	for _, c := range cs.CreateConnections {
		if err := conns.Create(ctx, c); err != nil {
			return fmt.Errorf("failed to apply connection creation: %w", err)
		}
	}
	if err := conns.DeleteByIDs(ctx, cs.ThoughtID, cs.DeleteConnectionIDs); err != nil {
		return fmt.Errorf("failed to apply connection deletion: %w", err)
	}
	if err := nodes.DeleteByIDs(ctx, cs.ThoughtID, cs.DeleteNodeIDs); err != nil {
		return fmt.Errorf("failed to apply node deletion: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresServerStateRepo はserver_stateテーブルを使用したリポジトリ。
type PostgresServerStateRepo struct {
	q Querier
}

// NewPostgresServerStateRepo はPostgresServerStateRepoを生成する。
func NewPostgresServerStateRepo(q Querier) *PostgresServerStateRepo {
	return &PostgresServerStateRepo{q: q}
}

// IsInitialised は初期データが投入済みかどうかを返す。行が無い場合は未投入とみなす。
// トランザクション内では行をロックし、同時に起動したプロセスの二重投入を防ぐ。
func (r *PostgresServerStateRepo) IsInitialised(ctx context.Context) (bool, error) {
	var initialised bool
	err := r.q.QueryRowContext(ctx, `SELECT initialised FROM server_state WHERE id = 1 FOR UPDATE`).Scan(&initialised)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read server state: %w", err)
	}
	return initialised, nil
}

// MarkInitialised は初期データ投入済みとして記録する。
func (r *PostgresServerStateRepo) MarkInitialised(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO server_state (id, initialised, initialised_at) VALUES (1, true, now())
		 ON CONFLICT (id) DO UPDATE SET initialised = true, initialised_at = now()`,
	)
	if err != nil {
		return fmt.Errorf("failed to mark server initialised: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ServerStateRepository = (*PostgresServerStateRepo)(nil)

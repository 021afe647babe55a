package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// PostgresStore はPostgreSQLを使用したStore実装。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Repositories はトランザクション外のリポジトリを返す。
func (s *PostgresStore) Repositories() Repositories {
	return newPostgresRepositories(s.db)
}

// WithinTx はfnを1つのトランザクション内で実行する。
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, newPostgresRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping はデータベースへの疎通を確認する。
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func newPostgresRepositories(q Querier) Repositories {
	return Repositories{
		Users:       NewPostgresUserRepo(q),
		Thoughts:    NewPostgresThoughtRepo(q),
		Themes:      NewPostgresThemeRepo(q),
		Nodes:       NewPostgresNodeRepo(q),
		Connections: NewPostgresConnectionRepo(q),
		Permissions: NewPostgresPermissionRepo(q),
		ServerState: NewPostgresServerStateRepo(q),
	}
}

// isUniqueViolation はerrが一意制約違反かどうかを返す。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// isUUID はidがUUID列と比較できる形式かどうかを返す。
// それ以外の値をUUID列と比較するとPostgreSQLが22P02を返すため、照会せずに不在として扱う。
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// compile-time interface check
var _ Store = (*PostgresStore)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/think/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	q Querier
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(q Querier) *PostgresUserRepo {
	return &PostgresUserRepo{q: q}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx,
		`SELECT id, claimed_id, created_at FROM users WHERE id = $1`,
		id,
	)
}

// FindByClaimedID はclaimed identityでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByClaimedID(ctx context.Context, claimedID string) (*model.User, error) {
	return r.findOne(ctx,
		`SELECT id, claimed_id, created_at FROM users WHERE claimed_id = $1`,
		claimedID,
	)
}

func (r *PostgresUserRepo) findOne(ctx context.Context, query string, arg string) (*model.User, error) {
	user := &model.User{}
	err := r.q.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.ClaimedID, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, claimed_id, created_at) VALUES ($1, $2, $3)`,
		user.ID, user.ClaimedID, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)

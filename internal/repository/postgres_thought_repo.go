package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/think/internal/model"
	"github.com/lib/pq"
)

const thoughtColumns = `id, name, theme_id, created_at, updated_at`

// PostgresThoughtRepo はPostgreSQLを使用したThoughtリポジトリ。
type PostgresThoughtRepo struct {
	q Querier
}

// NewPostgresThoughtRepo はPostgresThoughtRepoを生成する。
func NewPostgresThoughtRepo(q Querier) *PostgresThoughtRepo {
	return &PostgresThoughtRepo{q: q}
}

// FindByID は指定IDのThoughtを取得する。見つからない場合はnilを返す。
func (r *PostgresThoughtRepo) FindByID(ctx context.Context, id string) (*model.Thought, error) {
	if !isUUID(id) {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+thoughtColumns+` FROM thoughts WHERE id = $1`, id)
}

// FindByIDForUpdate は行ロック付きでThoughtを取得する。トランザクション内で使用すること。
func (r *PostgresThoughtRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Thought, error) {
	if !isUUID(id) {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+thoughtColumns+` FROM thoughts WHERE id = $1 FOR UPDATE`, id)
}

// FindByName は名前が一致する最も古いThoughtを取得する。
func (r *PostgresThoughtRepo) FindByName(ctx context.Context, name string) (*model.Thought, error) {
	return r.findOne(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts WHERE name = $1 ORDER BY created_at ASC, id ASC LIMIT 1`,
		name,
	)
}

func (r *PostgresThoughtRepo) findOne(ctx context.Context, query, arg string) (*model.Thought, error) {
	thought, err := scanThought(r.q.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find thought: %w", err)
	}
	return thought, nil
}

// ListByIDs は指定IDのThoughtを作成順で取得する。
func (r *PostgresThoughtRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Thought, error) {
	if len(ids) == 0 {
		return []*model.Thought{}, nil
	}
	return r.list(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts WHERE id = ANY($1) ORDER BY created_at ASC, id ASC`,
		pq.Array(ids),
	)
}

// ListByTheme は指定Themeを参照するThoughtを返す。
func (r *PostgresThoughtRepo) ListByTheme(ctx context.Context, themeID string) ([]*model.Thought, error) {
	return r.list(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts WHERE theme_id = $1 ORDER BY created_at ASC, id ASC`,
		themeID,
	)
}

func (r *PostgresThoughtRepo) list(ctx context.Context, query string, arg interface{}) ([]*model.Thought, error) {
	rows, err := r.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list thoughts: %w", err)
	}
	defer rows.Close()

	thoughts := []*model.Thought{}
	for rows.Next() {
		thought, err := scanThought(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thought: %w", err)
		}
		thoughts = append(thoughts, thought)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate thoughts: %w", err)
	}
	return thoughts, nil
}

// Create はThoughtを作成する。
func (r *PostgresThoughtRepo) Create(ctx context.Context, thought *model.Thought) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO thoughts (id, name, theme_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		thought.ID, thought.Name, nullableString(thought.ThemeID), thought.CreatedAt, thought.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create thought: %w", err)
	}
	return nil
}

// Update は名前とTheme参照を更新する。
func (r *PostgresThoughtRepo) Update(ctx context.Context, thought *model.Thought) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE thoughts SET name = $1, theme_id = $2, updated_at = $3 WHERE id = $4`,
		thought.Name, nullableString(thought.ThemeID), thought.UpdatedAt, thought.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update thought: %w", err)
	}
	return expectOneRow(result, "thought", thought.ID)
}

// Delete は指定IDのThoughtを削除する。
func (r *PostgresThoughtRepo) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM thoughts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete thought: %w", err)
	}
	return expectOneRow(result, "thought", id)
}

// rowScanner は *sql.Row と *sql.Rows の共通部分。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanThought(s rowScanner) (*model.Thought, error) {
	thought := &model.Thought{}
	var themeID sql.NullString
	if err := s.Scan(&thought.ID, &thought.Name, &themeID, &thought.CreatedAt, &thought.UpdatedAt); err != nil {
		return nil, err
	}
	if themeID.Valid {
		thought.ThemeID = &themeID.String
	}
	return thought, nil
}

// nullableString は空またはnilのポインタをNULLとして扱う。
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// expectOneRow は更新・削除の対象が存在したことを確認する。
func expectOneRow(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

// compile-time interface check
var _ ThoughtRepository = (*PostgresThoughtRepo)(nil)

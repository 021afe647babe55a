package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/think/internal/model"
)

// PostgresThemeRepo はPostgreSQLを使用したThemeリポジトリ。
type PostgresThemeRepo struct {
	q Querier
}

// NewPostgresThemeRepo はPostgresThemeRepoを生成する。
func NewPostgresThemeRepo(q Querier) *PostgresThemeRepo {
	return &PostgresThemeRepo{q: q}
}

// FindByID は指定IDのThemeを取得する。見つからない場合はnilを返す。
func (r *PostgresThemeRepo) FindByID(ctx context.Context, id string) (*model.Theme, error) {
	if !isUUID(id) {
		return nil, nil
	}
	theme := &model.Theme{}
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, background_top_color, background_bottom_color,
			node_outer_color, node_inner_color, node_text_color,
			connection_outer_color, connection_inner_color, connection_text_color,
			created_at, updated_at
		 FROM themes WHERE id = $1`,
		id,
	).Scan(
		&theme.ID, &theme.Name, &theme.BackgroundTopColor, &theme.BackgroundBottomColor,
		&theme.NodeOuterColor, &theme.NodeInnerColor, &theme.NodeTextColor,
		&theme.ConnectionOuterColor, &theme.ConnectionInnerColor, &theme.ConnectionTextColor,
		&theme.CreatedAt, &theme.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find theme: %w", err)
	}
	return theme, nil
}

// Create はThemeを作成する。
func (r *PostgresThemeRepo) Create(ctx context.Context, theme *model.Theme) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO themes (id, name, background_top_color, background_bottom_color,
			node_outer_color, node_inner_color, node_text_color,
			connection_outer_color, connection_inner_color, connection_text_color,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		theme.ID, theme.Name, theme.BackgroundTopColor, theme.BackgroundBottomColor,
		theme.NodeOuterColor, theme.NodeInnerColor, theme.NodeTextColor,
		theme.ConnectionOuterColor, theme.ConnectionInnerColor, theme.ConnectionTextColor,
		theme.CreatedAt, theme.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create theme: %w", err)
	}
	return nil
}

// Update はThemeの名前と配色を更新する。
func (r *PostgresThemeRepo) Update(ctx context.Context, theme *model.Theme) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE themes SET name = $1, background_top_color = $2, background_bottom_color = $3,
			node_outer_color = $4, node_inner_color = $5, node_text_color = $6,
			connection_outer_color = $7, connection_inner_color = $8, connection_text_color = $9,
			updated_at = $10
		 WHERE id = $11`,
		theme.Name, theme.BackgroundTopColor, theme.BackgroundBottomColor,
		theme.NodeOuterColor, theme.NodeInnerColor, theme.NodeTextColor,
		theme.ConnectionOuterColor, theme.ConnectionInnerColor, theme.ConnectionTextColor,
		theme.UpdatedAt, theme.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update theme: %w", err)
	}
	return expectOneRow(result, "theme", theme.ID)
}

// Delete は指定IDのThemeを削除する。参照しているThoughtのtheme_idはNULLになる。
func (r *PostgresThemeRepo) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM themes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete theme: %w", err)
	}
	return expectOneRow(result, "theme", id)
}

// compile-time interface check
var _ ThemeRepository = (*PostgresThemeRepo)(nil)

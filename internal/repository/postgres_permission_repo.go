package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/think/internal/model"
	"github.com/lib/pq"
)

// PostgresPermissionRepo はPostgreSQLを使用したPermissionリポジトリ。
type PostgresPermissionRepo struct {
	q Querier
}

// NewPostgresPermissionRepo はPostgresPermissionRepoを生成する。
func NewPostgresPermissionRepo(q Querier) *PostgresPermissionRepo {
	return &PostgresPermissionRepo{q: q}
}

const permissionColumns = `id, type, thought_id, theme_id, user_id, created_at`

// subjectColumn は対象種別に対応するカラム名を返す。
func subjectColumn(subject model.Subject) (string, error) {
	switch subject.Kind {
	case model.SubjectThought:
		return "thought_id", nil
	case model.SubjectTheme:
		return "theme_id", nil
	default:
		return "", fmt.Errorf("unknown permission subject kind: %q", subject.Kind)
	}
}

// ListBySubject は対象の全Permissionをcreated_at昇順で返す。
func (r *PostgresPermissionRepo) ListBySubject(ctx context.Context, subject model.Subject) ([]*model.Permission, error) {
	column, err := subjectColumn(subject)
	if err != nil {
		return nil, err
	}
	return r.list(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE `+column+` = $1 ORDER BY created_at ASC, id ASC`,
		subject.ID,
	)
}

// ListThoughtPermissionsByUser はユーザーのThought向けPermissionのうち指定種別のものを返す。
func (r *PostgresPermissionRepo) ListThoughtPermissionsByUser(ctx context.Context, userID string, typ model.PermissionType) ([]*model.Permission, error) {
	return r.list(ctx,
		`SELECT `+permissionColumns+` FROM permissions
		 WHERE user_id = $1 AND type = $2 AND thought_id IS NOT NULL
		 ORDER BY created_at ASC, id ASC`,
		userID, string(typ),
	)
}

func (r *PostgresPermissionRepo) list(ctx context.Context, query string, args ...interface{}) ([]*model.Permission, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	perms := []*model.Permission{}
	for rows.Next() {
		p := &model.Permission{}
		var typ string
		var thoughtID, themeID, userID sql.NullString
		if err := rows.Scan(&p.ID, &typ, &thoughtID, &themeID, &userID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		p.Type = model.PermissionType(typ)
		p.ThoughtID = stringPtr(thoughtID)
		p.ThemeID = stringPtr(themeID)
		p.UserID = stringPtr(userID)
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permissions: %w", err)
	}
	return perms, nil
}

// Create はPermissionを作成する。
func (r *PostgresPermissionRepo) Create(ctx context.Context, p *model.Permission) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO permissions (id, type, thought_id, theme_id, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, string(p.Type), nullableString(p.ThoughtID), nullableString(p.ThemeID), nullableString(p.UserID), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}

// DeleteByIDs は指定IDのPermissionを削除する。
func (r *PostgresPermissionRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM permissions WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete permissions: %w", err)
	}
	return nil
}

// DeleteBySubject は対象の全Permissionを削除する。
func (r *PostgresPermissionRepo) DeleteBySubject(ctx context.Context, subject model.Subject) error {
	column, err := subjectColumn(subject)
	if err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM permissions WHERE `+column+` = $1`, subject.ID); err != nil {
		return fmt.Errorf("failed to delete permissions of %s: %w", subject, err)
	}
	return nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// compile-time interface check
var _ PermissionRepository = (*PostgresPermissionRepo)(nil)

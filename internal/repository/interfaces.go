// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/think/internal/model"
)

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate record")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByClaimedID はOpenIDのclaimed identityでユーザーを検索する。見つからない場合はnilを返す。
	FindByClaimedID(ctx context.Context, claimedID string) (*model.User, error)

	// Create はユーザーを作成する。claimed_idが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ThoughtRepository はThoughtの永続化インターフェース。
type ThoughtRepository interface {
	// FindByID は指定IDのThoughtを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Thought, error)

	// FindByIDForUpdate はFindByIDと同じだが、トランザクション終了まで行をロックする。
	FindByIDForUpdate(ctx context.Context, id string) (*model.Thought, error)

	// FindByName は名前でThoughtを検索する。名前は一意ではないため最も古いものを返す。
	FindByName(ctx context.Context, name string) (*model.Thought, error)

	// ListByIDs は指定IDのThoughtを取得する。存在しないIDは無視する。
	ListByIDs(ctx context.Context, ids []string) ([]*model.Thought, error)

	// ListByTheme は指定Themeを参照するThoughtを返す。
	ListByTheme(ctx context.Context, themeID string) ([]*model.Thought, error)

	// Create はThoughtを作成する。
	Create(ctx context.Context, thought *model.Thought) error

	// Update は名前とTheme参照を更新する。
	Update(ctx context.Context, thought *model.Thought) error

	// Delete は指定IDのThoughtを削除する。
	Delete(ctx context.Context, id string) error
}

// ThemeRepository はThemeの永続化インターフェース。
type ThemeRepository interface {
	// FindByID は指定IDのThemeを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Theme, error)
	// Create はThemeを作成する。
	Create(ctx context.Context, theme *model.Theme) error
	// Update はThemeの名前と配色を更新する。
	Update(ctx context.Context, theme *model.Theme) error
	// Delete は指定IDのThemeを削除する。
	Delete(ctx context.Context, id string) error
}

// NodeRepository はNodeの永続化インターフェース。
type NodeRepository interface {
	// ListByThought はThoughtの全Nodeを作成順で返す。
	ListByThought(ctx context.Context, thoughtID string) ([]*model.Node, error)
	// Create はNodeを作成する。
	Create(ctx context.Context, node *model.Node) error
	// Update はNodeの座標とテキストを更新する。
	Update(ctx context.Context, node *model.Node) error
	// DeleteByIDs はThought内の指定Nodeを削除する。
	DeleteByIDs(ctx context.Context, thoughtID string, ids []string) error
	// DeleteByThought はThoughtの全Nodeを削除する。
	DeleteByThought(ctx context.Context, thoughtID string) error
}

// ConnectionRepository はConnectionの永続化インターフェース。
type ConnectionRepository interface {
	// ListByThought はThoughtの全Connectionを作成順で返す。
	ListByThought(ctx context.Context, thoughtID string) ([]*model.Connection, error)
	// Create はConnectionを作成する。
	Create(ctx context.Context, conn *model.Connection) error
	// DeleteByIDs はThought内の指定Connectionを削除する。
	DeleteByIDs(ctx context.Context, thoughtID string, ids []string) error
	// DeleteByThought はThoughtの全Connectionを削除する。
	DeleteByThought(ctx context.Context, thoughtID string) error
}

// PermissionRepository はPermissionの永続化インターフェース。
type PermissionRepository interface {
	// ListBySubject は対象の全Permissionをcreated_at昇順で返す。
	ListBySubject(ctx context.Context, subject model.Subject) ([]*model.Permission, error)

	// ListThoughtPermissionsByUser はユーザーの指定種別のPermissionのうち、
	// thought_idが設定されているものをcreated_at昇順で返す。
	ListThoughtPermissionsByUser(ctx context.Context, userID string, typ model.PermissionType) ([]*model.Permission, error)

	// Create はPermissionを作成する。
	Create(ctx context.Context, permission *model.Permission) error

	// DeleteByIDs は指定IDのPermissionを削除する。
	DeleteByIDs(ctx context.Context, ids []string) error

	// DeleteBySubject は対象の全Permissionを削除する。
	DeleteBySubject(ctx context.Context, subject model.Subject) error
}

// ServerStateRepository は初期データ投入済みフラグの永続化インターフェース。
type ServerStateRepository interface {
	// IsInitialised は初期データが投入済みかどうかを返す。
	IsInitialised(ctx context.Context) (bool, error)
	// MarkInitialised は初期データ投入済みとして記録する。
	MarkInitialised(ctx context.Context) error
}

// Repositories は同一の接続（またはトランザクション）に束縛されたリポジトリの集合。
type Repositories struct {
	Users       UserRepository
	Thoughts    ThoughtRepository
	Themes      ThemeRepository
	Nodes       NodeRepository
	Connections ConnectionRepository
	Permissions PermissionRepository
	ServerState ServerStateRepository
}

// Store はリポジトリの取得とトランザクション境界を提供する。
// Thoughtの作成・更新・削除などの集約操作は1つのWithinTxで実行する。
type Store interface {
	// Repositories はトランザクション外のリポジトリを返す。
	Repositories() Repositories

	// WithinTx はfnを1つのトランザクション内で実行する。
	// fnがエラーを返した場合はロールバックし、それ以外はコミットする。
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error

	// Ping は永続化層への疎通を確認する。
	Ping(ctx context.Context) error
}

// Querier は *sql.DB と *sql.Tx の共通部分。
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

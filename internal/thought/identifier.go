package thought

import (
	"context"
	"fmt"

	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/repository"
)

// Identifier はGETリクエストでThoughtを指定する方法。ByIDまたはByName。
// Getは一度だけResolveし、公開状態と閲覧権限は解決したThoughtに対して判定する。
type Identifier interface {
	// Resolve は対象のThoughtを返す。存在しない場合はnilを返す。
	Resolve(ctx context.Context, r repository.Repositories) (*model.Thought, error)

	fmt.Stringer
}

// ByID はIDでThoughtを指定する。
type ByID string

// ByName は名前でThoughtを指定する。同名が複数ある場合は最も古いもの。
type ByName string

func (id ByID) Resolve(ctx context.Context, r repository.Repositories) (*model.Thought, error) {
	return r.Thoughts.FindByID(ctx, string(id))
}

func (id ByID) String() string { return string(id) }

func (n ByName) Resolve(ctx context.Context, r repository.Repositories) (*model.Thought, error) {
	return r.Thoughts.FindByName(ctx, string(n))
}

func (n ByName) String() string { return string(n) }

// compile-time interface check
var (
	_ Identifier = ByID("")
	_ Identifier = ByName("")
)

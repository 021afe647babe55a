// Package memstore はプロセス内メモリ上のrepository.Store実装を提供する。
// STORE_BACKEND=memory とサービス層のテストで使用する。
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/repository"
)

// state はストアの全データ。WithinTxではコピーに対して操作し、成功時に差し替える。
type state struct {
	users       map[string]model.User
	thoughts    map[string]model.Thought
	themes      map[string]model.Theme
	nodes       []model.Node
	connections []model.Connection
	permissions []model.Permission
	initialised bool
}

func newState() *state {
	return &state{
		users:    make(map[string]model.User),
		thoughts: make(map[string]model.Thought),
		themes:   make(map[string]model.Theme),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.thoughts {
		c.thoughts[k] = v
	}
	for k, v := range s.themes {
		c.themes[k] = v
	}
	c.nodes = append([]model.Node(nil), s.nodes...)
	c.connections = append([]model.Connection(nil), s.connections...)
	c.permissions = append([]model.Permission(nil), s.permissions...)
	c.initialised = s.initialised
	return c
}

// Store はメモリ上のStore実装。トランザクションは直列化される。
type Store struct {
	mu   sync.Mutex
	data *state
}

// New は空のStoreを生成する。
func New() *Store {
	return &Store{data: newState()}
}

// Repositories はトランザクション外のリポジトリを返す。
// WithinTxのコールバック内から呼び出すとデッドロックする。
func (s *Store) Repositories() repository.Repositories {
	return s.repositories(&view{store: s})
}

// WithinTx はfnをデータのコピーに対して実行し、成功した場合のみ反映する。
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.data.clone()
	if err := fn(ctx, s.repositories(&view{tx: tx})); err != nil {
		return err
	}
	s.data = tx
	return nil
}

// Ping は常に成功する。
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) repositories(v *view) repository.Repositories {
	return repository.Repositories{
		Users:       &userRepo{v},
		Thoughts:    &thoughtRepo{v},
		Themes:      &themeRepo{v},
		Nodes:       &nodeRepo{v},
		Connections: &connectionRepo{v},
		Permissions: &permissionRepo{v},
		ServerState: &serverStateRepo{v},
	}
}

// view はトランザクション内ならtxを、そうでなければロックを取ってstore.dataを操作する。
type view struct {
	store *Store
	tx    *state
}

func (v *view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

type userRepo struct{ v *view }

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var found *model.User
	err := r.v.do(func(st *state) error {
		if u, ok := st.users[id]; ok {
			found = &u
		}
		return nil
	})
	return found, err
}

func (r *userRepo) FindByClaimedID(ctx context.Context, claimedID string) (*model.User, error) {
	var found *model.User
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			if u.ClaimedID == claimedID {
				u := u
				found = &u
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.v.do(func(st *state) error {
		for _, u := range st.users {
			if u.ClaimedID == user.ClaimedID {
				return repository.ErrDuplicate
			}
		}
		st.users[user.ID] = *user
		return nil
	})
}

type thoughtRepo struct{ v *view }

func (r *thoughtRepo) FindByID(ctx context.Context, id string) (*model.Thought, error) {
	var found *model.Thought
	err := r.v.do(func(st *state) error {
		if t, ok := st.thoughts[id]; ok {
			found = copyThought(t)
		}
		return nil
	})
	return found, err
}

// FindByIDForUpdate はFindByIDと同じ。WithinTxが直列化されるため行ロックは不要。
func (r *thoughtRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Thought, error) {
	return r.FindByID(ctx, id)
}

func (r *thoughtRepo) FindByName(ctx context.Context, name string) (*model.Thought, error) {
	var found *model.Thought
	err := r.v.do(func(st *state) error {
		for _, t := range sortedThoughts(st, func(t model.Thought) bool { return t.Name == name }) {
			found = t
			return nil
		}
		return nil
	})
	return found, err
}

func (r *thoughtRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Thought, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var list []*model.Thought
	err := r.v.do(func(st *state) error {
		list = sortedThoughts(st, func(t model.Thought) bool { return want[t.ID] })
		return nil
	})
	return list, err
}

func (r *thoughtRepo) ListByTheme(ctx context.Context, themeID string) ([]*model.Thought, error) {
	var list []*model.Thought
	err := r.v.do(func(st *state) error {
		list = sortedThoughts(st, func(t model.Thought) bool { return t.ThemeID != nil && *t.ThemeID == themeID })
		return nil
	})
	return list, err
}

func (r *thoughtRepo) Create(ctx context.Context, thought *model.Thought) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.thoughts[thought.ID]; ok {
			return repository.ErrDuplicate
		}
		if thought.HasTheme() {
			if _, ok := st.themes[*thought.ThemeID]; !ok {
				return fmt.Errorf("theme not found: %s", *thought.ThemeID)
			}
		}
		st.thoughts[thought.ID] = *copyThought(*thought)
		return nil
	})
}

func (r *thoughtRepo) Update(ctx context.Context, thought *model.Thought) error {
	return r.v.do(func(st *state) error {
		current, ok := st.thoughts[thought.ID]
		if !ok {
			return fmt.Errorf("thought not found: %s", thought.ID)
		}
		if thought.HasTheme() {
			if _, ok := st.themes[*thought.ThemeID]; !ok {
				return fmt.Errorf("theme not found: %s", *thought.ThemeID)
			}
		}
		updated := *copyThought(*thought)
		updated.CreatedAt = current.CreatedAt
		st.thoughts[thought.ID] = updated
		return nil
	})
}

// Delete はThoughtと、それに属するNode・Connection・Permissionを削除する。
func (r *thoughtRepo) Delete(ctx context.Context, id string) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.thoughts[id]; !ok {
			return fmt.Errorf("thought not found: %s", id)
		}
		delete(st.thoughts, id)
		st.connections = filterConnections(st.connections, func(c model.Connection) bool { return c.ThoughtID != id })
		st.nodes = filterNodes(st.nodes, func(n model.Node) bool { return n.ThoughtID != id })
		st.permissions = filterPermissions(st.permissions, func(p model.Permission) bool {
			return p.ThoughtID == nil || *p.ThoughtID != id
		})
		return nil
	})
}

func copyThought(t model.Thought) *model.Thought {
	if t.ThemeID != nil {
		themeID := *t.ThemeID
		t.ThemeID = &themeID
	}
	return &t
}

func sortedThoughts(st *state, keep func(model.Thought) bool) []*model.Thought {
	list := []*model.Thought{}
	for _, t := range st.thoughts {
		if keep(t) {
			list = append(list, copyThought(t))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

type themeRepo struct{ v *view }

func (r *themeRepo) FindByID(ctx context.Context, id string) (*model.Theme, error) {
	var found *model.Theme
	err := r.v.do(func(st *state) error {
		if th, ok := st.themes[id]; ok {
			found = &th
		}
		return nil
	})
	return found, err
}

func (r *themeRepo) Create(ctx context.Context, theme *model.Theme) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.themes[theme.ID]; ok {
			return repository.ErrDuplicate
		}
		st.themes[theme.ID] = *theme
		return nil
	})
}

func (r *themeRepo) Update(ctx context.Context, theme *model.Theme) error {
	return r.v.do(func(st *state) error {
		current, ok := st.themes[theme.ID]
		if !ok {
			return fmt.Errorf("theme not found: %s", theme.ID)
		}
		updated := *theme
		updated.CreatedAt = current.CreatedAt
		st.themes[theme.ID] = updated
		return nil
	})
}

// Delete はThemeを削除し、参照しているThoughtのTheme参照を外す。
func (r *themeRepo) Delete(ctx context.Context, id string) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.themes[id]; !ok {
			return fmt.Errorf("theme not found: %s", id)
		}
		delete(st.themes, id)
		for tid, t := range st.thoughts {
			if t.ThemeID != nil && *t.ThemeID == id {
				t.ThemeID = nil
				st.thoughts[tid] = t
			}
		}
		st.permissions = filterPermissions(st.permissions, func(p model.Permission) bool {
			return p.ThemeID == nil || *p.ThemeID != id
		})
		return nil
	})
}

type nodeRepo struct{ v *view }

func (r *nodeRepo) ListByThought(ctx context.Context, thoughtID string) ([]*model.Node, error) {
	list := []*model.Node{}
	err := r.v.do(func(st *state) error {
		for _, n := range st.nodes {
			if n.ThoughtID == thoughtID {
				n := n
				list = append(list, &n)
			}
		}
		return nil
	})
	return list, err
}

func (r *nodeRepo) Create(ctx context.Context, node *model.Node) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.thoughts[node.ThoughtID]; !ok {
			return fmt.Errorf("thought not found: %s", node.ThoughtID)
		}
		for _, n := range st.nodes {
			if n.ID == node.ID {
				return repository.ErrDuplicate
			}
		}
		st.nodes = append(st.nodes, *node)
		return nil
	})
}

func (r *nodeRepo) Update(ctx context.Context, node *model.Node) error {
	return r.v.do(func(st *state) error {
		for i, n := range st.nodes {
			if n.ID == node.ID && n.ThoughtID == node.ThoughtID {
				st.nodes[i].X = node.X
				st.nodes[i].Y = node.Y
				st.nodes[i].Text = node.Text
				return nil
			}
		}
		return fmt.Errorf("node not found: %s", node.ID)
	})
}

// DeleteByIDs は指定Nodeを削除する。Connectionから参照されているNodeがあればエラーを返す。
func (r *nodeRepo) DeleteByIDs(ctx context.Context, thoughtID string, ids []string) error {
	remove := toSet(ids)
	return r.v.do(func(st *state) error {
		for _, c := range st.connections {
			if remove[c.NodeOneID] || remove[c.NodeTwoID] {
				return fmt.Errorf("node is still referenced by connection %s", c.ID)
			}
		}
		st.nodes = filterNodes(st.nodes, func(n model.Node) bool {
			return n.ThoughtID != thoughtID || !remove[n.ID]
		})
		return nil
	})
}

func (r *nodeRepo) DeleteByThought(ctx context.Context, thoughtID string) error {
	return r.v.do(func(st *state) error {
		for _, c := range st.connections {
			if c.ThoughtID == thoughtID {
				return fmt.Errorf("node is still referenced by connection %s", c.ID)
			}
		}
		st.nodes = filterNodes(st.nodes, func(n model.Node) bool { return n.ThoughtID != thoughtID })
		return nil
	})
}

type connectionRepo struct{ v *view }

func (r *connectionRepo) ListByThought(ctx context.Context, thoughtID string) ([]*model.Connection, error) {
	list := []*model.Connection{}
	err := r.v.do(func(st *state) error {
		for _, c := range st.connections {
			if c.ThoughtID == thoughtID {
				c := c
				list = append(list, &c)
			}
		}
		return nil
	})
	return list, err
}

// Create はConnectionを作成する。端点のNodeが存在しない場合はエラーを返す。
func (r *connectionRepo) Create(ctx context.Context, conn *model.Connection) error {
	return r.v.do(func(st *state) error {
		found := 0
		for _, n := range st.nodes {
			if n.ID == conn.NodeOneID || n.ID == conn.NodeTwoID {
				found++
			}
		}
		want := 2
		if conn.NodeOneID == conn.NodeTwoID {
			want = 1
		}
		if found < want {
			return fmt.Errorf("connection endpoint not found: %s-%s", conn.NodeOneID, conn.NodeTwoID)
		}
		st.connections = append(st.connections, *conn)
		return nil
	})
}

func (r *connectionRepo) DeleteByIDs(ctx context.Context, thoughtID string, ids []string) error {
	remove := toSet(ids)
	return r.v.do(func(st *state) error {
		st.connections = filterConnections(st.connections, func(c model.Connection) bool {
			return c.ThoughtID != thoughtID || !remove[c.ID]
		})
		return nil
	})
}

func (r *connectionRepo) DeleteByThought(ctx context.Context, thoughtID string) error {
	return r.v.do(func(st *state) error {
		st.connections = filterConnections(st.connections, func(c model.Connection) bool { return c.ThoughtID != thoughtID })
		return nil
	})
}

type permissionRepo struct{ v *view }

func (r *permissionRepo) ListBySubject(ctx context.Context, subject model.Subject) ([]*model.Permission, error) {
	var list []*model.Permission
	err := r.v.do(func(st *state) error {
		list = sortedPermissions(st.permissions, func(p model.Permission) bool { return p.Subject() == subject })
		return nil
	})
	return list, err
}

func (r *permissionRepo) ListThoughtPermissionsByUser(ctx context.Context, userID string, typ model.PermissionType) ([]*model.Permission, error) {
	var list []*model.Permission
	err := r.v.do(func(st *state) error {
		list = sortedPermissions(st.permissions, func(p model.Permission) bool {
			return p.ThoughtID != nil && p.Type == typ && p.BelongsTo(userID)
		})
		return nil
	})
	return list, err
}

func (r *permissionRepo) Create(ctx context.Context, p *model.Permission) error {
	return r.v.do(func(st *state) error {
		if (p.ThoughtID == nil) == (p.ThemeID == nil) {
			return fmt.Errorf("permission must have exactly one subject")
		}
		if !p.Type.Valid() {
			return fmt.Errorf("invalid permission type: %q", p.Type)
		}
		st.permissions = append(st.permissions, *p)
		return nil
	})
}

func (r *permissionRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	remove := toSet(ids)
	return r.v.do(func(st *state) error {
		st.permissions = filterPermissions(st.permissions, func(p model.Permission) bool { return !remove[p.ID] })
		return nil
	})
}

func (r *permissionRepo) DeleteBySubject(ctx context.Context, subject model.Subject) error {
	return r.v.do(func(st *state) error {
		st.permissions = filterPermissions(st.permissions, func(p model.Permission) bool { return p.Subject() != subject })
		return nil
	})
}

func sortedPermissions(perms []model.Permission, keep func(model.Permission) bool) []*model.Permission {
	list := []*model.Permission{}
	for _, p := range perms {
		if keep(p) {
			p := p
			list = append(list, &p)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

type serverStateRepo struct{ v *view }

func (r *serverStateRepo) IsInitialised(ctx context.Context) (bool, error) {
	var initialised bool
	err := r.v.do(func(st *state) error {
		initialised = st.initialised
		return nil
	})
	return initialised, err
}

func (r *serverStateRepo) MarkInitialised(ctx context.Context) error {
	return r.v.do(func(st *state) error {
		st.initialised = true
		return nil
	})
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func filterNodes(nodes []model.Node, keep func(model.Node) bool) []model.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

func filterConnections(conns []model.Connection, keep func(model.Connection) bool) []model.Connection {
	out := conns[:0:0]
	for _, c := range conns {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func filterPermissions(perms []model.Permission, keep func(model.Permission) bool) []model.Permission {
	out := perms[:0:0]
	for _, p := range perms {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// compile-time interface check
var _ repository.Store = (*Store)(nil)

package graph

import (
	"github.com/hitoshi/think/internal/model"
)

// Changeset はPlanが計算した書き込みの集合。
type Changeset struct {
	ThoughtID           string
	CreateNodes         []*model.Node
	UpdateNodes         []*model.Node
	CreateConnections   []*model.Connection
	DeleteConnectionIDs []string
	DeleteNodeIDs       []string
}

// Stats は変更件数の集計。
type Stats struct {
	NodesCreated       int
	NodesUpdated       int
	NodesDeleted       int
	ConnectionsCreated int
	ConnectionsDeleted int
}

// Stats は変更件数を返す。
func (c *Changeset) Stats() Stats {
	return Stats{
		NodesCreated:       len(c.CreateNodes),
		NodesUpdated:       len(c.UpdateNodes),
		NodesDeleted:       len(c.DeleteNodeIDs),
		ConnectionsCreated: len(c.CreateConnections),
		ConnectionsDeleted: len(c.DeleteConnectionIDs),
	}
}

// Empty は書き込みが無いかどうかを返す。
func (c *Changeset) Empty() bool {
	return c.Stats() == Stats{}
}

// planner は1回のPlan呼び出しの作業状態。
type planner struct {
	cs    *Changeset
	newID func() string

	// submitted は送信順の (位置, 解決後ID)。位置による端点解決に使う。
	submitted []resolvedNode
	// byID は送信Nodeのうち解決後IDで参照できるもの。
	byID map[string]bool
}

type resolvedNode struct {
	id  string
	pos Position
}

// lookup は端点を送信Nodeの解決後IDに変換する。
// IDが既知ならそれを使い、そうでなければ位置の完全一致で最初に見つかったNodeを使う。
func (p *planner) lookup(e Endpoint, localIDs map[string]string) (string, bool) {
	if e.HasID() {
		if localIDs != nil {
			if id, ok := localIDs[e.ID]; ok {
				return id, true
			}
		} else if p.byID[e.ID] {
			return e.ID, true
		}
	}
	if e.Pos != nil {
		for _, n := range p.submitted {
			if n.pos == *e.Pos {
				return n.id, true
			}
		}
	}
	return "", false
}

func (p *planner) createConnection(one, two string) {
	p.cs.CreateConnections = append(p.cs.CreateConnections, &model.Connection{
		ID:        p.newID(),
		ThoughtID: p.cs.ThoughtID,
		NodeOneID: one,
		NodeTwoID: two,
	})
}

// Plan は永続化済みグラフpersistedを送信グラフsubに一致させるための変更を計算する。
// 純粋関数であり、IDの生成はnewIDに委ねる。
//
// 1. Node: IDありは永続化済みNodeを更新（変更がある場合のみ）して保持、IDなしは新規作成。
// 2. Connection: 両端点がIDありなら永続化済みの (one, two) と順序込みで照合し、一致すれば保持、
// 無ければ作成。それ以外は端点をIDまたは位置で解決して作成。保持されなかったものは削除。
// 3. 保持されなかったNodeを削除。
//
// 不明なNode ID、重複したNode ID、解決できない端点、削除対象のNodeを指す端点があれば
// IntegrityErrorを返し、Changesetは返さない。
func Plan(persisted Graph, sub Submission, newID func() string) (*Changeset, error) {
	p := &planner{
		cs:    &Changeset{ThoughtID: persisted.ThoughtID},
		newID: newID,
		byID:  make(map[string]bool, len(sub.Nodes)),
	}

	existing := make(map[string]*model.Node, len(persisted.Nodes))
	for _, n := range persisted.Nodes {
		existing[n.ID] = n
	}

	// 1. Node
	for _, sn := range sub.Nodes {
		if sn.ID == "" {
			n := &model.Node{
				ID:        newID(),
				ThoughtID: persisted.ThoughtID,
				X:         sn.X,
				Y:         sn.Y,
				Text:      sn.Text,
			}
			p.cs.CreateNodes = append(p.cs.CreateNodes, n)
			p.submitted = append(p.submitted, resolvedNode{id: n.ID, pos: sn.Position})
			continue
		}

		if p.byID[sn.ID] {
			return nil, integrityErrorf("node %s submitted more than once", sn.ID)
		}
		current, ok := existing[sn.ID]
		if !ok {
			return nil, integrityErrorf("node %s does not belong to thought %s", sn.ID, persisted.ThoughtID)
		}
		p.byID[sn.ID] = true
		p.submitted = append(p.submitted, resolvedNode{id: sn.ID, pos: sn.Position})

		if !current.SamePosition(sn.X, sn.Y, sn.Text) {
			p.cs.UpdateNodes = append(p.cs.UpdateNodes, &model.Node{
				ID:        current.ID,
				ThoughtID: current.ThoughtID,
				X:         sn.X,
				Y:         sn.Y,
				Text:      sn.Text,
			})
		}
	}

	// 2. Connection
	retained := make(map[string]bool, len(persisted.Connections))
	for i, sc := range sub.Connections {
		if sc.One.HasID() && sc.Two.HasID() {
			for _, e := range []Endpoint{sc.One, sc.Two} {
				if !p.byID[e.ID] {
					return nil, integrityErrorf("connection %d references node %s which is not part of the submission", i, e.ID)
				}
			}
			if match := findConnection(persisted.Connections, retained, sc.One.ID, sc.Two.ID); match != nil {
				retained[match.ID] = true
				continue
			}
			p.createConnection(sc.One.ID, sc.Two.ID)
			continue
		}

		one, ok := p.lookup(sc.One, nil)
		if !ok {
			return nil, integrityErrorf("connection %d: endpoint %s not found", i, sc.One)
		}
		two, ok := p.lookup(sc.Two, nil)
		if !ok {
			return nil, integrityErrorf("connection %d: endpoint %s not found", i, sc.Two)
		}
		p.createConnection(one, two)
	}

	for _, c := range persisted.Connections {
		if !retained[c.ID] {
			p.cs.DeleteConnectionIDs = append(p.cs.DeleteConnectionIDs, c.ID)
		}
	}

	// 3. Node削除
	for _, n := range persisted.Nodes {
		if !p.byID[n.ID] {
			p.cs.DeleteNodeIDs = append(p.cs.DeleteNodeIDs, n.ID)
		}
	}

	return p.cs, nil
}

// PlanCreate は新規Thoughtのグラフ作成を計算する。
// 送信されたNodeのIDはクライアント内の参照としてのみ扱い、全Nodeに新しいIDを割り当てる。
// 端点はそのIDの対応表、無ければ位置の完全一致で解決する。
func PlanCreate(thoughtID string, sub Submission, newID func() string) (*Changeset, error) {
	p := &planner{
		cs:    &Changeset{ThoughtID: thoughtID},
		newID: newID,
	}

	localIDs := make(map[string]string)
	for _, sn := range sub.Nodes {
		n := &model.Node{
			ID:        newID(),
			ThoughtID: thoughtID,
			X:         sn.X,
			Y:         sn.Y,
			Text:      sn.Text,
		}
		if sn.ID != "" {
			if _, dup := localIDs[sn.ID]; dup {
				return nil, integrityErrorf("node %s submitted more than once", sn.ID)
			}
			localIDs[sn.ID] = n.ID
		}
		p.cs.CreateNodes = append(p.cs.CreateNodes, n)
		p.submitted = append(p.submitted, resolvedNode{id: n.ID, pos: sn.Position})
	}

	for i, sc := range sub.Connections {
		one, ok := p.lookup(sc.One, localIDs)
		if !ok {
			return nil, integrityErrorf("connection %d: endpoint %s not found", i, sc.One)
		}
		two, ok := p.lookup(sc.Two, localIDs)
		if !ok {
			return nil, integrityErrorf("connection %d: endpoint %s not found", i, sc.Two)
		}
		p.createConnection(one, two)
	}

	return p.cs, nil
}

// findConnection は保持済みでない (one, two) の永続化済みConnectionを探す。
func findConnection(conns []*model.Connection, retained map[string]bool, one, two string) *model.Connection {
	for _, c := range conns {
		if retained[c.ID] {
			continue
		}
		if c.NodeOneID == one && c.NodeTwoID == two {
			return c
		}
	}
	return nil
}

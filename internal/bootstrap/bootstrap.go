package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/think/internal/graph"
	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/permission"
	"github.com/hitoshi/think/internal/repository"
)

// Runner は初期データを投入する。
type Runner struct {
	store repository.Store
	newID func() string
	now   func() time.Time
}

// NewRunner はRunnerを生成する。
func NewRunner(store repository.Store) *Runner {
	return &Runner{store: store, newID: uuid.NewString, now: time.Now}
}

// Run はdocを1つのトランザクションで投入し、投入済みとして記録する。
// 既に投入済みの場合は何もせずfalseを返す。
func (r *Runner) Run(ctx context.Context, doc *Document) (bool, error) {
	seeded := false
	err := r.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		done, err := repos.ServerState.IsInitialised(ctx)
		if err != nil {
			return fmt.Errorf("failed to read server state: %w", err)
		}
		if done {
			return nil
		}

		themeIDs, err := r.seedThemes(ctx, repos, doc.Themes)
		if err != nil {
			return err
		}
		for _, t := range doc.Thoughts {
			if err := r.seedThought(ctx, repos, t, themeIDs); err != nil {
				return err
			}
		}

		if err := repos.ServerState.MarkInitialised(ctx); err != nil {
			return fmt.Errorf("failed to mark server initialised: %w", err)
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if seeded {
		slog.Info("初期データを投入しました",
			slog.Int("themes", len(doc.Themes)),
			slog.Int("thoughts", len(doc.Thoughts)),
		)
	} else {
		slog.Info("初期データは投入済みです")
	}
	return seeded, nil
}

func (r *Runner) seedThemes(ctx context.Context, repos repository.Repositories, seeds []ThemeSeed) (map[string]string, error) {
	ix := permission.NewIndex(repos.Permissions)
	ids := make(map[string]string, len(seeds))
	for _, s := range seeds {
		now := r.now()
		theme := &model.Theme{
			ID:                    r.newID(),
			Name:                  s.Name,
			BackgroundTopColor:    s.BackgroundTopColor,
			BackgroundBottomColor: s.BackgroundBottomColor,
			NodeOuterColor:        s.NodeOuterColor,
			NodeInnerColor:        s.NodeInnerColor,
			NodeTextColor:         s.NodeTextColor,
			ConnectionOuterColor:  s.ConnectionOuterColor,
			ConnectionInnerColor:  s.ConnectionInnerColor,
			ConnectionTextColor:   s.ConnectionTextColor,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := repos.Themes.Create(ctx, theme); err != nil {
			return nil, fmt.Errorf("failed to seed theme %q: %w", s.Name, err)
		}
		if s.Public {
			if err := ix.SetPublic(ctx, model.ThemeSubject(theme.ID)); err != nil {
				return nil, fmt.Errorf("failed to publish theme %q: %w", s.Name, err)
			}
		}
		if s.Key != "" {
			ids[s.Key] = theme.ID
		}
	}
	return ids, nil
}

func (r *Runner) seedThought(ctx context.Context, repos repository.Repositories, s ThoughtSeed, themeIDs map[string]string) error {
	now := r.now()
	t := &model.Thought{ID: r.newID(), Name: s.Name, CreatedAt: now, UpdatedAt: now}
	if s.Theme != "" {
		id := themeIDs[s.Theme]
		t.ThemeID = &id
	}
	if err := repos.Thoughts.Create(ctx, t); err != nil {
		return fmt.Errorf("failed to seed thought %q: %w", s.Name, err)
	}
	if s.Public {
		if err := permission.NewIndex(repos.Permissions).SetPublic(ctx, model.ThoughtSubject(t.ID)); err != nil {
			return fmt.Errorf("failed to publish thought %q: %w", s.Name, err)
		}
	}

	cs, err := graph.PlanCreate(t.ID, submission(s), r.newID)
	if err != nil {
		return fmt.Errorf("seed thought %q: %w", s.Name, err)
	}
	return graph.Apply(ctx, repos.Nodes, repos.Connections, cs)
}

// submission はNodeのインデックスをクライアント側IDとして扱う送信グラフを組み立てる。
func submission(s ThoughtSeed) graph.Submission {
	var sub graph.Submission
	for i, n := range s.Nodes {
		sub.Nodes = append(sub.Nodes, graph.SubmittedNode{
			ID:       strconv.Itoa(i),
			Position: graph.Position{X: n.X, Y: n.Y, Text: n.Text},
		})
	}
	for _, c := range s.Connections {
		sub.Connections = append(sub.Connections, graph.SubmittedConnection{
			One: graph.Endpoint{ID: strconv.Itoa(c[0])},
			Two: graph.Endpoint{ID: strconv.Itoa(c[1])},
		})
	}
	return sub
}

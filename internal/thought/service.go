// Package thought はThoughtと、それに属するTheme・Permission・グラフをまとめて操作する。
package thought

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/think/internal/graph"
	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/permission"
	"github.com/hitoshi/think/internal/repository"
	"github.com/hitoshi/think/internal/theme"
)

// 保存操作の種別。メトリクスのラベルに使う。
const (
	OpCreate = "create"
	OpUpdate = "update"
)

// Input はクライアントが送信したThought。
type Input struct {
	ID    string
	Name  string
	Theme *theme.Input
	Graph graph.Submission
}

// MetricsRecorder は保存結果を記録する。
type MetricsRecorder interface {
	RecordThoughtSave(operation string, stats graph.Stats)
	RecordIntegrityFailure(operation string)
}

type noopRecorder struct{}

func (noopRecorder) RecordThoughtSave(string, graph.Stats) {}
func (noopRecorder) RecordIntegrityFailure(string)        {}

// Service はThought集約のサービス。各操作は1つのトランザクションで実行する。
type Service struct {
	store   repository.Store
	themes  *theme.Service
	metrics MetricsRecorder
	newID   func() string
	now     func() time.Time
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithMetrics は保存結果の記録先を設定する。
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewService はServiceを生成する。
func NewService(store repository.Store, themes *theme.Service, opts ...Option) *Service {
	s := &Service{
		store:   store,
		themes:  themes,
		metrics: noopRecorder{},
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save はPOST/PUT /thought の処理。IDが無いか既に存在しないThoughtを指す場合は作成、それ以外は更新する。
func (s *Service) Save(ctx context.Context, in Input, userID string) (string, error) {
	if in.ID != "" {
		existing, err := s.store.Repositories().Thoughts.FindByID(ctx, in.ID)
		if err != nil {
			return "", err
		}
		if existing != nil {
			if err := s.Update(ctx, in.ID, in, userID); err != nil {
				return "", err
			}
			return in.ID, nil
		}
	}
	return s.Create(ctx, in, userID)
}

// Create はThoughtを作成しIDを返す。
// 1. Theme（指定があれば）を作成または更新
// 2. Thought行を作成
// 3. 作成者にmodify権限を付与
// 4. Node/Connectionを作成
func (s *Service) Create(ctx context.Context, in Input, ownerID string) (string, error) {
	if in.Name == "" {
		return "", model.NewValidationError("The thought has no name.")
	}

	var thoughtID string
	var stats graph.Stats
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		// 1. Theme
		themeID, err := s.upsertTheme(ctx, r, in.Theme, ownerID)
		if err != nil {
			return err
		}

		// 2. Thought
		now := s.now()
		t := &model.Thought{ID: s.newID(), Name: in.Name, ThemeID: themeID, CreatedAt: now, UpdatedAt: now}
		if err := r.Thoughts.Create(ctx, t); err != nil {
			return err
		}

		// 3. Permission
		if _, err := permission.NewIndex(r.Permissions).Grant(ctx, model.ThoughtSubject(t.ID), ownerID, model.PermitModify); err != nil {
			return err
		}

		// 4. グラフ
		cs, err := graph.PlanCreate(t.ID, in.Graph, s.newID)
		if err != nil {
			return err
		}
		if err := graph.Apply(ctx, r.Nodes, r.Connections, cs); err != nil {
			return err
		}

		thoughtID = t.ID
		stats = cs.Stats()
		return nil
	})
	if err != nil {
		return "", s.translate(err, OpCreate, "")
	}

	s.metrics.RecordThoughtSave(OpCreate, stats)
	slog.Info("thought created",
		slog.String("thought_id", thoughtID),
		slog.String("user_id", ownerID),
		slog.Int("nodes", stats.NodesCreated),
		slog.Int("connections", stats.ConnectionsCreated),
	)
	return thoughtID, nil
}

// Update はmodify権限を確認した上でThoughtを更新する。
// Thought行をロックし、同じThoughtへの並行更新を直列化する。
func (s *Service) Update(ctx context.Context, thoughtID string, in Input, userID string) error {
	if in.Name == "" {
		return model.NewValidationError("The thought has no name.")
	}

	var stats graph.Stats
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		t, err := r.Thoughts.FindByIDForUpdate(ctx, thoughtID)
		if err != nil {
			return err
		}
		if t == nil {
			return model.NewThoughtNotFoundError(thoughtID)
		}

		ok, err := permission.NewIndex(r.Permissions).IsPermitted(ctx, model.ThoughtSubject(t.ID), userID, model.PermitModify)
		if err != nil {
			return err
		}
		if !ok {
			return model.NewForbiddenError("You are not permitted to modify the thought.")
		}

		themeID, err := s.upsertTheme(ctx, r, in.Theme, userID)
		if err != nil {
			return err
		}
		if t.Name != in.Name || !sameTheme(t.ThemeID, themeID) {
			t.Name = in.Name
			t.ThemeID = themeID
			t.UpdatedAt = s.now()
			if err := r.Thoughts.Update(ctx, t); err != nil {
				return err
			}
		}

		current, err := graph.Load(ctx, r.Nodes, r.Connections, t.ID)
		if err != nil {
			return err
		}
		cs, err := graph.Plan(current, in.Graph, s.newID)
		if err != nil {
			return err
		}
		if err := graph.Apply(ctx, r.Nodes, r.Connections, cs); err != nil {
			return err
		}
		stats = cs.Stats()
		return nil
	})
	if err != nil {
		return s.translate(err, OpUpdate, thoughtID)
	}

	s.metrics.RecordThoughtSave(OpUpdate, stats)
	slog.Info("thought updated",
		slog.String("thought_id", thoughtID),
		slog.String("user_id", userID),
		slog.Any("changes", stats),
	)
	return nil
}

// Delete はmodify権限を確認した上でThoughtを削除する。
// Connection、Node、Permission、Theme、Thought行の順に削除する。
// Themeは他のThoughtから参照されていなければ削除し、参照されていれば残す。
func (s *Service) Delete(ctx context.Context, thoughtID, userID string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		t, err := r.Thoughts.FindByIDForUpdate(ctx, thoughtID)
		if err != nil {
			return err
		}
		if t == nil {
			return model.NewThoughtNotFoundError(thoughtID)
		}

		ix := permission.NewIndex(r.Permissions)
		ok, err := ix.IsPermitted(ctx, model.ThoughtSubject(t.ID), userID, model.PermitModify)
		if err != nil {
			return err
		}
		if !ok {
			return model.NewForbiddenError("You do not have permission to delete this thought.")
		}

		// Connectionが参照するNodeより先に削除する
		if err := r.Connections.DeleteByThought(ctx, t.ID); err != nil {
			return err
		}
		if err := r.Nodes.DeleteByThought(ctx, t.ID); err != nil {
			return err
		}
		if err := ix.RevokeAll(ctx, model.ThoughtSubject(t.ID)); err != nil {
			return err
		}

		if t.HasTheme() {
			if err := s.releaseTheme(ctx, r, t, userID); err != nil {
				return err
			}
		}

		if err := r.Thoughts.Delete(ctx, t.ID); err != nil {
			return err
		}

		slog.Info("thought deleted", slog.String("thought_id", t.ID), slog.String("user_id", userID))
		return nil
	})
}

// releaseTheme は削除されるThoughtのThemeを、他に参照が無ければ削除する。
// userIDがmodify権限を持たないTheme（公開Themeを設定していた場合など）は残す。
func (s *Service) releaseTheme(ctx context.Context, r repository.Repositories, t *model.Thought, userID string) error {
	owned, err := permission.NewIndex(r.Permissions).IsPermitted(ctx, model.ThemeSubject(*t.ThemeID), userID, model.PermitModify)
	if err != nil {
		return err
	}
	if !owned {
		return nil
	}

	users, err := r.Thoughts.ListByTheme(ctx, *t.ThemeID)
	if err != nil {
		return err
	}
	for _, other := range users {
		if other.ID != t.ID {
			slog.Info("theme is shared, keeping it",
				slog.String("theme_id", *t.ThemeID),
				slog.String("thought_id", t.ID),
			)
			return nil
		}
	}
	return s.themes.DeleteTx(ctx, r, *t.ThemeID)
}

// SetVisibility はmodify権限を確認した上でThoughtを公開または非公開にする。
// 既に目的の状態である場合はALREADY_PUBLIC/ALREADY_PRIVATEエラーを返す。
func (s *Service) SetVisibility(ctx context.Context, thoughtID, userID string, public bool) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		t, err := r.Thoughts.FindByIDForUpdate(ctx, thoughtID)
		if err != nil {
			return err
		}
		if t == nil {
			return model.NewThoughtNotFoundError(thoughtID)
		}

		ix := permission.NewIndex(r.Permissions)
		subject := model.ThoughtSubject(t.ID)
		ok, err := ix.IsPermitted(ctx, subject, userID, model.PermitModify)
		if err != nil {
			return err
		}
		if !ok {
			return model.NewForbiddenError("You do not have sufficient privileges.")
		}

		if public {
			return ix.SetPublic(ctx, subject)
		}
		return ix.SetPrivate(ctx, subject)
	})
}

// DescribeForUser はユーザーが閲覧または編集できるThoughtの概要を返す。
// view権限のThought、modify権限のThoughtの順で、重複は最初の出現のみ残す。
func (s *Service) DescribeForUser(ctx context.Context, userID string) ([]model.ThoughtDescription, error) {
	r := s.store.Repositories()

	var ids []string
	seen := make(map[string]bool)
	for _, typ := range []model.PermissionType{model.PermitView, model.PermitModify} {
		perms, err := r.Permissions.ListThoughtPermissionsByUser(ctx, userID, typ)
		if err != nil {
			return nil, err
		}
		for _, p := range perms {
			if p.ThoughtID == nil || seen[*p.ThoughtID] {
				continue
			}
			seen[*p.ThoughtID] = true
			ids = append(ids, *p.ThoughtID)
		}
	}

	thoughts, err := r.Thoughts.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Thought, len(thoughts))
	for _, t := range thoughts {
		byID[t.ID] = t
	}

	descriptions := make([]model.ThoughtDescription, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			descriptions = append(descriptions, model.ThoughtDescription{ID: t.ID, Name: t.Name})
		}
	}
	return descriptions, nil
}

// upsertTheme は指定があればThemeを作成または更新してIDを返す。指定が無ければnil。
func (s *Service) upsertTheme(ctx context.Context, r repository.Repositories, in *theme.Input, userID string) (*string, error) {
	if in == nil {
		return nil, nil
	}
	id, err := s.themes.UpsertTx(ctx, r, *in, userID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// translate はグラフの参照整合性エラーをユーザー向けのエラーに変換する。
// 詳細はログにのみ残す。
func (s *Service) translate(err error, op, thoughtID string) error {
	var ie *graph.IntegrityError
	if !errors.As(err, &ie) {
		return err
	}
	s.metrics.RecordIntegrityFailure(op)
	slog.Warn("参照整合性エラーのため保存を中止しました",
		slog.String("operation", op),
		slog.String("thought_id", thoughtID),
		slog.String("reason", ie.Reason),
	)
	return model.NewIntegrityError()
}

func sameTheme(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

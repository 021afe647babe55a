package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn        func(ctx context.Context, id string) (*model.User, error)
	findByClaimedIDFn func(ctx context.Context, claimedID string) (*model.User, error)
	createFn          func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByClaimedID(ctx context.Context, claimedID string) (*model.User, error) {
	if m.findByClaimedIDFn != nil {
		return m.findByClaimedIDFn(ctx, claimedID)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)

// --- テスト ---

func TestSignIn_NewUser_CreatesUserAndSession(t *testing.T) {
	ctx := context.Background()

	var createdUser *model.User
	var createdSession *model.Session

	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.SignIn(ctx, "https://id.example.com/alice")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if createdUser.ClaimedID != "https://id.example.com/alice" {
		t.Errorf("claimed ID = %q, want %q", createdUser.ClaimedID, "https://id.example.com/alice")
	}
	if createdSession == nil || session.ID != createdSession.ID {
		t.Fatal("expected session to be persisted")
	}
	if session.UserID != createdUser.ID {
		t.Errorf("session user ID = %q, want %q", session.UserID, createdUser.ID)
	}
	// 32バイトのhex
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}
	if got := session.ExpiresAt.Sub(session.CreatedAt); got != 24*time.Hour {
		t.Errorf("session lifetime = %v, want 24h", got)
	}
}

func TestSignIn_ExistingUser_DoesNotCreateUser(t *testing.T) {
	ctx := context.Background()

	userRepo := &mockUserRepo{
		findByClaimedIDFn: func(ctx context.Context, claimedID string) (*model.User, error) {
			return &model.User{ID: "existing-user", ClaimedID: claimedID}, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			t.Error("Create should not be called for an existing user")
			return nil
		},
	}

	svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})

	session, err := svc.SignIn(ctx, "alice")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if session.UserID != "existing-user" {
		t.Errorf("session user ID = %q, want %q", session.UserID, "existing-user")
	}
}

func TestSignIn_DuplicateInsert_UsesWinner(t *testing.T) {
	ctx := context.Background()

	calls := 0
	userRepo := &mockUserRepo{
		findByClaimedIDFn: func(ctx context.Context, claimedID string) (*model.User, error) {
			calls++
			if calls == 1 {
				return nil, nil
			}
			return &model.User{ID: "winner", ClaimedID: claimedID}, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrDuplicate
		},
	}

	svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})

	session, err := svc.SignIn(ctx, "alice")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if session.UserID != "winner" {
		t.Errorf("session user ID = %q, want %q", session.UserID, "winner")
	}
}

func TestSignIn_EmptyClaimedID_ReturnsError(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})
	if _, err := svc.SignIn(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty claimed identity")
	}
}

func TestSignIn_SessionCreateError_ReturnsError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			return errors.New("db down")
		},
	}
	svc := NewService(&mockUserRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 3600})
	if _, err := svc.SignIn(context.Background(), "alice"); err == nil {
		t.Fatal("expected error when session cannot be saved")
	}
}

func TestResolveSession(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	sessions := map[string]*model.Session{
		"live":    {ID: "live", UserID: "user-1", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)},
		"expired": {ID: "expired", UserID: "user-1", CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-24 * time.Hour)},
	}
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return sessions[id], nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}

	svc := NewService(userRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})
	svc.now = func() time.Time { return now }

	tests := []struct {
		name      string
		sessionID string
		wantUser  string
		wantState model.SessionState
	}{
		{"空", "", "", model.SessionNone},
		{"不明", "unknown", "", model.SessionExpired},
		{"期限切れ", "expired", "", model.SessionExpired},
		{"有効", "live", "user-1", model.SessionActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.ResolveSession(context.Background(), tt.sessionID)
			if err != nil {
				t.Fatalf("ResolveSession() error = %v", err)
			}
			if tt.wantUser == "" && user != nil {
				t.Errorf("ResolveSession() = %+v, want nil", user)
			}
			if tt.wantUser != "" && (user == nil || user.ID != tt.wantUser) {
				t.Errorf("ResolveSession() = %+v, want user %q", user, tt.wantUser)
			}

			viewer, err := svc.Viewer(context.Background(), tt.sessionID)
			if err != nil {
				t.Fatalf("Viewer() error = %v", err)
			}
			if viewer.State != tt.wantState {
				t.Errorf("Viewer().State = %v, want %v", viewer.State, tt.wantState)
			}
			if viewer.UserID != tt.wantUser {
				t.Errorf("Viewer().UserID = %q, want %q", viewer.UserID, tt.wantUser)
			}
		})
	}
}

func TestViewer_RepositoryError_TreatedAsExpired(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewService(&mockUserRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 3600})

	viewer, err := svc.Viewer(context.Background(), "any")
	if err == nil {
		t.Fatal("expected error")
	}
	if viewer.Authenticated() {
		t.Error("viewer should not be authenticated on error")
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	var deleted string
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := NewService(&mockUserRepo{}, sessionRepo, ServiceConfig{SessionMaxAge: 3600})

	if err := svc.Logout(context.Background(), "session-123"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if deleted != "session-123" {
		t.Errorf("deleted session = %q, want %q", deleted, "session-123")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})
	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestGetUser_NotFound_ReturnsNil(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})
	user, err := svc.GetUser(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil", user)
	}
}

func TestGetUser_RepositoryError(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 3600})
	if _, err := svc.GetUser(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error when the repository fails")
	}
}

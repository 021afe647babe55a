// Package auth はclaimed identityによるサインインとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
		now:         time.Now,
	}
}

// SignIn はclaimed identityに対応するユーザーを検索し、無ければ作成してセッションを発行する。
// 同じidentityで同時にサインインした場合、後から作成しようとした側は既存ユーザーを使う。
func (s *Service) SignIn(ctx context.Context, claimedID string) (*model.Session, error) {
	if claimedID == "" {
		return nil, fmt.Errorf("claimed identity is required")
	}

	// 1. claimed identityで既存ユーザーを検索
	user, err := s.userRepo.FindByClaimedID(ctx, claimedID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// 2. 未登録なら作成
	if user == nil {
		user, err = s.createUser(ctx, claimedID)
		if err != nil {
			return nil, err
		}
	} else {
		slog.Info("existing user logged in", slog.String("user_id", user.ID))
	}

	// 3. セッションを発行
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (s *Service) createUser(ctx context.Context, claimedID string) (*model.User, error) {
	user := &model.User{
		ID:        uuid.New().String(),
		ClaimedID: claimedID,
		CreatedAt: s.now(),
	}
	err := s.userRepo.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		existing, findErr := s.userRepo.FindByClaimedID(ctx, claimedID)
		if findErr != nil {
			return nil, fmt.Errorf("failed to find user: %w", findErr)
		}
		if existing == nil {
			return nil, fmt.Errorf("user for claimed identity vanished after duplicate insert")
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created", slog.String("user_id", user.ID))
	return user, nil
}

// ResolveSession はセッションIDに対応するユーザーを返す。
// IDが空、不明、または期限切れの場合はnilを返す。
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || session.Expired(s.now()) {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// Viewer はセッションIDからリクエスト元の認証状態を判定する。
func (s *Service) Viewer(ctx context.Context, sessionID string) (model.Viewer, error) {
	if sessionID == "" {
		return model.AnonymousViewer(), nil
	}
	user, err := s.ResolveSession(ctx, sessionID)
	if err != nil {
		return model.Viewer{State: model.SessionExpired}, err
	}
	if user == nil {
		return model.Viewer{State: model.SessionExpired}, nil
	}
	return model.Viewer{UserID: user.ID, State: model.SessionActive}, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// GetUser は指定IDのユーザーを取得する。存在しない場合はnilを返す。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package service

import (
	"context"
	"fmt"
	"strings"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"
	"floor-data/internal/repository"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// GuestSessionService 入座会话管理
// seat / complete 在一个事务内同时写会话与桌台状态：occupied ⇔ 恰好一个 seated 会话
type GuestSessionService interface {
	Seat(ctx context.Context, req SeatRequest) (*domain.GuestSession, error)
	Complete(ctx context.Context, sessionID string) (*CompleteResponse, error)
	ListActive(ctx context.Context) ([]*domain.GuestSession, error)
	// GetActiveForTable 无 seated 会话时返回 nil, nil
	GetActiveForTable(ctx context.Context, tableID string) (*domain.GuestSession, error)
	GetSession(ctx context.Context, sessionID string) (*domain.GuestSession, error)
	ListForTable(ctx context.Context, tableID string) ([]*domain.GuestSession, error)
}

type guestSessionService struct {
	store  repository.Store
	clock  clockwork.Clock
	logger *zap.Logger
}

func NewGuestSessionService(store repository.Store, clock clockwork.Clock, logger *zap.Logger) GuestSessionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &guestSessionService{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

type SeatRequest struct {
	TableID    string // 必填
	GuestCount int    // 必填，>= 1
	ServerName string // 可选
	Notes      string // 可选
}

type CompleteResponse struct {
	Session *domain.GuestSession `json:"session"`
	// TableRemoved 临时桌已删除；否则 Table 为置为 cleaning 后的桌台
	TableRemoved bool          `json:"table_removed"`
	Table        *domain.Table `json:"table,omitempty"`
}

// Seat 入座：桌台必须存在、没有 seated 会话，且状态可转为 occupied（available / reserved）
// 预订状态不在此处修改，由外部预订流程维护
func (s *guestSessionService) Seat(ctx context.Context, req SeatRequest) (*domain.GuestSession, error) {
	// 1. 参数验证
	if req.TableID == "" {
		return nil, apperr.Validation("table_id is required")
	}
	if req.GuestCount < 1 {
		return nil, apperr.Validation("guest_count must be at least 1")
	}

	// 2. 事务内：锁桌台 → 检查前置条件 → 写会话 → 桌台 occupied
	var session *domain.GuestSession
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		table, err := tx.Tables().LockTable(ctx, req.TableID)
		if err != nil {
			return err
		}
		active, err := tx.GuestSessions().ListGuestSessions(ctx, repository.GuestSessionFilters{
			TableID: req.TableID,
			Status:  domain.GuestSessionSeated,
		})
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return apperr.Validation("table %s already has a seated party", table.Number).
				WithContext("session_id", active[0].SessionID)
		}
		if !domain.CanTransition(table.Status, domain.TableStatusOccupied) {
			return apperr.Validation("table %s cannot be seated while %s", table.Number, table.Status)
		}

		session, err = tx.GuestSessions().CreateGuestSession(ctx, &domain.GuestSession{
			TableID:    req.TableID,
			GuestCount: req.GuestCount,
			ServerName: toNullString(req.ServerName),
			Notes:      toNullString(req.Notes),
			Status:     domain.GuestSessionSeated,
			SeatedAt:   s.clock.Now().UTC(),
		})
		if err != nil {
			return err
		}
		occupied := domain.TableStatusOccupied
		_, err = tx.Tables().UpdateTable(ctx, req.TableID, repository.TablePatch{Status: &occupied})
		return err
	})
	if err != nil {
		logFailure(s.logger, "Seat failed", err,
			zap.String("table_id", req.TableID),
			zap.Int("guest_count", req.GuestCount),
		)
		return nil, fmt.Errorf("failed to seat guests: %w", err)
	}

	s.logger.Info("Guests seated",
		zap.String("session_id", session.SessionID),
		zap.String("table_id", req.TableID),
		zap.Int("guest_count", req.GuestCount),
	)
	return session, nil
}

// Complete 结束会话：桌台置为 cleaning；临时桌直接删除
func (s *guestSessionService) Complete(ctx context.Context, sessionID string) (*CompleteResponse, error) {
	if sessionID == "" {
		return nil, apperr.Validation("session_id is required")
	}

	resp := &CompleteResponse{}
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.GuestSessions().GetGuestSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if !current.IsSeated() {
			return apperr.Validation("guest session %s is already %s", sessionID, current.Status)
		}
		table, err := tx.Tables().LockTable(ctx, current.TableID)
		if err != nil {
			return err
		}

		completed := domain.GuestSessionCompleted
		now := s.clock.Now().UTC()
		resp.Session, err = tx.GuestSessions().UpdateGuestSession(ctx, sessionID, repository.GuestSessionPatch{
			Status:      &completed,
			CompletedAt: &now,
		})
		if err != nil {
			return err
		}

		if table.IsTemporary() {
			resp.TableRemoved = true
			return tx.Tables().DeleteTable(ctx, table.TableID)
		}
		cleaning := domain.TableStatusCleaning
		resp.Table, err = tx.Tables().UpdateTable(ctx, table.TableID, repository.TablePatch{Status: &cleaning})
		return err
	})
	if err != nil {
		logFailure(s.logger, "Complete failed", err, zap.String("session_id", sessionID))
		return nil, fmt.Errorf("failed to complete guest session: %w", err)
	}

	s.logger.Info("Guest session completed",
		zap.String("session_id", sessionID),
		zap.String("table_id", resp.Session.TableID),
		zap.Bool("table_removed", resp.TableRemoved),
	)
	return resp, nil
}

// ListActive seated 会话，最近入座在前
func (s *guestSessionService) ListActive(ctx context.Context) ([]*domain.GuestSession, error) {
	sessions, err := s.store.GuestSessions().ListGuestSessions(ctx, repository.GuestSessionFilters{
		Status: domain.GuestSessionSeated,
	})
	if err != nil {
		logFailure(s.logger, "ListActive failed", err)
		return nil, fmt.Errorf("failed to list active guest sessions: %w", err)
	}
	return sessions, nil
}

func (s *guestSessionService) GetActiveForTable(ctx context.Context, tableID string) (*domain.GuestSession, error) {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return nil, apperr.Validation("table_id is required")
	}
	sessions, err := s.store.GuestSessions().ListGuestSessions(ctx, repository.GuestSessionFilters{
		TableID: tableID,
		Status:  domain.GuestSessionSeated,
	})
	if err != nil {
		logFailure(s.logger, "GetActiveForTable failed", err, zap.String("table_id", tableID))
		return nil, fmt.Errorf("failed to get active guest session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

func (s *guestSessionService) GetSession(ctx context.Context, sessionID string) (*domain.GuestSession, error) {
	if sessionID == "" {
		return nil, apperr.Validation("session_id is required")
	}
	session, err := s.store.GuestSessions().GetGuestSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guest session: %w", err)
	}
	return session, nil
}

// ListForTable 该桌全部会话（含已完成），最近入座在前
func (s *guestSessionService) ListForTable(ctx context.Context, tableID string) ([]*domain.GuestSession, error) {
	if tableID == "" {
		return nil, apperr.Validation("table_id is required")
	}
	sessions, err := s.store.GuestSessions().ListGuestSessions(ctx, repository.GuestSessionFilters{TableID: tableID})
	if err != nil {
		logFailure(s.logger, "ListForTable failed", err, zap.String("table_id", tableID))
		return nil, fmt.Errorf("failed to list guest sessions: %w", err)
	}
	return sessions, nil
}

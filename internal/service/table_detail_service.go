package service

import (
	"context"
	"fmt"
	"time"

	"floor-data/internal/domain"
	"floor-data/internal/repository"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// TableDetailService 桌台展示聚合（纯读，不缓存，每次按当前状态计算）
type TableDetailService interface {
	ListTableDetails(ctx context.Context, req ListTableDetailsRequest) ([]*domain.TableWithDetails, error)
}

type tableDetailService struct {
	store    repository.Store
	clock    clockwork.Clock
	location *time.Location
	logger   *zap.Logger
}

// NewTableDetailService location 为楼面时区，用于 occupiedSince 与"今天"的判断
func NewTableDetailService(store repository.Store, clock clockwork.Clock, location *time.Location, logger *zap.Logger) TableDetailService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if location == nil {
		location = time.UTC
	}
	return &tableDetailService{
		store:    store,
		clock:    clock,
		location: location,
		logger:   logger,
	}
}

type ListTableDetailsRequest struct {
	RoomID string // 可选
}

func (s *tableDetailService) ListTableDetails(ctx context.Context, req ListTableDetailsRequest) ([]*domain.TableWithDetails, error) {
	tables, err := s.store.Tables().ListTables(ctx, repository.TableFilters{RoomID: req.RoomID})
	if err != nil {
		logFailure(s.logger, "ListTableDetails failed", err, zap.String("room_id", req.RoomID))
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	seated, err := s.store.GuestSessions().ListGuestSessions(ctx, repository.GuestSessionFilters{
		Status: domain.GuestSessionSeated,
	})
	if err != nil {
		logFailure(s.logger, "ListTableDetails failed", err, zap.String("room_id", req.RoomID))
		return nil, fmt.Errorf("failed to list guest sessions: %w", err)
	}
	byTable := make(map[string]*domain.GuestSession, len(seated))
	for _, gs := range seated {
		byTable[gs.TableID] = gs
	}

	today := s.clock.Now().In(s.location)
	out := make([]*domain.TableWithDetails, 0, len(tables))
	for _, t := range tables {
		d := &domain.TableWithDetails{Table: t}
		switch t.Status {
		case domain.TableStatusOccupied:
			if gs, ok := byTable[t.TableID]; ok {
				d.CurrentGuests = gs.GuestCount
				d.Server = gs.ServerName.String
				d.OccupiedSince = gs.SeatedAt.In(s.location).Format("15:04")
			}
		case domain.TableStatusReserved:
			res, err := s.nextReservation(ctx, t.TableID, today)
			if err != nil {
				logFailure(s.logger, "ListTableDetails failed", err, zap.String("table_id", t.TableID))
				return nil, fmt.Errorf("failed to list reservations: %w", err)
			}
			if res != nil {
				d.ReservedFor = fmt.Sprintf("%d guests", res.PartySize)
				d.ReservationTime = reservationWindow(res)
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// nextReservation 该桌已确认预订：优先今天最早的一条，否则最早的一条
func (s *tableDetailService) nextReservation(ctx context.Context, tableID string, today time.Time) (*domain.Reservation, error) {
	list, err := s.store.Reservations().ListReservations(ctx, repository.ReservationFilters{
		TableID: tableID,
		Status:  domain.ReservationConfirmed,
	})
	if err != nil || len(list) == 0 {
		return nil, err
	}
	for _, res := range list {
		if onDay(res.Date, today) {
			return res, nil
		}
	}
	return list[0], nil
}

// onDay 预订日期是纯日期，按年月日比较，不做时区换算
func onDay(date, day time.Time) bool {
	y1, m1, d1 := date.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func reservationWindow(res *domain.Reservation) string {
	if res.EndTime.Valid && res.EndTime.String != "" {
		return res.StartTime + " - " + res.EndTime.String
	}
	return res.StartTime
}

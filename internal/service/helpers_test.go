package service

import (
	"context"
	"testing"
	"time"

	"floor-data/internal/domain"
	"floor-data/internal/repository"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// floorFixture 基于 MemoryStore 的完整服务集合
type floorFixture struct {
	store    *repository.MemoryStore
	clock    *clockwork.FakeClock
	rooms    RoomService
	groups   TableGroupService
	tables   TableService
	layouts  LayoutService
	sessions GuestSessionService
	details  TableDetailService
}

func getTestLogger() *zap.Logger {
	return zap.NewNop()
}

func newFloorFixture(t *testing.T) *floorFixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 1, 30, 0, 0, time.UTC))
	store := repository.NewMemoryStoreWithClock(clock)
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	logger := getTestLogger()
	return &floorFixture{
		store:    store,
		clock:    clock,
		rooms:    NewRoomService(store, logger),
		groups:   NewTableGroupService(store, logger),
		tables:   NewTableService(store, logger),
		layouts:  NewLayoutService(store, nil, logger),
		sessions: NewGuestSessionService(store, clock, logger),
		details:  NewTableDetailService(store, clock, denver, logger),
	}
}

func (f *floorFixture) createRoom(t *testing.T, name string) *domain.Room {
	t.Helper()
	room, err := f.rooms.CreateRoom(context.Background(), CreateRoomRequest{Name: name})
	require.NoError(t, err)
	return room
}

func (f *floorFixture) createTable(t *testing.T, req CreateTableRequest) *domain.Table {
	t.Helper()
	if req.Capacity == 0 {
		req.Capacity = 4
	}
	table, err := f.tables.CreateTable(context.Background(), req)
	require.NoError(t, err)
	return table
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

func boolPtr(b bool) *bool { return &b }

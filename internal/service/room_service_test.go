package service

import (
	"context"
	"errors"
	"testing"

	"floor-data/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomService_CreateDefaultsActive(t *testing.T) {
	f := newFloorFixture(t)

	room, err := f.rooms.CreateRoom(context.Background(), CreateRoomRequest{Name: "  Patio ", Description: "outdoor"})
	require.NoError(t, err)
	assert.Equal(t, "Patio", room.Name)
	assert.True(t, room.IsActive)
	assert.Equal(t, "outdoor", room.Description.String)
}

func TestRoomService_CreateRequiresName(t *testing.T) {
	f := newFloorFixture(t)

	_, err := f.rooms.CreateRoom(context.Background(), CreateRoomRequest{Name: "   "})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestRoomService_ListActive(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()

	f.createRoom(t, "Patio")
	_, err := f.rooms.CreateRoom(ctx, CreateRoomRequest{Name: "Closed Wing", IsActive: boolPtr(false)})
	require.NoError(t, err)

	all, err := f.rooms.ListRooms(ctx, ListRoomsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	active, err := f.rooms.ListRooms(ctx, ListRoomsRequest{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active.Items, 1)
	assert.Equal(t, "Patio", active.Items[0].Name)
}

func TestRoomService_UpdatePartial(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()
	room, err := f.rooms.CreateRoom(ctx, CreateRoomRequest{Name: "Patio", Description: "outdoor"})
	require.NoError(t, err)

	updated, err := f.rooms.UpdateRoom(ctx, UpdateRoomRequest{RoomID: room.RoomID, IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Patio", updated.Name)
	assert.Equal(t, "outdoor", updated.Description.String)

	cleared, err := f.rooms.UpdateRoom(ctx, UpdateRoomRequest{RoomID: room.RoomID, Description: strPtr("")})
	require.NoError(t, err)
	assert.False(t, cleared.Description.Valid)

	_, err = f.rooms.UpdateRoom(ctx, UpdateRoomRequest{RoomID: room.RoomID, Name: strPtr("")})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

// Delete Patio while table #5 references it, then after removing the table
func TestRoomService_DeleteGuardedByTables(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()

	patio := f.createRoom(t, "Patio")
	table := f.createTable(t, CreateTableRequest{Number: "5", RoomID: patio.RoomID})

	err := f.rooms.DeleteRoom(ctx, patio.RoomID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	_, err = f.rooms.GetRoom(ctx, patio.RoomID)
	require.NoError(t, err, "room must survive a rejected delete")

	require.NoError(t, f.tables.DeleteTable(ctx, table.TableID))
	require.NoError(t, f.rooms.DeleteRoom(ctx, patio.RoomID))

	_, err = f.rooms.GetRoom(ctx, patio.RoomID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestRoomService_DeleteGuardedByGroups(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()

	patio := f.createRoom(t, "Patio")
	group, err := f.groups.CreateTableGroup(ctx, CreateTableGroupRequest{Name: "Fountain", RoomID: patio.RoomID})
	require.NoError(t, err)

	err = f.rooms.DeleteRoom(ctx, patio.RoomID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	require.NoError(t, f.groups.DeleteTableGroup(ctx, group.GroupID))
	assert.NoError(t, f.rooms.DeleteRoom(ctx, patio.RoomID))
}

func TestRoomService_DeleteRemovesRoomLayouts(t *testing.T) {
	f := newFloorFixture(t)
	ctx := context.Background()

	patio := f.createRoom(t, "Patio")
	layout, err := f.layouts.CreateLayout(ctx, CreateLayoutRequest{Name: "Summer", RoomID: patio.RoomID, IsActive: true})
	require.NoError(t, err)

	require.NoError(t, f.rooms.DeleteRoom(ctx, patio.RoomID))
	_, err = f.layouts.GetLayout(ctx, layout.LayoutID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestRoomService_DeleteMissing(t *testing.T) {
	f := newFloorFixture(t)
	err := f.rooms.DeleteRoom(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRoomID   = "0b7e6d36-6a5c-4d1e-9a38-0c1b9a4f2e11"
	testTableID  = "5f2c1a8e-3b4d-4c6e-8f7a-9b0c1d2e3f40"
	testLayoutID = "9a8b7c6d-5e4f-4a3b-9c2d-1e0f9a8b7c6d"
)

var testNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func setupMockStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresStore(db)
}

func tableRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"table_id", "table_number", "capacity", "status", "room_id", "group_id", "location",
		"position_x", "position_y", "width", "height", "rotation", "shape", "created_at", "updated_at",
	})
}

func layoutRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"layout_id", "name", "room_id", "is_active", "layout_data", "created_at", "updated_at"})
}

func TestPostgresRooms_GetRoom_Success(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"room_id", "name", "description", "is_active", "created_at", "updated_at"}).
		AddRow(testRoomID, "Patio", nil, true, testNow, testNow)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM rooms WHERE room_id = $1`)).
		WithArgs(testRoomID).
		WillReturnRows(rows)

	room, err := store.Rooms().GetRoom(context.Background(), testRoomID)
	require.NoError(t, err)
	assert.Equal(t, "Patio", room.Name)
	assert.False(t, room.Description.Valid)
	assert.True(t, room.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRooms_GetRoom_NotFound(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM rooms WHERE room_id = $1`)).
		WithArgs(testRoomID).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Rooms().GetRoom(context.Background(), testRoomID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRooms_GetRoom_MalformedIDSkipsQuery(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	_, err := store.Rooms().GetRoom(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRooms_DeleteRoom_ForeignKeyConflict(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM rooms WHERE room_id = $1`)).
		WithArgs(testRoomID).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "restaurant_tables_room_id_fkey"})

	err := store.Rooms().DeleteRoom(context.Background(), testRoomID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Contains(t, err.Error(), "restaurant_tables_room_id_fkey")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRooms_DeleteRoom_NoRows(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM rooms WHERE room_id = $1`)).
		WithArgs(testRoomID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Rooms().DeleteRoom(context.Background(), testRoomID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestPostgresTables_UpdateTable_PartialGeometry(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	x, rot := 120.0, 45.0
	rows := tableRows().AddRow(testTableID, "4", 4, "available", nil, nil, nil,
		x, 0.0, 80.0, 80.0, rot, "circle", testNow, testNow)
	mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE restaurant_tables SET position_x = $2, rotation = $3, updated_at = NOW() WHERE table_id = $1 RETURNING`)).
		WithArgs(testTableID, x, rot).
		WillReturnRows(rows)

	table, err := store.Tables().UpdateTable(context.Background(), testTableID, TablePatch{PositionX: &x, Rotation: &rot})
	require.NoError(t, err)
	assert.Equal(t, x, table.PositionX)
	assert.Equal(t, rot, table.Rotation)
	assert.Equal(t, 80.0, table.Width)
	assert.Equal(t, domain.ShapeCircle, table.Shape)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTables_UpdateTable_ClearsNullableColumns(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	empty := ""
	rows := tableRows().AddRow(testTableID, "4", 4, "available", nil, nil, nil,
		0.0, 0.0, 80.0, 80.0, 0.0, "rectangle", testNow, testNow)
	mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE restaurant_tables SET room_id = NULL, group_id = NULL, updated_at = NOW() WHERE table_id = $1`)).
		WithArgs(testTableID).
		WillReturnRows(rows)

	_, err := store.Tables().UpdateTable(context.Background(), testTableID, TablePatch{RoomID: &empty, GroupID: &empty})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTables_CreateTable_DuplicateNumber(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO restaurant_tables`)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_table_number"})

	_, err := store.Tables().CreateTable(context.Background(), &domain.Table{Number: "4", Capacity: 4, Geometry: domain.DefaultGeometry()})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTables_CountTablesByStatus(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("available", 3).
		AddRow("occupied", 1)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, COUNT(*) FROM restaurant_tables GROUP BY status`)).
		WillReturnRows(rows)

	counts, err := store.Tables().CountTablesByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[domain.TableStatusAvailable])
	assert.Equal(t, 1, counts[domain.TableStatusOccupied])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTables_ListTables_Filters(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM restaurant_tables WHERE room_id::text = $1 AND status = $2 ORDER BY`)).
		WithArgs(testRoomID, "occupied").
		WillReturnRows(tableRows())

	tables, err := store.Tables().ListTables(context.Background(), TableFilters{RoomID: testRoomID, Status: domain.TableStatusOccupied})
	require.NoError(t, err)
	assert.Empty(t, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InTx_ActivateLayoutGlobal(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
		WithArgs("table_layouts:global").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`room_id IS NOT DISTINCT FROM $1::uuid`)).
		WithArgs(nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE table_layouts SET is_active = $2, updated_at = NOW() WHERE layout_id = $1`)).
		WithArgs(testLayoutID, true).
		WillReturnRows(layoutRows().AddRow(testLayoutID, "Brunch", nil, true, nil, testNow, testNow))
	mock.ExpectCommit()

	var activated *domain.TableLayout
	err := store.InTx(context.Background(), func(tx Store) error {
		scope := domain.LayoutScope{}
		if err := tx.Layouts().LockScope(context.Background(), scope); err != nil {
			return err
		}
		n, err := tx.Layouts().DeactivateScope(context.Background(), scope)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(1), n)
		activated, err = tx.Layouts().SetLayoutActive(context.Background(), testLayoutID, true)
		return err
	})
	require.NoError(t, err)
	assert.True(t, activated.IsActive)
	assert.True(t, activated.Scope().IsGlobal())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InTx_RollbackOnError(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := apperr.Validation("nope")
	err := store.InTx(context.Background(), func(tx Store) error {
		return boom
	})
	assert.Equal(t, boom, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InTx_BeginFailure(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := store.InTx(context.Background(), func(tx Store) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.True(t, errors.Is(err, apperr.ErrPersistence))
}

func TestPostgresGuestSessions_UpdateWithoutUpdatedAt(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	sessionID := "3c4d5e6f-7a8b-4c9d-8e0f-1a2b3c4d5e6f"
	completed := domain.GuestSessionCompleted
	completedAt := testNow.Add(time.Hour)

	rows := sqlmock.NewRows([]string{"session_id", "table_id", "guest_count", "server_name", "notes", "status", "seated_at", "completed_at"}).
		AddRow(sessionID, testTableID, 2, "Ana", nil, "completed", testNow, completedAt)
	mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE guest_sessions SET status = $2, completed_at = $3 WHERE session_id = $1 RETURNING`)).
		WithArgs(sessionID, "completed", completedAt).
		WillReturnRows(rows)

	s, err := store.GuestSessions().UpdateGuestSession(context.Background(), sessionID, GuestSessionPatch{
		Status: &completed, CompletedAt: &completedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.GuestSessionCompleted, s.Status)
	assert.True(t, s.CompletedAt.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReservations_ListByTableAndDate(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"reservation_id", "table_id", "customer_name", "customer_phone", "party_size",
		"reservation_date", "start_time", "end_time", "status",
	}).AddRow("r-1", testTableID, "Kim", nil, 4, day, "19:00", "21:00", "confirmed")

	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE table_id::text = $1 AND status = $2 AND reservation_date = $3::date`)).
		WithArgs(testTableID, "confirmed", "2026-03-14").
		WillReturnRows(rows)

	out, err := store.Reservations().ListReservations(context.Background(), ReservationFilters{
		TableID: testTableID, Status: domain.ReservationConfirmed, Date: day,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "19:00", out[0].StartTime)
	assert.Equal(t, "21:00", out[0].EndTime.String)
	assert.Equal(t, 4, out[0].PartySize)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError("op", nil))
	assert.True(t, errors.Is(translateError("op", &pq.Error{Code: "23514"}), apperr.ErrValidation))
	assert.True(t, errors.Is(translateError("op", errors.New("io")), apperr.ErrPersistence))

	nf := apperr.NotFound("x")
	assert.Equal(t, error(nf), translateError("op", nf))
}

func TestPostgresRooms_StandaloneRepository_ListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"room_id", "name", "description", "is_active", "created_at", "updated_at"}).
		AddRow(testRoomID, "Patio", "outside", true, testNow, testNow)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM rooms WHERE is_active = TRUE ORDER BY name`)).
		WillReturnRows(rows)

	rooms, err := NewPostgresRoomsRepository(db).ListRooms(context.Background(), RoomFilters{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "outside", rooms[0].Description.String)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"
)

type PostgresRoomsRepository struct {
	q dbtx
}

func NewPostgresRoomsRepository(db *sql.DB) *PostgresRoomsRepository {
	return &PostgresRoomsRepository{q: db}
}

const roomColumns = `room_id::text, name, description, is_active, created_at, updated_at`

func scanRoom(row rowScanner) (*domain.Room, error) {
	var r domain.Room
	if err := row.Scan(&r.RoomID, &r.Name, &r.Description, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *PostgresRoomsRepository) ListRooms(ctx context.Context, filters RoomFilters) ([]*domain.Room, error) {
	w := &whereBuilder{}
	if filters.ActiveOnly {
		w.addRaw("is_active = TRUE")
	}
	q := `SELECT ` + roomColumns + ` FROM rooms` + w.clause() + ` ORDER BY name`
	rows, err := r.q.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, translateError("list rooms", err)
	}
	defer rows.Close()

	out := []*domain.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, translateError("scan room", err)
		}
		out = append(out, room)
	}
	return out, translateError("list rooms", rows.Err())
}

func (r *PostgresRoomsRepository) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	if !validID(roomID) {
		return nil, apperr.NotFound("room not found: room_id=%s", roomID)
	}
	room, err := scanRoom(r.q.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE room_id = $1`, roomID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("room not found: room_id=%s", roomID)
	}
	if err != nil {
		return nil, translateError("get room", err)
	}
	return room, nil
}

func (r *PostgresRoomsRepository) CreateRoom(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	q := `
		INSERT INTO rooms (name, description, is_active)
		VALUES ($1, $2, $3)
		RETURNING ` + roomColumns
	out, err := scanRoom(r.q.QueryRowContext(ctx, q, room.Name, room.Description, room.IsActive))
	if err != nil {
		return nil, translateError("create room", err)
	}
	return out, nil
}

func (r *PostgresRoomsRepository) UpdateRoom(ctx context.Context, roomID string, patch RoomPatch) (*domain.Room, error) {
	if !validID(roomID) {
		return nil, apperr.NotFound("room not found: room_id=%s", roomID)
	}
	b := newUpdateBuilder(roomID)
	if patch.Name != nil {
		b.add("name", *patch.Name)
	}
	b.nullable("description", patch.Description, "")
	if patch.IsActive != nil {
		b.add("is_active", *patch.IsActive)
	}
	if b.empty() {
		return r.GetRoom(ctx, roomID)
	}

	out, err := scanRoom(r.q.QueryRowContext(ctx, b.query("rooms", "room_id", roomColumns), b.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("room not found: room_id=%s", roomID)
	}
	if err != nil {
		return nil, translateError("update room", err)
	}
	return out, nil
}

// DeleteRoom: table_layouts 依赖 DB CASCADE；被桌台/分组引用时 FK 23503 → Conflict
func (r *PostgresRoomsRepository) DeleteRoom(ctx context.Context, roomID string) error {
	if !validID(roomID) {
		return apperr.NotFound("room not found: room_id=%s", roomID)
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = $1`, roomID)
	if err != nil {
		return translateError("delete room", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("room not found: room_id=%s", roomID)
	}
	return nil
}

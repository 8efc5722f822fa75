package repository

import (
	"context"
	"database/sql"
	"errors"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"
)

type PostgresTablesRepository struct {
	q dbtx
}

func NewPostgresTablesRepository(db *sql.DB) *PostgresTablesRepository {
	return &PostgresTablesRepository{q: db}
}

const tableColumns = `table_id::text, table_number, capacity, status, room_id::text, group_id::text, location,
	position_x, position_y, width, height, rotation, shape, created_at, updated_at`

// 纯数字桌号按数值在前，其余按字符串
const tableOrder = ` ORDER BY (table_number ~ '^[0-9]+$') DESC,
	CASE WHEN table_number ~ '^[0-9]+$' THEN table_number::numeric END,
	table_number`

func scanTable(row rowScanner) (*domain.Table, error) {
	var t domain.Table
	var status, shape string
	if err := row.Scan(
		&t.TableID, &t.Number, &t.Capacity, &status, &t.RoomID, &t.GroupID, &t.Location,
		&t.PositionX, &t.PositionY, &t.Width, &t.Height, &t.Rotation, &shape,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = domain.TableStatus(status)
	t.Shape = domain.TableShape(shape)
	return &t, nil
}

func tableWhere(filters TableFilters) *whereBuilder {
	w := &whereBuilder{}
	if filters.RoomID != "" {
		w.add("room_id::text = $%d", filters.RoomID)
	}
	if filters.GroupID != "" {
		w.add("group_id::text = $%d", filters.GroupID)
	}
	if filters.Status != "" {
		w.add("status = $%d", string(filters.Status))
	}
	return w
}

func (r *PostgresTablesRepository) ListTables(ctx context.Context, filters TableFilters) ([]*domain.Table, error) {
	w := tableWhere(filters)
	q := `SELECT ` + tableColumns + ` FROM restaurant_tables` + w.clause() + tableOrder
	rows, err := r.q.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, translateError("list tables", err)
	}
	defer rows.Close()

	out := []*domain.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, translateError("scan table", err)
		}
		out = append(out, t)
	}
	return out, translateError("list tables", rows.Err())
}

func (r *PostgresTablesRepository) CountTables(ctx context.Context, filters TableFilters) (int, error) {
	w := tableWhere(filters)
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM restaurant_tables`+w.clause(), w.args...).Scan(&n); err != nil {
		return 0, translateError("count tables", err)
	}
	return n, nil
}

func (r *PostgresTablesRepository) CountTablesByStatus(ctx context.Context) (map[domain.TableStatus]int, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM restaurant_tables GROUP BY status`)
	if err != nil {
		return nil, translateError("count tables by status", err)
	}
	defer rows.Close()

	out := map[domain.TableStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, translateError("scan table status count", err)
		}
		out[domain.TableStatus(status)] = n
	}
	return out, translateError("count tables by status", rows.Err())
}

func (r *PostgresTablesRepository) getTable(ctx context.Context, tableID, suffix string) (*domain.Table, error) {
	if !validID(tableID) {
		return nil, apperr.NotFound("table not found: table_id=%s", tableID)
	}
	t, err := scanTable(r.q.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM restaurant_tables WHERE table_id = $1`+suffix, tableID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("table not found: table_id=%s", tableID)
	}
	if err != nil {
		return nil, translateError("get table", err)
	}
	return t, nil
}

func (r *PostgresTablesRepository) GetTable(ctx context.Context, tableID string) (*domain.Table, error) {
	return r.getTable(ctx, tableID, "")
}

// LockTable SELECT ... FOR UPDATE，行锁持有到事务结束
func (r *PostgresTablesRepository) LockTable(ctx context.Context, tableID string) (*domain.Table, error) {
	return r.getTable(ctx, tableID, " FOR UPDATE")
}

func (r *PostgresTablesRepository) CreateTable(ctx context.Context, table *domain.Table) (*domain.Table, error) {
	status := table.Status
	if status == "" {
		status = domain.TableStatusAvailable
	}
	q := `
		INSERT INTO restaurant_tables (
			table_number, capacity, status, room_id, group_id, location,
			position_x, position_y, width, height, rotation, shape
		)
		VALUES ($1, $2, $3, $4::uuid, $5::uuid, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + tableColumns
	out, err := scanTable(r.q.QueryRowContext(ctx, q,
		table.Number, table.Capacity, string(status),
		nullableUUID(table.RoomID), nullableUUID(table.GroupID), table.Location,
		table.PositionX, table.PositionY, table.Width, table.Height, table.Rotation, string(table.Shape),
	))
	if err != nil {
		return nil, translateError("create table", err)
	}
	return out, nil
}

func (r *PostgresTablesRepository) UpdateTable(ctx context.Context, tableID string, patch TablePatch) (*domain.Table, error) {
	if !validID(tableID) {
		return nil, apperr.NotFound("table not found: table_id=%s", tableID)
	}
	b := newUpdateBuilder(tableID)
	if patch.Number != nil {
		b.add("table_number", *patch.Number)
	}
	if patch.Capacity != nil {
		b.add("capacity", *patch.Capacity)
	}
	if patch.Status != nil {
		b.add("status", string(*patch.Status))
	}
	b.nullable("room_id", patch.RoomID, "uuid")
	b.nullable("group_id", patch.GroupID, "uuid")
	b.nullable("location", patch.Location, "")
	if patch.PositionX != nil {
		b.add("position_x", *patch.PositionX)
	}
	if patch.PositionY != nil {
		b.add("position_y", *patch.PositionY)
	}
	if patch.Width != nil {
		b.add("width", *patch.Width)
	}
	if patch.Height != nil {
		b.add("height", *patch.Height)
	}
	if patch.Rotation != nil {
		b.add("rotation", *patch.Rotation)
	}
	if patch.Shape != nil {
		b.add("shape", string(*patch.Shape))
	}
	if b.empty() {
		return r.GetTable(ctx, tableID)
	}

	out, err := scanTable(r.q.QueryRowContext(ctx, b.query("restaurant_tables", "table_id", tableColumns), b.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("table not found: table_id=%s", tableID)
	}
	if err != nil {
		return nil, translateError("update table", err)
	}
	return out, nil
}

// DeleteTable: guest_sessions 依赖 DB CASCADE
func (r *PostgresTablesRepository) DeleteTable(ctx context.Context, tableID string) error {
	if !validID(tableID) {
		return apperr.NotFound("table not found: table_id=%s", tableID)
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM restaurant_tables WHERE table_id = $1`, tableID)
	if err != nil {
		return translateError("delete table", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("table not found: table_id=%s", tableID)
	}
	return nil
}

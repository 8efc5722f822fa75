package repository

import (
	"context"
	"database/sql"
	"errors"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"
)

type PostgresTableGroupsRepository struct {
	q dbtx
}

func NewPostgresTableGroupsRepository(db *sql.DB) *PostgresTableGroupsRepository {
	return &PostgresTableGroupsRepository{q: db}
}

const tableGroupColumns = `group_id::text, name, description, room_id::text, created_at, updated_at`

func scanTableGroup(row rowScanner) (*domain.TableGroup, error) {
	var g domain.TableGroup
	if err := row.Scan(&g.GroupID, &g.Name, &g.Description, &g.RoomID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func groupWhere(filters TableGroupFilters) *whereBuilder {
	w := &whereBuilder{}
	if filters.RoomID != "" {
		w.add("room_id::text = $%d", filters.RoomID)
	}
	return w
}

func (r *PostgresTableGroupsRepository) ListTableGroups(ctx context.Context, filters TableGroupFilters) ([]*domain.TableGroup, error) {
	w := groupWhere(filters)
	q := `SELECT ` + tableGroupColumns + ` FROM table_groups` + w.clause() + ` ORDER BY name`
	rows, err := r.q.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, translateError("list table groups", err)
	}
	defer rows.Close()

	out := []*domain.TableGroup{}
	for rows.Next() {
		g, err := scanTableGroup(rows)
		if err != nil {
			return nil, translateError("scan table group", err)
		}
		out = append(out, g)
	}
	return out, translateError("list table groups", rows.Err())
}

func (r *PostgresTableGroupsRepository) CountTableGroups(ctx context.Context, filters TableGroupFilters) (int, error) {
	w := groupWhere(filters)
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM table_groups`+w.clause(), w.args...).Scan(&n); err != nil {
		return 0, translateError("count table groups", err)
	}
	return n, nil
}

func (r *PostgresTableGroupsRepository) GetTableGroup(ctx context.Context, groupID string) (*domain.TableGroup, error) {
	if !validID(groupID) {
		return nil, apperr.NotFound("table group not found: group_id=%s", groupID)
	}
	g, err := scanTableGroup(r.q.QueryRowContext(ctx,
		`SELECT `+tableGroupColumns+` FROM table_groups WHERE group_id = $1`, groupID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("table group not found: group_id=%s", groupID)
	}
	if err != nil {
		return nil, translateError("get table group", err)
	}
	return g, nil
}

func (r *PostgresTableGroupsRepository) CreateTableGroup(ctx context.Context, group *domain.TableGroup) (*domain.TableGroup, error) {
	q := `
		INSERT INTO table_groups (name, description, room_id)
		VALUES ($1, $2, $3::uuid)
		RETURNING ` + tableGroupColumns
	out, err := scanTableGroup(r.q.QueryRowContext(ctx, q, group.Name, group.Description, nullableUUID(group.RoomID)))
	if err != nil {
		return nil, translateError("create table group", err)
	}
	return out, nil
}

func (r *PostgresTableGroupsRepository) UpdateTableGroup(ctx context.Context, groupID string, patch TableGroupPatch) (*domain.TableGroup, error) {
	if !validID(groupID) {
		return nil, apperr.NotFound("table group not found: group_id=%s", groupID)
	}
	b := newUpdateBuilder(groupID)
	if patch.Name != nil {
		b.add("name", *patch.Name)
	}
	b.nullable("description", patch.Description, "")
	b.nullable("room_id", patch.RoomID, "uuid")
	if b.empty() {
		return r.GetTableGroup(ctx, groupID)
	}

	out, err := scanTableGroup(r.q.QueryRowContext(ctx, b.query("table_groups", "group_id", tableGroupColumns), b.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("table group not found: group_id=%s", groupID)
	}
	if err != nil {
		return nil, translateError("update table group", err)
	}
	return out, nil
}

func (r *PostgresTableGroupsRepository) DeleteTableGroup(ctx context.Context, groupID string) error {
	if !validID(groupID) {
		return apperr.NotFound("table group not found: group_id=%s", groupID)
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM table_groups WHERE group_id = $1`, groupID)
	if err != nil {
		return translateError("delete table group", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("table group not found: group_id=%s", groupID)
	}
	return nil
}

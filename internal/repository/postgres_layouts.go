package repository

import (
	"context"
	"database/sql"
	"errors"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"
)

type PostgresLayoutsRepository struct {
	q dbtx
}

func NewPostgresLayoutsRepository(db *sql.DB) *PostgresLayoutsRepository {
	return &PostgresLayoutsRepository{q: db}
}

const layoutColumns = `layout_id::text, name, room_id::text, is_active, layout_data::text, created_at, updated_at`

func scanLayout(row rowScanner) (*domain.TableLayout, error) {
	var l domain.TableLayout
	if err := row.Scan(&l.LayoutID, &l.Name, &l.RoomID, &l.IsActive, &l.LayoutData, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PostgresLayoutsRepository) ListLayouts(ctx context.Context, filters LayoutFilters) ([]*domain.TableLayout, error) {
	w := &whereBuilder{}
	if filters.Scope != nil {
		if filters.Scope.IsGlobal() {
			w.addRaw("room_id IS NULL")
		} else {
			w.add("room_id::text = $%d", filters.Scope.RoomID.String)
		}
	}
	if filters.ActiveOnly {
		w.addRaw("is_active = TRUE")
	}
	q := `SELECT ` + layoutColumns + ` FROM table_layouts` + w.clause() + ` ORDER BY name, layout_id`
	rows, err := r.q.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, translateError("list layouts", err)
	}
	defer rows.Close()

	out := []*domain.TableLayout{}
	for rows.Next() {
		l, err := scanLayout(rows)
		if err != nil {
			return nil, translateError("scan layout", err)
		}
		out = append(out, l)
	}
	return out, translateError("list layouts", rows.Err())
}

func (r *PostgresLayoutsRepository) GetLayout(ctx context.Context, layoutID string) (*domain.TableLayout, error) {
	if !validID(layoutID) {
		return nil, apperr.NotFound("layout not found: layout_id=%s", layoutID)
	}
	l, err := scanLayout(r.q.QueryRowContext(ctx,
		`SELECT `+layoutColumns+` FROM table_layouts WHERE layout_id = $1`, layoutID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("layout not found: layout_id=%s", layoutID)
	}
	if err != nil {
		return nil, translateError("get layout", err)
	}
	return l, nil
}

func (r *PostgresLayoutsRepository) CreateLayout(ctx context.Context, layout *domain.TableLayout) (*domain.TableLayout, error) {
	q := `
		INSERT INTO table_layouts (name, room_id, is_active, layout_data)
		VALUES ($1, $2::uuid, $3, $4::jsonb)
		RETURNING ` + layoutColumns
	out, err := scanLayout(r.q.QueryRowContext(ctx, q,
		layout.Name, nullableUUID(layout.RoomID), layout.IsActive, layout.LayoutData))
	if err != nil {
		return nil, translateError("create layout", err)
	}
	return out, nil
}

func (r *PostgresLayoutsRepository) UpdateLayout(ctx context.Context, layoutID string, patch LayoutPatch) (*domain.TableLayout, error) {
	if !validID(layoutID) {
		return nil, apperr.NotFound("layout not found: layout_id=%s", layoutID)
	}
	b := newUpdateBuilder(layoutID)
	if patch.Name != nil {
		b.add("name", *patch.Name)
	}
	b.nullable("layout_data", patch.LayoutData, "jsonb")
	if b.empty() {
		return r.GetLayout(ctx, layoutID)
	}

	out, err := scanLayout(r.q.QueryRowContext(ctx, b.query("table_layouts", "layout_id", layoutColumns), b.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("layout not found: layout_id=%s", layoutID)
	}
	if err != nil {
		return nil, translateError("update layout", err)
	}
	return out, nil
}

func (r *PostgresLayoutsRepository) DeleteLayout(ctx context.Context, layoutID string) error {
	if !validID(layoutID) {
		return apperr.NotFound("layout not found: layout_id=%s", layoutID)
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM table_layouts WHERE layout_id = $1`, layoutID)
	if err != nil {
		return translateError("delete layout", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("layout not found: layout_id=%s", layoutID)
	}
	return nil
}

// LockScope 事务级 advisory lock（提交/回滚时自动释放）
func (r *PostgresLayoutsRepository) LockScope(ctx context.Context, scope domain.LayoutScope) error {
	if _, err := r.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "table_layouts:"+scope.Key()); err != nil {
		return translateError("lock layout scope", err)
	}
	return nil
}

func (r *PostgresLayoutsRepository) DeactivateScope(ctx context.Context, scope domain.LayoutScope) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE table_layouts
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active = TRUE AND room_id IS NOT DISTINCT FROM $1::uuid`,
		nullableUUID(scope.RoomID))
	if err != nil {
		return 0, translateError("deactivate layout scope", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, translateError("deactivate layout scope", err)
	}
	return n, nil
}

func (r *PostgresLayoutsRepository) SetLayoutActive(ctx context.Context, layoutID string, active bool) (*domain.TableLayout, error) {
	if !validID(layoutID) {
		return nil, apperr.NotFound("layout not found: layout_id=%s", layoutID)
	}
	b := newUpdateBuilder(layoutID)
	b.add("is_active", active)
	out, err := scanLayout(r.q.QueryRowContext(ctx, b.query("table_layouts", "layout_id", layoutColumns), b.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("layout not found: layout_id=%s", layoutID)
	}
	if err != nil {
		return nil, translateError("set layout active", err)
	}
	return out, nil
}

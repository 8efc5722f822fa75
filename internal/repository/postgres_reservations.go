package repository

import (
	"context"
	"database/sql"
	"errors"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"
)

// PostgresReservationsRepository 只读：reservations 由外部预订流程维护
type PostgresReservationsRepository struct {
	q dbtx
}

func NewPostgresReservationsRepository(db *sql.DB) *PostgresReservationsRepository {
	return &PostgresReservationsRepository{q: db}
}

// TIME 列以 "HH:MM" 文本读出（lib/pq 会把 TIME 解析成 0000-01-01 的 time.Time）
const reservationColumns = `reservation_id::text, table_id::text, customer_name, customer_phone, party_size,
	reservation_date, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), status`

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var res domain.Reservation
	var status string
	if err := row.Scan(
		&res.ReservationID, &res.TableID, &res.CustomerName, &res.CustomerPhone, &res.PartySize,
		&res.Date, &res.StartTime, &res.EndTime, &status,
	); err != nil {
		return nil, err
	}
	res.Status = domain.ReservationStatus(status)
	return &res, nil
}

func (r *PostgresReservationsRepository) ListReservations(ctx context.Context, filters ReservationFilters) ([]*domain.Reservation, error) {
	w := &whereBuilder{}
	if filters.TableID != "" {
		w.add("table_id::text = $%d", filters.TableID)
	}
	if filters.Status != "" {
		w.add("status = $%d", string(filters.Status))
	}
	if !filters.Date.IsZero() {
		w.add("reservation_date = $%d::date", filters.Date.Format("2006-01-02"))
	}
	q := `SELECT ` + reservationColumns + ` FROM reservations` + w.clause() + ` ORDER BY reservation_date, start_time`
	rows, err := r.q.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, translateError("list reservations", err)
	}
	defer rows.Close()

	out := []*domain.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, translateError("scan reservation", err)
		}
		out = append(out, res)
	}
	return out, translateError("list reservations", rows.Err())
}

func (r *PostgresReservationsRepository) GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	if !validID(reservationID) {
		return nil, apperr.NotFound("reservation not found: reservation_id=%s", reservationID)
	}
	res, err := scanReservation(r.q.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE reservation_id = $1`, reservationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("reservation not found: reservation_id=%s", reservationID)
	}
	if err != nil {
		return nil, translateError("get reservation", err)
	}
	return res, nil
}

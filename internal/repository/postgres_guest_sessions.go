package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"
)

type PostgresGuestSessionsRepository struct {
	q dbtx
}

func NewPostgresGuestSessionsRepository(db *sql.DB) *PostgresGuestSessionsRepository {
	return &PostgresGuestSessionsRepository{q: db}
}

const guestSessionColumns = `session_id::text, table_id::text, guest_count, server_name, notes, status, seated_at, completed_at`

func scanGuestSession(row rowScanner) (*domain.GuestSession, error) {
	var s domain.GuestSession
	var status string
	if err := row.Scan(&s.SessionID, &s.TableID, &s.GuestCount, &s.ServerName, &s.Notes, &status, &s.SeatedAt, &s.CompletedAt); err != nil {
		return nil, err
	}
	s.Status = domain.GuestSessionStatus(status)
	return &s, nil
}

func (r *PostgresGuestSessionsRepository) ListGuestSessions(ctx context.Context, filters GuestSessionFilters) ([]*domain.GuestSession, error) {
	w := &whereBuilder{}
	if filters.TableID != "" {
		w.add("table_id::text = $%d", filters.TableID)
	}
	if filters.Status != "" {
		w.add("status = $%d", string(filters.Status))
	}
	q := `SELECT ` + guestSessionColumns + ` FROM guest_sessions` + w.clause() + ` ORDER BY seated_at DESC, session_id DESC`
	rows, err := r.q.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, translateError("list guest sessions", err)
	}
	defer rows.Close()

	out := []*domain.GuestSession{}
	for rows.Next() {
		s, err := scanGuestSession(rows)
		if err != nil {
			return nil, translateError("scan guest session", err)
		}
		out = append(out, s)
	}
	return out, translateError("list guest sessions", rows.Err())
}

func (r *PostgresGuestSessionsRepository) GetGuestSession(ctx context.Context, sessionID string) (*domain.GuestSession, error) {
	if !validID(sessionID) {
		return nil, apperr.NotFound("guest session not found: session_id=%s", sessionID)
	}
	s, err := scanGuestSession(r.q.QueryRowContext(ctx,
		`SELECT `+guestSessionColumns+` FROM guest_sessions WHERE session_id = $1`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("guest session not found: session_id=%s", sessionID)
	}
	if err != nil {
		return nil, translateError("get guest session", err)
	}
	return s, nil
}

func (r *PostgresGuestSessionsRepository) CreateGuestSession(ctx context.Context, session *domain.GuestSession) (*domain.GuestSession, error) {
	status := session.Status
	if status == "" {
		status = domain.GuestSessionSeated
	}
	seatedAt := sql.NullTime{Time: session.SeatedAt, Valid: !session.SeatedAt.IsZero()}
	q := `
		INSERT INTO guest_sessions (table_id, guest_count, server_name, notes, status, seated_at)
		VALUES ($1::uuid, $2, $3, $4, $5, COALESCE($6, NOW()))
		RETURNING ` + guestSessionColumns
	out, err := scanGuestSession(r.q.QueryRowContext(ctx, q,
		session.TableID, session.GuestCount, session.ServerName, session.Notes, string(status), seatedAt))
	if err != nil {
		return nil, translateError("create guest session", err)
	}
	return out, nil
}

// UpdateGuestSession guest_sessions 无 updated_at 列
func (r *PostgresGuestSessionsRepository) UpdateGuestSession(ctx context.Context, sessionID string, patch GuestSessionPatch) (*domain.GuestSession, error) {
	if !validID(sessionID) {
		return nil, apperr.NotFound("guest session not found: session_id=%s", sessionID)
	}
	b := newUpdateBuilder(sessionID)
	if patch.Status != nil {
		b.add("status", string(*patch.Status))
	}
	if patch.CompletedAt != nil {
		b.add("completed_at", *patch.CompletedAt)
	}
	if patch.GuestCount != nil {
		b.add("guest_count", *patch.GuestCount)
	}
	b.nullable("server_name", patch.ServerName, "")
	b.nullable("notes", patch.Notes, "")
	if b.empty() {
		return r.GetGuestSession(ctx, sessionID)
	}

	q := "UPDATE guest_sessions SET " + strings.Join(b.set, ", ") +
		" WHERE session_id = $1 RETURNING " + guestSessionColumns
	out, err := scanGuestSession(r.q.QueryRowContext(ctx, q, b.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("guest session not found: session_id=%s", sessionID)
	}
	if err != nil {
		return nil, translateError("update guest session", err)
	}
	return out, nil
}

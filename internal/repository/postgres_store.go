package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"floor-data/internal/apperr"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Schema 建表脚本（cmd/apply-migration 使用）
//
//go:embed schema.sql
var Schema string

// dbtx *sql.DB 与 *sql.Tx 的公共子集
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner *sql.Row 与 *sql.Rows 的公共子集
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresStore lib/pq + database/sql 实现
type PostgresStore struct {
	db   *sql.DB
	q    dbtx
	inTx bool
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

func (s *PostgresStore) Rooms() RoomsRepository                 { return &PostgresRoomsRepository{q: s.q} }
func (s *PostgresStore) TableGroups() TableGroupsRepository     { return &PostgresTableGroupsRepository{q: s.q} }
func (s *PostgresStore) Tables() TablesRepository               { return &PostgresTablesRepository{q: s.q} }
func (s *PostgresStore) Layouts() LayoutsRepository             { return &PostgresLayoutsRepository{q: s.q} }
func (s *PostgresStore) GuestSessions() GuestSessionsRepository { return &PostgresGuestSessionsRepository{q: s.q} }
func (s *PostgresStore) Reservations() ReservationsRepository   { return &PostgresReservationsRepository{q: s.q} }

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(&PostgresStore{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Persistence("failed to commit transaction", err)
	}
	return nil
}

// PostgreSQL error codes
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
	pqCheckViolation      = "23514"
	pqInvalidText         = "22P02"
)

// translateError 存储错误 → 业务错误
// sql.ErrNoRows 由调用方按实体转换为 NotFound
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqForeignKeyViolation:
			return apperr.Conflict("%s: referenced record violates %s", op, pqErr.Constraint)
		case pqUniqueViolation:
			return apperr.Conflict("%s: duplicate value violates %s", op, pqErr.Constraint)
		case pqCheckViolation:
			return apperr.Validation("%s: value violates %s", op, pqErr.Constraint)
		case pqInvalidText:
			return apperr.Validation("%s: %s", op, pqErr.Message)
		}
	}
	return apperr.Persistence(op, err)
}

// validID 非 uuid 的 id 不可能存在，直接按 NotFound 处理（避免 22P02）
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// nullableUUID 空字符串 → NULL
func nullableUUID(ns sql.NullString) any {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return ns.String
}

// updateBuilder 动态 SET 子句
type updateBuilder struct {
	set  []string
	args []any
}

func newUpdateBuilder(id string) *updateBuilder {
	return &updateBuilder{args: []any{id}}
}

func (b *updateBuilder) add(column string, value any) {
	b.args = append(b.args, value)
	b.set = append(b.set, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

func (b *updateBuilder) addCast(column string, value any, cast string) {
	b.args = append(b.args, value)
	b.set = append(b.set, fmt.Sprintf("%s = $%d::%s", column, len(b.args), cast))
}

func (b *updateBuilder) setNull(column string) {
	b.set = append(b.set, column+" = NULL")
}

// nullable 空字符串写 NULL
func (b *updateBuilder) nullable(column string, value *string, cast string) {
	if value == nil {
		return
	}
	if *value == "" {
		b.setNull(column)
		return
	}
	if cast == "" {
		b.add(column, *value)
		return
	}
	b.addCast(column, *value, cast)
}

func (b *updateBuilder) empty() bool {
	return len(b.set) == 0
}

// query UPDATE <table> SET ... WHERE <idColumn> = $1 RETURNING <columns>
func (b *updateBuilder) query(table, idColumn, columns string) string {
	set := append(b.set, "updated_at = NOW()")
	return "UPDATE " + table + " SET " + strings.Join(set, ", ") +
		" WHERE " + idColumn + " = $1 RETURNING " + columns
}

// whereBuilder 动态 WHERE 条件，cond 中的 %d 替换为参数序号
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, value any) {
	w.args = append(w.args, value)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

package domain

import (
	"database/sql"
	"time"
)

// GlobalScope 无房间的布局作用域
const GlobalScope = "global"

// TableLayout 楼面布局（对应 table_layouts 表）
// 同一作用域（room_id 或全局）最多一个 is_active = true
type TableLayout struct {
	LayoutID   string         `db:"layout_id"`
	Name       string         `db:"name"`        // NOT NULL
	RoomID     sql.NullString `db:"room_id"`     // nullable, NULL = 全局
	IsActive   bool           `db:"is_active"`   // NOT NULL, default false
	LayoutData sql.NullString `db:"layout_data"` // nullable, JSONB
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

// Scope 布局所属作用域
func (l *TableLayout) Scope() LayoutScope {
	return LayoutScope{RoomID: l.RoomID}
}

// LayoutScope 布局作用域：RoomID 为空表示全局
type LayoutScope struct {
	RoomID sql.NullString
}

// RoomScope 房间作用域
func RoomScope(roomID string) LayoutScope {
	if roomID == "" {
		return LayoutScope{}
	}
	return LayoutScope{RoomID: sql.NullString{String: roomID, Valid: true}}
}

func (s LayoutScope) IsGlobal() bool {
	return !s.RoomID.Valid
}

// Key 作用域键（锁、日志使用）："global" 或 "room:<room_id>"
func (s LayoutScope) Key() string {
	if s.IsGlobal() {
		return GlobalScope
	}
	return "room:" + s.RoomID.String
}

func (s LayoutScope) Equal(o LayoutScope) bool {
	return s.Key() == o.Key()
}

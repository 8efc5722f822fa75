package domain

import (
	"database/sql"
	"time"
)

// Room 就餐区域（对应 rooms 表）
type Room struct {
	RoomID      string         `db:"room_id"`
	Name        string         `db:"name"`        // NOT NULL
	Description sql.NullString `db:"description"` // nullable
	IsActive    bool           `db:"is_active"`   // NOT NULL, default true
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

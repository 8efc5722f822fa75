package domain

import (
	"database/sql"
	"time"
)

// TableGroup 桌台分组（对应 table_groups 表），可选归属某个 Room
type TableGroup struct {
	GroupID     string         `db:"group_id"`
	Name        string         `db:"name"`        // NOT NULL
	Description sql.NullString `db:"description"` // nullable
	RoomID      sql.NullString `db:"room_id"`     // nullable, FK rooms
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

package domain

import (
	"database/sql"
	"time"
)

// GuestSessionStatus 入座会话状态
type GuestSessionStatus string

const (
	GuestSessionSeated    GuestSessionStatus = "seated"
	GuestSessionCompleted GuestSessionStatus = "completed"
)

// GuestSession 一组客人从入座到离开的占用记录（对应 guest_sessions 表）
// 每张桌最多一个 seated 会话
type GuestSession struct {
	SessionID   string             `db:"session_id"`
	TableID     string             `db:"table_id"`    // NOT NULL, FK restaurant_tables
	GuestCount  int                `db:"guest_count"` // NOT NULL, > 0
	ServerName  sql.NullString     `db:"server_name"` // nullable
	Notes       sql.NullString     `db:"notes"`       // nullable
	Status      GuestSessionStatus `db:"status"`      // NOT NULL
	SeatedAt    time.Time          `db:"seated_at"`
	CompletedAt sql.NullTime       `db:"completed_at"` // nullable
}

func (s *GuestSession) IsSeated() bool {
	return s.Status == GuestSessionSeated
}

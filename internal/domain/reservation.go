package domain

import (
	"database/sql"
	"time"
)

// ReservationStatus 预订状态（由外部预订流程维护）
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

// Reservation 预订（只读，对应 reservations 表）
// 客户姓名/电话只在此结构中存在，不会进入 TableWithDetails
type Reservation struct {
	ReservationID string            `db:"reservation_id"`
	TableID       sql.NullString    `db:"table_id"`
	CustomerName  string            `db:"customer_name"`
	CustomerPhone sql.NullString    `db:"customer_phone"`
	PartySize     int               `db:"party_size"`
	Date          time.Time         `db:"reservation_date"` // date only
	StartTime     string            `db:"start_time"`       // "HH:MM"
	EndTime       sql.NullString    `db:"end_time"`         // "HH:MM"
	Status        ReservationStatus `db:"status"`
}

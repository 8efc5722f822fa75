package domain

import (
	"database/sql"
	"time"
)

// TableStatus 桌台状态
//
//	available → occupied → cleaning → available
//	available ↔ reserved
type TableStatus string

const (
	TableStatusAvailable TableStatus = "available"
	TableStatusOccupied  TableStatus = "occupied"
	TableStatusCleaning  TableStatus = "cleaning"
	TableStatusReserved  TableStatus = "reserved"
)

// AllTableStatuses 固定顺序（统计输出使用）
var AllTableStatuses = []TableStatus{
	TableStatusAvailable,
	TableStatusOccupied,
	TableStatusCleaning,
	TableStatusReserved,
}

var tableTransitions = map[TableStatus][]TableStatus{
	TableStatusAvailable: {TableStatusOccupied, TableStatusReserved},
	TableStatusReserved:  {TableStatusAvailable, TableStatusOccupied},
	TableStatusOccupied:  {TableStatusCleaning},
	TableStatusCleaning:  {TableStatusAvailable},
}

// Valid 是否为已知状态
func (s TableStatus) Valid() bool {
	_, ok := tableTransitions[s]
	return ok
}

// CanTransition 状态机是否允许 from → to
// reserved → occupied: 预订客人到店入座
func CanTransition(from, to TableStatus) bool {
	for _, next := range tableTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TableShape 桌台形状
type TableShape string

const (
	ShapeRectangle TableShape = "rectangle"
	ShapeSquare    TableShape = "square"
	ShapeCircle    TableShape = "circle"
	ShapeOval      TableShape = "oval"
)

func (s TableShape) Valid() bool {
	switch s {
	case ShapeRectangle, ShapeSquare, ShapeCircle, ShapeOval:
		return true
	}
	return false
}

// LocationTemporary 临时桌：入座会话结束后立即删除
const LocationTemporary = "temporary"

// Geometry 桌台在楼面上的位置与尺寸
type Geometry struct {
	PositionX float64    `db:"position_x"`
	PositionY float64    `db:"position_y"`
	Width     float64    `db:"width"`
	Height    float64    `db:"height"`
	Rotation  float64    `db:"rotation"`
	Shape     TableShape `db:"shape"`
}

// DefaultGeometry 新建桌台的默认几何
func DefaultGeometry() Geometry {
	return Geometry{Width: 80, Height: 80, Shape: ShapeRectangle}
}

// Table 桌台（对应 restaurant_tables 表）
type Table struct {
	TableID   string         `db:"table_id"`
	Number    string         `db:"table_number"` // NOT NULL, UNIQUE
	Capacity  int            `db:"capacity"`     // NOT NULL, > 0
	Status    TableStatus    `db:"status"`       // NOT NULL, default 'available'
	RoomID    sql.NullString `db:"room_id"`      // nullable, FK rooms
	GroupID   sql.NullString `db:"group_id"`     // nullable, FK table_groups
	Location  sql.NullString `db:"location"`     // nullable, 如 "temporary"
	Geometry
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsTemporary 是否为临时桌
func (t *Table) IsTemporary() bool {
	return t.Location.Valid && t.Location.String == LocationTemporary
}

// GroupMatchesRoom 分组必须与桌台同房间（或两者都没有房间）
func GroupMatchesRoom(tableRoom sql.NullString, group *TableGroup) bool {
	if group == nil {
		return true
	}
	if !tableRoom.Valid && !group.RoomID.Valid {
		return true
	}
	return tableRoom.Valid && group.RoomID.Valid && tableRoom.String == group.RoomID.String
}

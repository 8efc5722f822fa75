package repository

import (
	"context"
	"time"

	"floor-data/internal/domain"
)

// Store 持久化网关：各实体强类型 Repository + 事务
// 所有实现（内存 / PostgreSQL）都必须保证 InTx 内的操作整体原子
type Store interface {
	Rooms() RoomsRepository
	TableGroups() TableGroupsRepository
	Tables() TablesRepository
	Layouts() LayoutsRepository
	GuestSessions() GuestSessionsRepository
	Reservations() ReservationsRepository

	// InTx 在一个事务中执行 fn；fn 返回错误时全部回滚
	// 在事务内再次调用 InTx 直接复用当前事务
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// ============================================
// Room
// ============================================

type RoomsRepository interface {
	ListRooms(ctx context.Context, filters RoomFilters) ([]*domain.Room, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	CreateRoom(ctx context.Context, room *domain.Room) (*domain.Room, error)
	UpdateRoom(ctx context.Context, roomID string, patch RoomPatch) (*domain.Room, error)
	// DeleteRoom 被 table / table_group 引用时返回 Conflict；同房间的布局一并删除
	DeleteRoom(ctx context.Context, roomID string) error
}

type RoomFilters struct {
	ActiveOnly bool
}

// RoomPatch 部分更新：nil 表示不更新；Description 为空字符串表示清空（NULL）
type RoomPatch struct {
	Name        *string
	Description *string
	IsActive    *bool
}

func (p RoomPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.IsActive == nil
}

// ============================================
// TableGroup
// ============================================

type TableGroupsRepository interface {
	ListTableGroups(ctx context.Context, filters TableGroupFilters) ([]*domain.TableGroup, error)
	CountTableGroups(ctx context.Context, filters TableGroupFilters) (int, error)
	GetTableGroup(ctx context.Context, groupID string) (*domain.TableGroup, error)
	CreateTableGroup(ctx context.Context, group *domain.TableGroup) (*domain.TableGroup, error)
	UpdateTableGroup(ctx context.Context, groupID string, patch TableGroupPatch) (*domain.TableGroup, error)
	// DeleteTableGroup 被 table 引用时返回 Conflict
	DeleteTableGroup(ctx context.Context, groupID string) error
}

type TableGroupFilters struct {
	RoomID string
}

// TableGroupPatch 部分更新：RoomID 为空字符串表示移出房间（NULL）
type TableGroupPatch struct {
	Name        *string
	Description *string
	RoomID      *string
}

func (p TableGroupPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.RoomID == nil
}

// ============================================
// Table
// ============================================

type TablesRepository interface {
	ListTables(ctx context.Context, filters TableFilters) ([]*domain.Table, error)
	CountTables(ctx context.Context, filters TableFilters) (int, error)
	CountTablesByStatus(ctx context.Context) (map[domain.TableStatus]int, error)
	GetTable(ctx context.Context, tableID string) (*domain.Table, error)
	// LockTable 读取并锁定桌台行直到事务结束（事务外等同 GetTable）
	LockTable(ctx context.Context, tableID string) (*domain.Table, error)
	CreateTable(ctx context.Context, table *domain.Table) (*domain.Table, error)
	UpdateTable(ctx context.Context, tableID string, patch TablePatch) (*domain.Table, error)
	// DeleteTable 该桌的 guest_sessions 级联删除
	DeleteTable(ctx context.Context, tableID string) error
}

type TableFilters struct {
	RoomID  string
	GroupID string
	Status  domain.TableStatus
}

// TablePatch 部分更新：nil 表示不更新
// RoomID / GroupID / Location 为空字符串表示清空（NULL）
type TablePatch struct {
	Number    *string
	Capacity  *int
	Status    *domain.TableStatus
	RoomID    *string
	GroupID   *string
	Location  *string
	PositionX *float64
	PositionY *float64
	Width     *float64
	Height    *float64
	Rotation  *float64
	Shape     *domain.TableShape
}

func (p TablePatch) IsEmpty() bool {
	return p.Number == nil && p.Capacity == nil && p.Status == nil &&
		p.RoomID == nil && p.GroupID == nil && p.Location == nil &&
		p.PositionX == nil && p.PositionY == nil && p.Width == nil &&
		p.Height == nil && p.Rotation == nil && p.Shape == nil
}

// ============================================
// TableLayout
// ============================================

type LayoutsRepository interface {
	ListLayouts(ctx context.Context, filters LayoutFilters) ([]*domain.TableLayout, error)
	GetLayout(ctx context.Context, layoutID string) (*domain.TableLayout, error)
	CreateLayout(ctx context.Context, layout *domain.TableLayout) (*domain.TableLayout, error)
	UpdateLayout(ctx context.Context, layoutID string, patch LayoutPatch) (*domain.TableLayout, error)
	DeleteLayout(ctx context.Context, layoutID string) error

	// LockScope 事务内串行化同一作用域的激活操作
	LockScope(ctx context.Context, scope domain.LayoutScope) error
	// DeactivateScope 作用域内全部 is_active = false，返回受影响行数
	DeactivateScope(ctx context.Context, scope domain.LayoutScope) (int64, error)
	// SetLayoutActive 仅由激活协议调用
	SetLayoutActive(ctx context.Context, layoutID string, active bool) (*domain.TableLayout, error)
}

type LayoutFilters struct {
	Scope      *domain.LayoutScope // nil = 所有作用域
	ActiveOnly bool
}

// LayoutPatch 部分更新（不含 is_active 与作用域）；LayoutData 为空字符串表示清空
type LayoutPatch struct {
	Name       *string
	LayoutData *string
}

func (p LayoutPatch) IsEmpty() bool {
	return p.Name == nil && p.LayoutData == nil
}

// ============================================
// GuestSession
// ============================================

type GuestSessionsRepository interface {
	// ListGuestSessions 按 seated_at 倒序
	ListGuestSessions(ctx context.Context, filters GuestSessionFilters) ([]*domain.GuestSession, error)
	GetGuestSession(ctx context.Context, sessionID string) (*domain.GuestSession, error)
	CreateGuestSession(ctx context.Context, session *domain.GuestSession) (*domain.GuestSession, error)
	UpdateGuestSession(ctx context.Context, sessionID string, patch GuestSessionPatch) (*domain.GuestSession, error)
}

type GuestSessionFilters struct {
	TableID string
	Status  domain.GuestSessionStatus
}

type GuestSessionPatch struct {
	Status      *domain.GuestSessionStatus
	CompletedAt *time.Time
	GuestCount  *int
	ServerName  *string
	Notes       *string
}

// ============================================
// Reservation（只读）
// ============================================

type ReservationsRepository interface {
	// ListReservations 按 reservation_date, start_time 排序
	ListReservations(ctx context.Context, filters ReservationFilters) ([]*domain.Reservation, error)
	GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error)
}

type ReservationFilters struct {
	TableID string
	Status  domain.ReservationStatus
	Date    time.Time // 零值 = 不过滤
}

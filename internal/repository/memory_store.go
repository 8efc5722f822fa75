package repository

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"sync"
	"time"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// MemoryStore: 用于 DB 未就绪时的联测以及 service 层单元测试
// - IDs 使用 uuid
// - 外键 / 唯一约束与 schema.sql 保持一致（RESTRICT / CASCADE / partial unique index）
// - InTx 持有写锁并在失败时还原快照
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
	clock clockwork.Clock
}

type memState struct {
	rooms        map[string]domain.Room
	groups       map[string]domain.TableGroup
	tables       map[string]domain.Table
	layouts      map[string]domain.TableLayout
	sessions     map[string]domain.GuestSession
	reservations map[string]domain.Reservation
}

func newMemState() *memState {
	return &memState{
		rooms:        map[string]domain.Room{},
		groups:       map[string]domain.TableGroup{},
		tables:       map[string]domain.Table{},
		layouts:      map[string]domain.TableLayout{},
		sessions:     map[string]domain.GuestSession{},
		reservations: map[string]domain.Reservation{},
	}
}

// clone 值拷贝（domain 结构不含引用类型字段）
func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	for k, v := range s.groups {
		c.groups[k] = v
	}
	for k, v := range s.tables {
		c.tables[k] = v
	}
	for k, v := range s.layouts {
		c.layouts[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	return c
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(clockwork.NewRealClock())
}

func NewMemoryStoreWithClock(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{state: newMemState(), clock: clock}
}

// SeedReservation 写入一条预订（预订由外部流程维护，这里仅供联测/测试造数）
func (m *MemoryStore) SeedReservation(r domain.Reservation) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ReservationID == "" {
		r.ReservationID = uuid.NewString()
	}
	m.state.reservations[r.ReservationID] = r
	return r.ReservationID
}

func (m *MemoryStore) view() *memView { return &memView{m: m} }

func (m *MemoryStore) Rooms() RoomsRepository                 { return m.view().Rooms() }
func (m *MemoryStore) TableGroups() TableGroupsRepository     { return m.view().TableGroups() }
func (m *MemoryStore) Tables() TablesRepository               { return m.view().Tables() }
func (m *MemoryStore) Layouts() LayoutsRepository             { return m.view().Layouts() }
func (m *MemoryStore) GuestSessions() GuestSessionsRepository { return m.view().GuestSessions() }
func (m *MemoryStore) Reservations() ReservationsRepository   { return m.view().Reservations() }

func (m *MemoryStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return m.view().InTx(ctx, fn)
}

// memView 事务外（inTx=false，每个操作单独加锁）或事务内（锁已持有）的视图
type memView struct {
	m    *MemoryStore
	inTx bool
}

func (v *memView) Rooms() RoomsRepository                 { return memRooms{v} }
func (v *memView) TableGroups() TableGroupsRepository     { return memGroups{v} }
func (v *memView) Tables() TablesRepository               { return memTables{v} }
func (v *memView) Layouts() LayoutsRepository             { return memLayouts{v} }
func (v *memView) GuestSessions() GuestSessionsRepository { return memSessions{v} }
func (v *memView) Reservations() ReservationsRepository   { return memReservations{v} }

func (v *memView) InTx(ctx context.Context, fn func(tx Store) error) error {
	if v.inTx {
		return fn(v)
	}
	if err := ctx.Err(); err != nil {
		return apperr.Persistence("failed to begin transaction", err)
	}
	v.m.mu.Lock()
	snapshot := v.m.state.clone()
	committed := false
	defer func() {
		if !committed {
			v.m.state = snapshot
		}
		v.m.mu.Unlock()
	}()

	if err := fn(&memView{m: v.m, inTx: true}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (v *memView) read(ctx context.Context, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.Persistence("memory store unavailable", err)
	}
	if !v.inTx {
		v.m.mu.RLock()
		defer v.m.mu.RUnlock()
	}
	return fn(v.m.state)
}

func (v *memView) write(ctx context.Context, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return apperr.Persistence("memory store unavailable", err)
	}
	if !v.inTx {
		v.m.mu.Lock()
		defer v.m.mu.Unlock()
	}
	return fn(v.m.state)
}

func (v *memView) now() time.Time {
	return v.m.clock.Now().UTC()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================
// Room
// ============================================

type memRooms struct{ v *memView }

func (r memRooms) ListRooms(ctx context.Context, filters RoomFilters) ([]*domain.Room, error) {
	out := []*domain.Room{}
	err := r.v.read(ctx, func(st *memState) error {
		for _, room := range st.rooms {
			if filters.ActiveOnly && !room.IsActive {
				continue
			}
			room := room
			out = append(out, &room)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r memRooms) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var out *domain.Room
	err := r.v.read(ctx, func(st *memState) error {
		room, ok := st.rooms[roomID]
		if !ok {
			return apperr.NotFound("room not found: room_id=%s", roomID)
		}
		out = &room
		return nil
	})
	return out, err
}

func (r memRooms) CreateRoom(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	var out *domain.Room
	err := r.v.write(ctx, func(st *memState) error {
		rec := *room
		if rec.RoomID == "" {
			rec.RoomID = uuid.NewString()
		}
		if _, exists := st.rooms[rec.RoomID]; exists {
			return apperr.Conflict("room already exists: room_id=%s", rec.RoomID)
		}
		now := r.v.now()
		rec.CreatedAt, rec.UpdatedAt = now, now
		st.rooms[rec.RoomID] = rec
		out = &rec
		return nil
	})
	return out, err
}

func (r memRooms) UpdateRoom(ctx context.Context, roomID string, patch RoomPatch) (*domain.Room, error) {
	var out *domain.Room
	err := r.v.write(ctx, func(st *memState) error {
		rec, ok := st.rooms[roomID]
		if !ok {
			return apperr.NotFound("room not found: room_id=%s", roomID)
		}
		if patch.Name != nil {
			rec.Name = *patch.Name
		}
		if patch.Description != nil {
			rec.Description = nullString(*patch.Description)
		}
		if patch.IsActive != nil {
			rec.IsActive = *patch.IsActive
		}
		if !patch.IsEmpty() {
			rec.UpdatedAt = r.v.now()
		}
		st.rooms[roomID] = rec
		out = &rec
		return nil
	})
	return out, err
}

func (r memRooms) DeleteRoom(ctx context.Context, roomID string) error {
	return r.v.write(ctx, func(st *memState) error {
		if _, ok := st.rooms[roomID]; !ok {
			return apperr.NotFound("room not found: room_id=%s", roomID)
		}
		for _, t := range st.tables {
			if t.RoomID.Valid && t.RoomID.String == roomID {
				return apperr.Conflict("room is referenced by table %s", t.Number)
			}
		}
		for _, g := range st.groups {
			if g.RoomID.Valid && g.RoomID.String == roomID {
				return apperr.Conflict("room is referenced by table group %s", g.Name)
			}
		}
		// ON DELETE CASCADE: table_layouts.room_id
		for id, l := range st.layouts {
			if l.RoomID.Valid && l.RoomID.String == roomID {
				delete(st.layouts, id)
			}
		}
		delete(st.rooms, roomID)
		return nil
	})
}

// ============================================
// TableGroup
// ============================================

type memGroups struct{ v *memView }

func matchGroup(g domain.TableGroup, filters TableGroupFilters) bool {
	if filters.RoomID != "" && (!g.RoomID.Valid || g.RoomID.String != filters.RoomID) {
		return false
	}
	return true
}

func (r memGroups) ListTableGroups(ctx context.Context, filters TableGroupFilters) ([]*domain.TableGroup, error) {
	out := []*domain.TableGroup{}
	err := r.v.read(ctx, func(st *memState) error {
		for _, g := range st.groups {
			if !matchGroup(g, filters) {
				continue
			}
			g := g
			out = append(out, &g)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r memGroups) CountTableGroups(ctx context.Context, filters TableGroupFilters) (int, error) {
	n := 0
	err := r.v.read(ctx, func(st *memState) error {
		for _, g := range st.groups {
			if matchGroup(g, filters) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memGroups) GetTableGroup(ctx context.Context, groupID string) (*domain.TableGroup, error) {
	var out *domain.TableGroup
	err := r.v.read(ctx, func(st *memState) error {
		g, ok := st.groups[groupID]
		if !ok {
			return apperr.NotFound("table group not found: group_id=%s", groupID)
		}
		out = &g
		return nil
	})
	return out, err
}

func (r memGroups) CreateTableGroup(ctx context.Context, group *domain.TableGroup) (*domain.TableGroup, error) {
	var out *domain.TableGroup
	err := r.v.write(ctx, func(st *memState) error {
		rec := *group
		if rec.GroupID == "" {
			rec.GroupID = uuid.NewString()
		}
		if rec.RoomID.Valid {
			if _, ok := st.rooms[rec.RoomID.String]; !ok {
				return apperr.Conflict("room does not exist: room_id=%s", rec.RoomID.String)
			}
		}
		now := r.v.now()
		rec.CreatedAt, rec.UpdatedAt = now, now
		st.groups[rec.GroupID] = rec
		out = &rec
		return nil
	})
	return out, err
}

func (r memGroups) UpdateTableGroup(ctx context.Context, groupID string, patch TableGroupPatch) (*domain.TableGroup, error) {
	var out *domain.TableGroup
	err := r.v.write(ctx, func(st *memState) error {
		rec, ok := st.groups[groupID]
		if !ok {
			return apperr.NotFound("table group not found: group_id=%s", groupID)
		}
		if patch.Name != nil {
			rec.Name = *patch.Name
		}
		if patch.Description != nil {
			rec.Description = nullString(*patch.Description)
		}
		if patch.RoomID != nil {
			rec.RoomID = nullString(*patch.RoomID)
			if rec.RoomID.Valid {
				if _, ok := st.rooms[rec.RoomID.String]; !ok {
					return apperr.Conflict("room does not exist: room_id=%s", rec.RoomID.String)
				}
			}
		}
		if !patch.IsEmpty() {
			rec.UpdatedAt = r.v.now()
		}
		st.groups[groupID] = rec
		out = &rec
		return nil
	})
	return out, err
}

func (r memGroups) DeleteTableGroup(ctx context.Context, groupID string) error {
	return r.v.write(ctx, func(st *memState) error {
		if _, ok := st.groups[groupID]; !ok {
			return apperr.NotFound("table group not found: group_id=%s", groupID)
		}
		for _, t := range st.tables {
			if t.GroupID.Valid && t.GroupID.String == groupID {
				return apperr.Conflict("table group is referenced by table %s", t.Number)
			}
		}
		delete(st.groups, groupID)
		return nil
	})
}

// ============================================
// Table
// ============================================

type memTables struct{ v *memView }

func matchTable(t domain.Table, filters TableFilters) bool {
	if filters.RoomID != "" && (!t.RoomID.Valid || t.RoomID.String != filters.RoomID) {
		return false
	}
	if filters.GroupID != "" && (!t.GroupID.Valid || t.GroupID.String != filters.GroupID) {
		return false
	}
	if filters.Status != "" && t.Status != filters.Status {
		return false
	}
	return true
}

// tableNumberLess 与 postgres 排序一致：纯数字编号按数值在前，其余按字符串
func tableNumberLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil && ai != bi:
		return ai < bi
	case aerr == nil && berr != nil:
		return true
	case aerr != nil && berr == nil:
		return false
	}
	return a < b
}

func (r memTables) ListTables(ctx context.Context, filters TableFilters) ([]*domain.Table, error) {
	out := []*domain.Table{}
	err := r.v.read(ctx, func(st *memState) error {
		for _, t := range st.tables {
			if !matchTable(t, filters) {
				continue
			}
			t := t
			out = append(out, &t)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return tableNumberLess(out[i].Number, out[j].Number) })
	return out, err
}

func (r memTables) CountTables(ctx context.Context, filters TableFilters) (int, error) {
	n := 0
	err := r.v.read(ctx, func(st *memState) error {
		for _, t := range st.tables {
			if matchTable(t, filters) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memTables) CountTablesByStatus(ctx context.Context) (map[domain.TableStatus]int, error) {
	out := map[domain.TableStatus]int{}
	err := r.v.read(ctx, func(st *memState) error {
		for _, t := range st.tables {
			out[t.Status]++
		}
		return nil
	})
	return out, err
}

func (r memTables) GetTable(ctx context.Context, tableID string) (*domain.Table, error) {
	var out *domain.Table
	err := r.v.read(ctx, func(st *memState) error {
		t, ok := st.tables[tableID]
		if !ok {
			return apperr.NotFound("table not found: table_id=%s", tableID)
		}
		out = &t
		return nil
	})
	return out, err
}

// LockTable 事务内写锁已持有，无需额外处理
func (r memTables) LockTable(ctx context.Context, tableID string) (*domain.Table, error) {
	return r.GetTable(ctx, tableID)
}

// checkTableRefs 外键 + 唯一约束（table_number）
func checkTableRefs(st *memState, rec domain.Table) error {
	for id, other := range st.tables {
		if id != rec.TableID && other.Number == rec.Number {
			return apperr.Conflict("table number already exists: %s", rec.Number)
		}
	}
	if rec.RoomID.Valid {
		if _, ok := st.rooms[rec.RoomID.String]; !ok {
			return apperr.Conflict("room does not exist: room_id=%s", rec.RoomID.String)
		}
	}
	if rec.GroupID.Valid {
		if _, ok := st.groups[rec.GroupID.String]; !ok {
			return apperr.Conflict("table group does not exist: group_id=%s", rec.GroupID.String)
		}
	}
	return nil
}

func (r memTables) CreateTable(ctx context.Context, table *domain.Table) (*domain.Table, error) {
	var out *domain.Table
	err := r.v.write(ctx, func(st *memState) error {
		rec := *table
		if rec.TableID == "" {
			rec.TableID = uuid.NewString()
		}
		if rec.Status == "" {
			rec.Status = domain.TableStatusAvailable
		}
		if err := checkTableRefs(st, rec); err != nil {
			return err
		}
		now := r.v.now()
		rec.CreatedAt, rec.UpdatedAt = now, now
		st.tables[rec.TableID] = rec
		out = &rec
		return nil
	})
	return out, err
}

func (r memTables) UpdateTable(ctx context.Context, tableID string, patch TablePatch) (*domain.Table, error) {
	var out *domain.Table
	err := r.v.write(ctx, func(st *memState) error {
		rec, ok := st.tables[tableID]
		if !ok {
			return apperr.NotFound("table not found: table_id=%s", tableID)
		}
		applyTablePatch(&rec, patch)
		if err := checkTableRefs(st, rec); err != nil {
			return err
		}
		if !patch.IsEmpty() {
			rec.UpdatedAt = r.v.now()
		}
		st.tables[tableID] = rec
		out = &rec
		return nil
	})
	return out, err
}

func applyTablePatch(rec *domain.Table, patch TablePatch) {
	if patch.Number != nil {
		rec.Number = *patch.Number
	}
	if patch.Capacity != nil {
		rec.Capacity = *patch.Capacity
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.RoomID != nil {
		rec.RoomID = nullString(*patch.RoomID)
	}
	if patch.GroupID != nil {
		rec.GroupID = nullString(*patch.GroupID)
	}
	if patch.Location != nil {
		rec.Location = nullString(*patch.Location)
	}
	if patch.PositionX != nil {
		rec.PositionX = *patch.PositionX
	}
	if patch.PositionY != nil {
		rec.PositionY = *patch.PositionY
	}
	if patch.Width != nil {
		rec.Width = *patch.Width
	}
	if patch.Height != nil {
		rec.Height = *patch.Height
	}
	if patch.Rotation != nil {
		rec.Rotation = *patch.Rotation
	}
	if patch.Shape != nil {
		rec.Shape = *patch.Shape
	}
}

func (r memTables) DeleteTable(ctx context.Context, tableID string) error {
	return r.v.write(ctx, func(st *memState) error {
		if _, ok := st.tables[tableID]; !ok {
			return apperr.NotFound("table not found: table_id=%s", tableID)
		}
		// ON DELETE CASCADE: guest_sessions.table_id
		for id, s := range st.sessions {
			if s.TableID == tableID {
				delete(st.sessions, id)
			}
		}
		delete(st.tables, tableID)
		return nil
	})
}

// ============================================
// TableLayout
// ============================================

type memLayouts struct{ v *memView }

func matchLayout(l domain.TableLayout, filters LayoutFilters) bool {
	if filters.Scope != nil && !filters.Scope.Equal(l.Scope()) {
		return false
	}
	if filters.ActiveOnly && !l.IsActive {
		return false
	}
	return true
}

// checkLayoutInvariant 对应 partial unique index one_active_layout_per_room / one_active_global_layout
func checkLayoutInvariant(st *memState, rec domain.TableLayout) error {
	if rec.RoomID.Valid {
		if _, ok := st.rooms[rec.RoomID.String]; !ok {
			return apperr.Conflict("room does not exist: room_id=%s", rec.RoomID.String)
		}
	}
	if !rec.IsActive {
		return nil
	}
	for id, other := range st.layouts {
		if id != rec.LayoutID && other.IsActive && other.Scope().Equal(rec.Scope()) {
			return apperr.Conflict("scope %s already has an active layout", rec.Scope().Key())
		}
	}
	return nil
}

func (r memLayouts) ListLayouts(ctx context.Context, filters LayoutFilters) ([]*domain.TableLayout, error) {
	out := []*domain.TableLayout{}
	err := r.v.read(ctx, func(st *memState) error {
		for _, l := range st.layouts {
			if !matchLayout(l, filters) {
				continue
			}
			l := l
			out = append(out, &l)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].LayoutID < out[j].LayoutID
	})
	return out, err
}

func (r memLayouts) GetLayout(ctx context.Context, layoutID string) (*domain.TableLayout, error) {
	var out *domain.TableLayout
	err := r.v.read(ctx, func(st *memState) error {
		l, ok := st.layouts[layoutID]
		if !ok {
			return apperr.NotFound("layout not found: layout_id=%s", layoutID)
		}
		out = &l
		return nil
	})
	return out, err
}

func (r memLayouts) CreateLayout(ctx context.Context, layout *domain.TableLayout) (*domain.TableLayout, error) {
	var out *domain.TableLayout
	err := r.v.write(ctx, func(st *memState) error {
		rec := *layout
		if rec.LayoutID == "" {
			rec.LayoutID = uuid.NewString()
		}
		if err := checkLayoutInvariant(st, rec); err != nil {
			return err
		}
		now := r.v.now()
		rec.CreatedAt, rec.UpdatedAt = now, now
		st.layouts[rec.LayoutID] = rec
		out = &rec
		return nil
	})
	return out, err
}

func (r memLayouts) UpdateLayout(ctx context.Context, layoutID string, patch LayoutPatch) (*domain.TableLayout, error) {
	var out *domain.TableLayout
	err := r.v.write(ctx, func(st *memState) error {
		rec, ok := st.layouts[layoutID]
		if !ok {
			return apperr.NotFound("layout not found: layout_id=%s", layoutID)
		}
		if patch.Name != nil {
			rec.Name = *patch.Name
		}
		if patch.LayoutData != nil {
			rec.LayoutData = nullString(*patch.LayoutData)
		}
		if !patch.IsEmpty() {
			rec.UpdatedAt = r.v.now()
		}
		st.layouts[layoutID] = rec
		out = &rec
		return nil
	})
	return out, err
}

func (r memLayouts) DeleteLayout(ctx context.Context, layoutID string) error {
	return r.v.write(ctx, func(st *memState) error {
		if _, ok := st.layouts[layoutID]; !ok {
			return apperr.NotFound("layout not found: layout_id=%s", layoutID)
		}
		delete(st.layouts, layoutID)
		return nil
	})
}

// LockScope 事务写锁已串行化所有激活操作
func (r memLayouts) LockScope(ctx context.Context, scope domain.LayoutScope) error {
	return ctx.Err()
}

func (r memLayouts) DeactivateScope(ctx context.Context, scope domain.LayoutScope) (int64, error) {
	var n int64
	err := r.v.write(ctx, func(st *memState) error {
		now := r.v.now()
		for id, l := range st.layouts {
			if l.IsActive && l.Scope().Equal(scope) {
				l.IsActive = false
				l.UpdatedAt = now
				st.layouts[id] = l
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memLayouts) SetLayoutActive(ctx context.Context, layoutID string, active bool) (*domain.TableLayout, error) {
	var out *domain.TableLayout
	err := r.v.write(ctx, func(st *memState) error {
		rec, ok := st.layouts[layoutID]
		if !ok {
			return apperr.NotFound("layout not found: layout_id=%s", layoutID)
		}
		rec.IsActive = active
		if err := checkLayoutInvariant(st, rec); err != nil {
			return err
		}
		rec.UpdatedAt = r.v.now()
		st.layouts[layoutID] = rec
		out = &rec
		return nil
	})
	return out, err
}

// ============================================
// GuestSession
// ============================================

type memSessions struct{ v *memView }

func (r memSessions) ListGuestSessions(ctx context.Context, filters GuestSessionFilters) ([]*domain.GuestSession, error) {
	out := []*domain.GuestSession{}
	err := r.v.read(ctx, func(st *memState) error {
		for _, s := range st.sessions {
			if filters.TableID != "" && s.TableID != filters.TableID {
				continue
			}
			if filters.Status != "" && s.Status != filters.Status {
				continue
			}
			s := s
			out = append(out, &s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SeatedAt.Equal(out[j].SeatedAt) {
			return out[i].SeatedAt.After(out[j].SeatedAt)
		}
		return out[i].SessionID > out[j].SessionID
	})
	return out, err
}

func (r memSessions) GetGuestSession(ctx context.Context, sessionID string) (*domain.GuestSession, error) {
	var out *domain.GuestSession
	err := r.v.read(ctx, func(st *memState) error {
		s, ok := st.sessions[sessionID]
		if !ok {
			return apperr.NotFound("guest session not found: session_id=%s", sessionID)
		}
		out = &s
		return nil
	})
	return out, err
}

// checkSeatedUnique 对应 partial unique index one_seated_session_per_table
func checkSeatedUnique(st *memState, rec domain.GuestSession) error {
	if rec.Status != domain.GuestSessionSeated {
		return nil
	}
	for id, other := range st.sessions {
		if id != rec.SessionID && other.TableID == rec.TableID && other.Status == domain.GuestSessionSeated {
			return apperr.Conflict("table already has a seated guest session: table_id=%s", rec.TableID)
		}
	}
	return nil
}

func (r memSessions) CreateGuestSession(ctx context.Context, session *domain.GuestSession) (*domain.GuestSession, error) {
	var out *domain.GuestSession
	err := r.v.write(ctx, func(st *memState) error {
		rec := *session
		if rec.SessionID == "" {
			rec.SessionID = uuid.NewString()
		}
		if rec.Status == "" {
			rec.Status = domain.GuestSessionSeated
		}
		if rec.SeatedAt.IsZero() {
			rec.SeatedAt = r.v.now()
		}
		if _, ok := st.tables[rec.TableID]; !ok {
			return apperr.Conflict("table does not exist: table_id=%s", rec.TableID)
		}
		if err := checkSeatedUnique(st, rec); err != nil {
			return err
		}
		st.sessions[rec.SessionID] = rec
		out = &rec
		return nil
	})
	return out, err
}

func (r memSessions) UpdateGuestSession(ctx context.Context, sessionID string, patch GuestSessionPatch) (*domain.GuestSession, error) {
	var out *domain.GuestSession
	err := r.v.write(ctx, func(st *memState) error {
		rec, ok := st.sessions[sessionID]
		if !ok {
			return apperr.NotFound("guest session not found: session_id=%s", sessionID)
		}
		if patch.Status != nil {
			rec.Status = *patch.Status
		}
		if patch.CompletedAt != nil {
			rec.CompletedAt = sql.NullTime{Time: *patch.CompletedAt, Valid: true}
		}
		if patch.GuestCount != nil {
			rec.GuestCount = *patch.GuestCount
		}
		if patch.ServerName != nil {
			rec.ServerName = nullString(*patch.ServerName)
		}
		if patch.Notes != nil {
			rec.Notes = nullString(*patch.Notes)
		}
		if err := checkSeatedUnique(st, rec); err != nil {
			return err
		}
		st.sessions[sessionID] = rec
		out = &rec
		return nil
	})
	return out, err
}

// ============================================
// Reservation
// ============================================

type memReservations struct{ v *memView }

func (r memReservations) ListReservations(ctx context.Context, filters ReservationFilters) ([]*domain.Reservation, error) {
	out := []*domain.Reservation{}
	err := r.v.read(ctx, func(st *memState) error {
		for _, res := range st.reservations {
			if filters.TableID != "" && (!res.TableID.Valid || res.TableID.String != filters.TableID) {
				continue
			}
			if filters.Status != "" && res.Status != filters.Status {
				continue
			}
			if !filters.Date.IsZero() && !sameDate(res.Date, filters.Date) {
				continue
			}
			res := res
			out = append(out, &res)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !sameDate(out[i].Date, out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, err
}

func (r memReservations) GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	var out *domain.Reservation
	err := r.v.read(ctx, func(st *memState) error {
		res, ok := st.reservations[reservationID]
		if !ok {
			return apperr.NotFound("reservation not found: reservation_id=%s", reservationID)
		}
		out = &res
		return nil
	})
	return out, err
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

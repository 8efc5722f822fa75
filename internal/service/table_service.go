package service

import (
	"context"
	"fmt"
	"strings"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"
	"floor-data/internal/repository"

	"go.uber.org/zap"
)

// TableService 桌台管理服务接口
type TableService interface {
	ListTables(ctx context.Context, req ListTablesRequest) (*ListTablesResponse, error)
	GetTable(ctx context.Context, tableID string) (*domain.Table, error)
	CreateTable(ctx context.Context, req CreateTableRequest) (*domain.Table, error)
	UpdateTable(ctx context.Context, req UpdateTableRequest) (*domain.Table, error)
	UpdateGeometry(ctx context.Context, req UpdateGeometryRequest) (*domain.Table, error)
	SetStatus(ctx context.Context, req SetStatusRequest) (*SetStatusResponse, error)
	DeleteTable(ctx context.Context, tableID string) error
	GetStats(ctx context.Context) (domain.TableStats, error)
}

type tableService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewTableService(store repository.Store, logger *zap.Logger) TableService {
	return &tableService{
		store:  store,
		logger: logger,
	}
}

// ============================================
// 请求/响应结构
// ============================================

type ListTablesRequest struct {
	RoomID  string // 可选
	GroupID string // 可选
	Status  string // 可选
}

type ListTablesResponse struct {
	Items []*domain.Table `json:"items"`
	Total int             `json:"total"`
}

// GeometryInput 几何补丁：nil 表示不修改
type GeometryInput struct {
	PositionX *float64
	PositionY *float64
	Width     *float64
	Height    *float64
	Rotation  *float64
	Shape     *string
}

func (g GeometryInput) validate() error {
	if g.Width != nil && *g.Width <= 0 {
		return apperr.Validation("width must be greater than 0")
	}
	if g.Height != nil && *g.Height <= 0 {
		return apperr.Validation("height must be greater than 0")
	}
	if g.Shape != nil && !domain.TableShape(*g.Shape).Valid() {
		return apperr.Validation("invalid shape: %s", *g.Shape)
	}
	return nil
}

type CreateTableRequest struct {
	Number   string // 必填
	Capacity int    // 必填，> 0
	RoomID   string // 可选
	GroupID  string // 可选，必须与 RoomID 同房间
	Location string // 可选，"temporary" = 临时桌
	Geometry GeometryInput
}

type UpdateTableRequest struct {
	TableID  string  // 必填
	Number   *string // 可选
	Capacity *int    // 可选
	RoomID   *string // 可选（空字符串 = 清空）
	GroupID  *string // 可选（空字符串 = 清空）
	Location *string // 可选（空字符串 = 清空）
}

type UpdateGeometryRequest struct {
	TableID string // 必填
	GeometryInput
}

type SetStatusRequest struct {
	TableID string // 必填
	Status  string // 必填，已知状态
}

type SetStatusResponse struct {
	Table    *domain.Table      `json:"table"`
	Previous domain.TableStatus `json:"previous"`
}

// ============================================
// 方法实现
// ============================================

func (s *tableService) ListTables(ctx context.Context, req ListTablesRequest) (*ListTablesResponse, error) {
	status := domain.TableStatus(strings.TrimSpace(req.Status))
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("invalid status: %s", req.Status)
	}

	tables, err := s.store.Tables().ListTables(ctx, repository.TableFilters{
		RoomID:  req.RoomID,
		GroupID: req.GroupID,
		Status:  status,
	})
	if err != nil {
		logFailure(s.logger, "ListTables failed", err,
			zap.String("room_id", req.RoomID),
			zap.String("group_id", req.GroupID),
			zap.String("status", req.Status),
		)
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return &ListTablesResponse{Items: tables, Total: len(tables)}, nil
}

func (s *tableService) GetTable(ctx context.Context, tableID string) (*domain.Table, error) {
	if tableID == "" {
		return nil, apperr.Validation("table_id is required")
	}
	table, err := s.store.Tables().GetTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return table, nil
}

// checkPlacement room / group 必须存在，且分组与桌台同房间
func checkPlacement(ctx context.Context, tx repository.Store, table *domain.Table) error {
	if table.RoomID.Valid {
		if _, err := tx.Rooms().GetRoom(ctx, table.RoomID.String); err != nil {
			return err
		}
	}
	if !table.GroupID.Valid {
		return nil
	}
	group, err := tx.TableGroups().GetTableGroup(ctx, table.GroupID.String)
	if err != nil {
		return err
	}
	if !domain.GroupMatchesRoom(table.RoomID, group) {
		return apperr.Validation("table group %s does not belong to the table's room", group.Name).
			WithContext("group_id", group.GroupID)
	}
	return nil
}

func (s *tableService) CreateTable(ctx context.Context, req CreateTableRequest) (*domain.Table, error) {
	// 1. 参数验证
	number := strings.TrimSpace(req.Number)
	if number == "" {
		return nil, apperr.Validation("table_number is required")
	}
	if req.Capacity <= 0 {
		return nil, apperr.Validation("capacity must be greater than 0")
	}
	if err := req.Geometry.validate(); err != nil {
		return nil, err
	}

	// 2. 构建桌台（未提供的几何字段取默认值）
	table := &domain.Table{
		Number:   number,
		Capacity: req.Capacity,
		Status:   domain.TableStatusAvailable,
		RoomID:   toNullString(req.RoomID),
		GroupID:  toNullString(req.GroupID),
		Location: toNullString(req.Location),
		Geometry: domain.DefaultGeometry(),
	}
	applyGeometry(&table.Geometry, req.Geometry)

	// 3. 校验引用并写入
	var created *domain.Table
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := checkPlacement(ctx, tx, table); err != nil {
			return err
		}
		var err error
		created, err = tx.Tables().CreateTable(ctx, table)
		return err
	})
	if err != nil {
		logFailure(s.logger, "CreateTable failed", err,
			zap.String("table_number", number),
			zap.String("room_id", req.RoomID),
			zap.String("group_id", req.GroupID),
		)
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	s.logger.Info("Table created",
		zap.String("table_id", created.TableID),
		zap.String("table_number", created.Number),
	)
	return created, nil
}

func applyGeometry(g *domain.Geometry, in GeometryInput) {
	if in.PositionX != nil {
		g.PositionX = *in.PositionX
	}
	if in.PositionY != nil {
		g.PositionY = *in.PositionY
	}
	if in.Width != nil {
		g.Width = *in.Width
	}
	if in.Height != nil {
		g.Height = *in.Height
	}
	if in.Rotation != nil {
		g.Rotation = *in.Rotation
	}
	if in.Shape != nil {
		g.Shape = domain.TableShape(*in.Shape)
	}
}

func (s *tableService) UpdateTable(ctx context.Context, req UpdateTableRequest) (*domain.Table, error) {
	if req.TableID == "" {
		return nil, apperr.Validation("table_id is required")
	}
	patch := repository.TablePatch{
		Number:   trimPtr(req.Number),
		Capacity: req.Capacity,
		RoomID:   trimPtr(req.RoomID),
		GroupID:  trimPtr(req.GroupID),
		Location: trimPtr(req.Location),
	}
	if patch.Number != nil && *patch.Number == "" {
		return nil, apperr.Validation("table_number cannot be empty")
	}
	if patch.Capacity != nil && *patch.Capacity <= 0 {
		return nil, apperr.Validation("capacity must be greater than 0")
	}

	var updated *domain.Table
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.Tables().LockTable(ctx, req.TableID)
		if err != nil {
			return err
		}
		// 房间或分组变化时按更新后的结果校验
		if patch.RoomID != nil || patch.GroupID != nil {
			next := *current
			if patch.RoomID != nil {
				next.RoomID = toNullString(*patch.RoomID)
			}
			if patch.GroupID != nil {
				next.GroupID = toNullString(*patch.GroupID)
			}
			if err := checkPlacement(ctx, tx, &next); err != nil {
				return err
			}
		}
		updated, err = tx.Tables().UpdateTable(ctx, req.TableID, patch)
		return err
	})
	if err != nil {
		logFailure(s.logger, "UpdateTable failed", err, zap.String("table_id", req.TableID))
		return nil, fmt.Errorf("failed to update table: %w", err)
	}
	return updated, nil
}

// UpdateGeometry 几何字段各自独立：只修改提供的字段
func (s *tableService) UpdateGeometry(ctx context.Context, req UpdateGeometryRequest) (*domain.Table, error) {
	if req.TableID == "" {
		return nil, apperr.Validation("table_id is required")
	}
	if err := req.GeometryInput.validate(); err != nil {
		return nil, err
	}

	patch := repository.TablePatch{
		PositionX: req.PositionX,
		PositionY: req.PositionY,
		Width:     req.Width,
		Height:    req.Height,
		Rotation:  req.Rotation,
	}
	if req.Shape != nil {
		shape := domain.TableShape(*req.Shape)
		patch.Shape = &shape
	}

	table, err := s.store.Tables().UpdateTable(ctx, req.TableID, patch)
	if err != nil {
		logFailure(s.logger, "UpdateGeometry failed", err, zap.String("table_id", req.TableID))
		return nil, fmt.Errorf("failed to update table geometry: %w", err)
	}
	return table, nil
}

// SetStatus 不受状态机约束的原语，只校验目标状态合法；返回之前的状态
func (s *tableService) SetStatus(ctx context.Context, req SetStatusRequest) (*SetStatusResponse, error) {
	if req.TableID == "" {
		return nil, apperr.Validation("table_id is required")
	}
	status := domain.TableStatus(strings.TrimSpace(req.Status))
	if !status.Valid() {
		return nil, apperr.Validation("invalid status: %s", req.Status)
	}

	resp := &SetStatusResponse{}
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.Tables().LockTable(ctx, req.TableID)
		if err != nil {
			return err
		}
		resp.Previous = current.Status
		resp.Table, err = tx.Tables().UpdateTable(ctx, req.TableID, repository.TablePatch{Status: &status})
		return err
	})
	if err != nil {
		logFailure(s.logger, "SetStatus failed", err,
			zap.String("table_id", req.TableID),
			zap.String("status", string(status)),
		)
		return nil, fmt.Errorf("failed to set table status: %w", err)
	}

	s.logger.Info("Table status changed",
		zap.String("table_id", req.TableID),
		zap.String("from", string(resp.Previous)),
		zap.String("to", string(status)),
	)
	return resp, nil
}

// DeleteTable 无条件删除；该桌的会话随之删除
func (s *tableService) DeleteTable(ctx context.Context, tableID string) error {
	if tableID == "" {
		return apperr.Validation("table_id is required")
	}
	if err := s.store.Tables().DeleteTable(ctx, tableID); err != nil {
		logFailure(s.logger, "DeleteTable failed", err, zap.String("table_id", tableID))
		return fmt.Errorf("failed to delete table: %w", err)
	}
	s.logger.Info("Table deleted", zap.String("table_id", tableID))
	return nil
}

// GetStats 各状态桌台数（每个状态都有键）
func (s *tableService) GetStats(ctx context.Context) (domain.TableStats, error) {
	counts, err := s.store.Tables().CountTablesByStatus(ctx)
	if err != nil {
		logFailure(s.logger, "GetStats failed", err)
		return nil, fmt.Errorf("failed to get table stats: %w", err)
	}
	stats := domain.TableStats{}
	for _, st := range domain.AllTableStatuses {
		stats[st] = counts[st]
	}
	return stats, nil
}

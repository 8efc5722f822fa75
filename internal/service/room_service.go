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

// RoomService 就餐区域管理服务接口
type RoomService interface {
	ListRooms(ctx context.Context, req ListRoomsRequest) (*ListRoomsResponse, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.Room, error)
	UpdateRoom(ctx context.Context, req UpdateRoomRequest) (*domain.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
}

// roomService 实现
type roomService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewRoomService 创建 RoomService 实例
func NewRoomService(store repository.Store, logger *zap.Logger) RoomService {
	return &roomService{
		store:  store,
		logger: logger,
	}
}

// ============================================
// 请求/响应结构
// ============================================

type ListRoomsRequest struct {
	ActiveOnly bool // 可选，true = 仅 is_active
}

type ListRoomsResponse struct {
	Items []*domain.Room `json:"items"`
	Total int            `json:"total"`
}

type CreateRoomRequest struct {
	Name        string // 必填
	Description string // 可选
	IsActive    *bool  // 可选，默认 true
}

type UpdateRoomRequest struct {
	RoomID      string  // 必填
	Name        *string // 可选（不能更新为空）
	Description *string // 可选（空字符串 = 清空）
	IsActive    *bool   // 可选
}

// ============================================
// 方法实现
// ============================================

// ListRooms 查询房间列表（ActiveOnly 即 listActive）
func (s *roomService) ListRooms(ctx context.Context, req ListRoomsRequest) (*ListRoomsResponse, error) {
	rooms, err := s.store.Rooms().ListRooms(ctx, repository.RoomFilters{ActiveOnly: req.ActiveOnly})
	if err != nil {
		logFailure(s.logger, "ListRooms failed", err, zap.Bool("active_only", req.ActiveOnly))
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return &ListRoomsResponse{Items: rooms, Total: len(rooms)}, nil
}

func (s *roomService) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	if roomID == "" {
		return nil, apperr.Validation("room_id is required")
	}
	room, err := s.store.Rooms().GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (s *roomService) CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.Room, error) {
	// 1. 参数验证
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	// 2. 写入
	room, err := s.store.Rooms().CreateRoom(ctx, &domain.Room{
		Name:        name,
		Description: toNullString(req.Description),
		IsActive:    active,
	})
	if err != nil {
		logFailure(s.logger, "CreateRoom failed", err, zap.String("name", name))
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	s.logger.Info("Room created", zap.String("room_id", room.RoomID), zap.String("name", room.Name))
	return room, nil
}

func (s *roomService) UpdateRoom(ctx context.Context, req UpdateRoomRequest) (*domain.Room, error) {
	if req.RoomID == "" {
		return nil, apperr.Validation("room_id is required")
	}
	patch := repository.RoomPatch{
		Name:        trimPtr(req.Name),
		Description: trimPtr(req.Description),
		IsActive:    req.IsActive,
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, apperr.Validation("name cannot be empty")
	}

	room, err := s.store.Rooms().UpdateRoom(ctx, req.RoomID, patch)
	if err != nil {
		logFailure(s.logger, "UpdateRoom failed", err, zap.String("room_id", req.RoomID))
		return nil, fmt.Errorf("failed to update room: %w", err)
	}
	return room, nil
}

// DeleteRoom 被桌台或分组引用时拒绝；检查与删除在同一事务内
func (s *roomService) DeleteRoom(ctx context.Context, roomID string) error {
	if roomID == "" {
		return apperr.Validation("room_id is required")
	}

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Rooms().GetRoom(ctx, roomID); err != nil {
			return err
		}
		tables, err := tx.Tables().CountTables(ctx, repository.TableFilters{RoomID: roomID})
		if err != nil {
			return err
		}
		if tables > 0 {
			return apperr.Conflict("room is referenced by %d table(s)", tables).WithContext("room_id", roomID)
		}
		groups, err := tx.TableGroups().CountTableGroups(ctx, repository.TableGroupFilters{RoomID: roomID})
		if err != nil {
			return err
		}
		if groups > 0 {
			return apperr.Conflict("room is referenced by %d table group(s)", groups).WithContext("room_id", roomID)
		}
		return tx.Rooms().DeleteRoom(ctx, roomID)
	})
	if err != nil {
		logFailure(s.logger, "DeleteRoom failed", err, zap.String("room_id", roomID))
		return fmt.Errorf("failed to delete room: %w", err)
	}

	s.logger.Info("Room deleted", zap.String("room_id", roomID))
	return nil
}

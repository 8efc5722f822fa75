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

// TableGroupService 桌台分组管理服务接口
type TableGroupService interface {
	ListTableGroups(ctx context.Context, req ListTableGroupsRequest) (*ListTableGroupsResponse, error)
	GetTableGroup(ctx context.Context, groupID string) (*domain.TableGroup, error)
	CreateTableGroup(ctx context.Context, req CreateTableGroupRequest) (*domain.TableGroup, error)
	UpdateTableGroup(ctx context.Context, req UpdateTableGroupRequest) (*domain.TableGroup, error)
	DeleteTableGroup(ctx context.Context, groupID string) error
}

type tableGroupService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewTableGroupService(store repository.Store, logger *zap.Logger) TableGroupService {
	return &tableGroupService{
		store:  store,
		logger: logger,
	}
}

type ListTableGroupsRequest struct {
	RoomID string // 可选（listByRoom）
}

type ListTableGroupsResponse struct {
	Items []*domain.TableGroup `json:"items"`
	Total int                  `json:"total"`
}

type CreateTableGroupRequest struct {
	Name        string // 必填
	Description string // 可选
	RoomID      string // 可选，必须存在
}

type UpdateTableGroupRequest struct {
	GroupID     string  // 必填
	Name        *string // 可选
	Description *string // 可选
	RoomID      *string // 可选（空字符串 = 移出房间）
}

func (s *tableGroupService) ListTableGroups(ctx context.Context, req ListTableGroupsRequest) (*ListTableGroupsResponse, error) {
	groups, err := s.store.TableGroups().ListTableGroups(ctx, repository.TableGroupFilters{RoomID: req.RoomID})
	if err != nil {
		logFailure(s.logger, "ListTableGroups failed", err, zap.String("room_id", req.RoomID))
		return nil, fmt.Errorf("failed to list table groups: %w", err)
	}
	return &ListTableGroupsResponse{Items: groups, Total: len(groups)}, nil
}

func (s *tableGroupService) GetTableGroup(ctx context.Context, groupID string) (*domain.TableGroup, error) {
	if groupID == "" {
		return nil, apperr.Validation("group_id is required")
	}
	group, err := s.store.TableGroups().GetTableGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get table group: %w", err)
	}
	return group, nil
}

func (s *tableGroupService) CreateTableGroup(ctx context.Context, req CreateTableGroupRequest) (*domain.TableGroup, error) {
	// 1. 参数验证
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	roomID := strings.TrimSpace(req.RoomID)

	// 2. 验证 room 存在后写入
	var group *domain.TableGroup
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if roomID != "" {
			if _, err := tx.Rooms().GetRoom(ctx, roomID); err != nil {
				return err
			}
		}
		var err error
		group, err = tx.TableGroups().CreateTableGroup(ctx, &domain.TableGroup{
			Name:        name,
			Description: toNullString(req.Description),
			RoomID:      toNullString(roomID),
		})
		return err
	})
	if err != nil {
		logFailure(s.logger, "CreateTableGroup failed", err, zap.String("name", name), zap.String("room_id", roomID))
		return nil, fmt.Errorf("failed to create table group: %w", err)
	}
	return group, nil
}

// UpdateTableGroup 更换房间时，所有成员桌台必须已在新房间内
func (s *tableGroupService) UpdateTableGroup(ctx context.Context, req UpdateTableGroupRequest) (*domain.TableGroup, error) {
	if req.GroupID == "" {
		return nil, apperr.Validation("group_id is required")
	}
	patch := repository.TableGroupPatch{
		Name:        trimPtr(req.Name),
		Description: trimPtr(req.Description),
		RoomID:      trimPtr(req.RoomID),
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, apperr.Validation("name cannot be empty")
	}

	var group *domain.TableGroup
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.TableGroups().GetTableGroup(ctx, req.GroupID)
		if err != nil {
			return err
		}
		if patch.RoomID != nil {
			newRoom := toNullString(*patch.RoomID)
			if newRoom.Valid {
				if _, err := tx.Rooms().GetRoom(ctx, newRoom.String); err != nil {
					return err
				}
			}
			if !nullStringsEqual(current.RoomID, newRoom) {
				members, err := tx.Tables().ListTables(ctx, repository.TableFilters{GroupID: req.GroupID})
				if err != nil {
					return err
				}
				for _, t := range members {
					if !nullStringsEqual(t.RoomID, newRoom) {
						return apperr.Conflict("table %s of this group is in a different room", t.Number).
							WithContext("table_id", t.TableID)
					}
				}
			}
		}
		group, err = tx.TableGroups().UpdateTableGroup(ctx, req.GroupID, patch)
		return err
	})
	if err != nil {
		logFailure(s.logger, "UpdateTableGroup failed", err, zap.String("group_id", req.GroupID))
		return nil, fmt.Errorf("failed to update table group: %w", err)
	}
	return group, nil
}

func (s *tableGroupService) DeleteTableGroup(ctx context.Context, groupID string) error {
	if groupID == "" {
		return apperr.Validation("group_id is required")
	}

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.TableGroups().GetTableGroup(ctx, groupID); err != nil {
			return err
		}
		n, err := tx.Tables().CountTables(ctx, repository.TableFilters{GroupID: groupID})
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("table group is referenced by %d table(s)", n).WithContext("group_id", groupID)
		}
		return tx.TableGroups().DeleteTableGroup(ctx, groupID)
	})
	if err != nil {
		logFailure(s.logger, "DeleteTableGroup failed", err, zap.String("group_id", groupID))
		return fmt.Errorf("failed to delete table group: %w", err)
	}

	s.logger.Info("Table group deleted", zap.String("group_id", groupID))
	return nil
}

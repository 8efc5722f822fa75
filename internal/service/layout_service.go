package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"
	"floor-data/internal/repository"
	"floor-data/internal/store"

	"go.uber.org/zap"
)

// LayoutService 楼面布局管理服务接口
// 同一作用域（房间或全局）任意时刻最多一个激活布局
type LayoutService interface {
	ListLayouts(ctx context.Context, req ListLayoutsRequest) (*ListLayoutsResponse, error)
	GetLayout(ctx context.Context, layoutID string) (*domain.TableLayout, error)
	// GetActiveLayout 作用域内无激活布局时返回 nil, nil
	GetActiveLayout(ctx context.Context, scope domain.LayoutScope) (*domain.TableLayout, error)
	CreateLayout(ctx context.Context, req CreateLayoutRequest) (*domain.TableLayout, error)
	UpdateLayout(ctx context.Context, req UpdateLayoutRequest) (*domain.TableLayout, error)
	DeleteLayout(ctx context.Context, layoutID string) error
	ActivateLayout(ctx context.Context, req ActivateLayoutRequest) (*ActivateLayoutResponse, error)
	DeactivateLayout(ctx context.Context, layoutID string) (*domain.TableLayout, error)
}

type layoutService struct {
	store  repository.Store
	locker store.ScopeLocker
	logger *zap.Logger
}

// NewLayoutService locker 为 nil 时只依赖存储事务串行化
func NewLayoutService(st repository.Store, locker store.ScopeLocker, logger *zap.Logger) LayoutService {
	if locker == nil {
		locker = store.NopScopeLocker{}
	}
	return &layoutService{
		store:  st,
		locker: locker,
		logger: logger,
	}
}

type ListLayoutsRequest struct {
	Scope *domain.LayoutScope // 可选，nil = 全部
}

type ListLayoutsResponse struct {
	Items []*domain.TableLayout `json:"items"`
	Total int                   `json:"total"`
}

type CreateLayoutRequest struct {
	Name       string // 必填
	RoomID     string // 可选，空 = 全局
	IsActive   bool   // 可选，true 时按激活协议写入
	LayoutData string // 可选，必须是合法 JSON
}

type UpdateLayoutRequest struct {
	LayoutID   string  // 必填
	Name       *string // 可选
	LayoutData *string // 可选（空字符串 = 清空）
}

type ActivateLayoutRequest struct {
	LayoutID string             // 必填
	Scope    domain.LayoutScope // 必须等于布局自身作用域
}

type ActivateLayoutResponse struct {
	Layout      *domain.TableLayout `json:"layout"`
	Deactivated int64               `json:"deactivated"`
}

func validateLayoutData(data string) error {
	if data != "" && !json.Valid([]byte(data)) {
		return apperr.Validation("layout_data must be valid JSON")
	}
	return nil
}

func (s *layoutService) ListLayouts(ctx context.Context, req ListLayoutsRequest) (*ListLayoutsResponse, error) {
	layouts, err := s.store.Layouts().ListLayouts(ctx, repository.LayoutFilters{Scope: req.Scope})
	if err != nil {
		logFailure(s.logger, "ListLayouts failed", err)
		return nil, fmt.Errorf("failed to list layouts: %w", err)
	}
	return &ListLayoutsResponse{Items: layouts, Total: len(layouts)}, nil
}

func (s *layoutService) GetLayout(ctx context.Context, layoutID string) (*domain.TableLayout, error) {
	if layoutID == "" {
		return nil, apperr.Validation("layout_id is required")
	}
	layout, err := s.store.Layouts().GetLayout(ctx, layoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to get layout: %w", err)
	}
	return layout, nil
}

func (s *layoutService) GetActiveLayout(ctx context.Context, scope domain.LayoutScope) (*domain.TableLayout, error) {
	layouts, err := s.store.Layouts().ListLayouts(ctx, repository.LayoutFilters{Scope: &scope, ActiveOnly: true})
	if err != nil {
		logFailure(s.logger, "GetActiveLayout failed", err, zap.String("scope", scope.Key()))
		return nil, fmt.Errorf("failed to get active layout: %w", err)
	}
	if len(layouts) == 0 {
		return nil, nil
	}
	return layouts[0], nil
}

func (s *layoutService) CreateLayout(ctx context.Context, req CreateLayoutRequest) (*domain.TableLayout, error) {
	// 1. 参数验证
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	data := strings.TrimSpace(req.LayoutData)
	if err := validateLayoutData(data); err != nil {
		return nil, err
	}
	scope := domain.RoomScope(strings.TrimSpace(req.RoomID))

	// 2. 激活布局需要先取得作用域锁
	unlock := func() {}
	if req.IsActive {
		var err error
		if unlock, err = s.locker.Lock(ctx, scope); err != nil {
			logFailure(s.logger, "CreateLayout lock failed", err, zap.String("scope", scope.Key()))
			return nil, fmt.Errorf("failed to create layout: %w", err)
		}
	}
	defer unlock()

	// 3. 先以未激活写入，再在同一事务内走激活协议
	var created *domain.TableLayout
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if !scope.IsGlobal() {
			if _, err := tx.Rooms().GetRoom(ctx, scope.RoomID.String); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.Layouts().CreateLayout(ctx, &domain.TableLayout{
			Name:       name,
			RoomID:     scope.RoomID,
			LayoutData: toNullString(data),
		})
		if err != nil || !req.IsActive {
			return err
		}
		created, _, err = activateInTx(ctx, tx, created.LayoutID, scope)
		return err
	})
	if err != nil {
		logFailure(s.logger, "CreateLayout failed", err, zap.String("name", name), zap.String("scope", scope.Key()))
		return nil, fmt.Errorf("failed to create layout: %w", err)
	}

	s.logger.Info("Layout created",
		zap.String("layout_id", created.LayoutID),
		zap.String("scope", scope.Key()),
		zap.Bool("is_active", created.IsActive),
	)
	return created, nil
}

// UpdateLayout 不能修改 is_active 与作用域
func (s *layoutService) UpdateLayout(ctx context.Context, req UpdateLayoutRequest) (*domain.TableLayout, error) {
	if req.LayoutID == "" {
		return nil, apperr.Validation("layout_id is required")
	}
	patch := repository.LayoutPatch{
		Name:       trimPtr(req.Name),
		LayoutData: trimPtr(req.LayoutData),
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, apperr.Validation("name cannot be empty")
	}
	if patch.LayoutData != nil {
		if err := validateLayoutData(*patch.LayoutData); err != nil {
			return nil, err
		}
	}

	layout, err := s.store.Layouts().UpdateLayout(ctx, req.LayoutID, patch)
	if err != nil {
		logFailure(s.logger, "UpdateLayout failed", err, zap.String("layout_id", req.LayoutID))
		return nil, fmt.Errorf("failed to update layout: %w", err)
	}
	return layout, nil
}

func (s *layoutService) DeleteLayout(ctx context.Context, layoutID string) error {
	if layoutID == "" {
		return apperr.Validation("layout_id is required")
	}
	if err := s.store.Layouts().DeleteLayout(ctx, layoutID); err != nil {
		logFailure(s.logger, "DeleteLayout failed", err, zap.String("layout_id", layoutID))
		return fmt.Errorf("failed to delete layout: %w", err)
	}
	return nil
}

// activateInTx 激活协议：锁作用域 → 作用域内全部停用 → 激活目标
func activateInTx(ctx context.Context, tx repository.Store, layoutID string, scope domain.LayoutScope) (*domain.TableLayout, int64, error) {
	if err := tx.Layouts().LockScope(ctx, scope); err != nil {
		return nil, 0, err
	}
	// 锁内重新读取：等待期间布局可能已被删除
	layout, err := tx.Layouts().GetLayout(ctx, layoutID)
	if err != nil {
		return nil, 0, err
	}
	if !layout.Scope().Equal(scope) {
		return nil, 0, apperr.Validation("layout %s belongs to scope %s, not %s", layoutID, layout.Scope().Key(), scope.Key())
	}
	n, err := tx.Layouts().DeactivateScope(ctx, scope)
	if err != nil {
		return nil, 0, err
	}
	layout, err = tx.Layouts().SetLayoutActive(ctx, layoutID, true)
	if err != nil {
		return nil, 0, err
	}
	return layout, n, nil
}

// ActivateLayout 在一个事务内完成停用与激活；并发激活按作用域串行
func (s *layoutService) ActivateLayout(ctx context.Context, req ActivateLayoutRequest) (*ActivateLayoutResponse, error) {
	if req.LayoutID == "" {
		return nil, apperr.Validation("layout_id is required")
	}

	// 1. 作用域必须与布局一致（锁外先行校验，避免无谓加锁）
	layout, err := s.store.Layouts().GetLayout(ctx, req.LayoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to activate layout: %w", err)
	}
	if !layout.Scope().Equal(req.Scope) {
		return nil, apperr.Validation("layout %s belongs to scope %s, not %s",
			req.LayoutID, layout.Scope().Key(), req.Scope.Key())
	}

	// 2. 跨进程作用域锁
	unlock, err := s.locker.Lock(ctx, req.Scope)
	if err != nil {
		logFailure(s.logger, "ActivateLayout lock failed", err, zap.String("scope", req.Scope.Key()))
		return nil, fmt.Errorf("failed to activate layout: %w", err)
	}
	defer unlock()

	// 3. 事务内执行激活协议
	resp := &ActivateLayoutResponse{}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		resp.Layout, resp.Deactivated, err = activateInTx(ctx, tx, req.LayoutID, req.Scope)
		return err
	})
	if err != nil {
		logFailure(s.logger, "ActivateLayout failed", err,
			zap.String("layout_id", req.LayoutID),
			zap.String("scope", req.Scope.Key()),
		)
		return nil, fmt.Errorf("failed to activate layout: %w", err)
	}

	s.logger.Info("Layout activated",
		zap.String("layout_id", req.LayoutID),
		zap.String("scope", req.Scope.Key()),
		zap.Int64("deactivated", resp.Deactivated),
	)
	return resp, nil
}

// DeactivateLayout 允许作用域内没有激活布局
func (s *layoutService) DeactivateLayout(ctx context.Context, layoutID string) (*domain.TableLayout, error) {
	if layoutID == "" {
		return nil, apperr.Validation("layout_id is required")
	}
	layout, err := s.store.Layouts().SetLayoutActive(ctx, layoutID, false)
	if err != nil {
		logFailure(s.logger, "DeactivateLayout failed", err, zap.String("layout_id", layoutID))
		return nil, fmt.Errorf("failed to deactivate layout: %w", err)
	}
	s.logger.Info("Layout deactivated", zap.String("layout_id", layoutID))
	return layout, nil
}

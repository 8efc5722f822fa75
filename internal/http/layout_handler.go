package httpapi

import (
	"net/http"
	"strings"
	"time"

	"floor-data/internal/apperr"
	"floor-data/internal/domain"
	"floor-data/internal/service"

	"go.uber.org/zap"
)

const layoutsPath = "/admin/api/v1/layouts"

// LayoutHandler 楼面布局 Handler
type LayoutHandler struct {
	layoutService service.LayoutService
	logger        *zap.Logger
}

func NewLayoutHandler(layoutService service.LayoutService, logger *zap.Logger) *LayoutHandler {
	return &LayoutHandler{
		layoutService: layoutService,
		logger:        logger,
	}
}

func (h *LayoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == layoutsPath && r.Method == http.MethodGet:
		h.ListLayouts(w, r)
	case path == layoutsPath && r.Method == http.MethodPost:
		h.CreateLayout(w, r)
	case path == layoutsPath+"/active" && r.Method == http.MethodGet:
		h.GetActiveLayout(w, r)
	case strings.HasSuffix(path, "/activate") && r.Method == http.MethodPost:
		h.ActivateLayout(w, r)
	case strings.HasSuffix(path, "/deactivate") && r.Method == http.MethodPost:
		h.DeactivateLayout(w, r)
	case strings.HasPrefix(path, layoutsPath+"/") && r.Method == http.MethodGet:
		h.GetLayout(w, r)
	case strings.HasPrefix(path, layoutsPath+"/") && r.Method == http.MethodPut:
		h.UpdateLayout(w, r)
	case strings.HasPrefix(path, layoutsPath+"/") && r.Method == http.MethodDelete:
		h.DeleteLayout(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// scopeFromQuery ?room_id=<id> 或 ?scope=global；都没有时返回 nil（不过滤）
func scopeFromQuery(r *http.Request) (*domain.LayoutScope, error) {
	q := r.URL.Query()
	roomID := strings.TrimSpace(q.Get("room_id"))
	scope := strings.TrimSpace(q.Get("scope"))
	switch {
	case roomID != "" && scope != "":
		return nil, apperr.Validation("room_id and scope are mutually exclusive")
	case roomID != "":
		s := domain.RoomScope(roomID)
		return &s, nil
	case scope == domain.GlobalScope:
		s := domain.LayoutScope{}
		return &s, nil
	case scope != "":
		return nil, apperr.Validation("invalid scope: %s", scope)
	}
	return nil, nil
}

func (h *LayoutHandler) ListLayouts(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.layoutService.ListLayouts(r.Context(), service.ListLayoutsRequest{Scope: scope})
	if err != nil {
		h.logger.Error("ListLayouts failed", zap.Error(err))
		writeError(w, err)
		return
	}

	out := make([]any, 0, len(resp.Items))
	for _, l := range resp.Items {
		out = append(out, layoutToJSON(l))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": resp.Total}))
}

// GetActiveLayout ?room_id= 缺省为全局；无激活布局时 result 为 null
func (h *LayoutHandler) GetActiveLayout(w http.ResponseWriter, r *http.Request) {
	scope := domain.RoomScope(strings.TrimSpace(r.URL.Query().Get("room_id")))
	layout, err := h.layoutService.GetActiveLayout(r.Context(), scope)
	if err != nil {
		h.logger.Error("GetActiveLayout failed", zap.String("scope", scope.Key()), zap.Error(err))
		writeError(w, err)
		return
	}
	if layout == nil {
		writeJSON(w, http.StatusOK, Ok[any](nil))
		return
	}
	writeJSON(w, http.StatusOK, Ok(layoutToJSON(layout)))
}

func (h *LayoutHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	layoutID, ok := pathID(r.URL.Path, layoutsPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	layout, err := h.layoutService.GetLayout(r.Context(), layoutID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(layoutToJSON(layout)))
}

func (h *LayoutHandler) CreateLayout(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, invalidBody(err))
		return
	}
	data, err := layoutDataString(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	req := service.CreateLayoutRequest{
		Name:   getString(payload, "name"),
		RoomID: getString(payload, "room_id"),
	}
	if active := getBoolPtr(payload, "is_active"); active != nil {
		req.IsActive = *active
	}
	if data != nil {
		req.LayoutData = *data
	}

	layout, err := h.layoutService.CreateLayout(r.Context(), req)
	if err != nil {
		h.logger.Warn("CreateLayout failed", zap.String("name", req.Name), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(layoutToJSON(layout)))
}

// UpdateLayout 只允许 name / layout_data；is_active 通过 activate / deactivate 修改
func (h *LayoutHandler) UpdateLayout(w http.ResponseWriter, r *http.Request) {
	layoutID, ok := pathID(r.URL.Path, layoutsPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, invalidBody(err))
		return
	}
	if _, ok := payload["is_active"]; ok {
		writeError(w, apperr.Validation("is_active cannot be updated directly, use activate or deactivate"))
		return
	}
	if _, ok := payload["room_id"]; ok {
		writeError(w, apperr.Validation("layout scope cannot be changed"))
		return
	}
	data, err := layoutDataString(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	layout, err := h.layoutService.UpdateLayout(r.Context(), service.UpdateLayoutRequest{
		LayoutID:   layoutID,
		Name:       getStringPtr(payload, "name"),
		LayoutData: data,
	})
	if err != nil {
		h.logger.Warn("UpdateLayout failed", zap.String("layout_id", layoutID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(layoutToJSON(layout)))
}

func (h *LayoutHandler) DeleteLayout(w http.ResponseWriter, r *http.Request) {
	layoutID, ok := pathID(r.URL.Path, layoutsPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.layoutService.DeleteLayout(r.Context(), layoutID); err != nil {
		h.logger.Warn("DeleteLayout failed", zap.String("layout_id", layoutID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// ActivateLayout body: {"room_id": "..."}，缺省或 null 表示全局作用域
func (h *LayoutHandler) ActivateLayout(w http.ResponseWriter, r *http.Request) {
	layoutID, action, ok := pathIDAction(r.URL.Path, layoutsPath+"/")
	if !ok || action != "activate" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, invalidBody(err))
		return
	}

	resp, err := h.layoutService.ActivateLayout(r.Context(), service.ActivateLayoutRequest{
		LayoutID: layoutID,
		Scope:    domain.RoomScope(strings.TrimSpace(getString(payload, "room_id"))),
	})
	if err != nil {
		h.logger.Warn("ActivateLayout failed", zap.String("layout_id", layoutID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"layout":      layoutToJSON(resp.Layout),
		"deactivated": resp.Deactivated,
	}))
}

func (h *LayoutHandler) DeactivateLayout(w http.ResponseWriter, r *http.Request) {
	layoutID, action, ok := pathIDAction(r.URL.Path, layoutsPath+"/")
	if !ok || action != "deactivate" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	layout, err := h.layoutService.DeactivateLayout(r.Context(), layoutID)
	if err != nil {
		h.logger.Warn("DeactivateLayout failed", zap.String("layout_id", layoutID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(layoutToJSON(layout)))
}

func layoutToJSON(l *domain.TableLayout) map[string]any {
	m := map[string]any{
		"layout_id":  l.LayoutID,
		"name":       l.Name,
		"is_active":  l.IsActive,
		"scope":      l.Scope().Key(),
		"created_at": l.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": l.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if l.RoomID.Valid {
		m["room_id"] = l.RoomID.String
	}
	if l.LayoutData.Valid {
		m["layout_data"] = jsonRawOrString(l.LayoutData.String)
	}
	return m
}

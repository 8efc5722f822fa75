package httpapi

import (
	"net/http"
	"strings"
	"time"

	"floor-data/internal/domain"
	"floor-data/internal/service"

	"go.uber.org/zap"
)

const tableGroupsPath = "/admin/api/v1/table-groups"

// TableGroupHandler 桌台分组 Handler
type TableGroupHandler struct {
	groupService service.TableGroupService
	logger       *zap.Logger
}

func NewTableGroupHandler(groupService service.TableGroupService, logger *zap.Logger) *TableGroupHandler {
	return &TableGroupHandler{
		groupService: groupService,
		logger:       logger,
	}
}

func (h *TableGroupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == tableGroupsPath && r.Method == http.MethodGet:
		h.ListTableGroups(w, r)
	case r.URL.Path == tableGroupsPath && r.Method == http.MethodPost:
		h.CreateTableGroup(w, r)
	case strings.HasPrefix(r.URL.Path, tableGroupsPath+"/") && r.Method == http.MethodGet:
		h.GetTableGroup(w, r)
	case strings.HasPrefix(r.URL.Path, tableGroupsPath+"/") && r.Method == http.MethodPut:
		h.UpdateTableGroup(w, r)
	case strings.HasPrefix(r.URL.Path, tableGroupsPath+"/") && r.Method == http.MethodDelete:
		h.DeleteTableGroup(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *TableGroupHandler) ListTableGroups(w http.ResponseWriter, r *http.Request) {
	req := service.ListTableGroupsRequest{RoomID: r.URL.Query().Get("room_id")}
	resp, err := h.groupService.ListTableGroups(r.Context(), req)
	if err != nil {
		h.logger.Error("ListTableGroups failed", zap.Error(err))
		writeError(w, err)
		return
	}

	out := make([]any, 0, len(resp.Items))
	for _, g := range resp.Items {
		out = append(out, tableGroupToJSON(g))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": resp.Total}))
}

func (h *TableGroupHandler) GetTableGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(r.URL.Path, tableGroupsPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	group, err := h.groupService.GetTableGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tableGroupToJSON(group)))
}

func (h *TableGroupHandler) CreateTableGroup(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, invalidBody(err))
		return
	}

	req := service.CreateTableGroupRequest{
		Name:        getString(payload, "name"),
		Description: getString(payload, "description"),
		RoomID:      getString(payload, "room_id"),
	}
	group, err := h.groupService.CreateTableGroup(r.Context(), req)
	if err != nil {
		h.logger.Warn("CreateTableGroup failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(tableGroupToJSON(group)))
}

// UpdateTableGroup room_id: null 表示移出房间
func (h *TableGroupHandler) UpdateTableGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(r.URL.Path, tableGroupsPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, invalidBody(err))
		return
	}

	req := service.UpdateTableGroupRequest{
		GroupID:     groupID,
		Name:        getStringPtr(payload, "name"),
		Description: getStringPtr(payload, "description"),
		RoomID:      getStringPtr(payload, "room_id"),
	}
	group, err := h.groupService.UpdateTableGroup(r.Context(), req)
	if err != nil {
		h.logger.Warn("UpdateTableGroup failed", zap.String("group_id", groupID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tableGroupToJSON(group)))
}

func (h *TableGroupHandler) DeleteTableGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(r.URL.Path, tableGroupsPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.groupService.DeleteTableGroup(r.Context(), groupID); err != nil {
		h.logger.Warn("DeleteTableGroup failed", zap.String("group_id", groupID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func tableGroupToJSON(g *domain.TableGroup) map[string]any {
	m := map[string]any{
		"group_id":   g.GroupID,
		"name":       g.Name,
		"created_at": g.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": g.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if g.Description.Valid {
		m["description"] = g.Description.String
	}
	if g.RoomID.Valid {
		m["room_id"] = g.RoomID.String
	}
	return m
}

package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"floor-data/internal/domain"
	"floor-data/internal/service"

	"go.uber.org/zap"
)

const tablesPath = "/admin/api/v1/tables"

// TableHandler 桌台 Handler（含几何、状态、统计、展示详情与导出）
type TableHandler struct {
	tableService  service.TableService
	detailService service.TableDetailService
	roomService   service.RoomService
	groupService  service.TableGroupService
	logger        *zap.Logger
}

func NewTableHandler(
	tableService service.TableService,
	detailService service.TableDetailService,
	roomService service.RoomService,
	groupService service.TableGroupService,
	logger *zap.Logger,
) *TableHandler {
	return &TableHandler{
		tableService:  tableService,
		detailService: detailService,
		roomService:   roomService,
		groupService:  groupService,
		logger:        logger,
	}
}

// ServeHTTP 固定子路径（stats / details / export）先于 {id} 匹配
func (h *TableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == tablesPath && r.Method == http.MethodGet:
		h.ListTables(w, r)
	case path == tablesPath && r.Method == http.MethodPost:
		h.CreateTable(w, r)
	case path == tablesPath+"/stats" && r.Method == http.MethodGet:
		h.GetStats(w, r)
	case path == tablesPath+"/details" && r.Method == http.MethodGet:
		h.ListTableDetails(w, r)
	case path == tablesPath+"/export" && r.Method == http.MethodGet:
		h.ExportTables(w, r)
	case strings.HasSuffix(path, "/geometry") && r.Method == http.MethodPut:
		h.UpdateGeometry(w, r)
	case strings.HasSuffix(path, "/status") && r.Method == http.MethodPut:
		h.SetStatus(w, r)
	case strings.HasPrefix(path, tablesPath+"/") && r.Method == http.MethodGet:
		h.GetTable(w, r)
	case strings.HasPrefix(path, tablesPath+"/") && r.Method == http.MethodPut:
		h.UpdateTable(w, r)
	case strings.HasPrefix(path, tablesPath+"/") && r.Method == http.MethodDelete:
		h.DeleteTable(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListTables ?room_id=&group_id=&status=
func (h *TableHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := service.ListTablesRequest{
		RoomID:  q.Get("room_id"),
		GroupID: q.Get("group_id"),
		Status:  q.Get("status"),
	}
	resp, err := h.tableService.ListTables(r.Context(), req)
	if err != nil {
		h.logger.Error("ListTables failed", zap.Error(err))
		writeError(w, err)
		return
	}

	out := make([]any, 0, len(resp.Items))
	for _, t := range resp.Items {
		out = append(out, tableToJSON(t))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": resp.Total}))
}

func (h *TableHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathID(r.URL.Path, tablesPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	table, err := h.tableService.GetTable(r.Context(), tableID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tableToJSON(table)))
}

func (h *TableHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, invalidBody(err))
		return
	}

	capacity, err := getIntPtr(payload, "capacity")
	if err != nil {
		writeError(w, err)
		return
	}
	geometry, err := geometryFromPayload(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	req := service.CreateTableRequest{
		Number:   getString(payload, "table_number"),
		RoomID:   getString(payload, "room_id"),
		GroupID:  getString(payload, "group_id"),
		Location: getString(payload, "location"),
		Geometry: geometry,
	}
	if capacity != nil {
		req.Capacity = *capacity
	}

	table, err := h.tableService.CreateTable(r.Context(), req)
	if err != nil {
		h.logger.Warn("CreateTable failed", zap.String("table_number", req.Number), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(tableToJSON(table)))
}

// UpdateTable 部分更新；room_id / group_id / location 为 null 时清空
func (h *TableHandler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathID(r.URL.Path, tablesPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, invalidBody(err))
		return
	}
	capacity, err := getIntPtr(payload, "capacity")
	if err != nil {
		writeError(w, err)
		return
	}

	req := service.UpdateTableRequest{
		TableID:  tableID,
		Number:   getStringPtr(payload, "table_number"),
		Capacity: capacity,
		RoomID:   getStringPtr(payload, "room_id"),
		GroupID:  getStringPtr(payload, "group_id"),
		Location: getStringPtr(payload, "location"),
	}
	table, err := h.tableService.UpdateTable(r.Context(), req)
	if err != nil {
		h.logger.Warn("UpdateTable failed", zap.String("table_id", tableID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tableToJSON(table)))
}

func (h *TableHandler) UpdateGeometry(w http.ResponseWriter, r *http.Request) {
	tableID, action, ok := pathIDAction(r.URL.Path, tablesPath+"/")
	if !ok || action != "geometry" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, invalidBody(err))
		return
	}
	geometry, err := geometryFromPayload(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	table, err := h.tableService.UpdateGeometry(r.Context(), service.UpdateGeometryRequest{TableID: tableID, GeometryInput: geometry})
	if err != nil {
		h.logger.Warn("UpdateGeometry failed", zap.String("table_id", tableID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tableToJSON(table)))
}

// SetStatus 响应包含修改前的状态
func (h *TableHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	tableID, action, ok := pathIDAction(r.URL.Path, tablesPath+"/")
	if !ok || action != "status" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, invalidBody(err))
		return
	}

	resp, err := h.tableService.SetStatus(r.Context(), service.SetStatusRequest{
		TableID: tableID,
		Status:  getString(payload, "status"),
	})
	if err != nil {
		h.logger.Warn("SetStatus failed", zap.String("table_id", tableID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"table":           tableToJSON(resp.Table),
		"previous_status": string(resp.Previous),
	}))
}

func (h *TableHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathID(r.URL.Path, tablesPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.tableService.DeleteTable(r.Context(), tableID); err != nil {
		h.logger.Warn("DeleteTable failed", zap.String("table_id", tableID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// GetStats 每个状态都有键，另附 total
func (h *TableHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tableService.GetStats(r.Context())
	if err != nil {
		h.logger.Error("GetStats failed", zap.Error(err))
		writeError(w, err)
		return
	}

	out := make(map[string]any, len(stats)+1)
	for status, n := range stats {
		out[string(status)] = n
	}
	out["total"] = stats.Total()
	writeJSON(w, http.StatusOK, Ok(out))
}

// ListTableDetails ?room_id=
func (h *TableHandler) ListTableDetails(w http.ResponseWriter, r *http.Request) {
	items, err := h.detailService.ListTableDetails(r.Context(), service.ListTableDetailsRequest{
		RoomID: r.URL.Query().Get("room_id"),
	})
	if err != nil {
		h.logger.Error("ListTableDetails failed", zap.Error(err))
		writeError(w, err)
		return
	}

	out := make([]any, 0, len(items))
	for _, d := range items {
		out = append(out, tableDetailToJSON(d))
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// ExportTables 导出楼面桌台（xlsx），?room_id= 可选
func (h *TableHandler) ExportTables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.detailService.ListTableDetails(ctx, service.ListTableDetailsRequest{
		RoomID: r.URL.Query().Get("room_id"),
	})
	if err != nil {
		h.logger.Error("ListTableDetails for export failed", zap.Error(err))
		writeError(w, err)
		return
	}

	rooms, err := h.roomService.ListRooms(ctx, service.ListRoomsRequest{})
	if err != nil {
		h.logger.Error("ListRooms for export failed", zap.Error(err))
		writeError(w, err)
		return
	}
	roomNames := make(map[string]string, len(rooms.Items))
	for _, room := range rooms.Items {
		roomNames[room.RoomID] = room.Name
	}

	groups, err := h.groupService.ListTableGroups(ctx, service.ListTableGroupsRequest{})
	if err != nil {
		h.logger.Error("ListTableGroups for export failed", zap.Error(err))
		writeError(w, err)
		return
	}
	groupNames := make(map[string]string, len(groups.Items))
	for _, g := range groups.Items {
		groupNames[g.GroupID] = g.Name
	}

	excelData, err := GenerateTableExport(items, roomNames, groupNames)
	if err != nil {
		h.logger.Error("GenerateTableExport failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(fmt.Sprintf("failed to generate export: %v", err)))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=floor-tables-export.xlsx")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(excelData)
}

// geometryFromPayload 平铺字段：position_x, position_y, width, height, rotation, shape
func geometryFromPayload(payload map[string]any) (service.GeometryInput, error) {
	var g service.GeometryInput
	var err error
	if g.PositionX, err = getFloatPtr(payload, "position_x"); err != nil {
		return g, err
	}
	if g.PositionY, err = getFloatPtr(payload, "position_y"); err != nil {
		return g, err
	}
	if g.Width, err = getFloatPtr(payload, "width"); err != nil {
		return g, err
	}
	if g.Height, err = getFloatPtr(payload, "height"); err != nil {
		return g, err
	}
	if g.Rotation, err = getFloatPtr(payload, "rotation"); err != nil {
		return g, err
	}
	if _, ok := payload["shape"]; ok {
		s := getString(payload, "shape")
		g.Shape = &s
	}
	return g, nil
}

func tableToJSON(t *domain.Table) map[string]any {
	m := map[string]any{
		"table_id":     t.TableID,
		"table_number": t.Number,
		"capacity":     t.Capacity,
		"status":       string(t.Status),
		"position_x":   t.PositionX,
		"position_y":   t.PositionY,
		"width":        t.Width,
		"height":       t.Height,
		"rotation":     t.Rotation,
		"shape":        string(t.Shape),
		"created_at":   t.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	// 可空字段为 NULL 时不输出
	if t.RoomID.Valid {
		m["room_id"] = t.RoomID.String
	}
	if t.GroupID.Valid {
		m["group_id"] = t.GroupID.String
	}
	if t.Location.Valid {
		m["location"] = t.Location.String
	}
	return m
}

// tableDetailToJSON 只输出与当前状态相关的展示字段
func tableDetailToJSON(d *domain.TableWithDetails) map[string]any {
	m := tableToJSON(d.Table)
	switch d.Table.Status {
	case domain.TableStatusOccupied:
		m["current_guests"] = d.CurrentGuests
		if d.Server != "" {
			m["server"] = d.Server
		}
		if d.OccupiedSince != "" {
			m["occupied_since"] = d.OccupiedSince
		}
	case domain.TableStatusReserved:
		if d.ReservedFor != "" {
			m["reserved_for"] = d.ReservedFor
		}
		if d.ReservationTime != "" {
			m["reservation_time"] = d.ReservationTime
		}
	}
	return m
}

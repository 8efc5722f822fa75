package httpapi

import (
	"net/http"
	"strings"
	"time"

	"floor-data/internal/domain"
	"floor-data/internal/service"

	"go.uber.org/zap"
)

const roomsPath = "/admin/api/v1/rooms"

// RoomHandler 就餐区域 Handler
type RoomHandler struct {
	roomService service.RoomService
	logger      *zap.Logger
}

func NewRoomHandler(roomService service.RoomService, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		logger:      logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *RoomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == roomsPath && r.Method == http.MethodGet:
		h.ListRooms(w, r)
	case r.URL.Path == roomsPath && r.Method == http.MethodPost:
		h.CreateRoom(w, r)
	case strings.HasPrefix(r.URL.Path, roomsPath+"/") && r.Method == http.MethodGet:
		h.GetRoom(w, r)
	case strings.HasPrefix(r.URL.Path, roomsPath+"/") && r.Method == http.MethodPut:
		h.UpdateRoom(w, r)
	case strings.HasPrefix(r.URL.Path, roomsPath+"/") && r.Method == http.MethodDelete:
		h.DeleteRoom(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListRooms 列表，?active=true 只返回启用的房间
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	req := service.ListRoomsRequest{ActiveOnly: parseBool(r.URL.Query().Get("active"), false)}
	resp, err := h.roomService.ListRooms(r.Context(), req)
	if err != nil {
		h.logger.Error("ListRooms failed", zap.Error(err))
		writeError(w, err)
		return
	}

	out := make([]any, 0, len(resp.Items))
	for _, room := range resp.Items {
		out = append(out, roomToJSON(room))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": resp.Total}))
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r.URL.Path, roomsPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	room, err := h.roomService.GetRoom(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(roomToJSON(room)))
}

func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, invalidBody(err))
		return
	}

	req := service.CreateRoomRequest{
		Name:        getString(payload, "name"),
		Description: getString(payload, "description"),
		IsActive:    getBoolPtr(payload, "is_active"),
	}
	room, err := h.roomService.CreateRoom(r.Context(), req)
	if err != nil {
		h.logger.Warn("CreateRoom failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(roomToJSON(room)))
}

func (h *RoomHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r.URL.Path, roomsPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, invalidBody(err))
		return
	}

	req := service.UpdateRoomRequest{
		RoomID:      roomID,
		Name:        getStringPtr(payload, "name"),
		Description: getStringPtr(payload, "description"),
		IsActive:    getBoolPtr(payload, "is_active"),
	}
	room, err := h.roomService.UpdateRoom(r.Context(), req)
	if err != nil {
		h.logger.Warn("UpdateRoom failed", zap.String("room_id", roomID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(roomToJSON(room)))
}

// DeleteRoom 仍被桌台或分组引用时返回 409
func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r.URL.Path, roomsPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.roomService.DeleteRoom(r.Context(), roomID); err != nil {
		h.logger.Warn("DeleteRoom failed", zap.String("room_id", roomID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func roomToJSON(r *domain.Room) map[string]any {
	m := map[string]any{
		"room_id":    r.RoomID,
		"name":       r.Name,
		"is_active":  r.IsActive,
		"created_at": r.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if r.Description.Valid {
		m["description"] = r.Description.String
	}
	return m
}

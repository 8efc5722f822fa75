package httpapi

import (
	"net/http"
	"strings"
	"time"

	"floor-data/internal/domain"
	"floor-data/internal/service"

	"go.uber.org/zap"
)

const guestSessionsPath = "/admin/api/v1/guest-sessions"

// GuestSessionHandler 入座 / 离座 Handler
type GuestSessionHandler struct {
	sessionService service.GuestSessionService
	logger         *zap.Logger
}

func NewGuestSessionHandler(sessionService service.GuestSessionService, logger *zap.Logger) *GuestSessionHandler {
	return &GuestSessionHandler{
		sessionService: sessionService,
		logger:         logger,
	}
}

func (h *GuestSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == guestSessionsPath && r.Method == http.MethodGet:
		h.ListSessions(w, r)
	case path == guestSessionsPath && r.Method == http.MethodPost:
		h.Seat(w, r)
	case strings.HasSuffix(path, "/complete") && r.Method == http.MethodPost:
		h.Complete(w, r)
	case strings.HasPrefix(path, guestSessionsPath+"/") && r.Method == http.MethodGet:
		h.GetSession(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListSessions 默认返回所有 seated 会话（最近入座在前）
// ?table_id=<id> 返回该桌的历史；再加 &active=true 只返回当前会话（可能为 null）
func (h *GuestSessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	tableID := strings.TrimSpace(q.Get("table_id"))

	if tableID != "" && parseBool(q.Get("active"), false) {
		session, err := h.sessionService.GetActiveForTable(ctx, tableID)
		if err != nil {
			h.logger.Warn("GetActiveForTable failed", zap.String("table_id", tableID), zap.Error(err))
			writeError(w, err)
			return
		}
		if session == nil {
			writeJSON(w, http.StatusOK, Ok[any](nil))
			return
		}
		writeJSON(w, http.StatusOK, Ok(guestSessionToJSON(session)))
		return
	}

	var (
		sessions []*domain.GuestSession
		err      error
	)
	if tableID != "" {
		sessions, err = h.sessionService.ListForTable(ctx, tableID)
	} else {
		sessions, err = h.sessionService.ListActive(ctx)
	}
	if err != nil {
		h.logger.Error("ListSessions failed", zap.String("table_id", tableID), zap.Error(err))
		writeError(w, err)
		return
	}

	out := make([]any, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, guestSessionToJSON(s))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
}

func (h *GuestSessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(r.URL.Path, guestSessionsPath+"/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	session, err := h.sessionService.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(guestSessionToJSON(session)))
}

// Seat body: {"table_id", "guest_count", "server_name", "notes"}
func (h *GuestSessionHandler) Seat(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, invalidBody(err))
		return
	}
	guestCount, err := getIntPtr(payload, "guest_count")
	if err != nil {
		writeError(w, err)
		return
	}

	req := service.SeatRequest{
		TableID:    getString(payload, "table_id"),
		ServerName: getString(payload, "server_name"),
		Notes:      getString(payload, "notes"),
	}
	if guestCount != nil {
		req.GuestCount = *guestCount
	}

	session, err := h.sessionService.Seat(r.Context(), req)
	if err != nil {
		h.logger.Warn("Seat failed", zap.String("table_id", req.TableID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(guestSessionToJSON(session)))
}

// Complete 临时桌会被删除（table_removed = true，不返回 table）
func (h *GuestSessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	sessionID, action, ok := pathIDAction(r.URL.Path, guestSessionsPath+"/")
	if !ok || action != "complete" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	resp, err := h.sessionService.Complete(r.Context(), sessionID)
	if err != nil {
		h.logger.Warn("Complete failed", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, err)
		return
	}

	out := map[string]any{
		"session":       guestSessionToJSON(resp.Session),
		"table_removed": resp.TableRemoved,
	}
	if resp.Table != nil {
		out["table"] = tableToJSON(resp.Table)
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

func guestSessionToJSON(s *domain.GuestSession) map[string]any {
	m := map[string]any{
		"session_id":  s.SessionID,
		"table_id":    s.TableID,
		"guest_count": s.GuestCount,
		"status":      string(s.Status),
		"seated_at":   s.SeatedAt.UTC().Format(time.RFC3339),
	}
	if s.ServerName.Valid {
		m["server_name"] = s.ServerName.String
	}
	if s.Notes.Valid {
		m["notes"] = s.Notes.String
	}
	if s.CompletedAt.Valid {
		m["completed_at"] = s.CompletedAt.Time.UTC().Format(time.RFC3339)
	}
	return m
}

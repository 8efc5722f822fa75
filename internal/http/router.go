package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 注册实现了 http.Handler 的资源 Handler
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.logger.Debug("http request", zap.String("method", req.Method), zap.String("path", req.URL.Path))
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes /healthz
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}

// RegisterRoomRoutes 集合路径与 /{id} 都交给同一个 Handler
func (r *Router) RegisterRoomRoutes(h *RoomHandler) {
	r.HandleHandler(roomsPath, h)
	r.HandleHandler(roomsPath+"/", h)
}

func (r *Router) RegisterTableGroupRoutes(h *TableGroupHandler) {
	r.HandleHandler(tableGroupsPath, h)
	r.HandleHandler(tableGroupsPath+"/", h)
}

// RegisterTableRoutes 含 /stats /details /export /{id}/geometry /{id}/status
func (r *Router) RegisterTableRoutes(h *TableHandler) {
	r.HandleHandler(tablesPath, h)
	r.HandleHandler(tablesPath+"/", h)
}

// RegisterLayoutRoutes 含 /active /{id}/activate /{id}/deactivate
func (r *Router) RegisterLayoutRoutes(h *LayoutHandler) {
	r.HandleHandler(layoutsPath, h)
	r.HandleHandler(layoutsPath+"/", h)
}

func (r *Router) RegisterGuestSessionRoutes(h *GuestSessionHandler) {
	r.HandleHandler(guestSessionsPath, h)
	r.HandleHandler(guestSessionsPath+"/", h)
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"floor-data/internal/repository"
	"floor-data/internal/service"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiFixture struct {
	store  *repository.MemoryStore
	clock  *clockwork.FakeClock
	router *Router
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 1, 30, 0, 0, time.UTC))
	store := repository.NewMemoryStoreWithClock(clock)
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	rooms := service.NewRoomService(store, logger)
	groups := service.NewTableGroupService(store, logger)
	tables := service.NewTableService(store, logger)
	layouts := service.NewLayoutService(store, nil, logger)
	sessions := service.NewGuestSessionService(store, clock, logger)
	details := service.NewTableDetailService(store, clock, denver, logger)

	router := NewRouter(logger)
	router.RegisterHealthRoutes()
	router.RegisterRoomRoutes(NewRoomHandler(rooms, logger))
	router.RegisterTableGroupRoutes(NewTableGroupHandler(groups, logger))
	router.RegisterTableRoutes(NewTableHandler(tables, details, rooms, groups, logger))
	router.RegisterLayoutRoutes(NewLayoutHandler(layouts, logger))
	router.RegisterGuestSessionRoutes(NewGuestSessionHandler(sessions, logger))

	return &apiFixture{store: store, clock: clock, router: router}
}

// apiResponse 解码后的 Result 包
type apiResponse struct {
	Status  int
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (f *apiFixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) call(t *testing.T, method, target string, body any) apiResponse {
	t.Helper()
	w := f.do(t, method, target, body)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	resp.Status = w.Code
	return resp
}

// object 把 result 解成 map
func (r apiResponse) object(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(r.Result, &m))
	return m
}

// items 解 {"items": [...]} 或直接数组
func (r apiResponse) items(t *testing.T) []map[string]any {
	t.Helper()
	var list []map[string]any
	if err := json.Unmarshal(r.Result, &list); err == nil {
		return list
	}
	var wrapped struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(r.Result, &wrapped))
	return wrapped.Items
}

func (f *apiFixture) mustCreate(t *testing.T, target string, body any) map[string]any {
	t.Helper()
	resp := f.call(t, http.MethodPost, target, body)
	require.Equal(t, http.StatusCreated, resp.Status, resp.Message)
	require.Equal(t, ResultSuccess, resp.Code)
	return resp.object(t)
}

package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.call(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "ok", resp.object(t)["status"])

	w := f.do(t, http.MethodPost, "/healthz", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRoomHandler_CRUD(t *testing.T) {
	f := newAPIFixture(t)

	patio := f.mustCreate(t, roomsPath, map[string]any{"name": "Patio", "description": "outside"})
	assert.Equal(t, "Patio", patio["name"])
	assert.Equal(t, "outside", patio["description"])
	assert.Equal(t, true, patio["is_active"])
	roomID := patio["room_id"].(string)

	f.mustCreate(t, roomsPath, map[string]any{"name": "Cellar", "is_active": false})

	all := f.call(t, http.MethodGet, roomsPath, nil)
	assert.Len(t, all.items(t), 2)
	active := f.call(t, http.MethodGet, roomsPath+"?active=true", nil)
	require.Len(t, active.items(t), 1)
	assert.Equal(t, "Patio", active.items(t)[0]["name"])

	got := f.call(t, http.MethodGet, roomsPath+"/"+roomID, nil)
	assert.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, roomID, got.object(t)["room_id"])

	// description: null 清空
	updated := f.call(t, http.MethodPut, roomsPath+"/"+roomID, map[string]any{"name": "Terrace", "description": nil})
	require.Equal(t, http.StatusOK, updated.Status, updated.Message)
	obj := updated.object(t)
	assert.Equal(t, "Terrace", obj["name"])
	_, hasDesc := obj["description"]
	assert.False(t, hasDesc)

	deleted := f.call(t, http.MethodDelete, roomsPath+"/"+roomID, nil)
	assert.Equal(t, http.StatusOK, deleted.Status)

	missing := f.call(t, http.MethodGet, roomsPath+"/"+roomID, nil)
	assert.Equal(t, http.StatusNotFound, missing.Status)
	assert.Equal(t, ResultError, missing.Code)
	assert.Equal(t, "not_found", missing.Type)
}

func TestRoomHandler_DeleteReferencedRoomConflict(t *testing.T) {
	f := newAPIFixture(t)
	room := f.mustCreate(t, roomsPath, map[string]any{"name": "Patio"})
	roomID := room["room_id"].(string)
	f.mustCreate(t, tablesPath, map[string]any{"table_number": "5", "capacity": 4, "room_id": roomID})

	resp := f.call(t, http.MethodDelete, roomsPath+"/"+roomID, nil)
	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.Equal(t, "conflict", resp.Type)

	still := f.call(t, http.MethodGet, roomsPath+"/"+roomID, nil)
	assert.Equal(t, http.StatusOK, still.Status)
}

func TestRoomHandler_Validation(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.call(t, http.MethodPost, roomsPath, map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "validation", resp.Type)

	w := f.do(t, http.MethodPost, roomsPath, "{broken")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, roomsPath+"/a/b", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPatch, roomsPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package httpapi

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTableHandler_CreateListAndGet(t *testing.T) {
	f := newAPIFixture(t)
	patio := f.mustCreate(t, roomsPath, map[string]any{"name": "Patio"})
	roomID := patio["room_id"].(string)

	five := f.mustCreate(t, tablesPath, map[string]any{"table_number": "5", "capacity": 4, "room_id": roomID, "shape": "circle"})
	assert.Equal(t, "5", five["table_number"])
	assert.Equal(t, "available", five["status"])
	assert.Equal(t, "circle", five["shape"])
	assert.Equal(t, 80.0, five["width"])
	f.mustCreate(t, tablesPath, map[string]any{"table_number": "6", "capacity": 2})

	byRoom := f.call(t, http.MethodGet, tablesPath+"?room_id="+roomID, nil)
	require.Equal(t, http.StatusOK, byRoom.Status)
	items := byRoom.items(t)
	require.Len(t, items, 1)
	assert.Equal(t, five["table_id"], items[0]["table_id"])

	got := f.call(t, http.MethodGet, tablesPath+"/"+five["table_id"].(string), nil)
	assert.Equal(t, roomID, got.object(t)["room_id"])
}

func TestTableHandler_CreateValidation(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.call(t, http.MethodPost, tablesPath, map[string]any{"table_number": "1"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = f.call(t, http.MethodPost, tablesPath, map[string]any{"table_number": "1", "capacity": 2.5})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = f.call(t, http.MethodPost, tablesPath, map[string]any{"table_number": "1", "capacity": 2, "width": "wide"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	f.mustCreate(t, tablesPath, map[string]any{"table_number": "1", "capacity": 2})
	resp = f.call(t, http.MethodPost, tablesPath, map[string]any{"table_number": "1", "capacity": 2})
	assert.Equal(t, http.StatusConflict, resp.Status)
}

func TestTableHandler_GeometryAndStatus(t *testing.T) {
	f := newAPIFixture(t)
	table := f.mustCreate(t, tablesPath, map[string]any{"table_number": "1", "capacity": 4, "position_x": 10, "position_y": 20})
	id := table["table_id"].(string)

	geo := f.call(t, http.MethodPut, tablesPath+"/"+id+"/geometry", map[string]any{"rotation": 45})
	require.Equal(t, http.StatusOK, geo.Status, geo.Message)
	obj := geo.object(t)
	assert.Equal(t, 45.0, obj["rotation"])
	assert.Equal(t, 10.0, obj["position_x"])
	assert.Equal(t, 20.0, obj["position_y"])

	bad := f.call(t, http.MethodPut, tablesPath+"/"+id+"/geometry", map[string]any{"width": 0})
	assert.Equal(t, http.StatusBadRequest, bad.Status)

	st := f.call(t, http.MethodPut, tablesPath+"/"+id+"/status", map[string]any{"status": "reserved"})
	require.Equal(t, http.StatusOK, st.Status, st.Message)
	out := st.object(t)
	assert.Equal(t, "available", out["previous_status"])
	assert.Equal(t, "reserved", out["table"].(map[string]any)["status"])

	unknown := f.call(t, http.MethodPut, tablesPath+"/"+id+"/status", map[string]any{"status": "dirty"})
	assert.Equal(t, http.StatusBadRequest, unknown.Status)

	w := f.do(t, http.MethodPut, tablesPath+"/"+id+"/colour", map[string]any{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTableHandler_UpdateClearsGroup(t *testing.T) {
	f := newAPIFixture(t)
	group := f.mustCreate(t, tableGroupsPath, map[string]any{"name": "Booths"})
	table := f.mustCreate(t, tablesPath, map[string]any{"table_number": "1", "capacity": 4, "group_id": group["group_id"]})
	assert.Equal(t, group["group_id"], table["group_id"])

	resp := f.call(t, http.MethodPut, tablesPath+"/"+table["table_id"].(string), map[string]any{"group_id": nil, "capacity": 6})
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)
	obj := resp.object(t)
	_, hasGroup := obj["group_id"]
	assert.False(t, hasGroup)
	assert.Equal(t, 6.0, obj["capacity"])
}

func TestTableHandler_StatsAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	a := f.mustCreate(t, tablesPath, map[string]any{"table_number": "1", "capacity": 4})
	f.mustCreate(t, tablesPath, map[string]any{"table_number": "2", "capacity": 4})
	f.mustCreate(t, guestSessionsPath, map[string]any{"table_id": a["table_id"], "guest_count": 2})

	stats := f.call(t, http.MethodGet, tablesPath+"/stats", nil)
	require.Equal(t, http.StatusOK, stats.Status)
	obj := stats.object(t)
	assert.Equal(t, 1.0, obj["available"])
	assert.Equal(t, 1.0, obj["occupied"])
	assert.Equal(t, 0.0, obj["cleaning"])
	assert.Equal(t, 0.0, obj["reserved"])
	assert.Equal(t, 2.0, obj["total"])

	del := f.call(t, http.MethodDelete, tablesPath+"/"+a["table_id"].(string), nil)
	assert.Equal(t, http.StatusOK, del.Status)
	again := f.call(t, http.MethodDelete, tablesPath+"/"+a["table_id"].(string), nil)
	assert.Equal(t, http.StatusNotFound, again.Status)
}

func TestTableHandler_Details(t *testing.T) {
	f := newAPIFixture(t)
	a := f.mustCreate(t, tablesPath, map[string]any{"table_number": "1", "capacity": 4})
	f.mustCreate(t, tablesPath, map[string]any{"table_number": "2", "capacity": 4})
	f.mustCreate(t, guestSessionsPath, map[string]any{"table_id": a["table_id"], "guest_count": 3, "server_name": "Abebe"})

	resp := f.call(t, http.MethodGet, tablesPath+"/details", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	items := resp.items(t)
	require.Len(t, items, 2)

	occupied := items[0]
	assert.Equal(t, "1", occupied["table_number"])
	assert.Equal(t, 3.0, occupied["current_guests"])
	assert.Equal(t, "Abebe", occupied["server"])
	assert.Equal(t, "19:30", occupied["occupied_since"])
	for _, key := range []string{"customer_name", "customer_phone", "reserved_for"} {
		_, ok := occupied[key]
		assert.False(t, ok, key)
	}

	_, ok := items[1]["current_guests"]
	assert.False(t, ok)
}

func TestTableHandler_Export(t *testing.T) {
	f := newAPIFixture(t)
	patio := f.mustCreate(t, roomsPath, map[string]any{"name": "Patio"})
	a := f.mustCreate(t, tablesPath, map[string]any{"table_number": "1", "capacity": 4, "room_id": patio["room_id"]})
	f.mustCreate(t, guestSessionsPath, map[string]any{"table_id": a["table_id"], "guest_count": 3, "server_name": "Abebe"})

	w := f.do(t, http.MethodGet, tablesPath+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))

	xl, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows(tableExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, TableExportHeader, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "occupied", rows[1][2])
	assert.Equal(t, "Patio", rows[1][3])
	assert.Equal(t, "3", rows[1][7])
	assert.Equal(t, "Abebe", rows[1][8])
	assert.Equal(t, "19:30", rows[1][9])
}

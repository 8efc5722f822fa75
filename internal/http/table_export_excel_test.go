package httpapi

import (
	"bytes"
	"database/sql"
	"testing"

	"floor-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func openExport(t *testing.T, data []byte) [][]string {
	t.Helper()
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { xl.Close() })

	assert.Equal(t, []string{tableExportSheet}, xl.GetSheetList())
	rows, err := xl.GetRows(tableExportSheet)
	require.NoError(t, err)
	return rows
}

func TestGenerateTableExport_HeaderOnly(t *testing.T) {
	data, err := GenerateTableExport(nil, nil, nil)
	require.NoError(t, err)

	rows := openExport(t, data)
	require.Len(t, rows, 1)
	assert.Equal(t, TableExportHeader, rows[0])
}

func TestGenerateTableExport_Rows(t *testing.T) {
	reserved := &domain.Table{
		Number:   "12",
		Capacity: 6,
		Status:   domain.TableStatusReserved,
		RoomID:   sql.NullString{String: "room-1", Valid: true},
		GroupID:  sql.NullString{String: "group-x", Valid: true},
		Location: sql.NullString{String: "window", Valid: true},
		Geometry: domain.Geometry{Width: 80, Height: 80, Shape: domain.ShapeOval},
	}
	items := []*domain.TableWithDetails{
		{Table: reserved, ReservedFor: "6 guests", ReservationTime: "20:00 - 22:00"},
	}

	data, err := GenerateTableExport(items, map[string]string{"room-1": "Patio"}, map[string]string{})
	require.NoError(t, err)

	rows := openExport(t, data)
	require.Len(t, rows, 2)
	row := rows[1]
	require.Len(t, row, len(TableExportHeader))
	assert.Equal(t, "12", row[0])
	assert.Equal(t, "6", row[1])
	assert.Equal(t, "reserved", row[2])
	assert.Equal(t, "Patio", row[3])
	// 分组名缺失时输出 id
	assert.Equal(t, "group-x", row[4])
	assert.Equal(t, "oval", row[5])
	assert.Equal(t, "window", row[6])
	assert.Empty(t, row[7])
	assert.Equal(t, "6 guests", row[10])
	assert.Equal(t, "20:00 - 22:00", row[11])
}

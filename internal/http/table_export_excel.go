package httpapi

import (
	"bytes"
	"fmt"

	"floor-data/internal/domain"

	"github.com/xuri/excelize/v2"
)

const tableExportSheet = "Tables"

// TableExportHeader 楼面导出表头
var TableExportHeader = []string{
	"Number",
	"Capacity",
	"Status",
	"Room",
	"Group",
	"Shape",
	"Location",
	"Guests",
	"Server",
	"Occupied Since",
	"Reserved For",
	"Reservation Time",
}

var tableExportColumnWidths = []float64{
	10, // Number
	10, // Capacity
	12, // Status
	20, // Room
	20, // Group
	12, // Shape
	15, // Location
	10, // Guests
	18, // Server
	15, // Occupied Since
	15, // Reserved For
	18, // Reservation Time
}

// GenerateTableExport 生成楼面桌台导出 Excel 文件
// roomNames / groupNames: id → 名称，缺失时输出 id
// items 为空时只生成表头
func GenerateTableExport(items []*domain.TableWithDetails, roomNames, groupNames map[string]string) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前不能 Close

	index, err := f.NewSheet(tableExportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range TableExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(tableExportSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(tableExportSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		colName, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(tableExportSheet, colName, colName, tableExportColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, item := range items {
		row := i + 2 // 第1行是表头
		values := tableExportRow(item, roomNames, groupNames)
		for col, value := range values {
			if value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(tableExportSheet, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(tableExportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

// tableExportRow 顺序与 TableExportHeader 一致
func tableExportRow(d *domain.TableWithDetails, roomNames, groupNames map[string]string) []any {
	t := d.Table
	row := make([]any, len(TableExportHeader))
	row[0] = t.Number
	row[1] = t.Capacity
	row[2] = string(t.Status)
	if t.RoomID.Valid {
		row[3] = nameOrID(roomNames, t.RoomID.String)
	}
	if t.GroupID.Valid {
		row[4] = nameOrID(groupNames, t.GroupID.String)
	}
	row[5] = string(t.Shape)
	if t.Location.Valid {
		row[6] = t.Location.String
	}
	if t.Status == domain.TableStatusOccupied {
		row[7] = d.CurrentGuests
		row[8] = d.Server
		row[9] = d.OccupiedSince
	}
	row[10] = d.ReservedFor
	row[11] = d.ReservationTime
	return row
}

func nameOrID(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

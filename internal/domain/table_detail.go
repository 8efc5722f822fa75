package domain

// TableWithDetails 桌台展示记录（只含人数，不含客户身份信息）
type TableWithDetails struct {
	Table *Table

	// status = occupied
	CurrentGuests int
	Server        string
	OccupiedSince string // 本地时间 "15:04"

	// status = reserved
	ReservedFor     string // "<n> guests"
	ReservationTime string // "19:00 - 21:00"
}

// TableStats 各状态桌台数量（每个状态都有键）
type TableStats map[TableStatus]int

// Total 桌台总数
func (s TableStats) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

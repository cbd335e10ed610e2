// Package compressor shrinks the sparse state-indexed parse tables before they are serialized.
package compressor

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var ErrOutOfRange = errors.New("indexes are out of range")

// OriginalTable is a row-major table to be compressed.
type OriginalTable struct {
	entries  []int
	rowCount int
	colCount int
}

func NewOriginalTable(entries []int, colCount int) (*OriginalTable, error) {
	if len(entries) == 0 {
		return nil, errors.New("a table needs at least one entry")
	}
	if colCount <= 0 {
		return nil, fmt.Errorf("column count must be >=1; got: %v", colCount)
	}
	if len(entries)%colCount != 0 {
		return nil, fmt.Errorf("entries length is not a multiple of column count; entries length: %v, column count: %v", len(entries), colCount)
	}

	return &OriginalTable{
		entries:  entries,
		rowCount: len(entries) / colCount,
		colCount: colCount,
	}, nil
}

func (t *OriginalTable) row(row int) []int {
	return t.entries[row*t.colCount : (row+1)*t.colCount]
}

type Compressor interface {
	Compress(orig *OriginalTable) error
	Lookup(row, col int) (int, error)
	OriginalTableSize() (int, int)
}

var (
	_ Compressor = &UniqueEntriesTable{}
	_ Compressor = &RowDisplacementTable{}
)

// UniqueEntriesTable stores each distinct row once. Parse tables have many identical rows
// because states that only reduce share the same actions.
type UniqueEntriesTable struct {
	UniqueEntries    []int `json:"unique_entries"`
	RowNums          []int `json:"row_nums"`
	OriginalRowCount int   `json:"original_row_count"`
	OriginalColCount int   `json:"original_col_count"`
}

func NewUniqueEntriesTable() *UniqueEntriesTable {
	return &UniqueEntriesTable{}
}

func (tab *UniqueEntriesTable) Lookup(row, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return 0, fmt.Errorf("%w: [%v, %v]", ErrOutOfRange, row, col)
	}
	return tab.UniqueEntries[tab.RowNums[row]*tab.OriginalColCount+col], nil
}

func (tab *UniqueEntriesTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

func (tab *UniqueEntriesTable) Compress(orig *OriginalTable) error {
	var uniqueEntries []int
	rowNums := make([]int, orig.rowCount)
	key2RowNum := map[string]int{}
	for row := 0; row < orig.rowCount; row++ {
		entries := orig.row(row)
		key := rowKey(entries)
		rowNum, ok := key2RowNum[key]
		if !ok {
			rowNum = len(key2RowNum)
			key2RowNum[key] = rowNum
			uniqueEntries = append(uniqueEntries, entries...)
		}
		rowNums[row] = rowNum
	}

	tab.UniqueEntries = uniqueEntries
	tab.RowNums = rowNums
	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount

	return nil
}

func rowKey(entries []int) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(strconv.Itoa(e))
		b.WriteByte(',')
	}
	return b.String()
}

// ForbiddenValue marks a slot of Bounds that no row owns.
const ForbiddenValue = -1

// RowDisplacementTable overlays the rows at displacements chosen so that their non-empty
// entries never collide. Bounds records the row owning each slot.
type RowDisplacementTable struct {
	OriginalRowCount int   `json:"original_row_count"`
	OriginalColCount int   `json:"original_col_count"`
	EmptyValue       int   `json:"empty_value"`
	Entries          []int `json:"entries"`
	Bounds           []int `json:"bounds"`
	RowDisplacement  []int `json:"row_displacement"`
}

func NewRowDisplacementTable(emptyValue int) *RowDisplacementTable {
	return &RowDisplacementTable{
		EmptyValue: emptyValue,
	}
}

func (tab *RowDisplacementTable) Lookup(row int, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return tab.EmptyValue, fmt.Errorf("%w: [%v, %v]", ErrOutOfRange, row, col)
	}
	d := tab.RowDisplacement[row]
	if tab.Bounds[d+col] != row {
		return tab.EmptyValue, nil
	}
	return tab.Entries[d+col], nil
}

func (tab *RowDisplacementTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

type rowInfo struct {
	rowNum      int
	nonEmptyCol []int
}

func (tab *RowDisplacementTable) Compress(orig *OriginalTable) error {
	rows := make([]rowInfo, orig.rowCount)
	for row := range rows {
		rows[row].rowNum = row
		for col, v := range orig.row(row) {
			if v != tab.EmptyValue {
				rows[row].nonEmptyCol = append(rows[row].nonEmptyCol, col)
			}
		}
	}
	// Placing the densest rows first leaves the sparse ones to fill the gaps.
	slices.SortStableFunc(rows, func(a, b rowInfo) int {
		return len(b.nonEmptyCol) - len(a.nonEmptyCol)
	})

	size := len(orig.entries)
	entries := make([]int, size)
	bounds := make([]int, size)
	for i := range entries {
		entries[i] = tab.EmptyValue
		bounds[i] = ForbiddenValue
	}
	rowDisplacement := make([]int, orig.rowCount)
	bottom := orig.colCount
	next := 0
	for _, r := range rows {
		if len(r.nonEmptyCol) == 0 {
			continue
		}
		for overlaps(bounds, next, r.nonEmptyCol) {
			next++
		}
		rowDisplacement[r.rowNum] = next
		for _, col := range r.nonEmptyCol {
			entries[next+col] = orig.entries[r.rowNum*orig.colCount+col]
			bounds[next+col] = r.rowNum
		}
		bottom = max(bottom, next+orig.colCount)
		next++
	}

	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount
	tab.Entries = entries[:bottom]
	tab.Bounds = bounds[:bottom]
	tab.RowDisplacement = rowDisplacement

	return nil
}

func overlaps(bounds []int, d int, cols []int) bool {
	for _, col := range cols {
		if bounds[d+col] != ForbiddenValue {
			return true
		}
	}
	return false
}

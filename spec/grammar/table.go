package grammar

import (
	"github.com/etslang/kestrel/compressor"
)

// Table is a state-indexed table of non-negative integers in which 0 means no entry.
// Identical rows are stored once, and the distinct rows are overlaid by row displacement.
type Table struct {
	// RowNums maps a row to its distinct row.
	RowNums []int                            `json:"row_nums"`
	Rows    *compressor.RowDisplacementTable `json:"rows"`
}

// CompressTable compresses a row-major table with colCount columns.
func CompressTable(entries []int, colCount int) (*Table, error) {
	orig, err := compressor.NewOriginalTable(entries, colCount)
	if err != nil {
		return nil, err
	}
	ueTab := compressor.NewUniqueEntriesTable()
	if err := ueTab.Compress(orig); err != nil {
		return nil, err
	}
	unique, err := compressor.NewOriginalTable(ueTab.UniqueEntries, ueTab.OriginalColCount)
	if err != nil {
		return nil, err
	}
	rdTab := compressor.NewRowDisplacementTable(0)
	if err := rdTab.Compress(unique); err != nil {
		return nil, err
	}
	return &Table{
		RowNums: ueTab.RowNums,
		Rows:    rdTab,
	}, nil
}

// Lookup returns the entry at a row and column, or 0 when either is out of range.
func (t *Table) Lookup(row, col int) int {
	if row < 0 || row >= len(t.RowNums) {
		return 0
	}
	v, err := t.Rows.Lookup(t.RowNums[row], col)
	if err != nil {
		return 0
	}
	return v
}

// Size returns the number of rows and columns of the uncompressed table.
func (t *Table) Size() (int, int) {
	if t == nil || t.Rows == nil {
		return 0, 0
	}
	return len(t.RowNums), t.Rows.OriginalColCount
}

func (t *Table) validate(name string, rows, cols, maxEntry int) error {
	if t == nil || t.Rows == nil {
		return malformed("%v table is missing", name)
	}
	if r, c := t.Size(); r != rows || c != cols {
		return malformed("%v table is %vx%v; want %vx%v", name, r, c, rows, cols)
	}
	rd := t.Rows
	for _, n := range t.RowNums {
		if n < 0 || n >= rd.OriginalRowCount {
			return malformed("%v table refers to an unknown row %v", name, n)
		}
	}
	if len(rd.RowDisplacement) != rd.OriginalRowCount || len(rd.Bounds) != len(rd.Entries) {
		return malformed("%v table has inconsistent row displacement", name)
	}
	for _, d := range rd.RowDisplacement {
		if d < 0 || d+rd.OriginalColCount > len(rd.Entries) {
			return malformed("%v table has a row displacement %v out of range", name, d)
		}
	}
	for _, v := range rd.Entries {
		if v < 0 || v > maxEntry {
			return malformed("%v table has an entry %v out of range", name, v)
		}
	}
	return nil
}

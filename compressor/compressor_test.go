package compressor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressor_Compress(t *testing.T) {
	x := 0 // an empty value

	allCompressors := func() []Compressor {
		return []Compressor{
			NewUniqueEntriesTable(),
			NewRowDisplacementTable(x),
		}
	}

	tests := []struct {
		caption     string
		original    []int
		rowCount    int
		colCount    int
		compressors []Compressor
	}{
		{
			caption: "identical full rows",
			original: []int{
				1, 1, 1, 1, 1,
				1, 1, 1, 1, 1,
				1, 1, 1, 1, 1,
			},
			rowCount:    3,
			colCount:    5,
			compressors: allCompressors(),
		},
		{
			caption: "an empty table",
			original: []int{
				x, x, x, x, x,
				x, x, x, x, x,
				x, x, x, x, x,
			},
			rowCount:    3,
			colCount:    5,
			compressors: allCompressors(),
		},
		{
			caption: "an empty row between full rows",
			original: []int{
				1, 1, 1, 1, 1,
				x, x, x, x, x,
				1, 1, 1, 1, 1,
			},
			rowCount:    3,
			colCount:    5,
			compressors: allCompressors(),
		},
		{
			caption: "rows with a hole each",
			original: []int{
				1, x, 1, 1, 1,
				1, 1, x, 1, 1,
				1, 1, 1, x, 1,
			},
			rowCount:    3,
			colCount:    5,
			compressors: allCompressors(),
		},
		{
			caption: "sparse rows of an action index table",
			original: []int{
				x, 3, x, x, x, x,
				x, x, 1, x, x, x,
				2, x, x, x, x, 2,
				x, x, x, 4, x, x,
				x, 3, x, x, x, x,
			},
			rowCount:    5,
			colCount:    6,
			compressors: allCompressors(),
		},
	}
	for _, tt := range tests {
		for _, comp := range tt.compressors {
			t.Run(fmt.Sprintf("%v (%T)", tt.caption, comp), func(t *testing.T) {
				dup := make([]int, len(tt.original))
				copy(dup, tt.original)

				orig, err := NewOriginalTable(tt.original, tt.colCount)
				require.NoError(t, err)
				require.NoError(t, comp.Compress(orig))

				rowCount, colCount := comp.OriginalTableSize()
				require.Equal(t, tt.rowCount, rowCount)
				require.Equal(t, tt.colCount, colCount)
				for i := 0; i < tt.rowCount; i++ {
					for j := 0; j < tt.colCount; j++ {
						v, err := comp.Lookup(i, j)
						require.NoError(t, err)
						assert.Equal(t, tt.original[i*tt.colCount+j], v, "entry (%v, %v)", i, j)
					}
				}

				for _, idx := range [][2]int{{0, -1}, {-1, 0}, {rowCount - 1, colCount}, {rowCount, colCount - 1}} {
					_, err := comp.Lookup(idx[0], idx[1])
					assert.True(t, errors.Is(err, ErrOutOfRange), "indexes %v", idx)
				}

				// The compressor must not break the original table.
				assert.Equal(t, dup, tt.original)
			})
		}
	}
}

func TestUniqueEntriesTable_SharesRows(t *testing.T) {
	orig, err := NewOriginalTable([]int{
		1, 2,
		3, 4,
		1, 2,
	}, 2)
	require.NoError(t, err)
	tab := NewUniqueEntriesTable()
	require.NoError(t, tab.Compress(orig))
	assert.Equal(t, []int{0, 1, 0}, tab.RowNums)
	assert.Equal(t, []int{1, 2, 3, 4}, tab.UniqueEntries)
}

func TestRowDisplacementTable_Overlays(t *testing.T) {
	orig, err := NewOriginalTable([]int{
		5, 0, 0,
		0, 6, 0,
		0, 0, 7,
	}, 3)
	require.NoError(t, err)
	tab := NewRowDisplacementTable(0)
	require.NoError(t, tab.Compress(orig))
	assert.Less(t, len(tab.Entries), 9)
	assert.Len(t, tab.Bounds, len(tab.Entries))
}

func TestNewOriginalTable(t *testing.T) {
	tests := []struct {
		caption  string
		entries  []int
		colCount int
	}{
		{
			caption:  "no entries",
			colCount: 1,
		},
		{
			caption:  "no columns",
			entries:  []int{1},
			colCount: 0,
		},
		{
			caption:  "a partial row",
			entries:  []int{1, 2, 3},
			colCount: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err := NewOriginalTable(tt.entries, tt.colCount)
			assert.Error(t, err)
		})
	}
}

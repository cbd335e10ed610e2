package tree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(size, lookahead int) *Subtree {
	return NewLeaf(LeafParams{
		Symbol:    1,
		Size:      size,
		Lookahead: lookahead,
	})
}

func TestEdit_Validate(t *testing.T) {
	tests := []struct {
		caption string
		edit    Edit
		oldLen  int
		valid   bool
	}{
		{
			caption: "a replacement inside the text",
			edit:    Edit{StartByte: 1, OldEndByte: 3, NewEndByte: 5},
			oldLen:  4,
			valid:   true,
		},
		{
			caption: "an insertion at the end",
			edit:    Edit{StartByte: 4, OldEndByte: 4, NewEndByte: 6},
			oldLen:  4,
			valid:   true,
		},
		{
			caption: "a negative start",
			edit:    Edit{StartByte: -1, OldEndByte: 0, NewEndByte: 0},
			oldLen:  4,
		},
		{
			caption: "an old end before the start",
			edit:    Edit{StartByte: 2, OldEndByte: 1, NewEndByte: 2},
			oldLen:  4,
		},
		{
			caption: "a new end before the start",
			edit:    Edit{StartByte: 2, OldEndByte: 2, NewEndByte: 1},
			oldLen:  4,
		},
		{
			caption: "an old end beyond the text",
			edit:    Edit{StartByte: 2, OldEndByte: 5, NewEndByte: 2},
			oldLen:  4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			err := tt.edit.Validate(tt.oldLen)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidEdit), "unexpected error: %v", err)
		})
	}
}

func TestEdit_MapOffset(t *testing.T) {
	e := Edit{StartByte: 3, OldEndByte: 5, NewEndByte: 7}
	for _, tt := range []struct {
		old  int
		want int
	}{
		{old: 0, want: 0},
		{old: 3, want: 3},
		{old: 4, want: 7},
		{old: 5, want: 7},
		{old: 8, want: 10},
		{old: 10, want: 12},
	} {
		assert.Equal(t, tt.want, e.mapOffset(tt.old, 10), "offset %v", tt.old)
	}

	appended := Edit{StartByte: 10, OldEndByte: 10, NewEndByte: 12}
	assert.Equal(t, 12, appended.mapOffset(10, 10))
	assert.Equal(t, 9, appended.mapOffset(9, 10))
}

func TestEdit_Touches(t *testing.T) {
	tests := []struct {
		caption string
		edit    Edit
		sub     *Subtree
		start   int
		touched bool
	}{
		{
			caption: "an edit inside the subtree",
			edit:    Edit{StartByte: 1, OldEndByte: 2, NewEndByte: 2},
			sub:     leaf(4, 4),
			touched: true,
		},
		{
			caption: "an insertion right after a subtree whose lexer looked further",
			edit:    Edit{StartByte: 2, OldEndByte: 2, NewEndByte: 3},
			sub:     leaf(2, 3),
			touched: true,
		},
		{
			caption: "an insertion right after a subtree whose lexer stopped at its end",
			edit:    Edit{StartByte: 2, OldEndByte: 2, NewEndByte: 3},
			sub:     leaf(2, 2),
		},
		{
			caption: "an edit before the subtree",
			edit:    Edit{StartByte: 3, OldEndByte: 4, NewEndByte: 4},
			sub:     leaf(2, 2),
			start:   5,
		},
		{
			caption: "an insertion at the start of the subtree",
			edit:    Edit{StartByte: 5, OldEndByte: 5, NewEndByte: 6},
			sub:     leaf(2, 2),
			start:   5,
			touched: true,
		},
		{
			caption: "an insertion at the end of the text extends the last subtree",
			edit:    Edit{StartByte: 10, OldEndByte: 10, NewEndByte: 11},
			sub:     leaf(2, 2),
			start:   8,
			touched: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			assert.Equal(t, tt.touched, tt.edit.touches(tt.sub, tt.start, 10))
		})
	}
}

func TestTree_Edit(t *testing.T) {
	children := []*Subtree{leaf(2, 2), leaf(1, 1), leaf(2, 2)}
	root := NewNode(NodeParams{
		Symbol:     2,
		Production: 1,
		Children:   children,
	})
	old := New(nil, root, []byte("a;\nb;"), Stats{})
	e := Edit{StartByte: 3, OldEndByte: 4, NewEndByte: 6}

	edited, err := old.Edit(e)
	require.NoError(t, err)
	assert.True(t, edited.IsEdited())
	assert.Nil(t, edited.Source())
	assert.Equal(t, 7, edited.Len())
	assert.Greater(t, edited.Version(), old.Version())

	r := edited.Root()
	assert.True(t, r.IsChanged())
	assert.Same(t, children[0], r.Child(0))
	assert.Same(t, children[1], r.Child(1))
	assert.NotSame(t, children[2], r.Child(2))
	assert.True(t, r.Child(2).IsChanged())
	assert.Equal(t, 4, r.Child(2).Size())

	// The old tree is unchanged.
	assert.Equal(t, 5, old.Len())
	assert.False(t, old.Root().IsChanged())

	start, end := edited.Boundary(e)
	assert.Equal(t, 3, start)
	assert.Equal(t, 7, end)

	_, err = old.Edit(Edit{StartByte: 4, OldEndByte: 9, NewEndByte: 4})
	assert.True(t, errors.Is(err, ErrInvalidEdit))
}

func TestTree_Close(t *testing.T) {
	tr := New(nil, leaf(3, 3), []byte("abc"), Stats{})
	other := tr.Clone()
	assert.Same(t, tr, other)

	other.Close()
	assert.NotNil(t, tr.Root())
	assert.Equal(t, 3, tr.Len())

	tr.Close()
	assert.Nil(t, tr.Root())
	assert.Zero(t, tr.Len())
	assert.True(t, tr.RootNode().IsNull())

	_, err := tr.Edit(Edit{})
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestSubtree_Summary(t *testing.T) {
	missing := NewMissing(1, 0, nil)
	lexErr := NewLeaf(LeafParams{Symbol: 3, Size: 2, LexError: true})
	errNode := NewError(3, []*Subtree{lexErr}, 0, nil)
	extra := NewLeaf(LeafParams{Symbol: 4, Size: 1, Extra: true})
	n := NewNode(NodeParams{
		Symbol:     2,
		Production: 1,
		Children:   []*Subtree{leaf(2, 2), extra, missing, errNode},
		Follow:     6,
	})

	assert.Equal(t, 5, n.Size())
	assert.Equal(t, 6, n.Lookahead())
	assert.Equal(t, 6, n.Descendants())
	assert.True(t, n.HasError())
	assert.Equal(t, CostPerMissingLeaf+CostPerSkippedTree+2*CostPerSkippedByte, n.ErrorCost())
	assert.False(t, n.IsLeaf())
	assert.True(t, missing.IsLeaf())
	assert.True(t, extra.SkippedByReduce())
	assert.True(t, errNode.SkippedByReduce())
	assert.False(t, missing.SkippedByReduce())
	assert.Same(t, n.Child(0), n.FirstLeaf())

	assert.True(t, Equal(n, n))
	assert.False(t, Equal(n, n.Child(0)))
	assert.False(t, Equal(n, nil))
}

func TestSubtree_WithExtras(t *testing.T) {
	body := NewNode(NodeParams{
		Symbol:     2,
		Production: 1,
		Children:   []*Subtree{leaf(2, 2)},
	})
	before := NewLeaf(LeafParams{Symbol: 4, Size: 1, Extra: true})
	after := NewLeaf(LeafParams{Symbol: 4, Size: 3, Extra: true})

	assert.Same(t, body, body.WithExtras(nil, nil))

	wrapped := body.WithExtras([]*Subtree{before}, []*Subtree{after})
	assert.Equal(t, 6, wrapped.Size())
	assert.Equal(t, 3, wrapped.ChildCount())
	assert.Equal(t, 4, wrapped.Descendants())
	assert.Same(t, before, wrapped.Child(0))
	assert.Same(t, after, wrapped.Child(2))
	assert.Equal(t, 1, body.ChildCount())
}

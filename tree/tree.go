package tree

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/etslang/kestrel/language"
)

var (
	ErrInvalidEdit = errors.New("invalid edit")
	ErrClosed      = errors.New("tree is closed")
)

// Edit describes a change of text in bytes: [StartByte, OldEndByte) of the old text was replaced
// by [StartByte, NewEndByte) of the new text.
type Edit struct {
	StartByte  int
	OldEndByte int
	NewEndByte int
}

// Delta is the change of the text length.
func (e Edit) Delta() int {
	return e.NewEndByte - e.OldEndByte
}

// IsNoop reports whether the edit neither removes nor inserts anything.
func (e Edit) IsNoop() bool {
	return e.StartByte == e.OldEndByte && e.StartByte == e.NewEndByte
}

// Validate checks the edit against the length of the old text.
func (e Edit) Validate(oldLen int) error {
	if e.StartByte < 0 || e.StartByte > e.OldEndByte || e.StartByte > e.NewEndByte || e.OldEndByte > oldLen {
		return fmt.Errorf("%w: [%v, %v) -> [%v, %v) on %v bytes", ErrInvalidEdit, e.StartByte, e.OldEndByte, e.StartByte, e.NewEndByte, oldLen)
	}
	return nil
}

// mapOffset translates an offset of the old text into the new text. Offsets inside the removed
// range collapse onto the end of the inserted text. An insertion at the end of the text extends
// whatever ends there.
func (e Edit) mapOffset(x, oldLen int) int {
	switch {
	case x == oldLen && x == e.OldEndByte:
		return e.NewEndByte
	case x <= e.StartByte:
		return x
	case x <= e.OldEndByte:
		return e.NewEndByte
	}
	return x + e.Delta()
}

// touches reports whether an edit overlaps the bytes a subtree starting at start was built from.
func (e Edit) touches(s *Subtree, start, oldLen int) bool {
	if e.StartByte == oldLen && start+s.size == oldLen {
		return true
	}
	if e.StartByte >= start+s.lookahead {
		return false
	}
	return e.OldEndByte > start || e.StartByte == start
}

// Stats describes how a tree was derived.
type Stats struct {
	// Incremental is true when the tree was derived from a previous tree.
	Incremental bool

	// BoundaryStart and BoundaryEnd delimit, in the new text, the smallest node of the previous
	// tree that contained the edit.
	BoundaryStart int
	BoundaryEnd   int

	// Reused counts the nodes taken over from the previous tree, Created the nodes built anew.
	Reused  int
	Created int
}

var versionCounter atomic.Uint64

// Tree is the result of a parse. It is immutable and may be read by any number of goroutines.
// Its lifetime is reference counted: Clone adds a holder and Close drops one. Once the last
// holder closes it, the tree releases its nodes and queries find no node.
type Tree struct {
	lang    *language.Language
	root    atomic.Pointer[Subtree]
	source  []byte
	version uint64
	refs    atomic.Int32
	stats   Stats
	edited  bool
}

// New returns a tree over a source text. The parser is its only intended caller.
func New(lang *language.Language, root *Subtree, source []byte, stats Stats) *Tree {
	t := &Tree{
		lang:    lang,
		source:  source,
		version: versionCounter.Add(1),
		stats:   stats,
	}
	t.root.Store(root)
	t.refs.Store(1)
	return t
}

func (t *Tree) Language() *language.Language {
	return t.lang
}

// Source returns the text the tree was parsed from. An edited tree has no source.
func (t *Tree) Source() []byte {
	return t.source
}

// Version increases with every tree the process creates, so a later tree always has a greater
// version than the tree it was derived from.
func (t *Tree) Version() uint64 {
	return t.version
}

func (t *Tree) Stats() Stats {
	return t.stats
}

// Root returns the root subtree, or nil once the tree is closed.
func (t *Tree) Root() *Subtree {
	return t.root.Load()
}

// Len returns the length of the text the tree covers.
func (t *Tree) Len() int {
	root := t.root.Load()
	if root == nil {
		return 0
	}
	return root.size
}

// IsEdited reports whether the tree came from Edit rather than from a parse.
func (t *Tree) IsEdited() bool {
	return t.edited
}

// Clone adds a holder and returns the same tree.
func (t *Tree) Clone() *Tree {
	t.refs.Add(1)
	return t
}

// Close drops a holder.
func (t *Tree) Close() {
	if t.refs.Add(-1) == 0 {
		t.root.Store(nil)
	}
}

// Edit returns a copy of the tree whose offsets follow the edit. Subtrees the edit touched are
// copied and marked changed; the others are shared with the receiver.
func (t *Tree) Edit(e Edit) (*Tree, error) {
	root := t.root.Load()
	if root == nil {
		return nil, ErrClosed
	}
	err := e.Validate(root.size)
	if err != nil {
		return nil, err
	}

	edited := New(t.lang, editSubtree(root, 0, e, root.size), nil, Stats{})
	edited.edited = true
	return edited, nil
}

func editSubtree(s *Subtree, start int, e Edit, oldLen int) *Subtree {
	if !e.touches(s, start, oldLen) {
		return s
	}

	c := *s
	c.flags |= flagChanged
	c.size = e.mapOffset(start+s.size, oldLen) - e.mapOffset(start, oldLen)
	if len(s.children) > 0 {
		c.children = make([]*Subtree, len(s.children))
		pos := start
		for i, child := range s.children {
			c.children[i] = editSubtree(child, pos, e, oldLen)
			pos += child.size
		}
	}
	return &c
}

// Boundary returns the range of the smallest changed node of an edited tree that contains the
// edited range.
func (t *Tree) Boundary(e Edit) (int, int) {
	cur := t.root.Load()
	if cur == nil {
		return 0, 0
	}
	start := 0
	for {
		pos := start
		var next *Subtree
		nextStart := 0
		for _, c := range cur.children {
			if c.IsChanged() && pos <= e.StartByte && pos+c.size >= e.NewEndByte && c.size > 0 {
				next = c
				nextStart = pos
				break
			}
			pos += c.size
		}
		if next == nil {
			return start, start + cur.size
		}
		cur = next
		start = nextStart
	}
}

// ScannerStateAt returns the external scanner state before the leaf covering an offset.
func (t *Tree) ScannerStateAt(offset int) ([]byte, bool) {
	cur := t.root.Load()
	if cur == nil || offset < 0 || offset >= cur.size {
		return nil, false
	}
	start := 0
	for len(cur.children) > 0 {
		pos := start
		found := false
		for _, c := range cur.children {
			if offset >= pos && offset < pos+c.size {
				cur = c
				start = pos
				found = true
				break
			}
			pos += c.size
		}
		if !found {
			return nil, false
		}
	}
	return cur.scanBefore, true
}

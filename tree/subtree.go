// Package tree implements immutable concrete syntax trees that successive parses share.
package tree

import (
	spec "github.com/etslang/kestrel/spec/grammar"
)

// Error costs compare recovery strategies; the values follow tree-sitter's scale.
const (
	CostPerSkippedTree = 100
	CostPerSkippedByte = 1
	CostPerMissingLeaf = 110
)

type subtreeFlags uint16

const (
	flagExtra subtreeFlags = 1 << iota
	flagMissing
	flagLexError
	flagHasError
	flagFragile
	flagChanged
	flagErrorNode
)

// Subtree is the storage node of a tree. It records its size rather than its offset, so one
// subtree can appear at different offsets in successive trees. A subtree is never modified
// after construction.
type Subtree struct {
	symbol     spec.SymbolID
	size       int
	children   []*Subtree
	fields     []spec.FieldID
	production spec.ProductionID

	// parseState is the state on top of the stack when the subtree was pushed.
	parseState spec.StateID

	// lexMode is the mode a leaf was recognised in.
	lexMode spec.LexModeID

	// lookahead is the number of bytes from the start of the subtree the parser examined
	// to build it, including the token that triggered its reduction.
	lookahead int

	scanBefore []byte
	scanAfter  []byte

	errorCost   int
	descendants int
	flags       subtreeFlags
}

// LeafParams describes a token turned into a leaf.
type LeafParams struct {
	Symbol     spec.SymbolID
	Size       int
	Lookahead  int
	ParseState spec.StateID
	LexMode    spec.LexModeID
	ScanBefore []byte
	ScanAfter  []byte
	Extra      bool

	// LexError marks bytes no pattern recognised. Symbol must be the ERROR symbol then.
	LexError bool

	Fragile bool
}

func NewLeaf(p LeafParams) *Subtree {
	s := &Subtree{
		symbol:      p.Symbol,
		size:        p.Size,
		parseState:  p.ParseState,
		lexMode:     p.LexMode,
		lookahead:   maxInt(p.Lookahead, p.Size),
		scanBefore:  p.ScanBefore,
		scanAfter:   p.ScanAfter,
		descendants: 1,
	}
	if p.Extra {
		s.flags |= flagExtra
	}
	if p.LexError {
		s.flags |= flagLexError | flagHasError
		s.errorCost = CostPerSkippedByte * p.Size
	}
	if p.Fragile {
		s.flags |= flagFragile
	}
	return s
}

// NewMissing returns a zero-width leaf standing for a terminal the text lacks.
func NewMissing(sym spec.SymbolID, state spec.StateID, scan []byte) *Subtree {
	return &Subtree{
		symbol:      sym,
		parseState:  state,
		scanBefore:  scan,
		scanAfter:   scan,
		errorCost:   CostPerMissingLeaf,
		descendants: 1,
		flags:       flagMissing | flagHasError,
	}
}

// NodeParams describes a reduction. Fields has an entry per non-extra child.
type NodeParams struct {
	Symbol     spec.SymbolID
	Production spec.ProductionID
	Children   []*Subtree
	Fields     []spec.FieldID
	ParseState spec.StateID

	// Follow is the number of bytes, from the start of the node, up to the end of what the
	// lexer examined to recognise the token that triggered the reduction.
	Follow int

	// Scan is the scanner state used when the node has no children.
	Scan []byte

	Fragile bool
}

func NewNode(p NodeParams) *Subtree {
	s := &Subtree{
		symbol:      p.Symbol,
		production:  p.Production,
		children:    p.Children,
		parseState:  p.ParseState,
		lookahead:   p.Follow,
		scanBefore:  p.Scan,
		scanAfter:   p.Scan,
		descendants: 1,
	}
	if p.Fragile {
		s.flags |= flagFragile
	}
	s.fields = alignFields(p.Children, p.Fields)
	s.summarize()
	return s
}

// NewError wraps subtrees the parser could not fit into the grammar.
func NewError(sym spec.SymbolID, children []*Subtree, state spec.StateID, scan []byte) *Subtree {
	s := &Subtree{
		symbol:      sym,
		children:    children,
		parseState:  state,
		scanBefore:  scan,
		scanAfter:   scan,
		descendants: 1,
		flags:       flagHasError | flagErrorNode,
	}
	s.summarize()
	s.errorCost = CostPerSkippedTree*len(children) + CostPerSkippedByte*s.size
	return s
}

// summarize derives the size, lookahead, scanner states and error data from the children.
func (s *Subtree) summarize() {
	if len(s.children) == 0 {
		s.lookahead = maxInt(s.lookahead, s.size)
		return
	}
	s.scanBefore = s.children[0].scanBefore
	s.scanAfter = s.children[len(s.children)-1].scanAfter
	pos := 0
	for _, c := range s.children {
		s.lookahead = maxInt(s.lookahead, pos+c.lookahead)
		pos += c.size
		s.descendants += c.descendants
		s.errorCost += c.errorCost
		if c.flags&flagHasError != 0 {
			s.flags |= flagHasError
		}
		if c.flags&flagFragile != 0 {
			s.flags |= flagFragile
		}
	}
	s.size = pos
	s.lookahead = maxInt(s.lookahead, s.size)
}

// alignFields spreads the field of each non-extra child over the full child list.
func alignFields(children []*Subtree, fields []spec.FieldID) []spec.FieldID {
	if len(fields) == 0 {
		return nil
	}
	aligned := make([]spec.FieldID, len(children))
	set := false
	k := 0
	for i, c := range children {
		if c.skippedByReduce() {
			continue
		}
		if k < len(fields) {
			aligned[i] = fields[k]
			if fields[k] != spec.FieldIDNil {
				set = true
			}
		}
		k++
	}
	if !set {
		return nil
	}
	return aligned
}

// WithExtras returns a copy of a node with extras placed before and after its children. The
// parser uses it to fold leading and trailing extras into the root.
func (s *Subtree) WithExtras(leading, trailing []*Subtree) *Subtree {
	if len(leading) == 0 && len(trailing) == 0 {
		return s
	}
	c := *s
	c.children = make([]*Subtree, 0, len(leading)+len(s.children)+len(trailing))
	c.children = append(c.children, leading...)
	c.children = append(c.children, s.children...)
	c.children = append(c.children, trailing...)
	if s.fields != nil {
		c.fields = make([]spec.FieldID, len(c.children))
		copy(c.fields[len(leading):], s.fields)
	}
	c.size = 0
	c.lookahead = s.lookahead
	for _, e := range leading {
		c.lookahead += e.size
	}
	c.descendants = 1
	c.errorCost = 0
	c.flags &^= flagHasError
	c.summarize()
	return &c
}

func (s *Subtree) Symbol() spec.SymbolID {
	return s.symbol
}

func (s *Subtree) Size() int {
	return s.size
}

func (s *Subtree) ChildCount() int {
	return len(s.children)
}

func (s *Subtree) Child(i int) *Subtree {
	return s.children[i]
}

// Children returns the child list. Callers must not modify it.
func (s *Subtree) Children() []*Subtree {
	return s.children
}

// Field returns the field of the i-th child.
func (s *Subtree) Field(i int) spec.FieldID {
	if s.fields == nil {
		return spec.FieldIDNil
	}
	return s.fields[i]
}

func (s *Subtree) Production() spec.ProductionID {
	return s.production
}

func (s *Subtree) ParseState() spec.StateID {
	return s.parseState
}

func (s *Subtree) LexMode() spec.LexModeID {
	return s.lexMode
}

func (s *Subtree) Lookahead() int {
	return s.lookahead
}

func (s *Subtree) ScanBefore() []byte {
	return s.scanBefore
}

func (s *Subtree) ScanAfter() []byte {
	return s.scanAfter
}

func (s *Subtree) ErrorCost() int {
	return s.errorCost
}

// Descendants counts the subtree and everything below it.
func (s *Subtree) Descendants() int {
	return s.descendants
}

func (s *Subtree) IsLeaf() bool {
	return len(s.children) == 0 && s.production == spec.ProductionIDNil
}

func (s *Subtree) IsExtra() bool {
	return s.flags&flagExtra != 0
}

func (s *Subtree) IsMissing() bool {
	return s.flags&flagMissing != 0
}

// IsLexError reports whether the subtree holds bytes no pattern recognised.
func (s *Subtree) IsLexError() bool {
	return s.flags&flagLexError != 0
}

// IsErrorNode reports whether the subtree is an ERROR node built by recovery.
func (s *Subtree) IsErrorNode() bool {
	return s.flags&flagErrorNode != 0
}

func (s *Subtree) HasError() bool {
	return s.flags&flagHasError != 0
}

func (s *Subtree) IsFragile() bool {
	return s.flags&flagFragile != 0
}

// IsChanged reports whether an edit touched the bytes the subtree was built from.
func (s *Subtree) IsChanged() bool {
	return s.flags&flagChanged != 0
}

// skippedByReduce reports whether the subtree sits on the stack without a state of its own, so
// reductions do not count it.
func (s *Subtree) skippedByReduce() bool {
	return s.flags&(flagExtra|flagErrorNode|flagLexError) != 0
}

// SkippedByReduce reports whether reductions pass over the subtree: extras and error nodes
// produced by recovery.
func (s *Subtree) SkippedByReduce() bool {
	return s.skippedByReduce()
}

// FirstLeaf returns the leftmost leaf, or nil when the subtree has no leaves.
func (s *Subtree) FirstLeaf() *Subtree {
	cur := s
	for len(cur.children) > 0 {
		next := (*Subtree)(nil)
		for _, c := range cur.children {
			if c.size > 0 {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	if cur.size == 0 {
		return nil
	}
	return cur
}

// Equal reports whether two subtrees have the same structure: symbols, sizes, fields and
// error markers.
func Equal(a, b *Subtree) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.symbol != b.symbol || a.size != b.size || len(a.children) != len(b.children) {
		return false
	}
	mask := flagExtra | flagMissing | flagLexError | flagHasError | flagErrorNode
	if a.flags&mask != b.flags&mask {
		return false
	}
	for i := range a.children {
		if a.Field(i) != b.Field(i) {
			return false
		}
		if !Equal(a.children[i], b.children[i]) {
			return false
		}
	}
	return true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

package parser

import (
	"github.com/etslang/kestrel/driver/lexer"
	"github.com/etslang/kestrel/internal/logging"
	spec "github.com/etslang/kestrel/spec/grammar"
	"github.com/etslang/kestrel/tree"
)

type reuseFrame struct {
	sub   *tree.Subtree
	start int
}

// reuseCursor walks an edited tree in text order alongside the parser, offering the subtrees
// starting where the parser stands.
type reuseCursor struct {
	stack []reuseFrame
}

func newReuseCursor(root *tree.Subtree) *reuseCursor {
	if root == nil {
		return &reuseCursor{}
	}
	return &reuseCursor{
		stack: []reuseFrame{
			{
				sub: root,
			},
		},
	}
}

// candidates returns the reusable subtrees starting at pos, outermost first. The parser only
// moves forward, so frames ending before pos are dropped for good.
func (c *reuseCursor) candidates(pos int) []*tree.Subtree {
	var cands []*tree.Subtree
	for len(c.stack) > 0 {
		top := c.stack[len(c.stack)-1]
		if top.start > pos {
			break
		}
		if top.start+top.sub.Size() <= pos {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		if top.start == pos {
			if reusable(top.sub) {
				cands = append(cands, top.sub)
			}
			if top.sub.ChildCount() == 0 {
				break
			}
		}
		c.descend()
	}
	return cands
}

// descend replaces the top frame with its children.
func (c *reuseCursor) descend() {
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	children := top.sub.Children()
	offsets := make([]int, len(children))
	pos := top.start
	for i, ch := range children {
		offsets[i] = pos
		pos += ch.Size()
	}
	for i := len(children) - 1; i >= 0; i-- {
		c.stack = append(c.stack, reuseFrame{
			sub:   children[i],
			start: offsets[i],
		})
	}
}

func reusable(s *tree.Subtree) bool {
	return !s.IsChanged() && !s.IsFragile() && !s.HasError() && !s.IsMissing() && s.Size() > 0
}

// tryReuse pushes the largest subtree of the previous tree that fits the version's state at
// its offset. The first leaf of the candidates serves as the lookahead, so reductions up to the
// point of shifting happen as they would for a freshly lexed token.
func (s *Session) tryReuse(v *version) bool {
	cands := s.reuse.candidates(v.pos)
	if len(cands) == 0 {
		return false
	}
	leaf := cands[len(cands)-1]
	if !leaf.IsLeaf() {
		return false
	}
	mode := s.lang.LexMode(v.top())
	if leaf.LexMode() != mode || !lexer.SameState(leaf.ScanBefore(), v.scan) {
		return false
	}

	la := &lexer.Token{
		Symbol:       leaf.Symbol(),
		Start:        v.pos,
		End:          v.pos + leaf.Size(),
		Mode:         mode,
		LookaheadEnd: v.pos + leaf.Lookahead(),
		ScanBefore:   leaf.ScanBefore(),
		ScanAfter:    leaf.ScanAfter(),
	}
	v.la = la
	v.laReuse = leaf

	for n := 0; ; n++ {
		if n >= maxReductions {
			return false
		}
		acts := s.lang.Actions(v.top(), la.Symbol)
		if len(acts) != 1 {
			return false
		}
		act := acts[0]
		if act.IsShift() {
			break
		}
		if act.Production() == spec.ProductionIDStart {
			return false
		}
		s.reduce(v, act.Production(), la)
	}

	for _, c := range cands[:len(cands)-1] {
		if c.ParseState() != v.top() {
			continue
		}
		next, ok := s.lang.GoTo(v.top(), c.Symbol())
		if !ok {
			continue
		}
		v.stack = append(v.stack, stackEntry{
			state: next,
			sub:   c,
		})
		v.pos += c.Size()
		v.scan = c.ScanAfter()
		v.la = nil
		v.laReuse = nil
		v.shifts++
		s.reused[c] = struct{}{}
		s.trace("reuse", logging.FieldSymbol, s.lang.SymbolName(c.Symbol()), logging.FieldState, next, logging.FieldPos, v.pos-c.Size(), logging.FieldSize, c.Size())
		return true
	}
	return false
}

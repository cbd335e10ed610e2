package parser

import (
	"math"

	"github.com/etslang/kestrel/driver/lexer"
	"github.com/etslang/kestrel/internal/logging"
	spec "github.com/etslang/kestrel/spec/grammar"
	"github.com/etslang/kestrel/tree"
)

// panicHorizon is how many recovery windows panic mode looks ahead to pick the state it
// resumes from.
const panicHorizon = 4

// recover repairs a version every alternative of which failed. It weighs three local repairs:
// skipping the lookahead, inserting a missing terminal, and wrapping the last few subtrees
// into an ERROR node. A repair qualifies when a trial parse consumes the recovery window of
// tokens after it. The cheapest qualifying repair wins. Among equally cheap ones, the repair
// whose ERROR node is closed by the nearest reduction wins, then the order above. When none
// qualifies, the parser discards tokens until one fits a state on the stack.
func (s *Session) recover(v *version) *version {
	la := s.lookahead(v)
	s.extendFragile(la)
	s.recovering = true
	defer func() {
		s.recovering = false
	}()
	s.trace("recover", logging.FieldPos, v.pos, logging.FieldState, v.top(), logging.FieldSymbol, s.lang.SymbolName(la.Symbol))

	if v.pos == s.recoveryPos {
		s.recoveryCount++
	} else {
		s.recoveryPos = v.pos
		s.recoveryCount = 1
	}
	if s.recoveryCount > maxRecoveriesInPlace {
		return s.panicMode(v)
	}

	var best *version
	bestCost, bestWrap := 0, 0
	try := func(c *version, cost int) {
		if best != nil && cost > bestCost {
			return
		}
		shifts, wrapEnd := s.speculate(c, s.p.recoveryWindow)
		if shifts < s.p.recoveryWindow {
			return
		}
		if best != nil && cost == bestCost && wrapEnd >= bestWrap {
			return
		}
		best, bestCost, bestWrap = c, cost, wrapEnd
	}

	if !la.EOF() {
		c := v.clone()
		cost := s.skipToken(c, la)
		try(c, cost)
	}

	for _, term := range s.lang.ExpectedTerminals(v.top()) {
		if term == spec.SymbolIDEOF || s.lang.IsExtra(term) {
			continue
		}
		c := v.clone()
		if cost, ok := s.insertMissing(c, term, la); ok {
			try(c, cost)
		}
	}

	for k := 1; k <= s.p.recoveryWindow; k++ {
		c := v.clone()
		cost, ok := s.popIntoError(c, k)
		if !ok {
			break
		}
		if len(s.lang.Actions(c.top(), la.Symbol)) == 0 {
			continue
		}
		try(c, cost)
	}

	if best == nil {
		return s.panicMode(v)
	}
	best.cost = v.cost + bestCost
	best.failed = false
	best.errAt, best.wrapEnd = -1, -1
	s.trace("recovered", logging.FieldPos, best.pos, logging.FieldCost, bestCost)
	return best
}

// speculate runs a trial parse from a candidate without recovery or reuse. It returns how many
// tokens, up to horizon, the furthest version consumed; an accepting version counts as horizon.
// When some version reaches horizon, it also returns the end offset of the first node that
// version built over the candidate's tracked entry, or math.MaxInt when there is none.
func (s *Session) speculate(c *version, horizon int) (int, int) {
	multi := s.multi
	s.speculating = true
	defer func() {
		s.multi = multi
		s.speculating = false
	}()

	reached := func(v *version) (int, int) {
		if v.wrapEnd < 0 {
			return horizon, math.MaxInt
		}
		return horizon, v.wrapEnd
	}

	base := c.shifts
	far := 0
	queue := []*version{c.clone()}
	for steps := 0; len(queue) > 0 && steps < 64*horizon*s.p.maxVersions; steps++ {
		cur := queue[0]
		queue = queue[1:]
		res, forks := s.advance(cur)
		for _, f := range forks {
			if f.accepted || f.shifts-base >= horizon {
				return reached(f)
			}
			if f.shifts-base > far {
				far = f.shifts - base
			}
			queue = append(queue, f)
		}
		switch res {
		case stepAccepted:
			return reached(cur)
		case stepShifted:
			if cur.shifts-base >= horizon {
				return reached(cur)
			}
			if cur.shifts-base > far {
				far = cur.shifts - base
			}
			queue = append(queue, cur)
		}
		if len(queue) > s.p.maxVersions {
			queue = queue[:s.p.maxVersions]
		}
	}
	return far, math.MaxInt
}

// skipToken wraps the lookahead into an ERROR node, merging it with a preceding ERROR node
// when only extras separate them.
func (s *Session) skipToken(c *version, la *lexer.Token) int {
	leaf := s.leaf(la, c.top(), false)

	i := len(c.stack)
	for i > 1 && c.stack[i-1].sub.IsExtra() {
		i--
	}
	var children []*tree.Subtree
	if i > 1 && c.stack[i-1].sub.IsErrorNode() {
		children = append(children, c.stack[i-1].sub.Children()...)
		for _, e := range c.stack[i:] {
			children = append(children, e.sub)
		}
		c.stack = c.stack[:i-1]
	}
	children = append(children, leaf)

	node := tree.NewError(s.lang.ErrorSymbol(), children, c.top(), nil)
	c.stack = append(c.stack, stackEntry{
		state: c.top(),
		sub:   node,
	})
	c.pos = la.End
	c.scan = la.ScanAfter
	c.la = nil
	c.laReuse = nil
	c.errAt, c.wrapEnd = len(c.stack)-1, -1
	return tree.CostPerSkippedTree + tree.CostPerSkippedByte*leaf.Size()
}

// insertMissing pushes a zero-width leaf for a terminal the text lacks. The real lookahead
// must be acceptable afterwards.
func (s *Session) insertMissing(c *version, term spec.SymbolID, la *lexer.Token) (int, bool) {
	tok := &lexer.Token{
		Symbol:       term,
		Start:        c.pos,
		End:          c.pos,
		Mode:         la.Mode,
		LookaheadEnd: la.LookaheadEnd,
		ScanBefore:   c.scan,
		ScanAfter:    c.scan,
	}
	shifted := false
	for n := 0; n < maxReductions && !shifted; n++ {
		acts := s.lang.Actions(c.top(), term)
		if len(acts) == 0 {
			return 0, false
		}
		act := acts[0]
		switch {
		case act.IsShift():
			c.stack = append(c.stack, stackEntry{
				state: act.State(),
				sub:   tree.NewMissing(term, c.top(), c.scan),
			})
			c.errAt, c.wrapEnd = len(c.stack)-1, -1
			shifted = true
		case act.Production() == spec.ProductionIDStart:
			return 0, false
		default:
			s.reduce(c, act.Production(), tok)
		}
	}
	if !shifted {
		return 0, false
	}
	if len(s.lang.Actions(c.top(), la.Symbol)) == 0 && (la.Error || la.EOF() || !s.lang.IsExtra(la.Symbol)) {
		return 0, false
	}
	c.la = la
	return tree.CostPerMissingLeaf, true
}

// popIntoError wraps the top k subtrees, not counting extras and error nodes, into an ERROR
// node. Popped ERROR nodes are flattened into the new one. Their bytes and those of extras
// were paid for already, so only the newly skipped bytes count.
func (s *Session) popIntoError(c *version, k int) (int, bool) {
	i := len(c.stack)
	for n := 0; n < k; {
		if i <= 1 {
			return 0, false
		}
		i--
		if !c.stack[i].sub.SkippedByReduce() {
			n++
		}
	}
	for i > 1 && c.stack[i-1].sub.SkippedByReduce() {
		i--
	}

	var children []*tree.Subtree
	skipped := 0
	for _, e := range c.stack[i:] {
		if e.sub.IsErrorNode() {
			children = append(children, e.sub.Children()...)
			continue
		}
		children = append(children, e.sub)
		if !e.sub.IsExtra() {
			skipped += e.sub.Size()
		}
	}
	c.stack = c.stack[:i]
	node := tree.NewError(s.lang.ErrorSymbol(), children, c.top(), nil)
	c.stack = append(c.stack, stackEntry{
		state: c.top(),
		sub:   node,
	})
	c.errAt, c.wrapEnd = len(c.stack)-1, -1
	return tree.CostPerSkippedTree*k + tree.CostPerSkippedByte*skipped, true
}

// panicMode discards tokens, lexed without context, until one lets the parse go on from some
// state on the stack. Every such state is tried with a trial parse, and the one that gets
// furthest wins, ties going to the topmost; it must get at least the recovery window far. The
// subtrees above that state and the discarded tokens form one ERROR node. When the end of
// input arrives first, the whole stack becomes the root of an error tree.
func (s *Session) panicMode(v *version) *version {
	c := v.clone()
	c.failed = false
	c.errAt, c.wrapEnd = -1, -1
	la := s.lookahead(c)
	s.extendFragile(la)

	var discarded []*tree.Subtree
	cost := 0
	for {
		if !la.Error && !(s.lang.IsExtra(la.Symbol) && !la.EOF()) {
			if r, rCost, ok := s.resume(c, la, discarded); ok {
				r.cost += cost + rCost
				s.trace("panic", logging.FieldPos, r.pos, logging.FieldState, r.top(), logging.FieldCost, cost+rCost)
				return r
			}
		}

		if la.EOF() {
			children := flattenErrors(c.subtrees(), discarded)
			c.root = tree.NewError(s.lang.ErrorSymbol(), children, s.lang.InitialState(), nil)
			c.cost += cost + tree.CostPerSkippedTree*len(children) + tree.CostPerSkippedByte*c.root.Size()
			c.accepted = true
			s.trace("panic", logging.FieldPos, c.pos, logging.FieldEOF, true)
			return c
		}

		discarded = append(discarded, s.leaf(la, c.top(), !la.Error && s.lang.IsExtra(la.Symbol)))
		cost += tree.CostPerSkippedTree
		c.pos = la.End
		c.scan = la.ScanAfter
		la = s.tokens.next(c.pos, spec.LexModeIDRecovery, c.scan)
		s.extendFragile(la)
		c.la = la
		c.laReuse = nil
	}
}

// resume picks the stack state panic mode goes on from with la as the lookahead.
func (s *Session) resume(c *version, la *lexer.Token, discarded []*tree.Subtree) (*version, int, bool) {
	var best *version
	bestCost, bestDist := 0, 0
	for i := len(c.stack) - 1; i >= 0; i-- {
		if i > 0 && c.stack[i].sub.SkippedByReduce() {
			continue
		}
		if len(discarded) == 0 && c.stack[i].state == c.top() {
			continue
		}
		if len(s.lang.Actions(c.stack[i].state, la.Symbol)) == 0 {
			continue
		}

		r := c.clone()
		var popped []*tree.Subtree
		for _, e := range r.stack[i+1:] {
			popped = append(popped, e.sub)
		}
		children := flattenErrors(popped, discarded)
		cost := tree.CostPerSkippedTree * len(popped)
		r.stack = r.stack[:i+1]
		if len(children) > 0 {
			node := tree.NewError(s.lang.ErrorSymbol(), children, r.top(), nil)
			cost += tree.CostPerSkippedByte * node.Size()
			r.stack = append(r.stack, stackEntry{
				state: r.top(),
				sub:   node,
			})
		}
		r.la = la
		r.laReuse = nil

		dist, _ := s.speculate(r, panicHorizon*s.p.recoveryWindow)
		if dist < s.p.recoveryWindow || (best != nil && dist <= bestDist) {
			continue
		}
		best, bestCost, bestDist = r, cost, dist
	}
	return best, bestCost, best != nil
}

// flattenErrors concatenates subtree lists, replacing ERROR nodes with their children.
func flattenErrors(lists ...[]*tree.Subtree) []*tree.Subtree {
	var subs []*tree.Subtree
	for _, l := range lists {
		for _, sub := range l {
			if sub.IsErrorNode() {
				subs = append(subs, sub.Children()...)
				continue
			}
			subs = append(subs, sub)
		}
	}
	return subs
}

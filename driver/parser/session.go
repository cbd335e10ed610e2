package parser

import (
	"context"
	"sort"

	"github.com/etslang/kestrel/driver/lexer"
	"github.com/etslang/kestrel/internal/logging"
	"github.com/etslang/kestrel/language"
	spec "github.com/etslang/kestrel/spec/grammar"
	"github.com/etslang/kestrel/tree"
)

// maxReductions bounds the reductions a version performs on one lookahead. Well-formed tables
// never reach it; it turns a cyclic table into a syntax error instead of a hang.
const maxReductions = 10000

// maxRecoveriesInPlace bounds the recoveries at one offset before the parser discards tokens.
const maxRecoveriesInPlace = 8

type stepResult int

const (
	stepShifted stepResult = iota
	stepAccepted
	stepFailed
)

// Session is a parse in progress. It is driven by Step or Finish and is not safe for
// concurrent use.
type Session struct {
	p      *Parser
	lang   *language.Language
	src    []byte
	tokens *tokenSource
	reuse  *reuseCursor

	active   []*version
	finished []*version

	// multi is true while more than one version is alive. Subtrees built meanwhile are
	// fragile: another version could have built them differently.
	multi       bool
	speculating bool

	// recovering is true while a repair is chosen. Subtrees built before fragileUntil depend on
	// text a repair or a trial parse looked at, so they are fragile too.
	recovering   bool
	fragileUntil int

	recoveryPos   int
	recoveryCount int

	reused map[*tree.Subtree]struct{}
	stats  tree.Stats
	result *tree.Tree
}

func newSession(p *Parser, src []byte) *Session {
	return &Session{
		p:           p,
		lang:        p.lang,
		src:         src,
		tokens:      newTokenSource(p.lang.Lexer(), src),
		active:      []*version{newVersion(p.lang.InitialState())},
		recoveryPos: -1,
		reused:      map[*tree.Subtree]struct{}{},
	}
}

// Done reports whether the parse is complete.
func (s *Session) Done() bool {
	return len(s.active) == 0
}

// Step advances the parse until n tokens or reused subtrees have been consumed or the parse
// completes. It reports whether the parse is complete.
func (s *Session) Step(ctx context.Context, n int) (bool, error) {
	for consumed := 0; consumed < n && !s.Done(); {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if s.step() {
			consumed++
		}
	}
	return s.Done(), nil
}

// Finish runs the parse to completion and returns the tree. When ctx is cancelled first, it
// returns a tree covering the whole text whose unread part is an error leaf, along with the
// context's error.
func (s *Session) Finish(ctx context.Context) (*tree.Tree, error) {
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return s.partial(), err
		}
		s.step()
	}
	return s.tree(), nil
}

// step advances the leftmost version by one token. It reports whether something was consumed.
func (s *Session) step() bool {
	idx := 0
	for i, v := range s.active {
		if v.pos < s.active[idx].pos {
			idx = i
		}
	}
	v := s.active[idx]

	if s.reuse != nil && len(s.active) == 1 && len(s.finished) == 0 && v.la == nil {
		if s.tryReuse(v) {
			return true
		}
	}

	res, forks := s.advance(v)
	switch res {
	case stepAccepted:
		v.accepted = true
	case stepFailed:
		v.failed = true
	}
	if len(forks) > 0 {
		active := make([]*version, 0, len(s.active)+len(forks))
		active = append(active, s.active[:idx+1]...)
		active = append(active, forks...)
		active = append(active, s.active[idx+1:]...)
		s.active = active
	}
	s.condense()
	return res == stepShifted
}

// advance feeds the lookahead of a version to the table until it is shifted, accepted or
// rejected. Conflicting actions fork the version; the forks apply their action and are returned
// for the caller to schedule.
func (s *Session) advance(v *version) (stepResult, []*version) {
	la := s.lookahead(v)
	var forks []*version
	for n := 0; n < maxReductions; n++ {
		acts := s.lang.Actions(v.top(), la.Symbol)
		if len(acts) == 0 {
			if !la.Error && !la.EOF() && s.lang.IsExtra(la.Symbol) {
				s.shift(v, v.top(), la, true)
				return stepShifted, forks
			}
			return stepFailed, forks
		}

		for _, act := range acts[1:] {
			f := v.clone()
			s.multi = true
			s.apply(f, act, la)
			forks = append(forks, f)
		}
		if len(acts) > 1 {
			s.trace("fork", logging.FieldState, v.top(), logging.FieldSymbol, s.lang.SymbolName(la.Symbol), logging.FieldVersions, len(acts))
		}

		switch act := acts[0]; {
		case act.IsShift():
			s.shift(v, act.State(), la, false)
			return stepShifted, forks
		case act.Production() == spec.ProductionIDStart:
			s.accept(v)
			return stepAccepted, forks
		default:
			s.reduce(v, act.Production(), la)
		}
	}
	return stepFailed, forks
}

// apply performs one action on a forked version.
func (s *Session) apply(v *version, act spec.Action, la *lexer.Token) {
	switch {
	case act.IsShift():
		s.shift(v, act.State(), la, false)
	case act.Production() == spec.ProductionIDStart:
		s.accept(v)
		v.accepted = true
	default:
		s.reduce(v, act.Production(), la)
	}
}

func (s *Session) lookahead(v *version) *lexer.Token {
	if v.la == nil {
		v.la = s.tokens.next(v.pos, s.lang.LexMode(v.top()), v.scan)
		v.laReuse = nil
	}
	if s.speculating {
		s.extendFragile(v.la)
	}
	return v.la
}

func (s *Session) extendFragile(la *lexer.Token) {
	if la.LookaheadEnd > s.fragileUntil {
		s.fragileUntil = la.LookaheadEnd
	}
}

func (s *Session) leaf(la *lexer.Token, state spec.StateID, extra bool) *tree.Subtree {
	sym := la.Symbol
	if la.Error {
		sym = s.lang.ErrorSymbol()
	}
	return tree.NewLeaf(tree.LeafParams{
		Symbol:     sym,
		Size:       la.End - la.Start,
		Lookahead:  la.LookaheadEnd - la.Start,
		ParseState: state,
		LexMode:    la.Mode,
		ScanBefore: la.ScanBefore,
		ScanAfter:  la.ScanAfter,
		Extra:      extra,
		LexError:   la.Error,
		Fragile:    s.multi,
	})
}

// shift pushes the lookahead. Extras keep the current state.
func (s *Session) shift(v *version, next spec.StateID, la *lexer.Token, extra bool) {
	var leaf *tree.Subtree
	if r := v.laReuse; r != nil && !s.multi && r.ParseState() == v.top() && r.IsExtra() == extra {
		leaf = r
		s.reused[r] = struct{}{}
	} else {
		leaf = s.leaf(la, v.top(), extra)
	}
	v.stack = append(v.stack, stackEntry{
		state: next,
		sub:   leaf,
	})
	v.pos = la.End
	v.scan = la.ScanAfter
	v.la = nil
	v.laReuse = nil
	if !extra {
		v.shifts++
	}
	s.trace("shift", logging.FieldSymbol, s.lang.SymbolName(leaf.Symbol()), logging.FieldState, next, logging.FieldPos, la.Start)
}

// reduce replaces the right-hand side of a production with a node. Extras and error nodes on
// top of the stack are not part of the node; they are pushed back above it.
func (s *Session) reduce(v *version, prod spec.ProductionID, la *lexer.Token) {
	p := s.lang.Production(prod)

	end := len(v.stack)
	for end > 1 && v.stack[end-1].sub.SkippedByReduce() {
		end--
	}
	start := end
	for n := 0; n < p.RHSLen && start > 1; {
		start--
		if !v.stack[start].sub.SkippedByReduce() {
			n++
		}
	}

	children := make([]*tree.Subtree, 0, end-start)
	size := 0
	for _, e := range v.stack[start:end] {
		children = append(children, e.sub)
		size += e.sub.Size()
	}
	trailing := append([]stackEntry(nil), v.stack[end:]...)
	trailingSize := 0
	for _, e := range trailing {
		trailingSize += e.sub.Size()
	}
	nodeStart := v.pos - trailingSize - size

	switch {
	case v.errAt >= end:
		v.errAt = start + 1 + v.errAt - end
	case v.errAt >= start:
		v.wrapEnd = nodeStart + size
		v.errAt = -1
	}
	v.reductions++

	fragile := s.multi || s.recovering || v.pos < s.fragileUntil
	for _, e := range trailing {
		if e.sub.HasError() {
			fragile = true
		}
	}

	scan := v.scan
	if len(trailing) > 0 {
		scan = trailing[0].sub.ScanBefore()
	}
	below := v.stack[start-1].state
	node := tree.NewNode(tree.NodeParams{
		Symbol:     p.LHS,
		Production: prod,
		Children:   children,
		Fields:     p.Fields,
		ParseState: below,
		Follow:     la.LookaheadEnd - nodeStart,
		Scan:       scan,
		Fragile:    fragile,
	})

	next, ok := s.lang.GoTo(below, p.LHS)
	if !ok {
		// The table is inconsistent; keep the stack shape and let the next lookup fail.
		next = below
	}
	v.stack = append(v.stack[:start], stackEntry{
		state: next,
		sub:   node,
	})
	for _, e := range trailing {
		e.state = next
		v.stack = append(v.stack, e)
	}
	s.trace("reduce", logging.FieldSymbol, s.lang.SymbolName(p.LHS), logging.FieldProduction, prod, logging.FieldState, next)
}

// accept finishes a version. Extras and error nodes around the start symbol become children of
// the root.
func (s *Session) accept(v *version) {
	if v.errAt >= 0 && v.wrapEnd < 0 {
		v.wrapEnd = v.pos
	}
	var leading, trailing []*tree.Subtree
	var root *tree.Subtree
	for _, e := range v.stack[1:] {
		switch {
		case root == nil && e.sub.SkippedByReduce():
			leading = append(leading, e.sub)
		case root == nil:
			root = e.sub
		default:
			trailing = append(trailing, e.sub)
		}
	}
	if root == nil {
		v.root = tree.NewError(s.lang.ErrorSymbol(), leading, s.lang.InitialState(), nil)
		return
	}
	v.root = root.WithExtras(leading, trailing)
	s.trace("accept", logging.FieldCost, v.cost)
}

// condense brings the version set back into shape after a step: it retires accepted versions,
// drops failed ones, recovers when all failed, merges versions and caps their number. Of two
// versions with the same top state the cheaper one stays, then the one with fewer reductions.
func (s *Session) condense() {
	var alive []*version
	for _, v := range s.active {
		if v.accepted {
			s.finished = append(s.finished, v)
			continue
		}
		alive = append(alive, v)
	}

	var ok []*version
	for _, v := range alive {
		if !v.failed {
			ok = append(ok, v)
		}
	}
	if len(ok) == 0 {
		s.active = nil
		if len(alive) > 0 && len(s.finished) == 0 {
			best := alive[0]
			for _, v := range alive[1:] {
				if v.cost < best.cost {
					best = v
				}
			}
			r := s.recover(best)
			if r.accepted {
				s.finished = append(s.finished, r)
			} else {
				s.active = []*version{r}
			}
		}
		s.multi = len(s.active) > 1
		return
	}

	merged := make([]*version, 0, len(ok))
	for _, v := range ok {
		dup := false
		for i, m := range merged {
			if mergeable(v, m) {
				if v.cost < m.cost || (v.cost == m.cost && v.reductions < m.reductions) {
					merged[i] = v
				}
				dup = true
				break
			}
		}
		if !dup {
			merged = append(merged, v)
		}
	}

	if best := s.bestFinished(); best != nil {
		kept := merged[:0]
		for _, v := range merged {
			if v.cost < best.cost {
				kept = append(kept, v)
			}
		}
		merged = kept
	}

	if len(merged) > s.p.maxVersions {
		sort.SliceStable(merged, func(i, j int) bool {
			return merged[i].cost < merged[j].cost
		})
		merged = merged[:s.p.maxVersions]
	}

	s.active = merged
	s.multi = len(s.active) > 1
}

func (s *Session) bestFinished() *version {
	var best *version
	for _, v := range s.finished {
		if best == nil || v.cost < best.cost {
			best = v
		}
	}
	return best
}

// tree builds the result once the parse is complete.
func (s *Session) tree() *tree.Tree {
	if s.result != nil {
		return s.result
	}
	var root *tree.Subtree
	if best := s.bestFinished(); best != nil {
		root = best.root
	} else {
		root = tree.NewError(s.lang.ErrorSymbol(), nil, s.lang.InitialState(), nil)
	}
	s.result = tree.New(s.lang, root, s.src, s.countNodes(root))
	return s.result
}

// partial wraps the best version's stack and the unread text into an error root.
func (s *Session) partial() *tree.Tree {
	var v *version
	for _, a := range s.active {
		if v == nil || a.cost < v.cost {
			v = a
		}
	}
	children := v.subtrees()
	if v.pos < len(s.src) {
		children = append(children, tree.NewLeaf(tree.LeafParams{
			Symbol:     s.lang.ErrorSymbol(),
			Size:       len(s.src) - v.pos,
			ParseState: v.top(),
			ScanBefore: v.scan,
			ScanAfter:  v.scan,
			LexError:   true,
		}))
	}
	root := tree.NewError(s.lang.ErrorSymbol(), children, s.lang.InitialState(), nil)
	return tree.New(s.lang, root, s.src, s.countNodes(root))
}

func (s *Session) countNodes(root *tree.Subtree) tree.Stats {
	stats := s.stats
	var walk func(sub *tree.Subtree)
	walk = func(sub *tree.Subtree) {
		if _, ok := s.reused[sub]; ok {
			stats.Reused += sub.Descendants()
			return
		}
		for _, c := range sub.Children() {
			walk(c)
		}
	}
	walk(root)
	stats.Created = root.Descendants() - stats.Reused
	return stats
}

func (s *Session) trace(msg string, keyvals ...interface{}) {
	if s.p.logger == nil || s.speculating {
		return
	}
	s.p.logger.Debug(msg, keyvals...)
}

package grammar

import (
	"fmt"
	"sort"
	"strings"

	spec "github.com/etslang/kestrel/spec/grammar"
)

type conflictResolutionMethod int

func (m conflictResolutionMethod) Int() int {
	return int(m)
}

const (
	ResolvedByPrec      conflictResolutionMethod = 1
	ResolvedByAssoc     conflictResolutionMethod = 2
	ResolvedByShift     conflictResolutionMethod = 3
	ResolvedByProdOrder conflictResolutionMethod = 4

	// KeptForGLR means every action stays in the table and the parser forks.
	KeptForGLR conflictResolutionMethod = 5
)

func (m conflictResolutionMethod) String() string {
	switch m {
	case ResolvedByPrec:
		return "precedence"
	case ResolvedByAssoc:
		return "associativity"
	case ResolvedByShift:
		return "shift"
	case ResolvedByProdOrder:
		return "production order"
	case KeptForGLR:
		return "glr"
	}
	return "unknown"
}

type conflict interface {
	conflict()
}

type shiftReduceConflict struct {
	state      stateNum
	sym        symbol
	nextState  stateNum
	prodNum    productionNum
	resolvedBy conflictResolutionMethod
	adopted    spec.Action
}

func (c *shiftReduceConflict) conflict() {
}

type reduceReduceConflict struct {
	state      stateNum
	sym        symbol
	prodNum1   productionNum
	prodNum2   productionNum
	resolvedBy conflictResolutionMethod
}

func (c *reduceReduceConflict) conflict() {
}

var (
	_ conflict = &shiftReduceConflict{}
	_ conflict = &reduceReduceConflict{}
)

// actionCell collects every candidate action of a state/terminal pair before
// conflicts are resolved.
type actionCell struct {
	shift   stateNum
	reduces []productionNum
}

type ParsingTable struct {
	actions          [][]spec.Action
	goToTable        []int
	stateCount       int
	terminalCount    int
	nonTerminalCount int

	InitialState stateNum
}

func (t *ParsingTable) readActions(state stateNum, term int) []spec.Action {
	return t.actions[state.Int()*t.terminalCount+term]
}

func (t *ParsingTable) writeGoTo(state stateNum, sym symbol, nextState stateNum) {
	t.goToTable[state.Int()*t.nonTerminalCount+sym.num()] = nextState.Int() + 1
}

type lrTableBuilder struct {
	automaton    *lr0Automaton
	prods        *productionSet
	termCount    int
	nonTermCount int
	symTab       *symbolTable
	precAndAssoc *precAndAssoc

	// conflictGroups maps a non-terminal to the indexes of the declared conflict
	// groups it belongs to.
	conflictGroups map[symbol][]int

	conflicts []conflict
}

func (b *lrTableBuilder) build() (*ParsingTable, error) {
	initialState := b.automaton.states[b.automaton.initialState]
	ptab := &ParsingTable{
		actions:          make([][]spec.Action, len(b.automaton.states)*b.termCount),
		goToTable:        make([]int, len(b.automaton.states)*b.nonTermCount),
		stateCount:       len(b.automaton.states),
		terminalCount:    b.termCount,
		nonTerminalCount: b.nonTermCount,
		InitialState:     initialState.num,
	}

	for _, state := range b.automaton.orderedStates() {
		cells := map[symbol]*actionCell{}
		cell := func(sym symbol) *actionCell {
			c, ok := cells[sym]
			if !ok {
				c = &actionCell{
					shift: -1,
				}
				cells[sym] = c
			}
			return c
		}

		for sym, kID := range state.next {
			nextState := b.automaton.states[kID]
			if sym.isTerminal() {
				cell(sym).shift = nextState.num
			} else {
				ptab.writeGoTo(state.num, sym, nextState.num)
			}
		}

		for prodNum := range state.reducible {
			reducibleProd, ok := b.prods.findByNum(prodNum)
			if !ok {
				return nil, fmt.Errorf("reducible production not found: %v", prodNum)
			}

			reducibleItem := findItem(state.items, lrItemID{prod: prodNum, dot: reducibleProd.rhsLen})
			if reducibleItem == nil {
				reducibleItem = findItem(state.emptyProdItems, lrItemID{prod: prodNum, dot: 0})
				if reducibleItem == nil {
					return nil, fmt.Errorf("reducible item not found; state: %v, production: %v", state.num, prodNum)
				}
			}

			for a := range reducibleItem.lookAhead.symbols {
				c := cell(a)
				c.reduces = append(c.reduces, prodNum)
			}
		}

		syms := make([]symbol, 0, len(cells))
		for sym := range cells {
			syms = append(syms, sym)
		}
		sort.Slice(syms, func(i, j int) bool {
			return syms[i] < syms[j]
		})
		for _, sym := range syms {
			acts := b.resolve(state, sym, cells[sym])
			ptab.actions[state.num.Int()*b.termCount+sym.num()] = acts
		}
	}

	return ptab, nil
}

// resolve turns the candidate actions of a cell into the actions written to
// the table. Shift actions come first, then reductions in production order.
func (b *lrTableBuilder) resolve(state *lrState, sym symbol, c *actionCell) []spec.Action {
	sort.Slice(c.reduces, func(i, j int) bool {
		return c.reduces[i] < c.reduces[j]
	})

	reduces := c.reduces
	if len(reduces) > 1 {
		lhs := make([]symbol, len(reduces))
		for i, p := range reduces {
			prod, _ := b.prods.findByNum(p)
			lhs[i] = prod.lhs
		}
		kept := b.declared(lhs...)
		for _, p := range reduces[1:] {
			method := ResolvedByProdOrder
			if kept {
				method = KeptForGLR
			}
			b.conflicts = append(b.conflicts, &reduceReduceConflict{
				state:      state.num,
				sym:        sym,
				prodNum1:   reduces[0],
				prodNum2:   p,
				resolvedBy: method,
			})
		}
		if !kept {
			reduces = reduces[:1]
		}
	}

	shift := c.shift >= 0
	if shift && len(reduces) > 0 {
		var survivors []productionNum
		dropShift := false
		for _, p := range reduces {
			act, method := b.resolveSRConflict(state, sym, p)
			con := &shiftReduceConflict{
				state:      state.num,
				sym:        sym,
				nextState:  c.shift,
				prodNum:    p,
				resolvedBy: method,
			}
			switch act {
			case spec.Action(0):
				con.adopted = spec.ShiftAction(spec.StateID(c.shift))
			default:
				con.adopted = act
			}
			b.conflicts = append(b.conflicts, con)

			switch {
			case method == KeptForGLR:
				survivors = append(survivors, p)
			case act.IsReduce():
				survivors = append(survivors, p)
				dropShift = true
			}
		}
		reduces = survivors
		if dropShift {
			shift = false
		}
	}

	var acts []spec.Action
	if shift {
		acts = append(acts, spec.ShiftAction(spec.StateID(c.shift)))
	}
	for _, p := range reduces {
		acts = append(acts, spec.ReduceAction(spec.ProductionID(p)))
	}
	return acts
}

// resolveSRConflict returns the reduce action when the reduction wins, 0 when
// the shift wins, and KeptForGLR when both must stay.
func (b *lrTableBuilder) resolveSRConflict(state *lrState, sym symbol, prod productionNum) (spec.Action, conflictResolutionMethod) {
	reduce := spec.ReduceAction(spec.ProductionID(prod))
	symPrec := b.precAndAssoc.terminalPrecedence(sym)
	prodPrec := b.precAndAssoc.productionPredence(prod)
	if symPrec == precNil || prodPrec == precNil {
		p, _ := b.prods.findByNum(prod)
		lhs := []symbol{p.lhs}
		for l := range state.shiftLHS[sym] {
			lhs = append(lhs, l)
		}
		if b.declared(lhs...) {
			return reduce, KeptForGLR
		}
		return 0, ResolvedByShift
	}
	if symPrec == prodPrec {
		assoc := b.precAndAssoc.productionAssociativity(prod)
		if assoc != assocTypeLeft {
			return 0, ResolvedByAssoc
		}
		return reduce, ResolvedByAssoc
	}
	if symPrec < prodPrec {
		return 0, ResolvedByPrec
	}
	return reduce, ResolvedByPrec
}

// declared reports whether every given non-terminal belongs to one common
// declared conflict group.
func (b *lrTableBuilder) declared(syms ...symbol) bool {
	if len(syms) == 0 || len(b.conflictGroups) == 0 {
		return false
	}
	common := map[int]int{}
	for i, sym := range syms {
		for _, g := range b.conflictGroups[sym] {
			if common[g] == i {
				common[g] = i + 1
			}
		}
	}
	for _, n := range common {
		if n == len(syms) {
			return true
		}
	}
	return false
}

func (b *lrTableBuilder) describeConflict(c conflict) string {
	switch c := c.(type) {
	case *shiftReduceConflict:
		return fmt.Sprintf("%v: shift/reduce conflict (shift %v, reduce %v) on %v, resolved by %v", c.state, c.nextState, c.prodNum, b.symTab.toText(c.sym), c.resolvedBy)
	case *reduceReduceConflict:
		return fmt.Sprintf("%v: reduce/reduce conflict (reduce %v and %v) on %v, resolved by %v", c.state, c.prodNum1, c.prodNum2, b.symTab.toText(c.sym), c.resolvedBy)
	}
	return ""
}

func (b *lrTableBuilder) productionToString(prod *production, dot int) string {
	var w strings.Builder
	fmt.Fprintf(&w, "%v →", b.symTab.toText(prod.lhs))
	for n, rhs := range prod.rhs {
		if n == dot {
			fmt.Fprintf(&w, " ・")
		}
		fmt.Fprintf(&w, " %v", b.symTab.toText(rhs))
	}
	if dot == len(prod.rhs) {
		fmt.Fprintf(&w, " ・")
	}
	return w.String()
}

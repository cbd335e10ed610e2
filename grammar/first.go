package grammar

import "fmt"

// firstEntry is FIRST of a string of symbols: the terminals it can start with, and whether
// it derives the empty string.
type firstEntry struct {
	symbols symbolSet
	empty   bool
}

func newFirstEntry() *firstEntry {
	return &firstEntry{
		symbols: newSymbolSet(),
	}
}

func (e *firstEntry) setEmpty() bool {
	if e.empty {
		return false
	}
	e.empty = true
	return true
}

// firstSet holds FIRST of every non-terminal.
type firstSet struct {
	set map[symbol]*firstEntry
}

func (fst *firstSet) findBySymbol(sym symbol) *firstEntry {
	return fst.set[sym]
}

// find returns FIRST of the RHS of prod starting at head.
func (fst *firstSet) find(prod *production, head int) (*firstEntry, error) {
	entry := newFirstEntry()
	var rest []symbol
	if head < prod.rhsLen {
		rest = prod.rhs[head:]
	}
	if _, err := fst.accumulate(entry, rest); err != nil {
		return nil, err
	}
	return entry, nil
}

// accumulate adds FIRST of syms to acc and reports whether acc changed.
func (fst *firstSet) accumulate(acc *firstEntry, syms []symbol) (bool, error) {
	changed := false
	for _, sym := range syms {
		if sym.isTerminal() {
			return acc.symbols.add(sym) || changed, nil
		}
		e := fst.findBySymbol(sym)
		if e == nil {
			return false, fmt.Errorf("a non-terminal symbol has no production; symbol: %v", sym)
		}
		if acc.symbols.merge(e.symbols) {
			changed = true
		}
		if !e.empty {
			return changed, nil
		}
	}
	return acc.setEmpty() || changed, nil
}

// genFirstSet iterates over the productions until no FIRST entry grows.
func genFirstSet(prods *productionSet) (*firstSet, error) {
	all := prods.getAllProductions()
	fst := &firstSet{
		set: map[symbol]*firstEntry{},
	}
	for _, prod := range all {
		if fst.set[prod.lhs] == nil {
			fst.set[prod.lhs] = newFirstEntry()
		}
	}
	for changed := true; changed; {
		changed = false
		for _, prod := range all {
			grew, err := fst.accumulate(fst.set[prod.lhs], prod.rhs)
			if err != nil {
				return nil, err
			}
			changed = changed || grew
		}
	}
	return fst, nil
}

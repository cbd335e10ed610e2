package grammar

import "slices"

// symbolSet is a set of symbols. Its methods need a non-nil map.
type symbolSet map[symbol]struct{}

func newSymbolSet(syms ...symbol) symbolSet {
	s := make(symbolSet, len(syms))
	for _, sym := range syms {
		s[sym] = struct{}{}
	}
	return s
}

func (s symbolSet) has(sym symbol) bool {
	_, ok := s[sym]
	return ok
}

// add reports whether sym was not in the set yet.
func (s symbolSet) add(sym symbol) bool {
	if s.has(sym) {
		return false
	}
	s[sym] = struct{}{}
	return true
}

// merge adds every symbol of other and reports whether the set grew.
func (s symbolSet) merge(other symbolSet) bool {
	grew := false
	for sym := range other {
		if s.add(sym) {
			grew = true
		}
	}
	return grew
}

func (s symbolSet) sorted() []symbol {
	syms := make([]symbol, 0, len(s))
	for sym := range s {
		syms = append(syms, sym)
	}
	slices.Sort(syms)
	return syms
}

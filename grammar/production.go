package grammar

import (
	"fmt"

	spec "github.com/etslang/kestrel/spec/grammar"
)

type productionNum int

const (
	productionNumNil   = productionNum(0)
	productionNumStart = productionNum(1)
	productionNumMin   = productionNum(2)
)

func (n productionNum) Int() int {
	return int(n)
}

type production struct {
	num    productionNum
	lhs    symbol
	rhs    []symbol
	rhsLen int
	fields []spec.FieldID

	// precTerm is the terminal named by an explicit `%prec`; nil when absent.
	precTerm symbol

	// row is the line of the rule in the grammar definition, used in error messages.
	row int
}

func newProduction(lhs symbol, rhs []symbol, fields []spec.FieldID) (*production, error) {
	if lhs.isNil() || lhs.isTerminal() {
		return nil, fmt.Errorf("LHS must be a non-terminal symbol; LHS: %v, RHS: %v", lhs, rhs)
	}
	for _, sym := range rhs {
		if sym.isNil() {
			return nil, fmt.Errorf("a symbol of RHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
		}
	}
	return &production{
		lhs:    lhs,
		rhs:    rhs,
		rhsLen: len(rhs),
		fields: fields,
	}, nil
}

func (p *production) equals(q *production) bool {
	if p.lhs != q.lhs || p.rhsLen != q.rhsLen {
		return false
	}
	for i, sym := range p.rhs {
		if q.rhs[i] != sym {
			return false
		}
	}
	return true
}

func (p *production) isEmpty() bool {
	return p.rhsLen == 0
}

type productionSet struct {
	lhs2Prods map[symbol][]*production
	prods     []*production
}

func newProductionSet() *productionSet {
	return &productionSet{
		lhs2Prods: map[symbol][]*production{},
		prods:     []*production{nil},
	}
}

func (ps *productionSet) append(prod *production) bool {
	for _, p := range ps.lhs2Prods[prod.lhs] {
		if p.equals(prod) {
			return false
		}
	}

	if prod.lhs.isStart() {
		prod.num = productionNumStart
	} else {
		prod.num = productionNum(len(ps.prods))
		if prod.num < productionNumMin {
			prod.num = productionNumMin
		}
	}
	for len(ps.prods) <= prod.num.Int() {
		ps.prods = append(ps.prods, nil)
	}
	ps.prods[prod.num] = prod
	ps.lhs2Prods[prod.lhs] = append(ps.lhs2Prods[prod.lhs], prod)
	return true
}

func (ps *productionSet) findByNum(num productionNum) (*production, bool) {
	if num <= productionNumNil || num.Int() >= len(ps.prods) || ps.prods[num] == nil {
		return nil, false
	}
	return ps.prods[num], true
}

func (ps *productionSet) findByLHS(lhs symbol) ([]*production, bool) {
	if lhs.isNil() {
		return nil, false
	}
	prods, ok := ps.lhs2Prods[lhs]
	return prods, ok
}

// getAllProductions returns the productions in number order.
func (ps *productionSet) getAllProductions() []*production {
	var prods []*production
	for _, p := range ps.prods {
		if p == nil {
			continue
		}
		prods = append(prods, p)
	}
	return prods
}

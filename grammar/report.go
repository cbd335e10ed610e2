package grammar

import (
	"fmt"
	"io"
	"strings"

	spec "github.com/etslang/kestrel/spec/grammar"
)

type ReportTerminal struct {
	Number        int    `json:"number"`
	Name          string `json:"name"`
	Anonymous     bool   `json:"anonymous"`
	Pattern       string `json:"pattern"`
	External      bool   `json:"external"`
	Extra         bool   `json:"extra"`
	Precedence    int    `json:"prec"`
	Associativity string `json:"assoc"`
}

type ReportNonTerminal struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Hidden bool   `json:"hidden"`
}

type ReportProduction struct {
	Number        int    `json:"number"`
	Text          string `json:"text"`
	Precedence    int    `json:"prec"`
	Associativity string `json:"assoc"`
}

type ReportConflict struct {
	State       int    `json:"state"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	ResolvedBy  int    `json:"resolved_by"`
}

type ReportState struct {
	Number  int      `json:"number"`
	Kernel  []string `json:"kernel"`
	LexMode int      `json:"lex_mode"`
	Actions []string `json:"actions"`
}

// Report describes a compiled grammar for debugging it.
type Report struct {
	Terminals    []*ReportTerminal    `json:"terminals"`
	NonTerminals []*ReportNonTerminal `json:"non_terminals"`
	Productions  []*ReportProduction  `json:"productions"`
	Conflicts    []*ReportConflict    `json:"conflicts"`
	States       []*ReportState       `json:"states"`
}

// ImplicitlyResolved counts the conflicts that were neither resolved by
// precedence nor declared.
func (r *Report) ImplicitlyResolved() int {
	n := 0
	for _, c := range r.Conflicts {
		if c.ResolvedBy == ResolvedByShift.Int() || c.ResolvedBy == ResolvedByProdOrder.Int() {
			n++
		}
	}
	return n
}

func (b *lrTableBuilder) genReport(tab *ParsingTable, lexModes []spec.LexModeID) *Report {
	r := &Report{}
	for _, e := range b.symTab.terms {
		t := &ReportTerminal{
			Number:    e.sym.num(),
			Name:      e.name,
			Anonymous: e.literal,
			Pattern:   e.pattern,
			External:  e.external >= 0,
			Extra:     e.extra,
		}
		if prec := b.precAndAssoc.terminalPrecedence(e.sym); prec != precNil {
			t.Precedence = prec
			t.Associativity = string(b.precAndAssoc.terminalAssociativity(e.sym))
		}
		r.Terminals = append(r.Terminals, t)
	}
	for _, e := range b.symTab.nonTerms {
		r.NonTerminals = append(r.NonTerminals, &ReportNonTerminal{
			Number: e.sym.num(),
			Name:   e.name,
			Hidden: e.hidden,
		})
	}
	for _, p := range b.prods.getAllProductions() {
		rp := &ReportProduction{
			Number: p.num.Int(),
			Text:   b.productionToString(p, -1),
		}
		if prec := b.precAndAssoc.productionPredence(p.num); prec != precNil {
			rp.Precedence = prec
			rp.Associativity = string(b.precAndAssoc.productionAssociativity(p.num))
		}
		r.Productions = append(r.Productions, rp)
	}
	for _, c := range b.conflicts {
		rc := &ReportConflict{
			Description: b.describeConflict(c),
		}
		switch c := c.(type) {
		case *shiftReduceConflict:
			rc.State = c.state.Int()
			rc.Symbol = b.symTab.toText(c.sym)
			rc.ResolvedBy = c.resolvedBy.Int()
		case *reduceReduceConflict:
			rc.State = c.state.Int()
			rc.Symbol = b.symTab.toText(c.sym)
			rc.ResolvedBy = c.resolvedBy.Int()
		}
		r.Conflicts = append(r.Conflicts, rc)
	}
	for _, s := range b.automaton.orderedStates() {
		rs := &ReportState{
			Number:  s.num.Int(),
			LexMode: int(lexModes[s.num]),
		}
		for _, item := range s.items {
			rs.Kernel = append(rs.Kernel, b.productionToString(item.prod, item.dot))
		}
		for term := 0; term < tab.terminalCount; term++ {
			for _, a := range tab.readActions(s.num, term) {
				text := b.symTab.toText(terminalSymbol(term))
				switch {
				case a.IsShift():
					rs.Actions = append(rs.Actions, fmt.Sprintf("%v: shift %v", text, a.State()))
				case a.Production() == spec.ProductionIDStart:
					rs.Actions = append(rs.Actions, fmt.Sprintf("%v: accept", text))
				default:
					rs.Actions = append(rs.Actions, fmt.Sprintf("%v: reduce %v", text, a.Production()))
				}
			}
		}
		r.States = append(r.States, rs)
	}
	return r
}

// WriteReport prints a report in a readable format.
func WriteReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "# Conflicts\n\n")
	if len(r.Conflicts) > 0 {
		fmt.Fprintf(w, "%v conflicts (%v resolved implicitly):\n\n", len(r.Conflicts), r.ImplicitlyResolved())
		for _, c := range r.Conflicts {
			fmt.Fprintf(w, "%v\n", c.Description)
		}
		fmt.Fprintf(w, "\n")
	} else {
		fmt.Fprintf(w, "no conflicts\n\n")
	}

	fmt.Fprintf(w, "# Terminals\n\n%v symbols:\n\n", len(r.Terminals))
	for _, t := range r.Terminals {
		var attrs []string
		if t.Anonymous {
			attrs = append(attrs, "anonymous")
		}
		if t.External {
			attrs = append(attrs, "external")
		}
		if t.Extra {
			attrs = append(attrs, "extra")
		}
		if t.Precedence != 0 {
			attrs = append(attrs, fmt.Sprintf("prec %v %v", t.Precedence, t.Associativity))
		}
		fmt.Fprintf(w, "%4v %v", t.Number, t.Name)
		if t.Pattern != "" && !t.Anonymous {
			fmt.Fprintf(w, " /%v/", t.Pattern)
		}
		if len(attrs) > 0 {
			fmt.Fprintf(w, " [%v]", strings.Join(attrs, ", "))
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "\n# Productions\n\n%v productions:\n\n", len(r.Productions))
	for _, p := range r.Productions {
		fmt.Fprintf(w, "%4v %v\n", p.Number, p.Text)
	}

	fmt.Fprintf(w, "\n# States\n\n%v states:\n\n", len(r.States))
	for _, s := range r.States {
		fmt.Fprintf(w, "state %v (lex mode %v)\n", s.Number, s.LexMode)
		for _, k := range s.Kernel {
			fmt.Fprintf(w, "    %v\n", k)
		}
		fmt.Fprintf(w, "\n")
		for _, a := range s.Actions {
			fmt.Fprintf(w, "    %v\n", a)
		}
		fmt.Fprintf(w, "\n")
	}
}

// Package language wraps a compiled grammar into a handle that parsers and trees share.
package language

import (
	"errors"
	"fmt"
	"io"

	"github.com/etslang/kestrel/driver/lexer"
	spec "github.com/etslang/kestrel/spec/grammar"
)

// ErrNoGrammar is returned when a language is built without a grammar table.
var ErrNoGrammar = errors.New("no grammar table")

// Language is a loaded grammar. It is read-only and safe for concurrent use by any number of
// parses.
type Language struct {
	grammar *spec.CompiledGrammar
	lexer   *lexer.Lexer
	fields  map[string]spec.FieldID
	named   map[string]spec.SymbolID
	anon    map[string]spec.SymbolID
}

// New validates a compiled grammar and returns its handle. scanner recognises the grammar's
// external terminals and may be nil when there are none.
func New(cg *spec.CompiledGrammar, scanner lexer.ExternalScanner) (*Language, error) {
	if cg == nil {
		return nil, ErrNoGrammar
	}
	err := cg.Validate()
	if err != nil {
		return nil, fmt.Errorf("cannot load grammar %v: %w", cg.Name, err)
	}
	if len(cg.Lexical.ExternalTerminals) > 0 && scanner == nil {
		return nil, fmt.Errorf("cannot load grammar %v: %w: external terminals need a scanner", cg.Name, spec.ErrMalformedGrammar)
	}

	l := &Language{
		grammar: cg,
		lexer:   lexer.NewLexer(cg.Lexical, scanner),
		fields:  map[string]spec.FieldID{},
		named:   map[string]spec.SymbolID{},
		anon:    map[string]spec.SymbolID{},
	}
	for id, name := range cg.Syntactic.FieldNames {
		if id == 0 {
			continue
		}
		l.fields[name] = spec.FieldID(id)
	}
	for id, sym := range cg.Syntactic.Symbols {
		m := l.anon
		if sym.Named {
			m = l.named
		}
		if _, ok := m[sym.Name]; !ok {
			m[sym.Name] = spec.SymbolID(id)
		}
	}
	return l, nil
}

// Load reads a grammar table in JSON form.
func Load(r io.Reader, scanner lexer.ExternalScanner) (*Language, error) {
	cg, err := spec.Load(r)
	if err != nil {
		return nil, err
	}
	return New(cg, scanner)
}

func (l *Language) Name() string {
	return l.grammar.Name
}

// Grammar returns the underlying table. Callers must not modify it.
func (l *Language) Grammar() *spec.CompiledGrammar {
	return l.grammar
}

func (l *Language) Lexer() *lexer.Lexer {
	return l.lexer
}

func (l *Language) InitialState() spec.StateID {
	return l.grammar.Syntactic.InitialState
}

func (l *Language) StartSymbol() spec.SymbolID {
	return l.grammar.Syntactic.StartSymbol
}

func (l *Language) ErrorSymbol() spec.SymbolID {
	return l.grammar.Syntactic.ErrorSymbol
}

func (l *Language) TerminalCount() int {
	return l.grammar.Syntactic.TerminalCount
}

// SymbolCount counts every symbol including ERROR.
func (l *Language) SymbolCount() int {
	return len(l.grammar.Syntactic.Symbols)
}

func (l *Language) IsTerminal(sym spec.SymbolID) bool {
	return sym >= 0 && sym.Int() < l.grammar.Syntactic.TerminalCount
}

func (l *Language) info(sym spec.SymbolID) *spec.SymbolInfo {
	if sym < 0 || sym.Int() >= len(l.grammar.Syntactic.Symbols) {
		return nil
	}
	return l.grammar.Syntactic.Symbols[sym]
}

// SymbolName returns the name of a symbol, or an empty string for an unknown one.
func (l *Language) SymbolName(sym spec.SymbolID) string {
	info := l.info(sym)
	if info == nil {
		return ""
	}
	return info.Name
}

func (l *Language) IsNamed(sym spec.SymbolID) bool {
	info := l.info(sym)
	return info != nil && info.Named
}

func (l *Language) IsVisible(sym spec.SymbolID) bool {
	info := l.info(sym)
	return info != nil && info.Visible
}

func (l *Language) IsExtra(sym spec.SymbolID) bool {
	info := l.info(sym)
	return info != nil && info.Extra
}

// SymbolForName looks a symbol up by name. Named symbols and anonymous literals live in
// separate namespaces, so "if" the keyword and a rule called if do not clash.
func (l *Language) SymbolForName(name string, named bool) (spec.SymbolID, bool) {
	m := l.anon
	if named {
		m = l.named
	}
	sym, ok := m[name]
	return sym, ok
}

// FieldName returns the name of a field, or an empty string for FieldIDNil.
func (l *Language) FieldName(id spec.FieldID) string {
	names := l.grammar.Syntactic.FieldNames
	if id <= 0 || int(id) >= len(names) {
		return ""
	}
	return names[id]
}

func (l *Language) FieldID(name string) (spec.FieldID, bool) {
	id, ok := l.fields[name]
	return id, ok
}

func (l *Language) Production(prod spec.ProductionID) *spec.Production {
	return l.grammar.Syntactic.Productions[prod]
}

// Actions returns the actions of a state on a terminal. More than one action means the
// grammar declared the conflict and the parser must fork.
func (l *Language) Actions(state spec.StateID, term spec.SymbolID) []spec.Action {
	syn := l.grammar.Syntactic
	if term < 0 || term.Int() >= syn.TerminalCount {
		return nil
	}
	return syn.ActionSets[syn.Action.Lookup(state.Int(), term.Int())]
}

// GoTo returns the state entered after reducing to a non-terminal.
func (l *Language) GoTo(state spec.StateID, nonTerm spec.SymbolID) (spec.StateID, bool) {
	syn := l.grammar.Syntactic
	next := syn.GoTo.Lookup(state.Int(), nonTerm.Int()-syn.TerminalCount)
	if next == 0 {
		return spec.StateIDNil, false
	}
	return spec.StateID(next - 1), true
}

func (l *Language) LexMode(state spec.StateID) spec.LexModeID {
	return l.grammar.Syntactic.LexModes[state]
}

// ExpectedTerminals lists the terminals having an action in a state, in symbol order.
func (l *Language) ExpectedTerminals(state spec.StateID) []spec.SymbolID {
	var terms []spec.SymbolID
	for t := 0; t < l.grammar.Syntactic.TerminalCount; t++ {
		if len(l.Actions(state, spec.SymbolID(t))) > 0 {
			terms = append(terms, spec.SymbolID(t))
		}
	}
	return terms
}

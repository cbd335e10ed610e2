package grammar

import (
	"fmt"
	"strings"

	spec "github.com/etslang/kestrel/spec/grammar"
	mlspec "github.com/nihei9/maleeni/spec"
)

// symbol is the compiler's internal symbol encoding. Terminals are positive
// (terminal number + 1), non-terminals negative (-(non-terminal number + 1)),
// and 0 is nil. Terminal 0 is the end of input; non-terminal 0 is the augmented
// start symbol.
type symbol int

const (
	symbolNil   = symbol(0)
	symbolEOF   = symbol(1)
	symbolStart = symbol(-1)
)

func terminalSymbol(num int) symbol {
	return symbol(num + 1)
}

func nonTerminalSymbol(num int) symbol {
	return symbol(-(num + 1))
}

func (s symbol) isNil() bool {
	return s == symbolNil
}

func (s symbol) isTerminal() bool {
	return s > 0
}

func (s symbol) isNonTerminal() bool {
	return s < 0
}

func (s symbol) isStart() bool {
	return s == symbolStart
}

// num returns the position of the symbol among the terminals or the non-terminals.
func (s symbol) num() int {
	if s > 0 {
		return int(s) - 1
	}
	return int(-s) - 1
}

func (s symbol) String() string {
	switch {
	case s.isNil():
		return "<nil>"
	case s.isTerminal():
		return fmt.Sprintf("t%v", s.num())
	default:
		return fmt.Sprintf("n%v", s.num())
	}
}

type symbolEntry struct {
	sym     symbol
	name    string
	literal bool
	hidden  bool
	extra   bool

	// pattern is empty for external terminals and the end of input.
	pattern  string
	external int

	// row is the line of the token definition.
	row int
}

type symbolTable struct {
	terms    []*symbolEntry
	nonTerms []*symbolEntry

	// named maps token and rule names; literals maps the text of anonymous terminals.
	named    map[string]symbol
	literals map[string]symbol
}

func newSymbolTable() *symbolTable {
	t := &symbolTable{
		named:    map[string]symbol{},
		literals: map[string]symbol{},
	}
	t.terms = append(t.terms, &symbolEntry{
		sym:      symbolEOF,
		name:     "end",
		hidden:   true,
		external: -1,
	})
	t.nonTerms = append(t.nonTerms, &symbolEntry{
		sym:      symbolStart,
		name:     "<start>",
		hidden:   true,
		external: -1,
	})
	return t
}

func (t *symbolTable) registerLiteral(text string) symbol {
	if sym, ok := t.literals[text]; ok {
		return sym
	}
	sym := terminalSymbol(len(t.terms))
	t.terms = append(t.terms, &symbolEntry{
		sym:      sym,
		name:     text,
		literal:  true,
		pattern:  mlspec.EscapePattern(text),
		external: -1,
	})
	t.literals[text] = sym
	return sym
}

func (t *symbolTable) registerToken(name, pattern string) (symbol, error) {
	if _, ok := t.named[name]; ok {
		return symbolNil, semErrDuplicateTerminal
	}
	sym := terminalSymbol(len(t.terms))
	t.terms = append(t.terms, &symbolEntry{
		sym:      sym,
		name:     name,
		hidden:   strings.HasPrefix(name, "_"),
		pattern:  pattern,
		external: -1,
	})
	t.named[name] = sym
	return sym, nil
}

func (t *symbolTable) registerExternal(name string, index int) (symbol, error) {
	if _, ok := t.named[name]; ok {
		return symbolNil, semErrDuplicateTerminal
	}
	sym := terminalSymbol(len(t.terms))
	t.terms = append(t.terms, &symbolEntry{
		sym:      sym,
		name:     name,
		hidden:   strings.HasPrefix(name, "_"),
		external: index,
	})
	t.named[name] = sym
	return sym, nil
}

func (t *symbolTable) registerRule(name string) (symbol, error) {
	if sym, ok := t.named[name]; ok {
		if sym.isTerminal() {
			return symbolNil, semErrDuplicateName
		}
		return sym, nil
	}
	sym := nonTerminalSymbol(len(t.nonTerms))
	t.nonTerms = append(t.nonTerms, &symbolEntry{
		sym:      sym,
		name:     name,
		hidden:   strings.HasPrefix(name, "_"),
		external: -1,
	})
	t.named[name] = sym
	return sym, nil
}

func (t *symbolTable) entry(sym symbol) *symbolEntry {
	if sym.isTerminal() {
		return t.terms[sym.num()]
	}
	return t.nonTerms[sym.num()]
}

func (t *symbolTable) toSymbol(name string) (symbol, bool) {
	sym, ok := t.named[name]
	return sym, ok
}

func (t *symbolTable) toText(sym symbol) string {
	if sym.isNil() {
		return sym.String()
	}
	e := t.entry(sym)
	if e.literal {
		return fmt.Sprintf("'%v'", e.name)
	}
	return e.name
}

// symbolID converts the internal encoding to the table's global symbol ID.
func (t *symbolTable) symbolID(sym symbol) spec.SymbolID {
	if sym.isTerminal() {
		return spec.SymbolID(sym.num())
	}
	return spec.SymbolID(len(t.terms) + sym.num())
}

package lexer

import (
	"bytes"
	"unicode/utf8"

	spec "github.com/etslang/kestrel/spec/grammar"
)

// Token represents a token recognised at a position of a source text.
type Token struct {
	// Symbol is the terminal of the token. It is spec.SymbolIDNil for an error token.
	Symbol spec.SymbolID

	// Start and End delimit the token in bytes. An end-of-input token is empty.
	Start int
	End   int

	// Mode is the lex mode that was requested when the token was recognised.
	Mode spec.LexModeID

	// LookaheadEnd is one past the furthest byte the lexer examined to recognise the token,
	// which may lie beyond End. Reading the end of input counts as examining the byte at
	// len(src).
	LookaheadEnd int

	// ScanBefore and ScanAfter are the external scanner states before and after the token.
	ScanBefore []byte
	ScanAfter  []byte

	// When Error is true, no pattern matched the bytes of the token.
	Error bool

	// When External is true, the external scanner recognised the token.
	External bool
}

// EOF reports whether the token is the end of input.
func (t *Token) EOF() bool {
	return t.Symbol == spec.SymbolIDEOF
}

// ExternalToken is a token claimed by an external scanner.
type ExternalToken struct {
	// Index is the position of the token in the grammar's externals list.
	Index int

	// End is one past the last byte of the token.
	End int

	// Lookahead is one past the furthest byte the scanner examined. Values smaller than End
	// are raised to End. It is honoured even when the scanner declines.
	Lookahead int
}

// ExternalScanner recognises tokens that patterns cannot express, such as tokens depending on
// context kept in a state. The state is immutable; a scanner returns a new slice to change it.
// Only tokens valid in the current lex mode may be returned.
type ExternalScanner interface {
	Scan(src []byte, pos int, valid []bool, state []byte) (ExternalToken, []byte, bool)
}

// ScannerFunc adapts a function to ExternalScanner.
type ScannerFunc func(src []byte, pos int, valid []bool, state []byte) (ExternalToken, []byte, bool)

func (f ScannerFunc) Scan(src []byte, pos int, valid []bool, state []byte) (ExternalToken, []byte, bool) {
	return f(src, pos, valid, state)
}

// Lexer recognises tokens on demand. It keeps no state between calls, so a parser can ask
// for the token at any position again, for instance when it tries recovery strategies.
type Lexer struct {
	dfa     DFA
	spec    *spec.LexicalSpec
	scanner ExternalScanner
}

// NewLexer returns a lexer for a lexical specification. scanner may be nil when the grammar
// has no external terminals.
func NewLexer(lexSpec *spec.LexicalSpec, scanner ExternalScanner) *Lexer {
	return &Lexer{
		dfa:     NewDFA(lexSpec.Maleeni),
		spec:    lexSpec,
		scanner: scanner,
	}
}

// Lex returns the token at pos in a lex mode.
//
// The external scanner is offered the position first when the mode has valid external
// terminals. Otherwise the longest match among the mode's patterns wins, and ties go to the
// terminal declared first. When nothing matches, the lexer retries with every pattern so that
// the parser sees the real token. When that fails too, the bytes up to the next recognisable
// token form an error token.
func (l *Lexer) Lex(src []byte, pos int, mode spec.LexModeID, state []byte) *Token {
	tok := &Token{
		Symbol:       spec.SymbolIDNil,
		Start:        pos,
		End:          pos,
		Mode:         mode,
		LookaheadEnd: pos,
		ScanBefore:   state,
		ScanAfter:    state,
	}

	m := l.spec.Modes[mode]
	if l.scanner != nil && mode != spec.LexModeIDRecovery && hasValid(m.ValidExternals) {
		et, next, ok := l.scanner.Scan(src, pos, m.ValidExternals, state)
		tok.LookaheadEnd = maxInt(tok.LookaheadEnd, et.Lookahead, et.End)
		// An empty external token would let the parser loop without consuming input.
		if ok && et.End > pos && et.End <= len(src) && et.Index >= 0 && et.Index < len(m.ValidExternals) && m.ValidExternals[et.Index] {
			tok.Symbol = l.spec.ExternalTerminals[et.Index]
			tok.End = et.End
			tok.ScanAfter = next
			tok.External = true
			return tok
		}
	}

	if pos >= len(src) {
		tok.Symbol = spec.SymbolIDEOF
		tok.LookaheadEnd = maxInt(tok.LookaheadEnd, len(src)+1)
		return tok
	}

	if m.MaleeniMode.Int() != 0 {
		sym, end, examined, ok := l.longestMatch(src, pos, ModeID(m.MaleeniMode.Int()))
		tok.LookaheadEnd = maxInt(tok.LookaheadEnd, examined)
		if ok {
			tok.Symbol = sym
			tok.End = end
			return tok
		}
	}

	recovery := ModeID(l.spec.Modes[spec.LexModeIDRecovery].MaleeniMode.Int())
	if mode != spec.LexModeIDRecovery {
		sym, end, examined, ok := l.longestMatch(src, pos, recovery)
		tok.LookaheadEnd = maxInt(tok.LookaheadEnd, examined)
		if ok {
			tok.Symbol = sym
			tok.End = end
			return tok
		}
	}

	// Consecutive unrecognisable characters form one error token.
	tok.Error = true
	end := pos
	for end < len(src) {
		_, size := utf8.DecodeRune(src[end:])
		end += size
		tok.LookaheadEnd = maxInt(tok.LookaheadEnd, end)
		if end >= len(src) {
			break
		}
		_, _, examined, ok := l.longestMatch(src, end, recovery)
		tok.LookaheadEnd = maxInt(tok.LookaheadEnd, examined)
		if ok {
			break
		}
	}
	tok.End = end
	return tok
}

// longestMatch runs the DFA of a maleeni mode from pos. It returns the terminal of the longest
// match and one past the furthest examined byte.
func (l *Lexer) longestMatch(src []byte, pos int, mode ModeID) (spec.SymbolID, int, int, bool) {
	state := l.dfa.InitialState(mode)
	sym := spec.SymbolIDNil
	end := pos
	examined := pos
	matched := false
	for p := pos; ; p++ {
		if p >= len(src) {
			examined = len(src) + 1
			break
		}
		examined = p + 1
		next, ok := l.dfa.NextState(mode, state, int(src[p]))
		if !ok {
			break
		}
		state = next
		if modeKind, ok := l.dfa.Accept(mode, state); ok {
			kind := l.dfa.KindID(mode, modeKind)
			sym = l.spec.KindToTerminal[kind]
			end = p + 1
			matched = true
		}
	}
	return sym, end, examined, matched
}

func hasValid(valid []bool) bool {
	for _, v := range valid {
		if v {
			return true
		}
	}
	return false
}

func maxInt(a int, bs ...int) int {
	for _, b := range bs {
		if b > a {
			a = b
		}
	}
	return a
}

// SameState reports whether two scanner states are equal.
func SameState(a, b []byte) bool {
	return bytes.Equal(a, b)
}

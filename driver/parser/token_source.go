package parser

import (
	"github.com/etslang/kestrel/driver/lexer"
	spec "github.com/etslang/kestrel/spec/grammar"
)

const tokenCacheLimit = 4096

type tokenKey struct {
	pos  int
	mode spec.LexModeID
	scan string
}

// tokenSource memoizes the lexer. Versions and recovery candidates ask for the same tokens
// again and again, and the lexer is a pure function of its arguments.
type tokenSource struct {
	lex   *lexer.Lexer
	src   []byte
	cache map[tokenKey]*lexer.Token
}

func newTokenSource(lex *lexer.Lexer, src []byte) *tokenSource {
	return &tokenSource{
		lex:   lex,
		src:   src,
		cache: map[tokenKey]*lexer.Token{},
	}
}

func (t *tokenSource) next(pos int, mode spec.LexModeID, scan []byte) *lexer.Token {
	key := tokenKey{
		pos:  pos,
		mode: mode,
		scan: string(scan),
	}
	if tok, ok := t.cache[key]; ok {
		return tok
	}
	tok := t.lex.Lex(t.src, pos, mode, scan)
	if len(t.cache) >= tokenCacheLimit {
		clear(t.cache)
	}
	t.cache[key] = tok
	return tok
}

package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/etslang/kestrel/grammar"
	"github.com/etslang/kestrel/language"
	"github.com/etslang/kestrel/tree"
	"github.com/stretchr/testify/require"
)

const stmtGrammar = `
name: stmt
extras: [_white_space]
precedence:
  - assoc: left
    symbols: ["'*'"]
  - assoc: left
    symbols: ["'+'"]
tokens:
  - name: identifier
    pattern: "[a-z]+"
  - name: number
    pattern: "[0-9]+"
  - name: _white_space
    pattern: "[ \t\n]+"
rules:
  - name: program
    alternatives: ["_statements"]
  - name: _statements
    alternatives: ["statement", "_statements statement"]
  - name: statement
    alternatives: ["_expression ';'"]
  - name: _expression
    alternatives: ["identifier", "number", "binary_expression", "parenthesized_expression"]
  - name: binary_expression
    alternatives:
      - "left:_expression operator:'+' right:_expression"
      - "left:_expression operator:'*' right:_expression"
  - name: parenthesized_expression
    alternatives: ["'(' _expression ')'"]
`

const exprGrammar = `
name: expr
extras: [_white_space]
precedence:
  - assoc: left
    symbols: ["'+'"]
tokens:
  - name: identifier
    pattern: "[a-z]+"
  - name: _white_space
    pattern: "[ ]+"
rules:
  - name: program
    alternatives: ["_expression"]
  - name: _expression
    alternatives: ["identifier", "binary_expression"]
  - name: binary_expression
    alternatives: ["left:_expression '+' right:_expression"]
`

func newTestLanguage(t testing.TB, src string) *language.Language {
	t.Helper()

	def, err := grammar.ParseDefinition(strings.NewReader(src))
	require.NoError(t, err)
	b := grammar.GrammarBuilder{
		Definition: def,
	}
	gram, err := b.Build()
	require.NoError(t, err)
	cg, _, err := grammar.Compile(gram)
	require.NoError(t, err)
	lang, err := language.New(cg, nil)
	require.NoError(t, err)
	return lang
}

func mustParse(t testing.TB, p *Parser, src string) *tree.Tree {
	t.Helper()

	tr, err := p.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	return tr
}

// leafSpans returns the offsets of the leaves of a subtree in text order.
func leafSpans(sub *tree.Subtree) [][2]int {
	var spans [][2]int
	var walk func(s *tree.Subtree, start int)
	walk = func(s *tree.Subtree, start int) {
		if s.ChildCount() == 0 {
			spans = append(spans, [2]int{start, start + s.Size()})
			return
		}
		pos := start
		for _, c := range s.Children() {
			walk(c, pos)
			pos += c.Size()
		}
	}
	walk(sub, 0)
	return spans
}

// requireCovers checks that the leaves of a tree tile its text without gaps or overlaps.
func requireCovers(t testing.TB, tr *tree.Tree, src string) {
	t.Helper()

	require.Equal(t, len(src), tr.Len())
	pos := 0
	for _, span := range leafSpans(tr.Root()) {
		require.Equal(t, pos, span[0], "the leaves leave a gap or overlap at %v", pos)
		pos = span[1]
	}
	require.Equal(t, len(src), pos)
}

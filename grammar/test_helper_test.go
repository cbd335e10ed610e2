package grammar

import (
	"strings"
	"testing"

	spec "github.com/etslang/kestrel/spec/grammar"
	"github.com/stretchr/testify/require"
)

func buildTestGrammar(t *testing.T, src string) *Grammar {
	t.Helper()

	def, err := ParseDefinition(strings.NewReader(src))
	require.NoError(t, err)
	b := GrammarBuilder{
		Definition: def,
	}
	gram, err := b.Build()
	require.NoError(t, err)
	return gram
}

func compileTestGrammar(t *testing.T, src string) (*Grammar, *spec.CompiledGrammar, *Report) {
	t.Helper()

	gram := buildTestGrammar(t, src)
	cg, report, err := Compile(gram, EnableReporting())
	require.NoError(t, err)
	require.NoError(t, cg.Validate())
	return gram, cg, report
}

func findSymbolID(t *testing.T, cg *spec.CompiledGrammar, name string) spec.SymbolID {
	t.Helper()

	for i, s := range cg.Syntactic.Symbols {
		if s.Name == name {
			return spec.SymbolID(i)
		}
	}
	t.Fatalf("symbol was not found: %v", name)
	return spec.SymbolIDNil
}

const arithGrammar = `
name: arith
extras: [white_space]
precedence:
  - assoc: left
    symbols: ["'*'", "'/'"]
  - assoc: left
    symbols: ["'+'", "'-'"]
tokens:
  - name: id
    pattern: "[A-Za-z0-9_]+"
  - name: white_space
    pattern: "[ \t\n]+"
rules:
  - name: expr
    alternatives:
      - "left:expr operator:'+' right:expr"
      - "left:expr operator:'-' right:expr"
      - "left:expr operator:'*' right:expr"
      - "left:expr operator:'/' right:expr"
      - "'(' expr ')'"
      - "id"
`

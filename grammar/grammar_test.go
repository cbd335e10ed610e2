package grammar

import (
	"errors"
	"strings"
	"testing"

	verr "github.com/etslang/kestrel/error"
	spec "github.com/etslang/kestrel/spec/grammar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrammarBuilder_SemanticErrors(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		cause   error
		row     int
	}{
		{
			caption: "a grammar needs a name",
			src: `
rules:
  - name: s
    alternatives: ["'a'"]
`,
			cause: semErrNoName,
		},
		{
			caption: "a grammar needs at least one rule",
			src: `
name: test
tokens:
  - name: a
    pattern: a
`,
			cause: semErrNoProduction,
		},
		{
			caption: "an alternative cannot refer to an undefined symbol",
			src: `
name: test
rules:
  - name: s
    alternatives:
      - "foo"
`,
			cause: semErrUndefinedSym,
			row:   6,
		},
		{
			caption: "a token cannot be defined twice",
			src: `
name: test
tokens:
  - name: a
    pattern: a
  - name: a
    pattern: b
rules:
  - name: s
    alternatives: [a]
`,
			cause: semErrDuplicateTerminal,
			row:   6,
		},
		{
			caption: "a rule and a token cannot share a name",
			src: `
name: test
tokens:
  - name: a
    pattern: a
rules:
  - name: a
    alternatives: ["'b'"]
`,
			cause: semErrDuplicateName,
			row:   7,
		},
		{
			caption: "every rule must be reachable from the start rule",
			src: `
name: test
rules:
  - name: s
    alternatives: ["'a'"]
  - name: t
    alternatives: ["'b'"]
`,
			cause: semErrUnusedRule,
			row:   6,
		},
		{
			caption: "a literal must be closed",
			src: `
name: test
rules:
  - name: s
    alternatives:
      - "'a"
`,
			cause: semErrInvalidAlternative,
			row:   6,
		},
		{
			caption: "an extra cannot appear in a rule",
			src: `
name: test
extras: [ws]
tokens:
  - name: ws
    pattern: " +"
rules:
  - name: s
    alternatives:
      - "ws 'a'"
`,
			cause: semErrExtraInRule,
			row:   10,
		},
		{
			caption: "an extra must be a terminal",
			src: `
name: test
extras: [s]
rules:
  - name: s
    alternatives: ["'a'"]
`,
			cause: semErrExtraNotTerminal,
		},
		{
			caption: "%prec needs a terminal that has precedence",
			src: `
name: test
rules:
  - name: s
    alternatives:
      - "'a' %prec 'a'"
`,
			cause: semErrUndefinedPrec,
			row:   6,
		},
		{
			caption: "associativity must be left, right, or none",
			src: `
name: test
precedence:
  - assoc: up
    symbols: ["'a'"]
rules:
  - name: s
    alternatives: ["'a'"]
`,
			cause: semErrInvalidAssoc,
			row:   4,
		},
		{
			caption: "a terminal cannot have precedence twice",
			src: `
name: test
precedence:
  - assoc: left
    symbols: ["'a'"]
  - assoc: right
    symbols: ["'a'"]
rules:
  - name: s
    alternatives: ["'a'"]
`,
			cause: semErrDuplicateAssoc,
			row:   6,
		},
		{
			caption: "a conflict group can contain only rules",
			src: `
name: test
conflicts: [[s, a]]
tokens:
  - name: a
    pattern: a
rules:
  - name: s
    alternatives: [a]
`,
			cause: semErrConflictNotRule,
		},
		{
			caption: "a production cannot be defined twice",
			src: `
name: test
rules:
  - name: s
    alternatives:
      - "'a'"
      - "'a'"
`,
			cause: semErrDuplicateProduction,
			row:   7,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			def, err := ParseDefinition(strings.NewReader(tt.src))
			require.NoError(t, err)
			b := GrammarBuilder{
				Definition: def,
			}
			_, err = b.Build()
			require.Error(t, err)

			var specErrs verr.SpecErrors
			require.True(t, errors.As(err, &specErrs), "unexpected error type: %T", err)
			require.NotEmpty(t, specErrs)
			assert.ErrorIs(t, specErrs[0], tt.cause)
			if tt.row != 0 {
				assert.Equal(t, tt.row, specErrs[0].Row)
			}
		})
	}
}

func TestCompile_Symbols(t *testing.T) {
	_, cg, _ := compileTestGrammar(t, `
name: test
extras: [_ws]
externals: [heredoc]
tokens:
  - name: identifier
    pattern: "[a-z]+"
  - name: _ws
    pattern: " +"
rules:
  - name: program
    alternatives: ["_statement", "program _statement"]
  - name: _statement
    alternatives: ["'let' name:identifier ';'", "heredoc"]
`)
	syn := cg.Syntactic

	// end, 'let', ';', identifier, _ws, heredoc
	require.Equal(t, 6, syn.TerminalCount)
	assert.Equal(t, "end", syn.Symbols[0].Name)
	assert.False(t, syn.Symbols[0].Visible)
	assert.Equal(t, "let", syn.Symbols[1].Name)
	assert.False(t, syn.Symbols[1].Named)
	assert.Equal(t, ";", syn.Symbols[2].Name)
	assert.Equal(t, "identifier", syn.Symbols[3].Name)
	assert.True(t, syn.Symbols[3].Named)
	assert.True(t, syn.Symbols[4].Extra)
	assert.False(t, syn.Symbols[4].Visible)
	assert.True(t, syn.Symbols[5].External)
	assert.Equal(t, 0, syn.Symbols[5].ExternalIndex)

	// <start>, program, _statement
	require.Equal(t, 3, syn.NonTerminalCount)
	assert.Equal(t, spec.SymbolKindAuxiliary, syn.Symbols[6].Kind)
	assert.Equal(t, "program", syn.Symbols[7].Name)
	assert.Equal(t, spec.SymbolID(7), syn.StartSymbol)
	assert.Equal(t, spec.SymbolKindAuxiliary, syn.Symbols[8].Kind)
	assert.False(t, syn.Symbols[8].Visible)

	assert.Equal(t, spec.SymbolID(9), syn.ErrorSymbol)
	assert.Equal(t, "ERROR", syn.Symbols[9].Name)

	assert.Equal(t, []string{"", "name"}, syn.FieldNames)
	var withField *spec.Production
	for _, p := range syn.Productions[1:] {
		if p.RHSLen == 3 {
			withField = p
		}
	}
	require.NotNil(t, withField)
	assert.Equal(t, []spec.FieldID{spec.FieldIDNil, 1, spec.FieldIDNil}, withField.Fields)

	assert.Equal(t, []spec.SymbolID{5}, cg.Lexical.ExternalTerminals)
}

func TestCompile_StartProduction(t *testing.T) {
	_, cg, _ := compileTestGrammar(t, arithGrammar)
	syn := cg.Syntactic

	start := syn.Productions[spec.ProductionIDStart]
	require.NotNil(t, start)
	assert.Equal(t, spec.SymbolID(syn.TerminalCount), start.LHS)
	assert.Equal(t, 1, start.RHSLen)

	// The initial state accepts after the start symbol is reduced and the end of input follows.
	next := syn.GoTo.Lookup(syn.InitialState.Int(), syn.StartSymbol.Int()-syn.TerminalCount)
	require.NotZero(t, next)
	acts := syn.ActionSets[syn.Action.Lookup(next-1, spec.SymbolIDEOF.Int())]
	require.Len(t, acts, 1)
	assert.True(t, acts[0].IsReduce())
	assert.Equal(t, spec.ProductionIDStart, acts[0].Production())
}

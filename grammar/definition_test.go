package grammar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlternative(t *testing.T) {
	tests := []struct {
		caption string
		text    string
		alt     *parsedAlt
		err     bool
	}{
		{
			caption: "an empty string is the empty alternative",
			text:    "",
			alt:     &parsedAlt{},
		},
		{
			caption: "names and literals",
			text:    "expr '+' term",
			alt: &parsedAlt{
				items: []*altItem{
					{name: "expr"},
					{name: "+", literal: true},
					{name: "term"},
				},
			},
		},
		{
			caption: "fields can label names and literals",
			text:    "left:expr operator:'+' right:term",
			alt: &parsedAlt{
				items: []*altItem{
					{field: "left", name: "expr"},
					{field: "operator", name: "+", literal: true},
					{field: "right", name: "term"},
				},
			},
		},
		{
			caption: "a literal can contain escaped quotes and spaces",
			text:    `'it\'s' ' '`,
			alt: &parsedAlt{
				items: []*altItem{
					{name: "it's", literal: true},
					{name: " ", literal: true},
				},
			},
		},
		{
			caption: "%prec takes a literal",
			text:    "'-' expr %prec '*'",
			alt: &parsedAlt{
				items: []*altItem{
					{name: "-", literal: true},
					{name: "expr"},
				},
				prec:        "*",
				precLiteral: true,
			},
		},
		{
			caption: "%prec takes a name",
			text:    "'-' expr %prec unary",
			alt: &parsedAlt{
				items: []*altItem{
					{name: "-", literal: true},
					{name: "expr"},
				},
				prec: "unary",
			},
		},
		{
			caption: "%prec must be the last element",
			text:    "expr %prec '*' term",
			err:     true,
		},
		{
			caption: "an unknown directive is an error",
			text:    "expr %left",
			err:     true,
		},
		{
			caption: "a literal must not be empty",
			text:    "''",
			err:     true,
		},
		{
			caption: "a name cannot contain symbols",
			text:    "foo-bar",
			err:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			alt, err := parseAlternative(tt.text)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.alt, alt)
		})
	}
}

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition(strings.NewReader(arithGrammar))
	require.NoError(t, err)

	assert.Equal(t, "arith", def.Name)
	assert.Equal(t, []string{"white_space"}, def.Extras)
	require.Len(t, def.Precedence, 2)
	assert.Equal(t, "left", def.Precedence[0].Assoc)
	assert.Equal(t, []string{"'*'", "'/'"}, def.Precedence[0].Symbols)
	require.Len(t, def.Tokens, 2)
	assert.Equal(t, "id", def.Tokens[0].Name)
	assert.Equal(t, 10, def.Tokens[0].Line)
	require.Len(t, def.Rules, 1)
	require.Len(t, def.Rules[0].Alternatives, 6)
	assert.Equal(t, "id", def.Rules[0].Alternatives[5].Text)
	assert.Equal(t, 22, def.Rules[0].Alternatives[5].Line)

	_, err = ParseDefinition(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ParseDefinition(strings.NewReader("rules:\n  - name: s\n    alternatives:\n      - [a]\n"))
	assert.Error(t, err)
}

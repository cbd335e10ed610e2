package tester

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etslang/kestrel/grammar"
	"github.com/etslang/kestrel/language"
	tspec "github.com/etslang/kestrel/spec/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assignGrammar = `
name: assign
extras: [_white_space]
tokens:
  - name: identifier
    pattern: "[a-z]+"
  - name: _white_space
    pattern: "[ \n]+"
rules:
  - name: program
    alternatives: ["_items"]
  - name: _items
    alternatives: ["item", "_items item"]
  - name: item
    alternatives: ["key:identifier '=' value:identifier ';'"]
`

func newLanguage(t *testing.T) *language.Language {
	t.Helper()

	def, err := grammar.ParseDefinition(strings.NewReader(assignGrammar))
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

func TestTester_Run(t *testing.T) {
	tests := []struct {
		caption string
		testSrc string
		error   bool
	}{
		{
			caption: "a matching tree",
			testSrc: `
Test
---
a = b;
c = d;
---
(program
    (item key: (identifier) value: (identifier))
    (item key: (identifier) value: (identifier)))
`,
		},
		{
			caption: "wildcards",
			testSrc: `
Test
---
a = b;
---
(program (_ key: (_) value: (identifier)))
`,
		},
		{
			caption: "too few children",
			testSrc: `
Test
---
a = b;
---
(program)
`,
			error: true,
		},
		{
			caption: "an unexpected kind",
			testSrc: `
Test
---
a = b;
---
(program (item key: (identifier) value: (number)))
`,
			error: true,
		},
		{
			caption: "an unexpected field",
			testSrc: `
Test
---
a = b;
---
(program (item left: (identifier) value: (identifier)))
`,
			error: true,
		},
		{
			caption: "a missing field",
			testSrc: `
Test
---
a = b;
---
(program (item (identifier) (identifier)))
`,
			error: true,
		},
	}
	lang := newLanguage(t)
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			c, err := tspec.ParseTestCase(strings.NewReader(tt.testSrc))
			require.NoError(t, err)
			tester := &Tester{
				Language: lang,
				Cases: []*TestCaseWithMetadata{
					{
						TestCase: c,
					},
				},
			}
			rs := tester.Run(context.Background())
			require.Len(t, rs, 1)
			if tt.error {
				assert.Error(t, rs[0].Error)
				assert.NotEmpty(t, rs[0].Diffs)
				assert.True(t, strings.HasPrefix(rs[0].String(), "Failed"))
				return
			}
			assert.NoError(t, rs[0].Error)
			assert.True(t, strings.HasPrefix(rs[0].String(), "Passed"))
		})
	}
}

func TestTester_Run_BrokenCase(t *testing.T) {
	broken := errors.New("unreadable")
	tester := &Tester{
		Language: newLanguage(t),
		Cases: []*TestCaseWithMetadata{
			{
				FilePath: "broken.txt",
				Error:    broken,
			},
		},
	}
	rs := tester.Run(context.Background())
	require.Len(t, rs, 1)
	assert.True(t, errors.Is(rs[0].Error, broken))
	assert.Empty(t, rs[0].Diffs)
	assert.Equal(t, "Failed broken.txt:\n    unreadable", rs[0].String())
}

func TestListTestCases(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.txt"), []byte("ok\n---\na = b;\n---\n(program (item))\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "bad.txt"), []byte("bad\n---\na = b;\n"), 0o644))

	cs := ListTestCases(dir)
	require.Len(t, cs, 2)
	assert.Equal(t, filepath.Join(dir, "ok.txt"), cs[0].FilePath)
	assert.NoError(t, cs[0].Error)
	assert.Equal(t, "ok", cs[0].TestCase.Description)
	assert.Equal(t, filepath.Join(dir, "sub", "bad.txt"), cs[1].FilePath)
	assert.Error(t, cs[1].Error)

	cs = ListTestCases(filepath.Join(dir, "none"))
	require.Len(t, cs, 1)
	assert.Error(t, cs[0].Error)
}

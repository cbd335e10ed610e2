package ets

import (
	"context"
	"strings"
	"testing"

	"github.com/etslang/kestrel/driver/parser"
	"github.com/etslang/kestrel/language"
	"github.com/etslang/kestrel/tester"
	"github.com/etslang/kestrel/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const component = `@Entry
@Component
struct Index {
  @State message: string = 'Hello'

  build() {
    Column() {
      Text(this.message).fontSize(20)
    }
  }
}
`

const counter = `import { Base } from './base';

class Counter extends Base {
  count: number = 0;
  increment(step: number): void {
    if (step > 0) {
      this.count += step;
    } else {
      return;
    }
    for (let i = 0; i < step; i++) {
      total = total + i;
    }
    while (false) {}
  }
}
`

func parse(t *testing.T, src string) *tree.Tree {
	t.Helper()

	tr, err := parser.Parse(context.Background(), Language(), []byte(src))
	require.NoError(t, err)
	require.Equal(t, len(src), tr.Len())
	return tr
}

func TestLanguage(t *testing.T) {
	l, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Name, l.Name())
	assert.Same(t, l, Language())

	registered, err := language.Get(Name)
	require.NoError(t, err)
	assert.Same(t, l, registered)
	assert.Contains(t, language.Names(), Name)

	assert.Equal(t, definition, Definition())
}

func TestParse(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		sexp    string
	}{
		{
			caption: "an empty file",
			src:     "",
			sexp:    "(source_file)",
		},
		{
			caption: "a typed declaration",
			src:     "let x: number = 1;",
			sexp:    "(source_file (lexical_declaration (variable_declarator name: (identifier) type: (type_annotation (predefined_type)) value: (number))))",
		},
		{
			caption: "named imports",
			src:     "import { a, b as c } from './m';",
			sexp:    "(source_file (import_statement (import_clause (named_imports (import_specifier name: (identifier)) (import_specifier name: (identifier) alias: (identifier)))) source: (string)))",
		},
		{
			caption: "a template string with a substitution",
			src:     "let s = `a${b}c`;",
			sexp:    "(source_file (lexical_declaration (variable_declarator name: (identifier) value: (template_string (template_chars) (template_substitution (identifier)) (template_chars)))))",
		},
		{
			caption: "nested template strings",
			src:     "`${`x`}`;",
			sexp:    "(source_file (expression_statement (template_string (template_substitution (template_string (template_chars))))))",
		},
		{
			caption: "parameters in parentheses start an arrow function",
			src:     "f((a) => a + 1);",
			sexp:    "(source_file (expression_statement (call_expression function: (identifier) arguments: (arguments (arrow_function parameters: (formal_parameters (required_parameter pattern: (identifier))) body: (binary_expression left: (identifier) right: (number)))))))",
		},
		{
			caption: "an expression in parentheses stays an expression",
			src:     "(a) + 1;",
			sexp:    "(source_file (expression_statement (binary_expression left: (parenthesized_expression (identifier)) right: (number))))",
		},
		{
			caption: "a keyword is an identifier where no keyword is expected",
			src:     "a.string;",
			sexp:    "(source_file (expression_statement (member_expression object: (identifier) property: (identifier))))",
		},
		{
			caption: "comments are extras",
			src:     "// greeting\nx; /* done */",
			sexp:    "(source_file (comment) (expression_statement (identifier)) (comment))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			tr := parse(t, tt.src)
			assert.Equal(t, tt.sexp, tr.String())
			assert.False(t, tr.RootNode().HasError())
		})
	}
}

func TestParse_Programs(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		first   string
		name    string
	}{
		{
			caption: "a UI component",
			src:     component,
			first:   "struct_declaration",
			name:    "Index",
		},
		{
			caption: "a class with statements",
			src:     counter,
			first:   "import_statement",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			tr := parse(t, tt.src)
			root := tr.RootNode()
			require.False(t, root.HasError(), "%v", tr)

			first, ok := root.NamedChild(0)
			require.True(t, ok)
			assert.Equal(t, tt.first, first.Type())
			if tt.name != "" {
				name, ok := first.ChildByFieldName("name")
				require.True(t, ok)
				assert.Equal(t, tt.name, name.Content([]byte(tt.src)))
			}
		})
	}
}

func TestParse_Component(t *testing.T) {
	tr := parse(t, component)
	src := []byte(component)

	st, ok := tr.RootNode().NamedChild(0)
	require.True(t, ok)
	var decorators []string
	for _, c := range st.NamedChildren() {
		if c.Type() != "decorator" {
			continue
		}
		name, ok := c.ChildByFieldName("name")
		require.True(t, ok)
		decorators = append(decorators, name.Content(src))
	}
	assert.Equal(t, []string{"Entry", "Component"}, decorators)

	found := false
	tree.Walk(tr.RootNode(), func(n tree.Node) bool {
		if n.Type() == "component_expression" {
			fn, ok := n.ChildByFieldName("function")
			require.True(t, ok)
			assert.Equal(t, "Column", fn.Content(src))
			found = true
		}
		return !found
	})
	assert.True(t, found)
}

func TestParse_Recovery(t *testing.T) {
	src := "let a = 1;\nlet b = ;\nlet c = 3;"
	tr := parse(t, src)
	root := tr.RootNode()
	require.True(t, root.HasError())

	decls := root.NamedChildren()
	require.Len(t, decls, 3)
	assert.False(t, decls[0].HasError())
	assert.True(t, decls[1].HasError())
	assert.False(t, decls[2].HasError())
}

func TestReparse(t *testing.T) {
	p, err := parser.NewParser(Language())
	require.NoError(t, err)
	ctx := context.Background()

	old, err := p.Parse(ctx, []byte(component))
	require.NoError(t, err)

	at := strings.Index(component, "'Hello'")
	newSrc := component[:at] + "'Hi there'" + component[at+len("'Hello'"):]
	e := tree.Edit{
		StartByte:  at,
		OldEndByte: at + len("'Hello'"),
		NewEndByte: at + len("'Hi there'"),
	}
	got, err := p.Reparse(ctx, old, e, []byte(newSrc))
	require.NoError(t, err)

	fresh, err := p.Parse(ctx, []byte(newSrc))
	require.NoError(t, err)
	assert.True(t, tree.Equal(fresh.Root(), got.Root()), "want %v, got %v", fresh, got)
	assert.Greater(t, got.Stats().Reused, 0)
	assert.False(t, got.RootNode().HasError())
}

func TestReparse_Template(t *testing.T) {
	p, err := parser.NewParser(Language())
	require.NoError(t, err)
	ctx := context.Background()

	oldSrc := "let a = 1;\nlet s = `x${a}y`;\nlet b = 2;"
	old, err := p.Parse(ctx, []byte(oldSrc))
	require.NoError(t, err)

	// Removing the closing backquote turns the rest of the text into template characters.
	at := strings.LastIndex(oldSrc, "`")
	newSrc := oldSrc[:at] + oldSrc[at+1:]
	got, err := p.Reparse(ctx, old, tree.Edit{StartByte: at, OldEndByte: at + 1, NewEndByte: at}, []byte(newSrc))
	require.NoError(t, err)

	fresh, err := p.Parse(ctx, []byte(newSrc))
	require.NoError(t, err)
	assert.True(t, tree.Equal(fresh.Root(), got.Root()), "want %v, got %v", fresh, got)
	assert.True(t, got.RootNode().HasError())
}

func TestCorpus(t *testing.T) {
	cs := tester.ListTestCases("testdata/corpus")
	require.NotEmpty(t, cs)
	for _, c := range cs {
		require.NoError(t, c.Error, c.FilePath)
	}
	tr := &tester.Tester{
		Language: Language(),
		Cases:    cs,
	}
	for _, r := range tr.Run(context.Background()) {
		assert.NoError(t, r.Error, "%v", r)
	}
}

package tree_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/etslang/kestrel/driver/parser"
	"github.com/etslang/kestrel/grammar"
	"github.com/etslang/kestrel/language"
	"github.com/etslang/kestrel/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listGrammar = `
name: list
extras: [_white_space]
tokens:
  - name: identifier
    pattern: "[a-z]+"
  - name: number
    pattern: "[0-9]+"
  - name: _white_space
    pattern: "[ \n]+"
rules:
  - name: program
    alternatives: ["_items"]
  - name: _items
    alternatives: ["item", "_items item"]
  - name: item
    alternatives: ["key:identifier '=' value:_value ';'"]
  - name: _value
    alternatives: ["identifier", "number"]
`

func parse(t *testing.T, src string) *tree.Tree {
	t.Helper()

	def, err := grammar.ParseDefinition(strings.NewReader(listGrammar))
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

	tr, err := parser.Parse(context.Background(), lang, []byte(src))
	require.NoError(t, err)
	return tr
}

func TestNode_Children(t *testing.T) {
	src := "a = 1;\nbb = c;"
	tr := parse(t, src)
	root := tr.RootNode()

	assert.Equal(t, "(program (item key: (identifier) value: (number)) (item key: (identifier) value: (identifier)))", tr.String())
	assert.Equal(t, "program", root.Type())
	assert.Equal(t, 0, root.StartByte())
	assert.Equal(t, len(src), root.EndByte())
	assert.Equal(t, 2, root.ChildCount())
	assert.False(t, root.HasError())

	first, ok := root.Child(0)
	require.True(t, ok)
	assert.Equal(t, "a = 1;", first.Content([]byte(src)))
	assert.Equal(t, 4, first.ChildCount())
	assert.Equal(t, 2, first.NamedChildCount())
	assert.Equal(t, "key", first.FieldNameForChild(0))
	assert.Equal(t, "", first.FieldNameForChild(1))
	assert.Equal(t, "value", first.FieldNameForChild(2))
	assert.Equal(t, "", first.FieldNameForChild(4))

	value, ok := first.ChildByFieldName("value")
	require.True(t, ok)
	assert.Equal(t, "number", value.Type())
	assert.Equal(t, "1", value.Content([]byte(src)))
	assert.Len(t, first.ChildrenByFieldName("key"), 1)
	_, ok = first.ChildByFieldName("unknown")
	assert.False(t, ok)

	eq, ok := first.Child(1)
	require.True(t, ok)
	assert.Equal(t, "=", eq.Type())
	assert.False(t, eq.IsNamed())
	_, ok = first.NamedChild(2)
	assert.False(t, ok)
}

func TestNode_Navigation(t *testing.T) {
	src := "a = 1;\nbb = c;"
	tr := parse(t, src)
	root := tr.RootNode()

	first, ok := root.Child(0)
	require.True(t, ok)
	parent, ok := first.Parent()
	require.True(t, ok)
	assert.True(t, parent.Equal(root))
	_, ok = root.Parent()
	assert.False(t, ok)

	second, ok := first.NextSibling()
	require.True(t, ok)
	assert.Equal(t, 7, second.StartByte())
	prev, ok := second.PrevSibling()
	require.True(t, ok)
	assert.True(t, prev.Equal(first))
	_, ok = second.NextSibling()
	assert.False(t, ok)
	_, ok = first.PrevSibling()
	assert.False(t, ok)

	n, ok := tr.NodeAt(8)
	require.True(t, ok)
	assert.Equal(t, "identifier", n.Type())
	assert.Equal(t, "bb", n.Content([]byte(src)))

	// White spaces are hidden, so the root is the smallest node covering them.
	n, ok = tr.NodeAt(6)
	require.True(t, ok)
	assert.True(t, n.Equal(root))

	n, ok = tr.DescendantForRange(2, 5)
	require.True(t, ok)
	assert.True(t, n.Equal(first))

	_, ok = tr.NodeAt(len(src))
	assert.False(t, ok)
	_, ok = tr.DescendantForRange(3, 2)
	assert.False(t, ok)
}

func TestNode_SiblingWalk(t *testing.T) {
	tests := []struct {
		caption string
		items   int
	}{
		{
			caption: "a single item has no siblings",
			items:   1,
		},
		{
			caption: "a long list is walked in both directions",
			items:   500,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			tr := parse(t, strings.Repeat("a = 1;\n", tt.items))
			root := tr.RootNode()
			children := root.Children()
			require.Len(t, children, tt.items)

			// Repeated calls share the collected children.
			assert.Same(t, &children[0], &root.Children()[0])

			n := children[0]
			for i := 1; i < tt.items; i++ {
				next, ok := n.NextSibling()
				require.True(t, ok)
				require.True(t, next.Equal(children[i]))
				n = next
			}
			_, ok := n.NextSibling()
			assert.False(t, ok)

			for i := tt.items - 2; i >= 0; i-- {
				prev, ok := n.PrevSibling()
				require.True(t, ok)
				require.True(t, prev.Equal(children[i]))
				n = prev
			}
			_, ok = n.PrevSibling()
			assert.False(t, ok)
		})
	}
}

func TestCursor(t *testing.T) {
	tr := parse(t, "a = 1;\nbb = c;")

	var types []string
	var depths []int
	c := tree.NewCursor(tr.RootNode())
	for {
		types = append(types, c.Node().Type())
		depths = append(depths, c.Depth())
		if !c.Next() {
			break
		}
	}
	assert.Equal(t, []string{"program", "item", "identifier", "=", "number", ";", "item", "identifier", "=", "identifier", ";"}, types)
	assert.Equal(t, []int{0, 1, 2, 2, 2, 2, 1, 2, 2, 2, 2}, depths)

	leaves := tree.Leaves(tr.RootNode())
	assert.Len(t, leaves, 8)

	c = tree.NewCursor(tr.RootNode())
	assert.False(t, c.GotoParent())
	assert.False(t, c.GotoNextSibling())
	require.True(t, c.GotoFirstChild())
	require.True(t, c.GotoNextSibling())
	assert.Equal(t, 7, c.Node().StartByte())
	assert.False(t, c.GotoNextSibling())
	require.True(t, c.GotoParent())
	assert.Equal(t, "program", c.Node().Type())
}

func TestTree_Print(t *testing.T) {
	tr := parse(t, "a = 1;")

	var b bytes.Buffer
	tr.Print(&b)
	assert.Equal(t, `program
└─ item
   ├─ key: identifier "a"
   ├─ "="
   ├─ value: number "1"
   └─ ";"
`, b.String())

	b.Reset()
	tree.PrintNode(&b, tr.RootNode(), nil, func(n tree.Node, label string) string {
		return strings.ToUpper(label)
	})
	assert.True(t, strings.HasPrefix(b.String(), "PROGRAM\n└─ ITEM\n"))
}

func TestTree_EditedNodes(t *testing.T) {
	src := "a = 1;\nbb = c;"
	tr := parse(t, src)

	edited, err := tr.Edit(tree.Edit{StartByte: 11, OldEndByte: 12, NewEndByte: 14})
	require.NoError(t, err)
	assert.Equal(t, len(src)+2, edited.Len())

	first, ok := edited.RootNode().Child(0)
	require.True(t, ok)
	assert.False(t, first.HasChanges())
	second, ok := edited.RootNode().Child(1)
	require.True(t, ok)
	assert.True(t, second.HasChanges())
	assert.Equal(t, 16, second.EndByte())

	scan, ok := tr.ScannerStateAt(8)
	assert.True(t, ok)
	assert.Nil(t, scan)
	_, ok = tr.ScannerStateAt(len(src))
	assert.False(t, ok)
}

package tree

import (
	"fmt"
	"io"
	"strings"
)

// String renders the named nodes as an S-expression, labelling children with their fields:
//
//	(program (binary_expression left: (identifier) right: (identifier)))
func (n Node) String() string {
	if n.IsNull() {
		return "()"
	}
	var b strings.Builder
	writeSExp(&b, n)
	return b.String()
}

func writeSExp(b *strings.Builder, n Node) {
	b.WriteString("(")
	if n.IsMissing() {
		b.WriteString("MISSING ")
		if n.tree.lang.IsNamed(n.sub.symbol) {
			b.WriteString(n.Type())
		} else {
			fmt.Fprintf(b, "%q", n.Type())
		}
	} else {
		b.WriteString(n.Type())
	}
	for _, c := range n.Children() {
		if !c.IsNamed() && !c.IsMissing() {
			continue
		}
		b.WriteString(" ")
		if f := c.FieldName(); f != "" {
			b.WriteString(f)
			b.WriteString(": ")
		}
		writeSExp(b, c)
	}
	b.WriteString(")")
}

// String renders the root as an S-expression.
func (t *Tree) String() string {
	return t.RootNode().String()
}

// Print writes every visible node as an indented tree. Leaves show their text when the tree
// has a source.
func (t *Tree) Print(w io.Writer) {
	PrintNode(w, t.RootNode(), t.source, nil)
}

// Decorator styles the label of a node. PrintNode uses the label as is when it is nil.
type Decorator func(n Node, label string) string

// PrintNode writes a node and its descendants as an indented tree.
func PrintNode(w io.Writer, n Node, src []byte, decorate Decorator) {
	if n.IsNull() {
		return
	}
	printTree(w, n, src, decorate, "", "")
}

func printTree(w io.Writer, n Node, src []byte, decorate Decorator, ruledLine string, childRuledLinePrefix string) {
	label := nodeLabel(n, src)
	if decorate != nil {
		label = decorate(n, label)
	}
	fmt.Fprintf(w, "%v%v\n", ruledLine, label)

	children := n.Children()
	num := len(children)
	for i, child := range children {
		var line string
		if num > 1 && i < num-1 {
			line = "├─ "
		} else {
			line = "└─ "
		}

		var prefix string
		if i >= num-1 {
			prefix = "   "
		} else {
			prefix = "│  "
		}

		printTree(w, child, src, decorate, childRuledLinePrefix+line, childRuledLinePrefix+prefix)
	}
}

func nodeLabel(n Node, src []byte) string {
	var label string
	switch {
	case n.IsMissing():
		label = "MISSING " + n.Type()
	case n.sub.IsLexError():
		label = "!UNEXPECTED"
	case n.IsError():
		label = "!" + n.Type()
	case n.IsNamed():
		label = n.Type()
	default:
		label = fmt.Sprintf("%q", n.Type())
	}
	if f := n.FieldName(); f != "" {
		label = f + ": " + label
	}
	if !n.IsNamed() && !n.sub.IsLexError() {
		return label
	}
	if n.sub.IsLeaf() && n.EndByte() <= len(src) && n.EndByte() > n.StartByte() {
		label = fmt.Sprintf("%v %#v", label, n.Content(src))
	}
	return label
}

package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/etslang/kestrel/tree"
)

// syntaxError is an ERROR or MISSING node located in the text.
type syntaxError struct {
	Row     int
	Col     int
	Message string
}

func (e *syntaxError) String() string {
	return fmt.Sprintf("%v:%v: %v", e.Row+1, e.Col+1, e.Message)
}

// collectSyntaxErrors lists the outermost error nodes of a tree in text order.
func collectSyntaxErrors(tr *tree.Tree, src []byte) []*syntaxError {
	var errs []*syntaxError
	tree.Walk(tr.RootNode(), func(n tree.Node) bool {
		if !n.HasError() {
			return false
		}
		var msg string
		switch {
		case n.IsMissing():
			msg = fmt.Sprintf("missing %v", n.Type())
		case n.IsError():
			text := n.Content(src)
			if len(text) > 40 {
				text = text[:40] + "..."
			}
			msg = fmt.Sprintf("unexpected %q", text)
		default:
			return true
		}
		row, col := position(src, n.StartByte())
		errs = append(errs, &syntaxError{
			Row:     row,
			Col:     col,
			Message: msg,
		})
		return false
	})
	return errs
}

// position converts a byte offset into a zero-based row and byte column.
func position(src []byte, offset int) (int, int) {
	if offset > len(src) {
		offset = len(src)
	}
	before := src[:offset]
	row := bytes.Count(before, []byte("\n"))
	col := offset - (bytes.LastIndexByte(before, '\n') + 1)
	return row, col
}

func writeSyntaxErrors(w io.Writer, path string, errs []*syntaxError, s *Styles) {
	for _, e := range errs {
		fmt.Fprintf(w, "%v:%v\n", s.Bold.Render(path), s.Error.Render(e.String()))
	}
}

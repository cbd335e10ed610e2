package test

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/etslang/kestrel/driver/parser"
	"github.com/etslang/kestrel/grammar"
	"github.com/etslang/kestrel/language"
	"github.com/etslang/kestrel/tree"
)

type TreeDiff struct {
	ExpectedPath string
	ActualPath   string
	Message      string
}

func newTreeDiff(expected, actual *Tree, message string) *TreeDiff {
	return &TreeDiff{
		ExpectedPath: expected.path(),
		ActualPath:   actual.path(),
		Message:      message,
	}
}

// Tree is a named node in the expected output of a test case. Missing nodes carry the name
// of the symbol the parser inserted.
type Tree struct {
	Parent   *Tree
	Offset   int
	Kind     string
	Field    string
	Missing  bool
	Children []*Tree
}

func NewTree(kind string, children ...*Tree) *Tree {
	return &Tree{
		Kind:     kind,
		Children: children,
	}
}

func NewMissingTree(kind string) *Tree {
	return &Tree{
		Kind:    kind,
		Missing: true,
	}
}

// WithField labels the tree with a field name and returns it.
func (t *Tree) WithField(field string) *Tree {
	t.Field = field
	return t
}

func (t *Tree) Fill() *Tree {
	for i, c := range t.Children {
		c.Parent = t
		c.Offset = i
		c.Fill()
	}
	return t
}

func (t *Tree) path() string {
	if t.Parent == nil {
		return t.Kind
	}
	return fmt.Sprintf("%v.[%v]%v", t.Parent.path(), t.Offset, t.Kind)
}

// Format renders the tree as an indented S-expression.
func (t *Tree) Format() []byte {
	var b bytes.Buffer
	t.format(&b, 0)
	return b.Bytes()
}

func (t *Tree) format(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("    ")
	}
	if t.Field != "" {
		buf.WriteString(t.Field)
		buf.WriteString(": ")
	}
	buf.WriteString("(")
	switch {
	case t.Missing:
		buf.WriteString("MISSING ")
		if reName.MatchString(t.Kind) {
			buf.WriteString(t.Kind)
		} else {
			buf.WriteString(strconv.Quote(t.Kind))
		}
	case t.Kind == "":
		buf.WriteString("<anonymous>")
	default:
		buf.WriteString(t.Kind)
	}
	if len(t.Children) > 0 {
		buf.WriteString("\n")
		for i, c := range t.Children {
			c.format(buf, depth+1)
			if i < len(t.Children)-1 {
				buf.WriteString("\n")
			}
		}
	}
	buf.WriteString(")")
}

var reName = regexp.MustCompile(`^[A-Za-z_][0-9A-Za-z_]*$`)

func DiffTree(expected, actual *Tree) []*TreeDiff {
	if expected == nil && actual == nil {
		return nil
	}
	// _ matches any symbols.
	if expected.Kind != "_" && actual.Kind != expected.Kind {
		msg := fmt.Sprintf("unexpected kind: expected '%v' but got '%v'", expected.Kind, actual.Kind)
		return []*TreeDiff{
			newTreeDiff(expected, actual, msg),
		}
	}
	if expected.Missing != actual.Missing {
		var msg string
		if expected.Missing {
			msg = fmt.Sprintf("expected a missing '%v' but got a node in the text", expected.Kind)
		} else {
			msg = fmt.Sprintf("unexpected missing node '%v'", actual.Kind)
		}
		return []*TreeDiff{
			newTreeDiff(expected, actual, msg),
		}
	}
	if expected.Field != actual.Field {
		msg := fmt.Sprintf("unexpected field: expected '%v' but got '%v'", expected.Field, actual.Field)
		return []*TreeDiff{
			newTreeDiff(expected, actual, msg),
		}
	}
	if len(actual.Children) != len(expected.Children) {
		msg := fmt.Sprintf("unexpected node count: expected %v but got %v", len(expected.Children), len(actual.Children))
		return []*TreeDiff{
			newTreeDiff(expected, actual, msg),
		}
	}
	var diffs []*TreeDiff
	for i, exp := range expected.Children {
		if ds := DiffTree(exp, actual.Children[i]); len(ds) > 0 {
			diffs = append(diffs, ds...)
		}
	}
	return diffs
}

type TestCase struct {
	Description string
	Source      []byte
	Output      *Tree
}

// ParseTestCase reads a test case: a description, a source text, and the expected tree,
// separated by lines of three or more hyphens.
func ParseTestCase(r io.Reader) (*TestCase, error) {
	parts, err := splitIntoParts(r)
	if err != nil {
		return nil, err
	}
	if len(parts) != 3 {
		return nil, fmt.Errorf("too many or too few part delimiters: a test case consists of just tree parts: %v parts found", len(parts))
	}

	tp := &treeParser{
		lineOffset: parts[0].lineCount + parts[1].lineCount + 2,
	}
	tree, err := tp.parseTree(parts[2].buf)
	if err != nil {
		return nil, err
	}

	return &TestCase{
		Description: string(parts[0].buf),
		Source:      parts[1].buf,
		Output:      tree,
	}, nil
}

type testCasePart struct {
	buf       []byte
	lineCount int
}

func splitIntoParts(r io.Reader) ([]*testCasePart, error) {
	var bufs []*testCasePart
	s := bufio.NewScanner(r)
	for {
		buf, lineCount, err := readPart(s)
		if err != nil {
			return nil, err
		}
		if buf == nil {
			break
		}
		bufs = append(bufs, &testCasePart{
			buf:       buf,
			lineCount: lineCount,
		})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return bufs, nil
}

var reDelim = regexp.MustCompile(`^\s*---+\s*$`)

func readPart(s *bufio.Scanner) ([]byte, int, error) {
	if !s.Scan() {
		return nil, 0, s.Err()
	}
	buf := &bytes.Buffer{}
	line := s.Bytes()
	if reDelim.Match(line) {
		// Return an empty slice because (*bytes.Buffer).Bytes() returns nil if we have never written data.
		return []byte{}, 0, nil
	}
	buf.Write(line)
	lineCount := 1
	for s.Scan() {
		line := s.Bytes()
		if reDelim.Match(line) {
			return buf.Bytes(), lineCount, nil
		}
		buf.WriteByte('\n')
		buf.Write(line)
		lineCount++
	}
	if err := s.Err(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), lineCount, nil
}

//go:embed tree.yaml
var treeDefinition []byte

var (
	treeLangOnce sync.Once
	treeLang     *language.Language
	treeLangErr  error
)

// treeLanguage compiles the grammar of expected trees on first use.
func treeLanguage() (*language.Language, error) {
	treeLangOnce.Do(func() {
		def, err := grammar.ParseDefinition(bytes.NewReader(treeDefinition))
		if err != nil {
			treeLangErr = err
			return
		}
		b := grammar.GrammarBuilder{
			Definition: def,
			SourceName: "tree.yaml",
		}
		gram, err := b.Build()
		if err != nil {
			treeLangErr = err
			return
		}
		cg, _, err := grammar.Compile(gram)
		if err != nil {
			treeLangErr = err
			return
		}
		treeLang, treeLangErr = language.New(cg, nil)
	})
	return treeLang, treeLangErr
}

type treeParser struct {
	lineOffset int
	src        []byte
}

func (tp *treeParser) parseTree(src []byte) (*Tree, error) {
	lang, err := treeLanguage()
	if err != nil {
		return nil, fmt.Errorf("cannot build the tree grammar: %w", err)
	}
	tp.src = src
	tr, err := parser.Parse(context.Background(), lang, src)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	root := tr.RootNode()
	if root.HasError() {
		var synErrs []string
		tree.Walk(root, func(n tree.Node) bool {
			switch {
			case n.IsError():
				synErrs = append(synErrs, fmt.Sprintf("%v: unexpected %q", tp.position(n.StartByte()), n.Content(src)))
				return false
			case n.IsMissing():
				synErrs = append(synErrs, fmt.Sprintf("%v: missing %v", tp.position(n.StartByte()), n.Type()))
				return false
			}
			return true
		})
		if len(synErrs) == 0 {
			synErrs = append(synErrs, fmt.Sprintf("%v: invalid tree", tp.position(0)))
		}
		return nil, errors.New(strings.Join(synErrs, "\n"))
	}
	t, err := tp.genTree(root)
	if err != nil {
		return nil, err
	}
	return t.Fill(), nil
}

func (tp *treeParser) position(offset int) string {
	before := tp.src[:offset]
	row := bytes.Count(before, []byte("\n"))
	col := offset - (bytes.LastIndexByte(before, '\n') + 1)
	return fmt.Sprintf("%v:%v", tp.lineOffset+row+1, col+1)
}

func (tp *treeParser) genTree(node tree.Node) (*Tree, error) {
	if m, ok := node.ChildByFieldName("missing"); ok {
		text := m.Content(tp.src)
		if m.Type() == "string" {
			s, err := strconv.Unquote(text)
			if err != nil {
				return nil, fmt.Errorf("%v: invalid string %v: %w", tp.position(m.StartByte()), text, err)
			}
			text = s
		}
		return NewMissingTree(text), nil
	}

	kind, ok := node.ChildByFieldName("kind")
	if !ok {
		return nil, fmt.Errorf("%v: a node needs a kind", tp.position(node.StartByte()))
	}
	var children []*Tree
	for _, c := range node.NamedChildren() {
		if c.Type() != "child" {
			continue
		}
		var field string
		if f, ok := c.ChildByFieldName("field"); ok {
			field = f.Content(tp.src)
		}
		for _, n := range c.NamedChildren() {
			if n.Type() != "node" {
				continue
			}
			t, err := tp.genTree(n)
			if err != nil {
				return nil, err
			}
			children = append(children, t.WithField(field))
		}
	}
	return NewTree(kind.Content(tp.src), children...), nil
}

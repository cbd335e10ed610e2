package tree

import (
	"sync"

	spec "github.com/etslang/kestrel/spec/grammar"
)

// Node is a position-resolved view of a subtree. Hidden rules are flattened away, so the
// children of a node are its visible descendants in order. The zero Node means no node.
type Node struct {
	tree   *Tree
	sub    *Subtree
	start  int
	field  spec.FieldID
	index  int
	parent *Node

	// kids is shared by the copies of a node, so its children are collected once and siblings
	// are found by index.
	kids *childList
}

type childList struct {
	once  sync.Once
	nodes []Node
}

// RootNode returns the root, or the zero Node once the tree is closed.
func (t *Tree) RootNode() Node {
	root := t.root.Load()
	if root == nil {
		return Node{}
	}
	return Node{
		tree: t,
		sub:  root,
		kids: &childList{},
	}
}

// NodeAt returns the smallest node covering an offset. It reports false for offsets outside
// [0, Len()).
func (t *Tree) NodeAt(offset int) (Node, bool) {
	return t.DescendantForRange(offset, offset+1)
}

// DescendantForRange returns the smallest node covering [start, end).
func (t *Tree) DescendantForRange(start, end int) (Node, bool) {
	n := t.RootNode()
	if n.IsNull() || start < 0 || end > n.EndByte() || start >= end {
		return Node{}, false
	}
	for {
		var next Node
		for _, c := range n.Children() {
			if c.StartByte() <= start && end <= c.EndByte() && c.EndByte() > c.StartByte() {
				next = c
				break
			}
		}
		if next.IsNull() {
			return n, true
		}
		n = next
	}
}

func (n Node) IsNull() bool {
	return n.sub == nil
}

func (n Node) Tree() *Tree {
	return n.tree
}

// Subtree returns the storage node behind the view.
func (n Node) Subtree() *Subtree {
	return n.sub
}

func (n Node) Symbol() spec.SymbolID {
	if n.sub == nil {
		return spec.SymbolIDNil
	}
	return n.sub.symbol
}

// Type returns the name of the node's symbol.
func (n Node) Type() string {
	if n.sub == nil {
		return ""
	}
	return n.tree.lang.SymbolName(n.sub.symbol)
}

func (n Node) StartByte() int {
	return n.start
}

func (n Node) EndByte() int {
	if n.sub == nil {
		return n.start
	}
	return n.start + n.sub.size
}

// IsNamed reports whether the node comes from a named rule or token rather than a literal.
func (n Node) IsNamed() bool {
	if n.sub == nil || n.sub.IsLexError() {
		return false
	}
	return n.tree.lang.IsNamed(n.sub.symbol)
}

// IsError reports whether the node is an ERROR node or bytes no pattern recognised.
func (n Node) IsError() bool {
	return n.sub != nil && (n.sub.IsErrorNode() || n.sub.IsLexError())
}

func (n Node) IsMissing() bool {
	return n.sub != nil && n.sub.IsMissing()
}

func (n Node) IsExtra() bool {
	return n.sub != nil && n.sub.IsExtra()
}

// HasError reports whether the node or any node below it is an error or missing node.
func (n Node) HasError() bool {
	return n.sub != nil && n.sub.HasError()
}

// HasChanges reports whether an edit touched the node.
func (n Node) HasChanges() bool {
	return n.sub != nil && n.sub.IsChanged()
}

func (n Node) Content(src []byte) string {
	if n.sub == nil || n.EndByte() > len(src) {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

func (n Node) visible(s *Subtree) bool {
	if s == n.sub {
		return true
	}
	if s.IsErrorNode() || s.IsMissing() || s.IsLexError() {
		return true
	}
	return n.tree.lang.IsVisible(s.symbol)
}

// Children returns the visible children. The slice is shared and must not be modified.
func (n Node) Children() []Node {
	if n.sub == nil || len(n.sub.children) == 0 {
		return nil
	}
	if n.kids == nil {
		return n.collectChildren()
	}
	n.kids.once.Do(func() {
		n.kids.nodes = n.collectChildren()
	})
	return n.kids.nodes
}

func (n Node) collectChildren() []Node {
	parent := new(Node)
	*parent = n
	var children []Node
	var walk func(s *Subtree, start int, inherited spec.FieldID)
	walk = func(s *Subtree, start int, inherited spec.FieldID) {
		pos := start
		for i, c := range s.children {
			f := s.Field(i)
			if f == spec.FieldIDNil {
				f = inherited
			}
			if n.visible(c) {
				children = append(children, Node{
					tree:   n.tree,
					sub:    c,
					start:  pos,
					field:  f,
					index:  len(children),
					parent: parent,
					kids:   &childList{},
				})
			} else {
				walk(c, pos, f)
			}
			pos += c.size
		}
	}
	walk(n.sub, n.start, spec.FieldIDNil)
	return children[:len(children):len(children)]
}

func (n Node) ChildCount() int {
	return len(n.Children())
}

// Child returns the i-th visible child.
func (n Node) Child(i int) (Node, bool) {
	children := n.Children()
	if i < 0 || i >= len(children) {
		return Node{}, false
	}
	return children[i], true
}

// NamedChildren returns the visible children that are named.
func (n Node) NamedChildren() []Node {
	var named []Node
	for _, c := range n.Children() {
		if c.IsNamed() {
			named = append(named, c)
		}
	}
	return named
}

func (n Node) NamedChildCount() int {
	return len(n.NamedChildren())
}

func (n Node) NamedChild(i int) (Node, bool) {
	named := n.NamedChildren()
	if i < 0 || i >= len(named) {
		return Node{}, false
	}
	return named[i], true
}

// FieldName returns the field the node has in its parent.
func (n Node) FieldName() string {
	if n.sub == nil {
		return ""
	}
	return n.tree.lang.FieldName(n.field)
}

// FieldNameForChild returns the field of the i-th visible child.
func (n Node) FieldNameForChild(i int) string {
	c, ok := n.Child(i)
	if !ok {
		return ""
	}
	return c.FieldName()
}

// ChildByFieldName returns the first child labelled with a field.
func (n Node) ChildByFieldName(name string) (Node, bool) {
	if n.sub == nil {
		return Node{}, false
	}
	id, ok := n.tree.lang.FieldID(name)
	if !ok {
		return Node{}, false
	}
	for _, c := range n.Children() {
		if c.field == id {
			return c, true
		}
	}
	return Node{}, false
}

// ChildrenByFieldName returns every child labelled with a field.
func (n Node) ChildrenByFieldName(name string) []Node {
	if n.sub == nil {
		return nil
	}
	id, ok := n.tree.lang.FieldID(name)
	if !ok {
		return nil
	}
	var children []Node
	for _, c := range n.Children() {
		if c.field == id {
			children = append(children, c)
		}
	}
	return children
}

func (n Node) Parent() (Node, bool) {
	if n.parent == nil {
		return Node{}, false
	}
	return *n.parent, true
}

func (n Node) NextSibling() (Node, bool) {
	if n.parent == nil {
		return Node{}, false
	}
	return n.parent.Child(n.index + 1)
}

func (n Node) PrevSibling() (Node, bool) {
	if n.parent == nil {
		return Node{}, false
	}
	return n.parent.Child(n.index - 1)
}

// Equal reports whether two nodes view the same subtree at the same offset.
func (n Node) Equal(o Node) bool {
	return n.sub == o.sub && n.start == o.start
}

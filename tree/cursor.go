package tree

type cursorFrame struct {
	siblings []Node
	index    int
}

// Cursor walks the visible nodes of a tree.
type Cursor struct {
	frames []cursorFrame
}

// NewCursor returns a cursor positioned on a node. The cursor never leaves the subtree rooted
// at that node.
func NewCursor(n Node) *Cursor {
	return &Cursor{
		frames: []cursorFrame{
			{
				siblings: []Node{n},
			},
		},
	}
}

func (c *Cursor) Node() Node {
	f := c.frames[len(c.frames)-1]
	return f.siblings[f.index]
}

// Depth is 0 on the node the cursor started from.
func (c *Cursor) Depth() int {
	return len(c.frames) - 1
}

func (c *Cursor) GotoFirstChild() bool {
	children := c.Node().Children()
	if len(children) == 0 {
		return false
	}
	c.frames = append(c.frames, cursorFrame{
		siblings: children,
	})
	return true
}

func (c *Cursor) GotoNextSibling() bool {
	f := &c.frames[len(c.frames)-1]
	if f.index+1 >= len(f.siblings) {
		return false
	}
	f.index++
	return true
}

func (c *Cursor) GotoParent() bool {
	if len(c.frames) == 1 {
		return false
	}
	c.frames = c.frames[:len(c.frames)-1]
	return true
}

// Next moves to the next node in pre-order.
func (c *Cursor) Next() bool {
	if c.GotoFirstChild() {
		return true
	}
	for {
		if c.GotoNextSibling() {
			return true
		}
		if !c.GotoParent() {
			return false
		}
	}
}

// Walk calls f for every visible node in pre-order. Returning false from f skips the node's
// descendants.
func Walk(n Node, f func(n Node) bool) {
	if n.IsNull() {
		return
	}
	if !f(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, f)
	}
}

// Leaves returns the visible nodes without children in text order.
func Leaves(n Node) []Node {
	var leaves []Node
	Walk(n, func(n Node) bool {
		if n.ChildCount() == 0 {
			leaves = append(leaves, n)
			return false
		}
		return true
	})
	return leaves
}

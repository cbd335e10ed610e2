package parser

import (
	"github.com/etslang/kestrel/driver/lexer"
	spec "github.com/etslang/kestrel/spec/grammar"
	"github.com/etslang/kestrel/tree"
)

type stackEntry struct {
	state spec.StateID
	sub   *tree.Subtree
}

// version is one stack of the GLR parser. Forks copy the stack, so versions never share
// mutable state; subtrees are immutable and shared freely.
type version struct {
	stack []stackEntry

	// pos is the offset of the next token; it equals the total size of the stack.
	pos  int
	scan []byte

	// la is the lookahead once lexed. It survives reductions and is cleared by a shift.
	la *lexer.Token

	// laReuse is the leaf of the previous tree la was taken from.
	laReuse *tree.Subtree

	cost       int
	shifts     int
	reductions int

	// errAt indexes the stack entry of a repair under trial, or is -1. wrapEnd is the end offset
	// of the first node built over that entry, or -1 while there is none.
	errAt   int
	wrapEnd int

	failed   bool
	accepted bool
	root     *tree.Subtree
}

func newVersion(initial spec.StateID) *version {
	return &version{
		stack: []stackEntry{
			{
				state: initial,
			},
		},
		errAt:   -1,
		wrapEnd: -1,
	}
}

func (v *version) top() spec.StateID {
	return v.stack[len(v.stack)-1].state
}

func (v *version) clone() *version {
	c := *v
	c.stack = make([]stackEntry, len(v.stack), len(v.stack)+8)
	copy(c.stack, v.stack)
	return &c
}

// mergeable reports whether two versions reached equivalent configurations: equal offsets,
// scanner states and top states. They accept the same continuations, so one of them can go.
func mergeable(a, b *version) bool {
	return a.pos == b.pos && a.top() == b.top() && lexer.SameState(a.scan, b.scan)
}

// subtrees returns the stack contents above the bottom entry.
func (v *version) subtrees() []*tree.Subtree {
	subs := make([]*tree.Subtree, 0, len(v.stack)-1)
	for _, e := range v.stack[1:] {
		subs = append(subs, e.sub)
	}
	return subs
}

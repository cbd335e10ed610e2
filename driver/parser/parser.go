// Package parser implements a generalized LR parser producing concrete syntax trees. It
// recovers from syntax errors and derives new trees from edited old ones by reusing the
// subtrees an edit did not affect.
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/etslang/kestrel/language"
	"github.com/etslang/kestrel/tree"
)

var ErrLanguageMismatch = errors.New("the previous tree belongs to another language")

type Parser struct {
	lang           *language.Language
	recoveryWindow int
	maxVersions    int
	logger         *log.Logger
	disableReuse   bool

	previous *tree.Tree
	edit     tree.Edit
}

func NewParser(lang *language.Language, opts ...ParserOption) (*Parser, error) {
	if lang == nil {
		return nil, language.ErrNoGrammar
	}

	p := &Parser{
		lang:           lang,
		recoveryWindow: DefaultRecoveryWindow,
		maxVersions:    DefaultMaxVersions,
	}

	for _, opt := range opts {
		err := opt(p)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Parser) Language() *language.Language {
	return p.lang
}

// Parse parses a text into a tree. Syntax errors do not fail a parse; they show up as ERROR and
// MISSING nodes. The only error is the cancellation of ctx, in which case the returned tree
// covers the text read so far and wraps the rest into an error leaf.
//
// When the parser was built with WithPrevious, Parse behaves like Reparse.
func (p *Parser) Parse(ctx context.Context, src []byte) (*tree.Tree, error) {
	if p.previous != nil {
		return p.Reparse(ctx, p.previous, p.edit, src)
	}
	return p.Start(src).Finish(ctx)
}

// Reparse parses the text resulting from applying an edit to the text of old. The result is
// the tree Parse would build for the new text; subtrees of old the edit did not affect are
// shared with it. old stays valid.
func (p *Parser) Reparse(ctx context.Context, old *tree.Tree, e tree.Edit, src []byte) (*tree.Tree, error) {
	if e.IsNoop() && old != nil && old.Root() != nil && old.Source() != nil && bytes.Equal(old.Source(), src) {
		return old.Clone(), nil
	}
	s, err := p.StartReparse(old, e, src)
	if err != nil {
		return nil, err
	}
	return s.Finish(ctx)
}

// Start returns a session parsing a text step by step.
func (p *Parser) Start(src []byte) *Session {
	return newSession(p, src)
}

// StartReparse returns a session for Reparse.
func (p *Parser) StartReparse(old *tree.Tree, e tree.Edit, src []byte) (*Session, error) {
	if old == nil {
		return nil, fmt.Errorf("previous tree is nil")
	}
	if old.Language() != p.lang {
		return nil, ErrLanguageMismatch
	}
	root := old.Root()
	if root == nil {
		return nil, tree.ErrClosed
	}
	if len(src) != root.Size()+e.Delta() {
		return nil, fmt.Errorf("%w: the edit changes the length by %v but the text is %v bytes long instead of %v", tree.ErrInvalidEdit, e.Delta(), len(src), root.Size()+e.Delta())
	}
	edited, err := old.Edit(e)
	if err != nil {
		return nil, err
	}

	s := newSession(p, src)
	s.stats.Incremental = true
	s.stats.BoundaryStart, s.stats.BoundaryEnd = edited.Boundary(e)
	if !p.disableReuse {
		s.reuse = newReuseCursor(edited.Root())
	}
	if p.logger != nil {
		p.logger.Debug("reparse", "edit_start", e.StartByte, "old_end", e.OldEndByte, "new_end", e.NewEndByte, "boundary_start", s.stats.BoundaryStart, "boundary_end", s.stats.BoundaryEnd)
	}
	return s, nil
}

// Parse parses a text with a one-off parser.
func Parse(ctx context.Context, lang *language.Language, src []byte, opts ...ParserOption) (*tree.Tree, error) {
	p, err := NewParser(lang, opts...)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, src)
}

// Reparse reparses an edited text with a one-off parser of the old tree's language.
func Reparse(ctx context.Context, old *tree.Tree, e tree.Edit, src []byte, opts ...ParserOption) (*tree.Tree, error) {
	if old == nil {
		return nil, fmt.Errorf("previous tree is nil")
	}
	p, err := NewParser(old.Language(), opts...)
	if err != nil {
		return nil, err
	}
	return p.Reparse(ctx, old, e, src)
}

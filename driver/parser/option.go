package parser

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/etslang/kestrel/tree"
)

const (
	// DefaultRecoveryWindow is the number of tokens a recovery candidate must consume without
	// another error before the parser commits to it.
	DefaultRecoveryWindow = 3

	// DefaultMaxVersions bounds the number of stack versions alive at once.
	DefaultMaxVersions = 8
)

type ParserOption func(p *Parser) error

// RecoveryWindow sets how many tokens a local recovery must consume to be accepted. Larger
// windows make recovery pickier and more likely to fall back to panic mode.
func RecoveryWindow(n int) ParserOption {
	return func(p *Parser) error {
		if n < 1 {
			return fmt.Errorf("recovery window must be positive: %v", n)
		}
		p.recoveryWindow = n
		return nil
	}
}

func MaxVersions(n int) ParserOption {
	return func(p *Parser) error {
		if n < 1 {
			return fmt.Errorf("the maximum number of versions must be positive: %v", n)
		}
		p.maxVersions = n
		return nil
	}
}

// Logger makes the parser trace its actions at the debug level.
func Logger(logger *log.Logger) ParserOption {
	return func(p *Parser) error {
		p.logger = logger
		return nil
	}
}

// DisableReuse makes reparsing build every node anew. The result is the same; only the work
// differs.
func DisableReuse() ParserOption {
	return func(p *Parser) error {
		p.disableReuse = true
		return nil
	}
}

// WithPrevious makes Parse derive the new tree from a previous tree and the edit that turned
// its text into the new one.
func WithPrevious(old *tree.Tree, e tree.Edit) ParserOption {
	return func(p *Parser) error {
		if old == nil {
			return fmt.Errorf("previous tree is nil")
		}
		p.previous = old
		p.edit = e
		return nil
	}
}

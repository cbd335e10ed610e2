package ets

import (
	"testing"

	"github.com/etslang/kestrel/driver/lexer"
	"github.com/stretchr/testify/assert"
)

func TestScanner_Scan(t *testing.T) {
	all := []bool{true, true, true}

	tests := []struct {
		caption string
		src     string
		pos     int
		valid   []bool
		state   []byte
		ok      bool
		token   lexer.ExternalToken
		next    []byte
	}{
		{
			caption: "a backquote opens a template",
			src:     "`a`",
			valid:   []bool{true, false, false},
			ok:      true,
			token:   lexer.ExternalToken{Index: templateOpen, End: 1, Lookahead: 1},
			next:    []byte{1},
		},
		{
			caption: "a backquote closes the innermost template",
			src:     "`a`",
			pos:     2,
			valid:   all,
			state:   []byte{2},
			ok:      true,
			token:   lexer.ExternalToken{Index: templateClose, End: 3, Lookahead: 3},
			next:    []byte{1},
		},
		{
			caption: "closing the outermost template restores the initial state",
			src:     "`",
			valid:   all,
			state:   []byte{1},
			ok:      true,
			token:   lexer.ExternalToken{Index: templateClose, End: 1, Lookahead: 1},
			next:    nil,
		},
		{
			caption: "characters stop before a substitution",
			src:     "ab${c}",
			valid:   []bool{false, true, true},
			state:   []byte{1},
			ok:      true,
			token:   lexer.ExternalToken{Index: templateChars, End: 2, Lookahead: 4},
			next:    []byte{1},
		},
		{
			caption: "a dollar sign alone is a character",
			src:     "a$b`",
			valid:   []bool{false, true, true},
			state:   []byte{1},
			ok:      true,
			token:   lexer.ExternalToken{Index: templateChars, End: 3, Lookahead: 4},
			next:    []byte{1},
		},
		{
			caption: "an escaped backquote is a character",
			src:     "a\\`b`",
			valid:   []bool{false, true, true},
			state:   []byte{1},
			ok:      true,
			token:   lexer.ExternalToken{Index: templateChars, End: 4, Lookahead: 5},
			next:    []byte{1},
		},
		{
			caption: "characters may run to the end of the text",
			src:     "abc",
			valid:   []bool{false, true, true},
			state:   []byte{1},
			ok:      true,
			token:   lexer.ExternalToken{Index: templateChars, End: 3, Lookahead: 4},
			next:    []byte{1},
		},
		{
			caption: "no characters before a substitution is no token",
			src:     "${a}",
			valid:   []bool{false, true, true},
			state:   []byte{1},
			token:   lexer.ExternalToken{Lookahead: 2},
			next:    []byte{1},
		},
		{
			caption: "a backquote outside a template closes nothing",
			src:     "`",
			valid:   []bool{false, false, true},
			token:   lexer.ExternalToken{Lookahead: 1},
		},
		{
			caption: "other text is left to the patterns",
			src:     "abc",
			valid:   []bool{true, false, false},
			token:   lexer.ExternalToken{Lookahead: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			tok, next, ok := Scanner{}.Scan([]byte(tt.src), tt.pos, tt.valid, tt.state)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, tok)
			assert.Equal(t, tt.next, next)
		})
	}
}

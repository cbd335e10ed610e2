package ets

import "github.com/etslang/kestrel/driver/lexer"

// Indexes of the external terminals in the grammar's externals list.
const (
	templateOpen = iota
	templateChars
	templateClose
)

// maxTemplateDepth bounds the nesting of template strings; the depth is stored in one byte.
const maxTemplateDepth = 255

// Scanner recognises the parts of template strings. Its state is the number of template
// strings open at the scanned position, so that a backquote closes a template only inside
// one.
type Scanner struct{}

var _ lexer.ExternalScanner = Scanner{}

func (Scanner) Scan(src []byte, pos int, valid []bool, state []byte) (lexer.ExternalToken, []byte, bool) {
	depth := templateDepth(state)

	if pos < len(src) && src[pos] == '`' {
		switch {
		case valid[templateClose] && depth > 0:
			return lexer.ExternalToken{
				Index:     templateClose,
				End:       pos + 1,
				Lookahead: pos + 1,
			}, depthState(depth - 1), true
		case valid[templateOpen] && depth < maxTemplateDepth:
			return lexer.ExternalToken{
				Index:     templateOpen,
				End:       pos + 1,
				Lookahead: pos + 1,
			}, depthState(depth + 1), true
		}
	}

	if !valid[templateChars] {
		return lexer.ExternalToken{Lookahead: pos + 1}, state, false
	}
	end, lookahead := scanTemplateChars(src, pos)
	if end == pos {
		return lexer.ExternalToken{Lookahead: lookahead}, state, false
	}
	return lexer.ExternalToken{
		Index:     templateChars,
		End:       end,
		Lookahead: lookahead,
	}, state, true
}

// scanTemplateChars returns the end of the characters starting at pos that precede a
// backquote, a substitution, or the end of the text, and one past the last byte examined.
func scanTemplateChars(src []byte, pos int) (int, int) {
	end := pos
	for end < len(src) {
		switch src[end] {
		case '`':
			return end, end + 1
		case '$':
			if end+1 < len(src) && src[end+1] == '{' {
				return end, end + 2
			}
		case '\\':
			if end+1 < len(src) {
				end++
			}
		}
		end++
	}
	return end, end + 1
}

func templateDepth(state []byte) int {
	if len(state) == 0 {
		return 0
	}
	return int(state[0])
}

// depthState encodes a depth. The outermost level has the empty state, which equals the
// initial state of a parse.
func depthState(depth int) []byte {
	if depth == 0 {
		return nil
	}
	return []byte{byte(depth)}
}

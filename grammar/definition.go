package grammar

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is a declarative grammar as written in a YAML file.
//
//	name: arith
//	extras: [white_space]
//	precedence:
//	  - assoc: left
//	    symbols: ["'*'"]
//	  - assoc: left
//	    symbols: ["'+'"]
//	tokens:
//	  - name: identifier
//	    pattern: "[a-z]+"
//	  - name: white_space
//	    pattern: "[ \t\n]+"
//	rules:
//	  - name: program
//	    alternatives: [_expression]
//	  - name: _expression
//	    alternatives: [binary_expression, identifier]
//	  - name: binary_expression
//	    alternatives:
//	      - "left:_expression operator:'+' right:_expression"
//	      - "left:_expression operator:'*' right:_expression"
//
// The first rule is the start symbol. Rules and tokens whose name starts
// with `_` are hidden from the node API.
type Definition struct {
	Name string `yaml:"name"`

	// Extras are terminals allowed between any two tokens, such as white spaces and comments.
	Extras []string `yaml:"extras"`

	// Externals are terminals recognised by the language's external scanner, in the order
	// the scanner refers to them.
	Externals []string `yaml:"externals"`

	// Precedence lists precedence levels; an earlier level binds tighter.
	Precedence []*PrecedenceDef `yaml:"precedence"`

	// Conflicts lists groups of rules whose conflicts are resolved at parse time by forking.
	Conflicts [][]string `yaml:"conflicts"`

	// Fragments are named sub-patterns that tokens can refer to with \f{name}.
	Fragments []*TokenDef `yaml:"fragments"`

	Tokens []*TokenDef `yaml:"tokens"`
	Rules  []*RuleDef  `yaml:"rules"`
}

type PrecedenceDef struct {
	Assoc   string   `yaml:"assoc"`
	Symbols []string `yaml:"symbols"`
	Line    int      `yaml:"-"`
}

func (d *PrecedenceDef) UnmarshalYAML(value *yaml.Node) error {
	type plain PrecedenceDef
	err := value.Decode((*plain)(d))
	if err != nil {
		return err
	}
	d.Line = value.Line
	return nil
}

type TokenDef struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Line    int    `yaml:"-"`
}

func (d *TokenDef) UnmarshalYAML(value *yaml.Node) error {
	type plain TokenDef
	err := value.Decode((*plain)(d))
	if err != nil {
		return err
	}
	d.Line = value.Line
	return nil
}

type RuleDef struct {
	Name         string         `yaml:"name"`
	Alternatives []*Alternative `yaml:"alternatives"`
	Line         int            `yaml:"-"`
}

func (d *RuleDef) UnmarshalYAML(value *yaml.Node) error {
	type plain RuleDef
	err := value.Decode((*plain)(d))
	if err != nil {
		return err
	}
	d.Line = value.Line
	return nil
}

// Alternative is one right-hand side of a rule. It is a space-separated list of
// items: a rule or token name, a 'literal', or field:item. A trailing
// `%prec <terminal>` overrides the precedence. An empty string is the empty
// alternative.
type Alternative struct {
	Text string
	Line int
}

func (a *Alternative) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %v: an alternative must be a string", value.Line)
	}
	a.Text = value.Value
	a.Line = value.Line
	return nil
}

// ParseDefinition reads a YAML grammar definition.
func ParseDefinition(r io.Reader) (*Definition, error) {
	def := &Definition{}
	err := yaml.NewDecoder(r).Decode(def)
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty grammar definition")
		}
		return nil, err
	}
	return def, nil
}

var reName = regexp.MustCompile(`^[A-Za-z_][0-9A-Za-z_]*$`)

func isValidName(name string) bool {
	return reName.MatchString(name)
}

// Fragments keep their names in the lexical specification, so they follow its identifier rule.
var reFragmentName = regexp.MustCompile(`^[a-z](_?[0-9a-z]+)*$`)

func isValidFragmentName(name string) bool {
	return reFragmentName.MatchString(name)
}

type altItem struct {
	field   string
	name    string
	literal bool
}

type parsedAlt struct {
	items []*altItem

	// prec holds the %prec operand; precLiteral tells whether it was quoted.
	prec        string
	precLiteral bool
}

// parseAlternative splits the text of an alternative into items.
func parseAlternative(text string) (*parsedAlt, error) {
	alt := &parsedAlt{}
	s := &altScanner{src: text}
	for {
		s.skipSpaces()
		if s.eof() {
			break
		}

		if s.peek() == '%' {
			word := s.word()
			if word != "%prec" {
				return nil, fmt.Errorf("unknown directive %v", word)
			}
			s.skipSpaces()
			name, literal, err := s.symbol()
			if err != nil {
				return nil, fmt.Errorf("%%prec needs a terminal: %w", err)
			}
			alt.prec = name
			alt.precLiteral = literal
			s.skipSpaces()
			if !s.eof() {
				return nil, fmt.Errorf("%%prec must be the last element")
			}
			break
		}

		item := &altItem{}
		if s.peek() != '\'' {
			start := s.pos
			for !s.eof() && isNameChar(s.peek()) {
				s.pos++
			}
			if !s.eof() && s.peek() == ':' {
				item.field = s.src[start:s.pos]
				if !isValidName(item.field) {
					return nil, fmt.Errorf("invalid field name: %v", item.field)
				}
				s.pos++
			} else {
				s.pos = start
			}
		}
		name, literal, err := s.symbol()
		if err != nil {
			return nil, err
		}
		item.name = name
		item.literal = literal
		alt.items = append(alt.items, item)
	}
	return alt, nil
}

func isNameChar(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

type altScanner struct {
	src string
	pos int
}

func (s *altScanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *altScanner) peek() byte {
	return s.src[s.pos]
}

func (s *altScanner) skipSpaces() {
	for !s.eof() && (s.peek() == ' ' || s.peek() == '\t' || s.peek() == '\n' || s.peek() == '\r') {
		s.pos++
	}
}

func (s *altScanner) word() string {
	start := s.pos
	for !s.eof() && s.peek() != ' ' && s.peek() != '\t' {
		s.pos++
	}
	return s.src[start:s.pos]
}

// symbol reads a name or a quoted literal. Inside a literal, \' and \\ are escapes.
func (s *altScanner) symbol() (string, bool, error) {
	if s.eof() {
		return "", false, fmt.Errorf("unexpected end of alternative")
	}
	if s.peek() != '\'' {
		start := s.pos
		for !s.eof() && isNameChar(s.peek()) {
			s.pos++
		}
		name := s.src[start:s.pos]
		if name == "" || !isValidName(name) {
			return "", false, fmt.Errorf("invalid symbol at %v: %q", start, s.src[start:])
		}
		if !s.eof() && s.peek() != ' ' && s.peek() != '\t' {
			return "", false, fmt.Errorf("unexpected character %q after %v", s.peek(), name)
		}
		return name, false, nil
	}

	s.pos++
	var b strings.Builder
	for {
		if s.eof() {
			return "", false, fmt.Errorf("unclosed literal")
		}
		c := s.peek()
		s.pos++
		switch c {
		case '\\':
			if s.eof() {
				return "", false, fmt.Errorf("unclosed literal")
			}
			b.WriteByte(s.peek())
			s.pos++
		case '\'':
			if b.Len() == 0 {
				return "", false, fmt.Errorf("a literal must not be empty")
			}
			return b.String(), true, nil
		default:
			b.WriteByte(c)
		}
	}
}

// parseSymbolRef reads a symbol written in a precedence list: a 'literal' or a name.
func parseSymbolRef(text string) (string, bool, error) {
	s := &altScanner{src: strings.TrimSpace(text)}
	name, literal, err := s.symbol()
	if err != nil {
		return "", false, err
	}
	if !s.eof() {
		return "", false, fmt.Errorf("unexpected trailing text: %v", s.src[s.pos:])
	}
	return name, literal, nil
}

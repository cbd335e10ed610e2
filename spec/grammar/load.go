package grammar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedGrammar is wrapped by every validation failure.
var ErrMalformedGrammar = errors.New("malformed grammar table")

// Load reads a compiled grammar in JSON form and validates it.
func Load(r io.Reader) (*CompiledGrammar, error) {
	d, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cg := &CompiledGrammar{}
	err = json.Unmarshal(d, cg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGrammar, err)
	}
	err = cg.Validate()
	if err != nil {
		return nil, err
	}
	return cg, nil
}

// Save writes the grammar in JSON form.
func (g *CompiledGrammar) Save(w io.Writer) error {
	b, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func malformed(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %v", ErrMalformedGrammar, fmt.Sprintf(format, a...))
}

// Validate checks the dimensions and cross references of the tables.
func (g *CompiledGrammar) Validate() error {
	if g.Version != FormatVersion {
		return malformed("unsupported format version %v (want %v)", g.Version, FormatVersion)
	}
	if g.Syntactic == nil || g.Lexical == nil || g.Lexical.Maleeni == nil {
		return malformed("missing lexical or syntactic specification")
	}
	err := g.Syntactic.validate()
	if err != nil {
		return err
	}
	return g.Lexical.validate(g.Syntactic)
}

func (s *SyntacticSpec) validate() error {
	if s.StateCount <= 0 || s.TerminalCount <= 0 || s.NonTerminalCount <= 0 {
		return malformed("empty tables; states: %v, terminals: %v, non-terminals: %v", s.StateCount, s.TerminalCount, s.NonTerminalCount)
	}
	if s.InitialState < 0 || s.InitialState.Int() >= s.StateCount {
		return malformed("initial state %v out of range", s.InitialState)
	}
	symCount := s.TerminalCount + s.NonTerminalCount
	if s.ErrorSymbol.Int() != symCount {
		return malformed("error symbol must be %v, got %v", symCount, s.ErrorSymbol)
	}
	if len(s.Symbols) != symCount+1 {
		return malformed("symbol metadata has %v entries; want %v", len(s.Symbols), symCount+1)
	}
	for i, sym := range s.Symbols {
		if sym == nil {
			return malformed("symbol %v has no metadata", i)
		}
	}
	if s.StartSymbol.Int() < s.TerminalCount || s.StartSymbol.Int() >= symCount {
		return malformed("start symbol %v is not a non-terminal", s.StartSymbol)
	}
	if len(s.FieldNames) == 0 || s.FieldNames[0] != "" {
		return malformed("field name 0 must be empty")
	}
	if len(s.Productions) < 2 || s.Productions[0] != nil {
		return malformed("productions must start with a nil entry followed by the start production")
	}
	for i, p := range s.Productions[1:] {
		if p == nil {
			return malformed("production %v is nil", i+1)
		}
		if p.LHS.Int() < s.TerminalCount || p.LHS.Int() >= symCount {
			return malformed("production %v has a non-nonterminal LHS %v", i+1, p.LHS)
		}
		if p.RHSLen < 0 || (len(p.Fields) != 0 && len(p.Fields) != p.RHSLen) {
			return malformed("production %v has inconsistent fields", i+1)
		}
		for _, f := range p.Fields {
			if f < 0 || int(f) >= len(s.FieldNames) {
				return malformed("production %v refers to an unknown field %v", i+1, f)
			}
		}
	}
	if err := s.Action.validate("action", s.StateCount, s.TerminalCount, len(s.ActionSets)-1); err != nil {
		return err
	}
	if len(s.ActionSets) == 0 || len(s.ActionSets[0]) != 0 {
		return malformed("action set 0 must be empty")
	}
	for i, set := range s.ActionSets {
		for _, a := range set {
			switch {
			case a.IsShift():
				if a.State().Int() >= s.StateCount {
					return malformed("action set %v shifts to an unknown state %v", i, a.State())
				}
			case a.IsReduce():
				if a.Production().Int() >= len(s.Productions) {
					return malformed("action set %v reduces an unknown production %v", i, a.Production())
				}
			default:
				return malformed("action set %v contains an empty action", i)
			}
		}
	}
	if err := s.GoTo.validate("goto", s.StateCount, s.NonTerminalCount, s.StateCount); err != nil {
		return err
	}
	if len(s.LexModes) != s.StateCount {
		return malformed("lex mode table has %v entries; want %v", len(s.LexModes), s.StateCount)
	}
	return nil
}

func (l *LexicalSpec) validate(syn *SyntacticSpec) error {
	if len(l.Modes) == 0 {
		return malformed("no lex modes")
	}
	for state, m := range syn.LexModes {
		if m < 0 || int(m) >= len(l.Modes) {
			return malformed("state %v uses an unknown lex mode %v", state, m)
		}
	}
	modeCount := len(l.Maleeni.Specs)
	for i, m := range l.Modes {
		if m == nil {
			return malformed("lex mode %v is nil", i)
		}
		if m.MaleeniMode.Int() < 0 || m.MaleeniMode.Int() >= modeCount {
			return malformed("lex mode %v refers to an unknown maleeni mode %v", i, m.MaleeniMode)
		}
		if m.MaleeniMode.Int() != 0 && l.Maleeni.Specs[m.MaleeniMode.Int()] == nil {
			return malformed("lex mode %v refers to an empty maleeni mode %v", i, m.MaleeniMode)
		}
		if len(m.ValidExternals) != 0 && len(m.ValidExternals) != len(l.ExternalTerminals) {
			return malformed("lex mode %v has %v external flags; want %v", i, len(m.ValidExternals), len(l.ExternalTerminals))
		}
	}
	if len(l.KindToTerminal) != len(l.Maleeni.KindNames) {
		return malformed("kind map has %v entries; want %v", len(l.KindToTerminal), len(l.Maleeni.KindNames))
	}
	for i, t := range l.KindToTerminal {
		if i == 0 {
			continue
		}
		if t < 0 || t.Int() >= syn.TerminalCount {
			return malformed("kind maps to a non-terminal symbol %v", t)
		}
	}
	for _, t := range l.ExternalTerminals {
		if t < 0 || t.Int() >= syn.TerminalCount {
			return malformed("external token maps to a non-terminal symbol %v", t)
		}
	}
	return nil
}

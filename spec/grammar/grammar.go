package grammar

import (
	"strconv"

	mlspec "github.com/nihei9/maleeni/spec"
)

// FormatVersion is the version of the table layout this package reads and writes.
const FormatVersion = 1

type CompiledGrammar struct {
	Name      string         `json:"name"`
	Version   int            `json:"version"`
	Lexical   *LexicalSpec   `json:"lexical"`
	Syntactic *SyntacticSpec `json:"syntactic"`
}

// SymbolID identifies a grammar symbol. Terminals occupy [0, TerminalCount),
// nonterminals [TerminalCount, TerminalCount+NonTerminalCount), and the
// synthesized ERROR symbol follows them.
type SymbolID int

const (
	// SymbolIDEOF is the end-of-input terminal.
	SymbolIDEOF = SymbolID(0)

	// SymbolIDNil is used where no symbol is recorded, such as the follow symbol of a leaf.
	SymbolIDNil = SymbolID(-1)
)

func (id SymbolID) Int() int {
	return int(id)
}

func (id SymbolID) String() string {
	return strconv.Itoa(int(id))
}

// StateID identifies a parse state.
type StateID int

const StateIDNil = StateID(-1)

func (id StateID) Int() int {
	return int(id)
}

// ProductionID identifies a production. 0 is unused and 1 is the augmented
// start production, whose reduction means accept.
type ProductionID int

const (
	ProductionIDNil   = ProductionID(0)
	ProductionIDStart = ProductionID(1)
)

func (id ProductionID) Int() int {
	return int(id)
}

// FieldID identifies a field name. 0 means "no field".
type FieldID int

const FieldIDNil = FieldID(0)

// LexModeID identifies a lex mode: a distinct set of terminals valid as lookahead.
// Mode 0 accepts every terminal and is used for recovery.
type LexModeID int

const LexModeIDRecovery = LexModeID(0)

// Action is an encoded parse action. Negative values shift to state -a,
// positive values reduce production a, and 0 is no action.
type Action int

const ActionNil = Action(0)

func ShiftAction(s StateID) Action {
	return Action(-(s.Int() + 1))
}

func ReduceAction(p ProductionID) Action {
	return Action(p)
}

func (a Action) IsShift() bool {
	return a < 0
}

func (a Action) IsReduce() bool {
	return a > 0
}

// State returns the shift target. It is meaningful only for shift actions.
func (a Action) State() StateID {
	return StateID(-int(a) - 1)
}

// Production returns the reduced production. It is meaningful only for reduce actions.
func (a Action) Production() ProductionID {
	return ProductionID(a)
}

type SymbolKind string

const (
	SymbolKindTerminal    = SymbolKind("terminal")
	SymbolKindNonTerminal = SymbolKind("nonterminal")
	SymbolKindAuxiliary   = SymbolKind("auxiliary")
)

type SymbolInfo struct {
	Name string     `json:"name"`
	Kind SymbolKind `json:"kind"`

	// Named symbols come from named rules and tokens; anonymous ones from literals.
	Named bool `json:"named"`

	// Visible symbols appear in the node API; hidden rules are flattened into their parent.
	Visible bool `json:"visible"`

	// Extra terminals may appear anywhere between other tokens.
	Extra bool `json:"extra"`

	// External terminals are recognised by the external scanner. ExternalIndex is their
	// position in the grammar's externals list.
	External      bool `json:"external"`
	ExternalIndex int  `json:"external_index"`
}

type Production struct {
	LHS SymbolID `json:"lhs"`

	// RHSLen counts the right-hand side symbols, excluding extras.
	RHSLen int `json:"rhs_len"`

	// Fields holds a field ID per right-hand side position.
	Fields []FieldID `json:"fields,omitempty"`

	Precedence    int    `json:"prec,omitempty"`
	Associativity string `json:"assoc,omitempty"`
}

type SyntacticSpec struct {
	StateCount       int      `json:"state_count"`
	InitialState     StateID  `json:"initial_state"`
	TerminalCount    int      `json:"terminal_count"`
	NonTerminalCount int      `json:"non_terminal_count"`
	StartSymbol      SymbolID `json:"start_symbol"`
	ErrorSymbol      SymbolID `json:"error_symbol"`

	// Symbols holds metadata for every symbol including ERROR, indexed by SymbolID.
	Symbols []*SymbolInfo `json:"symbols"`

	// FieldNames is indexed by FieldID; entry 0 is empty.
	FieldNames []string `json:"field_names"`

	// Productions is indexed by ProductionID; entry 0 is nil.
	Productions []*Production `json:"productions"`

	// Action maps a state and a terminal to an index of ActionSets. Index 0 is the empty set.
	Action     *Table     `json:"action"`
	ActionSets [][]Action `json:"action_sets"`

	// GoTo maps a state and a non-terminal, counted from TerminalCount, to the next state plus
	// one. 0 means no transition.
	GoTo *Table `json:"goto"`

	// LexModes maps a state to its lex mode.
	LexModes []LexModeID `json:"lex_modes"`
}

type LexMode struct {
	// MaleeniMode is the maleeni mode recognising the pattern terminals of this mode,
	// or 0 (maleeni's nil mode) when the mode has no pattern terminals.
	MaleeniMode mlspec.LexModeID `json:"maleeni_mode"`

	// ValidExternals has an entry per external terminal.
	ValidExternals []bool `json:"valid_externals,omitempty"`
}

type LexicalSpec struct {
	Maleeni *mlspec.CompiledLexSpec `json:"maleeni"`

	// KindToTerminal maps a maleeni kind ID to a terminal.
	KindToTerminal []SymbolID `json:"kind_to_terminal"`

	// Modes is indexed by LexModeID.
	Modes []*LexMode `json:"modes"`

	// ExternalTerminals maps an external index to its terminal.
	ExternalTerminals []SymbolID `json:"external_terminals,omitempty"`
}

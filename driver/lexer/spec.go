package lexer

import (
	mlspec "github.com/nihei9/maleeni/spec"
)

type ModeID int

func (id ModeID) Int() int {
	return int(id)
}

type StateID int

func (id StateID) Int() int {
	return int(id)
}

type KindID int

func (id KindID) Int() int {
	return int(id)
}

type ModeKindID int

func (id ModeKindID) Int() int {
	return int(id)
}

// DFA walks the transition tables of a compiled lexical specification.
type DFA interface {
	InitialState(mode ModeID) StateID
	NextState(mode ModeID, state StateID, v int) (StateID, bool)
	Accept(mode ModeID, state StateID) (ModeKindID, bool)
	KindID(mode ModeID, modeKind ModeKindID) KindID
}

type maleeniDFA struct {
	spec *mlspec.CompiledLexSpec
}

// NewDFA returns a DFA reading maleeni's tables at any compression level.
func NewDFA(spec *mlspec.CompiledLexSpec) DFA {
	return &maleeniDFA{
		spec: spec,
	}
}

func (s *maleeniDFA) InitialState(mode ModeID) StateID {
	return StateID(s.spec.Specs[mode].DFA.InitialStateID.Int())
}

func (s *maleeniDFA) NextState(mode ModeID, state StateID, v int) (StateID, bool) {
	switch s.spec.CompressionLevel {
	case 2:
		tran := s.spec.Specs[mode].DFA.Transition
		rowNum := tran.RowNums[state]
		d := tran.UniqueEntries.RowDisplacement[rowNum]
		if tran.UniqueEntries.Bounds[d+v] != rowNum {
			return StateID(tran.UniqueEntries.EmptyValue.Int()), false
		}
		next := tran.UniqueEntries.Entries[d+v]
		return StateID(next.Int()), next != mlspec.StateIDNil
	case 1:
		tran := s.spec.Specs[mode].DFA.Transition
		next := tran.UncompressedUniqueEntries[tran.RowNums[state]*tran.OriginalColCount+v]
		if next == mlspec.StateIDNil {
			return StateID(mlspec.StateIDNil.Int()), false
		}
		return StateID(next.Int()), true
	}

	modeSpec := s.spec.Specs[mode]
	next := modeSpec.DFA.UncompressedTransition[state.Int()*modeSpec.DFA.ColCount+v]
	if next == mlspec.StateIDNil {
		return StateID(mlspec.StateIDNil.Int()), false
	}
	return StateID(next.Int()), true
}

func (s *maleeniDFA) Accept(mode ModeID, state StateID) (ModeKindID, bool) {
	modeKindID := s.spec.Specs[mode].DFA.AcceptingStates[state]
	return ModeKindID(modeKindID.Int()), modeKindID != mlspec.LexModeKindIDNil
}

func (s *maleeniDFA) KindID(mode ModeID, modeKind ModeKindID) KindID {
	return KindID(s.spec.KindIDs[mode][modeKind].Int())
}

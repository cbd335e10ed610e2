package grammar

import (
	"fmt"
	"sort"
	"strings"

	verr "github.com/etslang/kestrel/error"
	spec "github.com/etslang/kestrel/spec/grammar"
	mlcompiler "github.com/nihei9/maleeni/compiler"
	mlspec "github.com/nihei9/maleeni/spec"
)

type lexModeSet struct {
	// stateModes maps a state to its lex mode.
	stateModes []spec.LexModeID

	// modes lists the terminals recognised in each lex mode. Mode 0 is the recovery mode
	// holding every pattern terminal.
	modes [][]symbol
}

// genLexModes assigns a lex mode to every state. States whose valid lookahead sets are equal
// share a mode. Extras are valid everywhere.
func genLexModes(tab *ParsingTable, symTab *symbolTable) *lexModeSet {
	var all []symbol
	var extras []symbol
	for _, e := range symTab.terms {
		if e.sym == symbolEOF {
			continue
		}
		if e.extra {
			extras = append(extras, e.sym)
		}
		if e.external < 0 {
			all = append(all, e.sym)
		}
	}

	set := &lexModeSet{
		stateModes: make([]spec.LexModeID, tab.stateCount),
		modes:      [][]symbol{all},
	}
	known := map[string]spec.LexModeID{}
	for state := 0; state < tab.stateCount; state++ {
		valid := map[symbol]struct{}{}
		for term := 1; term < tab.terminalCount; term++ {
			if len(tab.readActions(stateNum(state), term)) > 0 {
				valid[terminalSymbol(term)] = struct{}{}
			}
		}
		for _, sym := range extras {
			valid[sym] = struct{}{}
		}

		syms := make([]symbol, 0, len(valid))
		for sym := range valid {
			syms = append(syms, sym)
		}
		sort.Slice(syms, func(i, j int) bool {
			return syms[i] < syms[j]
		})

		key := fmt.Sprint(syms)
		id, ok := known[key]
		if !ok {
			id = spec.LexModeID(len(set.modes))
			set.modes = append(set.modes, syms)
			known[key] = id
		}
		set.stateModes[state] = id
	}
	return set
}

func kindName(sym symbol) mlspec.LexKindName {
	return mlspec.LexKindName(fmt.Sprintf("k_%v", sym.num()))
}

// lexSpecName converts a grammar name into an identifier maleeni accepts: lower-case
// words of letters and digits joined by single underscores, starting with a letter.
func lexSpecName(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	id := strings.Join(words, "_")
	if id == "" {
		return "grammar"
	}
	if id[0] < 'a' || id[0] > 'z' {
		id = "g" + id
	}
	return id
}

func modeName(mode int) mlspec.LexModeName {
	return mlspec.LexModeName(fmt.Sprintf("mode_%v", mode))
}

// genLexicalSpec compiles the pattern terminals into one maleeni mode per lex mode. Every
// terminal also belongs to maleeni's default mode, which serves as the recovery mode.
func genLexicalSpec(name string, symTab *symbolTable, fragments []*TokenDef, modes *lexModeSet) (*spec.LexicalSpec, error) {
	termModes := map[symbol][]mlspec.LexModeName{}
	for id, syms := range modes.modes {
		if id == int(spec.LexModeIDRecovery) {
			continue
		}
		for _, sym := range syms {
			if symTab.entry(sym).external >= 0 {
				continue
			}
			termModes[sym] = append(termModes[sym], modeName(id))
		}
	}

	var entries []*mlspec.LexEntry
	kindToSym := map[mlspec.LexKindName]symbol{}
	for _, e := range symTab.terms {
		if e.sym == symbolEOF || e.external >= 0 {
			continue
		}
		kind := kindName(e.sym)
		entries = append(entries, &mlspec.LexEntry{
			Kind:    kind,
			Pattern: mlspec.LexPattern(e.pattern),
			Modes:   append([]mlspec.LexModeName{mlspec.LexModeNameDefault}, termModes[e.sym]...),
		})
		kindToSym[kind] = e.sym
	}
	if len(entries) == 0 {
		return nil, verr.SpecErrors{
			&verr.SpecError{
				Cause:  semErrNoProduction,
				Detail: "a grammar needs at least one token",
			},
		}
	}
	for _, f := range fragments {
		entries = append(entries, &mlspec.LexEntry{
			Fragment: true,
			Kind:     mlspec.LexKindName(f.Name),
			Pattern:  mlspec.LexPattern(f.Pattern),
		})
	}

	lexSpec, err, cErrs := mlcompiler.Compile(&mlspec.LexSpec{
		Name:    lexSpecName(name),
		Entries: entries,
	}, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
	if err != nil {
		if len(cErrs) == 0 {
			return nil, err
		}
		var errs verr.SpecErrors
		for _, cErr := range cErrs {
			errs = append(errs, describeCompileError(symTab, kindToSym, cErr))
		}
		return nil, errs
	}

	kindToTerminal := make([]spec.SymbolID, len(lexSpec.KindNames))
	for i, k := range lexSpec.KindNames {
		if k == mlspec.LexKindNameNil {
			kindToTerminal[i] = spec.SymbolIDNil
			continue
		}
		sym, ok := kindToSym[k]
		if !ok {
			return nil, fmt.Errorf("lexical kind '%v' was not found in a symbol table", k)
		}
		kindToTerminal[i] = symTab.symbolID(sym)
	}

	modeIDs := map[mlspec.LexModeName]mlspec.LexModeID{}
	for i, name := range lexSpec.ModeNames {
		modeIDs[name] = mlspec.LexModeID(i)
	}

	var externals []spec.SymbolID
	for _, e := range symTab.terms {
		if e.external >= 0 {
			externals = append(externals, symTab.symbolID(e.sym))
		}
	}

	lexModes := make([]*spec.LexMode, len(modes.modes))
	for id, syms := range modes.modes {
		m := &spec.LexMode{}
		if id == int(spec.LexModeIDRecovery) {
			m.MaleeniMode = modeIDs[mlspec.LexModeNameDefault]
			lexModes[id] = m
			continue
		}
		var validExternals []bool
		hasPattern := false
		for _, sym := range syms {
			e := symTab.entry(sym)
			if e.external < 0 {
				hasPattern = true
				continue
			}
			if validExternals == nil {
				validExternals = make([]bool, len(externals))
			}
			validExternals[e.external] = true
		}
		if hasPattern {
			mode, ok := modeIDs[modeName(id)]
			if !ok {
				return nil, fmt.Errorf("lex mode '%v' was not found in the lexical specification", modeName(id))
			}
			m.MaleeniMode = mode
		}
		m.ValidExternals = validExternals
		lexModes[id] = m
	}

	return &spec.LexicalSpec{
		Maleeni:           lexSpec,
		KindToTerminal:    kindToTerminal,
		Modes:             lexModes,
		ExternalTerminals: externals,
	}, nil
}

func describeCompileError(symTab *symbolTable, kindToSym map[mlspec.LexKindName]symbol, cErr *mlcompiler.CompileError) *verr.SpecError {
	var b strings.Builder
	row := 0
	if sym, ok := kindToSym[cErr.Kind]; ok && !cErr.Fragment {
		e := symTab.entry(sym)
		fmt.Fprintf(&b, "%v: %v", symTab.toText(sym), cErr.Cause)
		row = e.row
	} else {
		if cErr.Fragment {
			fmt.Fprintf(&b, "fragment ")
		}
		fmt.Fprintf(&b, "%v: %v", cErr.Kind, cErr.Cause)
	}
	if cErr.Detail != "" {
		fmt.Fprintf(&b, ": %v", cErr.Detail)
	}
	return &verr.SpecError{
		Cause:  semErrInvalidPattern,
		Detail: b.String(),
		Row:    row,
	}
}

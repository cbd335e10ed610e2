package grammar

import (
	"fmt"

	verr "github.com/etslang/kestrel/error"
	spec "github.com/etslang/kestrel/spec/grammar"
)

type assocType string

const (
	assocTypeNil   = assocType("")
	assocTypeLeft  = assocType("left")
	assocTypeRight = assocType("right")
)

const (
	precNil = 0
	precMin = 1
)

// precAndAssoc represents precedence and associativities of terminal symbols and productions.
// We use the priority of the production to resolve shift/reduce conflicts.
type precAndAssoc struct {
	// termPrec and termAssoc represent the precedence of the terminal symbols.
	termPrec  map[symbol]int
	termAssoc map[symbol]assocType

	// prodPrec and prodAssoc represent the precedence and the associativities of the production.
	// These values are inherited from the right-most terminal symbols in the RHS of the productions.
	prodPrec  map[productionNum]int
	prodAssoc map[productionNum]assocType
}

func (pa *precAndAssoc) terminalPrecedence(sym symbol) int {
	prec, ok := pa.termPrec[sym]
	if !ok {
		return precNil
	}

	return prec
}

func (pa *precAndAssoc) terminalAssociativity(sym symbol) assocType {
	assoc, ok := pa.termAssoc[sym]
	if !ok {
		return assocTypeNil
	}

	return assoc
}

func (pa *precAndAssoc) productionPredence(prod productionNum) int {
	prec, ok := pa.prodPrec[prod]
	if !ok {
		return precNil
	}

	return prec
}

func (pa *precAndAssoc) productionAssociativity(prod productionNum) assocType {
	assoc, ok := pa.prodAssoc[prod]
	if !ok {
		return assocTypeNil
	}

	return assoc
}

// Grammar is a checked grammar definition ready to be compiled.
type Grammar struct {
	name           string
	symbolTable    *symbolTable
	productionSet  *productionSet
	precAndAssoc   *precAndAssoc
	conflictGroups map[symbol][]int

	// fieldNames is indexed by spec.FieldID; entry 0 is empty.
	fieldNames []string
	fragments  []*TokenDef
}

type GrammarBuilder struct {
	Definition *Definition

	// SourceName and FilePath are attached to the reported errors.
	SourceName string
	FilePath   string

	errs verr.SpecErrors
}

func (b *GrammarBuilder) addError(cause error, row int, format string, a ...interface{}) {
	b.errs = append(b.errs, &verr.SpecError{
		Cause:      cause,
		Detail:     fmt.Sprintf(format, a...),
		FilePath:   b.FilePath,
		SourceName: b.SourceName,
		Row:        row,
	})
}

func (b *GrammarBuilder) Build() (*Grammar, error) {
	def := b.Definition
	if def == nil {
		return nil, fmt.Errorf("no grammar definition")
	}

	switch {
	case def.Name == "":
		b.addError(semErrNoName, 0, "")
	case !isValidName(def.Name):
		b.addError(semErrInvalidName, 0, "%v", def.Name)
	}
	if len(def.Rules) == 0 {
		b.addError(semErrNoProduction, 0, "")
		return nil, b.errs
	}

	alts := b.parseAlternatives(def)

	symTab := newSymbolTable()

	// Anonymous terminals are registered before named ones so that a keyword wins
	// a tie against a general pattern such as an identifier.
	for _, ps := range alts {
		for _, p := range ps {
			if p == nil {
				continue
			}
			for _, item := range p.items {
				if item.literal {
					symTab.registerLiteral(item.name)
				}
			}
		}
	}

	for _, tok := range def.Tokens {
		if !isValidName(tok.Name) {
			b.addError(semErrInvalidName, tok.Line, "%v", tok.Name)
			continue
		}
		if tok.Pattern == "" {
			b.addError(semErrEmptyPattern, tok.Line, "%v", tok.Name)
			continue
		}
		sym, err := symTab.registerToken(tok.Name, tok.Pattern)
		if err != nil {
			b.addError(err, tok.Line, "%v", tok.Name)
			continue
		}
		symTab.entry(sym).row = tok.Line
	}

	for i, name := range def.Externals {
		if !isValidName(name) {
			b.addError(semErrInvalidName, 0, "external %v", name)
			continue
		}
		_, err := symTab.registerExternal(name, i)
		if err != nil {
			b.addError(err, 0, "external %v", name)
		}
	}

	{
		known := map[string]struct{}{}
		for _, f := range def.Fragments {
			if !isValidFragmentName(f.Name) {
				b.addError(semErrInvalidName, f.Line, "fragment %v", f.Name)
				continue
			}
			if f.Pattern == "" {
				b.addError(semErrEmptyPattern, f.Line, "fragment %v", f.Name)
				continue
			}
			if _, ok := known[f.Name]; ok {
				b.addError(semErrDuplicateFragment, f.Line, "%v", f.Name)
				continue
			}
			known[f.Name] = struct{}{}
		}
	}

	ruleSyms := make([]symbol, len(def.Rules))
	{
		defined := map[string]struct{}{}
		for i, rule := range def.Rules {
			if !isValidName(rule.Name) {
				b.addError(semErrInvalidName, rule.Line, "%v", rule.Name)
				continue
			}
			if _, ok := defined[rule.Name]; ok {
				b.addError(semErrDuplicateName, rule.Line, "rule %v is defined more than once", rule.Name)
				continue
			}
			defined[rule.Name] = struct{}{}

			sym, err := symTab.registerRule(rule.Name)
			if err != nil {
				b.addError(err, rule.Line, "%v", rule.Name)
				continue
			}
			ruleSyms[i] = sym
		}
	}

	for _, name := range def.Extras {
		sym, ok := symTab.toSymbol(name)
		if !ok {
			b.addError(semErrUndefinedSym, 0, "extra %v", name)
			continue
		}
		if !sym.isTerminal() {
			b.addError(semErrExtraNotTerminal, 0, "%v", name)
			continue
		}
		symTab.entry(sym).extra = true
	}

	if len(b.errs) > 0 {
		return nil, b.errs
	}

	prods, fieldNames := b.genProductions(def, alts, symTab, ruleSyms)
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	b.checkUnusedRules(def, prods, ruleSyms)

	pa := b.genPrecAndAssoc(def, symTab, prods)

	groups := map[symbol][]int{}
	for i, group := range def.Conflicts {
		for _, name := range group {
			sym, ok := symTab.toSymbol(name)
			if !ok {
				b.addError(semErrUndefinedSym, 0, "conflict %v", name)
				continue
			}
			if !sym.isNonTerminal() {
				b.addError(semErrConflictNotRule, 0, "%v", name)
				continue
			}
			groups[sym] = append(groups[sym], i)
		}
	}

	if len(b.errs) > 0 {
		return nil, b.errs
	}

	return &Grammar{
		name:           def.Name,
		symbolTable:    symTab,
		productionSet:  prods,
		precAndAssoc:   pa,
		conflictGroups: groups,
		fieldNames:     fieldNames,
		fragments:      def.Fragments,
	}, nil
}

func (b *GrammarBuilder) parseAlternatives(def *Definition) [][]*parsedAlt {
	alts := make([][]*parsedAlt, len(def.Rules))
	for i, rule := range def.Rules {
		if len(rule.Alternatives) == 0 {
			b.addError(semErrNoProduction, rule.Line, "rule %v has no alternative", rule.Name)
			continue
		}
		for _, a := range rule.Alternatives {
			p, err := parseAlternative(a.Text)
			if err != nil {
				b.addError(semErrInvalidAlternative, a.Line, "%v", err)
				p = nil
			}
			alts[i] = append(alts[i], p)
		}
	}
	return alts
}

func (b *GrammarBuilder) genProductions(def *Definition, alts [][]*parsedAlt, symTab *symbolTable, ruleSyms []symbol) (*productionSet, []string) {
	fieldNames := []string{""}
	fieldIDs := map[string]spec.FieldID{}

	prods := newProductionSet()
	startProd, err := newProduction(symbolStart, []symbol{ruleSyms[0]}, nil)
	if err != nil {
		b.addError(semErrNoProduction, 0, "%v", err)
		return nil, nil
	}
	prods.append(startProd)

	for i, rule := range def.Rules {
		for j, p := range alts[i] {
			if p == nil {
				continue
			}
			alt := rule.Alternatives[j]

			rhs := make([]symbol, 0, len(p.items))
			fields := make([]spec.FieldID, 0, len(p.items))
			hasField := false
			ok := true
			for _, item := range p.items {
				var sym symbol
				if item.literal {
					sym = symTab.literals[item.name]
				} else {
					s, found := symTab.toSymbol(item.name)
					if !found {
						b.addError(semErrUndefinedSym, alt.Line, "%v", item.name)
						ok = false
						continue
					}
					sym = s
				}
				if sym.isTerminal() && symTab.entry(sym).extra {
					b.addError(semErrExtraInRule, alt.Line, "%v", item.name)
					ok = false
					continue
				}
				rhs = append(rhs, sym)

				fid := spec.FieldIDNil
				if item.field != "" {
					id, known := fieldIDs[item.field]
					if !known {
						id = spec.FieldID(len(fieldNames))
						fieldNames = append(fieldNames, item.field)
						fieldIDs[item.field] = id
					}
					fid = id
					hasField = true
				}
				fields = append(fields, fid)
			}
			if !ok {
				continue
			}
			if !hasField {
				fields = nil
			}

			prod, err := newProduction(ruleSyms[i], rhs, fields)
			if err != nil {
				b.addError(semErrInvalidAlternative, alt.Line, "%v", err)
				continue
			}
			prod.row = alt.Line

			if p.prec != "" {
				sym, found := symTab.literals[p.prec]
				if !p.precLiteral {
					sym, found = symTab.toSymbol(p.prec)
				}
				switch {
				case !found:
					b.addError(semErrUndefinedSym, alt.Line, "%%prec %v", p.prec)
					continue
				case !sym.isTerminal():
					b.addError(semErrUndefinedPrec, alt.Line, "%%prec takes a terminal symbol; %v is a rule", p.prec)
					continue
				}
				prod.precTerm = sym
			}

			if !prods.append(prod) {
				b.addError(semErrDuplicateProduction, alt.Line, "%v", alt.Text)
			}
		}
	}

	return prods, fieldNames
}

func (b *GrammarBuilder) checkUnusedRules(def *Definition, prods *productionSet, ruleSyms []symbol) {
	used := map[symbol]struct{}{
		ruleSyms[0]: {},
	}
	unchecked := []symbol{ruleSyms[0]}
	for len(unchecked) > 0 {
		var next []symbol
		for _, lhs := range unchecked {
			ps, _ := prods.findByLHS(lhs)
			for _, p := range ps {
				for _, sym := range p.rhs {
					if !sym.isNonTerminal() {
						continue
					}
					if _, ok := used[sym]; ok {
						continue
					}
					used[sym] = struct{}{}
					next = append(next, sym)
				}
			}
		}
		unchecked = next
	}

	for i, rule := range def.Rules {
		if _, ok := used[ruleSyms[i]]; !ok {
			b.addError(semErrUnusedRule, rule.Line, "%v", rule.Name)
		}
	}
}

func (b *GrammarBuilder) genPrecAndAssoc(def *Definition, symTab *symbolTable, prods *productionSet) *precAndAssoc {
	termPrec := map[symbol]int{}
	termAssoc := map[symbol]assocType{}

	precN := precMin
	for _, level := range def.Precedence {
		var assoc assocType
		switch level.Assoc {
		case "left":
			assoc = assocTypeLeft
		case "right":
			assoc = assocTypeRight
		case "none", "":
			assoc = assocTypeNil
		default:
			b.addError(semErrInvalidAssoc, level.Line, "%v", level.Assoc)
			continue
		}

		for _, text := range level.Symbols {
			name, literal, err := parseSymbolRef(text)
			if err != nil {
				b.addError(semErrUndefinedSym, level.Line, "%v: %v", text, err)
				continue
			}
			sym, ok := symTab.literals[name]
			if !literal {
				sym, ok = symTab.toSymbol(name)
			}
			if !ok {
				b.addError(semErrUndefinedSym, level.Line, "%v", text)
				continue
			}
			if !sym.isTerminal() {
				b.addError(semErrUndefinedPrec, level.Line, "associativity can take only terminal symbol (%v is a rule)", text)
				continue
			}
			if _, alreadySet := termPrec[sym]; alreadySet {
				b.addError(semErrDuplicateAssoc, level.Line, "%v", text)
				continue
			}
			termPrec[sym] = precN
			termAssoc[sym] = assoc
		}
		precN++
	}

	prodPrec := map[productionNum]int{}
	prodAssoc := map[productionNum]assocType{}
	for _, prod := range prods.getAllProductions() {
		// %prec gives the production both the precedence and the associativity of the terminal.
		if !prod.precTerm.isNil() {
			prec, ok := termPrec[prod.precTerm]
			if !ok {
				b.addError(semErrUndefinedPrec, prod.row, "%v", symTab.toText(prod.precTerm))
				continue
			}
			prodPrec[prod.num] = prec
			prodAssoc[prod.num] = termAssoc[prod.precTerm]
			continue
		}

		mostrightTerm := symbolNil
		for _, sym := range prod.rhs {
			if sym.isTerminal() {
				mostrightTerm = sym
			}
		}
		if mostrightTerm.isNil() {
			continue
		}
		if prec, ok := termPrec[mostrightTerm]; ok {
			prodPrec[prod.num] = prec
			prodAssoc[prod.num] = termAssoc[mostrightTerm]
		}
	}

	return &precAndAssoc{
		termPrec:  termPrec,
		termAssoc: termAssoc,
		prodPrec:  prodPrec,
		prodAssoc: prodAssoc,
	}
}

type compileConfig struct {
	isReportingEnabled bool
}

type CompileOption func(config *compileConfig)

// EnableReporting makes Compile return a report describing the states and conflicts.
func EnableReporting() CompileOption {
	return func(config *compileConfig) {
		config.isReportingEnabled = true
	}
}

// Compile generates the parsing and lexical tables of a grammar.
func Compile(gram *Grammar, opts ...CompileOption) (*spec.CompiledGrammar, *Report, error) {
	config := &compileConfig{}
	for _, opt := range opts {
		opt(config)
	}

	firstSet, err := genFirstSet(gram.productionSet)
	if err != nil {
		return nil, nil, err
	}

	lr0, err := genLR0Automaton(gram.productionSet, symbolStart)
	if err != nil {
		return nil, nil, err
	}

	lalr1, err := genLALR1Automaton(lr0, gram.productionSet, firstSet)
	if err != nil {
		return nil, nil, err
	}

	b := &lrTableBuilder{
		automaton:      lalr1.lr0Automaton,
		prods:          gram.productionSet,
		termCount:      len(gram.symbolTable.terms),
		nonTermCount:   len(gram.symbolTable.nonTerms),
		symTab:         gram.symbolTable,
		precAndAssoc:   gram.precAndAssoc,
		conflictGroups: gram.conflictGroups,
	}
	tab, err := b.build()
	if err != nil {
		return nil, nil, err
	}

	modes := genLexModes(tab, gram.symbolTable)
	lexical, err := genLexicalSpec(gram.name, gram.symbolTable, gram.fragments, modes)
	if err != nil {
		return nil, nil, err
	}

	var report *Report
	if config.isReportingEnabled {
		report = b.genReport(tab, modes.stateModes)
	}

	syntactic, err := genSyntacticSpec(gram, tab, modes.stateModes)
	if err != nil {
		return nil, nil, err
	}

	return &spec.CompiledGrammar{
		Name:      gram.name,
		Version:   spec.FormatVersion,
		Lexical:   lexical,
		Syntactic: syntactic,
	}, report, nil
}

func genSyntacticSpec(gram *Grammar, tab *ParsingTable, stateModes []spec.LexModeID) (*spec.SyntacticSpec, error) {
	symTab := gram.symbolTable
	termCount := len(symTab.terms)
	nonTermCount := len(symTab.nonTerms)

	symbols := make([]*spec.SymbolInfo, 0, termCount+nonTermCount+1)
	for _, e := range symTab.terms {
		symbols = append(symbols, &spec.SymbolInfo{
			Name:          e.name,
			Kind:          spec.SymbolKindTerminal,
			Named:         !e.literal && e.sym != symbolEOF,
			Visible:       !e.hidden,
			Extra:         e.extra,
			External:      e.external >= 0,
			ExternalIndex: e.external,
		})
	}
	for _, e := range symTab.nonTerms {
		kind := spec.SymbolKindNonTerminal
		if e.hidden {
			kind = spec.SymbolKindAuxiliary
		}
		symbols = append(symbols, &spec.SymbolInfo{
			Name:          e.name,
			Kind:          kind,
			Named:         true,
			Visible:       !e.hidden,
			ExternalIndex: -1,
		})
	}
	symbols = append(symbols, &spec.SymbolInfo{
		Name:          "ERROR",
		Kind:          spec.SymbolKindNonTerminal,
		Named:         true,
		Visible:       true,
		ExternalIndex: -1,
	})

	action := make([]int, len(tab.actions))
	actionSets := [][]spec.Action{{}}
	{
		known := map[string]int{}
		for i, acts := range tab.actions {
			if len(acts) == 0 {
				continue
			}
			key := fmt.Sprint(acts)
			idx, ok := known[key]
			if !ok {
				idx = len(actionSets)
				actionSets = append(actionSets, acts)
				known[key] = idx
			}
			action[i] = idx
		}
	}

	actionTab, err := spec.CompressTable(action, termCount)
	if err != nil {
		return nil, fmt.Errorf("failed to compress the action table: %w", err)
	}
	goToTab, err := spec.CompressTable(tab.goToTable, tab.nonTerminalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to compress the goto table: %w", err)
	}

	prods := make([]*spec.Production, len(gram.productionSet.prods))
	for _, p := range gram.productionSet.getAllProductions() {
		prods[p.num] = &spec.Production{
			LHS:           symTab.symbolID(p.lhs),
			RHSLen:        p.rhsLen,
			Fields:        p.fields,
			Precedence:    gram.precAndAssoc.productionPredence(p.num),
			Associativity: string(gram.precAndAssoc.productionAssociativity(p.num)),
		}
	}

	return &spec.SyntacticSpec{
		StateCount:       tab.stateCount,
		InitialState:     spec.StateID(tab.InitialState),
		TerminalCount:    termCount,
		NonTerminalCount: nonTermCount,
		StartSymbol:      symTab.symbolID(nonTerminalSymbol(1)),
		ErrorSymbol:      spec.SymbolID(termCount + nonTermCount),
		Symbols:          symbols,
		FieldNames:       gram.fieldNames,
		Productions:      prods,
		Action:           actionTab,
		ActionSets:       actionSets,
		GoTo:             goToTab,
		LexModes:         stateModes,
	}, nil
}

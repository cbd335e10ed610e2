package grammar

import (
	"fmt"
	"slices"
)

type lr0Automaton struct {
	initialState kernelID
	states       map[kernelID]*lrState
}

// orderedStates returns the states in number order.
func (a *lr0Automaton) orderedStates() []*lrState {
	states := make([]*lrState, len(a.states))
	for _, s := range a.states {
		states[s.num] = s
	}
	return states
}

// genLR0Automaton numbers the states breadth-first from the initial kernel.
func genLR0Automaton(prods *productionSet, startSym symbol) (*lr0Automaton, error) {
	if !startSym.isStart() {
		return nil, fmt.Errorf("passed symbol is not a start symbol")
	}

	startProds, _ := prods.findByLHS(startSym)
	initialItem, err := newLR0Item(startProds[0], 0)
	if err != nil {
		return nil, err
	}
	initial, err := newKernel([]*lrItem{initialItem})
	if err != nil {
		return nil, err
	}

	automaton := &lr0Automaton{
		initialState: initial.id,
		states:       map[kernelID]*lrState{},
	}
	known := map[kernelID]struct{}{
		initial.id: {},
	}
	queue := []*kernel{initial}
	for num := stateNumInitial; len(queue) > 0; num = num.next() {
		k := queue[0]
		queue = queue[1:]

		state, neighbours, err := genStateAndNeighbourKernels(k, prods)
		if err != nil {
			return nil, err
		}
		state.num = num
		automaton.states[state.id] = state

		for _, n := range neighbours {
			if _, ok := known[n.id]; ok {
				continue
			}
			known[n.id] = struct{}{}
			queue = append(queue, n)
		}
	}

	return automaton, nil
}

func genStateAndNeighbourKernels(k *kernel, prods *productionSet) (*lrState, []*kernel, error) {
	items, err := genLR0Closure(k, prods)
	if err != nil {
		return nil, nil, err
	}
	neighbours, err := genNeighbourKernels(items)
	if err != nil {
		return nil, nil, err
	}

	state := &lrState{
		kernel:    k,
		next:      map[symbol]kernelID{},
		reducible: map[productionNum]struct{}{},
		shiftLHS:  map[symbol]symbolSet{},
	}
	kernels := make([]*kernel, 0, len(neighbours))
	for _, n := range neighbours {
		state.next[n.symbol] = n.kernel.id
		kernels = append(kernels, n.kernel)
	}
	for _, item := range items {
		if item.dottedSymbol.isTerminal() {
			lhs := state.shiftLHS[item.dottedSymbol]
			if lhs == nil {
				lhs = newSymbolSet()
				state.shiftLHS[item.dottedSymbol] = lhs
			}
			lhs.add(item.prod.lhs)
		}
		if !item.reducible {
			continue
		}
		state.reducible[item.prod.num] = struct{}{}
		if item.prod.isEmpty() {
			state.emptyProdItems = append(state.emptyProdItems, item)
		}
	}

	return state, kernels, nil
}

func genLR0Closure(k *kernel, prods *productionSet) ([]*lrItem, error) {
	items := append([]*lrItem{}, k.items...)
	known := map[lrItemID]struct{}{}
	for i := 0; i < len(items); i++ {
		if !items[i].dottedSymbol.isNonTerminal() {
			continue
		}
		ps, _ := prods.findByLHS(items[i].dottedSymbol)
		for _, prod := range ps {
			item, err := newLR0Item(prod, 0)
			if err != nil {
				return nil, err
			}
			if _, ok := known[item.id]; ok {
				continue
			}
			known[item.id] = struct{}{}
			items = append(items, item)
		}
	}

	return items, nil
}

type neighbourKernel struct {
	symbol symbol
	kernel *kernel
}

func genNeighbourKernels(items []*lrItem) ([]*neighbourKernel, error) {
	kItemMap := map[symbol][]*lrItem{}
	for _, item := range items {
		if item.dottedSymbol.isNil() {
			continue
		}
		kItem, err := newLR0Item(item.prod, item.dot+1)
		if err != nil {
			return nil, err
		}
		kItemMap[item.dottedSymbol] = append(kItemMap[item.dottedSymbol], kItem)
	}

	nextSyms := make([]symbol, 0, len(kItemMap))
	for sym := range kItemMap {
		nextSyms = append(nextSyms, sym)
	}
	slices.Sort(nextSyms)

	kernels := []*neighbourKernel{}
	for _, sym := range nextSyms {
		k, err := newKernel(kItemMap[sym])
		if err != nil {
			return nil, err
		}
		kernels = append(kernels, &neighbourKernel{
			symbol: sym,
			kernel: k,
		})
	}

	return kernels, nil
}

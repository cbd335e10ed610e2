package grammar

import "fmt"

// itemRef locates an item of a state.
type itemRef struct {
	kernelID kernelID
	itemID   lrItemID
}

// propagation records that the look-ahead symbols of src flow into every item of dest.
type propagation struct {
	src  itemRef
	dest []itemRef
}

type lalr1Automaton struct {
	*lr0Automaton
}

// genLALR1Automaton attaches look-ahead symbols to the LR(0) items in two phases: the
// symbols generated spontaneously inside each closure are written directly, and the
// propagation links between items are then followed until no set grows.
func genLALR1Automaton(lr0 *lr0Automaton, prods *productionSet, first *firstSet) (*lalr1Automaton, error) {
	// [S' → ・S, $]
	lr0.states[lr0.initialState].items[0].lookAhead.symbols = newSymbolSet(symbolEOF)

	var props []*propagation
	for _, state := range lr0.orderedStates() {
		for _, kItem := range state.items {
			prop, err := genSpontaneousLookAhead(lr0, state, kItem, prods, first)
			if err != nil {
				return nil, err
			}
			if prop != nil {
				props = append(props, prop)
			}
		}
	}

	if err := propagateLookAhead(lr0, props); err != nil {
		return nil, fmt.Errorf("failed to propagate look-ahead symbols: %w", err)
	}

	return &lalr1Automaton{
		lr0Automaton: lr0,
	}, nil
}

// genSpontaneousLookAhead writes the look-ahead symbols the closure of a kernel item
// generates by itself and returns the items the kernel item propagates to.
func genSpontaneousLookAhead(lr0 *lr0Automaton, state *lrState, kItem *lrItem, prods *productionSet, first *firstSet) (*propagation, error) {
	kItem.lookAhead.propagation = true

	items, err := genLALR1Closure(kItem, prods, first)
	if err != nil {
		return nil, err
	}

	var dests []itemRef
	for _, item := range items {
		if item.reducible {
			// Reducible closure items have an empty production; the state keeps them apart
			// from its kernel.
			if !item.prod.isEmpty() {
				continue
			}
			target := findItem(state.emptyProdItems, item.id)
			if target == nil {
				return nil, fmt.Errorf("reducible item not found: %v", item.id)
			}
			target.lookAhead.symbols.merge(item.lookAhead.symbols)
			if item.lookAhead.propagation {
				dests = append(dests, itemRef{kernelID: state.id, itemID: item.id})
			}
			continue
		}

		next := itemRef{
			kernelID: state.next[item.dottedSymbol],
			itemID: lrItemID{
				prod: item.prod.num,
				dot:  item.dot + 1,
			},
		}
		if item.lookAhead.propagation {
			dests = append(dests, next)
			continue
		}
		target := findItem(lr0.states[next.kernelID].items, next.itemID)
		if target == nil {
			return nil, fmt.Errorf("item not found: %v", next.itemID)
		}
		target.lookAhead.symbols.merge(item.lookAhead.symbols)
	}
	if len(dests) == 0 {
		return nil, nil
	}
	return &propagation{
		src:  itemRef{kernelID: state.id, itemID: kItem.id},
		dest: dests,
	}, nil
}

func findItem(items []*lrItem, id lrItemID) *lrItem {
	for _, item := range items {
		if item.id == id {
			return item
		}
	}
	return nil
}

// genLALR1Closure computes the closure of a kernel item. Items whose look-ahead
// depends on the kernel item are marked as propagating; the others carry
// spontaneously generated look-ahead symbols.
func genLALR1Closure(srcItem *lrItem, prods *productionSet, first *firstSet) ([]*lrItem, error) {
	items := []*lrItem{srcItem}
	known := map[lrItemID]symbolSet{}
	knownProp := map[lrItemID]struct{}{}
	for i := 0; i < len(items); i++ {
		item := items[i]
		if !item.dottedSymbol.isNonTerminal() {
			continue
		}

		fst, err := first.find(item.prod, item.dot+1)
		if err != nil {
			return nil, err
		}
		lookAhead := newSymbolSet()
		lookAhead.merge(fst.symbols)
		if fst.empty {
			lookAhead.merge(item.lookAhead.symbols)
		}
		syms := lookAhead.sorted()

		ps, _ := prods.findByLHS(item.dottedSymbol)
		for _, prod := range ps {
			for _, a := range syms {
				newItem, err := newLR0Item(prod, 0)
				if err != nil {
					return nil, err
				}
				if known[newItem.id] == nil {
					known[newItem.id] = newSymbolSet()
				}
				if !known[newItem.id].add(a) {
					continue
				}
				newItem.lookAhead.symbols.add(a)
				items = append(items, newItem)
			}

			if !fst.empty || !item.lookAhead.propagation {
				continue
			}
			newItem, err := newLR0Item(prod, 0)
			if err != nil {
				return nil, err
			}
			if _, ok := knownProp[newItem.id]; ok {
				continue
			}
			knownProp[newItem.id] = struct{}{}
			newItem.lookAhead.propagation = true
			items = append(items, newItem)
		}
	}

	return items, nil
}

func propagateLookAhead(lr0 *lr0Automaton, props []*propagation) error {
	lookup := func(ref itemRef, withEmpty bool) (*lrItem, error) {
		state, ok := lr0.states[ref.kernelID]
		if !ok {
			return nil, fmt.Errorf("state not found: %v", ref.kernelID)
		}
		item := findItem(state.items, ref.itemID)
		if item == nil && withEmpty {
			item = findItem(state.emptyProdItems, ref.itemID)
		}
		if item == nil {
			return nil, fmt.Errorf("item not found: %v", ref.itemID)
		}
		return item, nil
	}

	for changed := true; changed; {
		changed = false
		for _, prop := range props {
			src, err := lookup(prop.src, false)
			if err != nil {
				return err
			}
			for _, ref := range prop.dest {
				dest, err := lookup(ref, true)
				if err != nil {
					return err
				}
				if dest.lookAhead.symbols.merge(src.lookAhead.symbols) {
					changed = true
				}
			}
		}
	}

	return nil
}

package grammar

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type lrItemID struct {
	prod productionNum
	dot  int
}

func (id lrItemID) String() string {
	return fmt.Sprintf("%v.%v", id.prod, id.dot)
}

type lookAhead struct {
	symbols symbolSet

	// When propagation is true, an item propagates look-ahead symbols to other items.
	propagation bool
}

type lrItem struct {
	id   lrItemID
	prod *production

	// E → E + T
	//
	// Dot | Dotted Symbol | Item
	// ----+---------------+------------
	// 0   | E             | E →・E + T
	// 1   | +             | E → E・+ T
	// 2   | T             | E → E +・T
	// 3   | Nil           | E → E + T・
	dot          int
	dottedSymbol symbol

	// When initial is true, the LHS of the production is the augmented start symbol and dot is 0.
	// It looks like S' →・S.
	initial bool

	// When reducible is true, the item looks like E → E + T・.
	reducible bool

	// When kernel is true, the item is kernel item.
	kernel bool

	// lookAhead stores look-ahead symbols, and they are terminal symbols.
	// The item is reducible only when the look-ahead symbols appear as the next input symbol.
	lookAhead lookAhead
}

func newLR0Item(prod *production, dot int) (*lrItem, error) {
	if prod == nil {
		return nil, fmt.Errorf("production must be non-nil")
	}
	if dot < 0 || dot > prod.rhsLen {
		return nil, fmt.Errorf("dot must be between 0 and %v", prod.rhsLen)
	}

	dottedSymbol := symbolNil
	if dot < prod.rhsLen {
		dottedSymbol = prod.rhs[dot]
	}
	initial := prod.lhs.isStart() && dot == 0

	return &lrItem{
		id: lrItemID{
			prod: prod.num,
			dot:  dot,
		},
		prod:         prod,
		dot:          dot,
		dottedSymbol: dottedSymbol,
		initial:      initial,
		reducible:    dot == prod.rhsLen,
		kernel:       initial || dot > 0,
		lookAhead: lookAhead{
			symbols: newSymbolSet(),
		},
	}, nil
}

type kernelID string

type kernel struct {
	id    kernelID
	items []*lrItem
}

func newKernel(items []*lrItem) (*kernel, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("a kernel needs at least one item")
	}

	m := map[lrItemID]*lrItem{}
	for _, item := range items {
		if !item.kernel {
			return nil, fmt.Errorf("not a kernel item: %v", item.id)
		}
		m[item.id] = item
	}
	sortedItems := make([]*lrItem, 0, len(m))
	for _, item := range m {
		sortedItems = append(sortedItems, item)
	}
	slices.SortFunc(sortedItems, func(a, b *lrItem) int {
		if c := cmp.Compare(a.id.prod, b.id.prod); c != 0 {
			return c
		}
		return cmp.Compare(a.id.dot, b.id.dot)
	})

	// The ID lists the items in order so that equal kernels get equal IDs.
	ids := make([]string, len(sortedItems))
	for i, item := range sortedItems {
		ids[i] = item.id.String()
	}

	return &kernel{
		id:    kernelID(strings.Join(ids, ",")),
		items: sortedItems,
	}, nil
}

type stateNum int

const stateNumInitial = stateNum(0)

func (n stateNum) Int() int {
	return int(n)
}

func (n stateNum) String() string {
	return strconv.Itoa(int(n))
}

func (n stateNum) next() stateNum {
	return stateNum(n + 1)
}

type lrState struct {
	*kernel
	num       stateNum
	next      map[symbol]kernelID
	reducible map[productionNum]struct{}

	// emptyProdItems stores items that have an empty production like `p → ε` and is reducible.
	// Thus the items emptyProdItems stores are like `p → ・ε`. emptyProdItems is needed to store
	// look-ahead symbols because the kernel items don't include these items.
	emptyProdItems []*lrItem

	// shiftLHS maps a terminal to the LHS symbols of the closure items that shift it.
	// Declared conflicts are checked against it.
	shiftLHS map[symbol]symbolSet
}

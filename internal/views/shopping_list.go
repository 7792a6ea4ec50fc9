package views

import (
	"sync"

	"github.com/MarcoPoloResearchLab/basket/internal/aggregate"
	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/diff"
	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
)

// ShoppingListRow is one list line with the cheapest known price of its product.
type ShoppingListRow struct {
	Line     catalog.ShoppingListProduct
	Cheapest *catalog.PriceWithShop
}

// ShoppingListUpdate is published whenever the grouped list changes. Absent is true while the
// dataset has no shopping list.
type ShoppingListUpdate struct {
	Absent    bool
	ListID    string
	Sections  []diff.Section[ShoppingListRow]
	Diff      diff.Result
	Remaining int
	Completed int
}

// ShoppingList groups the enriched shopping list into category sections followed by the
// completed lines.
type ShoppingList struct {
	lifecycle
	source   ShoppingListSource
	onUpdate func(ShoppingListUpdate)

	mu        sync.Mutex
	current   ShoppingListUpdate
	published bool
}

// NewShoppingList constructs a stopped view. onUpdate runs with the view locked and must not
// call back into it.
func NewShoppingList(source ShoppingListSource, onUpdate func(ShoppingListUpdate)) *ShoppingList {
	if onUpdate == nil {
		onUpdate = func(ShoppingListUpdate) {}
	}
	return &ShoppingList{source: source, onUpdate: onUpdate}
}

// Start subscribes to the source. Starting a running view does nothing.
func (v *ShoppingList) Start() {
	v.lifecycle.start(func() []gateway.Handle {
		return v.source.ObserveShoppingList(v.receive)
	})
}

// Stop releases every subscription of the view.
func (v *ShoppingList) Stop() {
	v.lifecycle.stop()
}

// Current returns the last published state.
func (v *ShoppingList) Current() ShoppingListUpdate {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

func (v *ShoppingList) receive(list *catalog.EnrichedShoppingList) {
	v.mu.Lock()
	defer v.mu.Unlock()

	next := ShoppingListUpdate{Absent: list == nil}
	if list != nil {
		next.ListID = list.ID
		grouped := aggregate.GroupShoppingList(list.Products)
		next.Sections = mapSections(grouped, func(line catalog.ShoppingListProduct) ShoppingListRow {
			return ShoppingListRow{Line: line, Cheapest: aggregate.CheapestPrice(line.Product.PriceHistory)}
		})
		for _, line := range list.Products {
			if line.IsChecked {
				next.Completed++
			} else {
				next.Remaining++
			}
		}
	}
	next.Diff = diff.Calculate(v.current.Sections, next.Sections, func(row ShoppingListRow) string {
		return productKey(row.Line.Product)
	}, deepEqual[ShoppingListRow])

	if v.published && next.Diff.IsEmpty() && next.Absent == v.current.Absent && next.ListID == v.current.ListID {
		return
	}
	v.current = next
	v.published = true
	v.onUpdate(next)
}

package views

import (
	"sync"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
)

type fakeHandle struct {
	once    sync.Once
	release func()
}

func (h *fakeHandle) Release() {
	h.once.Do(h.release)
}

// fakeSource delivers synchronously to every live listener.
type fakeSource struct {
	mu            sync.Mutex
	products      map[int]func([]catalog.ProductWithPrices)
	lists         map[int]func(*catalog.EnrichedShoppingList)
	next          int
	handlesIssued int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		products: make(map[int]func([]catalog.ProductWithPrices)),
		lists:    make(map[int]func(*catalog.EnrichedShoppingList)),
	}
}

func (f *fakeSource) ObserveProductsWithPrices(onChange func([]catalog.ProductWithPrices)) []gateway.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	f.products[id] = onChange
	return f.handles(4, func() {
		f.mu.Lock()
		delete(f.products, id)
		f.mu.Unlock()
	})
}

func (f *fakeSource) ObserveShoppingList(onChange func(*catalog.EnrichedShoppingList)) []gateway.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	f.lists[id] = onChange
	return f.handles(5, func() {
		f.mu.Lock()
		delete(f.lists, id)
		f.mu.Unlock()
	})
}

// handles issues count handles; the listener is removed once all of them are released.
func (f *fakeSource) handles(count int, remove func()) []gateway.Handle {
	var mu sync.Mutex
	remaining := count
	handles := make([]gateway.Handle, 0, count)
	for index := 0; index < count; index++ {
		handles = append(handles, &fakeHandle{release: func() {
			mu.Lock()
			remaining--
			done := remaining == 0
			mu.Unlock()
			if done {
				remove()
			}
		}})
	}
	f.handlesIssued += count
	return handles
}

func (f *fakeSource) emitProducts(products []catalog.ProductWithPrices) {
	f.mu.Lock()
	listeners := make([]func([]catalog.ProductWithPrices), 0, len(f.products))
	for _, listener := range f.products {
		listeners = append(listeners, listener)
	}
	f.mu.Unlock()
	for _, listener := range listeners {
		listener(products)
	}
}

func (f *fakeSource) emitList(list *catalog.EnrichedShoppingList) {
	f.mu.Lock()
	listeners := make([]func(*catalog.EnrichedShoppingList), 0, len(f.lists))
	for _, listener := range f.lists {
		listeners = append(listeners, listener)
	}
	f.mu.Unlock()
	for _, listener := range listeners {
		listener(list)
	}
}

func (f *fakeSource) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.products) + len(f.lists)
}

func productWithPrices(id, name string, category catalog.Category, prices ...catalog.PriceWithShop) catalog.ProductWithPrices {
	return catalog.ProductWithPrices{
		Product:      catalog.Product{ID: id, Name: name, Category: category, AuthorID: "u-1"},
		Author:       catalog.User{ID: "u-1", DisplayName: "Ada"},
		PriceHistory: prices,
	}
}

func priceEntry(id, shopID string, amount float64, timestamp float64) catalog.PriceWithShop {
	return catalog.PriceWithShop{
		Price: catalog.Price{
			ID:        id,
			ShopID:    shopID,
			AuthorID:  "u-1",
			Timestamp: timestamp,
			Price:     amount,
			Quantity:  1,
			Unit:      catalog.UnitUnits,
		},
		Shop:   catalog.Shop{ID: shopID, Name: shopID},
		Author: catalog.User{ID: "u-1", DisplayName: "Ada"},
	}
}

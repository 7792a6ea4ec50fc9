package views

import (
	"reflect"
	"sync"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/diff"
	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
)

// ProductsSource feeds the joined product list. *repository.Combined satisfies it.
type ProductsSource interface {
	ObserveProductsWithPrices(onChange func([]catalog.ProductWithPrices)) []gateway.Handle
}

// ShoppingListSource feeds the enriched shopping list. *repository.Combined satisfies it.
type ShoppingListSource interface {
	ObserveShoppingList(onChange func(*catalog.EnrichedShoppingList)) []gateway.Handle
}

// lifecycle owns the handles of a running view.
type lifecycle struct {
	mu      sync.Mutex
	handles []gateway.Handle
}

func (l *lifecycle) start(subscribe func() []gateway.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handles != nil {
		return
	}
	l.handles = subscribe()
}

func (l *lifecycle) stop() {
	l.mu.Lock()
	handles := l.handles
	l.handles = nil
	l.mu.Unlock()
	gateway.ReleaseAll(handles)
}

func productKey(product catalog.ProductWithPrices) string {
	return product.Product.ID
}

func deepEqual[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}

func mapSections[T, U any](sections []diff.Section[T], convert func(T) U) []diff.Section[U] {
	mapped := make([]diff.Section[U], 0, len(sections))
	for _, section := range sections {
		items := make([]U, 0, len(section.Items))
		for _, item := range section.Items {
			items = append(items, convert(item))
		}
		mapped = append(mapped, diff.Section[U]{ID: section.ID, Title: section.Title, Items: items})
	}
	return mapped
}

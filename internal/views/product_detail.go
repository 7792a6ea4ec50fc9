package views

import (
	"reflect"
	"sync"

	"github.com/MarcoPoloResearchLab/basket/internal/aggregate"
	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
)

// ProductDetailUpdate describes one product's prices. Product is nil once the product is no
// longer visible.
type ProductDetailUpdate struct {
	Product  *catalog.ProductWithPrices
	History  []catalog.PriceWithShop
	ByShop   []catalog.PriceWithShop
	Cheapest *catalog.PriceWithShop
}

// ProductDetail follows a single product: its price history newest first and the
// representative price of every shop.
type ProductDetail struct {
	lifecycle
	source    ProductsSource
	productID string
	onUpdate  func(ProductDetailUpdate)

	mu        sync.Mutex
	current   ProductDetailUpdate
	published bool
}

// NewProductDetail constructs a stopped view of productID. onUpdate runs with the view locked
// and must not call back into it.
func NewProductDetail(source ProductsSource, productID string, onUpdate func(ProductDetailUpdate)) *ProductDetail {
	if onUpdate == nil {
		onUpdate = func(ProductDetailUpdate) {}
	}
	return &ProductDetail{source: source, productID: productID, onUpdate: onUpdate}
}

// Start subscribes to the source. Starting a running view does nothing.
func (v *ProductDetail) Start() {
	v.lifecycle.start(func() []gateway.Handle {
		return v.source.ObserveProductsWithPrices(v.receive)
	})
}

// Stop releases every subscription of the view.
func (v *ProductDetail) Stop() {
	v.lifecycle.stop()
}

// Current returns the last published state.
func (v *ProductDetail) Current() ProductDetailUpdate {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

func (v *ProductDetail) receive(products []catalog.ProductWithPrices) {
	v.mu.Lock()
	defer v.mu.Unlock()

	next := ProductDetailUpdate{}
	for _, product := range products {
		if product.Product.ID != v.productID {
			continue
		}
		found := product
		next.Product = &found
		next.History = aggregate.NewestFirst(product.PriceHistory)
		next.ByShop = aggregate.ShopRepresentatives(product.PriceHistory)
		next.Cheapest = aggregate.CheapestPrice(product.PriceHistory)
		break
	}
	if v.published && reflect.DeepEqual(next, v.current) {
		return
	}
	v.current = next
	v.published = true
	v.onUpdate(next)
}

package views

import (
	"strings"
	"sync"

	"github.com/MarcoPoloResearchLab/basket/internal/aggregate"
	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/diff"
	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
)

// ProductRow is one product line with its cheapest known price.
type ProductRow struct {
	Product  catalog.ProductWithPrices
	Cheapest *catalog.PriceWithShop
}

// ProductListUpdate is published whenever the visible rows change.
type ProductListUpdate struct {
	Sections []diff.Section[ProductRow]
	Diff     diff.Result
}

// ProductList groups the dataset's products by category, filtered by a search query.
// Rows are ordered by name and sections by category title.
type ProductList struct {
	lifecycle
	source   ProductsSource
	onUpdate func(ProductListUpdate)

	mu        sync.Mutex
	products  []catalog.ProductWithPrices
	query     string
	sections  []diff.Section[ProductRow]
	published bool
}

// NewProductList constructs a stopped view. onUpdate runs with the view locked and must not
// call back into it.
func NewProductList(source ProductsSource, onUpdate func(ProductListUpdate)) *ProductList {
	if onUpdate == nil {
		onUpdate = func(ProductListUpdate) {}
	}
	return &ProductList{source: source, onUpdate: onUpdate}
}

// Start subscribes to the source. Starting a running view does nothing.
func (v *ProductList) Start() {
	v.lifecycle.start(func() []gateway.Handle {
		return v.source.ObserveProductsWithPrices(v.receive)
	})
}

// Stop releases every subscription of the view.
func (v *ProductList) Stop() {
	v.lifecycle.stop()
}

// SetQuery filters rows to products whose name or description contains query, ignoring case.
func (v *ProductList) SetQuery(query string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = strings.ToLower(strings.TrimSpace(query))
	v.render()
}

// Sections returns the rows currently shown.
func (v *ProductList) Sections() []diff.Section[ProductRow] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sections
}

func (v *ProductList) receive(products []catalog.ProductWithPrices) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.products = products
	v.render()
}

func (v *ProductList) render() {
	visible := make([]ProductRow, 0, len(v.products))
	for _, product := range v.products {
		if !matchesQuery(product.Product, v.query) {
			continue
		}
		visible = append(visible, ProductRow{Product: product, Cheapest: aggregate.CheapestPrice(product.PriceHistory)})
	}
	sections := aggregate.GroupByCategory(visible, func(row ProductRow) catalog.Category {
		return row.Product.Product.Category
	}, lessByName)

	changes := diff.Calculate(v.sections, sections, func(row ProductRow) string {
		return productKey(row.Product)
	}, deepEqual[ProductRow])
	if v.published && changes.IsEmpty() {
		return
	}
	v.sections = sections
	v.published = true
	v.onUpdate(ProductListUpdate{Sections: sections, Diff: changes})
}

func matchesQuery(product catalog.Product, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(product.Name), query) ||
		strings.Contains(strings.ToLower(product.Description), query)
}

func lessByName(a, b ProductRow) bool {
	left, right := strings.ToLower(a.Product.Product.Name), strings.ToLower(b.Product.Product.Name)
	if left != right {
		return left < right
	}
	return a.Product.Product.ID < b.Product.Product.ID
}

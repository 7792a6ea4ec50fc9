package aggregate

import (
	"sort"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// UnitPrice normalises a price to the amount per unit, per 100g or per 100ml.
// It reports false when the quantity is not positive or the unit is unknown.
func UnitPrice(price catalog.Price) (decimal.Decimal, bool) {
	if price.Quantity <= 0 || !price.Unit.Valid() {
		return decimal.Zero, false
	}
	perUnit := decimal.NewFromFloat(price.Price).Div(decimal.NewFromFloat(price.Quantity))
	if price.Unit == catalog.UnitUnits {
		return perUnit, true
	}
	return perUnit.Mul(hundred), true
}

// UnitLabel names the measure UnitPrice normalises to.
func UnitLabel(unit catalog.Unit) string {
	switch unit {
	case catalog.UnitGrams:
		return "100g"
	case catalog.UnitMillilitres:
		return "100ml"
	default:
		return "unit"
	}
}

// FormatUnitPrice renders a price as e.g. "£0.36/100g"; empty when it cannot be normalised.
func FormatUnitPrice(price catalog.Price, currency catalog.Currency) string {
	amount, ok := UnitPrice(price)
	if !ok {
		return ""
	}
	return currency.Format(amount) + "/" + UnitLabel(price.Unit)
}

// ShopRepresentatives picks one price per shop, in order of each shop's first appearance.
// The first entry seen for a shop is held; a later entry replaces it only when it is both
// newer and strictly cheaper per unit. Entries that cannot be normalised are ignored.
func ShopRepresentatives(history []catalog.PriceWithShop) []catalog.PriceWithShop {
	type held struct {
		entry     catalog.PriceWithShop
		unitPrice decimal.Decimal
	}
	order := make([]string, 0)
	byShop := make(map[string]held)
	for _, entry := range history {
		unitPrice, ok := UnitPrice(entry.Price)
		if !ok {
			continue
		}
		shopID := entry.Shop.ID
		current, seen := byShop[shopID]
		if !seen {
			order = append(order, shopID)
			byShop[shopID] = held{entry: entry, unitPrice: unitPrice}
			continue
		}
		if entry.Price.Timestamp > current.entry.Price.Timestamp && unitPrice.LessThan(current.unitPrice) {
			byShop[shopID] = held{entry: entry, unitPrice: unitPrice}
		}
	}
	representatives := make([]catalog.PriceWithShop, 0, len(order))
	for _, shopID := range order {
		representatives = append(representatives, byShop[shopID].entry)
	}
	return representatives
}

// CheapestPrice returns the shop representative with the lowest unit price, or nil when no
// entry can be normalised. Ties go to the shop that appears first in history.
func CheapestPrice(history []catalog.PriceWithShop) *catalog.PriceWithShop {
	var cheapest *catalog.PriceWithShop
	var lowest decimal.Decimal
	for _, entry := range ShopRepresentatives(history) {
		unitPrice, _ := UnitPrice(entry.Price)
		if cheapest == nil || unitPrice.LessThan(lowest) {
			candidate := entry
			cheapest = &candidate
			lowest = unitPrice
		}
	}
	return cheapest
}

// NewestFirst returns a copy of history ordered by descending timestamp, ties by price id.
func NewestFirst(history []catalog.PriceWithShop) []catalog.PriceWithShop {
	ordered := append([]catalog.PriceWithShop(nil), history...)
	sort.SliceStable(ordered, func(i, j int) bool {
		left, right := ordered[i].Price, ordered[j].Price
		if left.Timestamp != right.Timestamp {
			return left.Timestamp > right.Timestamp
		}
		return left.ID < right.ID
	})
	return ordered
}

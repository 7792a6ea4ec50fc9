package repository

import "github.com/MarcoPoloResearchLab/basket/internal/catalog"

// JoinProductsWithPrices denormalises the four source collections. A product whose author is
// unknown is left out; a price whose shop or author is unknown is left out of its product's
// history. Output follows the order of products, and each history follows the order of prices.
func JoinProductsWithPrices(products []catalog.Product, shops []catalog.Shop, prices []catalog.Price, users []catalog.User) []catalog.ProductWithPrices {
	shopsByID := make(map[string]catalog.Shop, len(shops))
	for _, shop := range shops {
		shopsByID[shop.ID] = shop
	}
	usersByID := make(map[string]catalog.User, len(users))
	for _, user := range users {
		usersByID[user.ID] = user
	}
	historyByProduct := make(map[string][]catalog.PriceWithShop)
	for _, price := range prices {
		shop, ok := shopsByID[price.ShopID]
		if !ok {
			continue
		}
		author, ok := usersByID[price.AuthorID]
		if !ok {
			continue
		}
		historyByProduct[price.ProductID] = append(historyByProduct[price.ProductID], catalog.PriceWithShop{
			Price:  price,
			Shop:   shop,
			Author: author,
		})
	}

	joined := make([]catalog.ProductWithPrices, 0, len(products))
	for _, product := range products {
		author, ok := usersByID[product.AuthorID]
		if !ok {
			continue
		}
		history := historyByProduct[product.ID]
		if history == nil {
			history = []catalog.PriceWithShop{}
		}
		joined = append(joined, catalog.ProductWithPrices{
			Product:      product,
			Author:       author,
			PriceHistory: history,
		})
	}
	return joined
}

// EnrichShoppingList joins list lines against the denormalised products. Lines whose product
// is not in products are left out.
func EnrichShoppingList(list catalog.ShoppingList, products []catalog.ProductWithPrices) catalog.EnrichedShoppingList {
	productsByID := make(map[string]catalog.ProductWithPrices, len(products))
	for _, product := range products {
		productsByID[product.Product.ID] = product
	}
	enriched := catalog.EnrichedShoppingList{
		ID:       list.ID,
		Products: make([]catalog.ShoppingListProduct, 0, len(list.Items)),
	}
	for _, item := range list.Items {
		product, ok := productsByID[item.ProductID]
		if !ok {
			continue
		}
		enriched.Products = append(enriched.Products, catalog.ShoppingListProduct{
			Product:   product,
			IsChecked: item.IsChecked,
			Quantity:  item.Quantity,
			Unit:      item.Unit,
		})
	}
	return enriched
}

package repository

import "github.com/MarcoPoloResearchLab/basket/internal/gateway"

const (
	rootUsers        = "users"
	rootUserDataset  = "userDataset"
	rootDatasets     = "datasets"
	rootShops        = "shops"
	rootPrices       = "prices"
	rootPreferences  = "preferences"
	rootShoppingList = "shoppingList"
	rootInvites      = "invites"

	segmentPublicInfo = "publicInfo"
	segmentMembers    = "members"
	segmentProducts   = "products"
	fieldAuthorID     = "authorId"
)

func usersPath() gateway.Path {
	return gateway.NewPath(rootUsers)
}

func userPath(userID string) gateway.Path {
	return usersPath().Child(userID)
}

func userDatasetPath(userID string) gateway.Path {
	return gateway.NewPath(rootUserDataset, userID)
}

func datasetInfoPath(datasetID string) gateway.Path {
	return gateway.NewPath(rootDatasets, datasetID, segmentPublicInfo)
}

func datasetMemberPath(datasetID, userID string) gateway.Path {
	return datasetInfoPath(datasetID).Child(segmentMembers).Child(userID)
}

func productsPath(datasetID string) gateway.Path {
	return gateway.NewPath(rootDatasets, datasetID, segmentProducts)
}

func productPath(datasetID, productID string) gateway.Path {
	return productsPath(datasetID).Child(productID)
}

func shopsPath(datasetID string) gateway.Path {
	return gateway.NewPath(rootShops, datasetID)
}

func shopPath(datasetID, shopID string) gateway.Path {
	return shopsPath(datasetID).Child(shopID)
}

func pricesPath(datasetID string) gateway.Path {
	return gateway.NewPath(rootPrices, datasetID)
}

func productPricesPath(datasetID, productID string) gateway.Path {
	return pricesPath(datasetID).Child(productID)
}

func pricePath(datasetID, productID, priceID string) gateway.Path {
	return productPricesPath(datasetID, productID).Child(priceID)
}

func preferencesPath(datasetID string) gateway.Path {
	return gateway.NewPath(rootPreferences, datasetID)
}

func shoppingListPath(datasetID string) gateway.Path {
	return gateway.NewPath(rootShoppingList, datasetID)
}

func invitePath(code string) gateway.Path {
	return gateway.NewPath(rootInvites, code)
}

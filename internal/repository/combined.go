package repository

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/category"
	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
	"github.com/MarcoPoloResearchLab/basket/internal/metrics"
	"go.uber.org/zap"
)

const (
	opCombinedNew          = "combined.new"
	opAddProduct           = "combined.add_product"
	opUpdateProduct        = "combined.update_product"
	opDeleteProduct        = "combined.delete_product"
	opAddPrice             = "combined.add_price"
	opUpdatePrice          = "combined.update_price"
	opDeletePrice          = "combined.delete_price"
	opAddShop              = "combined.add_shop"
	opUpdateShop           = "combined.update_shop"
	opDeleteShop           = "combined.delete_shop"
	opUpdateShoppingList   = "combined.update_shopping_list"
	opAddToShoppingList    = "combined.add_to_shopping_list"
	opRemoveFromList       = "combined.remove_from_shopping_list"
	opSetItemChecked       = "combined.set_item_checked"
	opClearCompleted       = "combined.clear_completed"
	opUpdatePreferences    = "combined.update_user_preferences"
	opUpdateUser           = "combined.update_user"
	opDeleteUser           = "combined.delete_user"
	opDeleteAllUserData    = "combined.delete_all_user_data"
	opAnonymizeUserContent = "combined.anonymize_user_content"
	feedProductsWithPrices = "products_with_prices"
	feedShoppingList       = "shopping_list"
)

// CombinedConfig describes the dependencies of a Combined repository.
type CombinedConfig struct {
	Gateway    *gateway.Gateway
	DatasetID  string
	IDProvider catalog.IDProvider
	Classifier category.Classifier
	Clock      func() time.Time
	Logger     *zap.Logger
	Metrics    *metrics.Registry
}

// Combined merges the dataset's products, shops, prices and users into denormalised feeds and
// carries the compound mutations that touch several entities. Mutations never patch a feed
// directly; their effect arrives through the next emission.
type Combined struct {
	gw         *gateway.Gateway
	datasetID  string
	stores     Stores
	idProvider catalog.IDProvider
	classifier category.Classifier
	clock      func() time.Time
	logger     *zap.Logger
	metrics    *metrics.Registry
	failure    failure
}

// NewCombined validates cfg and binds the entity repositories to the dataset.
func NewCombined(cfg CombinedConfig) (*Combined, error) {
	if cfg.IDProvider == nil {
		return nil, newServiceError(opCombinedNew, "missing_id_provider", errMissingIDProvider)
	}
	stores, err := NewStores(cfg.Gateway, cfg.DatasetID)
	if err != nil {
		return nil, err
	}
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = category.NewKeywordClassifier()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Combined{
		gw:         cfg.Gateway,
		datasetID:  cfg.DatasetID,
		stores:     stores,
		idProvider: cfg.IDProvider,
		classifier: classifier,
		clock:      clock,
		logger:     logger,
		metrics:    cfg.Metrics,
		failure:    failure{logger: logger, metrics: cfg.Metrics, message: "combined repository error"},
	}, nil
}

// DatasetID returns the dataset the repository is bound to.
func (c *Combined) DatasetID() string {
	return c.datasetID
}

// Stores exposes the underlying entity repositories.
func (c *Combined) Stores() Stores {
	return c.stores
}

// ObserveProductsWithPrices emits the joined product list after every emission of any of the
// four sources. All four returned handles must be released to stop the merge.
func (c *Combined) ObserveProductsWithPrices(onChange func([]catalog.ProductWithPrices)) []gateway.Handle {
	var (
		products []catalog.Product
		shops    []catalog.Shop
		prices   []catalog.Price
		users    []catalog.User
	)
	recompute := func() {
		c.metrics.ObserveRecompute(feedProductsWithPrices)
		onChange(JoinProductsWithPrices(products, shops, prices, users))
	}
	return []gateway.Handle{
		c.stores.Products.Observe(func(latest []catalog.Product) {
			products = latest
			recompute()
		}),
		c.stores.Shops.Observe(func(latest []catalog.Shop) {
			shops = latest
			recompute()
		}),
		c.stores.Prices.Observe(func(latest []catalog.Price) {
			prices = latest
			recompute()
		}),
		c.stores.Users.Observe(func(latest []catalog.User) {
			users = latest
			recompute()
		}),
	}
}

// ObserveShoppingList emits the enriched shopping list whenever the list or the joined
// products change. It emits nil while the dataset has no list; nothing is emitted before the
// list has been read once.
func (c *Combined) ObserveShoppingList(onChange func(*catalog.EnrichedShoppingList)) []gateway.Handle {
	var (
		products     []catalog.ProductWithPrices
		list         *catalog.ShoppingList
		listReceived bool
	)
	recompute := func() {
		if !listReceived {
			return
		}
		c.metrics.ObserveRecompute(feedShoppingList)
		if list == nil {
			onChange(nil)
			return
		}
		enriched := EnrichShoppingList(*list, products)
		onChange(&enriched)
	}
	handles := c.ObserveProductsWithPrices(func(latest []catalog.ProductWithPrices) {
		products = latest
		recompute()
	})
	return append(handles, c.stores.ShoppingLists.Observe(func(latest *catalog.ShoppingList) {
		list = latest
		listReceived = true
		recompute()
	}))
}

// ObserveShops emits the dataset's shops ordered by key.
func (c *Combined) ObserveShops(onChange func([]catalog.Shop)) gateway.Handle {
	return c.stores.Shops.Observe(onChange)
}

// ObserveUserPreferences emits the dataset preferences, defaulted while unset.
func (c *Combined) ObserveUserPreferences(onChange func(catalog.UserPreferences)) gateway.Handle {
	return c.stores.Preferences.Observe(onChange)
}

// AddProduct classifies and stores a new product authored by authorID.
func (c *Combined) AddProduct(ctx context.Context, input catalog.ProductInput, authorID string) (catalog.Product, error) {
	input, err := catalog.NewProductInput(input.Name, input.Description)
	if err != nil {
		return catalog.Product{}, newServiceError(opAddProduct, "invalid_input", err)
	}
	productID, err := c.idProvider.NewID()
	if err != nil {
		return catalog.Product{}, c.failure.record(opAddProduct, "id_generation_failed", err)
	}
	product := catalog.Product{
		ID:          productID,
		Name:        input.Name,
		Description: input.Description,
		Category:    c.classifier.Classify(input.Name, input.Description),
		AuthorID:    authorID,
	}
	if err := c.stores.Products.Add(ctx, product); err != nil {
		return catalog.Product{}, c.failure.record(opAddProduct, "write_failed", err, zap.String("product_id", productID))
	}
	return product, nil
}

// UpdateProduct replaces a stored product.
func (c *Combined) UpdateProduct(ctx context.Context, product catalog.Product) error {
	if err := catalog.ValidateProduct(product); err != nil {
		return newServiceError(opUpdateProduct, "invalid_input", err)
	}
	if product.Category == "" {
		product.Category = c.classifier.Classify(product.Name, product.Description)
	}
	if err := c.stores.Products.Update(ctx, product); err != nil {
		return c.failure.record(opUpdateProduct, reasonFor(err), err, zap.String("product_id", product.ID))
	}
	return nil
}

// DeleteProduct removes the product and then its price history.
func (c *Combined) DeleteProduct(ctx context.Context, productID string) error {
	if err := c.stores.Products.Delete(ctx, productID); err != nil {
		return c.failure.record(opDeleteProduct, reasonFor(err), err, zap.String("product_id", productID))
	}
	if err := c.stores.Prices.DeleteForProduct(ctx, productID); err != nil {
		return c.failure.record(opDeleteProduct, "prices_delete_failed", err, zap.String("product_id", productID))
	}
	return nil
}

// AddPrice records a new price observation authored by authorID at the current time.
func (c *Combined) AddPrice(ctx context.Context, input catalog.PriceInput, authorID string) (catalog.Price, error) {
	if err := input.Validate(); err != nil {
		return catalog.Price{}, newServiceError(opAddPrice, "invalid_input", err)
	}
	priceID, err := c.idProvider.NewID()
	if err != nil {
		return catalog.Price{}, c.failure.record(opAddPrice, "id_generation_failed", err)
	}
	price := catalog.Price{
		ID:        priceID,
		ProductID: input.ProductID,
		ShopID:    input.ShopID,
		AuthorID:  authorID,
		Timestamp: unixSeconds(c.clock()),
		Price:     input.Price,
		Quantity:  input.Quantity,
		Unit:      input.Unit,
		Notes:     input.Notes,
	}
	if err := c.stores.Prices.Add(ctx, price); err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrShopNotFound) {
			return catalog.Price{}, newServiceError(opAddPrice, "not_found", err)
		}
		return catalog.Price{}, c.failure.record(opAddPrice, "write_failed", err,
			zap.String("product_id", price.ProductID),
			zap.String("price_id", priceID))
	}
	return price, nil
}

// UpdatePrice replaces a stored price.
func (c *Combined) UpdatePrice(ctx context.Context, price catalog.Price) error {
	if err := catalog.ValidatePrice(price); err != nil {
		return newServiceError(opUpdatePrice, "invalid_input", err)
	}
	if err := c.stores.Prices.Update(ctx, price); err != nil {
		return c.failure.record(opUpdatePrice, reasonFor(err), err, zap.String("price_id", price.ID))
	}
	return nil
}

// DeletePrice removes one price of a product.
func (c *Combined) DeletePrice(ctx context.Context, productID, priceID string) error {
	if err := c.stores.Prices.Delete(ctx, productID, priceID); err != nil {
		return c.failure.record(opDeletePrice, reasonFor(err), err, zap.String("price_id", priceID))
	}
	return nil
}

// AddShop stores a new shop.
func (c *Combined) AddShop(ctx context.Context, name string) (catalog.Shop, error) {
	trimmed, err := catalog.NewShopName(name)
	if err != nil {
		return catalog.Shop{}, newServiceError(opAddShop, "invalid_input", err)
	}
	shopID, err := c.idProvider.NewID()
	if err != nil {
		return catalog.Shop{}, c.failure.record(opAddShop, "id_generation_failed", err)
	}
	shop := catalog.Shop{ID: shopID, Name: trimmed}
	if err := c.stores.Shops.Add(ctx, shop); err != nil {
		return catalog.Shop{}, c.failure.record(opAddShop, "write_failed", err, zap.String("shop_id", shopID))
	}
	return shop, nil
}

// UpdateShop renames a stored shop.
func (c *Combined) UpdateShop(ctx context.Context, shop catalog.Shop) error {
	trimmed, err := catalog.NewShopName(shop.Name)
	if err != nil {
		return newServiceError(opUpdateShop, "invalid_input", err)
	}
	shop.Name = trimmed
	if err := c.stores.Shops.Update(ctx, shop); err != nil {
		return c.failure.record(opUpdateShop, reasonFor(err), err, zap.String("shop_id", shop.ID))
	}
	return nil
}

// DeleteShop removes the shop and then every price recorded at it. The two steps are not
// atomic; prices left behind by a failed second step are hidden by the join.
func (c *Combined) DeleteShop(ctx context.Context, shopID string) error {
	if err := c.stores.Shops.Delete(ctx, shopID); err != nil {
		return c.failure.record(opDeleteShop, reasonFor(err), err, zap.String("shop_id", shopID))
	}
	prices, err := c.stores.Prices.List(ctx)
	if err != nil {
		return c.failure.record(opDeleteShop, "prices_read_failed", err, zap.String("shop_id", shopID))
	}
	orphaned := make([]catalog.Price, 0)
	for _, price := range prices {
		if price.ShopID == shopID {
			orphaned = append(orphaned, price)
		}
	}
	if err := c.stores.Prices.DeleteMany(ctx, orphaned); err != nil {
		return c.failure.record(opDeleteShop, "prices_delete_failed", err,
			zap.String("shop_id", shopID),
			zap.Int("prices", len(orphaned)))
	}
	return nil
}

// UpdateShoppingList replaces the dataset's shopping list.
func (c *Combined) UpdateShoppingList(ctx context.Context, list catalog.ShoppingList) error {
	if err := c.stores.ShoppingLists.Save(ctx, list); err != nil {
		return c.failure.record(opUpdateShoppingList, "write_failed", err)
	}
	return nil
}

// AddToShoppingList appends an unchecked line for productID, creating the list if needed.
// The product must exist in the dataset.
func (c *Combined) AddToShoppingList(ctx context.Context, productID string) error {
	product, err := c.stores.Products.Get(ctx, productID)
	if err != nil {
		return c.failure.record(opAddToShoppingList, "read_failed", err, zap.String("product_id", productID))
	}
	if product == nil {
		return newServiceError(opAddToShoppingList, "not_found", ErrProductNotFound)
	}
	return c.editShoppingList(ctx, opAddToShoppingList, true, func(list *catalog.ShoppingList) error {
		if list.IndexOf(productID) >= 0 {
			return ErrAlreadyInShoppingList
		}
		list.Items = append(list.Items, catalog.ShoppingListItem{ProductID: productID})
		return nil
	})
}

// RemoveFromShoppingList deletes the line at index.
func (c *Combined) RemoveFromShoppingList(ctx context.Context, index int) error {
	return c.editShoppingList(ctx, opRemoveFromList, false, func(list *catalog.ShoppingList) error {
		if index < 0 || index >= len(list.Items) {
			return ErrIndexOutOfRange
		}
		list.Items = append(list.Items[:index], list.Items[index+1:]...)
		return nil
	})
}

// SetItemChecked marks the line at index as checked or unchecked.
func (c *Combined) SetItemChecked(ctx context.Context, index int, checked bool) error {
	return c.editShoppingList(ctx, opSetItemChecked, false, func(list *catalog.ShoppingList) error {
		if index < 0 || index >= len(list.Items) {
			return ErrIndexOutOfRange
		}
		list.Items[index].IsChecked = checked
		return nil
	})
}

// ClearCompleted drops every checked line.
func (c *Combined) ClearCompleted(ctx context.Context) error {
	return c.editShoppingList(ctx, opClearCompleted, false, func(list *catalog.ShoppingList) error {
		remaining := list.Items[:0]
		for _, item := range list.Items {
			if !item.IsChecked {
				remaining = append(remaining, item)
			}
		}
		list.Items = remaining
		return nil
	})
}

// editShoppingList reads the list, applies edit and writes it back. Concurrent edits resolve
// as last writer wins.
func (c *Combined) editShoppingList(ctx context.Context, operation string, createMissing bool, edit func(*catalog.ShoppingList) error) error {
	list, err := c.stores.ShoppingLists.Get(ctx)
	if err != nil {
		return c.failure.record(operation, "read_failed", err)
	}
	if list == nil {
		if !createMissing {
			return newServiceError(operation, "invalid_input", ErrIndexOutOfRange)
		}
		listID, err := c.idProvider.NewID()
		if err != nil {
			return c.failure.record(operation, "id_generation_failed", err)
		}
		list = &catalog.ShoppingList{ID: listID, Items: []catalog.ShoppingListItem{}}
	}
	if err := edit(list); err != nil {
		return newServiceError(operation, "invalid_input", err)
	}
	if err := c.stores.ShoppingLists.Save(ctx, *list); err != nil {
		return c.failure.record(operation, "write_failed", err)
	}
	return nil
}

// UpdateUserPreferences stores the dataset preferences.
func (c *Combined) UpdateUserPreferences(ctx context.Context, preferences catalog.UserPreferences) error {
	currency, err := catalog.ParseCurrency(string(preferences.Currency))
	if err != nil {
		return newServiceError(opUpdatePreferences, "invalid_input", err)
	}
	preferences.Currency = currency
	if err := c.stores.Preferences.Save(ctx, preferences); err != nil {
		return c.failure.record(opUpdatePreferences, "write_failed", err)
	}
	return nil
}

// UpdateUser stores a user profile.
func (c *Combined) UpdateUser(ctx context.Context, user catalog.User) error {
	if user.ID == "" {
		return newServiceError(opUpdateUser, "missing_user_id", errMissingUserID)
	}
	displayName, err := catalog.NewDisplayName(user.DisplayName)
	if err != nil {
		return newServiceError(opUpdateUser, "invalid_input", err)
	}
	user.DisplayName = displayName
	if err := c.stores.Users.Save(ctx, user); err != nil {
		return c.failure.record(opUpdateUser, "write_failed", err, zap.String("user_id", user.ID))
	}
	return nil
}

// DeleteUser removes a user profile. Content authored by the user disappears from the joined
// feeds until it is anonymised or deleted.
func (c *Combined) DeleteUser(ctx context.Context, userID string) error {
	if userID == "" {
		return newServiceError(opDeleteUser, "missing_user_id", errMissingUserID)
	}
	if err := c.stores.Users.Delete(ctx, userID); err != nil {
		return c.failure.record(opDeleteUser, "write_failed", err, zap.String("user_id", userID))
	}
	return nil
}

// DeleteAllUserData removes every product authored by userID, then every price that belonged
// to those products or was authored by userID. A failed second step is reported without
// undoing the first.
func (c *Combined) DeleteAllUserData(ctx context.Context, userID string) error {
	if userID == "" {
		return newServiceError(opDeleteAllUserData, "missing_user_id", errMissingUserID)
	}
	products, err := c.stores.Products.List(ctx)
	if err != nil {
		return c.failure.record(opDeleteAllUserData, "products_read_failed", err, zap.String("user_id", userID))
	}
	removed := make(map[string]bool)
	productIDs := make([]string, 0)
	for _, product := range products {
		if product.AuthorID == userID {
			removed[product.ID] = true
			productIDs = append(productIDs, product.ID)
		}
	}
	if err := c.stores.Products.DeleteMany(ctx, productIDs); err != nil {
		return c.failure.record(opDeleteAllUserData, "products_delete_failed", err, zap.String("user_id", userID))
	}

	prices, err := c.stores.Prices.List(ctx)
	if err != nil {
		return c.failure.record(opDeleteAllUserData, "prices_read_failed", err, zap.String("user_id", userID))
	}
	doomed := make([]catalog.Price, 0)
	for _, price := range prices {
		if price.AuthorID == userID || removed[price.ProductID] {
			doomed = append(doomed, price)
		}
	}
	if err := c.stores.Prices.DeleteMany(ctx, doomed); err != nil {
		return c.failure.record(opDeleteAllUserData, "prices_delete_failed", err, zap.String("user_id", userID))
	}
	return nil
}

// AnonymizeUserContent re-points every product and price authored by userID at the anonymous
// author in one multi-path update, creating the anonymous profile alongside.
func (c *Combined) AnonymizeUserContent(ctx context.Context, userID string) error {
	if userID == "" {
		return newServiceError(opAnonymizeUserContent, "missing_user_id", errMissingUserID)
	}
	if userID == catalog.AnonymousUserID {
		return nil
	}
	products, err := c.stores.Products.List(ctx)
	if err != nil {
		return c.failure.record(opAnonymizeUserContent, "products_read_failed", err, zap.String("user_id", userID))
	}
	prices, err := c.stores.Prices.List(ctx)
	if err != nil {
		return c.failure.record(opAnonymizeUserContent, "prices_read_failed", err, zap.String("user_id", userID))
	}

	updates := map[gateway.Path]gateway.Update{
		userPath(catalog.AnonymousUserID): gateway.Set(catalog.User{
			ID:          catalog.AnonymousUserID,
			DisplayName: catalog.AnonymousDisplayName,
		}),
	}
	for _, product := range products {
		if product.AuthorID == userID {
			updates[productPath(c.datasetID, product.ID).Child(fieldAuthorID)] = gateway.Set(catalog.AnonymousUserID)
		}
	}
	for _, price := range prices {
		if price.AuthorID == userID {
			updates[pricePath(c.datasetID, price.ProductID, price.ID).Child(fieldAuthorID)] = gateway.Set(catalog.AnonymousUserID)
		}
	}
	if err := c.gw.UpdateMultiple(ctx, updates); err != nil {
		return c.failure.record(opAnonymizeUserContent, "write_failed", err,
			zap.String("user_id", userID),
			zap.Int("paths", len(updates)))
	}
	return nil
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrShopNotFound), errors.Is(err, ErrPriceNotFound):
		return "not_found"
	default:
		return "write_failed"
	}
}

func unixSeconds(moment time.Time) float64 {
	return float64(moment.UnixMilli()) / 1000
}

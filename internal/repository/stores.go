package repository

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
)

// ProductRepository stores the products of one dataset.
type ProductRepository interface {
	Add(ctx context.Context, product catalog.Product) error
	Update(ctx context.Context, product catalog.Product) error
	Delete(ctx context.Context, productID string) error
	DeleteMany(ctx context.Context, productIDs []string) error
	Get(ctx context.Context, productID string) (*catalog.Product, error)
	List(ctx context.Context) ([]catalog.Product, error)
	Observe(onChange func([]catalog.Product)) gateway.Handle
}

// ShopRepository stores the shops of one dataset.
type ShopRepository interface {
	Add(ctx context.Context, shop catalog.Shop) error
	Update(ctx context.Context, shop catalog.Shop) error
	Delete(ctx context.Context, shopID string) error
	List(ctx context.Context) ([]catalog.Shop, error)
	Observe(onChange func([]catalog.Shop)) gateway.Handle
}

// PriceRepository stores price observations grouped by product.
type PriceRepository interface {
	Add(ctx context.Context, price catalog.Price) error
	Update(ctx context.Context, price catalog.Price) error
	Delete(ctx context.Context, productID, priceID string) error
	DeleteForProduct(ctx context.Context, productID string) error
	DeleteMany(ctx context.Context, prices []catalog.Price) error
	List(ctx context.Context) ([]catalog.Price, error)
	Observe(onChange func([]catalog.Price)) gateway.Handle
}

// UserRepository stores the global user profiles.
type UserRepository interface {
	Save(ctx context.Context, user catalog.User) error
	Delete(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*catalog.User, error)
	Observe(onChange func([]catalog.User)) gateway.Handle
}

// PreferencesRepository stores the dataset-wide preferences.
type PreferencesRepository interface {
	Save(ctx context.Context, preferences catalog.UserPreferences) error
	Get(ctx context.Context) (catalog.UserPreferences, error)
	Observe(onChange func(catalog.UserPreferences)) gateway.Handle
}

// ShoppingListRepository stores the dataset's single shopping list.
type ShoppingListRepository interface {
	Save(ctx context.Context, list catalog.ShoppingList) error
	Get(ctx context.Context) (*catalog.ShoppingList, error)
	Observe(onChange func(*catalog.ShoppingList)) gateway.Handle
}

// DatasetRepository reads dataset documents and the per-user dataset pointer.
type DatasetRepository interface {
	Get(ctx context.Context, datasetID string) (*catalog.Dataset, error)
	UserDatasetID(ctx context.Context, userID string) (string, error)
	Observe(datasetID string, onChange func(*catalog.Dataset)) gateway.Handle
	ObserveUserDatasetID(userID string, onChange func(string)) gateway.Handle
}

// Stores groups the gateway-backed repositories of one dataset.
type Stores struct {
	Products      ProductRepository
	Shops         ShopRepository
	Prices        PriceRepository
	Users         UserRepository
	Preferences   PreferencesRepository
	ShoppingLists ShoppingListRepository
	Datasets      DatasetRepository
}

// NewStores binds every repository to datasetID on gw.
func NewStores(gw *gateway.Gateway, datasetID string) (Stores, error) {
	if gw == nil {
		return Stores{}, newServiceError("repository.stores.new", "missing_gateway", errMissingGateway)
	}
	if datasetID == "" {
		return Stores{}, newServiceError("repository.stores.new", "missing_dataset_id", errMissingDatasetID)
	}
	return Stores{
		Products:      &productStore{gw: gw, datasetID: datasetID},
		Shops:         &shopStore{gw: gw, datasetID: datasetID},
		Prices:        &priceStore{gw: gw, datasetID: datasetID},
		Users:         &userStore{gw: gw},
		Preferences:   &preferencesStore{gw: gw, datasetID: datasetID},
		ShoppingLists: &shoppingListStore{gw: gw, datasetID: datasetID},
		Datasets:      &datasetStore{gw: gw},
	}, nil
}

// conditional maps a failed existence guard to notFound.
func conditional(err error, notFound error) error {
	if errors.Is(err, gateway.ErrConditionFailed) {
		return notFound
	}
	return err
}

type productStore struct {
	gw        *gateway.Gateway
	datasetID string
}

func (s *productStore) Add(ctx context.Context, product catalog.Product) error {
	return s.gw.Create(ctx, productPath(s.datasetID, product.ID), product)
}

func (s *productStore) Update(ctx context.Context, product catalog.Product) error {
	path := productPath(s.datasetID, product.ID)
	err := s.gw.UpdateMultiple(ctx, map[gateway.Path]gateway.Update{path: gateway.Set(product)}, gateway.Exists(path))
	return conditional(err, ErrProductNotFound)
}

func (s *productStore) Delete(ctx context.Context, productID string) error {
	path := productPath(s.datasetID, productID)
	err := s.gw.UpdateMultiple(ctx, map[gateway.Path]gateway.Update{path: gateway.Delete()}, gateway.Exists(path))
	return conditional(err, ErrProductNotFound)
}

func (s *productStore) DeleteMany(ctx context.Context, productIDs []string) error {
	updates := make(map[gateway.Path]gateway.Update, len(productIDs))
	for _, productID := range productIDs {
		updates[productPath(s.datasetID, productID)] = gateway.Delete()
	}
	return s.gw.UpdateMultiple(ctx, updates)
}

func (s *productStore) Get(ctx context.Context, productID string) (*catalog.Product, error) {
	return gateway.GetValue[catalog.Product](ctx, s.gw, productPath(s.datasetID, productID))
}

func (s *productStore) List(ctx context.Context) ([]catalog.Product, error) {
	return gateway.GetList[catalog.Product](ctx, s.gw, productsPath(s.datasetID))
}

func (s *productStore) Observe(onChange func([]catalog.Product)) gateway.Handle {
	return gateway.ObserveList(s.gw, productsPath(s.datasetID), onChange)
}

type shopStore struct {
	gw        *gateway.Gateway
	datasetID string
}

func (s *shopStore) Add(ctx context.Context, shop catalog.Shop) error {
	return s.gw.Create(ctx, shopPath(s.datasetID, shop.ID), shop)
}

func (s *shopStore) Update(ctx context.Context, shop catalog.Shop) error {
	path := shopPath(s.datasetID, shop.ID)
	err := s.gw.UpdateMultiple(ctx, map[gateway.Path]gateway.Update{path: gateway.Set(shop)}, gateway.Exists(path))
	return conditional(err, ErrShopNotFound)
}

func (s *shopStore) Delete(ctx context.Context, shopID string) error {
	path := shopPath(s.datasetID, shopID)
	err := s.gw.UpdateMultiple(ctx, map[gateway.Path]gateway.Update{path: gateway.Delete()}, gateway.Exists(path))
	return conditional(err, ErrShopNotFound)
}

func (s *shopStore) List(ctx context.Context) ([]catalog.Shop, error) {
	return gateway.GetList[catalog.Shop](ctx, s.gw, shopsPath(s.datasetID))
}

func (s *shopStore) Observe(onChange func([]catalog.Shop)) gateway.Handle {
	return gateway.ObserveList(s.gw, shopsPath(s.datasetID), onChange)
}

type priceStore struct {
	gw        *gateway.Gateway
	datasetID string
}

// Add stores price only while both its product and its shop exist.
func (s *priceStore) Add(ctx context.Context, price catalog.Price) error {
	product := productPath(s.datasetID, price.ProductID)
	shop := shopPath(s.datasetID, price.ShopID)
	err := s.gw.UpdateMultiple(ctx,
		map[gateway.Path]gateway.Update{pricePath(s.datasetID, price.ProductID, price.ID): gateway.Set(price)},
		gateway.Exists(product), gateway.Exists(shop))
	var rejected *gateway.ConditionError
	if errors.As(err, &rejected) && rejected.Path == shop {
		return ErrShopNotFound
	}
	return conditional(err, ErrProductNotFound)
}

func (s *priceStore) Update(ctx context.Context, price catalog.Price) error {
	path := pricePath(s.datasetID, price.ProductID, price.ID)
	err := s.gw.UpdateMultiple(ctx, map[gateway.Path]gateway.Update{path: gateway.Set(price)}, gateway.Exists(path))
	return conditional(err, ErrPriceNotFound)
}

func (s *priceStore) Delete(ctx context.Context, productID, priceID string) error {
	path := pricePath(s.datasetID, productID, priceID)
	err := s.gw.UpdateMultiple(ctx, map[gateway.Path]gateway.Update{path: gateway.Delete()}, gateway.Exists(path))
	return conditional(err, ErrPriceNotFound)
}

func (s *priceStore) DeleteForProduct(ctx context.Context, productID string) error {
	return s.gw.Delete(ctx, productPricesPath(s.datasetID, productID))
}

func (s *priceStore) DeleteMany(ctx context.Context, prices []catalog.Price) error {
	updates := make(map[gateway.Path]gateway.Update, len(prices))
	for _, price := range prices {
		updates[pricePath(s.datasetID, price.ProductID, price.ID)] = gateway.Delete()
	}
	return s.gw.UpdateMultiple(ctx, updates)
}

func (s *priceStore) List(ctx context.Context) ([]catalog.Price, error) {
	return gateway.GetNestedUnkeyedList[catalog.Price](ctx, s.gw, pricesPath(s.datasetID))
}

func (s *priceStore) Observe(onChange func([]catalog.Price)) gateway.Handle {
	return gateway.ObserveNestedUnkeyedList(s.gw, pricesPath(s.datasetID), onChange)
}

type userStore struct {
	gw *gateway.Gateway
}

func (s *userStore) Save(ctx context.Context, user catalog.User) error {
	return s.gw.Create(ctx, userPath(user.ID), user)
}

func (s *userStore) Delete(ctx context.Context, userID string) error {
	return s.gw.Delete(ctx, userPath(userID))
}

func (s *userStore) Get(ctx context.Context, userID string) (*catalog.User, error) {
	return gateway.GetValue[catalog.User](ctx, s.gw, userPath(userID))
}

func (s *userStore) Observe(onChange func([]catalog.User)) gateway.Handle {
	return gateway.ObserveList(s.gw, usersPath(), onChange)
}

type preferencesStore struct {
	gw        *gateway.Gateway
	datasetID string
}

func (s *preferencesStore) Save(ctx context.Context, preferences catalog.UserPreferences) error {
	return s.gw.Create(ctx, preferencesPath(s.datasetID), preferences)
}

func (s *preferencesStore) Get(ctx context.Context) (catalog.UserPreferences, error) {
	stored, err := gateway.GetValue[catalog.UserPreferences](ctx, s.gw, preferencesPath(s.datasetID))
	if err != nil {
		return catalog.UserPreferences{}, err
	}
	return preferencesOrDefault(stored), nil
}

func (s *preferencesStore) Observe(onChange func(catalog.UserPreferences)) gateway.Handle {
	return gateway.Observe(s.gw, preferencesPath(s.datasetID), func(stored *catalog.UserPreferences) {
		onChange(preferencesOrDefault(stored))
	})
}

func preferencesOrDefault(stored *catalog.UserPreferences) catalog.UserPreferences {
	if stored == nil || stored.Currency == "" {
		return catalog.DefaultPreferences()
	}
	return *stored
}

type shoppingListStore struct {
	gw        *gateway.Gateway
	datasetID string
}

func (s *shoppingListStore) Save(ctx context.Context, list catalog.ShoppingList) error {
	return s.gw.Create(ctx, shoppingListPath(s.datasetID), list)
}

func (s *shoppingListStore) Get(ctx context.Context) (*catalog.ShoppingList, error) {
	return normalizeList(gateway.GetValue[catalog.ShoppingList](ctx, s.gw, shoppingListPath(s.datasetID)))
}

func (s *shoppingListStore) Observe(onChange func(*catalog.ShoppingList)) gateway.Handle {
	return gateway.Observe(s.gw, shoppingListPath(s.datasetID), func(list *catalog.ShoppingList) {
		list, _ = normalizeList(list, nil)
		onChange(list)
	})
}

// normalizeList gives a stored list a non-nil item slice; an empty list is stored as its id only.
func normalizeList(list *catalog.ShoppingList, err error) (*catalog.ShoppingList, error) {
	if err != nil || list == nil {
		return list, err
	}
	if list.Items == nil {
		list.Items = []catalog.ShoppingListItem{}
	}
	return list, nil
}

type datasetStore struct {
	gw *gateway.Gateway
}

func (s *datasetStore) Get(ctx context.Context, datasetID string) (*catalog.Dataset, error) {
	return normalizeDataset(gateway.GetValue[catalog.Dataset](ctx, s.gw, datasetInfoPath(datasetID)))
}

func (s *datasetStore) UserDatasetID(ctx context.Context, userID string) (string, error) {
	stored, err := gateway.GetValue[string](ctx, s.gw, userDatasetPath(userID))
	if err != nil || stored == nil {
		return "", err
	}
	return *stored, nil
}

func (s *datasetStore) Observe(datasetID string, onChange func(*catalog.Dataset)) gateway.Handle {
	return gateway.Observe(s.gw, datasetInfoPath(datasetID), func(dataset *catalog.Dataset) {
		dataset, _ = normalizeDataset(dataset, nil)
		onChange(dataset)
	})
}

// normalizeDataset gives a stored dataset a non-nil member map; a dataset without members
// is stored as its id only.
func normalizeDataset(dataset *catalog.Dataset, err error) (*catalog.Dataset, error) {
	if err != nil || dataset == nil {
		return dataset, err
	}
	if dataset.Members == nil {
		dataset.Members = map[string]bool{}
	}
	return dataset, nil
}

func (s *datasetStore) ObserveUserDatasetID(userID string, onChange func(string)) gateway.Handle {
	return gateway.Observe(s.gw, userDatasetPath(userID), func(stored *string) {
		if stored == nil {
			onChange("")
			return
		}
		onChange(*stored)
	})
}

package server

import (
	"context"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/category"
	"github.com/MarcoPoloResearchLab/basket/internal/diff"
	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
	"github.com/MarcoPoloResearchLab/basket/internal/metrics"
	"github.com/MarcoPoloResearchLab/basket/internal/repository"
	"github.com/MarcoPoloResearchLab/basket/internal/views"
	"go.uber.org/zap"
)

// workspaceSettings carries what every dataset workspace is built from.
type workspaceSettings struct {
	Gateway    *gateway.Gateway
	IDProvider catalog.IDProvider
	Classifier category.Classifier
	Clock      func() time.Time
	Logger     *zap.Logger
	Metrics    *metrics.Registry
	Realtime   *RealtimeDispatcher
}

// workspaces caches one Combined repository per dataset.
type workspaces struct {
	settings workspaceSettings
	mu       sync.Mutex
	items    map[string]*workspace
}

func newWorkspaces(settings workspaceSettings) *workspaces {
	return &workspaces{settings: settings, items: make(map[string]*workspace)}
}

func (w *workspaces) get(datasetID string) (*workspace, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.items[datasetID]; ok {
		return existing, nil
	}
	combined, err := repository.NewCombined(repository.CombinedConfig{
		Gateway:    w.settings.Gateway,
		DatasetID:  datasetID,
		IDProvider: w.settings.IDProvider,
		Classifier: w.settings.Classifier,
		Clock:      w.settings.Clock,
		Logger:     w.settings.Logger,
		Metrics:    w.settings.Metrics,
	})
	if err != nil {
		return nil, err
	}
	created := &workspace{
		datasetID: datasetID,
		combined:  combined,
		loop:      w.settings.Gateway.Loop(),
		realtime:  w.settings.Realtime,
		clock:     w.settings.Clock,
		currency:  catalog.DefaultPreferences().Currency,
	}
	w.items[datasetID] = created
	return created, nil
}

// closeAll stops every live feed.
func (w *workspaces) closeAll() {
	w.mu.Lock()
	items := make([]*workspace, 0, len(w.items))
	for _, item := range w.items {
		items = append(items, item)
	}
	w.mu.Unlock()
	for _, item := range items {
		item.stopLive()
	}
}

// workspace is a dataset's Combined repository plus the live views that feed stream clients.
// The live views run while at least one stream is attached. lifecycle serialises attach and
// detach so starting and stopping the views never interleave.
type workspace struct {
	datasetID string
	combined  *repository.Combined
	loop      *gateway.Loop
	realtime  *RealtimeDispatcher
	clock     func() time.Time

	lifecycle    sync.Mutex
	mu           sync.Mutex
	attached     int
	products     *views.ProductList
	shoppingList *views.ShoppingList
	preferences  gateway.Handle
	currency     catalog.Currency
	lastProducts *RealtimeMessage
	lastList     *RealtimeMessage
}

// liveFeeds are the running views of a workspace, detached from it for stopping.
type liveFeeds struct {
	products     *views.ProductList
	shoppingList *views.ShoppingList
	preferences  gateway.Handle
}

func (f liveFeeds) stop() {
	if f.products != nil {
		f.products.Stop()
	}
	if f.shoppingList != nil {
		f.shoppingList.Stop()
	}
	if f.preferences != nil {
		f.preferences.Release()
	}
}

// attach starts the live views for the first stream and returns the latest cached events.
func (ws *workspace) attach() []RealtimeMessage {
	ws.lifecycle.Lock()
	defer ws.lifecycle.Unlock()

	ws.mu.Lock()
	ws.attached++
	var cached []RealtimeMessage
	if ws.lastProducts != nil {
		cached = append(cached, *ws.lastProducts)
	}
	if ws.lastList != nil {
		cached = append(cached, *ws.lastList)
	}
	if ws.products != nil {
		ws.mu.Unlock()
		return cached
	}
	products := views.NewProductList(ws.combined, ws.publishProducts)
	shoppingList := views.NewShoppingList(ws.combined, ws.publishShoppingList)
	ws.products, ws.shoppingList = products, shoppingList
	ws.mu.Unlock()

	preferences := ws.combined.ObserveUserPreferences(func(preferences catalog.UserPreferences) {
		ws.mu.Lock()
		ws.currency = preferences.Currency
		ws.mu.Unlock()
	})
	ws.mu.Lock()
	ws.preferences = preferences
	ws.mu.Unlock()
	products.Start()
	shoppingList.Start()
	return cached
}

// detach stops the live views once the last stream has gone.
func (ws *workspace) detach() {
	ws.lifecycle.Lock()
	defer ws.lifecycle.Unlock()

	ws.mu.Lock()
	if ws.attached > 0 {
		ws.attached--
	}
	if ws.attached > 0 {
		ws.mu.Unlock()
		return
	}
	feeds := ws.takeLiveLocked()
	ws.mu.Unlock()
	feeds.stop()
}

func (ws *workspace) stopLive() {
	ws.lifecycle.Lock()
	defer ws.lifecycle.Unlock()

	ws.mu.Lock()
	feeds := ws.takeLiveLocked()
	ws.mu.Unlock()
	feeds.stop()
}

// takeLiveLocked clears the running views and cached events. ws.mu must be held.
func (ws *workspace) takeLiveLocked() liveFeeds {
	feeds := liveFeeds{products: ws.products, shoppingList: ws.shoppingList, preferences: ws.preferences}
	ws.products, ws.shoppingList, ws.preferences = nil, nil, nil
	ws.lastProducts, ws.lastList = nil, nil
	return feeds
}

func (ws *workspace) currentCurrency() catalog.Currency {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.currency
}

func (ws *workspace) publishProducts(update views.ProductListUpdate) {
	changes := update.Diff
	message := RealtimeMessage{
		DatasetID: ws.datasetID,
		EventType: RealtimeEventProducts,
		Payload:   newProductListPayload(update.Sections, &changes, ws.currentCurrency()),
		Timestamp: ws.clock().UTC(),
	}
	ws.mu.Lock()
	ws.lastProducts = &message
	ws.mu.Unlock()
	ws.realtime.Publish(message)
}

func (ws *workspace) publishShoppingList(update views.ShoppingListUpdate) {
	message := RealtimeMessage{
		DatasetID: ws.datasetID,
		EventType: RealtimeEventShoppingList,
		Payload:   newShoppingListPayload(update, true, ws.currentCurrency()),
		Timestamp: ws.clock().UTC(),
	}
	ws.mu.Lock()
	ws.lastList = &message
	ws.mu.Unlock()
	ws.realtime.Publish(message)
}

// productSections reads the product list once through a short-lived view.
func (ws *workspace) productSections(ctx context.Context, query string) ([]diff.Section[views.ProductRow], error) {
	view := views.NewProductList(ws.combined, nil)
	if err := ws.settle(ctx, view); err != nil {
		return nil, err
	}
	defer view.Stop()
	view.SetQuery(query)
	return view.Sections(), nil
}

// productDetail reads one product's history once through a short-lived view.
func (ws *workspace) productDetail(ctx context.Context, productID string) (views.ProductDetailUpdate, error) {
	view := views.NewProductDetail(ws.combined, productID, nil)
	if err := ws.settle(ctx, view); err != nil {
		return views.ProductDetailUpdate{}, err
	}
	defer view.Stop()
	return view.Current(), nil
}

// shoppingListSnapshot reads the grouped shopping list once through a short-lived view.
func (ws *workspace) shoppingListSnapshot(ctx context.Context) (views.ShoppingListUpdate, error) {
	view := views.NewShoppingList(ws.combined, nil)
	if err := ws.settle(ctx, view); err != nil {
		return views.ShoppingListUpdate{}, err
	}
	defer view.Stop()
	return view.Current(), nil
}

type startStopper interface {
	Start()
	Stop()
}

// settle starts view and waits until the initial delivery of each of its sources has run,
// so the view reflects every source rather than the first one to arrive.
func (ws *workspace) settle(ctx context.Context, view startStopper) error {
	view.Start()
	if err := ws.loop.Wait(ctx); err != nil {
		view.Stop()
		return err
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testDatasetID = "ds-1"

type sequenceIDs struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func (s *sequenceIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%03d", s.prefix, s.next), nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repository.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&gateway.Node{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return database
}

func newTestGateway(t *testing.T, database *gorm.DB) *gateway.Gateway {
	t.Helper()
	gw, err := gateway.New(gateway.Config{Database: database})
	if err != nil {
		t.Fatalf("failed to construct gateway: %v", err)
	}
	t.Cleanup(gw.Close)
	return gw
}

func newTestCombined(t *testing.T, logger *zap.Logger) (*Combined, *gateway.Gateway, *testClock) {
	t.Helper()
	gw := newTestGateway(t, openTestDatabase(t))
	clock := newTestClock()
	combined, err := NewCombined(CombinedConfig{
		Gateway:    gw,
		DatasetID:  testDatasetID,
		IDProvider: &sequenceIDs{prefix: "id"},
		Clock:      clock.Now,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("failed to construct combined repository: %v", err)
	}
	return combined, gw, clock
}

// settle waits until every delivery triggered so far has run.
func settle(t *testing.T, gw *gateway.Gateway) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := gw.Loop().Wait(ctx); err != nil {
		t.Fatalf("deliveries did not settle: %v", err)
	}
}

// recorder keeps every emission of a feed.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) record(value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, value)
}

func (r *recorder[T]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

func (r *recorder[T]) latest(t *testing.T) T {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		t.Fatalf("expected at least one emission")
	}
	return r.values[len(r.values)-1]
}

func mustSaveUser(t *testing.T, combined *Combined, id, name string) {
	t.Helper()
	if err := combined.UpdateUser(context.Background(), catalog.User{ID: id, DisplayName: name}); err != nil {
		t.Fatalf("failed to save user: %v", err)
	}
}

func mustAddShop(t *testing.T, combined *Combined, name string) catalog.Shop {
	t.Helper()
	shop, err := combined.AddShop(context.Background(), name)
	if err != nil {
		t.Fatalf("failed to add shop: %v", err)
	}
	return shop
}

func mustAddProduct(t *testing.T, combined *Combined, name, authorID string) catalog.Product {
	t.Helper()
	product, err := combined.AddProduct(context.Background(), catalog.ProductInput{Name: name}, authorID)
	if err != nil {
		t.Fatalf("failed to add product: %v", err)
	}
	return product
}

func mustAddPrice(t *testing.T, combined *Combined, productID, shopID, authorID string, amount float64) catalog.Price {
	t.Helper()
	price, err := combined.AddPrice(context.Background(), catalog.PriceInput{
		ProductID: productID,
		ShopID:    shopID,
		Price:     amount,
		Quantity:  1,
		Unit:      catalog.UnitUnits,
	}, authorID)
	if err != nil {
		t.Fatalf("failed to add price: %v", err)
	}
	return price
}

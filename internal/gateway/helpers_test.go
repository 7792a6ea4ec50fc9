package gateway

import (
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const deliveryTimeout = 2 * time.Second

type testRecord struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price,omitempty"`
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "gateway.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&Node{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	gw, err := New(Config{Database: database})
	if err != nil {
		t.Fatalf("failed to construct gateway: %v", err)
	}
	t.Cleanup(gw.Close)
	return gw
}

func receive[T any](t *testing.T, stream chan T) T {
	t.Helper()
	select {
	case value := <-stream:
		return value
	case <-time.After(deliveryTimeout):
		t.Fatal("expected delivery within deadline")
	}
	var zero T
	return zero
}

func expectSilence[T any](t *testing.T, stream chan T) {
	t.Helper()
	select {
	case value := <-stream:
		t.Fatalf("did not expect delivery, got %#v", value)
	case <-time.After(150 * time.Millisecond):
	}
}

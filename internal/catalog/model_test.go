package catalog

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestEntitiesRoundTripThroughWireFormat(t *testing.T) {
	quantity := 2.0
	unit := UnitUnits
	tests := []struct {
		name  string
		value any
		into  func() any
	}{
		{
			name:  "product",
			value: &Product{ID: "p-1", Name: "Oat milk", Description: "1L carton", Category: "Dairy & Eggs", AuthorID: "u-1"},
			into:  func() any { return &Product{} },
		},
		{
			name:  "price",
			value: &Price{ID: "pr-1", ProductID: "p-1", ShopID: "s-1", AuthorID: "u-1", Timestamp: 1700000000, Price: 1.35, Quantity: 1000, Unit: UnitMillilitres, Notes: "multipack"},
			into:  func() any { return &Price{} },
		},
		{
			name:  "shop",
			value: &Shop{ID: "s-1", Name: "Corner Shop"},
			into:  func() any { return &Shop{} },
		},
		{
			name:  "user",
			value: &User{ID: "u-1", DisplayName: "Sam"},
			into:  func() any { return &User{} },
		},
		{
			name:  "dataset",
			value: &Dataset{ID: "d-1", Members: map[string]bool{"u-1": true, "u-2": true}},
			into:  func() any { return &Dataset{} },
		},
		{
			name: "shopping list",
			value: &ShoppingList{ID: "l-1", Items: []ShoppingListItem{
				{ProductID: "p-1", IsChecked: true},
				{ProductID: "p-2", Quantity: &quantity, Unit: &unit},
			}},
			into: func() any { return &ShoppingList{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := json.Marshal(tt.value)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			decoded := tt.into()
			if err := json.Unmarshal(encoded, decoded); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if !reflect.DeepEqual(decoded, tt.value) {
				t.Fatalf("round trip mismatch: got %#v want %#v", decoded, tt.value)
			}
		})
	}
}

func TestParseUnit(t *testing.T) {
	unit, err := ParseUnit(" Grams ")
	if err != nil || unit != UnitGrams {
		t.Fatalf("expected grams, got %q (%v)", unit, err)
	}
	if _, err := ParseUnit(""); !errors.Is(err, ErrInvalidUnit) {
		t.Fatalf("expected invalid unit for empty input, got %v", err)
	}
	if _, err := ParseUnit("pounds"); !errors.Is(err, ErrInvalidUnit) {
		t.Fatalf("expected invalid unit for pounds, got %v", err)
	}
}

func TestCurrencyFormat(t *testing.T) {
	if got := CurrencyEUR.Format(decimal.NewFromFloat(2.5)); got != "€2.50" {
		t.Fatalf("unexpected euro rendering %q", got)
	}
	if got := Currency("").Format(decimal.NewFromInt(3)); got != "£3.00" {
		t.Fatalf("expected pound fallback, got %q", got)
	}
	if _, err := ParseCurrency("yen"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected invalid currency, got %v", err)
	}
}

func TestInviteExpiry(t *testing.T) {
	invite := Invite{Code: "ABC123", ExpiresAt: 1700000000}
	if invite.Expired(time.Unix(1700000000, 0)) {
		t.Fatalf("invite should still be valid at its expiry instant")
	}
	if !invite.Expired(time.Unix(1700000001, 0)) {
		t.Fatalf("invite should be expired after its expiry instant")
	}
}

func TestPriceInputValidate(t *testing.T) {
	base := PriceInput{ProductID: "p", ShopID: "s", Price: 1, Quantity: 1, Unit: UnitUnits}
	tests := []struct {
		name   string
		mutate func(*PriceInput)
		want   error
	}{
		{name: "valid", mutate: func(*PriceInput) {}, want: nil},
		{name: "missing shop", mutate: func(in *PriceInput) { in.ShopID = " " }, want: ErrEmptyShop},
		{name: "zero price", mutate: func(in *PriceInput) { in.Price = 0 }, want: ErrEmptyPrice},
		{name: "zero quantity", mutate: func(in *PriceInput) { in.Quantity = 0 }, want: ErrEmptyQuantity},
		{name: "bad unit", mutate: func(in *PriceInput) { in.Unit = "" }, want: ErrInvalidUnit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := base
			tt.mutate(&input)
			if err := input.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestShopOrderingIgnoresCase(t *testing.T) {
	apple := Shop{ID: "2", Name: "apple market"}
	banana := Shop{ID: "1", Name: "Banana Bazaar"}
	if !apple.Less(banana) {
		t.Fatalf("expected case-insensitive ordering")
	}
	if !apple.SameName(Shop{ID: "3", Name: "APPLE MARKET"}) {
		t.Fatalf("expected case-insensitive equality")
	}
}

func TestNewPriceInputParsesUnit(t *testing.T) {
	input, err := NewPriceInput(" p-1 ", "s-1", 1.5, 500, "Grams", " offer ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input.ProductID != "p-1" || input.Unit != UnitGrams || input.Notes != "offer" {
		t.Fatalf("unexpected input %#v", input)
	}
	if _, err := NewPriceInput("p-1", "s-1", 1.5, 500, "kg", ""); !errors.Is(err, ErrInvalidUnit) {
		t.Fatalf("expected invalid unit, got %v", err)
	}
}

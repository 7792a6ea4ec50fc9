package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Unit enumerates the measures a price quantity can be expressed in.
type Unit string

const (
	// UnitGrams prices by weight; per-unit comparisons use 100g.
	UnitGrams Unit = "grams"
	// UnitMillilitres prices by volume; per-unit comparisons use 100ml.
	UnitMillilitres Unit = "millilitres"
	// UnitUnits prices by item count.
	UnitUnits Unit = "units"
)

// ErrInvalidUnit indicates that a unit is empty or not one of the supported measures.
var ErrInvalidUnit = errors.New("catalog: invalid unit")

// ParseUnit validates raw input and returns a Unit.
func ParseUnit(rawInput string) (Unit, error) {
	switch Unit(strings.ToLower(strings.TrimSpace(rawInput))) {
	case UnitGrams:
		return UnitGrams, nil
	case UnitMillilitres:
		return UnitMillilitres, nil
	case UnitUnits:
		return UnitUnits, nil
	case "":
		return "", fmt.Errorf("%w: empty", ErrInvalidUnit)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidUnit, rawInput)
	}
}

// Valid reports whether the unit is one of the supported measures.
func (u Unit) Valid() bool {
	return u == UnitGrams || u == UnitMillilitres || u == UnitUnits
}

// Currency enumerates the display currencies a dataset can pick.
type Currency string

const (
	CurrencyGBP Currency = "gbp"
	CurrencyEUR Currency = "eur"
	CurrencyUSD Currency = "usd"
)

// ErrInvalidCurrency indicates an unsupported currency code.
var ErrInvalidCurrency = errors.New("catalog: invalid currency")

// ParseCurrency validates raw input and returns a Currency.
func ParseCurrency(rawInput string) (Currency, error) {
	switch Currency(strings.ToLower(strings.TrimSpace(rawInput))) {
	case CurrencyGBP:
		return CurrencyGBP, nil
	case CurrencyEUR:
		return CurrencyEUR, nil
	case CurrencyUSD:
		return CurrencyUSD, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, rawInput)
	}
}

// Symbol returns the currency sign used when rendering amounts.
func (c Currency) Symbol() string {
	switch c {
	case CurrencyEUR:
		return "€"
	case CurrencyUSD:
		return "$"
	default:
		return "£"
	}
}

// Format renders the amount with two decimal places and the currency sign.
func (c Currency) Format(amount decimal.Decimal) string {
	return c.Symbol() + amount.StringFixed(2)
}

// Category is the human readable grouping title assigned to a product.
type Category string

// CategoryOther is the fallback when no classification applies.
const CategoryOther Category = "Other"

// String returns the category title.
func (c Category) String() string {
	return string(c)
}

// AnonymousUserID is the author that anonymised contributions are re-pointed at.
const AnonymousUserID = "anonymous"

// AnonymousDisplayName is shown for anonymised contributions.
const AnonymousDisplayName = "Anonymous"

// Product is a catalogued grocery item shared within a dataset.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	AuthorID    string   `json:"authorId"`
}

// Shop is a place where prices are recorded.
type Shop struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Less orders shops by case-insensitive name, falling back to id for stability.
func (s Shop) Less(other Shop) bool {
	left, right := strings.ToLower(s.Name), strings.ToLower(other.Name)
	if left != right {
		return left < right
	}
	return s.ID < other.ID
}

// SameName reports whether two shops carry the same name ignoring case.
func (s Shop) SameName(other Shop) bool {
	return strings.EqualFold(s.Name, other.Name)
}

// Price is an append-only observation of what a product cost at a shop.
type Price struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	ShopID    string  `json:"shopId"`
	AuthorID  string  `json:"authorId"`
	Timestamp float64 `json:"timestamp"`
	Price     float64 `json:"price"`
	Quantity  float64 `json:"quantity"`
	Unit      Unit    `json:"unit"`
	Notes     string  `json:"notes"`
}

// RecordedAt converts the wire timestamp (unix seconds) to a time.Time.
func (p Price) RecordedAt() time.Time {
	seconds, fraction := math.Modf(p.Timestamp)
	return time.Unix(int64(seconds), int64(fraction*float64(time.Second))).UTC()
}

// User is the globally visible profile referenced as author.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// UserPreferences holds the dataset-wide display settings.
type UserPreferences struct {
	Currency Currency `json:"currency"`
}

// DefaultPreferences is used until a dataset stores its own preferences.
func DefaultPreferences() UserPreferences {
	return UserPreferences{Currency: CurrencyGBP}
}

// ShoppingListItem is the stored form of one shopping list line.
type ShoppingListItem struct {
	ProductID string   `json:"productId"`
	IsChecked bool     `json:"isChecked"`
	Quantity  *float64 `json:"quantity,omitempty"`
	Unit      *Unit    `json:"unit,omitempty"`
}

// ShoppingList is the single list kept per dataset.
type ShoppingList struct {
	ID    string             `json:"id"`
	Items []ShoppingListItem `json:"items"`
}

// IndexOf returns the position of the item for productID, or -1.
func (l ShoppingList) IndexOf(productID string) int {
	for index, item := range l.Items {
		if item.ProductID == productID {
			return index
		}
	}
	return -1
}

// Dataset is the sharing boundary: members see the same products, shops, prices and list.
type Dataset struct {
	ID      string          `json:"id"`
	Members map[string]bool `json:"members"`
}

// HasMember reports whether userID is flagged as a member.
func (d Dataset) HasMember(userID string) bool {
	return d.Members[userID]
}

// Invite is a single-use code that lets another user join a dataset.
type Invite struct {
	Code      string  `json:"code"`
	DatasetID string  `json:"datasetId"`
	InvitedBy string  `json:"invitedBy"`
	CreatedAt float64 `json:"createdAt"`
	ExpiresAt float64 `json:"expiresAt"`
}

// Expired reports whether the invite can no longer be redeemed at now.
func (i Invite) Expired(now time.Time) bool {
	return float64(now.Unix()) > i.ExpiresAt
}

// PriceWithShop is a price resolved against its shop and author.
type PriceWithShop struct {
	Price  Price
	Shop   Shop
	Author User
}

// ProductWithPrices is a product joined with its resolvable price history.
type ProductWithPrices struct {
	Product      Product
	Author       User
	PriceHistory []PriceWithShop
}

// ShoppingListProduct is a shopping list line joined with its product.
type ShoppingListProduct struct {
	Product   ProductWithPrices
	IsChecked bool
	Quantity  *float64
	Unit      *Unit
}

// EnrichedShoppingList is the display form of a dataset's shopping list.
type EnrichedShoppingList struct {
	ID       string
	Products []ShoppingListProduct
}

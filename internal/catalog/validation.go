package catalog

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyName indicates a product without a name.
	ErrEmptyName = errors.New("catalog: name is required")
	// ErrEmptyShopName indicates a shop without a name.
	ErrEmptyShopName = errors.New("catalog: shop name is required")
	// ErrEmptyShop indicates a price that does not reference a shop.
	ErrEmptyShop = errors.New("catalog: shop is required")
	// ErrEmptyProduct indicates a price that does not reference a product.
	ErrEmptyProduct = errors.New("catalog: product is required")
	// ErrEmptyPrice indicates a missing or non-positive price.
	ErrEmptyPrice = errors.New("catalog: price is required")
	// ErrEmptyQuantity indicates a missing or non-positive quantity.
	ErrEmptyQuantity = errors.New("catalog: quantity is required")
	// ErrEmptyDisplayName indicates a user profile without a display name.
	ErrEmptyDisplayName = errors.New("catalog: display name is required")
)

// ProductInput carries the user-editable fields of a new product.
type ProductInput struct {
	Name        string
	Description string
}

// NewProductInput trims and validates the fields of a new product.
func NewProductInput(name, description string) (ProductInput, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ProductInput{}, ErrEmptyName
	}
	return ProductInput{Name: trimmed, Description: strings.TrimSpace(description)}, nil
}

// NewShopName trims and validates a shop name.
func NewShopName(rawInput string) (string, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", ErrEmptyShopName
	}
	return trimmed, nil
}

// PriceInput carries the user-editable fields of a new price observation.
type PriceInput struct {
	ProductID string
	ShopID    string
	Price     float64
	Quantity  float64
	Unit      Unit
	Notes     string
}

// NewPriceInput parses the unit, trims the identifiers and validates the result.
func NewPriceInput(productID, shopID string, price, quantity float64, rawUnit, notes string) (PriceInput, error) {
	unit, err := ParseUnit(rawUnit)
	if err != nil {
		return PriceInput{}, err
	}
	input := PriceInput{
		ProductID: strings.TrimSpace(productID),
		ShopID:    strings.TrimSpace(shopID),
		Price:     price,
		Quantity:  quantity,
		Unit:      unit,
		Notes:     strings.TrimSpace(notes),
	}
	if err := input.Validate(); err != nil {
		return PriceInput{}, err
	}
	return input, nil
}

// Validate reports the first missing field.
func (in PriceInput) Validate() error {
	if strings.TrimSpace(in.ProductID) == "" {
		return ErrEmptyProduct
	}
	if strings.TrimSpace(in.ShopID) == "" {
		return ErrEmptyShop
	}
	if in.Price <= 0 {
		return ErrEmptyPrice
	}
	if in.Quantity <= 0 {
		return ErrEmptyQuantity
	}
	if !in.Unit.Valid() {
		return ErrInvalidUnit
	}
	return nil
}

// ValidateProduct checks an edited product before it is written.
func ValidateProduct(product Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// ValidatePrice checks an edited price before it is written.
func ValidatePrice(price Price) error {
	return PriceInput{
		ProductID: price.ProductID,
		ShopID:    price.ShopID,
		Price:     price.Price,
		Quantity:  price.Quantity,
		Unit:      price.Unit,
	}.Validate()
}

// NewDisplayName trims and validates a user's display name.
func NewDisplayName(rawInput string) (string, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", ErrEmptyDisplayName
	}
	return trimmed, nil
}

package server

import (
	"github.com/MarcoPoloResearchLab/basket/internal/aggregate"
	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/diff"
	"github.com/MarcoPoloResearchLab/basket/internal/views"
)

type authResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
	DatasetID   string `json:"dataset_id"`
}

type userPayload struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type shopPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type pricePayload struct {
	ID            string      `json:"id"`
	ProductID     string      `json:"product_id"`
	Shop          shopPayload `json:"shop"`
	Author        userPayload `json:"author"`
	Timestamp     float64     `json:"timestamp"`
	Price         float64     `json:"price"`
	Quantity      float64     `json:"quantity"`
	Unit          string      `json:"unit"`
	Notes         string      `json:"notes,omitempty"`
	FormattedUnit string      `json:"unit_price,omitempty"`
}

type productPayload struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Author      userPayload   `json:"author"`
	Cheapest    *pricePayload `json:"cheapest,omitempty"`
}

type productDetailPayload struct {
	Product  productPayload `json:"product"`
	History  []pricePayload `json:"history"`
	ByShop   []pricePayload `json:"by_shop"`
	Currency string         `json:"currency"`
}

type sectionPayload[T any] struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Items []T    `json:"items"`
}

type indexPathPayload struct {
	Section int `json:"section"`
	Row     int `json:"row"`
}

type diffPayload struct {
	InsertedSections []int              `json:"inserted_sections"`
	DeletedSections  []int              `json:"deleted_sections"`
	InsertedRows     []indexPathPayload `json:"inserted_rows"`
	DeletedRows      []indexPathPayload `json:"deleted_rows"`
	UpdatedRows      []indexPathPayload `json:"updated_rows"`
}

type productListPayload struct {
	Sections []sectionPayload[productPayload] `json:"sections"`
	Diff     *diffPayload                     `json:"diff,omitempty"`
	Currency string                           `json:"currency"`
}

type shoppingListItemPayload struct {
	Product   productPayload `json:"product"`
	IsChecked bool           `json:"is_checked"`
	Quantity  *float64       `json:"quantity,omitempty"`
	Unit      *string        `json:"unit,omitempty"`
}

type shoppingListPayload struct {
	Absent    bool                                      `json:"absent"`
	ListID    string                                    `json:"list_id,omitempty"`
	Sections  []sectionPayload[shoppingListItemPayload] `json:"sections"`
	Diff      *diffPayload                              `json:"diff,omitempty"`
	Remaining int                                       `json:"remaining"`
	Completed int                                       `json:"completed"`
	Currency  string                                    `json:"currency"`
}

type preferencesPayload struct {
	Currency string `json:"currency"`
}

type invitePayload struct {
	Code      string  `json:"code"`
	DatasetID string  `json:"dataset_id"`
	ExpiresAt float64 `json:"expires_at"`
}

func newPricePayload(entry catalog.PriceWithShop, currency catalog.Currency) pricePayload {
	return pricePayload{
		ID:            entry.Price.ID,
		ProductID:     entry.Price.ProductID,
		Shop:          shopPayload{ID: entry.Shop.ID, Name: entry.Shop.Name},
		Author:        userPayload{ID: entry.Author.ID, DisplayName: entry.Author.DisplayName},
		Timestamp:     entry.Price.Timestamp,
		Price:         entry.Price.Price,
		Quantity:      entry.Price.Quantity,
		Unit:          string(entry.Price.Unit),
		Notes:         entry.Price.Notes,
		FormattedUnit: aggregate.FormatUnitPrice(entry.Price, currency),
	}
}

func newPricePayloads(entries []catalog.PriceWithShop, currency catalog.Currency) []pricePayload {
	payloads := make([]pricePayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, newPricePayload(entry, currency))
	}
	return payloads
}

func newProductPayload(product catalog.ProductWithPrices, cheapest *catalog.PriceWithShop, currency catalog.Currency) productPayload {
	payload := productPayload{
		ID:          product.Product.ID,
		Name:        product.Product.Name,
		Description: product.Product.Description,
		Category:    product.Product.Category.String(),
		Author:      userPayload{ID: product.Author.ID, DisplayName: product.Author.DisplayName},
	}
	if cheapest != nil {
		price := newPricePayload(*cheapest, currency)
		payload.Cheapest = &price
	}
	return payload
}

func newDiffPayload(result diff.Result) *diffPayload {
	convert := func(paths []diff.IndexPath) []indexPathPayload {
		converted := make([]indexPathPayload, 0, len(paths))
		for _, path := range paths {
			converted = append(converted, indexPathPayload{Section: path.Section, Row: path.Row})
		}
		return converted
	}
	return &diffPayload{
		InsertedSections: append([]int{}, result.InsertedSections...),
		DeletedSections:  append([]int{}, result.DeletedSections...),
		InsertedRows:     convert(result.InsertedRows),
		DeletedRows:      convert(result.DeletedRows),
		UpdatedRows:      convert(result.UpdatedRows),
	}
}

func newProductListPayload(sections []diff.Section[views.ProductRow], changes *diff.Result, currency catalog.Currency) productListPayload {
	payload := productListPayload{
		Sections: make([]sectionPayload[productPayload], 0, len(sections)),
		Currency: string(currency),
	}
	for _, section := range sections {
		items := make([]productPayload, 0, len(section.Items))
		for _, row := range section.Items {
			items = append(items, newProductPayload(row.Product, row.Cheapest, currency))
		}
		payload.Sections = append(payload.Sections, sectionPayload[productPayload]{ID: section.ID, Title: section.Title, Items: items})
	}
	if changes != nil {
		payload.Diff = newDiffPayload(*changes)
	}
	return payload
}

// newShoppingListPayload renders the grouped list. Lines are addressed by product id.
func newShoppingListPayload(update views.ShoppingListUpdate, includeDiff bool, currency catalog.Currency) shoppingListPayload {
	payload := shoppingListPayload{
		Absent:    update.Absent,
		ListID:    update.ListID,
		Sections:  make([]sectionPayload[shoppingListItemPayload], 0, len(update.Sections)),
		Remaining: update.Remaining,
		Completed: update.Completed,
		Currency:  string(currency),
	}
	for _, section := range update.Sections {
		items := make([]shoppingListItemPayload, 0, len(section.Items))
		for _, row := range section.Items {
			item := shoppingListItemPayload{
				Product:   newProductPayload(row.Line.Product, row.Cheapest, currency),
				IsChecked: row.Line.IsChecked,
				Quantity:  row.Line.Quantity,
			}
			if row.Line.Unit != nil {
				unit := string(*row.Line.Unit)
				item.Unit = &unit
			}
			items = append(items, item)
		}
		payload.Sections = append(payload.Sections, sectionPayload[shoppingListItemPayload]{ID: section.ID, Title: section.Title, Items: items})
	}
	if includeDiff {
		payload.Diff = newDiffPayload(update.Diff)
	}
	return payload
}

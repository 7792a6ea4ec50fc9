package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/repository"
	"github.com/gin-gonic/gin"
)

type productRequestPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type priceRequestPayload struct {
	ShopID   string  `json:"shop_id"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Notes    string  `json:"notes"`
}

type shopRequestPayload struct {
	Name string `json:"name"`
}

func (h *httpHandler) handleListProducts(c *gin.Context) {
	ws := currentWorkspace(c)
	ctx, cancel := h.readContext(c)
	defer cancel()

	preferences, err := ws.combined.Stores().Preferences.Get(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	sections, err := ws.productSections(ctx, c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProductListPayload(sections, nil, preferences.Currency))
}

func (h *httpHandler) handleProductDetail(c *gin.Context) {
	ws := currentWorkspace(c)
	ctx, cancel := h.readContext(c)
	defer cancel()

	preferences, err := ws.combined.Stores().Preferences.Get(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	detail, err := ws.productDetail(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if detail.Product == nil {
		h.respondError(c, repository.ErrProductNotFound)
		return
	}
	currency := preferences.Currency
	c.JSON(http.StatusOK, productDetailPayload{
		Product:  newProductPayload(*detail.Product, detail.Cheapest, currency),
		History:  newPricePayloads(detail.History, currency),
		ByShop:   newPricePayloads(detail.ByShop, currency),
		Currency: string(currency),
	})
}

func (h *httpHandler) handleAddProduct(c *gin.Context) {
	var request productRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	input, err := catalog.NewProductInput(request.Name, request.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}
	product, err := currentWorkspace(c).combined.AddProduct(c.Request.Context(), input, c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":          product.ID,
		"name":        product.Name,
		"description": product.Description,
		"category":    product.Category.String(),
	})
}

// handleUpdateProduct edits name and description, and the category when one is given.
func (h *httpHandler) handleUpdateProduct(c *gin.Context) {
	var request productRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	ws := currentWorkspace(c)
	ctx := c.Request.Context()
	products, err := ws.combined.Stores().Products.List(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	productID := c.Param("id")
	var product *catalog.Product
	for index := range products {
		if products[index].ID == productID {
			product = &products[index]
			break
		}
	}
	if product == nil {
		h.respondError(c, repository.ErrProductNotFound)
		return
	}
	product.Name = strings.TrimSpace(request.Name)
	product.Description = strings.TrimSpace(request.Description)
	if category := strings.TrimSpace(request.Category); category != "" {
		product.Category = catalog.Category(category)
	}
	if err := ws.combined.UpdateProduct(ctx, *product); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleDeleteProduct(c *gin.Context) {
	if err := currentWorkspace(c).combined.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddPrice(c *gin.Context) {
	var request priceRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	input, err := catalog.NewPriceInput(c.Param("id"), request.ShopID, request.Price, request.Quantity, request.Unit, request.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	price, err := currentWorkspace(c).combined.AddPrice(c.Request.Context(), input, c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": price.ID, "timestamp": price.Timestamp})
}

func (h *httpHandler) handleDeletePrice(c *gin.Context) {
	if err := currentWorkspace(c).combined.DeletePrice(c.Request.Context(), c.Param("id"), c.Param("priceId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListShops(c *gin.Context) {
	shops, err := currentWorkspace(c).combined.Stores().Shops.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	sort.SliceStable(shops, func(i, j int) bool { return shops[i].Less(shops[j]) })
	response := make([]shopPayload, 0, len(shops))
	for _, shop := range shops {
		response = append(response, shopPayload{ID: shop.ID, Name: shop.Name})
	}
	c.JSON(http.StatusOK, gin.H{"shops": response})
}

func (h *httpHandler) handleAddShop(c *gin.Context) {
	var request shopRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	shop, err := currentWorkspace(c).combined.AddShop(c.Request.Context(), request.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shopPayload{ID: shop.ID, Name: shop.Name})
}

func (h *httpHandler) handleUpdateShop(c *gin.Context) {
	var request shopRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	shop := catalog.Shop{ID: c.Param("id"), Name: request.Name}
	if err := currentWorkspace(c).combined.UpdateShop(c.Request.Context(), shop); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleDeleteShop(c *gin.Context) {
	if err := currentWorkspace(c).combined.DeleteShop(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

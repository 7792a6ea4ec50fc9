package server

import (
	"context"
	"net/http"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/repository"
	"github.com/gin-gonic/gin"
)

type shoppingListItemRequestPayload struct {
	ProductID string `json:"product_id"`
}

type checkedRequestPayload struct {
	IsChecked *bool `json:"is_checked"`
}

type displayNameRequestPayload struct {
	DisplayName string `json:"display_name"`
}

type joinRequestPayload struct {
	Code string `json:"code"`
}

func (h *httpHandler) handleShoppingList(c *gin.Context) {
	ws := currentWorkspace(c)
	ctx, cancel := h.readContext(c)
	defer cancel()

	preferences, err := ws.combined.Stores().Preferences.Get(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	snapshot, err := ws.shoppingListSnapshot(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newShoppingListPayload(snapshot, false, preferences.Currency))
}

func (h *httpHandler) handleAddToShoppingList(c *gin.Context) {
	var request shoppingListItemRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	if request.ProductID == "" {
		h.respondError(c, catalog.ErrEmptyProduct)
		return
	}
	if err := currentWorkspace(c).combined.AddToShoppingList(c.Request.Context(), request.ProductID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleSetItemChecked(c *gin.Context) {
	var request checkedRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	if request.IsChecked == nil {
		h.respondError(c, errInvalidRequest)
		return
	}
	ws := currentWorkspace(c)
	ctx := c.Request.Context()
	index, err := lineIndex(ctx, ws, c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := ws.combined.SetItemChecked(ctx, index, *request.IsChecked); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleRemoveFromShoppingList(c *gin.Context) {
	ws := currentWorkspace(c)
	ctx := c.Request.Context()
	index, err := lineIndex(ctx, ws, c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := ws.combined.RemoveFromShoppingList(ctx, index); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleClearCompleted(c *gin.Context) {
	if err := currentWorkspace(c).combined.ClearCompleted(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// lineIndex finds the stored position of the product's shopping list line.
func lineIndex(ctx context.Context, ws *workspace, productID string) (int, error) {
	list, err := ws.combined.Stores().ShoppingLists.Get(ctx)
	if err != nil {
		return -1, err
	}
	if list == nil {
		return -1, repository.ErrIndexOutOfRange
	}
	index := list.IndexOf(productID)
	if index < 0 {
		return -1, repository.ErrIndexOutOfRange
	}
	return index, nil
}

func (h *httpHandler) handleGetPreferences(c *gin.Context) {
	preferences, err := currentWorkspace(c).combined.Stores().Preferences.Get(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preferencesPayload{Currency: string(preferences.Currency)})
}

func (h *httpHandler) handleUpdatePreferences(c *gin.Context) {
	var request preferencesPayload
	if !h.bindJSON(c, &request) {
		return
	}
	preferences := catalog.UserPreferences{Currency: catalog.Currency(request.Currency)}
	if err := currentWorkspace(c).combined.UpdateUserPreferences(c.Request.Context(), preferences); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleUpdateMe(c *gin.Context) {
	var request displayNameRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	user := catalog.User{ID: c.GetString(userIDContextKey), DisplayName: request.DisplayName}
	if err := currentWorkspace(c).combined.UpdateUser(c.Request.Context(), user); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleDeleteMyData(c *gin.Context) {
	if err := currentWorkspace(c).combined.DeleteAllUserData(c.Request.Context(), c.GetString(userIDContextKey)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAnonymizeMe(c *gin.Context) {
	if err := currentWorkspace(c).combined.AnonymizeUserContent(c.Request.Context(), c.GetString(userIDContextKey)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleCreateInvite(c *gin.Context) {
	invite, err := h.membership.CreateInvite(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invitePayload{Code: invite.Code, DatasetID: invite.DatasetID, ExpiresAt: invite.ExpiresAt})
}

func (h *httpHandler) handleJoinDataset(c *gin.Context) {
	var request joinRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	datasetID, err := h.membership.JoinDataset(c.Request.Context(), c.GetString(userIDContextKey), request.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dataset_id": datasetID})
}

// handleLeaveDataset drops the caller's membership and binds the caller to a fresh dataset.
func (h *httpHandler) handleLeaveDataset(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString(userIDContextKey)
	if err := h.membership.LeaveDataset(ctx, userID); err != nil {
		h.respondError(c, err)
		return
	}
	datasetID, err := h.membership.Resolve(ctx, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dataset_id": datasetID})
}

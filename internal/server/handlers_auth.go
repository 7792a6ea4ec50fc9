package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type signUpRequestPayload struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	DisplayName     string `json:"display_name"`
}

type signInRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSignUp registers the account, creates its dataset and profile, and signs the user in.
func (h *httpHandler) handleSignUp(c *gin.Context) {
	var request signUpRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	input, err := users.NewSignUpInput(request.Email, request.Password, request.ConfirmPassword, request.DisplayName)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	account, err := h.accounts.SignUp(ctx, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	datasetID, err := h.membership.SetupUserDataset(ctx, account.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ws, err := h.workspaces.get(datasetID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := ws.combined.UpdateUser(ctx, catalog.User{ID: account.UserID, DisplayName: input.DisplayName}); err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.Info("account created", zap.String("user_id", account.UserID), zap.String("dataset_id", datasetID))
	h.respondWithToken(c, http.StatusCreated, account.UserID, datasetID)
}

func (h *httpHandler) handleSignIn(c *gin.Context) {
	var request signInRequestPayload
	if !h.bindJSON(c, &request) {
		return
	}
	ctx := c.Request.Context()
	account, err := h.accounts.SignIn(ctx, request.Email, request.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	datasetID, err := h.membership.Resolve(ctx, account.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusOK, account.UserID, datasetID)
}

func (h *httpHandler) respondWithToken(c *gin.Context, status int, userID, datasetID string) {
	issued, err := h.tokens.IssueToken(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	c.JSON(status, authResponsePayload{
		AccessToken: issued.Token,
		ExpiresIn:   issued.ExpiresIn,
		TokenType:   "Bearer",
		UserID:      userID,
		DatasetID:   datasetID,
	})
}

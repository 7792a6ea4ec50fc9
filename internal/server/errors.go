package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/repository"
	"github.com/MarcoPoloResearchLab/basket/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	// ErrNotSignedIn rejects protected requests without a valid bearer token.
	ErrNotSignedIn = errors.New("not signed in")

	errMissingAccounts   = errors.New("account service dependency required")
	errMissingTokens     = errors.New("token manager dependency required")
	errMissingGateway    = errors.New("gateway dependency required")
	errMissingMembership = errors.New("membership dependency required")
	errInvalidRequest    = errors.New("invalid request")
)

type errorStatus struct {
	target error
	status int
	code   string
}

// errorStatuses maps domain errors onto responses. The first match wins.
var errorStatuses = []errorStatus{
	{target: errInvalidRequest, status: http.StatusBadRequest, code: "invalid_request"},
	{target: catalog.ErrEmptyName, status: http.StatusBadRequest, code: "empty_name"},
	{target: catalog.ErrEmptyShopName, status: http.StatusBadRequest, code: "empty_shop_name"},
	{target: catalog.ErrEmptyShop, status: http.StatusBadRequest, code: "empty_shop"},
	{target: catalog.ErrEmptyProduct, status: http.StatusBadRequest, code: "empty_product"},
	{target: catalog.ErrEmptyPrice, status: http.StatusBadRequest, code: "empty_price"},
	{target: catalog.ErrEmptyQuantity, status: http.StatusBadRequest, code: "empty_quantity"},
	{target: catalog.ErrInvalidUnit, status: http.StatusBadRequest, code: "invalid_unit"},
	{target: catalog.ErrInvalidCurrency, status: http.StatusBadRequest, code: "invalid_currency"},
	{target: catalog.ErrEmptyDisplayName, status: http.StatusBadRequest, code: "empty_display_name"},
	{target: users.ErrEmptyEmail, status: http.StatusBadRequest, code: "empty_email"},
	{target: users.ErrEmptyPassword, status: http.StatusBadRequest, code: "empty_password"},
	{target: users.ErrWeakPassword, status: http.StatusBadRequest, code: "weak_password"},
	{target: users.ErrPasswordMismatch, status: http.StatusBadRequest, code: "password_mismatch"},
	{target: repository.ErrEmptyInviteCode, status: http.StatusBadRequest, code: "empty_invite_code"},
	{target: users.ErrInvalidCredentials, status: http.StatusUnauthorized, code: "invalid_credentials"},
	{target: ErrNotSignedIn, status: http.StatusUnauthorized, code: "not_signed_in"},
	{target: repository.ErrNotInDataset, status: http.StatusForbidden, code: "not_in_dataset"},
	{target: repository.ErrProductNotFound, status: http.StatusNotFound, code: "product_not_found"},
	{target: repository.ErrShopNotFound, status: http.StatusNotFound, code: "shop_not_found"},
	{target: repository.ErrPriceNotFound, status: http.StatusNotFound, code: "price_not_found"},
	{target: repository.ErrIndexOutOfRange, status: http.StatusNotFound, code: "item_not_found"},
	{target: repository.ErrInviteNotFound, status: http.StatusNotFound, code: "invite_not_found"},
	{target: repository.ErrInviteExpired, status: http.StatusGone, code: "invite_expired"},
	{target: users.ErrEmailTaken, status: http.StatusConflict, code: "email_taken"},
	{target: repository.ErrAlreadyInShoppingList, status: http.StatusConflict, code: "already_in_shopping_list"},
	{target: repository.ErrDatasetUnreachable, status: http.StatusServiceUnavailable, code: "dataset_unreachable"},
}

func statusFor(err error) (int, string) {
	for _, candidate := range errorStatuses {
		if errors.Is(err, candidate.target) {
			return candidate.status, candidate.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError writes the mapped status. Unmapped errors are logged with the request route.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		fields := []zap.Field{zap.String("route", c.FullPath()), zap.Error(err)}
		var serviceErr *repository.ServiceError
		if errors.As(err, &serviceErr) {
			fields = append(fields, zap.String("code", serviceErr.Code()))
		}
		h.logger.Error("request failed", fields...)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}

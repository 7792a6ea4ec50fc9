package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/repository"
	"github.com/MarcoPoloResearchLab/basket/internal/users"
)

func TestStatusForMapsDomainErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{err: fmt.Errorf("wrapped: %w", catalog.ErrEmptyName), status: http.StatusBadRequest, code: "empty_name"},
		{err: catalog.ErrInvalidUnit, status: http.StatusBadRequest, code: "invalid_unit"},
		{err: users.ErrPasswordMismatch, status: http.StatusBadRequest, code: "password_mismatch"},
		{err: users.ErrInvalidCredentials, status: http.StatusUnauthorized, code: "invalid_credentials"},
		{err: repository.ErrProductNotFound, status: http.StatusNotFound, code: "product_not_found"},
		{err: repository.ErrInviteExpired, status: http.StatusGone, code: "invite_expired"},
		{err: repository.ErrAlreadyInShoppingList, status: http.StatusConflict, code: "already_in_shopping_list"},
		{err: errors.Join(repository.ErrDatasetUnreachable, errors.New("disk")), status: http.StatusServiceUnavailable, code: "dataset_unreachable"},
		{err: errors.New("boom"), status: http.StatusInternalServerError, code: "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := statusFor(tt.err)
			if status != tt.status || code != tt.code {
				t.Fatalf("statusFor(%v) = %d %q, want %d %q", tt.err, status, code, tt.status, tt.code)
			}
		})
	}
}

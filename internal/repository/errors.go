package repository

import (
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/basket/internal/metrics"
	"go.uber.org/zap"
)

var (
	// ErrProductNotFound indicates a product id that is not stored in the dataset.
	ErrProductNotFound = errors.New("product not found")
	// ErrShopNotFound indicates a shop id that is not stored in the dataset.
	ErrShopNotFound = errors.New("shop not found")
	// ErrPriceNotFound indicates a price id that is not stored for the product.
	ErrPriceNotFound = errors.New("price not found")
	// ErrIndexOutOfRange indicates a shopping list position outside the list.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrAlreadyInShoppingList indicates a product that is already on the list.
	ErrAlreadyInShoppingList = errors.New("product already in shopping list")
	// ErrDatasetUnreachable indicates that the user's dataset could not be resolved.
	ErrDatasetUnreachable = errors.New("dataset unreachable")
	// ErrNotInDataset indicates an operation that needs the user to belong to a dataset.
	ErrNotInDataset = errors.New("user is not in a dataset")
	// ErrInviteNotFound indicates an unknown or already redeemed invite code.
	ErrInviteNotFound = errors.New("invite not found")
	// ErrInviteExpired indicates an invite past its expiry.
	ErrInviteExpired = errors.New("invite expired")
	// ErrEmptyInviteCode indicates a join attempt without a code.
	ErrEmptyInviteCode = errors.New("invite code is required")

	errMissingGateway    = errors.New("gateway is required")
	errMissingDatasetID  = errors.New("dataset identifier is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingUserID     = errors.New("user identifier is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable "<operation>.<reason>" code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// failure logs and counts a failed operation and returns the matching ServiceError.
type failure struct {
	logger  *zap.Logger
	metrics *metrics.Registry
	message string
}

func (f failure) record(operation, reason string, err error, fields ...zap.Field) error {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	logger := f.logger
	if logger == nil {
		logger = noOpLogger
	}
	logger.Error(f.message, attrs...)
	f.metrics.ObserveMutationFailure(operation)
	return newServiceError(operation, reason, err)
}

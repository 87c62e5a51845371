package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrTransport        = errors.New("order store unreachable")
	ErrStoreConstraint  = errors.New("order store rejected the write")
	ErrOrderNotFound    = errors.New("order not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderWriteFailed = errors.New("order write failed")
	ErrConflict         = errors.New("order submission already in progress")
)

var (
	ErrEmptyCart         = fmt.Errorf("%w: cart is empty, nothing to checkout", ErrValidation)
	ErrUnauthenticated   = fmt.Errorf("%w: user not authenticated", ErrValidation)
	ErrNoPendingDeletion = fmt.Errorf("%w: no deletion pending for this order", ErrValidation)
	ErrInvalidTotal      = fmt.Errorf("%w: total must be an integer amount", ErrValidation)
	ErrInvalidQuantity   = fmt.Errorf("%w: line quantity must be positive", ErrValidation)
)

// WriteFailed wraps cause as an order write failure. kind is one of
// ErrTransport or ErrStoreConstraint, or nil when the cause is unclassified.
func WriteFailed(kind, cause error) error {
	if kind == nil {
		return fmt.Errorf("%w: %w", ErrOrderWriteFailed, cause)
	}
	return fmt.Errorf("%w: %w: %w", ErrOrderWriteFailed, kind, cause)
}

package models

import "errors"

var (
	// ErrInsufficientStock rejects a sale that would drive an inventory
	// quantity negative. Nothing is written when this is returned.
	ErrInsufficientStock = errors.New("insufficient stock on hand")

	// ErrNoInventoryRecord signals a reversal that expected an inventory
	// record which is missing. The operation in progress is aborted.
	ErrNoInventoryRecord = errors.New("inventory record not found")

	// ErrInconsistentState is surfaced when the commit or rollback of a
	// multi-entity mutation itself fails; the condition must be handled
	// operationally.
	ErrInconsistentState = errors.New("transaction left in inconsistent state")
)

// ValidationError covers malformed requests: missing items, non-positive
// quantity, overpayment, negative tender. It is always returned before any
// write.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

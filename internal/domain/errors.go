package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Not-found errors
	ErrEventNotFound       = errors.New("event not found")
	ErrReservationNotFound = errors.New("reservation not found")

	// Validation errors
	ErrInvalidUserID   = errors.New("invalid user id")
	ErrInvalidEventID  = errors.New("invalid event id")
	ErrInvalidQuantity = errors.New("quantity must be at least one")
	ErrInvalidStatus   = errors.New("unknown reservation status")

	// Business-rule conflicts. Expected under load, never logged as
	// system errors.
	ErrInsufficientSeats  = errors.New("insufficient seats available")
	ErrInvalidTransition  = errors.New("illegal status transition")
	ErrCapacityExceeded   = errors.New("seat restore would exceed total capacity")
	ErrTransitionConflict = errors.New("reservation was modified concurrently")
)

// InsufficientSeatsError reports a failed seat claim together with the
// current availability so the caller can retry with a smaller quantity.
type InsufficientSeatsError struct {
	EventID   string
	Requested int
	Available int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("insufficient seats for event %s: requested %d, %d available", e.EventID, e.Requested, e.Available)
}

func (e *InsufficientSeatsError) Unwrap() error {
	return ErrInsufficientSeats
}

// InvalidTransitionError reports a rejected status transition.
type InvalidTransitionError struct {
	From ReservationStatus
	To   ReservationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrReservationNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidStatus)
}

// IsConflictError checks if the error is an expected business-rule conflict
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInsufficientSeats) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrTransitionConflict)
}

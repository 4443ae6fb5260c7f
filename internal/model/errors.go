package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks a malformed request, rejected before any lock is taken.
	ErrValidation = errors.New("validation failed")

	// ErrCapacityExceeded is returned when a tier cannot cover the requested quantity.
	ErrCapacityExceeded = errors.New("insufficient capacity")

	// ErrPaymentDeclined is returned when the payment collaborator rejects a charge.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrBookingClosed is returned when the event has already taken place.
	ErrBookingClosed = errors.New("booking is closed for this event")

	// ErrArtifactGeneration marks a QR or certificate generation failure.
	ErrArtifactGeneration = errors.New("artifact generation failed")

	// ErrNotification marks a failed email delivery.
	ErrNotification = errors.New("notification failed")

	// ErrForbidden is returned when a requester may not read a resource.
	ErrForbidden = errors.New("forbidden")

	// ErrDuplicateCode is returned by stores when a ticket code is already taken.
	ErrDuplicateCode = errors.New("ticket code already exists")
)

// ValidationError describes which field of a request was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// CapacityError carries the capacity observed under the tier lock.
type CapacityError struct {
	TierID    string
	Requested int
	Available int
}

// Error implements error.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity on tier %s: requested %d, available %d",
		e.TierID, e.Requested, e.Available)
}

// Unwrap lets errors.Is match ErrCapacityExceeded.
func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

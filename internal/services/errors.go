package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lib/pq"
)

// Stable error codes surfaced to callers of the booking core
const (
	CodeValidationError         = "VALIDATION_ERROR"
	CodeRouteNotFound           = "ROUTE_NOT_FOUND"
	CodeInactiveRoute           = "INACTIVE_ROUTE"
	CodeSeatLockFailed          = "SEAT_LOCK_FAILED"
	CodeSeatsUnavailable        = "SEATS_UNAVAILABLE"
	CodeBookingNotFound         = "BOOKING_NOT_FOUND"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeBookingCreateError      = "BOOKING_CREATE_ERROR"
)

// BookingError is a structured, caller-facing error with a stable code.
// It is always fatal for the attempt that produced it: the retry helper
// never retries a BookingError, because these reflect validation
// failures or real contention rather than transient infrastructure
// trouble.
type BookingError struct {
	Code             string
	HTTPStatus       int
	Message          string
	ConflictingSeats []string // populated for SEATS_UNAVAILABLE only
}

func (e *BookingError) Error() string {
	if len(e.ConflictingSeats) > 0 {
		return fmt.Sprintf("%s: %s (seats: %s)", e.Code, e.Message, strings.Join(e.ConflictingSeats, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError returns a 400-class error for a bad request
func NewValidationError(message string) *BookingError {
	return &BookingError{Code: CodeValidationError, HTTPStatus: http.StatusBadRequest, Message: message}
}

// NewRouteNotFoundError returns a 404-class error for an unknown route
func NewRouteNotFoundError(routeID string) *BookingError {
	return &BookingError{
		Code:       CodeRouteNotFound,
		HTTPStatus: http.StatusNotFound,
		Message:    fmt.Sprintf("route %s does not exist", routeID),
	}
}

// NewInactiveRouteError returns a 400-class error for an inactive route
func NewInactiveRouteError(routeID string) *BookingError {
	return &BookingError{
		Code:       CodeInactiveRoute,
		HTTPStatus: http.StatusBadRequest,
		Message:    fmt.Sprintf("route %s is not active", routeID),
	}
}

// NewSeatLockFailedError returns a 423-class error for a busy scope.
// The condition is retryable by the end user, not by the core.
func NewSeatLockFailedError(routeID, journeyDate string) *BookingError {
	return &BookingError{
		Code:       CodeSeatLockFailed,
		HTTPStatus: http.StatusLocked,
		Message:    fmt.Sprintf("seats for route %s on %s are being booked by another request, please try again", routeID, journeyDate),
	}
}

// NewSeatsUnavailableError returns a 409-class error naming every
// conflicting seat so the caller can offer alternatives.
func NewSeatsUnavailableError(seats []string) *BookingError {
	return &BookingError{
		Code:             CodeSeatsUnavailable,
		HTTPStatus:       http.StatusConflict,
		Message:          "some of the requested seats are no longer available",
		ConflictingSeats: seats,
	}
}

// NewBookingNotFoundError returns a 404-class error for an unknown booking
func NewBookingNotFoundError(bookingID string) *BookingError {
	return &BookingError{
		Code:       CodeBookingNotFound,
		HTTPStatus: http.StatusNotFound,
		Message:    fmt.Sprintf("booking %s does not exist", bookingID),
	}
}

// NewInvalidStatusTransitionError returns a 400-class error for a
// disallowed booking status transition
func NewInvalidStatusTransitionError(err error) *BookingError {
	return &BookingError{
		Code:       CodeInvalidStatusTransition,
		HTTPStatus: http.StatusBadRequest,
		Message:    err.Error(),
	}
}

// NewBookingCreateError returns a 500-class error wrapping a persistence
// failure that exhausted the retry budget or can never succeed
func NewBookingCreateError(err error) *BookingError {
	return &BookingError{
		Code:       CodeBookingCreateError,
		HTTPStatus: http.StatusInternalServerError,
		Message:    fmt.Sprintf("failed to create booking: %v", err),
	}
}

// AsBookingError unwraps err to a *BookingError if there is one
func AsBookingError(err error) (*BookingError, bool) {
	var be *BookingError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// isConstraintViolation reports whether err is a Postgres integrity
// constraint violation (class 23: unique, foreign key, not-null, ...).
// These are never retried; retrying cannot change the outcome and could
// mask a real bug.
func isConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}
	return false
}

// isRetryable is the retry predicate for createBooking: transient
// infrastructure failures retry, everything with defined semantics
// propagates immediately.
func isRetryable(err error) bool {
	if _, ok := AsBookingError(err); ok {
		return false
	}
	if isConstraintViolation(err) {
		return false
	}
	return true
}

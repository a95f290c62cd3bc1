package models

import (
	"errors"
	"fmt"
	"time"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusRefunded  BookingStatus = "refunded"
)

// allowedTransitions is the full status machine. Statuses missing from
// the map are terminal.
var allowedTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
}

// ErrInvalidStatusTransition is returned when a booking is asked to move
// to a status its current status does not allow.
var ErrInvalidStatusTransition = errors.New("INVALID_STATUS_TRANSITION")

// Booking represents a passenger seat reservation on a scheduled route
type Booking struct {
	ID                 string        `json:"id" db:"id"`
	UserID             string        `json:"user_id" db:"user_id"`
	RouteID            string        `json:"route_id" db:"route_id"`
	JourneyDate        string        `json:"journey_date" db:"journey_date"`
	BookingReference   string        `json:"booking_reference" db:"booking_reference"`
	Seats              StringArray   `json:"seats" db:"seats"`
	TotalAmount        float64       `json:"total_amount" db:"total_amount"`
	Status             BookingStatus `json:"status" db:"status"`
	PassengerName      *string       `json:"passenger_name,omitempty" db:"passenger_name"`
	PassengerPhone     *string       `json:"passenger_phone,omitempty" db:"passenger_phone"`
	PassengerEmail     *string       `json:"passenger_email,omitempty" db:"passenger_email"`
	PaymentReference   *string       `json:"payment_reference,omitempty" db:"payment_reference"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// CanTransitionTo reports whether the status machine allows moving from
// the booking's current status to the target status.
func (b *Booking) CanTransitionTo(target BookingStatus) bool {
	for _, allowed := range allowedTransitions[b.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo moves the booking to the target status. Disallowed
// transitions fail with ErrInvalidStatusTransition and leave the booking
// unchanged.
func (b *Booking) TransitionTo(target BookingStatus) error {
	if !b.CanTransitionTo(target) {
		return fmt.Errorf("%w: cannot transition booking %s from %s to %s",
			ErrInvalidStatusTransition, b.ID, b.Status, target)
	}

	now := time.Now()
	b.Status = target
	b.UpdatedAt = now
	if target == BookingStatusCancelled {
		b.CancelledAt = &now
	}
	return nil
}

// Cancel cancels the booking with an optional reason
func (b *Booking) Cancel(reason *string) error {
	if err := b.TransitionTo(BookingStatusCancelled); err != nil {
		return err
	}
	b.CancellationReason = reason
	return nil
}

// ConfirmPayment confirms the booking and stamps the payment reference
func (b *Booking) ConfirmPayment(paymentReference string) error {
	if err := b.TransitionTo(BookingStatusConfirmed); err != nil {
		return err
	}
	b.PaymentReference = &paymentReference
	return nil
}

// IsActive reports whether the booking still occupies its seats
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	RouteID        string   `json:"route_id" binding:"required"`
	JourneyDate    string   `json:"journey_date" binding:"required"` // YYYY-MM-DD
	Seats          []string `json:"seats" binding:"required"`
	TotalAmount    float64  `json:"total_amount"`
	PassengerName  *string  `json:"passenger_name,omitempty"`
	PassengerPhone *string  `json:"passenger_phone,omitempty"`
	PassengerEmail *string  `json:"passenger_email,omitempty"`
}

// maxSeatsPerBooking bounds a single request; large groups book twice.
const maxSeatsPerBooking = 10

// Validate validates the create booking request and deduplicates the
// requested seat list in place.
func (r *CreateBookingRequest) Validate() error {
	if r.RouteID == "" {
		return errors.New("route_id is required")
	}

	if _, err := time.Parse("2006-01-02", r.JourneyDate); err != nil {
		return errors.New("journey_date must be in YYYY-MM-DD format")
	}

	if len(r.Seats) == 0 {
		return errors.New("at least one seat must be requested")
	}

	seen := make(map[string]bool, len(r.Seats))
	deduped := make([]string, 0, len(r.Seats))
	for _, seat := range r.Seats {
		if seat == "" {
			return errors.New("seat numbers must not be empty")
		}
		if !seen[seat] {
			seen[seat] = true
			deduped = append(deduped, seat)
		}
	}
	r.Seats = deduped

	if len(r.Seats) > maxSeatsPerBooking {
		return fmt.Errorf("maximum %d seats can be booked at once", maxSeatsPerBooking)
	}

	if r.TotalAmount < 0 {
		return errors.New("total_amount must not be negative")
	}

	return nil
}

// CancelBookingRequest represents the request to cancel a booking
type CancelBookingRequest struct {
	CancellationReason *string `json:"cancellation_reason,omitempty"`
}

// ConfirmBookingRequest represents the request to confirm payment
type ConfirmBookingRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
}

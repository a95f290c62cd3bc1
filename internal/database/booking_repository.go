package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/swifttransit/booking-core/internal/models"
)

// ErrBookingNotFound is returned when a booking does not exist
var ErrBookingNotFound = errors.New("booking not found")

// BookingRepository handles database operations for the bookings table
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create creates a new booking
func (r *BookingRepository) Create(booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, user_id, route_id, journey_date, booking_reference,
			seats, total_amount, status, passenger_name, passenger_phone,
			passenger_email
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING created_at, updated_at
	`

	// Generate ID if not provided
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}

	err := r.db.QueryRow(
		query,
		booking.ID, booking.UserID, booking.RouteID, booking.JourneyDate,
		booking.BookingReference, booking.Seats, booking.TotalAmount,
		booking.Status, booking.PassengerName, booking.PassengerPhone,
		booking.PassengerEmail,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)

	return err
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(bookingID string) (*models.Booking, error) {
	query := `
		SELECT id, user_id, route_id, journey_date, booking_reference,
		       seats, total_amount, status, passenger_name, passenger_phone,
		       passenger_email, payment_reference, cancelled_at,
		       cancellation_reason, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var booking models.Booking
	err := r.db.Get(&booking, query, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

// GetByReference retrieves a booking by booking reference
func (r *BookingRepository) GetByReference(reference string) (*models.Booking, error) {
	query := `
		SELECT id, user_id, route_id, journey_date, booking_reference,
		       seats, total_amount, status, passenger_name, passenger_phone,
		       passenger_email, payment_reference, cancelled_at,
		       cancellation_reason, created_at, updated_at
		FROM bookings
		WHERE booking_reference = $1
	`

	var booking models.Booking
	err := r.db.Get(&booking, query, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking by reference: %w", err)
	}

	return &booking, nil
}

// ListByRouteAndDate retrieves all bookings for a route and journey date
// whose status is in the given set.
func (r *BookingRepository) ListByRouteAndDate(routeID, journeyDate string, statuses []models.BookingStatus) ([]models.Booking, error) {
	query, args, err := sqlx.In(`
		SELECT id, user_id, route_id, journey_date, booking_reference,
		       seats, total_amount, status, passenger_name, passenger_phone,
		       passenger_email, payment_reference, cancelled_at,
		       cancellation_reason, created_at, updated_at
		FROM bookings
		WHERE route_id = ? AND journey_date = ? AND status IN (?)
		ORDER BY created_at
	`, routeID, journeyDate, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to build bookings query: %w", err)
	}

	query = r.db.Rebind(query)

	var bookings []models.Booking
	if err := r.db.Select(&bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, nil
}

// ListActiveSeats returns the union of seat numbers held by pending or
// confirmed bookings for a route and journey date.
func (r *BookingRepository) ListActiveSeats(routeID, journeyDate string) ([]string, error) {
	bookings, err := r.ListByRouteAndDate(routeID, journeyDate,
		[]models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var seats []string
	for _, b := range bookings {
		for _, seat := range b.Seats {
			if !seen[seat] {
				seen[seat] = true
				seats = append(seats, seat)
			}
		}
	}

	return seats, nil
}

// Update persists status and mutable payment/cancellation fields of a
// booking. Status legality is enforced by models.Booking.TransitionTo
// before this is called.
func (r *BookingRepository) Update(booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET status = $2, payment_reference = $3, cancelled_at = $4,
		    cancellation_reason = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		booking.ID, booking.Status, booking.PaymentReference,
		booking.CancelledAt, booking.CancellationReason,
	).Scan(&booking.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrBookingNotFound
	}
	return err
}

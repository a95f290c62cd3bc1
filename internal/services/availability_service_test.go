package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swifttransit/booking-core/internal/models"
)

func TestCheckAvailableAgainstBookedSeats(t *testing.T) {
	env := setupBookingTest(t, nil)
	defer env.cleanup()

	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE route_id`).
		WillReturnRows(bookingRow("booking-1", "route-1", "2026-09-01", "{5,6}", models.BookingStatusConfirmed))

	conflicts, err := env.svc.availability.CheckAvailable(context.Background(), "route-1", "2026-09-01", []string{"5", "9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, conflicts)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCheckAvailableUnionsBookingsAndHolds(t *testing.T) {
	env := setupBookingTest(t, nil)
	defer env.cleanup()
	ctx := context.Background()

	env.holds.Reserve(ctx, "route-1", "2026-09-01", []string{"7"}, "booking-2")

	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE route_id`).
		WillReturnRows(bookingRow("booking-1", "route-1", "2026-09-01", "{5,6}", models.BookingStatusPending))

	conflicts, err := env.svc.availability.CheckAvailable(ctx, "route-1", "2026-09-01", []string{"8", "7", "6"})
	require.NoError(t, err)
	assert.Equal(t, []string{"6", "7"}, conflicts, "conflicts are sorted and name every offending seat")
}

func TestCheckAvailableAllFree(t *testing.T) {
	env := setupBookingTest(t, nil)
	defer env.cleanup()

	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE route_id`).
		WillReturnRows(emptyBookingRows())

	conflicts, err := env.svc.availability.CheckAvailable(context.Background(), "route-1", "2026-09-01", []string{"1", "2"})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCheckAvailablePropagatesRepositoryErrors(t *testing.T) {
	env := setupBookingTest(t, nil)
	defer env.cleanup()

	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE route_id`).
		WillReturnError(errors.New("connection refused"))

	_, err := env.svc.availability.CheckAvailable(context.Background(), "route-1", "2026-09-01", []string{"1"})
	assert.Error(t, err)
}

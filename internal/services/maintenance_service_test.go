package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swifttransit/booking-core/internal/models"
)

type recordingNotifier struct {
	confirmed []string
}

func (n *recordingNotifier) SendBookingConfirmation(ctx context.Context, booking *models.Booking) error {
	n.confirmed = append(n.confirmed, booking.ID)
	return nil
}

type recordingAnalytics struct {
	recorded []string
}

func (r *recordingAnalytics) RecordBookingCreated(ctx context.Context, booking *models.Booking) error {
	r.recorded = append(r.recorded, booking.ID)
	return nil
}

func autoCancelPayload(bookingID string) map[string]any {
	return map[string]any{"booking_id": bookingID, "user_id": "user-1", "route_id": "route-1"}
}

func TestHandleAutoCancelCancelsPendingBooking(t *testing.T) {
	env := setupBookingTest(t, nil)
	defer env.cleanup()
	ctx := context.Background()

	env.holds.Reserve(ctx, "route-1", "2026-09-01", []string{"12", "13"}, "booking-1")

	// One read by the handler, one by the cancel path, then the update
	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
		WithArgs("booking-1").
		WillReturnRows(bookingRow("booking-1", "route-1", "2026-09-01", "{12,13}", models.BookingStatusPending))
	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
		WithArgs("booking-1").
		WillReturnRows(bookingRow("booking-1", "route-1", "2026-09-01", "{12,13}", models.BookingStatusPending))
	env.mock.ExpectQuery(`UPDATE bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	err := env.maintenance.HandleAutoCancel(ctx, autoCancelPayload("booking-1"))
	require.NoError(t, err)

	assert.Empty(t, env.holds.ListHeld(ctx, "route-1", "2026-09-01"), "holds are released with the cancellation")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestHandleAutoCancelIsIdempotent(t *testing.T) {
	env := setupBookingTest(t, nil)
	defer env.cleanup()
	ctx := context.Background()

	// A booking already cancelled by an earlier run is left alone: no
	// update statement is issued
	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
		WithArgs("booking-1").
		WillReturnRows(bookingRow("booking-1", "route-1", "2026-09-01", "{12}", models.BookingStatusCancelled))

	err := env.maintenance.HandleAutoCancel(ctx, autoCancelPayload("booking-1"))
	require.NoError(t, err)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestHandleAutoCancelSkipsConfirmedBooking(t *testing.T) {
	env := setupBookingTest(t, nil)
	defer env.cleanup()
	ctx := context.Background()

	// The passenger paid in time; the pending window check is a no-op
	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
		WithArgs("booking-1").
		WillReturnRows(bookingRow("booking-1", "route-1", "2026-09-01", "{12}", models.BookingStatusConfirmed))

	err := env.maintenance.HandleAutoCancel(ctx, autoCancelPayload("booking-1"))
	require.NoError(t, err)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestHandleAutoCancelMissingBooking(t *testing.T) {
	env := setupBookingTest(t, nil)
	defer env.cleanup()

	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
		WithArgs("gone").
		WillReturnRows(emptyBookingRows())

	err := env.maintenance.HandleAutoCancel(context.Background(), autoCancelPayload("gone"))
	assert.NoError(t, err)
}

func TestHandleAutoCancelRejectsBadPayload(t *testing.T) {
	env := setupBookingTest(t, nil)
	defer env.cleanup()

	err := env.maintenance.HandleAutoCancel(context.Background(), map[string]any{})
	assert.Error(t, err)

	err = env.maintenance.HandleAutoCancel(context.Background(), map[string]any{"booking_id": 42})
	assert.Error(t, err)
}

func TestHandleConfirmationNotifies(t *testing.T) {
	env := setupBookingTest(t, nil)
	defer env.cleanup()

	notifier := &recordingNotifier{}
	env.maintenance.notifier = notifier

	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
		WithArgs("booking-1").
		WillReturnRows(bookingRow("booking-1", "route-1", "2026-09-01", "{12}", models.BookingStatusPending))

	err := env.maintenance.HandleConfirmation(context.Background(), autoCancelPayload("booking-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"booking-1"}, notifier.confirmed)
}

func TestHandleAnalyticsRecords(t *testing.T) {
	env := setupBookingTest(t, nil)
	defer env.cleanup()

	analytics := &recordingAnalytics{}
	env.maintenance.analytics = analytics

	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
		WithArgs("booking-1").
		WillReturnRows(bookingRow("booking-1", "route-1", "2026-09-01", "{12}", models.BookingStatusPending))

	err := env.maintenance.HandleAnalytics(context.Background(), autoCancelPayload("booking-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"booking-1"}, analytics.recorded)
}

func TestAbandonedHoldLifecycle(t *testing.T) {
	// End to end over the in-memory store: a booking is created, never
	// paid, the hold window elapses, the auto-cancel reconciles it and
	// the seats become bookable again.
	env := setupBookingTest(t, nil)
	defer env.cleanup()
	ctx := context.Background()

	now := time.Now()
	env.store.SetClock(func() time.Time { return now })

	env.mock.ExpectQuery(`SELECT (.+) FROM routes WHERE id`).WillReturnRows(activeRouteRows("route-1"))
	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE route_id`).WillReturnRows(emptyBookingRows())
	env.mock.ExpectQuery(`INSERT INTO bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	booking, err := env.svc.CreateBooking(ctx, "user-1", validRequest())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"12", "13"}, env.holds.ListHeld(ctx, "route-1", "2026-09-01"))

	// Hold window elapses; the per-seat keys expire on their own
	now = now.Add(16 * time.Minute)
	assert.Empty(t, env.holds.ListHeld(ctx, "route-1", "2026-09-01"))

	// The delayed auto-cancel finds the row still pending and cancels it
	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
		WillReturnRows(bookingRow(booking.ID, "route-1", "2026-09-01", "{12,13}", models.BookingStatusPending))
	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
		WillReturnRows(bookingRow(booking.ID, "route-1", "2026-09-01", "{12,13}", models.BookingStatusPending))
	env.mock.ExpectQuery(`UPDATE bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	require.NoError(t, env.maintenance.HandleAutoCancel(ctx, autoCancelPayload(booking.ID)))

	// The seats are free for the next passenger
	env.mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE route_id`).WillReturnRows(emptyBookingRows())
	conflicts, err := env.svc.availability.CheckAvailable(ctx, "route-1", "2026-09-01", []string{"12", "13"})
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	assert.NoError(t, env.mock.ExpectationsWereMet())
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatusTransitions(t *testing.T) {
	allStatuses := []BookingStatus{
		BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled,
		BookingStatusCompleted, BookingStatusRefunded,
	}

	allowed := map[BookingStatus]map[BookingStatus]bool{
		BookingStatusPending:   {BookingStatusConfirmed: true, BookingStatusCancelled: true},
		BookingStatusConfirmed: {BookingStatusCompleted: true, BookingStatusCancelled: true},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			from, to := from, to
			t.Run(string(from)+"_to_"+string(to), func(t *testing.T) {
				b := &Booking{ID: "b-1", Status: from}
				err := b.TransitionTo(to)

				if allowed[from][to] {
					require.NoError(t, err)
					assert.Equal(t, to, b.Status)
				} else {
					require.Error(t, err)
					assert.ErrorIs(t, err, ErrInvalidStatusTransition)
					// Status must be left unchanged on a rejected transition
					assert.Equal(t, from, b.Status)
				}
			})
		}
	}
}

func TestBookingCancelSetsTimestampAndReason(t *testing.T) {
	b := &Booking{ID: "b-1", Status: BookingStatusPending}
	reason := "changed my mind"

	err := b.Cancel(&reason)
	require.NoError(t, err)

	assert.Equal(t, BookingStatusCancelled, b.Status)
	require.NotNil(t, b.CancelledAt)
	require.NotNil(t, b.CancellationReason)
	assert.Equal(t, reason, *b.CancellationReason)
}

func TestBookingConfirmPayment(t *testing.T) {
	t.Run("Pending", func(t *testing.T) {
		b := &Booking{ID: "b-1", Status: BookingStatusPending}
		require.NoError(t, b.ConfirmPayment("pay-123"))
		assert.Equal(t, BookingStatusConfirmed, b.Status)
		require.NotNil(t, b.PaymentReference)
		assert.Equal(t, "pay-123", *b.PaymentReference)
	})

	t.Run("AlreadyCancelled", func(t *testing.T) {
		b := &Booking{ID: "b-1", Status: BookingStatusCancelled}
		err := b.ConfirmPayment("pay-123")
		require.Error(t, err)
		assert.Equal(t, BookingStatusCancelled, b.Status)
		assert.Nil(t, b.PaymentReference)
	})
}

func TestCreateBookingRequestValidate(t *testing.T) {
	valid := func() *CreateBookingRequest {
		return &CreateBookingRequest{
			RouteID:     "route-1",
			JourneyDate: "2026-09-01",
			Seats:       []string{"12", "13"},
			TotalAmount: 1500,
		}
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("EmptySeats", func(t *testing.T) {
		req := valid()
		req.Seats = nil
		assert.Error(t, req.Validate())
	})

	t.Run("DeduplicatesSeats", func(t *testing.T) {
		req := valid()
		req.Seats = []string{"12", "13", "12"}
		require.NoError(t, req.Validate())
		assert.Equal(t, []string{"12", "13"}, req.Seats)
	})

	t.Run("BlankSeat", func(t *testing.T) {
		req := valid()
		req.Seats = []string{"12", ""}
		assert.Error(t, req.Validate())
	})

	t.Run("TooManySeats", func(t *testing.T) {
		req := valid()
		req.Seats = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"}
		assert.Error(t, req.Validate())
	})

	t.Run("BadDate", func(t *testing.T) {
		req := valid()
		req.JourneyDate = "01-09-2026"
		assert.Error(t, req.Validate())
	})

	t.Run("MissingRoute", func(t *testing.T) {
		req := valid()
		req.RouteID = ""
		assert.Error(t, req.Validate())
	})

	t.Run("NegativeAmount", func(t *testing.T) {
		req := valid()
		req.TotalAmount = -1
		assert.Error(t, req.Validate())
	})
}

package services

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/swifttransit/booking-core/internal/database"
	"github.com/swifttransit/booking-core/internal/hold"
)

// AvailabilityService reconciles durable bookings with live seat holds
// to compute the true free-seat set for a scope.
//
// CheckAvailable must run while the caller holds the distributed lock
// for (routeID, journeyDate); without it two concurrent requests can
// both observe "available" for the same seat between their own read and
// write.
type AvailabilityService struct {
	bookingRepo *database.BookingRepository
	holds       *hold.Manager
	logger      *logrus.Logger
}

// NewAvailabilityService creates a new AvailabilityService
func NewAvailabilityService(bookingRepo *database.BookingRepository, holds *hold.Manager, logger *logrus.Logger) *AvailabilityService {
	return &AvailabilityService{bookingRepo: bookingRepo, holds: holds, logger: logger}
}

// CheckAvailable returns the subset of requestedSeats that conflict
// with a pending or confirmed booking or an active hold. An empty
// result means every requested seat is free. Every offending seat is
// named, not just the first, so the caller can offer alternatives.
func (s *AvailabilityService) CheckAvailable(ctx context.Context, routeID, journeyDate string, requestedSeats []string) ([]string, error) {
	bookedSeats, err := s.bookingRepo.ListActiveSeats(routeID, journeyDate)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(bookedSeats))
	for _, seat := range bookedSeats {
		taken[seat] = true
	}
	for _, seat := range s.holds.ListHeld(ctx, routeID, journeyDate) {
		taken[seat] = true
	}

	var conflicting []string
	for _, seat := range requestedSeats {
		if taken[seat] {
			conflicting = append(conflicting, seat)
		}
	}
	sort.Strings(conflicting)

	if len(conflicting) > 0 {
		s.logger.WithFields(logrus.Fields{
			"route_id":     routeID,
			"journey_date": journeyDate,
			"conflicting":  conflicting,
		}).Info("seat availability conflict")
	}

	return conflicting, nil
}

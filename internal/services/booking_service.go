package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/swifttransit/booking-core/internal/cache"
	"github.com/swifttransit/booking-core/internal/config"
	"github.com/swifttransit/booking-core/internal/database"
	"github.com/swifttransit/booking-core/internal/hold"
	"github.com/swifttransit/booking-core/internal/lock"
	"github.com/swifttransit/booking-core/internal/models"
	"github.com/swifttransit/booking-core/internal/queue"
	"github.com/swifttransit/booking-core/pkg/reference"
	"github.com/swifttransit/booking-core/pkg/retry"
)

// Queue names and job types owned by the booking core
const (
	QueueNotification = "notification"
	QueueAnalytics    = "analytics"
	QueueMaintenance  = "booking-maintenance"

	JobTypeConfirmation = "booking.confirmation"
	JobTypeAnalytics    = "booking.analytics"
	JobTypeAutoCancel   = "booking.auto-cancel"
)

// BookingService orchestrates the booking transaction: validation,
// scope locking, availability checking, persistence, seat holds, cache
// invalidation and follow-up job enqueuing.
type BookingService struct {
	routeRepo    *database.RouteRepository
	bookingRepo  *database.BookingRepository
	availability *AvailabilityService
	holds        *hold.Manager
	locker       *lock.Locker
	store        cache.Store
	jobs         *queue.Manager
	cfg          config.BookingConfig
	logger       *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	routeRepo *database.RouteRepository,
	bookingRepo *database.BookingRepository,
	availability *AvailabilityService,
	holds *hold.Manager,
	locker *lock.Locker,
	store cache.Store,
	jobs *queue.Manager,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		routeRepo:    routeRepo,
		bookingRepo:  bookingRepo,
		availability: availability,
		holds:        holds,
		locker:       locker,
		store:        store,
		jobs:         jobs,
		cfg:          cfg,
		logger:       logger,
	}
}

// CreateBooking reserves the requested seats and persists a pending
// booking. The caller receives either the persisted booking or a
// structured error with a stable code; the booking row is either absent
// or pending after this returns, never partial.
//
// Transient infrastructure failures are retried with exponential
// backoff up to the configured budget. Validation, contention and
// constraint errors propagate immediately.
func (s *BookingService) CreateBooking(ctx context.Context, userID string, req *models.CreateBookingRequest) (*models.Booking, error) {
	if userID == "" {
		return nil, NewValidationError("user id is required")
	}
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}
	if s.cfg.MaxSeats > 0 && len(req.Seats) > s.cfg.MaxSeats {
		return nil, NewValidationError(fmt.Sprintf("maximum %d seats can be booked at once", s.cfg.MaxSeats))
	}

	policy := retry.Policy{
		MaxAttempts: s.cfg.MaxRetries,
		BaseDelay:   s.cfg.RetryBaseDelay,
		MaxDelay:    s.cfg.RetryMaxDelay,
	}

	var booking *models.Booking
	err := retry.Do(ctx, policy, func() error {
		var attemptErr error
		booking, attemptErr = s.createBookingAttempt(ctx, userID, req)
		return attemptErr
	}, isRetryable)

	if err != nil {
		if _, ok := AsBookingError(err); ok {
			return nil, err
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  userID,
			"route_id": req.RouteID,
		}).Error("booking creation failed")
		return nil, NewBookingCreateError(err)
	}

	return booking, nil
}

// createBookingAttempt runs one attempt of the critical section,
// holding the scope lock for steps that read or mutate the availability
// window.
func (s *BookingService) createBookingAttempt(ctx context.Context, userID string, req *models.CreateBookingRequest) (*models.Booking, error) {
	// 1. The route must exist and be active
	route, err := s.routeRepo.GetByID(req.RouteID)
	if err != nil {
		if errors.Is(err, database.ErrRouteNotFound) {
			return nil, NewRouteNotFoundError(req.RouteID)
		}
		return nil, err
	}
	if !route.IsActive {
		return nil, NewInactiveRouteError(req.RouteID)
	}

	// 2. Take the scope lock, try-or-fail
	scope := lock.Scope(req.RouteID, req.JourneyDate)
	token := uuid.NewString()
	if !s.locker.Acquire(ctx, scope, token, s.cfg.LockTTL) {
		return nil, NewSeatLockFailedError(req.RouteID, req.JourneyDate)
	}
	defer s.locker.Release(ctx, scope, token)

	// 3. Availability check under the lock
	conflicting, err := s.availability.CheckAvailable(ctx, req.RouteID, req.JourneyDate, req.Seats)
	if err != nil {
		return nil, err
	}
	if len(conflicting) > 0 {
		return nil, NewSeatsUnavailableError(conflicting)
	}

	// 4. Persist the booking in pending state
	ref, err := reference.New()
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		UserID:           userID,
		RouteID:          req.RouteID,
		JourneyDate:      req.JourneyDate,
		BookingReference: ref,
		Seats:            models.StringArray(req.Seats),
		TotalAmount:      req.TotalAmount,
		Status:           models.BookingStatusPending,
		PassengerName:    req.PassengerName,
		PassengerPhone:   req.PassengerPhone,
		PassengerEmail:   req.PassengerEmail,
	}
	if err := s.bookingRepo.Create(booking); err != nil {
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}

	// 5. Place seat holds, TTL-based fast path for availability
	s.holds.Reserve(ctx, req.RouteID, req.JourneyDate, req.Seats, booking.ID)

	// 6-7. Follow-up jobs and cache invalidation are best-effort; the
	// persisted row is the source of truth and must not be failed by
	// either.
	s.enqueueFollowUps(booking)
	s.invalidateAvailabilityCaches(ctx, req.RouteID, req.JourneyDate)

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"reference":    booking.BookingReference,
		"user_id":      userID,
		"route_id":     req.RouteID,
		"journey_date": req.JourneyDate,
		"seats":        len(req.Seats),
	}).Info("booking created")

	return booking, nil
}

// ConfirmBooking flips a pending booking to confirmed, stamping the
// payment reference. Holds are left to expire on their own: the
// confirmed row keeps the seats occupied via the availability check.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, paymentReference string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, database.ErrBookingNotFound) {
			return nil, NewBookingNotFoundError(bookingID)
		}
		return nil, err
	}

	if err := booking.ConfirmPayment(paymentReference); err != nil {
		return nil, NewInvalidStatusTransitionError(err)
	}
	if err := s.bookingRepo.Update(booking); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"reference":  booking.BookingReference,
	}).Info("booking confirmed")

	return booking, nil
}

// CancelBooking transitions a booking to cancelled and releases any
// seat holds still outstanding. The scope lock serializes the hold
// release against concurrent availability checks.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string, reason *string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, database.ErrBookingNotFound) {
			return nil, NewBookingNotFoundError(bookingID)
		}
		return nil, err
	}

	scope := lock.Scope(booking.RouteID, booking.JourneyDate)
	token := uuid.NewString()
	if !s.locker.Acquire(ctx, scope, token, s.cfg.LockTTL) {
		return nil, NewSeatLockFailedError(booking.RouteID, booking.JourneyDate)
	}
	defer s.locker.Release(ctx, scope, token)

	if err := booking.Cancel(reason); err != nil {
		return nil, NewInvalidStatusTransitionError(err)
	}
	if err := s.bookingRepo.Update(booking); err != nil {
		return nil, err
	}

	s.holds.Release(ctx, booking.RouteID, booking.JourneyDate, booking.Seats)
	s.invalidateAvailabilityCaches(ctx, booking.RouteID, booking.JourneyDate)

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"reference":  booking.BookingReference,
	}).Info("booking cancelled")

	return booking, nil
}

// GetBooking retrieves a booking by id
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, database.ErrBookingNotFound) {
			return nil, NewBookingNotFoundError(bookingID)
		}
		return nil, err
	}
	return booking, nil
}

// enqueueFollowUps schedules the post-booking pipeline: confirmation
// notification, analytics record, and the delayed auto-cancel check
// that bounds abandoned pending bookings.
func (s *BookingService) enqueueFollowUps(booking *models.Booking) {
	payload := map[string]any{
		"booking_id": booking.ID,
		"user_id":    booking.UserID,
		"route_id":   booking.RouteID,
	}

	if _, err := s.jobs.AddJob(QueueNotification, JobTypeConfirmation, payload, queue.Options{
		Priority: queue.PriorityHigh,
	}); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("failed to enqueue confirmation notification")
	}

	if _, err := s.jobs.AddJob(QueueAnalytics, JobTypeAnalytics, payload, queue.Options{
		Priority: queue.PriorityLow,
	}); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("failed to enqueue analytics record")
	}

	if _, err := s.jobs.AddJob(QueueMaintenance, JobTypeAutoCancel, payload, queue.Options{
		Priority: queue.PriorityNormal,
		Delay:    s.holds.TTL(),
	}); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("failed to enqueue auto-cancel check")
	}
}

// invalidateAvailabilityCaches drops cached aggregate views for the
// scope. Stale aggregates are deleted, never updated in place.
func (s *BookingService) invalidateAvailabilityCaches(ctx context.Context, routeID, journeyDate string) {
	s.store.Delete(ctx, fmt.Sprintf("availability:%s:%s", routeID, journeyDate))
	s.store.Delete(ctx, fmt.Sprintf("route_summary:%s", routeID))
}

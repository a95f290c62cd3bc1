package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/swifttransit/booking-core/internal/database"
	"github.com/swifttransit/booking-core/internal/models"
	"github.com/swifttransit/booking-core/internal/queue"
)

// Notifier delivers booking confirmations. The real email/SMS side
// effects live outside the booking core.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, booking *models.Booking) error
}

// AnalyticsRecorder records booking events for downstream analytics
type AnalyticsRecorder interface {
	RecordBookingCreated(ctx context.Context, booking *models.Booking) error
}

// LogNotifier is the default Notifier; it only logs. Deployments plug
// in a real gateway through the MaintenanceService constructor.
type LogNotifier struct {
	Logger *logrus.Logger
}

// SendBookingConfirmation logs the confirmation instead of sending it
func (n *LogNotifier) SendBookingConfirmation(ctx context.Context, booking *models.Booking) error {
	n.Logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"reference":  booking.BookingReference,
	}).Info("booking confirmation notification")
	return nil
}

// LogAnalyticsRecorder is the default AnalyticsRecorder; it only logs
type LogAnalyticsRecorder struct {
	Logger *logrus.Logger
}

// RecordBookingCreated logs the booking-created event
func (r *LogAnalyticsRecorder) RecordBookingCreated(ctx context.Context, booking *models.Booking) error {
	r.Logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"route_id":     booking.RouteID,
		"journey_date": booking.JourneyDate,
		"seats":        len(booking.Seats),
		"total_amount": booking.TotalAmount,
	}).Info("booking analytics record")
	return nil
}

// MaintenanceService owns the job handlers of the booking pipeline:
// confirmation notifications, analytics records, and the auto-cancel
// reconciliation that flips abandoned pending bookings to cancelled
// after the hold window.
type MaintenanceService struct {
	bookingRepo *database.BookingRepository
	bookingSvc  *BookingService
	notifier    Notifier
	analytics   AnalyticsRecorder
	logger      *logrus.Logger
}

// NewMaintenanceService creates a new MaintenanceService
func NewMaintenanceService(
	bookingRepo *database.BookingRepository,
	bookingSvc *BookingService,
	notifier Notifier,
	analytics AnalyticsRecorder,
	logger *logrus.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		bookingRepo: bookingRepo,
		bookingSvc:  bookingSvc,
		notifier:    notifier,
		analytics:   analytics,
		logger:      logger,
	}
}

// RegisterHandlers binds the service's handlers to their queues
func (s *MaintenanceService) RegisterHandlers(jobs *queue.Manager) {
	jobs.Register(QueueNotification, JobTypeConfirmation, s.HandleConfirmation)
	jobs.Register(QueueAnalytics, JobTypeAnalytics, s.HandleAnalytics)
	jobs.Register(QueueMaintenance, JobTypeAutoCancel, s.HandleAutoCancel)
}

func bookingIDFromPayload(payload map[string]any) (string, error) {
	id, ok := payload["booking_id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("payload is missing booking_id")
	}
	return id, nil
}

// HandleAutoCancel re-reads a booking after the hold window and cancels
// it if it is still pending. The handler is idempotent: a booking that
// was confirmed, or already cancelled by an earlier run, is left alone.
func (s *MaintenanceService) HandleAutoCancel(ctx context.Context, payload map[string]any) error {
	bookingID, err := bookingIDFromPayload(payload)
	if err != nil {
		return err
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, database.ErrBookingNotFound) {
			// Nothing to reconcile
			return nil
		}
		return err
	}

	if booking.Status != models.BookingStatusPending {
		s.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"status":     booking.Status,
		}).Debug("auto-cancel skipped; booking no longer pending")
		return nil
	}

	reason := "payment not completed within hold window"
	if _, err := s.bookingSvc.CancelBooking(ctx, bookingID, &reason); err != nil {
		if be, ok := AsBookingError(err); ok && be.Code == CodeInvalidStatusTransition {
			// Raced with a confirmation between our read and the cancel
			return nil
		}
		return err
	}

	s.logger.WithField("booking_id", bookingID).Info("unpaid pending booking auto-cancelled")
	return nil
}

// HandleConfirmation sends the booking confirmation notification
func (s *MaintenanceService) HandleConfirmation(ctx context.Context, payload map[string]any) error {
	bookingID, err := bookingIDFromPayload(payload)
	if err != nil {
		return err
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, database.ErrBookingNotFound) {
			return nil
		}
		return err
	}

	return s.notifier.SendBookingConfirmation(ctx, booking)
}

// HandleAnalytics records the booking-created analytics event
func (s *MaintenanceService) HandleAnalytics(ctx context.Context, payload map[string]any) error {
	bookingID, err := bookingIDFromPayload(payload)
	if err != nil {
		return err
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, database.ErrBookingNotFound) {
			return nil
		}
		return err
	}

	return s.analytics.RecordBookingCreated(ctx, booking)
}

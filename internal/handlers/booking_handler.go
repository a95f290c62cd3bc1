package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/swifttransit/booking-core/internal/models"
	"github.com/swifttransit/booking-core/internal/services"
)

// BookingHandler exposes the booking core over HTTP. Authentication is
// handled upstream; the handler trusts the X-User-ID header set by the
// gateway.
type BookingHandler struct {
	bookingSvc *services.BookingService
	logger     *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingSvc *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc, logger: logger}
}

// RegisterRoutes registers the booking routes
func (h *BookingHandler) RegisterRoutes(router *gin.Engine) {
	bookings := router.Group("/api/v1/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/confirm", h.ConfirmBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
	}
}

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user identity is required"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.bookingSvc.CreateBooking(c.Request.Context(), userID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingSvc.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// ConfirmBooking handles POST /api/v1/bookings/:id/confirm
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	var req models.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.bookingSvc.ConfirmBooking(c.Request.Context(), c.Param("id"), req.PaymentReference)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.bookingSvc.CancelBooking(c.Request.Context(), c.Param("id"), req.CancellationReason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// writeError maps a core error to its HTTP status and stable code
func (h *BookingHandler) writeError(c *gin.Context, err error) {
	if be, ok := services.AsBookingError(err); ok {
		body := gin.H{"code": be.Code, "error": be.Message}
		if len(be.ConflictingSeats) > 0 {
			body["conflicting_seats"] = be.ConflictingSeats
		}
		c.JSON(be.HTTPStatus, body)
		return
	}

	h.logger.WithError(err).Error("unhandled error in booking handler")
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":  services.CodeBookingCreateError,
		"error": "internal server error",
	})
}

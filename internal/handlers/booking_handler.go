package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openwheels/rental-backend/internal/middleware"
	"github.com/openwheels/rental-backend/internal/models"
	"github.com/openwheels/rental-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// BookingHandler handles booking creation and retrieval endpoints
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// CreateBooking creates a pending rental and a checkout session for it
// @Summary Book a car
// @Description Validates the date range, checks availability and creates a pending rental
// @Tags Bookings
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.BookingResponse
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 409 {object} map[string]interface{} "Dates unavailable"
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response, err := h.bookingService.CreateBooking(userCtx.UserID, &req)
	if err != nil {
		if services.Code(err) == services.ErrPersistence {
			h.logger.WithError(err).Error("Failed to create booking")
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// CreatePaymentIntent opens a payment intent for a pending rental
// @Summary Pay for a booking without the hosted checkout page
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 201 {object} models.IntentResponse
// @Failure 409 {object} map[string]interface{} "Rental not payable"
// @Router /bookings/{id}/intent [post]
func (h *BookingHandler) CreatePaymentIntent(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	rentalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rental id"})
		return
	}

	intent, err := h.bookingService.CreatePaymentIntent(rentalID, userCtx.UserID)
	if err != nil {
		if services.Code(err) == services.ErrPersistence {
			h.logger.WithError(err).Error("Failed to create payment intent")
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, intent)
}

// GetBooking returns a single rental
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	rentalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rental id"})
		return
	}

	rental, err := h.bookingService.GetBooking(rentalID, userCtx.UserID, userCtx.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rental)
}

// CancelBooking cancels a pending or confirmed rental
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	rentalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rental id"})
		return
	}

	if err := h.bookingService.CancelBooking(rentalID, userCtx.UserID, userCtx.IsAdmin()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

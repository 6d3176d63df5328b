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

// RentalHandler handles rental listing, administrative edits and receipts
type RentalHandler struct {
	rentalService  *services.RentalService
	receiptService *services.ReceiptService
	logger         *logrus.Logger
}

// NewRentalHandler creates a new RentalHandler
func NewRentalHandler(
	rentalService *services.RentalService,
	receiptService *services.ReceiptService,
	logger *logrus.Logger,
) *RentalHandler {
	return &RentalHandler{
		rentalService:  rentalService,
		receiptService: receiptService,
		logger:         logger,
	}
}

// ListRentals lists rentals for the caller, as lessee or as car owner
// @Summary List rentals
// @Description Lists the caller's rentals. role=lessee returns bookings they made, role=owner returns bookings against their cars.
// @Tags Rentals
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param role query string false "lessee or owner" default(lessee)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} models.RentalPage
// @Router /rentals [get]
func (h *RentalHandler) ListRentals(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	page, limit := parsePagination(c)

	var (
		result *models.RentalPage
		err    error
	)
	switch c.DefaultQuery("role", "lessee") {
	case "lessee":
		result, err = h.rentalService.ListForLessee(userCtx.UserID, page, limit)
	case "owner":
		result, err = h.rentalService.ListForOwner(userCtx.UserID, page, limit)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be lessee or owner"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to list rentals")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateRental applies an administrative edit to a rental's dates or status.
// Date edits re-run the availability check; there is no bypass.
// @Router /rentals/{id} [patch]
func (h *RentalHandler) UpdateRental(c *gin.Context) {
	rentalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rental id"})
		return
	}

	var req models.UpdateRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if req.StartDate == nil && req.EndDate == nil && req.Status == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	rental, err := h.rentalService.UpdateRental(rentalID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rental)
}

// GetReceipt streams the PDF receipt for a confirmed rental
// @Router /rentals/{id}/receipt [get]
func (h *RentalHandler) GetReceipt(c *gin.Context) {
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

	pdfBytes, filename, err := h.receiptService.GenerateReceipt(rentalID, userCtx.UserID, userCtx.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

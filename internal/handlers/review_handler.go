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

// ReviewHandler handles review submission
type ReviewHandler struct {
	reviewService *services.ReviewService
	logger        *logrus.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService *services.ReviewService, logger *logrus.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger,
	}
}

// SubmitReview stores a review for a confirmed rental
// @Summary Submit a review
// @Description One review per rental, rating 1..5, non-blank comment. Only the lessee of a confirmed rental may review.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body models.SubmitReviewRequest true "Review"
// @Success 201 {object} models.Review
// @Failure 409 {object} map[string]interface{} "Already reviewed"
// @Router /reviews [post]
func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req models.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	review, err := h.reviewService.SubmitReview(userCtx.UserID, &req)
	if err != nil {
		if services.Code(err) == services.ErrPersistence {
			h.logger.WithError(err).Error("Failed to submit review")
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

// GetRentalReview returns the review left for a rental, 404 when the rental
// has not been reviewed yet
// @Router /rentals/{id}/review [get]
func (h *ReviewHandler) GetRentalReview(c *gin.Context) {
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

	review, err := h.reviewService.GetReviewForRental(rentalID, userCtx.UserID, userCtx.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

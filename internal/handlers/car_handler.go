package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openwheels/rental-backend/internal/middleware"
	"github.com/openwheels/rental-backend/internal/models"
	"github.com/openwheels/rental-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// CarHandler handles car listing endpoints
type CarHandler struct {
	carService    *services.CarService
	reviewService *services.ReviewService
	logger        *logrus.Logger
}

// NewCarHandler creates a new CarHandler
func NewCarHandler(carService *services.CarService, reviewService *services.ReviewService, logger *logrus.Logger) *CarHandler {
	return &CarHandler{
		carService:    carService,
		reviewService: reviewService,
		logger:        logger,
	}
}

// CreateCar lists a new car for the authenticated owner
// @Router /cars [post]
func (h *CarHandler) CreateCar(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req models.CreateCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	car, err := h.carService.CreateCar(userCtx.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, car)
}

// ListCars returns bookable cars
// @Router /cars [get]
func (h *CarHandler) ListCars(c *gin.Context) {
	page, limit := parsePagination(c)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	cars, total, err := h.carService.ListCars(limit, (page-1)*limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list cars")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cars":      cars,
		"total":     total,
		"page":      page,
		"page_size": limit,
	})
}

// GetCar returns a single car listing
// @Router /cars/{id} [get]
func (h *CarHandler) GetCar(c *gin.Context) {
	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid car id"})
		return
	}

	car, err := h.carService.GetCar(carID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, car)
}

// ListOwnCars returns the caller's listed cars
// @Router /cars/mine [get]
func (h *CarHandler) ListOwnCars(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	cars, err := h.carService.ListOwnCars(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cars": cars})
}

// UpdateCar applies a partial edit to a listing
// @Router /cars/{id} [patch]
func (h *CarHandler) UpdateCar(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid car id"})
		return
	}

	var req models.UpdateCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	car, err := h.carService.UpdateCar(carID, userCtx.UserID, userCtx.IsAdmin(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, car)
}

// DeleteCar removes a listing
// @Router /cars/{id} [delete]
func (h *CarHandler) DeleteCar(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid car id"})
		return
	}

	if err := h.carService.DeleteCar(carID, userCtx.UserID, userCtx.IsAdmin()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// CheckAvailability answers whether the car is free for a date range
// @Summary Check availability
// @Description Reports whether the car can be booked for [start, end]. Both dates are inclusive calendar dates.
// @Tags Cars
// @Produce json
// @Param id path string true "Car ID"
// @Param start query string true "Start date YYYY-MM-DD"
// @Param end query string true "End date YYYY-MM-DD"
// @Success 200 {object} map[string]interface{}
// @Router /cars/{id}/availability [get]
func (h *CarHandler) CheckAvailability(c *gin.Context) {
	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid car id"})
		return
	}

	start, err := time.Parse(models.DateLayout, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date, expected YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(models.DateLayout, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date, expected YYYY-MM-DD"})
		return
	}
	if start.After(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must not be after end"})
		return
	}

	available, err := h.carService.CheckAvailability(carID, start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"car_id":    carID,
		"start":     start.Format(models.DateLayout),
		"end":       end.Format(models.DateLayout),
		"available": available,
	})
}

// ListReviews returns reviews for a car
// @Router /cars/{id}/reviews [get]
func (h *CarHandler) ListReviews(c *gin.Context) {
	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid car id"})
		return
	}

	reviews, err := h.reviewService.GetReviewsForCar(carID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// EnablePayouts registers the owner's payout account with the processor
// @Router /cars/{id}/payouts [post]
func (h *CarHandler) EnablePayouts(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	carID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid car id"})
		return
	}

	account, err := h.carService.EnablePayouts(carID, userCtx.UserID, userCtx.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

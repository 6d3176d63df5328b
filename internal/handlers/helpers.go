package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/openwheels/rental-backend/internal/services"
)

// statusForCode maps service error codes to HTTP statuses
func statusForCode(code services.ErrCode) int {
	switch code {
	case services.ErrValidation, services.ErrInvalidRating, services.ErrEmptyComment, services.ErrBadSignature:
		return http.StatusBadRequest
	case services.ErrUnauthorized:
		return http.StatusForbidden
	case services.ErrNotFound:
		return http.StatusNotFound
	case services.ErrConflict, services.ErrAlreadyReviewed:
		return http.StatusConflict
	case services.ErrProcessor:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a service error as a JSON response
func respondError(c *gin.Context, err error) {
	code := services.Code(err)
	status := statusForCode(code)

	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal detail stays in logs
		message = "internal server error"
	}

	c.JSON(status, gin.H{
		"error": message,
		"code":  string(code),
	})
}

// parsePagination reads page and limit query parameters with defaults
func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Review is feedback left by a lessee for a car after a completed rental.
// At most one review exists per rental; resubmission is rejected.
type Review struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CarID      uuid.UUID `json:"car_id" db:"car_id"`
	ReviewerID uuid.UUID `json:"reviewer_id" db:"reviewer_id"`
	RentalID   uuid.UUID `json:"rental_id" db:"rental_id"`
	Rating     int       `json:"rating" db:"rating"`
	Comment    string    `json:"comment" db:"comment"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SubmitReviewRequest represents the request to submit a review
type SubmitReviewRequest struct {
	RentalID string `json:"rental_id" binding:"required"`
	Rating   int    `json:"rating" binding:"required"`
	Comment  string `json:"comment" binding:"required"`
}

// Validate checks rating bounds and comment content
func (r *SubmitReviewRequest) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	if strings.TrimSpace(r.Comment) == "" {
		return errors.New("comment must not be blank")
	}
	return nil
}

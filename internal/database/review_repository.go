package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/openwheels/rental-backend/internal/models"
)

// ReviewRepository handles review database operations
type ReviewRepository struct {
	db DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db DB) *ReviewRepository {
	return &ReviewRepository{
		db: db,
	}
}

// ExistsForRental reports whether a review has already been submitted for
// the rental
func (r *ReviewRepository) ExistsForRental(rentalID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM reviews WHERE rental_id = $1)`
	if err := r.db.Get(&exists, query, rentalID); err != nil {
		return false, fmt.Errorf("failed to check existing review: %w", err)
	}
	return exists, nil
}

// CreateReview inserts a review and recomputes the car's aggregate rating
// in the same transaction. The unique index on rental_id rejects a second
// review for the same rental even under concurrent submission.
func (r *ReviewRepository) CreateReview(review *models.Review) error {
	review.ID = uuid.New()
	review.CreatedAt = time.Now()

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO reviews (
			id, car_id, reviewer_id, rental_id, rating, comment, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		review.ID, review.CarID, review.ReviewerID, review.RentalID,
		review.Rating, review.Comment, review.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateReview
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE cars
		SET average_rating = sub.avg_rating,
		    review_count = sub.cnt,
		    updated_at = NOW()
		FROM (
			SELECT AVG(rating)::float AS avg_rating, COUNT(*) AS cnt
			FROM reviews
			WHERE car_id = $1
		) sub
		WHERE cars.id = $1
	`, review.CarID)
	if err != nil {
		return fmt.Errorf("failed to recompute car rating: %w", err)
	}

	return tx.Commit()
}

// GetReviewsByCarID retrieves all reviews for a car, newest first
func (r *ReviewRepository) GetReviewsByCarID(carID uuid.UUID) ([]models.Review, error) {
	query := `
		SELECT id, car_id, reviewer_id, rental_id, rating, comment, created_at
		FROM reviews
		WHERE car_id = $1
		ORDER BY created_at DESC
	`

	reviews := []models.Review{}
	if err := r.db.Select(&reviews, query, carID); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// GetReviewByRentalID retrieves the review left for a rental, if any
func (r *ReviewRepository) GetReviewByRentalID(rentalID uuid.UUID) (*models.Review, error) {
	var review models.Review

	query := `
		SELECT id, car_id, reviewer_id, rental_id, rating, comment, created_at
		FROM reviews
		WHERE rental_id = $1
	`

	err := r.db.Get(&review, query, rentalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return &review, nil
}

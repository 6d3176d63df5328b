package services

import (
	"strings"

	"github.com/google/uuid"
	"github.com/openwheels/rental-backend/internal/database"
	"github.com/openwheels/rental-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// ReviewService gates review submission behind a completed rental
type ReviewService struct {
	reviewRepo *database.ReviewRepository
	rentalRepo *database.RentalRepository
	logger     *logrus.Logger
}

// NewReviewService creates a new review service
func NewReviewService(
	reviewRepo *database.ReviewRepository,
	rentalRepo *database.RentalRepository,
	logger *logrus.Logger,
) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		rentalRepo: rentalRepo,
		logger:     logger,
	}
}

// SubmitReview validates and stores a review for a confirmed rental.
// One review per rental; rating must be 1..5; comment must not be blank.
func (s *ReviewService) SubmitReview(reviewerID uuid.UUID, req *models.SubmitReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, Errorf(ErrInvalidRating, "rating must be between 1 and 5")
	}
	if strings.TrimSpace(req.Comment) == "" {
		return nil, Errorf(ErrEmptyComment, "comment must not be blank")
	}

	rentalID, err := uuid.Parse(req.RentalID)
	if err != nil {
		return nil, Errorf(ErrValidation, "invalid rental_id")
	}

	rental, err := s.rentalRepo.GetRentalByID(rentalID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to load rental", err)
	}
	if rental == nil {
		return nil, Errorf(ErrNotFound, "rental not found")
	}
	if rental.LesseeID != reviewerID {
		return nil, Errorf(ErrUnauthorized, "only the lessee can review this rental")
	}
	if rental.Status != models.RentalStatusConfirmed {
		return nil, Errorf(ErrConflict, "only confirmed rentals can be reviewed")
	}

	exists, err := s.reviewRepo.ExistsForRental(rentalID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to check existing review", err)
	}
	if exists {
		return nil, Errorf(ErrAlreadyReviewed, "this rental has already been reviewed")
	}

	review := &models.Review{
		CarID:      rental.CarID,
		ReviewerID: reviewerID,
		RentalID:   rentalID,
		Rating:     req.Rating,
		Comment:    strings.TrimSpace(req.Comment),
	}

	if err := s.reviewRepo.CreateReview(review); err != nil {
		if err == database.ErrDuplicateReview {
			return nil, Errorf(ErrAlreadyReviewed, "this rental has already been reviewed")
		}
		return nil, WrapErr(ErrPersistence, "failed to save review", err)
	}

	s.logger.WithFields(logrus.Fields{
		"review_id": review.ID,
		"car_id":    review.CarID,
		"rental_id": rentalID,
		"rating":    review.Rating,
	}).Info("Review submitted")

	return review, nil
}

// GetReviewForRental returns the review left for a rental, so a client can
// tell whether the rental can still be reviewed. Visible to the lessee and
// to admins; absence of a review surfaces as not found.
func (s *ReviewService) GetReviewForRental(rentalID, requesterID uuid.UUID, isAdmin bool) (*models.Review, error) {
	rental, err := s.rentalRepo.GetRentalByID(rentalID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to load rental", err)
	}
	if rental == nil {
		return nil, Errorf(ErrNotFound, "rental not found")
	}
	if !isAdmin && rental.LesseeID != requesterID {
		return nil, Errorf(ErrUnauthorized, "not allowed to view this rental's review")
	}

	review, err := s.reviewRepo.GetReviewByRentalID(rentalID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to load review", err)
	}
	if review == nil {
		return nil, Errorf(ErrNotFound, "rental has not been reviewed")
	}
	return review, nil
}

// GetReviewsForCar returns all reviews for a car, newest first
func (s *ReviewService) GetReviewsForCar(carID uuid.UUID) ([]models.Review, error) {
	reviews, err := s.reviewRepo.GetReviewsByCarID(carID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to list reviews", err)
	}
	return reviews, nil
}

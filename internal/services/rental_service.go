package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openwheels/rental-backend/internal/config"
	"github.com/openwheels/rental-backend/internal/database"
	"github.com/openwheels/rental-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// RentalService manages rental records: listing, administrative edits and
// the stale-pending sweep.
type RentalService struct {
	rentalRepo *database.RentalRepository
	carRepo    *database.CarRepository
	config     config.BookingConfig
	logger     *logrus.Logger
}

// NewRentalService creates a new rental service
func NewRentalService(
	rentalRepo *database.RentalRepository,
	carRepo *database.CarRepository,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *RentalService {
	return &RentalService{
		rentalRepo: rentalRepo,
		carRepo:    carRepo,
		config:     cfg,
		logger:     logger,
	}
}

// clampPage normalizes pagination parameters against configured bounds
func (s *RentalService) clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.config.DefaultPageSize
	}
	if pageSize > s.config.MaxPageSize {
		pageSize = s.config.MaxPageSize
	}
	return page, pageSize
}

// ListForLessee returns a page of the user's own bookings, newest first
func (s *RentalService) ListForLessee(lesseeID uuid.UUID, page, pageSize int) (*models.RentalPage, error) {
	page, pageSize = s.clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	rentals, total, err := s.rentalRepo.ListRentalsByLessee(lesseeID, pageSize, offset)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to list rentals", err)
	}

	return &models.RentalPage{
		Rentals:  rentals,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// ListForOwner returns a page of rentals against the user's cars, newest first
func (s *RentalService) ListForOwner(ownerID uuid.UUID, page, pageSize int) (*models.RentalPage, error) {
	page, pageSize = s.clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	rentals, total, err := s.rentalRepo.ListRentalsByOwner(ownerID, pageSize, offset)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to list rentals", err)
	}

	return &models.RentalPage{
		Rentals:  rentals,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// UpdateRental applies an administrative edit. Date edits are only allowed
// while the rental is pending and go through the same per-car lock and
// overlap check as booking creation; there is no bypass that could
// double-book the car. Status edits must follow the lifecycle transitions.
func (s *RentalService) UpdateRental(rentalID uuid.UUID, req *models.UpdateRentalRequest) (*models.Rental, error) {
	rental, err := s.rentalRepo.GetRentalByID(rentalID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to load rental", err)
	}
	if rental == nil {
		return nil, Errorf(ErrNotFound, "rental not found")
	}

	if req.StartDate != nil || req.EndDate != nil {
		if err := s.applyDateEdit(rental, req); err != nil {
			return nil, err
		}
	}

	if req.Status != nil {
		if err := s.applyStatusEdit(rental, models.RentalStatus(*req.Status)); err != nil {
			return nil, err
		}
	}

	updated, err := s.rentalRepo.GetRentalByID(rentalID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to reload rental", err)
	}
	return updated, nil
}

func (s *RentalService) applyDateEdit(rental *models.Rental, req *models.UpdateRentalRequest) error {
	start := rental.StartDate
	end := rental.EndDate

	var err error
	if req.StartDate != nil {
		start, err = time.Parse(models.DateLayout, *req.StartDate)
		if err != nil {
			return Errorf(ErrValidation, fmt.Sprintf("invalid start_date %q: expected YYYY-MM-DD", *req.StartDate))
		}
	}
	if req.EndDate != nil {
		end, err = time.Parse(models.DateLayout, *req.EndDate)
		if err != nil {
			return Errorf(ErrValidation, fmt.Sprintf("invalid end_date %q: expected YYYY-MM-DD", *req.EndDate))
		}
	}
	if start.After(end) {
		return Errorf(ErrValidation, "start_date must not be after end_date")
	}

	days := models.DayCount(start, end)
	if days > s.config.MaxRentalDays {
		return Errorf(ErrValidation, fmt.Sprintf("rental length exceeds the maximum of %d days", s.config.MaxRentalDays))
	}

	car, err := s.carRepo.GetCarByID(rental.CarID)
	if err != nil {
		return WrapErr(ErrPersistence, "failed to load car", err)
	}
	if car == nil {
		return Errorf(ErrNotFound, "car not found")
	}

	total := float64(days) * car.DailyRate
	err = s.rentalRepo.UpdateRentalDatesLocked(rental.ID, rental.CarID, start, end, total)
	if err == database.ErrDateConflict {
		return Errorf(ErrConflict, "new dates conflict with another rental")
	}
	if err == database.ErrInvalidTransition {
		return Errorf(ErrConflict, "dates can only be edited while the rental is pending")
	}
	if err != nil {
		return WrapErr(ErrPersistence, "failed to update rental dates", err)
	}

	s.logger.WithFields(logrus.Fields{
		"rental_id": rental.ID,
		"start":     start.Format(models.DateLayout),
		"end":       end.Format(models.DateLayout),
		"amount":    total,
	}).Info("Rental dates updated")
	return nil
}

func (s *RentalService) applyStatusEdit(rental *models.Rental, target models.RentalStatus) error {
	if !target.Valid() {
		return Errorf(ErrValidation, fmt.Sprintf("unknown rental status %q", target))
	}
	if !models.CanTransition(rental.Status, target) {
		return Errorf(ErrConflict, fmt.Sprintf("cannot move rental from %s to %s", rental.Status, target))
	}

	err := s.rentalRepo.UpdateRentalStatus(rental.ID, []models.RentalStatus{rental.Status}, target)
	if err == database.ErrInvalidTransition {
		return Errorf(ErrConflict, "rental status changed concurrently, retry the edit")
	}
	if err != nil {
		return WrapErr(ErrPersistence, "failed to update rental status", err)
	}

	s.logger.WithFields(logrus.Fields{
		"rental_id": rental.ID,
		"from":      rental.Status,
		"to":        target,
	}).Info("Rental status updated")
	return nil
}

// ExpireStalePending expires pending rentals older than the configured TTL
// so abandoned bookings stop occupying their date ranges. Called by the
// scheduled sweep.
func (s *RentalService) ExpireStalePending() (int, error) {
	expired, err := s.rentalRepo.ExpireStalePending(s.config.PendingTTL)
	if err != nil {
		return 0, WrapErr(ErrPersistence, "failed to expire stale rentals", err)
	}
	return expired, nil
}

package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/openwheels/rental-backend/internal/database"
	"github.com/sirupsen/logrus"
)

// AvailabilityService answers whether a car can be rented for a date range
type AvailabilityService struct {
	rentalRepo *database.RentalRepository
	logger     *logrus.Logger
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(rentalRepo *database.RentalRepository, logger *logrus.Logger) *AvailabilityService {
	return &AvailabilityService{
		rentalRepo: rentalRepo,
		logger:     logger,
	}
}

// IsAvailable reports whether the car is free for [start, end]. It probes
// the occupying set (pending and confirmed rentals) first, then re-verifies
// against confirmed rentals alone with inclusive date-only boundaries.
// Persistence failures on the first pass surface as errors; failures on the
// verification pass fail closed and report the range as taken.
func (s *AvailabilityService) IsAvailable(carID uuid.UUID, start, end time.Time) (bool, error) {
	overlapping, err := s.rentalRepo.GetOverlappingRentals(carID, start, end)
	if err != nil {
		return false, WrapErr(ErrPersistence, "failed to check availability", err)
	}
	if len(overlapping) > 0 {
		s.logger.WithFields(logrus.Fields{
			"car_id":   carID,
			"start":    start.Format("2006-01-02"),
			"end":      end.Format("2006-01-02"),
			"overlaps": len(overlapping),
		}).Debug("Date range occupied")
		return false, nil
	}

	confirmed, err := s.rentalRepo.CountConfirmedOverlaps(carID, start, end)
	if err != nil {
		// Fail closed: a range we cannot verify is treated as taken
		s.logger.WithError(err).WithField("car_id", carID).Error("Confirmed-overlap verification failed, treating range as unavailable")
		return false, nil
	}

	return confirmed == 0, nil
}

package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/openwheels/rental-backend/internal/database"
	"github.com/openwheels/rental-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// CarService manages car listings and their payout accounts
type CarService struct {
	carRepo      *database.CarRepository
	availability *AvailabilityService
	payments     *PaymentService
	logger       *logrus.Logger
}

// NewCarService creates a new car service
func NewCarService(
	carRepo *database.CarRepository,
	availability *AvailabilityService,
	payments *PaymentService,
	logger *logrus.Logger,
) *CarService {
	return &CarService{
		carRepo:      carRepo,
		availability: availability,
		payments:     payments,
		logger:       logger,
	}
}

// CreateCar lists a new car for the owner
func (s *CarService) CreateCar(ownerID uuid.UUID, req *models.CreateCarRequest) (*models.Car, error) {
	if err := req.Validate(); err != nil {
		return nil, Errorf(ErrValidation, err.Error())
	}

	car, err := s.carRepo.CreateCar(ownerID, req)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to create car", err)
	}

	s.logger.WithFields(logrus.Fields{
		"car_id":   car.ID,
		"owner_id": ownerID,
	}).Info("Car listed")
	return car, nil
}

// GetCar returns a single car listing
func (s *CarService) GetCar(carID uuid.UUID) (*models.Car, error) {
	car, err := s.carRepo.GetCarByID(carID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to load car", err)
	}
	if car == nil {
		return nil, Errorf(ErrNotFound, "car not found")
	}
	return car, nil
}

// ListCars returns a page of bookable car listings
func (s *CarService) ListCars(limit, offset int) ([]models.Car, int64, error) {
	cars, total, err := s.carRepo.ListCars(limit, offset)
	if err != nil {
		return nil, 0, WrapErr(ErrPersistence, "failed to list cars", err)
	}
	return cars, total, nil
}

// ListOwnCars returns every car the user has listed
func (s *CarService) ListOwnCars(ownerID uuid.UUID) ([]models.Car, error) {
	cars, err := s.carRepo.ListCarsByOwner(ownerID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to list cars", err)
	}
	return cars, nil
}

// UpdateCar applies a partial edit by the car's owner or an admin
func (s *CarService) UpdateCar(carID, requesterID uuid.UUID, isAdmin bool, req *models.UpdateCarRequest) (*models.Car, error) {
	car, err := s.carRepo.GetCarByID(carID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to load car", err)
	}
	if car == nil {
		return nil, Errorf(ErrNotFound, "car not found")
	}
	if !isAdmin && car.OwnerID != requesterID {
		return nil, Errorf(ErrUnauthorized, "not allowed to edit this car")
	}

	if err := s.carRepo.UpdateCar(carID, req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Errorf(ErrNotFound, "car not found")
		}
		return nil, WrapErr(ErrPersistence, "failed to update car", err)
	}

	return s.carRepo.GetCarByID(carID)
}

// DeleteCar removes a listing. Owner or admin only.
func (s *CarService) DeleteCar(carID, requesterID uuid.UUID, isAdmin bool) error {
	car, err := s.carRepo.GetCarByID(carID)
	if err != nil {
		return WrapErr(ErrPersistence, "failed to load car", err)
	}
	if car == nil {
		return Errorf(ErrNotFound, "car not found")
	}
	if !isAdmin && car.OwnerID != requesterID {
		return Errorf(ErrUnauthorized, "not allowed to delete this car")
	}

	if err := s.carRepo.DeleteCar(carID); err != nil {
		return WrapErr(ErrPersistence, "failed to delete car", err)
	}

	s.logger.WithField("car_id", carID).Info("Car listing deleted")
	return nil
}

// CheckAvailability answers an availability probe for a date range
func (s *CarService) CheckAvailability(carID uuid.UUID, start, end time.Time) (bool, error) {
	car, err := s.carRepo.GetCarByID(carID)
	if err != nil {
		return false, WrapErr(ErrPersistence, "failed to load car", err)
	}
	if car == nil {
		return false, Errorf(ErrNotFound, "car not found")
	}
	if !car.Available {
		return false, nil
	}

	return s.availability.IsAvailable(carID, start, end)
}

// EnablePayouts registers the owner with the payment processor and stores
// the connected account on the car so rental payments can be split.
func (s *CarService) EnablePayouts(carID, requesterID uuid.UUID, email string) (*models.ConnectedAccountResponse, error) {
	car, err := s.carRepo.GetCarByID(carID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to load car", err)
	}
	if car == nil {
		return nil, Errorf(ErrNotFound, "car not found")
	}
	if car.OwnerID != requesterID {
		return nil, Errorf(ErrUnauthorized, "not allowed to manage payouts for this car")
	}
	if car.PayoutAccountID != nil {
		return &models.ConnectedAccountResponse{AccountID: *car.PayoutAccountID}, nil
	}

	account, err := s.payments.CreateConnectedAccount(car.OwnerID, email)
	if err != nil {
		return nil, err
	}

	if err := s.carRepo.SetPayoutAccount(carID, account.AccountID); err != nil {
		return nil, WrapErr(ErrPersistence, "failed to store payout account", err)
	}

	s.logger.WithFields(logrus.Fields{
		"car_id":     carID,
		"account_id": account.AccountID,
	}).Info("Payout account connected")
	return account, nil
}

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

// BookingService drives the booking flow: validate the request, check
// availability, persist a pending rental and hand the payer off to the
// payment processor.
type BookingService struct {
	carRepo      *database.CarRepository
	rentalRepo   *database.RentalRepository
	availability *AvailabilityService
	payments     *PaymentService
	config       config.BookingConfig
	logger       *logrus.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	carRepo *database.CarRepository,
	rentalRepo *database.RentalRepository,
	availability *AvailabilityService,
	payments *PaymentService,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		carRepo:      carRepo,
		rentalRepo:   rentalRepo,
		availability: availability,
		payments:     payments,
		config:       cfg,
		logger:       logger,
	}
}

// CreateBooking validates the request, prices the rental and persists it as
// pending under the per-car lock, then creates a checkout session for it.
// The rental occupies its date range from this moment; payment confirms it,
// payment failure or the stale-pending sweep releases it.
func (s *BookingService) CreateBooking(lesseeID uuid.UUID, req *models.CreateBookingRequest) (*models.BookingResponse, error) {
	start, end, err := req.ParseDates(time.Now())
	if err != nil {
		return nil, Errorf(ErrValidation, err.Error())
	}

	days := models.DayCount(start, end)
	if days > s.config.MaxRentalDays {
		return nil, Errorf(ErrValidation, fmt.Sprintf("rental length exceeds the maximum of %d days", s.config.MaxRentalDays))
	}

	carID, err := uuid.Parse(req.CarID)
	if err != nil {
		return nil, Errorf(ErrValidation, "invalid car_id")
	}

	car, err := s.carRepo.GetCarByID(carID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to load car", err)
	}
	if car == nil {
		return nil, Errorf(ErrNotFound, "car not found")
	}
	if !car.Available {
		return nil, Errorf(ErrConflict, "car is not open for booking")
	}
	if car.OwnerID == lesseeID {
		return nil, Errorf(ErrValidation, "you cannot book your own car")
	}

	available, err := s.availability.IsAvailable(carID, start, end)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, Errorf(ErrConflict, "car is not available for the requested dates")
	}

	rental := &models.Rental{
		CarID:       carID,
		LesseeID:    lesseeID,
		StartDate:   start,
		EndDate:     end,
		TotalAmount: float64(days) * car.DailyRate,
	}

	// The availability check above is advisory; the insert re-checks under
	// the per-car lock and is the authoritative answer.
	if err := s.rentalRepo.CreateRentalLocked(rental); err != nil {
		if err == database.ErrDateConflict {
			return nil, Errorf(ErrConflict, "car is not available for the requested dates")
		}
		return nil, WrapErr(ErrPersistence, "failed to create rental", err)
	}

	s.logger.WithFields(logrus.Fields{
		"rental_id": rental.ID,
		"car_id":    carID,
		"lessee_id": lesseeID,
		"days":      days,
		"amount":    rental.TotalAmount,
	}).Info("Pending rental created")

	session, err := s.payments.CreateCheckoutSession(rental, car)
	if err != nil {
		// The rental stays pending; the payer can retry payment until the
		// stale-pending sweep expires it
		s.logger.WithError(err).WithField("rental_id", rental.ID).Error("Checkout session creation failed")
		return &models.BookingResponse{Rental: rental, Days: days}, nil
	}

	if err := s.rentalRepo.SetPaymentRef(rental.ID, session.SessionID); err != nil {
		s.logger.WithError(err).WithField("rental_id", rental.ID).Error("Failed to record payment reference")
	}

	return &models.BookingResponse{
		Rental:      rental,
		Days:        days,
		CheckoutURL: session.URL,
	}, nil
}

// CreatePaymentIntent opens a payment intent for a pending rental, for
// clients that collect the payment themselves instead of redirecting to the
// hosted checkout page. Only the lessee can pay for a rental.
func (s *BookingService) CreatePaymentIntent(rentalID, requesterID uuid.UUID) (*models.IntentResponse, error) {
	rental, err := s.rentalRepo.GetRentalByID(rentalID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to load rental", err)
	}
	if rental == nil {
		return nil, Errorf(ErrNotFound, "rental not found")
	}
	if rental.LesseeID != requesterID {
		return nil, Errorf(ErrUnauthorized, "not allowed to pay for this rental")
	}
	if rental.Status != models.RentalStatusPending {
		return nil, Errorf(ErrConflict, fmt.Sprintf("rental in status %s cannot be paid", rental.Status))
	}

	car, err := s.carRepo.GetCarByID(rental.CarID)
	if err != nil || car == nil {
		return nil, WrapErr(ErrPersistence, "failed to load car", err)
	}

	intent, err := s.payments.CreateIntent(rental, car)
	if err != nil {
		return nil, err
	}

	if err := s.rentalRepo.SetPaymentRef(rental.ID, intent.IntentID); err != nil {
		s.logger.WithError(err).WithField("rental_id", rental.ID).Error("Failed to record payment reference")
	}

	return intent, nil
}

// GetBooking returns a rental visible to the requester: the lessee, the
// car's owner or an admin.
func (s *BookingService) GetBooking(rentalID, requesterID uuid.UUID, isAdmin bool) (*models.Rental, error) {
	rental, err := s.rentalRepo.GetRentalByID(rentalID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to load rental", err)
	}
	if rental == nil {
		return nil, Errorf(ErrNotFound, "rental not found")
	}

	if isAdmin || rental.LesseeID == requesterID {
		return rental, nil
	}

	car, err := s.carRepo.GetCarByID(rental.CarID)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to load car", err)
	}
	if car != nil && car.OwnerID == requesterID {
		return rental, nil
	}

	return nil, Errorf(ErrUnauthorized, "not allowed to view this rental")
}

// CancelBooking cancels a rental on behalf of its lessee or an admin.
// Only pending and confirmed rentals can be cancelled.
func (s *BookingService) CancelBooking(rentalID, requesterID uuid.UUID, isAdmin bool) error {
	rental, err := s.rentalRepo.GetRentalByID(rentalID)
	if err != nil {
		return WrapErr(ErrPersistence, "failed to load rental", err)
	}
	if rental == nil {
		return Errorf(ErrNotFound, "rental not found")
	}
	if !isAdmin && rental.LesseeID != requesterID {
		return Errorf(ErrUnauthorized, "not allowed to cancel this rental")
	}

	err = s.rentalRepo.UpdateRentalStatus(rentalID, models.OccupyingStatuses, models.RentalStatusCancelled)
	if err == database.ErrInvalidTransition {
		return Errorf(ErrConflict, fmt.Sprintf("rental in status %s cannot be cancelled", rental.Status))
	}
	if err != nil {
		return WrapErr(ErrPersistence, "failed to cancel rental", err)
	}

	s.logger.WithFields(logrus.Fields{
		"rental_id":    rentalID,
		"requester_id": requesterID,
	}).Info("Rental cancelled")
	return nil
}

package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/openwheels/rental-backend/internal/config"
	"github.com/openwheels/rental-backend/internal/database"
	"github.com/openwheels/rental-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingConfig() config.BookingConfig {
	return config.BookingConfig{
		PendingTTL:      30 * time.Minute,
		ReaperSchedule:  "*/5 * * * *",
		MaxRentalDays:   90,
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

func newBookingService(t *testing.T, processorURL string) (*BookingService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)

	carRepo := database.NewCarRepository(db)
	rentalRepo := database.NewRentalRepository(db)

	cfg := paymentConfig()
	if processorURL != "" {
		cfg.APIBaseURL = processorURL
	}
	payments := NewPaymentService(
		cfg,
		database.NewWebhookEventRepository(db),
		database.NewTransactionRepository(db),
		rentalRepo,
		testLogger(),
	)
	availability := NewAvailabilityService(rentalRepo, testLogger())

	svc := NewBookingService(carRepo, rentalRepo, availability, payments, bookingConfig(), testLogger())
	return svc, mock
}

func carRows(car models.Car) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "make", "model", "year", "daily_rate", "seats",
		"fuel_type", "gear_type", "available", "payout_account_id",
		"average_rating", "review_count", "created_at", "updated_at",
	}).AddRow(car.ID.String(), car.OwnerID.String(), car.Make, car.Model, car.Year,
		car.DailyRate, car.Seats, car.FuelType, car.GearType, car.Available,
		optStr(car.PayoutAccountID), car.AverageRating, car.ReviewCount,
		car.CreatedAt, car.UpdatedAt)
}

func testCar(available bool) models.Car {
	return models.Car{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Make:      "Toyota",
		Model:     "Corolla",
		Year:      2022,
		DailyRate: 50,
		Seats:     5,
		FuelType:  models.FuelPetrol,
		GearType:  models.GearAutomatic,
		Available: available,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestCreateBooking(t *testing.T) {
	lesseeID := uuid.New()

	// Dates far enough in the future that the request always validates
	bookingReq := func(carID uuid.UUID) *models.CreateBookingRequest {
		return &models.CreateBookingRequest{
			CarID:     carID.String(),
			StartDate: "2030-06-16",
			EndDate:   "2030-06-20",
		}
	}

	t.Run("creates a pending rental and a checkout session", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"id":"cs_1","url":"https://pay.example/cs_1"}`)
		}))
		defer srv.Close()

		svc, mock := newBookingService(t, srv.URL)
		car := testCar(true)

		mock.ExpectQuery(`SELECT id, owner_id, make`).
			WillReturnRows(carRows(car))
		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows())
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`INSERT INTO rentals`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
		mock.ExpectExec(`UPDATE rentals`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		resp, err := svc.CreateBooking(lesseeID, bookingReq(car.ID))
		require.NoError(t, err)
		assert.Equal(t, 5, resp.Days)
		assert.Equal(t, 250.0, resp.Rental.TotalAmount)
		assert.Equal(t, models.RentalStatusPending, resp.Rental.Status)
		assert.Equal(t, "https://pay.example/cs_1", resp.CheckoutURL)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects booking your own car", func(t *testing.T) {
		svc, mock := newBookingService(t, "")
		car := testCar(true)
		car.OwnerID = lesseeID

		mock.ExpectQuery(`SELECT id, owner_id, make`).
			WillReturnRows(carRows(car))

		_, err := svc.CreateBooking(lesseeID, bookingReq(car.ID))
		assert.Equal(t, ErrValidation, Code(err))
	})

	t.Run("rejects a delisted car", func(t *testing.T) {
		svc, mock := newBookingService(t, "")
		car := testCar(false)

		mock.ExpectQuery(`SELECT id, owner_id, make`).
			WillReturnRows(carRows(car))

		_, err := svc.CreateBooking(lesseeID, bookingReq(car.ID))
		assert.Equal(t, ErrConflict, Code(err))
	})

	t.Run("rejects an unknown car", func(t *testing.T) {
		svc, mock := newBookingService(t, "")

		mock.ExpectQuery(`SELECT id, owner_id, make`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := svc.CreateBooking(lesseeID, bookingReq(uuid.New()))
		assert.Equal(t, ErrNotFound, Code(err))
	})

	t.Run("rejects occupied dates", func(t *testing.T) {
		svc, mock := newBookingService(t, "")
		car := testCar(true)
		existing := models.Rental{
			ID: uuid.New(), CarID: car.ID, LesseeID: uuid.New(),
			StartDate: day("2030-06-14"), EndDate: day("2030-06-18"),
			Status:    models.RentalStatusConfirmed,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}

		mock.ExpectQuery(`SELECT id, owner_id, make`).
			WillReturnRows(carRows(car))
		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows(existing))

		_, err := svc.CreateBooking(lesseeID, bookingReq(car.ID))
		assert.Equal(t, ErrConflict, Code(err))
	})

	t.Run("locked re-check loses the race", func(t *testing.T) {
		svc, mock := newBookingService(t, "")
		car := testCar(true)

		mock.ExpectQuery(`SELECT id, owner_id, make`).
			WillReturnRows(carRows(car))
		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows())
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		_, err := svc.CreateBooking(lesseeID, bookingReq(car.ID))
		assert.Equal(t, ErrConflict, Code(err))
	})

	t.Run("checkout failure leaves the rental pending", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		svc, mock := newBookingService(t, srv.URL)
		car := testCar(true)

		mock.ExpectQuery(`SELECT id, owner_id, make`).
			WillReturnRows(carRows(car))
		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows())
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`INSERT INTO rentals`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		resp, err := svc.CreateBooking(lesseeID, bookingReq(car.ID))
		require.NoError(t, err)
		assert.Equal(t, models.RentalStatusPending, resp.Rental.Status)
		assert.Empty(t, resp.CheckoutURL)
	})

	t.Run("rejects a range longer than the maximum", func(t *testing.T) {
		svc, _ := newBookingService(t, "")

		req := &models.CreateBookingRequest{
			CarID:     uuid.New().String(),
			StartDate: "2030-01-01",
			EndDate:   "2030-12-31",
		}
		_, err := svc.CreateBooking(lesseeID, req)
		assert.Equal(t, ErrValidation, Code(err))
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		svc, _ := newBookingService(t, "")

		req := &models.CreateBookingRequest{
			CarID:     uuid.New().String(),
			StartDate: "16/06/2030",
			EndDate:   "2030-06-20",
		}
		_, err := svc.CreateBooking(lesseeID, req)
		assert.Equal(t, ErrValidation, Code(err))
	})
}

func TestCancelBooking(t *testing.T) {
	lesseeID := uuid.New()
	rentalID := uuid.New()

	pending := models.Rental{
		ID: rentalID, CarID: uuid.New(), LesseeID: lesseeID,
		StartDate: day("2030-06-16"), EndDate: day("2030-06-20"),
		Status: models.RentalStatusPending, TotalAmount: 250,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	t.Run("lessee cancels their own rental", func(t *testing.T) {
		svc, mock := newBookingService(t, "")

		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows(pending))
		mock.ExpectExec(`UPDATE rentals`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := svc.CancelBooking(rentalID, lesseeID, false)
		assert.NoError(t, err)
	})

	t.Run("a stranger cannot cancel it", func(t *testing.T) {
		svc, mock := newBookingService(t, "")

		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows(pending))

		err := svc.CancelBooking(rentalID, uuid.New(), false)
		assert.Equal(t, ErrUnauthorized, Code(err))
	})

	t.Run("terminal rental cannot be cancelled", func(t *testing.T) {
		svc, mock := newBookingService(t, "")
		expired := pending
		expired.Status = models.RentalStatusExpired

		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows(expired))
		mock.ExpectExec(`UPDATE rentals`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := svc.CancelBooking(rentalID, lesseeID, false)
		assert.Equal(t, ErrConflict, Code(err))
	})
}

func TestGetBooking(t *testing.T) {
	lesseeID := uuid.New()
	ownerID := uuid.New()
	rentalID := uuid.New()
	car := testCar(true)
	car.OwnerID = ownerID

	rental := models.Rental{
		ID: rentalID, CarID: car.ID, LesseeID: lesseeID,
		StartDate: day("2030-06-16"), EndDate: day("2030-06-20"),
		Status: models.RentalStatusConfirmed, TotalAmount: 250,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	t.Run("visible to the lessee", func(t *testing.T) {
		svc, mock := newBookingService(t, "")
		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows(rental))

		got, err := svc.GetBooking(rentalID, lesseeID, false)
		require.NoError(t, err)
		assert.Equal(t, rentalID, got.ID)
	})

	t.Run("visible to the car owner", func(t *testing.T) {
		svc, mock := newBookingService(t, "")
		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows(rental))
		mock.ExpectQuery(`SELECT id, owner_id, make`).
			WillReturnRows(carRows(car))

		got, err := svc.GetBooking(rentalID, ownerID, false)
		require.NoError(t, err)
		assert.Equal(t, rentalID, got.ID)
	})

	t.Run("hidden from everyone else", func(t *testing.T) {
		svc, mock := newBookingService(t, "")
		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows(rental))
		mock.ExpectQuery(`SELECT id, owner_id, make`).
			WillReturnRows(carRows(car))

		_, err := svc.GetBooking(rentalID, uuid.New(), false)
		assert.Equal(t, ErrUnauthorized, Code(err))
	})
}

func TestCreatePaymentIntent(t *testing.T) {
	lesseeID := uuid.New()
	rentalID := uuid.New()
	car := testCar(true)

	pending := models.Rental{
		ID: rentalID, CarID: car.ID, LesseeID: lesseeID,
		StartDate: day("2030-06-16"), EndDate: day("2030-06-20"),
		Status: models.RentalStatusPending, TotalAmount: 250,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	t.Run("opens an intent for the lessee's pending rental", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"id":"pi_9","client_secret":"pi_9_secret"}`)
		}))
		defer srv.Close()

		svc, mock := newBookingService(t, srv.URL)

		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows(pending))
		mock.ExpectQuery(`SELECT id, owner_id, make`).
			WillReturnRows(carRows(car))
		mock.ExpectExec(`UPDATE rentals`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		intent, err := svc.CreatePaymentIntent(rentalID, lesseeID)
		require.NoError(t, err)
		assert.Equal(t, "pi_9", intent.IntentID)
		assert.Equal(t, "pi_9_secret", intent.ClientSecret)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("only the lessee can pay", func(t *testing.T) {
		svc, mock := newBookingService(t, "")

		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows(pending))

		_, err := svc.CreatePaymentIntent(rentalID, uuid.New())
		assert.Equal(t, ErrUnauthorized, Code(err))
	})

	t.Run("confirmed rental cannot be paid again", func(t *testing.T) {
		svc, mock := newBookingService(t, "")
		confirmed := pending
		confirmed.Status = models.RentalStatusConfirmed

		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows(confirmed))

		_, err := svc.CreatePaymentIntent(rentalID, lesseeID)
		assert.Equal(t, ErrConflict, Code(err))
	})

	t.Run("unknown rental", func(t *testing.T) {
		svc, mock := newBookingService(t, "")

		mock.ExpectQuery(`SELECT id, car_id, lessee_id`).
			WillReturnRows(rentalRows())

		_, err := svc.CreatePaymentIntent(rentalID, lesseeID)
		assert.Equal(t, ErrNotFound, Code(err))
	})
}

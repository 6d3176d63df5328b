package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openwheels/rental-backend/internal/models"
)

// CarRepository handles car database operations
type CarRepository struct {
	db DB
}

// NewCarRepository creates a new car repository
func NewCarRepository(db DB) *CarRepository {
	return &CarRepository{
		db: db,
	}
}

// CreateCar creates a new car listing owned by ownerID
func (r *CarRepository) CreateCar(ownerID uuid.UUID, req *models.CreateCarRequest) (*models.Car, error) {
	car := &models.Car{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Make:      req.Make,
		Model:     req.Model,
		Year:      req.Year,
		DailyRate: req.DailyRate,
		Seats:     req.Seats,
		FuelType:  models.FuelType(req.FuelType),
		GearType:  models.GearType(req.GearType),
		Available: true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO cars (
			id, owner_id, make, model, year, daily_rate, seats,
			fuel_type, gear_type, available, review_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12)
	`

	_, err := r.db.Exec(
		query,
		car.ID,
		car.OwnerID,
		car.Make,
		car.Model,
		car.Year,
		car.DailyRate,
		car.Seats,
		car.FuelType,
		car.GearType,
		car.Available,
		car.CreatedAt,
		car.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create car: %w", err)
	}

	return car, nil
}

// GetCarByID retrieves a car by ID
func (r *CarRepository) GetCarByID(carID uuid.UUID) (*models.Car, error) {
	var car models.Car

	query := `
		SELECT id, owner_id, make, model, year, daily_rate, seats,
		       fuel_type, gear_type, available, payout_account_id,
		       average_rating, review_count, created_at, updated_at
		FROM cars
		WHERE id = $1
	`

	err := r.db.Get(&car, query, carID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get car: %w", err)
	}

	return &car, nil
}

// ListCars retrieves available car listings, newest first
func (r *CarRepository) ListCars(limit, offset int) ([]models.Car, int64, error) {
	var total int64
	if err := r.db.Get(&total, `SELECT COUNT(*) FROM cars WHERE available = TRUE`); err != nil {
		return nil, 0, fmt.Errorf("failed to count cars: %w", err)
	}

	query := `
		SELECT id, owner_id, make, model, year, daily_rate, seats,
		       fuel_type, gear_type, available, payout_account_id,
		       average_rating, review_count, created_at, updated_at
		FROM cars
		WHERE available = TRUE
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	cars := []models.Car{}
	if err := r.db.Select(&cars, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list cars: %w", err)
	}

	return cars, total, nil
}

// ListCarsByOwner retrieves all cars owned by a user, newest first
func (r *CarRepository) ListCarsByOwner(ownerID uuid.UUID) ([]models.Car, error) {
	query := `
		SELECT id, owner_id, make, model, year, daily_rate, seats,
		       fuel_type, gear_type, available, payout_account_id,
		       average_rating, review_count, created_at, updated_at
		FROM cars
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	cars := []models.Car{}
	if err := r.db.Select(&cars, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list cars by owner: %w", err)
	}

	return cars, nil
}

// UpdateCar applies a partial update to a car listing
func (r *CarRepository) UpdateCar(carID uuid.UUID, req *models.UpdateCarRequest) error {
	query := `
		UPDATE cars
		SET make = COALESCE($2, make),
		    model = COALESCE($3, model),
		    year = COALESCE($4, year),
		    daily_rate = COALESCE($5, daily_rate),
		    seats = COALESCE($6, seats),
		    fuel_type = COALESCE($7, fuel_type),
		    gear_type = COALESCE($8, gear_type),
		    available = COALESCE($9, available),
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(
		query,
		carID,
		req.Make,
		req.Model,
		req.Year,
		req.DailyRate,
		req.Seats,
		req.FuelType,
		req.GearType,
		req.Available,
	)
	if err != nil {
		return fmt.Errorf("failed to update car: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetPayoutAccount stores the processor's connected account id for the owner's payouts
func (r *CarRepository) SetPayoutAccount(carID uuid.UUID, accountID string) error {
	query := `UPDATE cars SET payout_account_id = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Exec(query, carID, accountID)
	if err != nil {
		return fmt.Errorf("failed to set payout account: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCar removes a car listing
func (r *CarRepository) DeleteCar(carID uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM cars WHERE id = $1`, carID)
	if err != nil {
		return fmt.Errorf("failed to delete car: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

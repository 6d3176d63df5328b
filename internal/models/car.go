package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// FuelType represents the fuel type of a car
type FuelType string

const (
	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
)

// GearType represents the transmission type of a car
type GearType string

const (
	GearManual    GearType = "manual"
	GearAutomatic GearType = "automatic"
)

// Car represents a listed vehicle available for rental
type Car struct {
	ID              uuid.UUID `json:"id" db:"id"`
	OwnerID         uuid.UUID `json:"owner_id" db:"owner_id"`
	Make            string    `json:"make" db:"make"`
	Model           string    `json:"model" db:"model"`
	Year            int       `json:"year" db:"year"`
	DailyRate       float64   `json:"daily_rate" db:"daily_rate"`
	Seats           int       `json:"seats" db:"seats"`
	FuelType        FuelType  `json:"fuel_type" db:"fuel_type"`
	GearType        GearType  `json:"gear_type" db:"gear_type"`
	Available       bool      `json:"available" db:"available"`
	PayoutAccountID *string   `json:"payout_account_id,omitempty" db:"payout_account_id"`
	AverageRating   *float64  `json:"average_rating,omitempty" db:"average_rating"`
	ReviewCount     int       `json:"review_count" db:"review_count"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// CreateCarRequest represents the request to list a new car
type CreateCarRequest struct {
	Make      string  `json:"make" binding:"required"`
	Model     string  `json:"model" binding:"required"`
	Year      int     `json:"year" binding:"required,min=1950"`
	DailyRate float64 `json:"daily_rate" binding:"required,gt=0"`
	Seats     int     `json:"seats" binding:"required,min=1,max=12"`
	FuelType  string  `json:"fuel_type" binding:"required"`
	GearType  string  `json:"gear_type" binding:"required"`
}

// UpdateCarRequest represents a partial update to a car listing
type UpdateCarRequest struct {
	Make      *string  `json:"make,omitempty"`
	Model     *string  `json:"model,omitempty"`
	Year      *int     `json:"year,omitempty"`
	DailyRate *float64 `json:"daily_rate,omitempty"`
	Seats     *int     `json:"seats,omitempty"`
	FuelType  *string  `json:"fuel_type,omitempty"`
	GearType  *string  `json:"gear_type,omitempty"`
	Available *bool    `json:"available,omitempty"`
}

// Validate validates the create car request beyond binding tags
func (r *CreateCarRequest) Validate() error {
	switch FuelType(r.FuelType) {
	case FuelPetrol, FuelDiesel, FuelHybrid, FuelElectric:
	default:
		return errors.New("fuel_type must be one of petrol, diesel, hybrid, electric")
	}

	switch GearType(r.GearType) {
	case GearManual, GearAutomatic:
	default:
		return errors.New("gear_type must be manual or automatic")
	}

	return nil
}

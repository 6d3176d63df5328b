package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RentalStatus represents the lifecycle status of a rental
// Matches PostgreSQL ENUM: rental_status
type RentalStatus string

const (
	RentalStatusPending   RentalStatus = "pending"   // Created, waiting for payment
	RentalStatusConfirmed RentalStatus = "confirmed" // Payment succeeded
	RentalStatusFailed    RentalStatus = "failed"    // Payment failed
	RentalStatusCancelled RentalStatus = "cancelled" // Cancelled by admin before payment
	RentalStatusExpired   RentalStatus = "expired"   // Unpaid past the payment timeout
)

// OccupyingStatuses is the set of rental statuses that block a car's date
// range. Pending counts as occupying so two payers cannot race for the same
// dates; the reaper expires stale pending rentals to free the range again.
var OccupyingStatuses = []RentalStatus{RentalStatusPending, RentalStatusConfirmed}

// rentalTransitions is the closed set of legal status transitions.
var rentalTransitions = map[RentalStatus][]RentalStatus{
	RentalStatusPending:   {RentalStatusConfirmed, RentalStatusFailed, RentalStatusCancelled, RentalStatusExpired},
	RentalStatusConfirmed: {RentalStatusCancelled},
	RentalStatusFailed:    {},
	RentalStatusCancelled: {},
	RentalStatusExpired:   {},
}

// CanTransition reports whether a rental may move from one status to another.
func CanTransition(from, to RentalStatus) bool {
	for _, allowed := range rentalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status admits no further transitions
// relevant to the booking flow.
func (s RentalStatus) IsTerminal() bool {
	return s == RentalStatusFailed || s == RentalStatusCancelled || s == RentalStatusExpired
}

// Valid reports whether the status is a known rental status.
func (s RentalStatus) Valid() bool {
	switch s {
	case RentalStatusPending, RentalStatusConfirmed, RentalStatusFailed, RentalStatusCancelled, RentalStatusExpired:
		return true
	}
	return false
}

// DateLayout is the wire format for rental dates (calendar dates, no time).
const DateLayout = "2006-01-02"

// Rental represents a booking of a car for an inclusive date range
type Rental struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	CarID       uuid.UUID    `json:"car_id" db:"car_id"`
	LesseeID    uuid.UUID    `json:"lessee_id" db:"lessee_id"`
	StartDate   time.Time    `json:"start_date" db:"start_date"`
	EndDate     time.Time    `json:"end_date" db:"end_date"`
	Status      RentalStatus `json:"status" db:"status"`
	TotalAmount float64      `json:"total_amount" db:"total_amount"`
	PaymentRef  *string      `json:"payment_ref,omitempty" db:"payment_ref"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// DayCount returns the inclusive number of billable days.
// start=2025-01-01 end=2025-01-05 is 5 days.
func DayCount(start, end time.Time) int {
	s := start.Truncate(24 * time.Hour)
	e := end.Truncate(24 * time.Hour)
	return int(e.Sub(s).Hours()/24) + 1
}

// Overlaps reports whether the rental's stored range conflicts with the
// requested inclusive range [start, end]. Because both ranges are inclusive
// calendar dates this is existing.end >= start AND existing.start <= end.
func (r *Rental) Overlaps(start, end time.Time) bool {
	return !r.EndDate.Before(start) && !r.StartDate.After(end)
}

// CreateBookingRequest represents the request to book a car
type CreateBookingRequest struct {
	CarID     string `json:"car_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// ParseDates parses and validates the requested date range.
// Both dates must be valid calendar dates, start must not be after end,
// and neither may precede today.
func (req *CreateBookingRequest) ParseDates(now time.Time) (start, end time.Time, err error) {
	start, err = time.Parse(DateLayout, req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", req.StartDate)
	}
	end, err = time.Parse(DateLayout, req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", req.EndDate)
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, errors.New("start_date must not be after end_date")
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if start.Before(today) || end.Before(today) {
		return time.Time{}, time.Time{}, errors.New("rental dates must not be in the past")
	}

	return start, end, nil
}

// UpdateRentalRequest represents an administrative edit to a rental.
// All fields are optional; present fields are applied.
type UpdateRentalRequest struct {
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	Status    *string `json:"status,omitempty"`
}

// BookingResponse is returned when a booking has been created
type BookingResponse struct {
	Rental       *Rental `json:"rental"`
	Days         int     `json:"days"`
	ClientSecret string  `json:"client_secret,omitempty"`
	CheckoutURL  string  `json:"checkout_url,omitempty"`
}

// RentalPage is a paginated list of rentals with the total count for
// pagination UI.
type RentalPage struct {
	Rentals  []Rental `json:"rentals"`
	Total    int64    `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}

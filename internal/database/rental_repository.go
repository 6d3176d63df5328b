package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/openwheels/rental-backend/internal/models"
)

// RentalRepository handles rental database operations
type RentalRepository struct {
	db DB
}

// NewRentalRepository creates a new rental repository
func NewRentalRepository(db DB) *RentalRepository {
	return &RentalRepository{
		db: db,
	}
}

// ============================================================================
// AVAILABILITY QUERIES
// ============================================================================

// GetOverlappingRentals returns rentals for the car whose range overlaps
// [start, end] and whose status still occupies the calendar. Ranges are
// inclusive calendar dates on both ends, so a rental ending on the requested
// start date is an overlap: the overlap test is end_date >= start AND
// start_date <= end, compared date-only, matching Rental.Overlaps.
func (r *RentalRepository) GetOverlappingRentals(carID uuid.UUID, start, end time.Time) ([]models.Rental, error) {
	query, args, err := sqlx.In(`
		SELECT id, car_id, lessee_id, start_date, end_date, status,
		       total_amount, payment_ref, created_at, updated_at
		FROM rentals
		WHERE car_id = ?
		  AND status IN (?)
		  AND end_date::date >= ?::date
		  AND start_date::date <= ?::date
	`, carID, models.OccupyingStatuses, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to build overlap query: %w", err)
	}

	query = r.db.Rebind(query)

	rentals := []models.Rental{}
	if err := r.db.Select(&rentals, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query overlapping rentals: %w", err)
	}
	return rentals, nil
}

// CountConfirmedOverlaps counts confirmed rentals overlapping [start, end]
// with inclusive boundaries on both ends. This is the verification pass run
// against the authoritative confirmed set alone.
func (r *RentalRepository) CountConfirmedOverlaps(carID uuid.UUID, start, end time.Time) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM rentals
		WHERE car_id = $1
		  AND status = 'confirmed'
		  AND end_date::date >= $2::date
		  AND start_date::date <= $3::date
	`
	if err := r.db.Get(&count, query, carID, start, end); err != nil {
		return 0, fmt.Errorf("failed to count confirmed overlaps: %w", err)
	}
	return count, nil
}

// ============================================================================
// RENTAL CRUD OPERATIONS
// ============================================================================

// CreateRentalLocked inserts a pending rental after re-checking availability
// inside a transaction that holds a per-car advisory lock. The lock
// serializes concurrent bookings for the same car so two requests cannot
// both pass the overlap check and both insert.
func (r *RentalRepository) CreateRentalLocked(rental *models.Rental) error {
	rental.ID = uuid.New()
	rental.Status = models.RentalStatusPending
	rental.CreatedAt = time.Now()
	rental.UpdatedAt = time.Now()

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Held until commit; keyed on the car id so unrelated cars don't contend
	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext($1))`, rental.CarID.String()); err != nil {
		return fmt.Errorf("failed to acquire car lock: %w", err)
	}

	// Same inclusive overlap test as GetOverlappingRentals, re-run under
	// the lock so the answer cannot go stale before the insert
	query, args, err := sqlx.In(`
		SELECT COUNT(*)
		FROM rentals
		WHERE car_id = ?
		  AND status IN (?)
		  AND end_date::date >= ?::date
		  AND start_date::date <= ?::date
	`, rental.CarID, models.OccupyingStatuses, rental.StartDate, rental.EndDate)
	if err != nil {
		return fmt.Errorf("failed to build overlap query: %w", err)
	}
	query = tx.Rebind(query)

	var overlaps int
	if err := tx.Get(&overlaps, query, args...); err != nil {
		return fmt.Errorf("failed to re-check availability: %w", err)
	}
	if overlaps > 0 {
		return ErrDateConflict
	}

	_, err = tx.Exec(`
		INSERT INTO rentals (
			id, car_id, lessee_id, start_date, end_date, status,
			total_amount, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rental.ID, rental.CarID, rental.LesseeID,
		rental.StartDate, rental.EndDate, rental.Status,
		rental.TotalAmount, rental.CreatedAt, rental.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rental: %w", err)
	}

	return tx.Commit()
}

// GetRentalByID retrieves a rental by ID
func (r *RentalRepository) GetRentalByID(rentalID uuid.UUID) (*models.Rental, error) {
	var rental models.Rental

	query := `
		SELECT id, car_id, lessee_id, start_date, end_date, status,
		       total_amount, payment_ref, created_at, updated_at
		FROM rentals
		WHERE id = $1
	`

	err := r.db.Get(&rental, query, rentalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}

	return &rental, nil
}

// ListRentalsByLessee retrieves a page of rentals booked by a user, newest
// first, along with the total count for pagination
func (r *RentalRepository) ListRentalsByLessee(lesseeID uuid.UUID, limit, offset int) ([]models.Rental, int64, error) {
	var total int64
	if err := r.db.Get(&total, `SELECT COUNT(*) FROM rentals WHERE lessee_id = $1`, lesseeID); err != nil {
		return nil, 0, fmt.Errorf("failed to count rentals: %w", err)
	}

	query := `
		SELECT id, car_id, lessee_id, start_date, end_date, status,
		       total_amount, payment_ref, created_at, updated_at
		FROM rentals
		WHERE lessee_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rentals := []models.Rental{}
	if err := r.db.Select(&rentals, query, lesseeID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list rentals: %w", err)
	}

	return rentals, total, nil
}

// ListRentalsByOwner retrieves a page of rentals against any car owned by
// the user, newest first, along with the total count
func (r *RentalRepository) ListRentalsByOwner(ownerID uuid.UUID, limit, offset int) ([]models.Rental, int64, error) {
	var total int64
	countQuery := `
		SELECT COUNT(*)
		FROM rentals r
		JOIN cars c ON c.id = r.car_id
		WHERE c.owner_id = $1
	`
	if err := r.db.Get(&total, countQuery, ownerID); err != nil {
		return nil, 0, fmt.Errorf("failed to count rentals: %w", err)
	}

	query := `
		SELECT r.id, r.car_id, r.lessee_id, r.start_date, r.end_date, r.status,
		       r.total_amount, r.payment_ref, r.created_at, r.updated_at
		FROM rentals r
		JOIN cars c ON c.id = r.car_id
		WHERE c.owner_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rentals := []models.Rental{}
	if err := r.db.Select(&rentals, query, ownerID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list rentals: %w", err)
	}

	return rentals, total, nil
}

// ============================================================================
// STATUS UPDATE OPERATIONS
// ============================================================================

// UpdateRentalStatus moves a rental from one of the given statuses to the
// target status. Matching no row means the rental is missing or its status
// already moved on, which callers treat as a transition conflict.
func (r *RentalRepository) UpdateRentalStatus(rentalID uuid.UUID, from []models.RentalStatus, to models.RentalStatus) error {
	query, args, err := sqlx.In(`
		UPDATE rentals
		SET status = ?, updated_at = NOW()
		WHERE id = ? AND status IN (?)
	`, to, rentalID, from)
	if err != nil {
		return fmt.Errorf("failed to build status update: %w", err)
	}
	query = r.db.Rebind(query)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update rental status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// SetPaymentRef records the processor's intent or session reference
func (r *RentalRepository) SetPaymentRef(rentalID uuid.UUID, paymentRef string) error {
	query := `UPDATE rentals SET payment_ref = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(query, rentalID, paymentRef)
	return err
}

// UpdateRentalDatesLocked rewrites a pending rental's date range after
// re-checking availability under the same per-car advisory lock used at
// creation. The rental itself is excluded from the overlap check.
func (r *RentalRepository) UpdateRentalDatesLocked(rentalID, carID uuid.UUID, start, end time.Time, totalAmount float64) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext($1))`, carID.String()); err != nil {
		return fmt.Errorf("failed to acquire car lock: %w", err)
	}

	query, args, err := sqlx.In(`
		SELECT COUNT(*)
		FROM rentals
		WHERE car_id = ?
		  AND id <> ?
		  AND status IN (?)
		  AND end_date::date >= ?::date
		  AND start_date::date <= ?::date
	`, carID, rentalID, models.OccupyingStatuses, start, end)
	if err != nil {
		return fmt.Errorf("failed to build overlap query: %w", err)
	}
	query = tx.Rebind(query)

	var overlaps int
	if err := tx.Get(&overlaps, query, args...); err != nil {
		return fmt.Errorf("failed to re-check availability: %w", err)
	}
	if overlaps > 0 {
		return ErrDateConflict
	}

	result, err := tx.Exec(`
		UPDATE rentals
		SET start_date = $2, end_date = $3, total_amount = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, rentalID, start, end, totalAmount)
	if err != nil {
		return fmt.Errorf("failed to update rental dates: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrInvalidTransition
	}

	return tx.Commit()
}

// ============================================================================
// STALE PENDING EXPIRY (Background Job Support)
// ============================================================================

// ExpireStalePending marks pending rentals older than the TTL as expired,
// freeing their date ranges. Returns the number of rentals expired.
func (r *RentalRepository) ExpireStalePending(ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	query := `
		UPDATE rentals
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'pending' AND created_at < $1
	`
	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale rentals: %w", err)
	}

	rows, _ := result.RowsAffected()
	return int(rows), nil
}

package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openwheels/rental-backend/internal/models"
)

// TransactionRepository handles payment transaction database operations
type TransactionRepository struct {
	db DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db DB) *TransactionRepository {
	return &TransactionRepository{
		db: db,
	}
}

// GetTransactionByRentalID retrieves the transaction for a rental
func (r *TransactionRepository) GetTransactionByRentalID(rentalID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction

	query := `
		SELECT id, rental_id, payer_id, payee_id, amount, status,
		       processor_ref, created_at, updated_at
		FROM transactions
		WHERE rental_id = $1
	`

	err := r.db.Get(&txn, query, rentalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &txn, nil
}

// ApplyPaymentSuccess records the settled transaction and moves the rental
// to confirmed. The event's dedup row rides in the same database transaction
// as the money movement: a failed apply rolls the dedup row back too, so the
// processor's redelivery of the same event id starts over instead of being
// swallowed as a duplicate. The transaction upserts against the unique key
// on rental_id so a redelivered webhook never produces a second money
// record, and the rental update is conditional so confirming twice is a
// no-op rather than an error.
func (r *TransactionRepository) ApplyPaymentSuccess(event *models.WebhookEvent, amount float64, processorRef string) (duplicate bool, err error) {
	if event.RentalID == nil {
		return false, fmt.Errorf("payment success event %s has no rental", event.EventID)
	}
	rentalID := *event.RentalID

	tx, err := r.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := insertWebhookEvent(tx, event)
	if err != nil {
		return false, err
	}
	if !inserted {
		return true, nil
	}

	// Resolve payer and payee from the rental and its car
	var parties struct {
		LesseeID uuid.UUID           `db:"lessee_id"`
		OwnerID  uuid.UUID           `db:"owner_id"`
		Status   models.RentalStatus `db:"status"`
	}
	err = tx.Get(&parties, `
		SELECT r.lessee_id, c.owner_id, r.status
		FROM rentals r
		JOIN cars c ON c.id = r.car_id
		WHERE r.id = $1
	`, rentalID)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to resolve rental parties: %w", err)
	}

	if err == sql.ErrNoRows ||
		(parties.Status != models.RentalStatusPending && parties.Status != models.RentalStatusConfirmed) {
		// Nothing to apply; keep the audit row so the redelivery is deduped
		if commitErr := tx.Commit(); commitErr != nil {
			return false, fmt.Errorf("failed to commit webhook event: %w", commitErr)
		}
		return false, ErrInvalidTransition
	}

	now := time.Now()
	_, err = tx.Exec(`
		INSERT INTO transactions (
			id, rental_id, payer_id, payee_id, amount, status,
			processor_ref, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, 'done', $6, $7, $8)
		ON CONFLICT (rental_id) DO UPDATE
		SET status = 'done',
		    amount = EXCLUDED.amount,
		    processor_ref = EXCLUDED.processor_ref,
		    updated_at = EXCLUDED.updated_at
	`,
		uuid.New(), rentalID, parties.LesseeID, parties.OwnerID,
		amount, processorRef, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert transaction: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE rentals
		SET status = 'confirmed', payment_ref = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, rentalID, processorRef)
	if err != nil {
		return false, fmt.Errorf("failed to confirm rental: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit payment success: %w", err)
	}
	return false, nil
}

// ApplyPaymentFailure records the failed transaction, if one was started,
// and moves a pending rental to failed. The event's dedup row commits with
// the state change, same as ApplyPaymentSuccess.
func (r *TransactionRepository) ApplyPaymentFailure(event *models.WebhookEvent, processorRef string) (duplicate bool, err error) {
	if event.RentalID == nil {
		return false, fmt.Errorf("payment failure event %s has no rental", event.EventID)
	}
	rentalID := *event.RentalID

	tx, err := r.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := insertWebhookEvent(tx, event)
	if err != nil {
		return false, err
	}
	if !inserted {
		return true, nil
	}

	_, err = tx.Exec(`
		UPDATE transactions
		SET status = 'failed', processor_ref = $2, updated_at = NOW()
		WHERE rental_id = $1
	`, rentalID, processorRef)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction failed: %w", err)
	}

	result, err := tx.Exec(`
		UPDATE rentals
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, rentalID)
	if err != nil {
		return false, fmt.Errorf("failed to fail rental: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Rental already moved on; keep the audit row so the redelivery
		// is deduped
		if commitErr := tx.Commit(); commitErr != nil {
			return false, fmt.Errorf("failed to commit webhook event: %w", commitErr)
		}
		return false, ErrInvalidTransition
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit payment failure: %w", err)
	}
	return false, nil
}

package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openwheels/rental-backend/internal/models"
)

// execer is satisfied by both DB and *sqlx.Tx so the audit insert can run
// standalone or inside a caller's transaction
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// insertWebhookEvent writes the audit row for a delivery. The unique index
// on event_id makes the insert the idempotency check: a redelivery inserts
// nothing and inserted comes back false.
func insertWebhookEvent(e execer, event *models.WebhookEvent) (inserted bool, err error) {
	event.ID = uuid.New()
	event.ReceivedAt = time.Now()

	query := `
		INSERT INTO webhook_events (
			id, event_id, event_type, rental_id, amount,
			amounts_match, raw_body, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING
	`

	result, err := e.Exec(
		query,
		event.ID,
		event.EventID,
		event.EventType,
		event.RentalID,
		event.Amount,
		event.AmountsMatch,
		event.RawBody,
		event.ReceivedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}

	rows, _ := result.RowsAffected()
	event.Duplicate = rows == 0
	return rows > 0, nil
}

// WebhookEventRepository handles the webhook delivery audit trail
type WebhookEventRepository struct {
	db DB
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db DB) *WebhookEventRepository {
	return &WebhookEventRepository{
		db: db,
	}
}

// RecordEvent inserts an audit row for a webhook delivery that is not tied
// to a state change, such as one referencing an unknown rental. Deliveries
// that confirm or fail a rental are recorded inside the apply transaction
// instead, so the dedup row and the state change commit together.
func (r *WebhookEventRepository) RecordEvent(event *models.WebhookEvent) (duplicate bool, err error) {
	inserted, err := insertWebhookEvent(r.db, event)
	if err != nil {
		return false, err
	}
	return !inserted, nil
}

// ListRecentEvents returns the latest webhook deliveries for inspection
func (r *WebhookEventRepository) ListRecentEvents(limit int) ([]models.WebhookEvent, error) {
	query := `
		SELECT id, event_id, event_type, rental_id, amount,
		       amounts_match, raw_body, received_at
		FROM webhook_events
		ORDER BY received_at DESC
		LIMIT $1
	`

	events := []models.WebhookEvent{}
	if err := r.db.Select(&events, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}
	return events, nil
}

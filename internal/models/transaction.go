package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the settlement status of a payment record
// Matches PostgreSQL ENUM: transaction_status
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusDone    TransactionStatus = "done"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// Transaction is the durable record of money movement for a rental.
// Exactly one transaction exists per rental (unique on rental_id); webhook
// retries upsert against that key so a payment is never double-counted.
type Transaction struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	RentalID      uuid.UUID         `json:"rental_id" db:"rental_id"`
	PayerID       uuid.UUID         `json:"payer_id" db:"payer_id"`
	PayeeID       uuid.UUID         `json:"payee_id" db:"payee_id"`
	Amount        float64           `json:"amount" db:"amount"`
	Status        TransactionStatus `json:"status" db:"status"`
	ProcessorRef  *string           `json:"processor_ref,omitempty" db:"processor_ref"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType classifies processor webhook events the bridge reacts to.
type PaymentEventType string

const (
	EventPaymentSucceeded PaymentEventType = "payment_intent.succeeded"
	EventPaymentFailed    PaymentEventType = "payment_intent.payment_failed"
	EventCheckoutComplete PaymentEventType = "checkout.session.completed"
)

// PaymentEvent is the parsed form of a processor webhook delivery.
type PaymentEvent struct {
	ID       string           `json:"id"`
	Type     PaymentEventType `json:"type"`
	RentalID string           `json:"rental_id"`
	Amount   float64          `json:"amount"`
	Currency string           `json:"currency"`
	Raw      []byte           `json:"-"`
}

// WebhookEvent is the audit record of a webhook delivery. The unique event
// id doubles as the idempotency key: a second delivery of the same event is
// recorded as a duplicate and otherwise ignored.
type WebhookEvent struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	EventID      string     `json:"event_id" db:"event_id"`
	EventType    string     `json:"event_type" db:"event_type"`
	RentalID     *uuid.UUID `json:"rental_id,omitempty" db:"rental_id"`
	Amount       float64    `json:"amount" db:"amount"`
	AmountsMatch bool       `json:"amounts_match" db:"amounts_match"`
	Duplicate    bool       `json:"duplicate" db:"duplicate"`
	RawBody      []byte     `json:"-" db:"raw_body"`
	ReceivedAt   time.Time  `json:"received_at" db:"received_at"`
}

// IntentResponse is returned by the processor when a payment intent is
// created. ClientSecret is handed to the client to complete the payment.
type IntentResponse struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

// CheckoutSessionResponse is returned when a hosted checkout session is
// created; the payer is redirected to URL.
type CheckoutSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// ConnectedAccountResponse is returned when a payee account is registered
// with the processor for split payouts.
type ConnectedAccountResponse struct {
	AccountID string `json:"account_id"`
}

package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openwheels/rental-backend/internal/config"
	"github.com/openwheels/rental-backend/internal/database"
	"github.com/openwheels/rental-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// SignatureHeader carries the HMAC of the webhook body, hex encoded
const SignatureHeader = "Paywheel-Signature"

// PaymentService integrates with the payment processor: it creates intents
// and checkout sessions, registers payout accounts, and applies webhook
// events to rentals and transactions.
type PaymentService struct {
	config      *config.PaymentConfig
	logger      *logrus.Logger
	client      *http.Client
	webhookRepo *database.WebhookEventRepository
	txnRepo     *database.TransactionRepository
	rentalRepo  *database.RentalRepository
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	cfg *config.PaymentConfig,
	webhookRepo *database.WebhookEventRepository,
	txnRepo *database.TransactionRepository,
	rentalRepo *database.RentalRepository,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		config:      cfg,
		logger:      logger,
		client:      &http.Client{Timeout: 30 * time.Second},
		webhookRepo: webhookRepo,
		txnRepo:     txnRepo,
		rentalRepo:  rentalRepo,
	}
}

// intentRequest is the payload sent to the processor to create an intent
type intentRequest struct {
	Amount         int64             `json:"amount"` // minor units
	Currency       string            `json:"currency"`
	ApplicationFee int64             `json:"application_fee_amount,omitempty"`
	TransferTo     string            `json:"transfer_destination,omitempty"`
	Metadata       map[string]string `json:"metadata"`
}

type intentReply struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Error        string `json:"error,omitempty"`
}

// checkoutRequest is the payload sent to create a hosted checkout session
type checkoutRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Description    string            `json:"description"`
	ApplicationFee int64             `json:"application_fee_amount,omitempty"`
	TransferTo     string            `json:"transfer_destination,omitempty"`
	SuccessURL     string            `json:"success_url"`
	CancelURL      string            `json:"cancel_url"`
	Metadata       map[string]string `json:"metadata"`
}

type checkoutReply struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Error string `json:"error,omitempty"`
}

type accountReply struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// webhookEnvelope is the wire form of a processor webhook delivery
type webhookEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Amount   int64             `json:"amount"`
			Currency string            `json:"currency"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// toMinorUnits converts a currency amount to the processor's integer form
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// platformFeeMinor computes the platform's cut in minor units. The fee is
// taken processor-side; the rental and transaction keep the full amount.
func (s *PaymentService) platformFeeMinor(amount float64) int64 {
	return int64(math.Round(amount * s.config.PlatformFee * 100))
}

// CreateIntent registers a payment intent for the rental with the processor
// and returns the client secret the payer uses to complete payment.
func (s *PaymentService) CreateIntent(rental *models.Rental, car *models.Car) (*models.IntentResponse, error) {
	payload := intentRequest{
		Amount:         toMinorUnits(rental.TotalAmount),
		Currency:       s.config.Currency,
		ApplicationFee: s.platformFeeMinor(rental.TotalAmount),
		Metadata: map[string]string{
			"rental_id": rental.ID.String(),
		},
	}
	if car.PayoutAccountID != nil {
		payload.TransferTo = *car.PayoutAccountID
	}

	var reply intentReply
	if err := s.post("/payment_intents", payload, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, Errorf(ErrProcessor, reply.Error)
	}

	s.logger.WithFields(logrus.Fields{
		"rental_id": rental.ID,
		"intent_id": reply.ID,
		"amount":    rental.TotalAmount,
	}).Info("Payment intent created")

	return &models.IntentResponse{
		IntentID:     reply.ID,
		ClientSecret: reply.ClientSecret,
	}, nil
}

// CreateCheckoutSession creates a hosted checkout page for the rental and
// returns the URL the payer is redirected to.
func (s *PaymentService) CreateCheckoutSession(rental *models.Rental, car *models.Car) (*models.CheckoutSessionResponse, error) {
	days := models.DayCount(rental.StartDate, rental.EndDate)
	payload := checkoutRequest{
		Amount:         toMinorUnits(rental.TotalAmount),
		Currency:       s.config.Currency,
		Description:    fmt.Sprintf("%s %s, %d day(s)", car.Make, car.Model, days),
		ApplicationFee: s.platformFeeMinor(rental.TotalAmount),
		SuccessURL:     s.config.SuccessURL,
		CancelURL:      s.config.CancelURL,
		Metadata: map[string]string{
			"rental_id": rental.ID.String(),
		},
	}
	if car.PayoutAccountID != nil {
		payload.TransferTo = *car.PayoutAccountID
	}

	var reply checkoutReply
	if err := s.post("/checkout/sessions", payload, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, Errorf(ErrProcessor, reply.Error)
	}

	return &models.CheckoutSessionResponse{
		SessionID: reply.ID,
		URL:       reply.URL,
	}, nil
}

// CreateConnectedAccount registers a car owner with the processor so their
// share of rental payments can be paid out directly.
func (s *PaymentService) CreateConnectedAccount(ownerID uuid.UUID, email string) (*models.ConnectedAccountResponse, error) {
	payload := map[string]string{
		"type":  "express",
		"email": email,
		"ref":   ownerID.String(),
	}

	var reply accountReply
	if err := s.post("/accounts", payload, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, Errorf(ErrProcessor, reply.Error)
	}

	return &models.ConnectedAccountResponse{AccountID: reply.ID}, nil
}

// post sends an authenticated JSON request to the processor API
func (s *PaymentService) post(path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return WrapErr(ErrProcessor, "failed to encode processor request", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return WrapErr(ErrProcessor, "failed to build processor request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.SecretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return WrapErr(ErrProcessor, "payment processor unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return WrapErr(ErrProcessor, "failed to read processor response", err)
	}

	if resp.StatusCode >= 400 {
		s.logger.WithFields(logrus.Fields{
			"path":   path,
			"status": resp.StatusCode,
			"body":   string(respBody),
		}).Error("Processor request rejected")
		return Errorf(ErrProcessor, fmt.Sprintf("processor returned status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return WrapErr(ErrProcessor, "failed to decode processor response", err)
	}
	return nil
}

// ============================================================================
// WEBHOOK HANDLING
// ============================================================================

// VerifySignature checks the HMAC-SHA256 of the raw body against the
// signature header using the shared webhook secret.
func (s *PaymentService) VerifySignature(body []byte, signature string) error {
	if signature == "" {
		return Errorf(ErrBadSignature, "missing signature header")
	}

	mac := hmac.New(sha256.New, []byte(s.config.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return Errorf(ErrBadSignature, "webhook signature mismatch")
	}
	return nil
}

// ParseEvent decodes a verified webhook body into a payment event
func (s *PaymentService) ParseEvent(body []byte) (*models.PaymentEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, WrapErr(ErrValidation, "malformed webhook payload", err)
	}
	if envelope.ID == "" {
		return nil, Errorf(ErrValidation, "webhook event has no id")
	}

	return &models.PaymentEvent{
		ID:       envelope.ID,
		Type:     models.PaymentEventType(envelope.Type),
		RentalID: envelope.Data.Object.Metadata["rental_id"],
		Amount:   float64(envelope.Data.Object.Amount) / 100,
		Currency: envelope.Data.Object.Currency,
		Raw:      body,
	}, nil
}

// HandleWebhook verifies, deduplicates and applies a webhook delivery.
// A bad signature is the only rejection the processor sees; every verified
// delivery is acknowledged so the processor stops retrying, including
// events of types we don't act on.
func (s *PaymentService) HandleWebhook(body []byte, signature string) error {
	if err := s.VerifySignature(body, signature); err != nil {
		return err
	}

	event, err := s.ParseEvent(body)
	if err != nil {
		s.logger.WithError(err).Warn("Ignoring unparseable webhook delivery")
		return nil
	}

	log := s.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	switch event.Type {
	case models.EventPaymentSucceeded, models.EventCheckoutComplete:
		return s.applySuccess(event, log)
	case models.EventPaymentFailed:
		return s.applyFailure(event, log)
	default:
		log.Info("Ignoring unrecognized webhook event type")
		return nil
	}
}

func (s *PaymentService) applySuccess(event *models.PaymentEvent, log *logrus.Entry) error {
	if event.RentalID == "" {
		log.Warn("Payment succeeded event has no rental_id metadata")
		return nil
	}
	rentalID, err := uuid.Parse(event.RentalID)
	if err != nil {
		log.WithError(err).Warn("Payment succeeded event has malformed rental_id")
		return nil
	}
	if event.Amount <= 0 {
		log.WithField("amount", event.Amount).Warn("Payment succeeded event has non-positive amount")
		return nil
	}

	rental, err := s.rentalRepo.GetRentalByID(rentalID)
	if err != nil {
		return WrapErr(ErrPersistence, "failed to load rental for webhook", err)
	}

	audit := &models.WebhookEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
		RentalID:  &rentalID,
		Amount:    event.Amount,
		RawBody:   event.Raw,
	}

	if rental == nil {
		// Nothing to apply; keep the delivery in the audit trail
		if _, recErr := s.webhookRepo.RecordEvent(audit); recErr != nil {
			log.WithError(recErr).Error("Failed to record webhook event for unknown rental")
		}
		log.WithField("rental_id", rentalID).Warn("Payment succeeded event for unknown rental")
		return nil
	}

	audit.AmountsMatch = math.Abs(event.Amount-rental.TotalAmount) < 0.01
	if !audit.AmountsMatch {
		log.WithFields(logrus.Fields{
			"expected": rental.TotalAmount,
			"received": event.Amount,
		}).Warn("Webhook amount does not match rental total")
	}

	// The dedup row commits together with the transaction and the rental
	// update, so a failed apply leaves no trace and the redelivery retries
	// the whole thing
	duplicate, err := s.txnRepo.ApplyPaymentSuccess(audit, event.Amount, event.ID)
	if err == database.ErrInvalidTransition {
		log.Info("Rental no longer pending, success event skipped")
		return nil
	}
	if err != nil {
		return WrapErr(ErrPersistence, "failed to apply payment success", err)
	}
	if duplicate {
		log.Info("Duplicate webhook delivery, already applied")
		return nil
	}

	log.WithField("rental_id", rentalID).Info("Rental confirmed by payment webhook")
	return nil
}

func (s *PaymentService) applyFailure(event *models.PaymentEvent, log *logrus.Entry) error {
	if event.RentalID == "" {
		log.Warn("Payment failed event has no rental_id metadata")
		return nil
	}
	rentalID, err := uuid.Parse(event.RentalID)
	if err != nil {
		log.WithError(err).Warn("Payment failed event has malformed rental_id")
		return nil
	}

	audit := &models.WebhookEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
		RentalID:  &rentalID,
		Amount:    event.Amount,
		RawBody:   event.Raw,
	}

	duplicate, err := s.txnRepo.ApplyPaymentFailure(audit, event.ID)
	if err == database.ErrInvalidTransition {
		log.Info("Rental no longer pending, failure event skipped")
		return nil
	}
	if err != nil {
		return WrapErr(ErrPersistence, "failed to apply payment failure", err)
	}
	if duplicate {
		log.Info("Duplicate webhook delivery, already applied")
		return nil
	}

	log.WithField("rental_id", rentalID).Info("Rental failed by payment webhook")
	return nil
}

// RecentEvents returns the latest webhook deliveries for the admin audit
// view. The limit is clamped to 1..200 with a default of 50.
func (s *PaymentService) RecentEvents(limit int) ([]models.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	events, err := s.webhookRepo.ListRecentEvents(limit)
	if err != nil {
		return nil, WrapErr(ErrPersistence, "failed to list webhook events", err)
	}
	return events, nil
}

// IsConfigured reports whether processor credentials are present
func (s *PaymentService) IsConfigured() bool {
	return s.config.SecretKey != "" && s.config.WebhookSecret != ""
}

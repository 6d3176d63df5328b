package services

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/openwheels/rental-backend/internal/database"
	"github.com/openwheels/rental-backend/internal/models"
	"github.com/phpdave11/gofpdf"
	"github.com/sirupsen/logrus"
)

// ReceiptService renders PDF receipts for confirmed rentals
type ReceiptService struct {
	rentalRepo *database.RentalRepository
	carRepo    *database.CarRepository
	txnRepo    *database.TransactionRepository
	logger     *logrus.Logger
}

// NewReceiptService creates a new receipt service
func NewReceiptService(
	rentalRepo *database.RentalRepository,
	carRepo *database.CarRepository,
	txnRepo *database.TransactionRepository,
	logger *logrus.Logger,
) *ReceiptService {
	return &ReceiptService{
		rentalRepo: rentalRepo,
		carRepo:    carRepo,
		txnRepo:    txnRepo,
		logger:     logger,
	}
}

// GenerateReceipt renders the receipt for a confirmed rental. Only the
// lessee or an admin may fetch it.
func (s *ReceiptService) GenerateReceipt(rentalID, requesterID uuid.UUID, isAdmin bool) ([]byte, string, error) {
	rental, err := s.rentalRepo.GetRentalByID(rentalID)
	if err != nil {
		return nil, "", WrapErr(ErrPersistence, "failed to load rental", err)
	}
	if rental == nil {
		return nil, "", Errorf(ErrNotFound, "rental not found")
	}
	if !isAdmin && rental.LesseeID != requesterID {
		return nil, "", Errorf(ErrUnauthorized, "not allowed to fetch this receipt")
	}
	if rental.Status != models.RentalStatusConfirmed {
		return nil, "", Errorf(ErrConflict, "receipts are only available for confirmed rentals")
	}

	car, err := s.carRepo.GetCarByID(rental.CarID)
	if err != nil {
		return nil, "", WrapErr(ErrPersistence, "failed to load car", err)
	}
	if car == nil {
		return nil, "", Errorf(ErrNotFound, "car not found")
	}

	txn, err := s.txnRepo.GetTransactionByRentalID(rentalID)
	if err != nil {
		return nil, "", WrapErr(ErrPersistence, "failed to load transaction", err)
	}

	pdfBytes, err := buildReceiptPDF(rental, car, txn)
	if err != nil {
		return nil, "", WrapErr(ErrPersistence, "failed to render receipt", err)
	}

	s.logger.WithField("rental_id", rentalID).Info("Receipt generated")

	filename := fmt.Sprintf("receipt_%s.pdf", rentalID)
	return pdfBytes, filename, nil
}

func buildReceiptPDF(rental *models.Rental, car *models.Car, txn *models.Transaction) ([]byte, error) {
	days := models.DayCount(rental.StartDate, rental.EndDate)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Rental Receipt", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "RENTAL RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Rental ID    : %s", rental.ID),
		fmt.Sprintf("Vehicle      : %s %s (%d)", car.Make, car.Model, car.Year),
		fmt.Sprintf("Period       : %s to %s", rental.StartDate.Format(models.DateLayout), rental.EndDate.Format(models.DateLayout)),
		fmt.Sprintf("Days         : %d", days),
		fmt.Sprintf("Daily rate   : %.2f", car.DailyRate),
		fmt.Sprintf("Total        : %.2f", rental.TotalAmount),
	}
	if txn != nil {
		lines = append(lines,
			fmt.Sprintf("Payment      : %s", txn.Status),
			fmt.Sprintf("Paid amount  : %.2f", txn.Amount),
		)
		if txn.ProcessorRef != nil {
			lines = append(lines, fmt.Sprintf("Reference    : %s", *txn.ProcessorRef))
		}
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "The platform service fee is settled by the payment processor and is not deducted from the amount above.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

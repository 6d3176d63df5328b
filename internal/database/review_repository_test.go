package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/openwheels/rental-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExistsForRental(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)
	rentalID := uuid.New()

	t.Run("review already present", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(rentalID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.ExistsForRental(rentalID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("no review yet", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(rentalID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := repo.ExistsForRental(rentalID)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestCreateReview(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)

	review := &models.Review{
		CarID:      uuid.New(),
		ReviewerID: uuid.New(),
		RentalID:   uuid.New(),
		Rating:     4,
		Comment:    "Clean car, smooth pickup",
	}

	t.Run("inserts and recomputes the car rating", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO reviews`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`UPDATE cars`).
			WithArgs(review.CarID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CreateReview(review)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, review.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to duplicate review", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO reviews`).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err := repo.CreateReview(review)
		assert.Equal(t, ErrDuplicateReview, err)
	})
}

func TestGetReviewsByCarID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)
	carID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "car_id", "reviewer_id", "rental_id", "rating", "comment", "created_at",
	}).AddRow(uuid.New().String(), carID.String(), uuid.New().String(),
		uuid.New().String(), 5, "Great", day("2025-06-20"))

	mock.ExpectQuery(`SELECT id, car_id, reviewer_id, rental_id, rating, comment`).
		WithArgs(carID).
		WillReturnRows(rows)

	reviews, err := repo.GetReviewsByCarID(carID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Rating)
}

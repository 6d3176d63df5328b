package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDayCount(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{"single day", "2025-01-01", "2025-01-01", 1},
		{"five days inclusive", "2025-01-01", "2025-01-05", 5},
		{"across month boundary", "2025-01-30", "2025-02-02", 4},
		{"full week", "2025-06-10", "2025-06-16", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DayCount(date(tt.start), date(tt.end)))
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(RentalStatusPending, RentalStatusConfirmed))
	assert.True(t, CanTransition(RentalStatusPending, RentalStatusFailed))
	assert.True(t, CanTransition(RentalStatusPending, RentalStatusCancelled))
	assert.True(t, CanTransition(RentalStatusPending, RentalStatusExpired))
	assert.True(t, CanTransition(RentalStatusConfirmed, RentalStatusCancelled))

	// Terminal statuses admit nothing
	assert.False(t, CanTransition(RentalStatusFailed, RentalStatusPending))
	assert.False(t, CanTransition(RentalStatusCancelled, RentalStatusConfirmed))
	assert.False(t, CanTransition(RentalStatusExpired, RentalStatusConfirmed))
	assert.False(t, CanTransition(RentalStatusConfirmed, RentalStatusPending))
	assert.False(t, CanTransition(RentalStatusConfirmed, RentalStatusConfirmed))
}

func TestRentalStatusIsTerminal(t *testing.T) {
	assert.False(t, RentalStatusPending.IsTerminal())
	assert.False(t, RentalStatusConfirmed.IsTerminal())
	assert.True(t, RentalStatusFailed.IsTerminal())
	assert.True(t, RentalStatusCancelled.IsTerminal())
	assert.True(t, RentalStatusExpired.IsTerminal())
}

func TestRentalOverlaps(t *testing.T) {
	// Existing confirmed rental June 10-15
	rental := &Rental{
		StartDate: date("2025-06-10"),
		EndDate:   date("2025-06-15"),
		Status:    RentalStatusConfirmed,
	}

	tests := []struct {
		name  string
		start string
		end   string
		want  bool
	}{
		{"overlapping tail", "2025-06-14", "2025-06-20", true},
		{"contiguous after", "2025-06-16", "2025-06-20", false},
		{"contained inside", "2025-06-11", "2025-06-12", true},
		{"covering the whole range", "2025-06-01", "2025-06-30", true},
		{"touching last day", "2025-06-15", "2025-06-18", true},
		{"touching first day", "2025-06-05", "2025-06-10", true},
		{"well before", "2025-06-01", "2025-06-05", false},
		{"well after", "2025-06-20", "2025-06-25", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rental.Overlaps(date(tt.start), date(tt.end)))
		})
	}
}

func TestCreateBookingRequestParseDates(t *testing.T) {
	now := date("2025-06-01")

	t.Run("valid range", func(t *testing.T) {
		req := &CreateBookingRequest{StartDate: "2025-06-10", EndDate: "2025-06-15"}
		start, end, err := req.ParseDates(now)
		require.NoError(t, err)
		assert.Equal(t, date("2025-06-10"), start)
		assert.Equal(t, date("2025-06-15"), end)
	})

	t.Run("single day booking", func(t *testing.T) {
		req := &CreateBookingRequest{StartDate: "2025-06-10", EndDate: "2025-06-10"}
		_, _, err := req.ParseDates(now)
		assert.NoError(t, err)
	})

	t.Run("malformed start date", func(t *testing.T) {
		req := &CreateBookingRequest{StartDate: "10/06/2025", EndDate: "2025-06-15"}
		_, _, err := req.ParseDates(now)
		assert.Error(t, err)
	})

	t.Run("malformed end date", func(t *testing.T) {
		req := &CreateBookingRequest{StartDate: "2025-06-10", EndDate: "June 15"}
		_, _, err := req.ParseDates(now)
		assert.Error(t, err)
	})

	t.Run("start after end", func(t *testing.T) {
		req := &CreateBookingRequest{StartDate: "2025-06-15", EndDate: "2025-06-10"}
		_, _, err := req.ParseDates(now)
		assert.Error(t, err)
	})

	t.Run("dates in the past", func(t *testing.T) {
		req := &CreateBookingRequest{StartDate: "2025-05-01", EndDate: "2025-05-05"}
		_, _, err := req.ParseDates(now)
		assert.Error(t, err)
	})

	t.Run("starting today is allowed", func(t *testing.T) {
		req := &CreateBookingRequest{StartDate: "2025-06-01", EndDate: "2025-06-03"}
		_, _, err := req.ParseDates(now)
		assert.NoError(t, err)
	})
}

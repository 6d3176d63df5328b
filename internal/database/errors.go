package database

import "errors"

// Sentinel errors returned by repositories so services can distinguish
// business outcomes from infrastructure failures.
var (
	// ErrDateConflict means the requested date range overlaps an occupying rental.
	ErrDateConflict = errors.New("date range conflicts with an existing rental")

	// ErrInvalidTransition means a conditional status update matched no row,
	// either because the rental is gone or its status already moved on.
	ErrInvalidTransition = errors.New("rental not in a valid status for this transition")

	// ErrDuplicateReview means a review already exists for the rental.
	ErrDuplicateReview = errors.New("rental has already been reviewed")
)

package services

import "errors"

// ErrCode classifies service-layer failures so handlers can map them to
// HTTP statuses without string matching.
type ErrCode string

const (
	ErrValidation      ErrCode = "VALIDATION"
	ErrUnauthorized    ErrCode = "UNAUTHORIZED"
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrAlreadyReviewed ErrCode = "ALREADY_REVIEWED"
	ErrInvalidRating   ErrCode = "INVALID_RATING"
	ErrEmptyComment    ErrCode = "EMPTY_COMMENT"
	ErrPersistence     ErrCode = "PERSISTENCE"
	ErrProcessor       ErrCode = "PROCESSOR"
	ErrBadSignature    ErrCode = "BAD_SIGNATURE"
)

type codedError struct {
	code ErrCode
	msg  string
	err  error
}

func (e *codedError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return string(e.code)
}

func (e *codedError) Code() ErrCode { return e.code }
func (e *codedError) Unwrap() error { return e.err }

// Errorf builds a coded error with a user-displayable message.
func Errorf(code ErrCode, msg string) error {
	return &codedError{code: code, msg: msg}
}

// WrapErr builds a coded error around an underlying cause. The cause is
// kept for server-side logging; only msg is user-facing.
func WrapErr(code ErrCode, msg string, err error) error {
	return &codedError{code: code, msg: msg, err: err}
}

// Code extracts the error code, or "" for uncoded errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

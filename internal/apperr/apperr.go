package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable, user-visible error identifier.
type Code string

const (
	CodeEmptySale             Code = "EMPTY_SALE"
	CodeEmptyUpdate           Code = "EMPTY_UPDATE"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInventoryUpdateFailed Code = "INVENTORY_UPDATE_FAILED"
	CodePaymentServiceError   Code = "PAYMENT_SERVICE_ERROR"
	CodeInvalidAmount         Code = "INVALID_AMOUNT"
	CodeEmptyTransaction      Code = "EMPTY_TRANSACTION"
	CodeIllegalTransition     Code = "ILLEGAL_TRANSITION"
	CodeConflict              Code = "CONCURRENT_MODIFICATION"
	CodeInternal              Code = "INTERNAL"
)

// Error is a business error carrying a stable code and a human readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so callers can write
// errors.Is(err, apperr.New(apperr.CodeNotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the outermost *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	return errors.Is(err, &Error{Code: code})
}

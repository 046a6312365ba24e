package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the HTTP layer can pick a status code without
// string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindCartNotFound
	KindItemNotFound
	KindOrderNotFound
	KindStockExceeded
	KindInsufficientStock
	KindEmptyCart
	KindBookUnavailable
	KindPaymentGateway
	KindNoPaymentLink
	KindUnauthorized
	KindForbidden
	KindValidation
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindUnknown for anything that is not an
// *Error (those surface as 500s upstream).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

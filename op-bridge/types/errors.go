package types

import "errors"

// Kind is a stable category for programmatic error handling. Callers should
// branch on Kind or on the sentinel values below rather than on error strings.
type Kind string

const (
	KindValidation                   Kind = "Validation"
	KindInsufficientBalance          Kind = "InsufficientBalance"
	KindInsufficientSovereignBalance Kind = "InsufficientSovereignBalance"
	KindDecode                       Kind = "Decode"
	KindDelivery                     Kind = "Delivery"
	KindRouting                      Kind = "Routing"
	KindAuthorization                Kind = "Authorization"
	KindInternal                     Kind = "Internal"
)

// Error is the bridge's structured error type.
//
// Code names the violated rule (e.g. TransfersDisabled) and stays stable
// across versions. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches sentinel errors by kind and code so that a sentinel wrapped with
// extra context still compares equal to the bare sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// NewError returns a sentinel-style error without a cause.
func NewError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// WrapError attaches cause to a copy of the sentinel err.
func WrapError(err *Error, cause error) error {
	if cause == nil {
		return err
	}
	return &Error{Kind: err.Kind, Code: err.Code, Message: err.Message, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// Code returns the stable code of a structured error, or "" if unknown.
func Code(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}

var (
	ErrZeroAmount         = NewError(KindValidation, "ZeroAmount", "amount must be greater than zero")
	ErrZeroFee            = NewError(KindValidation, "ZeroFee", "fee must be greater than zero")
	ErrZeroRecipient      = NewError(KindValidation, "ZeroRecipient", "recipient must not be the zero address")
	ErrAmountOverflow     = NewError(KindValidation, "AmountOverflow", "amount does not fit in 128 bits")
	ErrTransfersDisabled  = NewError(KindValidation, "TransfersDisabled", "transfers are disabled")
	ErrTokenNotRegistered = NewError(KindValidation, "TokenNotRegistered", "native token is not registered")
	ErrBelowMinimum       = NewError(KindValidation, "BelowMinimum", "credit leaves account below existential floor")

	ErrInsufficientBalance          = NewError(KindInsufficientBalance, "InsufficientBalance", "insufficient balance")
	ErrInsufficientSovereignBalance = NewError(KindInsufficientSovereignBalance, "InsufficientSovereignBalance", "insufficient custody balance")

	ErrBadOrigin = NewError(KindAuthorization, "BadOrigin", "origin not permitted")
)

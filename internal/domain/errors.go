package domain

import (
	"errors"
	"strings"
)

// Kind discrimina las familias de error que la capa HTTP traduce a status.
type Kind string

const (
	KindInternal           Kind = "internal"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindWrongPassword      Kind = "wrong_password"
	KindDuplicateEmail     Kind = "duplicate_email"
	KindNotFound           Kind = "not_found"
	KindInvalidOTP         Kind = "invalid_otp"
	KindOTPExpired         Kind = "otp_expired"
	KindOTPAlreadyUsed     Kind = "otp_already_used"
	KindTokenInvalid       Kind = "token_invalid"
	KindTokenExpired       Kind = "token_expired"
	KindValidationFailed   Kind = "validation_failed"
	KindRateLimited        Kind = "rate_limited"
	KindForbidden          Kind = "forbidden"
	KindEmailUnavailable   Kind = "email_unavailable"
)

// Error es un error etiquetado. Dos Error son iguales para errors.Is si comparten Kind.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, "; ")
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "Invalid email or password"}
	ErrWrongPassword      = &Error{Kind: KindWrongPassword, Message: "Current password is incorrect"}
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail, Message: "Email already registered"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrOTPInvalid         = &Error{Kind: KindInvalidOTP, Message: "Invalid OTP code"}
	ErrOTPExpired         = &Error{Kind: KindOTPExpired, Message: "OTP code has expired"}
	ErrOTPAlreadyUsed     = &Error{Kind: KindOTPAlreadyUsed, Message: "OTP code has already been used"}
	ErrTokenInvalid       = &Error{Kind: KindTokenInvalid, Message: "Invalid token"}
	ErrTokenExpired       = &Error{Kind: KindTokenExpired, Message: "Token expired"}
	ErrRateLimited        = &Error{Kind: KindRateLimited, Message: "Too many requests, try again later"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "Forbidden"}
	ErrEmailUnavailable   = &Error{Kind: KindEmailUnavailable, Message: "Email delivery unavailable"}
)

// Validation construye un error ValidationFailed con la lista de problemas.
func Validation(fields ...string) *Error {
	return &Error{Kind: KindValidationFailed, Message: "Validation failed", Fields: fields}
}

// KindOf devuelve el Kind del primer *Error en la cadena, o KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

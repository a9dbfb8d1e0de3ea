package domain

import "time"

// OTPType etiqueta el proposito de un codigo de un solo uso.
type OTPType string

const (
	OTPRegistration  OTPType = "registration"
	OTPLogin         OTPType = "login"
	OTPPasswordReset OTPType = "password_reset"
)

func (t OTPType) Valid() bool {
	switch t {
	case OTPRegistration, OTPLogin, OTPPasswordReset:
		return true
	}
	return false
}

type OneTimeCode struct {
	ID        string
	Email     string
	CodeHash  string
	Type      OTPType
	ExpiresAt time.Time
	Verified  bool
	CreatedAt time.Time
}

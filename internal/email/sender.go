package email

import (
	"context"
	"errors"
	"time"

	"brgykonek/internal/domain"
)

// Sender define la interfaz para envio de codigos OTP.
type Sender interface {
	SendOTP(ctx context.Context, toEmail string, code string, purpose domain.OTPType, expiresAt time.Time) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendOTP(_ context.Context, _ string, _ string, _ domain.OTPType, _ time.Time) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}

func subjectFor(purpose domain.OTPType) string {
	switch purpose {
	case domain.OTPRegistration:
		return "Verify your BrgyKonek account"
	case domain.OTPLogin:
		return "Your BrgyKonek login code"
	case domain.OTPPasswordReset:
		return "Reset your BrgyKonek password"
	}
	return "Your BrgyKonek verification code"
}

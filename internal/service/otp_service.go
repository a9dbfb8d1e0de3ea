package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"brgykonek/internal/domain"
	"brgykonek/internal/repository"
)

const defaultOTPTTL = 10 * time.Minute

// OTPService emite y verifica codigos de un solo uso por (email, tipo).
type OTPService struct {
	codes repository.OTPRepository
	ttl   time.Duration
	now   func() time.Time
}

func NewOTPService(codes repository.OTPRepository, ttl time.Duration) *OTPService {
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &OTPService{
		codes: codes,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Issue genera un codigo nuevo y descarta los anteriores del mismo (email, tipo).
// Devuelve el codigo en claro para enviarlo por correo.
func (s *OTPService) Issue(ctx context.Context, emailAddr string, otpType domain.OTPType) (string, time.Time, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return "", time.Time{}, domain.Validation("email is required")
	}
	if !otpType.Valid() {
		return "", time.Time{}, domain.Validation("type must be one of registration, login, password_reset")
	}

	code, hash, err := generateOTP()
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	record := domain.OneTimeCode{
		ID:        uuid.NewString(),
		Email:     emailAddr,
		CodeHash:  hash,
		Type:      otpType,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.codes.Replace(ctx, record); err != nil {
		return "", time.Time{}, fmt.Errorf("store otp: %w", err)
	}
	return code, record.ExpiresAt, nil
}

// Verify consume el codigo. El orden de los chequeos es: existe, no usado, no vencido.
func (s *OTPService) Verify(ctx context.Context, emailAddr, code string, otpType domain.OTPType) error {
	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if !isValidOTPCode(code) {
		return domain.ErrOTPInvalid
	}

	records, err := s.codes.ListByEmailType(ctx, emailAddr, otpType)
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}

	var (
		match domain.OneTimeCode
		found bool
	)
	for _, r := range records {
		if verifyOTP(code, r.CodeHash) {
			match = r
			found = true
			break
		}
	}
	if !found {
		return domain.ErrOTPInvalid
	}
	if match.Verified {
		return domain.ErrOTPAlreadyUsed
	}
	if s.now().After(match.ExpiresAt) {
		return domain.ErrOTPExpired
	}

	if err := s.codes.MarkVerified(ctx, match.ID); err != nil {
		return fmt.Errorf("mark otp verified: %w", err)
	}
	return nil
}

func generateOTP() (string, string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	return code, saltStr + ":" + hashOTP(saltStr, code), nil
}

func hashOTP(salt, code string) string {
	sum := sha256.Sum256([]byte(salt + ":" + code))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func verifyOTP(code, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashOTP(parts[0], code)), []byte(parts[1])) == 1
}

func isValidOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

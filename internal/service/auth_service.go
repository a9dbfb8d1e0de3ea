package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"brgykonek/internal/domain"
	"brgykonek/internal/email"
)

const defaultLockoutThreshold = 3

// AuthOptions ajusta las politicas del flujo de login.
type AuthOptions struct {
	LockoutThreshold int
	AllowLegacyLogin bool
}

// AuthService orquesta credenciales, OTP, dispositivos y tokens.
type AuthService struct {
	logger   *zap.Logger
	users    *UserService
	otps     *OTPService
	devices  *DeviceService
	tokens   *JWTService
	attempts LoginAttemptTracker
	limiter  OTPRateLimiter
	sender   email.Sender
	opts     AuthOptions
}

func NewAuthService(
	logger *zap.Logger,
	users *UserService,
	otps *OTPService,
	devices *DeviceService,
	tokens *JWTService,
	attempts LoginAttemptTracker,
	limiter OTPRateLimiter,
	sender email.Sender,
	opts AuthOptions,
) *AuthService {
	if opts.LockoutThreshold <= 0 {
		opts.LockoutThreshold = defaultLockoutThreshold
	}
	if attempts == nil {
		attempts = NewLoginAttemptTracker(0)
	}
	if sender == nil {
		sender = email.NewDisabledSender("email sender not configured")
	}
	return &AuthService{
		logger:   logger,
		users:    users,
		otps:     otps,
		devices:  devices,
		tokens:   tokens,
		attempts: attempts,
		limiter:  limiter,
		sender:   sender,
		opts:     opts,
	}
}

type LoginInput struct {
	Email      string
	Password   string
	DeviceInfo *domain.DeviceInfo
}

// LoginResult lleva Token o RequiresOTP, nunca ambos.
type LoginResult struct {
	User         domain.User
	Token        string
	ExpiresAt    time.Time
	RequiresOTP  bool
	OTPExpiresAt time.Time
}

type AuthResult struct {
	User      domain.User
	Token     string
	ExpiresAt time.Time
}

type VerifyOTPInput struct {
	Email          string
	Code           string
	Type           domain.OTPType
	DeviceInfo     *domain.DeviceInfo
	RememberDevice *bool
}

type VerifyOTPResult struct {
	User      domain.User
	Token     string
	ExpiresAt time.Time
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	user, err := s.users.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			n := s.attempts.RecordFailure(ctx, input.Email)
			s.logger.Info("login failed", zap.Int("failures", n))
		}
		return LoginResult{}, err
	}

	if s.attempts.Failures(ctx, user.Email) >= s.opts.LockoutThreshold {
		s.logger.Warn("login locked behind otp", zap.String("user_id", user.ID))
		return s.challenge(ctx, user)
	}

	if input.DeviceInfo != nil {
		trusted, err := s.devices.CheckTrust(ctx, user.ID, input.DeviceInfo.DeviceID)
		if err != nil {
			return LoginResult{}, err
		}
		if !trusted {
			return s.challenge(ctx, user)
		}
		return s.issueSession(ctx, user)
	}

	if !s.opts.AllowLegacyLogin {
		return s.challenge(ctx, user)
	}
	s.logger.Warn("legacy login without device info", zap.String("user_id", user.ID))
	return s.issueSession(ctx, user)
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	user, err := s.users.Register(ctx, input)
	if err != nil {
		return AuthResult{}, err
	}
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) RequestOTP(ctx context.Context, emailAddr string, otpType domain.OTPType) (time.Time, error) {
	if !otpType.Valid() {
		return time.Time{}, domain.Validation("type must be one of registration, login, password_reset")
	}
	user, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		return time.Time{}, err
	}
	return s.sendOTP(ctx, user.Email, otpType)
}

func (s *AuthService) VerifyOTP(ctx context.Context, input VerifyOTPInput) (VerifyOTPResult, error) {
	if !input.Type.Valid() {
		return VerifyOTPResult{}, domain.Validation("type must be one of registration, login, password_reset")
	}
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		return VerifyOTPResult{}, err
	}
	if err := s.otps.Verify(ctx, user.Email, input.Code, input.Type); err != nil {
		return VerifyOTPResult{}, err
	}

	// el OTP ya quedo consumido; un fallo aqui solo se registra
	if input.DeviceInfo != nil && input.RememberDevice != nil {
		if _, err := s.devices.CreateDevice(ctx, user.ID, *input.DeviceInfo, *input.RememberDevice); err != nil {
			s.logger.Error("create device after otp failed", zap.Error(err), zap.String("user_id", user.ID))
		}
	}

	result := VerifyOTPResult{User: user}
	switch input.Type {
	case domain.OTPRegistration:
		verifiedAt, err := s.users.MarkEmailVerified(ctx, user.ID)
		if err != nil {
			return VerifyOTPResult{}, err
		}
		result.User.EmailVerifiedAt = &verifiedAt
	case domain.OTPLogin:
		session, err := s.issueSession(ctx, user)
		if err != nil {
			return VerifyOTPResult{}, err
		}
		result.Token = session.Token
		result.ExpiresAt = session.ExpiresAt
	}
	return result, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, emailAddr, code, newPassword string) error {
	user, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if err := s.otps.Verify(ctx, user.Email, code, domain.OTPPasswordReset); err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, user.Email, newPassword); err != nil {
		return err
	}
	s.attempts.Reset(ctx, user.Email)
	s.logger.Info("password reset", zap.String("user_id", user.ID))
	return nil
}

func (s *AuthService) Logout(ctx context.Context, claims Claims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// LogoutAll revoca todos los dispositivos de confianza y el token actual.
func (s *AuthService) LogoutAll(ctx context.Context, claims Claims) error {
	if err := s.devices.RevokeAll(ctx, claims.UserID); err != nil {
		return err
	}
	return s.Logout(ctx, claims)
}

func (s *AuthService) challenge(ctx context.Context, user domain.User) (LoginResult, error) {
	expiresAt, err := s.sendOTP(ctx, user.Email, domain.OTPLogin)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: user, RequiresOTP: true, OTPExpiresAt: expiresAt}, nil
}

func (s *AuthService) issueSession(ctx context.Context, user domain.User) (LoginResult, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	s.attempts.Reset(ctx, user.Email)
	return LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) sendOTP(ctx context.Context, emailAddr string, otpType domain.OTPType) (time.Time, error) {
	if s.limiter != nil && !s.limiter.Allow(ctx, otpLimiterKey(emailAddr, string(otpType))) {
		return time.Time{}, domain.ErrRateLimited
	}
	code, expiresAt, err := s.otps.Issue(ctx, emailAddr, otpType)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.sender.SendOTP(ctx, emailAddr, code, otpType, expiresAt); err != nil {
		s.logger.Error("send otp failed",
			zap.Error(err),
			zap.String("type", string(otpType)),
			zap.String("email_domain", emailDomain(emailAddr)),
		)
		return time.Time{}, domain.ErrEmailUnavailable
	}
	return expiresAt, nil
}

func emailDomain(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return addr[i+1:]
	}
	return ""
}

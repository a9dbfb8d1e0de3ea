package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"brgykonek/internal/domain"
	"brgykonek/internal/repository"
)

const minPasswordLength = 8

// UserService es el almacen de credenciales: registro, login y perfil.
type UserService struct {
	logger *zap.Logger
	users  repository.UserRepository
	now    func() time.Time
}

func NewUserService(logger *zap.Logger, users repository.UserRepository) *UserService {
	return &UserService{
		logger: logger,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Email         string
	Password      string
	Role          domain.Role
	FirstName     string
	MiddleName    string
	LastName      string
	MobileNumber  string
	Address       domain.Address
	ClearanceFile string
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	email := normalizeEmail(input.Email)
	var problems []string
	if !isValidEmail(email) {
		problems = append(problems, "email must be a valid email address")
	}
	problems = append(problems, passwordProblems(input.Password)...)

	role := input.Role
	if role == "" {
		role = domain.RoleResident
	}
	if !role.Valid() {
		problems = append(problems, "role must be one of resident, staff, admin")
	}
	if len(problems) > 0 {
		return domain.User{}, domain.Validation(problems...)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return domain.User{}, domain.ErrDuplicateEmail
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	user := domain.User{
		ID:            uuid.NewString(),
		Email:         email,
		PasswordHash:  string(hash),
		Role:          role,
		IsApproved:    role != domain.RoleResident,
		FirstName:     strings.TrimSpace(input.FirstName),
		MiddleName:    strings.TrimSpace(input.MiddleName),
		LastName:      strings.TrimSpace(input.LastName),
		MobileNumber:  strings.TrimSpace(input.MobileNumber),
		Address:       trimAddress(input.Address),
		ClearanceFile: input.ClearanceFile,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Authenticate valida email y password. Email desconocido y password incorrecto
// devuelven el mismo error.
func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// mismo costo que un usuario existente
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if !s.VerifyPassword(user, password) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) VerifyPassword(user domain.User, plaintext string) bool {
	if user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)) == nil
}

func (s *UserService) FindByEmail(ctx context.Context, emailAddr string) (domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, err
}

func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	if !isUserID(id) {
		return domain.User{}, domain.ErrUserNotFound
	}
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, err
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, profile domain.Profile) (domain.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	user.FirstName = strings.TrimSpace(profile.FirstName)
	user.MiddleName = strings.TrimSpace(profile.MiddleName)
	user.LastName = strings.TrimSpace(profile.LastName)
	user.MobileNumber = strings.TrimSpace(profile.MobileNumber)
	user.Address = trimAddress(profile.Address)
	user.UpdatedAt = s.now()

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, id, current, next string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.VerifyPassword(user, current) {
		return domain.ErrWrongPassword
	}
	if problems := passwordProblems(next); len(problems) > 0 {
		return domain.Validation(problems...)
	}
	return s.storePassword(ctx, user.ID, next)
}

// SetPassword reemplaza el password sin pedir el actual; lo usa reset-password.
func (s *UserService) SetPassword(ctx context.Context, emailAddr, next string) error {
	if problems := passwordProblems(next); len(problems) > 0 {
		return domain.Validation(problems...)
	}
	user, err := s.FindByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	return s.storePassword(ctx, user.ID, next)
}

func (s *UserService) storePassword(ctx context.Context, id, plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, id, string(hash), s.now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *UserService) MarkEmailVerified(ctx context.Context, id string) (time.Time, error) {
	verifiedAt := s.now()
	if err := s.users.VerifyEmail(ctx, id, verifiedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, domain.ErrUserNotFound
		}
		return time.Time{}, err
	}
	return verifiedAt, nil
}

func (s *UserService) Approve(ctx context.Context, id string) (domain.User, error) {
	if !isUserID(id) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err := s.users.Approve(ctx, id, s.now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	return s.GetByID(ctx, id)
}

// EnsureAdmin crea la cuenta admin inicial si todavia no existe.
func (s *UserService) EnsureAdmin(ctx context.Context, emailAddr, password string) (domain.User, bool, error) {
	existing, err := s.FindByEmail(ctx, emailAddr)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, false, err
	}
	user, err := s.Register(ctx, RegisterInput{
		Email:     emailAddr,
		Password:  password,
		Role:      domain.RoleAdmin,
		FirstName: "Barangay",
		LastName:  "Administrator",
	})
	if err != nil {
		return domain.User{}, false, err
	}
	return user, true, nil
}

// ValidatePassword expone las reglas de password para validar antes de consumir un OTP.
func ValidatePassword(password string) error {
	if problems := passwordProblems(password); len(problems) > 0 {
		return domain.Validation(problems...)
	}
	return nil
}

func passwordProblems(password string) []string {
	var problems []string
	if len(password) < minPasswordLength {
		problems = append(problems, "password must be at least 8 characters")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		problems = append(problems, "password must contain letters and numbers")
	}
	return problems
}

var (
	dummyHashOnce  sync.Once
	dummyHashValue []byte
)

func dummyHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHashValue, _ = bcrypt.GenerateFromPassword([]byte("brgykonek-dummy-password"), bcrypt.DefaultCost)
	})
	return dummyHashValue
}

func trimAddress(a domain.Address) domain.Address {
	return domain.Address{
		HouseNumber: strings.TrimSpace(a.HouseNumber),
		Street:      strings.TrimSpace(a.Street),
		Purok:       strings.TrimSpace(a.Purok),
		Barangay:    strings.TrimSpace(a.Barangay),
		City:        strings.TrimSpace(a.City),
		Province:    strings.TrimSpace(a.Province),
	}
}

// isUserID evita mandar a Postgres ids que la columna uuid rechazaria.
func isUserID(id string) bool {
	return uuid.Validate(id) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"brgykonek/internal/domain"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	createCalls  int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if _, ok := m.usersByEmail[user.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

// errInvalidUUID imita el error 22P02 de Postgres para ids que no son uuid.
var errInvalidUUID = &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	if uuid.Validate(id) != nil {
		return domain.User{}, errInvalidUUID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) update(id string, fn func(*domain.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(&user)
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, user domain.User) error {
	return m.update(user.ID, func(u *domain.User) {
		u.FirstName = user.FirstName
		u.MiddleName = user.MiddleName
		u.LastName = user.LastName
		u.MobileNumber = user.MobileNumber
		u.Address = user.Address
		u.UpdatedAt = user.UpdatedAt
	})
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	return m.update(id, func(u *domain.User) {
		u.PasswordHash = passwordHash
		u.UpdatedAt = updatedAt
	})
}

func (m *mockUserRepo) VerifyEmail(_ context.Context, id string, verifiedAt time.Time) error {
	return m.update(id, func(u *domain.User) {
		u.EmailVerifiedAt = &verifiedAt
	})
}

func (m *mockUserRepo) Approve(_ context.Context, id string, updatedAt time.Time) error {
	if uuid.Validate(id) != nil {
		return errInvalidUUID
	}
	return m.update(id, func(u *domain.User) {
		u.IsApproved = true
		u.UpdatedAt = updatedAt
	})
}

type mockOTPRepo struct {
	mu    sync.Mutex
	codes map[string]domain.OneTimeCode
}

func newMockOTPRepo() *mockOTPRepo {
	return &mockOTPRepo{codes: make(map[string]domain.OneTimeCode)}
}

func (m *mockOTPRepo) Replace(_ context.Context, code domain.OneTimeCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.codes {
		if c.Email == code.Email && c.Type == code.Type {
			delete(m.codes, id)
		}
	}
	m.codes[code.ID] = code
	return nil
}

func (m *mockOTPRepo) ListByEmailType(_ context.Context, email string, otpType domain.OTPType) ([]domain.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OneTimeCode
	for _, c := range m.codes {
		if c.Email == email && c.Type == otpType {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOTPRepo) MarkVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Verified = true
	m.codes[id] = c
	return nil
}

func (m *mockOTPRepo) all(email string, otpType domain.OTPType) []domain.OneTimeCode {
	out, _ := m.ListByEmailType(context.Background(), email, otpType)
	return out
}

type mockDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]domain.TrustedDevice
	err     error
}

func newMockDeviceRepo() *mockDeviceRepo {
	return &mockDeviceRepo{devices: make(map[string]domain.TrustedDevice)}
}

func (m *mockDeviceRepo) Upsert(_ context.Context, d domain.TrustedDevice) (domain.TrustedDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.TrustedDevice{}, m.err
	}
	if existing, ok := m.devices[d.DeviceID]; ok {
		d.ID = existing.ID
		d.CreatedAt = existing.CreatedAt
	}
	m.devices[d.DeviceID] = d
	return d, nil
}

func (m *mockDeviceRepo) FindActive(_ context.Context, userID, deviceID string, now time.Time) (domain.TrustedDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[deviceID]
	if !ok || d.UserID != userID || !d.ExpiresAt.After(now) {
		return domain.TrustedDevice{}, pgx.ErrNoRows
	}
	return d, nil
}

func (m *mockDeviceRepo) TouchLastUsed(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, d := range m.devices {
		if d.ID == id {
			d.LastUsedAt = at
			m.devices[key] = d
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *mockDeviceRepo) ListActive(_ context.Context, userID string, now time.Time) ([]domain.TrustedDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TrustedDevice, 0)
	for _, d := range m.devices {
		if d.UserID == userID && d.ExpiresAt.After(now) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDeviceRepo) Delete(_ context.Context, deviceID, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[deviceID]
	if !ok || d.UserID != userID {
		return 0, nil
	}
	delete(m.devices, deviceID)
	return 1, nil
}

func (m *mockDeviceRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, d := range m.devices {
		if d.UserID == userID {
			delete(m.devices, key)
			n++
		}
	}
	return n, nil
}

func (m *mockDeviceRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, d := range m.devices {
		if !d.ExpiresAt.After(now) {
			delete(m.devices, key)
			n++
		}
	}
	return n, nil
}

type sentOTP struct {
	to        string
	code      string
	purpose   domain.OTPType
	expiresAt time.Time
}

type mockEmailSender struct {
	mu   sync.Mutex
	sent []sentOTP
	err  error
}

func (m *mockEmailSender) SendOTP(_ context.Context, toEmail, code string, purpose domain.OTPType, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentOTP{to: toEmail, code: code, purpose: purpose, expiresAt: expiresAt})
	return nil
}

func (m *mockEmailSender) last() sentOTP {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentOTP{}
	}
	return m.sent[len(m.sent)-1]
}

type mockLimiter struct {
	allow bool
	keys  []string
}

func (m *mockLimiter) Allow(_ context.Context, key string) bool {
	m.keys = append(m.keys, key)
	return m.allow
}

// fakeClock permite avanzar el tiempo en los tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"brgykonek/internal/domain"
	"brgykonek/internal/service"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
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
	if _, ok := m.usersByEmail[user.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
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
	if uuid.Validate(id) != nil {
		return &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}
	}
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
		u.FirstName, u.MiddleName, u.LastName = user.FirstName, user.MiddleName, user.LastName
		u.MobileNumber = user.MobileNumber
		u.Address = user.Address
	})
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	return m.update(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (m *mockUserRepo) VerifyEmail(_ context.Context, id string, at time.Time) error {
	return m.update(id, func(u *domain.User) { u.EmailVerifiedAt = &at })
}

func (m *mockUserRepo) Approve(_ context.Context, id string, _ time.Time) error {
	return m.update(id, func(u *domain.User) { u.IsApproved = true })
}

type mockOTPRepo struct {
	mu    sync.Mutex
	codes []domain.OneTimeCode
}

func (m *mockOTPRepo) Replace(_ context.Context, code domain.OneTimeCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.codes[:0]
	for _, c := range m.codes {
		if c.Email != code.Email || c.Type != code.Type {
			kept = append(kept, c)
		}
	}
	m.codes = append(kept, code)
	return nil
}

func (m *mockOTPRepo) ListByEmailType(_ context.Context, email string, t domain.OTPType) ([]domain.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OneTimeCode
	for _, c := range m.codes {
		if c.Email == email && c.Type == t {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockOTPRepo) MarkVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.codes {
		if m.codes[i].ID == id {
			m.codes[i].Verified = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

type mockDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]domain.TrustedDevice
}

func newMockDeviceRepo() *mockDeviceRepo {
	return &mockDeviceRepo{devices: make(map[string]domain.TrustedDevice)}
}

func (m *mockDeviceRepo) Upsert(_ context.Context, d domain.TrustedDevice) (domain.TrustedDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *mockDeviceRepo) TouchLastUsed(context.Context, string, time.Time) error { return nil }

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
	if d, ok := m.devices[deviceID]; ok && d.UserID == userID {
		delete(m.devices, deviceID)
		return 1, nil
	}
	return 0, nil
}

func (m *mockDeviceRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, d := range m.devices {
		if d.UserID == userID {
			delete(m.devices, k)
			n++
		}
	}
	return n, nil
}

func (m *mockDeviceRepo) DeleteExpired(context.Context, time.Time) (int64, error) { return 0, nil }

type mockEmailSender struct {
	mu       sync.Mutex
	lastCode string
	err      error
}

func (m *mockEmailSender) SendOTP(_ context.Context, _ string, code string, _ domain.OTPType, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCode = code
	return m.err
}

type testServer struct {
	router  *gin.Engine
	users   *mockUserRepo
	devices *mockDeviceRepo
	sender  *mockEmailSender
	userSvc *service.UserService
	jwt     *service.JWTService
}

func newTestServer(t *testing.T, allowLegacy bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	users := newMockUserRepo()
	devices := newMockDeviceRepo()
	sender := &mockEmailSender{}

	userSvc := service.NewUserService(logger, users)
	otpSvc := service.NewOTPService(&mockOTPRepo{}, 10*time.Minute)
	deviceSvc := service.NewDeviceService(logger, devices)
	jwtSvc := service.NewJWTService("secret", time.Hour, "brgykonek", service.NewMemoryTokenDenylist())
	authSvc := service.NewAuthService(logger, userSvc, otpSvc, deviceSvc, jwtSvc,
		service.NewLoginAttemptTracker(15*time.Minute),
		service.NewOTPRateLimiter(10*time.Minute, 3),
		sender,
		service.AuthOptions{LockoutThreshold: 3, AllowLegacyLogin: allowLegacy},
	)

	router := NewRouter(logger,
		NewAuthHandler(logger, authSvc, t.TempDir()),
		NewUserHandler(logger, userSvc),
		NewDeviceHandler(logger, deviceSvc),
		jwtSvc,
	)
	return &testServer{
		router:  router,
		users:   users,
		devices: devices,
		sender:  sender,
		userSvc: userSvc,
		jwt:     jwtSvc,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func (s *testServer) registerUser(t *testing.T, email string) string {
	t.Helper()
	rec, body := s.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    email,
		"password": "Passw0rd!",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("register: expected token")
	}
	return token
}

func nopLogger() *zap.Logger { return zap.NewNop() }

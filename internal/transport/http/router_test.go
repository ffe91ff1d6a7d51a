package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/medmarket-api/internal/config"
	"github.com/medmarket-api/internal/domain"
	jwtinfra "github.com/medmarket-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memUsers is an in-memory UserRepository with the same uniqueness rules as the table store.
type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]domain.User{}} }

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Phone == u.Phone || (u.Email != "" && existing.Email == u.Email) {
			return domain.ErrAlreadyExists
		}
	}
	m.users[u.UserID] = *u
	return nil
}

func (m *memUsers) Get(_ context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) find(match func(domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Phone == phone })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Email == email })
}

func (m *memUsers) Update(_ context.Context, userID string, updates map[string]interface{}) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if name, ok := updates["name"].(string); ok {
		u.Name = name
	}
	if hash, ok := updates["password_hash"].(string); ok {
		u.PasswordHash = hash
	}
	m.users[userID] = u
	return &u, nil
}

func (m *memUsers) UpdateEmail(_ context.Context, userID, _, newEmail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Email = newEmail
	m.users[userID] = u
	return nil
}

func (m *memUsers) Disable(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Enable = false
	m.users[userID] = u
	return nil
}

func (m *memUsers) ScanPage(_ context.Context, _ int32, _ string) ([]domain.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if u.Enable {
			out = append(out, u)
		}
	}
	return out, "", nil
}

// memOTP applies the conditional-write rules of the code table under a mutex.
type memOTP struct {
	mu   sync.Mutex
	recs map[string]domain.OTPRecord
}

func newMemOTP() *memOTP { return &memOTP{recs: map[string]domain.OTPRecord{}} }

func (m *memOTP) PutIfResendable(_ context.Context, rec *domain.OTPRecord, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.recs[rec.Phone]; ok && old.ResendAt > now.Unix() {
		return &domain.ThrottledError{RetryAfter: time.Unix(old.ResendAt, 0).Sub(now)}
	}
	m.recs[rec.Phone] = *rec
	return nil
}

func (m *memOTP) Consume(_ context.Context, phone, code string, intent domain.OTPIntent, now time.Time) (*domain.OTPRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.recs[phone]
	switch {
	case !ok || old.Intent != intent:
		return nil, domain.ErrNotFound
	case old.Expired(now):
		return &old, domain.ErrOTPExpired
	case old.Code != code:
		return &old, domain.ErrOTPMismatch
	}
	delete(m.recs, phone)
	return &old, nil
}

func (m *memOTP) RecordFailedAttempt(_ context.Context, phone, code string, maxAttempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.recs[phone]
	if !ok || old.Code != code {
		return nil
	}
	old.Attempts++
	if old.Attempts >= maxAttempts {
		delete(m.recs, phone)
		return nil
	}
	m.recs[phone] = old
	return nil
}

func (m *memOTP) DeleteIfCode(_ context.Context, phone, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.recs[phone]; ok && old.Code == code {
		delete(m.recs, phone)
	}
	return nil
}

// inbox captures the last message sent to each number.
type inbox struct {
	mu   sync.Mutex
	last map[string]string
}

func (b *inbox) SendSMS(_ context.Context, to, message string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last[to] = message
	return nil
}

var codeRe = regexp.MustCompile(`\b(\d{6})\b`)

func (b *inbox) code(t *testing.T, to string) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	m := codeRe.FindStringSubmatch(b.last[to])
	require.Len(t, m, 2, "no code delivered to %s", to)
	return m[1]
}

const testPhone = "+15551234567"

type testEnv struct {
	router http.Handler
	users  *memUsers
	sms    *inbox
}

func newTestEnv(t *testing.T, burst int, opts ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := &config.Config{
		AllowedOrigins: []string{"*"},
		JWT:            config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", Issuer: "medmarket-api", TTL: time.Hour},
		OTP:            config.OTPConfig{Length: 6, TTL: 10 * time.Minute, ResendCooldown: 10 * time.Minute, MaxAttempts: 5},
		RateLimit:      config.RateLimitConfig{RPS: 1, Burst: burst},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	provider, err := jwtinfra.NewProvider(cfg.JWT)
	require.NoError(t, err)

	env := &testEnv{users: newMemUsers(), sms: &inbox{last: map[string]string{}}}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	env.router = NewRouter(ctx, cfg, &Deps{
		UserRepo:    env.users,
		OTPRepo:     newMemOTP(),
		SMSSender:   env.sms,
		JWTProvider: provider,
		BcryptCost:  bcrypt.MinCost,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return e.doWithHeaders(t, method, path, token, body, nil)
}

func (e *testEnv) doWithHeaders(t *testing.T, method, path, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.RemoteAddr = "203.0.113.7:5555"
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, r)
	return rr
}

type authResponse struct {
	Message   string      `json:"message"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

func TestSignupVerifyThenGuardedRoute(t *testing.T) {
	env := newTestEnv(t, 100)

	rr := env.do(t, http.MethodPost, "/v1/signup", "", map[string]string{
		"name": "Ada", "mobile_number": testPhone, "role": domain.RoleUser,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodPost, "/v1/verify-otp", "", map[string]string{
		"mobile_number": testPhone, "otp": env.sms.code(t, testPhone), "intent": "signup",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp authResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "Ada", resp.User.Name)
	assert.True(t, resp.User.Enable)

	rr = env.do(t, http.MethodGet, "/v1/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var me domain.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&me))
	assert.Equal(t, resp.User.UserID, me.UserID)
	assert.Equal(t, testPhone, me.Phone)
}

func TestVerify_CodeIsSingleUse(t *testing.T) {
	env := newTestEnv(t, 100)

	rr := env.do(t, http.MethodPost, "/v1/signup", "", map[string]string{
		"name": "Ada", "mobile_number": testPhone, "role": domain.RoleUser,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	code := env.sms.code(t, testPhone)
	verify := map[string]string{"mobile_number": testPhone, "otp": code, "intent": "signup"}

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/v1/verify-otp", "", verify).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/v1/verify-otp", "", verify).Code)
}

func TestSignup_ResendThrottled(t *testing.T) {
	env := newTestEnv(t, 100)
	body := map[string]string{"name": "Ada", "mobile_number": testPhone, "role": domain.RoleUser}

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/v1/signup", "", body).Code)
	rr := env.do(t, http.MethodPost, "/v1/signup", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestLogin_UnknownNumber(t *testing.T) {
	env := newTestEnv(t, 100)
	rr := env.do(t, http.MethodPost, "/v1/login", "", map[string]string{"mobile_number": testPhone})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGuardedRoute_RequiresToken(t *testing.T) {
	env := newTestEnv(t, 100)
	rr := env.do(t, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rr.Body.String())
}

func TestVendorRoute_RejectsPlainUser(t *testing.T) {
	env := newTestEnv(t, 100)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/v1/signup", "", map[string]string{
		"name": "Ada", "mobile_number": testPhone, "role": domain.RoleUser,
	}).Code)
	rr := env.do(t, http.MethodPost, "/v1/verify-otp", "", map[string]string{
		"mobile_number": testPhone, "otp": env.sms.code(t, testPhone), "intent": "signup",
	})
	var resp authResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	rr = env.do(t, http.MethodPost, "/v1/stores", resp.Token, map[string]string{"name": "S", "location": "L"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAuthRoutes_RateLimitedPerIP(t *testing.T) {
	env := newTestEnv(t, 2)
	body := map[string]string{"mobile_number": testPhone}

	env.do(t, http.MethodPost, "/v1/login", "", body)
	env.do(t, http.MethodPost, "/v1/login", "", body)
	rr := env.do(t, http.MethodPost, "/v1/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestAuthRoutes_ForwardedForIgnoredByDefault(t *testing.T) {
	env := newTestEnv(t, 2)
	body := map[string]string{"mobile_number": testPhone}

	limited := 0
	for i := 0; i < 50; i++ {
		rr := env.doWithHeaders(t, http.MethodPost, "/v1/login", "", body, map[string]string{
			"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", i),
		})
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 48, limited)
}

func TestAuthRoutes_ForwardedForHonouredWhenTrusted(t *testing.T) {
	env := newTestEnv(t, 1, func(c *config.Config) { c.TrustProxyHeaders = true })
	body := map[string]string{"mobile_number": testPhone}

	for i := 0; i < 3; i++ {
		rr := env.doWithHeaders(t, http.MethodPost, "/v1/login", "", body, map[string]string{
			"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", i),
		})
		assert.NotEqual(t, http.StatusTooManyRequests, rr.Code)
	}
	rr := env.doWithHeaders(t, http.MethodPost, "/v1/login", "", body, map[string]string{
		"X-Forwarded-For": "198.51.100.0",
	})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, 100)
	rr := env.do(t, http.MethodGet, "/v1/health-check/ping", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

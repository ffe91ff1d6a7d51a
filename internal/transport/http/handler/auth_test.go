package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medmarket-api/internal/application/auth"
	"github.com/medmarket-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) Signup(ctx context.Context, req auth.SignupRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAuthSvc) Login(ctx context.Context, req auth.LoginRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAuthSvc) VerifyOTP(ctx context.Context, req auth.VerifyOTPRequest) (*auth.Result, error) {
	args := m.Called(ctx, req)
	if res, _ := args.Get(0).(*auth.Result); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) PasswordLogin(ctx context.Context, req auth.PasswordLoginRequest) (*auth.Result, error) {
	args := m.Called(ctx, req)
	if res, _ := args.Get(0).(*auth.Result); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func postJSON(t *testing.T, target string, v interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
}

func TestSignup_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthSvc{})
	rr := httptest.NewRecorder()
	h.Signup(rr, httptest.NewRequest(http.MethodPost, "/v1/signup", bytes.NewBufferString("not-json")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSignup_SendsCode(t *testing.T) {
	svc := &mockAuthSvc{}
	req := auth.SignupRequest{Name: "Ada", MobileNumber: "+15551234567", Role: domain.RoleUser}
	svc.On("Signup", mock.Anything, req).Return(nil)
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.Signup(rr, postJSON(t, "/v1/signup", req))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"verification code sent"}`, rr.Body.String())
	svc.AssertExpectations(t)
}

func TestSignup_ExistingAccountConflict(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Signup", mock.Anything, mock.Anything).Return(fmt.Errorf("signup: %w", domain.ErrAlreadyExists))
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.Signup(rr, postJSON(t, "/v1/signup", auth.SignupRequest{Name: "Ada", MobileNumber: "+15551234567", Role: "user"}))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestLogin_Throttled(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, auth.LoginRequest{MobileNumber: "+15551234567"}).
		Return(&domain.ThrottledError{RetryAfter: 42 * time.Second})
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.Login(rr, postJSON(t, "/v1/login", auth.LoginRequest{MobileNumber: "+15551234567"}))

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "42", rr.Header().Get("Retry-After"))
}

func TestLogin_DeliveryFailed(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return(domain.ErrDeliveryFailed)
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.Login(rr, postJSON(t, "/v1/login", auth.LoginRequest{MobileNumber: "+15551234567"}))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestVerifyOTP_SignupCreates(t *testing.T) {
	svc := &mockAuthSvc{}
	exp := time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)
	svc.On("VerifyOTP", mock.Anything, mock.Anything).Return(&auth.Result{
		Token: "tok", ExpiresAt: exp, User: &domain.User{UserID: "u1", Name: "Ada"}, Created: true,
	}, nil)
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.VerifyOTP(rr, postJSON(t, "/v1/verify-otp", auth.VerifyOTPRequest{
		MobileNumber: "+15551234567", OTP: "123456", Intent: domain.IntentSignup,
	}))

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, "account created", resp.Message)
	assert.True(t, exp.Equal(resp.ExpiresAt))
	assert.Equal(t, "u1", resp.User.UserID)
}

func TestVerifyOTP_LoginOK(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("VerifyOTP", mock.Anything, mock.Anything).Return(&auth.Result{
		Token: "tok", ExpiresAt: time.Now().Add(time.Hour), User: &domain.User{UserID: "u1"},
	}, nil)
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.VerifyOTP(rr, postJSON(t, "/v1/verify-otp", auth.VerifyOTPRequest{
		MobileNumber: "+15551234567", OTP: "123456", Intent: domain.IntentLogin,
	}))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestVerifyOTP_FailuresAreBadRequest(t *testing.T) {
	for _, err := range []error{domain.ErrOTPMismatch, domain.ErrOTPExpired} {
		svc := &mockAuthSvc{}
		svc.On("VerifyOTP", mock.Anything, mock.Anything).Return(nil, err)
		h := NewAuthHandler(svc)

		rr := httptest.NewRecorder()
		h.VerifyOTP(rr, postJSON(t, "/v1/verify-otp", auth.VerifyOTPRequest{
			MobileNumber: "+15551234567", OTP: "000000", Intent: domain.IntentLogin,
		}))
		assert.Equal(t, http.StatusBadRequest, rr.Code, err.Error())
	}
}

func TestVerifyOTP_NoPendingCode(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("VerifyOTP", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.VerifyOTP(rr, postJSON(t, "/v1/verify-otp", auth.VerifyOTPRequest{
		MobileNumber: "+15551234567", OTP: "123456", Intent: domain.IntentLogin,
	}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPasswordLogin_BadCredentials(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("PasswordLogin", mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized)
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.PasswordLogin(rr, postJSON(t, "/v1/login/password", auth.PasswordLoginRequest{Identifier: "a@b.c", Password: "wrong-pass"}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, rr.Body.String())
}

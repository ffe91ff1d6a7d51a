package handler

import (
	"net/http"

	"github.com/medmarket-api/internal/application/auth"
)

// AuthHandler serves signup, login and code verification.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Signup(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification code sent"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Login(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification code sent"})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyOTP(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	status, msg := http.StatusOK, "login successful"
	if res.Created {
		status, msg = http.StatusCreated, "account created"
	}
	writeJSON(w, status, AuthEnvelope{Message: msg, Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

func (h *AuthHandler) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.PasswordLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.PasswordLogin(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

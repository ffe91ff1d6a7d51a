// Package auth is the entry point for account signup and login. It drives the
// OTP flow for phone verification and issues session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/medmarket-api/internal/application/otp"
	"github.com/medmarket-api/internal/domain"
	"github.com/medmarket-api/internal/pkg/id"
	"github.com/medmarket-api/internal/pkg/phone"
	"github.com/medmarket-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type SignupRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	MobileNumber string `json:"mobile_number" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	Password     string `json:"password" validate:"omitempty,min=8,max=72"`
	Role         string `json:"role" validate:"required,role"`
}

type LoginRequest struct {
	MobileNumber string `json:"mobile_number" validate:"required"`
}

type VerifyOTPRequest struct {
	MobileNumber string           `json:"mobile_number" validate:"required"`
	OTP          string           `json:"otp" validate:"required,numeric,min=4,max=10"`
	Intent       domain.OTPIntent `json:"intent" validate:"required,intent"`
}

type PasswordLoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Result is a successful authentication. Created is set when the account was
// created by this call.
type Result struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
	Created   bool
}

type Service interface {
	Signup(ctx context.Context, req SignupRequest) error
	Login(ctx context.Context, req LoginRequest) error
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*Result, error)
	PasswordLogin(ctx context.Context, req PasswordLoginRequest) (*Result, error)
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type tokenSigner interface {
	Sign(userID, role string) (string, time.Time, error)
}

type ServiceDeps struct {
	OTP    otp.Service
	Users  userStore
	Tokens tokenSigner
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

type service struct {
	otp        otp.Service
	users      userStore
	tokens     tokenSigner
	bcryptCost int
}

func NewService(deps ServiceDeps) Service {
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{otp: deps.OTP, users: deps.Users, tokens: deps.Tokens, bcryptCost: cost}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *service) Signup(ctx context.Context, req SignupRequest) error {
	req.MobileNumber = phone.Normalize(req.MobileNumber)
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return err
	}
	pending := domain.PendingSignup{Name: req.Name, Role: req.Role, Email: req.Email}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
		if err != nil {
			return err
		}
		pending.PasswordHash = string(hash)
	}
	return s.otp.Request(ctx, otp.RequestInput{
		Phone:   req.MobileNumber,
		Intent:  domain.IntentSignup,
		Pending: pending,
	})
}

func (s *service) Login(ctx context.Context, req LoginRequest) error {
	req.MobileNumber = phone.Normalize(req.MobileNumber)
	if err := validate.Struct(req); err != nil {
		return err
	}
	return s.otp.Request(ctx, otp.RequestInput{Phone: req.MobileNumber, Intent: domain.IntentLogin})
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*Result, error) {
	req.MobileNumber = phone.Normalize(req.MobileNumber)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	rec, err := s.otp.Verify(ctx, req.MobileNumber, req.OTP, req.Intent)
	if err != nil {
		return nil, err
	}

	if req.Intent == domain.IntentSignup {
		u, err := s.createUser(ctx, rec)
		if err != nil {
			return nil, err
		}
		return s.issue(u, true)
	}

	u, err := s.users.GetByPhone(ctx, req.MobileNumber)
	if err != nil {
		return nil, err
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	return s.issue(u, false)
}

func (s *service) createUser(ctx context.Context, rec *domain.OTPRecord) (*domain.User, error) {
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Name:         rec.Name,
		Phone:        rec.Phone,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		Role:         rec.Role,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !domain.ValidRole(u.Role) {
		u.Role = domain.RoleUser
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "user created", "user_id", u.UserID, "role", u.Role)
	return u, nil
}

func (s *service) PasswordLogin(ctx context.Context, req PasswordLoginRequest) (*Result, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	var (
		u   *domain.User
		err error
	)
	ident := strings.TrimSpace(req.Identifier)
	if strings.Contains(ident, "@") {
		u, err = s.users.GetByEmail(ctx, normalizeEmail(ident))
	} else {
		u, err = s.users.GetByPhone(ctx, ident)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if !u.Enable || u.PasswordHash == "" {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return s.issue(u, false)
}

func (s *service) issue(u *domain.User, created bool) (*Result, error) {
	token, exp, err := s.tokens.Sign(u.UserID, u.Role)
	if err != nil {
		return nil, err
	}
	return &Result{Token: token, ExpiresAt: exp, User: u, Created: created}, nil
}

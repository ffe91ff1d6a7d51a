// Package otp issues and verifies one-time codes delivered by SMS.
// Codes are generated and compared locally; the SMS provider only delivers them.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	"github.com/medmarket-api/internal/config"
	"github.com/medmarket-api/internal/domain"
	"github.com/medmarket-api/internal/pkg/phone"
)

// RequestInput is the caller's request for a new code.
// Pending is stored with a signup code and ignored for login.
type RequestInput struct {
	Phone   string
	Intent  domain.OTPIntent
	Pending domain.PendingSignup
}

type Service interface {
	Request(ctx context.Context, in RequestInput) error
	Verify(ctx context.Context, phone, code string, intent domain.OTPIntent) (*domain.OTPRecord, error)
}

type recordStore interface {
	PutIfResendable(ctx context.Context, rec *domain.OTPRecord, now time.Time) error
	Consume(ctx context.Context, phone, code string, intent domain.OTPIntent, now time.Time) (*domain.OTPRecord, error)
	RecordFailedAttempt(ctx context.Context, phone, code string, maxAttempts int) error
	DeleteIfCode(ctx context.Context, phone, code string) error
}

type userLookup interface {
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type ServiceDeps struct {
	Records recordStore
	Users   userLookup
	SMS     smsSender
	Config  config.OTPConfig
	// Now defaults to time.Now.
	Now func() time.Time
	// Generate defaults to a crypto/rand numeric code.
	Generate func(length int) (string, error)
}

type service struct {
	records  recordStore
	users    userLookup
	sms      smsSender
	cfg      config.OTPConfig
	now      func() time.Time
	generate func(int) (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		records:  deps.Records,
		users:    deps.Users,
		sms:      deps.SMS,
		cfg:      deps.Config,
		now:      deps.Now,
		generate: deps.Generate,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generate == nil {
		s.generate = GenerateCode
	}
	return s
}

func (s *service) Request(ctx context.Context, in RequestInput) error {
	if !phone.Valid(in.Phone) {
		return fmt.Errorf("mobile number must be + followed by 10 to 15 digits: %w", domain.ErrInvalidFormat)
	}
	if !in.Intent.Valid() {
		return fmt.Errorf("unknown intent %q: %w", in.Intent, domain.ErrBadRequest)
	}
	if err := s.checkAccount(ctx, in); err != nil {
		return err
	}

	code, err := s.generate(s.cfg.Length)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	now := s.now()
	rec := &domain.OTPRecord{
		Phone:     in.Phone,
		Code:      code,
		Intent:    in.Intent,
		CreatedAt: now.Unix(),
		ResendAt:  now.Add(s.cfg.ResendCooldown).Unix(),
		ExpiresAt: now.Add(s.cfg.TTL).Unix(),
	}
	if in.Intent == domain.IntentSignup {
		rec.PendingSignup = in.Pending
	}
	if err := s.records.PutIfResendable(ctx, rec, now); err != nil {
		return err
	}

	if err := s.sms.SendSMS(ctx, in.Phone, message(code, s.cfg.TTL)); err != nil {
		slog.ErrorContext(ctx, "otp delivery failed", "phone", phone.Mask(in.Phone), "err", err)
		// The request context may already be cancelled.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if derr := s.records.DeleteIfCode(cleanupCtx, in.Phone, code); derr != nil {
			slog.WarnContext(ctx, "failed to remove undelivered otp", "phone", phone.Mask(in.Phone), "err", derr)
		}
		return fmt.Errorf("send verification code: %w", domain.ErrDeliveryFailed)
	}
	slog.InfoContext(ctx, "otp issued", "phone", phone.Mask(in.Phone), "intent", in.Intent)
	return nil
}

func (s *service) checkAccount(ctx context.Context, in RequestInput) error {
	u, err := s.users.GetByPhone(ctx, in.Phone)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		u = nil
	default:
		return err
	}

	if in.Intent == domain.IntentLogin {
		if u == nil {
			return fmt.Errorf("no account for this mobile number: %w", domain.ErrNotFound)
		}
		if !u.Enable {
			return fmt.Errorf("account disabled: %w", domain.ErrForbidden)
		}
		return nil
	}

	if u != nil {
		return fmt.Errorf("mobile number already registered: %w", domain.ErrAlreadyExists)
	}
	if in.Pending.Email != "" {
		_, err := s.users.GetByEmail(ctx, in.Pending.Email)
		if err == nil {
			return fmt.Errorf("email already registered: %w", domain.ErrAlreadyExists)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *service) Verify(ctx context.Context, ph, code string, intent domain.OTPIntent) (*domain.OTPRecord, error) {
	if !phone.Valid(ph) {
		return nil, fmt.Errorf("mobile number must be + followed by 10 to 15 digits: %w", domain.ErrInvalidFormat)
	}
	rec, err := s.records.Consume(ctx, ph, code, intent, s.now())
	if err == nil {
		return rec, nil
	}

	switch {
	case errors.Is(err, domain.ErrOTPExpired) && rec != nil:
		if derr := s.records.DeleteIfCode(ctx, ph, rec.Code); derr != nil {
			slog.WarnContext(ctx, "failed to remove expired otp", "phone", phone.Mask(ph), "err", derr)
		}
	case errors.Is(err, domain.ErrOTPMismatch) && rec != nil:
		if ferr := s.records.RecordFailedAttempt(ctx, ph, rec.Code, s.cfg.MaxAttempts); ferr != nil {
			slog.WarnContext(ctx, "failed to record otp attempt", "phone", phone.Mask(ph), "err", ferr)
		}
	}
	return nil, err
}

func message(code string, ttl time.Duration) string {
	minutes := int(math.Ceil(ttl.Minutes()))
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)
}

var ten = big.NewInt(10)

// GenerateCode returns length uniformly random decimal digits. Leading zeros are kept.
func GenerateCode(length int) (string, error) {
	if length < 1 {
		return "", errors.New("code length must be positive")
	}
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b[i] = byte('0' + n.Int64())
	}
	return string(b), nil
}

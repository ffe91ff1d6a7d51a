package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrConflict       = errors.New("conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidFormat  = errors.New("invalid format")
	ErrThrottled      = errors.New("throttled")
	ErrDeliveryFailed = errors.New("delivery failed")
	ErrOTPExpired     = errors.New("otp expired")
	ErrOTPMismatch    = errors.New("otp mismatch")
)

// ThrottledError is returned when an OTP was issued for the same phone number
// too recently. It matches ErrThrottled under errors.Is.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("verification code already sent, retry in %d seconds", e.Seconds())
}

func (e *ThrottledError) Unwrap() error { return ErrThrottled }

// Seconds returns RetryAfter rounded up to whole seconds, never less than 1.
func (e *ThrottledError) Seconds() int {
	s := int(math.Ceil(e.RetryAfter.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

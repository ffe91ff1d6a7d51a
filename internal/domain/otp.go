package domain

import "time"

// OTPIntent distinguishes a signup verification from a login verification.
type OTPIntent string

const (
	IntentSignup OTPIntent = "signup"
	IntentLogin  OTPIntent = "login"
)

func (i OTPIntent) Valid() bool { return i == IntentSignup || i == IntentLogin }

// PendingSignup holds the account fields collected at signup. The user row is
// only created from it once the phone number has been verified.
type PendingSignup struct {
	Name         string `dynamodbav:"name,omitempty"`
	Role         string `dynamodbav:"role,omitempty"`
	Email        string `dynamodbav:"email,omitempty"`
	PasswordHash string `dynamodbav:"password_hash,omitempty"`
}

// OTPRecord is the single outstanding code for a phone number.
// PK: phone. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type OTPRecord struct {
	Phone     string    `dynamodbav:"phone"`
	Code      string    `dynamodbav:"code"`
	Intent    OTPIntent `dynamodbav:"intent"`
	Attempts  int       `dynamodbav:"attempts"`
	CreatedAt int64     `dynamodbav:"created_at"`
	ResendAt  int64     `dynamodbav:"resend_at"`
	ExpiresAt int64     `dynamodbav:"expires_at"`
	PendingSignup
}

// Expired reports whether the record can no longer be verified at now.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.Unix() >= r.ExpiresAt
}

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration loaded from environment variables.
// It is loaded once at startup and treated as read-only afterwards.
type Config struct {
	AppPort        string   `env:"APP_PORT" envDefault:"3000"`
	AppEnv         string   `env:"APP_ENV" envDefault:"development"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	// TrustProxyHeaders lets X-Forwarded-For / X-Real-IP replace the peer
	// address. Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`

	DynamoTables DynamoTables
	S3BucketName string `env:"S3_BUCKET_NAME" envDefault:"medmarket-files"`

	JWT       JWTConfig
	OTP       OTPConfig
	SMS       SMSConfig
	RateLimit RateLimitConfig

	OTelEndpoint    string `env:"OTEL_ENDPOINT"`
	OTelServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"medmarket-api"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users       string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
	UserUniques string `env:"DYNAMO_TABLE_USER_UNIQUES" envDefault:"user_uniques"`
	OTPRecords  string `env:"DYNAMO_TABLE_OTP_RECORDS" envDefault:"otp_records"`
	Stores      string `env:"DYNAMO_TABLE_STORES" envDefault:"stores"`
	Medicines   string `env:"DYNAMO_TABLE_MEDICINES" envDefault:"medicines"`
	Reviews     string `env:"DYNAMO_TABLE_REVIEWS" envDefault:"reviews"`
}

// JWTConfig controls session token signing. Secret has no default.
type JWTConfig struct {
	Secret string        `env:"JWT_SECRET"`
	Issuer string        `env:"JWT_ISSUER" envDefault:"medmarket-api"`
	TTL    time.Duration `env:"JWT_TTL" envDefault:"1h"`
}

// OTPConfig controls one-time code issuance and verification.
type OTPConfig struct {
	Length         int           `env:"OTP_LENGTH" envDefault:"6"`
	TTL            time.Duration `env:"OTP_TTL" envDefault:"10m"`
	ResendCooldown time.Duration `env:"OTP_RESEND_COOLDOWN" envDefault:"10m"`
	MaxAttempts    int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
}

// SMSConfig selects and configures the delivery channel for codes.
type SMSConfig struct {
	Provider         string `env:"SMS_PROVIDER" envDefault:"sns"` // "sns" | "twilio" | "log"
	SNSRegion        string `env:"SNS_REGION" envDefault:"us-east-1"`
	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `env:"TWILIO_FROM_NUMBER"`
}

// RateLimitConfig is the per-IP budget on public auth endpoints.
type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	Burst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

const minSecretLen = 32

// Load reads all configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted safely.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWT.Secret) < minSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLen))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		errs = append(errs, errors.New("OTP_LENGTH must be between 4 and 10"))
	}
	if c.OTP.TTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	if c.OTP.ResendCooldown <= 0 || c.OTP.ResendCooldown > c.OTP.TTL {
		errs = append(errs, errors.New("OTP_RESEND_COOLDOWN must be positive and not exceed OTP_TTL"))
	}
	if c.OTP.MaxAttempts < 1 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must be at least 1"))
	}
	switch c.SMS.Provider {
	case "sns", "log":
	case "twilio":
		if c.SMS.TwilioAccountSID == "" || c.SMS.TwilioAuthToken == "" || c.SMS.TwilioFromNumber == "" {
			errs = append(errs, errors.New("twilio SMS provider requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SMS_PROVIDER %q", c.SMS.Provider))
	}
	return errors.Join(errs...)
}

// Package sms selects the delivery channel for verification codes.
package sms

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medmarket-api/internal/config"
	"github.com/medmarket-api/internal/infrastructure/sns"
	"github.com/medmarket-api/internal/infrastructure/twilio"
	"github.com/medmarket-api/internal/pkg/phone"
)

// Sender delivers a text message to a phone number.
type Sender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// New returns the sender named by cfg.SMS.Provider.
func New(ctx context.Context, cfg *config.Config) (Sender, error) {
	switch cfg.SMS.Provider {
	case "sns":
		return sns.NewSender(ctx, cfg)
	case "twilio":
		return twilio.NewSender(cfg.SMS.TwilioAccountSID, cfg.SMS.TwilioAuthToken, cfg.SMS.TwilioFromNumber), nil
	case "log":
		return LogSender{}, nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.SMS.Provider)
	}
}

// LogSender records sends instead of delivering them. The message body carries
// the code, so only its length is logged. For local development.
type LogSender struct{}

func (LogSender) SendSMS(ctx context.Context, to, message string) error {
	slog.InfoContext(ctx, "sms send skipped", "to", phone.Mask(to), "bytes", len(message))
	return nil
}

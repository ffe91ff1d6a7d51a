package twilio

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageCreator is the part of the Twilio REST API used to deliver SMS.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Sender delivers SMS through Twilio Programmable Messaging.
type Sender struct {
	api        MessageCreator
	fromNumber string
}

func NewSender(accountSID, authToken, fromNumber string) *Sender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewSenderWithAPI(client.Api, fromNumber)
}

func NewSenderWithAPI(api MessageCreator, fromNumber string) *Sender {
	return &Sender{api: api, fromNumber: fromNumber}
}

// SendSMS sends message to the given number. The Twilio client takes no
// context, so a cancelled request is only honoured before the call.
func (s *Sender) SendSMS(ctx context.Context, to, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.fromNumber)
	params.SetBody(message)

	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	return nil
}

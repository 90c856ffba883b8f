package services

import (
	"context"
	"fmt"

	"ridealong/internal/utils"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSService sends text messages through Twilio
type SMSService struct {
	client *twilio.RestClient
	from   string
}

// NewSMSService builds a Twilio-backed sender
func NewSMSService(accountSID, authToken, fromNumber string) *SMSService {
	return &SMSService{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: fromNumber,
	}
}

// Send implements Sender. SMS has no subject line, so it is prefixed to the body.
func (s *SMSService) Send(ctx context.Context, to, subject, body string) error {
	number := utils.E164(to)
	if number == "" {
		return fmt.Errorf("invalid sms recipient %q", to)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(number)
	params.SetFrom(s.from)
	params.SetBody(subject + "\n" + body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	if resp.ErrorCode != nil {
		return fmt.Errorf("twilio error code %d", *resp.ErrorCode)
	}
	return nil
}

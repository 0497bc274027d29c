package sms

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// otpValidityPeriod drops undelivered codes before they could expire in the
// user's hands.
const otpValidityPeriod = 600

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	// MessagingServiceSID routes through a messaging service instead of a
	// single number when set.
	MessagingServiceSID string
}

type TwilioProvider struct {
	client *twilio.RestClient
	config TwilioConfig
}

func NewTwilioProvider(cfg TwilioConfig) *TwilioProvider {
	return &TwilioProvider{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		config: cfg,
	}
}

func (t *TwilioProvider) Name() string { return "twilio" }

func (t *TwilioProvider) SendSMS(_ context.Context, request *SMSRequest) (*SMSResponse, error) {
	params := &api.CreateMessageParams{}
	params.SetTo(request.To)
	params.SetBody(request.Message)
	switch {
	case request.From != "":
		params.SetFrom(request.From)
	case t.config.MessagingServiceSID != "":
		params.SetMessagingServiceSid(t.config.MessagingServiceSID)
	default:
		params.SetFrom(t.config.FromNumber)
	}
	if request.Type == TypeOTP {
		params.SetValidityPeriod(otpValidityPeriod)
	}

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		err = fmt.Errorf("%w: twilio: %v", ErrSendFailed, err)
		return failed(err), err
	}

	out := &SMSResponse{Success: true, Status: "queued"}
	if resp.Sid != nil {
		out.MessageID = *resp.Sid
	}
	if resp.Status != nil {
		out.Status = string(*resp.Status)
	}
	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		out.Error = *resp.ErrorMessage
	}
	return out, nil
}

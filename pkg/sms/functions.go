package sms

import (
	"context"
	"fmt"

	"swiftresponse/pkg/functions"
)

// FunctionsProvider sends through the hosted send-sms function.
type FunctionsProvider struct {
	client *functions.Client
}

func NewFunctionsProvider(client *functions.Client) *FunctionsProvider {
	return &FunctionsProvider{client: client}
}

func (f *FunctionsProvider) Name() string { return "functions" }

func (f *FunctionsProvider) SendSMS(ctx context.Context, request *SMSRequest) (*SMSResponse, error) {
	result, err := f.client.SendSMS(ctx, request.To, request.Message)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrSendFailed, err)
		return failed(err), err
	}
	return &SMSResponse{Success: result.Success, Status: "sent"}, nil
}

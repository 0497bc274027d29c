package sms

import (
	"context"
	"errors"
)

var ErrSendFailed = errors.New("sms send failed")

type SMSProvider interface {
	SendSMS(ctx context.Context, request *SMSRequest) (*SMSResponse, error)
	Name() string
}

const (
	TypeTransactional = "transactional"
	TypeOTP           = "otp"
	TypeAlert         = "alert"
)

type SMSRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// SMSResponse mirrors the {success, error} result of the send-sms function.
type SMSResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func failed(err error) *SMSResponse {
	return &SMSResponse{Success: false, Status: "failed", Error: err.Error()}
}

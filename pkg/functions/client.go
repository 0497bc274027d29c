// Package functions calls the hosted serverless functions used for side
// effects: send-sms and send-otp.
package functions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrFunctionFailed = errors.New("function call failed")

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

type Client struct {
	http *resty.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey).SetHeader("apikey", cfg.APIKey)
	}
	return &Client{http: client}
}

type sendSMSRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type SendSMSResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

type SendOTPResult struct {
	Success bool   `json:"success"`
	OTPHash string `json:"otp_hash,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (c *Client) SendSMS(ctx context.Context, phone, message string) (*SendSMSResult, error) {
	var result SendSMSResult
	if err := c.invoke(ctx, "/send-sms", sendSMSRequest{To: phone, Message: message}, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return &result, fmt.Errorf("%w: send-sms: %s", ErrFunctionFailed, result.Error)
	}
	return &result, nil
}

func (c *Client) SendOTP(ctx context.Context, phone string) (*SendOTPResult, error) {
	var result SendOTPResult
	if err := c.invoke(ctx, "/send-otp", sendOTPRequest{Phone: phone}, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return &result, fmt.Errorf("%w: send-otp: %s", ErrFunctionFailed, result.Error)
	}
	return &result, nil
}

func (c *Client) invoke(ctx context.Context, path string, body, result interface{}) error {
	var failure struct {
		Error string `json:"error"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(&failure).
		Post(path)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	if resp.IsError() {
		msg := failure.Error
		if msg == "" {
			msg = resp.Status()
		}
		return fmt.Errorf("%w: %s returned %d: %s", ErrFunctionFailed, path, resp.StatusCode(), msg)
	}
	return nil
}

package push

import (
	"context"
	"errors"
)

var ErrNoTokens = errors.New("no device tokens")

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// PushProvider delivers device notifications. SendMulticast returns one
// response per token in the request order.
type PushProvider interface {
	SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error)
	SendMulticast(ctx context.Context, tokens []string, request *NotificationRequest) ([]*NotificationResponse, error)
	Name() string
}

type NotificationRequest struct {
	Token       string            `json:"token"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Sound       string            `json:"sound,omitempty"`
	Priority    Priority          `json:"priority,omitempty"`
	TTLSeconds  int               `json:"ttl_seconds,omitempty"`
	CollapseKey string            `json:"collapse_key,omitempty"`
}

type NotificationResponse struct {
	MessageID string `json:"message_id,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Token     string `json:"token"`
}

// Sent counts the successful responses.
func Sent(responses []*NotificationResponse) int {
	n := 0
	for _, r := range responses {
		if r != nil && r.Success {
			n++
		}
	}
	return n
}

func withToken(request *NotificationRequest, token string) *NotificationRequest {
	cp := *request
	cp.Token = token
	return &cp
}

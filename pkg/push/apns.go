package push

import (
	"context"
	"fmt"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/token"
)

type APNSProvider struct {
	client *apns2.Client
	topic  string
}

func NewAPNSProvider(keyFile, keyID, teamID, topic string, production bool) (*APNSProvider, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	})
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSProvider{client: client, topic: topic}, nil
}

func (a *APNSProvider) Name() string {
	return "apns"
}

func (a *APNSProvider) SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error) {
	res, err := a.client.PushWithContext(ctx, a.buildNotification(request))
	if err != nil {
		return &NotificationResponse{Success: false, Error: err.Error(), Token: request.Token}, err
	}

	resp := &NotificationResponse{MessageID: res.ApnsID, Success: res.Sent(), Token: request.Token}
	if !res.Sent() {
		resp.Error = res.Reason
	}
	return resp, nil
}

// SendMulticast pushes one notification per token; APNS has no batch call.
func (a *APNSProvider) SendMulticast(ctx context.Context, tokens []string, request *NotificationRequest) ([]*NotificationResponse, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}

	responses := make([]*NotificationResponse, len(tokens))
	for i, t := range tokens {
		resp, err := a.SendNotification(ctx, withToken(request, t))
		if err != nil && ctx.Err() != nil {
			return responses[:i], ctx.Err()
		}
		responses[i] = resp
	}
	return responses, nil
}

func (a *APNSProvider) buildNotification(request *NotificationRequest) *apns2.Notification {
	aps := map[string]interface{}{
		"alert": map[string]interface{}{
			"title": request.Title,
			"body":  request.Body,
		},
	}
	if request.Sound != "" {
		aps["sound"] = request.Sound
	}

	payload := map[string]interface{}{"aps": aps}
	for key, value := range request.Data {
		payload[key] = value
	}

	notification := &apns2.Notification{
		DeviceToken: request.Token,
		Topic:       a.topic,
		Payload:     payload,
		Priority:    apns2.PriorityLow,
		CollapseID:  request.CollapseKey,
	}
	if request.Priority == PriorityHigh {
		notification.Priority = apns2.PriorityHigh
	}
	if request.TTLSeconds > 0 {
		notification.Expiration = time.Now().Add(time.Duration(request.TTLSeconds) * time.Second)
	}
	return notification
}

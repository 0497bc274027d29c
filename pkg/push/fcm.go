package push

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMProvider struct {
	client *messaging.Client
}

// NewFCMProvider falls back to application default credentials when no
// credentials file is given.
func NewFCMProvider(ctx context.Context, projectID, credentialsFile string) (*FCMProvider, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	var appConfig *firebase.Config
	if projectID != "" {
		appConfig = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMProvider{client: client}, nil
}

func (f *FCMProvider) Name() string {
	return "fcm"
}

func (f *FCMProvider) SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error) {
	id, err := f.client.Send(ctx, f.buildMessage(request))
	if err != nil {
		return &NotificationResponse{Success: false, Error: err.Error(), Token: request.Token}, err
	}
	return &NotificationResponse{MessageID: id, Success: true, Token: request.Token}, nil
}

func (f *FCMProvider) SendMulticast(ctx context.Context, tokens []string, request *NotificationRequest) ([]*NotificationResponse, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}

	messages := make([]*messaging.Message, len(tokens))
	for i, token := range tokens {
		messages[i] = f.buildMessage(withToken(request, token))
	}

	batch, err := f.client.SendEach(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM batch: %w", err)
	}

	responses := make([]*NotificationResponse, len(batch.Responses))
	for i, r := range batch.Responses {
		resp := &NotificationResponse{Token: tokens[i], Success: r.Success, MessageID: r.MessageID}
		if r.Error != nil {
			resp.Error = r.Error.Error()
		}
		responses[i] = resp
	}
	return responses, nil
}

func (f *FCMProvider) buildMessage(request *NotificationRequest) *messaging.Message {
	message := &messaging.Message{
		Token: request.Token,
		Notification: &messaging.Notification{
			Title: request.Title,
			Body:  request.Body,
		},
		Data: request.Data,
	}

	android := &messaging.AndroidConfig{
		Priority:    "normal",
		CollapseKey: request.CollapseKey,
		Notification: &messaging.AndroidNotification{
			Sound:     request.Sound,
			ChannelID: "emergency_alerts",
		},
	}
	if request.Priority == PriorityHigh {
		android.Priority = "high"
	}
	if request.TTLSeconds > 0 {
		ttl := time.Duration(request.TTLSeconds) * time.Second
		android.TTL = &ttl
	}
	message.Android = android

	return message
}

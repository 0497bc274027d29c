package push

import (
	"context"

	"github.com/google/uuid"

	"swiftresponse/pkg/logger"
)

// LogProvider stands in for a real push service in development.
type LogProvider struct {
	logger *logger.Logger
}

func NewLogProvider(log *logger.Logger) *LogProvider {
	return &LogProvider{logger: log}
}

func (p *LogProvider) Name() string {
	return "log"
}

func (p *LogProvider) SendNotification(_ context.Context, request *NotificationRequest) (*NotificationResponse, error) {
	p.logger.WithFields(map[string]interface{}{
		"title": request.Title,
		"data":  request.Data,
	}).Info("Push notification")
	return &NotificationResponse{MessageID: uuid.NewString(), Success: true, Token: request.Token}, nil
}

func (p *LogProvider) SendMulticast(ctx context.Context, tokens []string, request *NotificationRequest) ([]*NotificationResponse, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	responses := make([]*NotificationResponse, len(tokens))
	for i, t := range tokens {
		responses[i], _ = p.SendNotification(ctx, withToken(request, t))
	}
	return responses, nil
}

package sms

import (
	"context"

	"swiftresponse/internal/utils"
	"swiftresponse/pkg/logger"
)

// LogProvider writes messages to the log instead of sending them. Used in
// development when no gateway is configured.
type LogProvider struct {
	logger *logger.Logger
}

func NewLogProvider(log *logger.Logger) *LogProvider {
	return &LogProvider{logger: log}
}

func (l *LogProvider) Name() string { return "log" }

func (l *LogProvider) SendSMS(_ context.Context, request *SMSRequest) (*SMSResponse, error) {
	l.logger.WithFields(map[string]interface{}{
		"to":   utils.MaskPhone(request.To),
		"type": request.Type,
	}).Info("SMS (not sent): " + request.Message)
	return &SMSResponse{Success: true, Status: "logged"}, nil
}

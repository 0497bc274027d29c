package sms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type AWSSNSConfig struct {
	Region string
	// SenderID is the alphanumeric sender shown on handsets that support it.
	SenderID string
	// MaxPrice caps the per-message price in USD, e.g. "0.50".
	MaxPrice string
}

type AWSSNSProvider struct {
	client *sns.Client
	config AWSSNSConfig
}

func NewAWSSNSProvider(ctx context.Context, cfg AWSSNSConfig) (*AWSSNSProvider, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &AWSSNSProvider{client: sns.NewFromConfig(awsCfg), config: cfg}, nil
}

func (a *AWSSNSProvider) Name() string { return "sns" }

func (a *AWSSNSProvider) SendSMS(ctx context.Context, request *SMSRequest) (*SMSResponse, error) {
	resp, err := a.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(request.To),
		Message:           aws.String(request.Message),
		MessageAttributes: a.attributes(request),
	})
	if err != nil {
		err = fmt.Errorf("%w: sns: %v", ErrSendFailed, err)
		return failed(err), err
	}

	return &SMSResponse{
		Success:   true,
		MessageID: aws.ToString(resp.MessageId),
		Status:    "sent",
	}, nil
}

func (a *AWSSNSProvider) attributes(request *SMSRequest) map[string]snsTypes.MessageAttributeValue {
	attrs := map[string]snsTypes.MessageAttributeValue{
		// Alerts and OTPs must not be deferred by the carrier.
		"AWS.SNS.SMS.SMSType": stringAttribute("Transactional"),
	}
	sender := request.From
	if sender == "" {
		sender = a.config.SenderID
	}
	if sender != "" {
		attrs["AWS.SNS.SMS.SenderID"] = stringAttribute(sender)
	}
	if a.config.MaxPrice != "" {
		attrs["AWS.SNS.SMS.MaxPrice"] = snsTypes.MessageAttributeValue{
			DataType:    aws.String("Number"),
			StringValue: aws.String(a.config.MaxPrice),
		}
	}
	return attrs
}

func stringAttribute(v string) snsTypes.MessageAttributeValue {
	return snsTypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}

package main

import (
	"context"
	"fmt"

	"swiftresponse/internal/config"
	"swiftresponse/internal/realtime"
	"swiftresponse/pkg/cache"
	"swiftresponse/pkg/functions"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/maps"
	"swiftresponse/pkg/mqtt"
	"swiftresponse/pkg/push"
	"swiftresponse/pkg/sms"
)

func newSMSProvider(ctx context.Context, cfg *config.SMSConfig, fn *functions.Client, log *logger.Logger) (sms.SMSProvider, error) {
	switch cfg.Provider {
	case "twilio":
		return sms.NewTwilioProvider(sms.TwilioConfig{
			AccountSID:          cfg.Twilio.AccountSID,
			AuthToken:           cfg.Twilio.AuthToken,
			FromNumber:          cfg.Twilio.FromNumber,
			MessagingServiceSID: cfg.Twilio.MessagingServiceSID,
		}), nil
	case "aws":
		return sms.NewAWSSNSProvider(ctx, sms.AWSSNSConfig{
			Region:   cfg.AWS.Region,
			SenderID: cfg.AWS.SenderID,
			MaxPrice: cfg.AWS.MaxPrice,
		})
	case "functions":
		if fn == nil {
			return nil, fmt.Errorf("SMS_PROVIDER=functions requires FUNCTIONS_BASE_URL")
		}
		return sms.NewFunctionsProvider(fn), nil
	case "log", "":
		return sms.NewLogProvider(log), nil
	}
	return nil, fmt.Errorf("unknown SMS_PROVIDER %q", cfg.Provider)
}

func newPushProvider(ctx context.Context, cfg *config.PushConfig, log *logger.Logger) (push.PushProvider, error) {
	switch cfg.Provider {
	case "fcm":
		return push.NewFCMProvider(ctx, cfg.FCM.ProjectID, cfg.FCM.Credentials)
	case "apns":
		return push.NewAPNSProvider(cfg.APNS.KeyFile, cfg.APNS.KeyID, cfg.APNS.TeamID, cfg.APNS.BundleID, cfg.APNS.Production)
	case "log", "":
		return push.NewLogProvider(log), nil
	}
	return nil, fmt.Errorf("unknown PUSH_PROVIDER %q", cfg.Provider)
}

// newMaps returns the router and geocoder. Without a routing provider the
// advisor falls back to straight-line estimates, and reverse geocoding goes
// to Nominatim when it is configured.
func newMaps(cfg *config.MapsConfig) (maps.Router, maps.Geocoder, error) {
	switch cfg.Provider {
	case "google":
		provider, err := maps.NewGoogleMapsProvider(cfg.GoogleMaps.APIKey)
		if err != nil {
			return nil, nil, err
		}
		return provider, provider, nil
	case "mapbox":
		provider := maps.NewMapboxProvider(cfg.Mapbox.AccessToken)
		return provider, provider, nil
	case "none", "":
		if cfg.Nominatim.BaseURL == "" {
			return nil, nil, nil
		}
		return nil, maps.NewNominatimGeocoder(cfg.Nominatim.BaseURL, cfg.Nominatim.UserAgent), nil
	}
	return nil, nil, fmt.Errorf("unknown MAPS_PROVIDER %q", cfg.Provider)
}

func newFeed(cfg *config.RealtimeConfig, redisCache *cache.RedisCache, log *logger.Logger) (realtime.Feed, func(), error) {
	switch cfg.Backend {
	case config.RealtimeRedis:
		feed := realtime.NewRedisFeed(redisCache, log)
		return feed, func() { feed.Close() }, nil
	case config.RealtimeMQTT:
		client, err := mqtt.NewClient(&mqtt.Config{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			QoS:            byte(cfg.MQTT.QoS),
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		feed := realtime.NewMQTTFeed(client, log)
		return feed, func() {
			feed.Close()
			client.Disconnect()
		}, nil
	default:
		feed := realtime.NewLocalFeed(log)
		return feed, func() { feed.Close() }, nil
	}
}

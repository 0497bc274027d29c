package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"swiftresponse/internal/models"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/metrics"
	"swiftresponse/pkg/mqtt"
)

const mqttTopicPrefix = "swiftresponse/realtime/"

func MQTTTopic(table string) string {
	return mqttTopicPrefix + table
}

// Transport is the subset of the MQTT client used by MQTTFeed.
type Transport interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// MQTTFeed holds one broker subscription per table and fans events out to
// local subscribers.
type MQTTFeed struct {
	transport Transport
	fanout    *fanout
	logger    *logger.Logger
}

func NewMQTTFeed(transport Transport, log *logger.Logger) *MQTTFeed {
	f := &MQTTFeed{transport: transport, fanout: newFanout(), logger: log}
	f.fanout.dropped = dropLogger(log)
	return f
}

func (f *MQTTFeed) Publish(_ context.Context, event models.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	return f.transport.Publish(MQTTTopic(event.Table), payload)
}

func (f *MQTTFeed) Subscribe(ctx context.Context, table string, filter Filter, handler Handler) (*Subscription, error) {
	sub := newSubscription(ctx, table, filter, handler)
	first, err := f.fanout.add(sub)
	if err != nil {
		sub.cancel()
		return nil, err
	}

	if first {
		if err := f.transport.Subscribe(MQTTTopic(table), f.onMessage); err != nil {
			f.fanout.remove(sub)
			sub.cancel()
			return nil, err
		}
	}

	sub.onClose = func() {
		if f.fanout.remove(sub) {
			if err := f.transport.Unsubscribe(MQTTTopic(table)); err != nil {
				f.logger.WithError(err).WithField("table", table).Warn("Failed to release MQTT subscription")
			}
		}
	}
	go sub.run()
	return sub, nil
}

func (f *MQTTFeed) onMessage(topic string, payload []byte) error {
	var event models.ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		metrics.RealtimeEvents.WithLabelValues(topic, "malformed").Inc()
		return fmt.Errorf("malformed change event: %w", err)
	}
	f.fanout.dispatch(event)
	return nil
}

func (f *MQTTFeed) Close() error {
	f.fanout.closeAll()
	return nil
}

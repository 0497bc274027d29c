package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"swiftresponse/internal/models"
	"swiftresponse/pkg/cache"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/metrics"
)

const redisChannelPrefix = "realtime:"

func RedisChannel(table string) string {
	return redisChannelPrefix + table
}

// RedisFeed carries events over Redis pub/sub, one channel per table.
type RedisFeed struct {
	cache  *cache.RedisCache
	logger *logger.Logger

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewRedisFeed(c *cache.RedisCache, log *logger.Logger) *RedisFeed {
	return &RedisFeed{cache: c, logger: log, subs: make(map[*Subscription]struct{})}
}

func (f *RedisFeed) Publish(ctx context.Context, event models.ChangeEvent) error {
	if err := f.cache.Publish(ctx, RedisChannel(event.Table), event); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, table string, filter Filter, handler Handler) (*Subscription, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFeedClosed
	}
	f.mu.Unlock()

	channel := RedisChannel(table)
	ps := f.cache.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	sub := newSubscription(ctx, table, filter, handler)
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	sub.onClose = func() {
		f.mu.Lock()
		delete(f.subs, sub)
		f.mu.Unlock()
	}

	drop := dropLogger(f.logger)
	messages := ps.Channel()
	go func() {
		defer ps.Close()
		for {
			select {
			case <-sub.ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					f.logger.WithField("channel", channel).Warn("Realtime channel closed")
					sub.Unsubscribe()
					return
				}
				var event models.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					metrics.RealtimeEvents.WithLabelValues(table, "malformed").Inc()
					f.logger.WithError(err).WithField("channel", channel).Warn("Malformed change event")
					continue
				}
				if !sub.deliver(event) && sub.ctx.Err() == nil {
					drop(sub, event)
				}
			}
		}
	}()
	go sub.run()

	return sub, nil
}

func (f *RedisFeed) Close() error {
	f.mu.Lock()
	f.closed = true
	subs := make([]*Subscription, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	return nil
}

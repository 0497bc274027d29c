package realtime

import (
	"context"

	"swiftresponse/internal/models"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/metrics"
)

// LocalFeed delivers events within the process.
type LocalFeed struct {
	fanout *fanout
	logger *logger.Logger
}

func NewLocalFeed(log *logger.Logger) *LocalFeed {
	f := &LocalFeed{fanout: newFanout(), logger: log}
	f.fanout.dropped = dropLogger(log)
	return f
}

func (f *LocalFeed) Publish(_ context.Context, event models.ChangeEvent) error {
	f.fanout.mu.RLock()
	closed := f.fanout.closed
	f.fanout.mu.RUnlock()
	if closed {
		return ErrFeedClosed
	}

	f.fanout.dispatch(event)
	return nil
}

func (f *LocalFeed) Subscribe(ctx context.Context, table string, filter Filter, handler Handler) (*Subscription, error) {
	sub := newSubscription(ctx, table, filter, handler)
	if _, err := f.fanout.add(sub); err != nil {
		sub.cancel()
		return nil, err
	}
	sub.onClose = func() { f.fanout.remove(sub) }
	go sub.run()
	return sub, nil
}

func (f *LocalFeed) Close() error {
	f.fanout.closeAll()
	return nil
}

func dropLogger(log *logger.Logger) func(*Subscription, models.ChangeEvent) {
	return func(sub *Subscription, event models.ChangeEvent) {
		metrics.RealtimeEvents.WithLabelValues(sub.table, "dropped").Inc()
		log.WithFields(map[string]interface{}{
			"table":     event.Table,
			"record_id": event.RecordID,
			"filter":    sub.filter.String(),
		}).Warn("Realtime subscriber is behind, event dropped")
	}
}

// Package broadcast throttles live position streams into periodic writes.
package broadcast

import (
	"context"
	"sync"
	"time"

	"swiftresponse/internal/models"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/metrics"
)

type Kind string

const (
	KindDriver  Kind = "driver"
	KindPatient Kind = "patient"
)

// Sink persists one sample.
type Sink interface {
	WriteLocation(ctx context.Context, sample models.LocationSample) error
}

type SinkFunc func(ctx context.Context, sample models.LocationSample) error

func (f SinkFunc) WriteLocation(ctx context.Context, sample models.LocationSample) error {
	return f(ctx, sample)
}

// Broadcaster is a trailing throttle. The first accepted sample opens a
// window; when it closes the newest sample is written and the window
// resets. At most one write happens per window.
type Broadcaster struct {
	key       string
	kind      Kind
	window    time.Duration
	sink      Sink
	validator Validator
	logger    *logger.Logger

	mu       sync.Mutex
	latest   *models.LocationSample
	lastSent *models.LocationSample
	notify   chan struct{}
	done     chan struct{}
}

func NewBroadcaster(key string, kind Kind, window time.Duration, sink Sink, validator Validator, log *logger.Logger) *Broadcaster {
	return &Broadcaster{
		key:       key,
		kind:      kind,
		window:    window,
		sink:      sink,
		validator: validator,
		logger:    log.WithField("broadcaster", key),
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

func (b *Broadcaster) Key() string {
	return b.key
}

// Offer hands a raw sample to the broadcaster. Rejected samples are
// dropped and the error says why.
func (b *Broadcaster) Offer(sample models.LocationSample) error {
	if err := b.validator.Check(sample); err != nil {
		metrics.BroadcastRejectedSamples.WithLabelValues(string(b.kind), rejectReason(err)).Inc()
		return err
	}
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now()
	}

	b.mu.Lock()
	b.latest = &sample
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// LastWritten returns the last sample the sink accepted.
func (b *Broadcaster) LastWritten() (models.LocationSample, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastSent == nil {
		return models.LocationSample{}, false
	}
	return *b.lastSent, true
}

// Done is closed when Run returns.
func (b *Broadcaster) Done() <-chan struct{} {
	return b.done
}

func (b *Broadcaster) Run(ctx context.Context) {
	defer close(b.done)

	var timer *time.Timer
	var windowEnd <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.notify:
			if windowEnd == nil {
				timer = time.NewTimer(b.window)
				windowEnd = timer.C
			}
		case <-windowEnd:
			windowEnd = nil
			b.flush(ctx)
		}
	}
}

func (b *Broadcaster) flush(ctx context.Context) {
	b.mu.Lock()
	sample := b.latest
	b.latest = nil
	b.mu.Unlock()

	if sample == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, b.window)
	defer cancel()

	if err := b.sink.WriteLocation(writeCtx, *sample); err != nil {
		metrics.BroadcastWrites.WithLabelValues(string(b.kind), "failed").Inc()
		b.logger.LogBroadcast(b.key, false, err)
		return
	}

	b.mu.Lock()
	b.lastSent = sample
	b.mu.Unlock()

	metrics.BroadcastWrites.WithLabelValues(string(b.kind), "written").Inc()
	b.logger.LogBroadcast(b.key, true, nil)
}

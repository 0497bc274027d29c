// Package realtime delivers row-level change events on emergency records
// and folds them into per-role views.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"swiftresponse/internal/models"
)

var (
	ErrInvalidFilter = errors.New("invalid realtime filter")
	ErrFeedClosed    = errors.New("realtime feed closed")
)

// Handler receives events in publish order for one subscription.
type Handler func(ctx context.Context, event models.ChangeEvent)

type Feed interface {
	Publish(ctx context.Context, event models.ChangeEvent) error

	// Subscribe delivers events for table that match filter until the
	// subscription is cancelled or ctx is done.
	Subscribe(ctx context.Context, table string, filter Filter, handler Handler) (*Subscription, error)

	Close() error
}

// Filter is an equality predicate on one routing column. The zero Filter
// matches every event.
type Filter struct {
	Column string
	Value  string
}

// ParseFilter parses the "column=eq.value" form.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return Filter{}, nil
	}
	column, rest, ok := strings.Cut(s, "=")
	if !ok || column == "" {
		return Filter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
	value, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return Filter{}, fmt.Errorf("%w: only eq is supported: %q", ErrInvalidFilter, s)
	}
	return Filter{Column: column, Value: value}, nil
}

func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

func (f Filter) IsZero() bool {
	return f.Column == ""
}

func (f Filter) String() string {
	if f.IsZero() {
		return ""
	}
	return f.Column + "=eq." + f.Value
}

// Matches checks the routing keys first, then the written fields.
func (f Filter) Matches(event models.ChangeEvent) bool {
	if f.IsZero() {
		return true
	}
	if v, ok := event.Keys[f.Column]; ok {
		return v == f.Value
	}
	if v, ok := event.Fields[f.Column]; ok && v != nil {
		return fmt.Sprint(v) == f.Value
	}
	return false
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	table   string
	filter  Filter
	handler Handler

	ctx    context.Context
	cancel context.CancelFunc
	events chan models.ChangeEvent
	done   chan struct{}

	once    sync.Once
	onClose func()
}

const subscriptionBuffer = 64

func newSubscription(ctx context.Context, table string, filter Filter, handler Handler) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	return &Subscription{
		table:   table,
		filter:  filter,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan models.ChangeEvent, subscriptionBuffer),
		done:    make(chan struct{}),
	}
}

func (s *Subscription) Table() string  { return s.table }
func (s *Subscription) Filter() Filter { return s.filter }

// Done is closed once the subscription has stopped delivering.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe is safe to call from inside the handler.
func (s *Subscription) Unsubscribe() {
	s.cancel()
}

func (s *Subscription) run() {
	defer close(s.done)
	defer s.once.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
	})

	for {
		select {
		case <-s.ctx.Done():
			return
		case event := <-s.events:
			if s.ctx.Err() != nil {
				return
			}
			if event.Table == s.table && s.filter.Matches(event) {
				s.handler(s.ctx, event)
			}
		}
	}
}

// deliver enqueues without blocking the publisher. It reports false when
// the subscription is gone or its buffer is full.
func (s *Subscription) deliver(event models.ChangeEvent) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

// fanout routes events to the local subscribers of each table.
type fanout struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool

	// dropped is called when a subscriber's buffer is full.
	dropped func(sub *Subscription, event models.ChangeEvent)
}

func newFanout() *fanout {
	return &fanout{subs: make(map[string]map[*Subscription]struct{})}
}

func (f *fanout) add(sub *Subscription) (first bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false, ErrFeedClosed
	}
	set, ok := f.subs[sub.table]
	if !ok {
		set = make(map[*Subscription]struct{})
		f.subs[sub.table] = set
	}
	set[sub] = struct{}{}
	return len(set) == 1, nil
}

// remove reports whether sub was the last subscriber of its table.
func (f *fanout) remove(sub *Subscription) (last bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	set, ok := f.subs[sub.table]
	if !ok {
		return false
	}
	if _, ok := set[sub]; !ok {
		return false
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(f.subs, sub.table)
		return true
	}
	return false
}

func (f *fanout) dispatch(event models.ChangeEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.subs[event.Table] {
		if !sub.deliver(event) && sub.ctx.Err() == nil && f.dropped != nil {
			f.dropped(sub, event)
		}
	}
}

func (f *fanout) closeAll() {
	f.mu.Lock()
	f.closed = true
	var all []*Subscription
	for _, set := range f.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	f.subs = make(map[string]map[*Subscription]struct{})
	f.mu.Unlock()

	for _, sub := range all {
		sub.Unsubscribe()
	}
}

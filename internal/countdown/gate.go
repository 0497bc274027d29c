// Package countdown implements a cancellable delay before an automatic
// action, one second per tick.
package countdown

import (
	"sync"
	"sync/atomic"
	"time"

	"swiftresponse/pkg/metrics"
)

const (
	stateRunning int32 = iota
	stateCancelled
	stateCompleted
)

// TickFunc receives the whole seconds left. It is called once at start and
// after every tick except the last.
type TickFunc func(remaining int)

type Countdown struct {
	key       string
	gate      *Gate
	state     atomic.Int32
	remaining atomic.Int32
	stop      chan struct{}
	done      chan struct{}
}

func (c *Countdown) Key() string {
	return c.key
}

func (c *Countdown) Remaining() int {
	return int(c.remaining.Load())
}

// Cancel stops the countdown. It reports false when the countdown had
// already completed or been cancelled; onComplete is never called after a
// successful Cancel.
func (c *Countdown) Cancel() bool {
	if !c.state.CompareAndSwap(stateRunning, stateCancelled) {
		return false
	}
	close(c.stop)
	c.gate.release(c)
	metrics.Countdowns.WithLabelValues("cancelled").Inc()
	return true
}

func (c *Countdown) Completed() bool {
	return c.state.Load() == stateCompleted
}

// Done is closed when the countdown goroutine exits.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

// Gate keeps at most one running countdown per key.
type Gate struct {
	tick   time.Duration
	mu     sync.Mutex
	active map[string]*Countdown
}

type Option func(*Gate)

func WithTick(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.tick = d
		}
	}
}

func NewGate(opts ...Option) *Gate {
	g := &Gate{
		tick:   time.Second,
		active: make(map[string]*Countdown),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start begins a countdown of seconds ticks under key, cancelling any
// countdown already running under the same key.
func (g *Gate) Start(key string, seconds int, onTick TickFunc, onComplete func()) *Countdown {
	c := &Countdown{
		key:  key,
		gate: g,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	c.remaining.Store(int32(seconds))

	g.mu.Lock()
	prev := g.active[key]
	g.active[key] = c
	g.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}

	metrics.Countdowns.WithLabelValues("started").Inc()
	go g.run(c, seconds, onTick, onComplete)
	return c
}

func (g *Gate) run(c *Countdown, seconds int, onTick TickFunc, onComplete func()) {
	defer close(c.done)

	remaining := seconds
	if remaining > 0 && onTick != nil {
		onTick(remaining)
	}

	ticker := time.NewTicker(g.tick)
	defer ticker.Stop()

	for remaining > 0 {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			remaining--
			c.remaining.Store(int32(remaining))
			if remaining > 0 && onTick != nil && c.state.Load() == stateRunning {
				onTick(remaining)
			}
		}
	}

	if !c.state.CompareAndSwap(stateRunning, stateCompleted) {
		return
	}
	g.release(c)
	metrics.Countdowns.WithLabelValues("completed").Inc()
	if onComplete != nil {
		onComplete()
	}
}

// Cancel cancels the countdown running under key, if any.
func (g *Gate) Cancel(key string) bool {
	g.mu.Lock()
	c := g.active[key]
	g.mu.Unlock()
	if c == nil {
		return false
	}
	return c.Cancel()
}

func (g *Gate) Active(key string) (*Countdown, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.active[key]
	return c, ok
}

func (g *Gate) release(c *Countdown) {
	g.mu.Lock()
	if g.active[c.key] == c {
		delete(g.active, c.key)
	}
	g.mu.Unlock()
}

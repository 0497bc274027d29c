package countdown

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTick = 10 * time.Millisecond

func waitDone(t *testing.T, c *Countdown) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not finish")
	}
}

func TestCompletesExactlyOnce(t *testing.T) {
	g := NewGate(WithTick(testTick))

	var completed atomic.Int32
	var mu sync.Mutex
	var ticks []int

	start := time.Now()
	c := g.Start("sos:p1", 10, func(remaining int) {
		mu.Lock()
		ticks = append(ticks, remaining)
		mu.Unlock()
	}, func() {
		completed.Add(1)
	})
	waitDone(t, c)
	elapsed := time.Since(start)

	assert.Equal(t, int32(1), completed.Load())
	assert.True(t, c.Completed())
	assert.GreaterOrEqual(t, elapsed, 9*testTick)
	assert.False(t, c.Cancel(), "cancel after completion has no effect")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, ticks)

	_, active := g.Active("sos:p1")
	assert.False(t, active)
}

func TestCancelBeforeCompletion(t *testing.T) {
	g := NewGate(WithTick(testTick))

	var completed atomic.Int32
	c := g.Start("sos:p1", 10, nil, func() { completed.Add(1) })

	time.Sleep(3 * testTick)
	require.True(t, c.Cancel())
	waitDone(t, c)

	time.Sleep(10 * testTick)
	assert.Zero(t, completed.Load())
	assert.False(t, c.Completed())
	assert.False(t, c.Cancel())
}

func TestStartSameKeyCancelsPrevious(t *testing.T) {
	g := NewGate(WithTick(testTick))

	var first, second atomic.Int32
	c1 := g.Start("driver:d1", 5, nil, func() { first.Add(1) })
	c2 := g.Start("driver:d1", 5, nil, func() { second.Add(1) })

	waitDone(t, c1)
	waitDone(t, c2)

	assert.Zero(t, first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestDifferentKeysRunIndependently(t *testing.T) {
	g := NewGate(WithTick(testTick))

	var done atomic.Int32
	a := g.Start("driver:a", 3, nil, func() { done.Add(1) })
	b := g.Start("driver:b", 3, nil, func() { done.Add(1) })
	waitDone(t, a)
	waitDone(t, b)

	assert.Equal(t, int32(2), done.Load())
}

func TestGateCancelByKey(t *testing.T) {
	g := NewGate(WithTick(testTick))

	c := g.Start("sos:p2", 50, nil, func() { t.Error("should not complete") })
	assert.True(t, g.Cancel("sos:p2"))
	assert.False(t, g.Cancel("sos:p2"))
	waitDone(t, c)
}

func TestZeroSecondsCompletesImmediately(t *testing.T) {
	g := NewGate(WithTick(time.Hour))

	var completed atomic.Int32
	c := g.Start("k", 0, nil, func() { completed.Add(1) })
	waitDone(t, c)
	assert.Equal(t, int32(1), completed.Load())
}

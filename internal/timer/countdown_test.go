package timer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

func newFake() (*fakeTicker, Option) {
	ft := &fakeTicker{ch: make(chan time.Time)}
	return ft, WithTicker(func(time.Duration) Ticker { return ft })
}

func sendTicks(t *testing.T, ft *fakeTicker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case ft.ch <- time.Now():
		case <-time.After(time.Second):
			t.Fatalf("tick %d was not consumed", i+1)
		}
	}
}

func assertLoopExited(t *testing.T, ft *fakeTicker) {
	t.Helper()
	select {
	case ft.ch <- time.Now():
		t.Fatalf("countdown loop still consuming ticks")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestCountdownFiresOnceAfterDuration(t *testing.T) {
	ft, opt := newFake()
	var calls atomic.Int32
	fired := make(chan struct{}, 1)
	c := New(10, func() {
		calls.Add(1)
		fired <- struct{}{}
	}, opt)
	defer c.Stop()

	sendTicks(t, ft, 10)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("timeout callback not invoked")
	}

	assertLoopExited(t, ft)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, c.Remaining())
	assert.True(t, c.Expired())
}

func TestCountdownPausedNeverFires(t *testing.T) {
	ft, opt := newFake()
	var calls atomic.Int32
	c := New(10, func() { calls.Add(1) }, opt)
	defer c.Stop()
	c.Pause()

	sendTicks(t, ft, 15)
	sendTicks(t, ft, 1) // the previous tick has been processed once this one is received

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 10, c.Remaining())
	assert.True(t, c.Paused())
}

func TestCountdownResumeContinuesFromPausedValue(t *testing.T) {
	ft, opt := newFake()
	c := New(10, nil, opt)
	defer c.Stop()

	sendTicks(t, ft, 3)
	require.Eventually(t, func() bool { return c.Remaining() == 7 }, time.Second, time.Millisecond)

	c.Pause()
	sendTicks(t, ft, 5)
	sendTicks(t, ft, 1)
	assert.Equal(t, 7, c.Remaining())

	c.Resume()
	sendTicks(t, ft, 2)
	require.Eventually(t, func() bool { return c.Remaining() == 5 }, time.Second, time.Millisecond)
}

func TestCountdownSetOnTimeoutDoesNotReset(t *testing.T) {
	ft, opt := newFake()
	var first, second atomic.Int32
	fired := make(chan struct{}, 1)
	c := New(6, func() { first.Add(1) }, opt)
	defer c.Stop()

	sendTicks(t, ft, 3)
	require.Eventually(t, func() bool { return c.Remaining() == 3 }, time.Second, time.Millisecond)

	c.SetOnTimeout(func() {
		second.Add(1)
		fired <- struct{}{}
	})
	assert.Equal(t, 3, c.Remaining())
	assert.Equal(t, 6, c.Duration())

	sendTicks(t, ft, 3)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("replacement callback not invoked")
	}
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestCountdownStopReleasesLoop(t *testing.T) {
	ft, opt := newFake()
	var calls atomic.Int32
	c := New(10, func() { calls.Add(1) }, opt)

	sendTicks(t, ft, 9)
	require.Eventually(t, func() bool { return c.Remaining() == 1 }, time.Second, time.Millisecond)

	c.Stop()
	assertLoopExited(t, ft)
	assert.Equal(t, int32(0), calls.Load())

	// a second Stop is a no-op
	c.Stop()
}

func TestCountdownResetRestarts(t *testing.T) {
	ft, opt := newFake()
	fired := make(chan struct{}, 2)
	c := New(2, func() { fired <- struct{}{} }, opt)
	defer c.Stop()

	sendTicks(t, ft, 2)
	<-fired

	c.Reset(3)
	assert.Equal(t, 3, c.Remaining())
	assert.False(t, c.Expired())

	sendTicks(t, ft, 3)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("reset countdown did not fire")
	}
}

func TestCountdownStopFromCallback(t *testing.T) {
	ft, opt := newFake()
	done := make(chan struct{})
	var c *Countdown
	c = New(1, func() {
		c.Stop()
		close(done)
	}, opt)

	sendTicks(t, ft, 1)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("stop inside the callback deadlocked")
	}
}

func TestCountdownReportsTicks(t *testing.T) {
	ft, opt := newFake()
	var mu sync.Mutex
	var seen []int
	fired := make(chan struct{}, 1)
	c := New(3, func() { fired <- struct{}{} }, opt, WithOnTick(func(remaining int) {
		mu.Lock()
		seen = append(seen, remaining)
		mu.Unlock()
	}))
	defer c.Stop()

	sendTicks(t, ft, 3)
	<-fired

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 1, 0}, seen)
}

func TestCountdownRealTicker(t *testing.T) {
	fired := make(chan struct{}, 1)
	c := New(2, func() { fired <- struct{}{} }, WithInterval(5*time.Millisecond))
	defer c.Stop()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown never expired")
	}
	assert.Equal(t, 0, c.Remaining())
}

func TestCountdownStopFromAnotherGoroutineCancelsPendingTimeout(t *testing.T) {
	ft, opt := newFake()
	var timeouts atomic.Int32
	atZero := make(chan struct{})
	release := make(chan struct{})
	loopDone := make(chan struct{})
	c := New(1, func() { timeouts.Add(1) }, opt, WithOnTick(func(remaining int) {
		if remaining == 0 {
			close(atZero)
			<-release
		}
	}))

	go func() {
		defer close(loopDone)
		sendTicks(t, ft, 1)
	}()
	<-atZero

	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("stop blocked on a running tick callback")
	}

	close(release)
	<-loopDone
	assertLoopExited(t, ft)
	assert.Equal(t, int32(0), timeouts.Load(), "timeout callback started after Stop returned")
}

func TestCountdownStopFromTickCallback(t *testing.T) {
	ft, opt := newFake()
	var timeouts atomic.Int32
	var c *Countdown
	c = New(2, func() { timeouts.Add(1) }, opt, WithOnTick(func(remaining int) {
		if remaining == 1 {
			c.Stop()
		}
	}))

	sendTicks(t, ft, 1)
	assertLoopExited(t, ft)
	assert.Equal(t, int32(0), timeouts.Load())
	assert.Equal(t, 1, c.Remaining())
}

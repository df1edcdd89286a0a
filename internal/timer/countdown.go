// Package timer provides the per-question countdown.
package timer

import (
	"sync"
	"time"
)

// Ticker is the subset of *time.Ticker the countdown needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct {
	t *time.Ticker
}

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// Option configures a Countdown.
type Option func(*Countdown)

// WithInterval overrides the one-second tick interval.
func WithInterval(d time.Duration) Option {
	return func(c *Countdown) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTicker replaces the ticker factory, mostly for tests.
func WithTicker(factory func(time.Duration) Ticker) Option {
	return func(c *Countdown) {
		c.newTicker = factory
	}
}

// WithOnTick registers a callback invoked with the remaining seconds after every counted tick.
func WithOnTick(fn func(remaining int)) Option {
	return func(c *Countdown) {
		c.onTick = fn
	}
}

// Countdown counts whole seconds down to zero and fires its timeout callback once.
// Ticks that arrive while paused are ignored, so Resume continues from the paused value.
type Countdown struct {
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	onTick    func(remaining int)

	mu        sync.Mutex
	onTimeout func()
	duration  int
	remaining int
	paused    bool
	fired     bool
	gen       *generation
}

// generation is one run of the countdown loop, from Reset to Stop.
type generation struct {
	stop    chan struct{}
	done    chan struct{}
	stopped bool
	// calling is set while a callback of this generation runs
	calling bool
}

// New starts a countdown of duration seconds.
func New(duration int, onTimeout func(), opts ...Option) *Countdown {
	c := &Countdown{
		interval:  time.Second,
		newTicker: newStdTicker,
		onTimeout: onTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset(duration)
	return c
}

// Reset restarts the countdown from duration. A previous loop is released first.
func (c *Countdown) Reset(duration int) {
	c.halt()

	g := &generation{stop: make(chan struct{}), done: make(chan struct{})}
	c.mu.Lock()
	c.duration = duration
	c.remaining = duration
	c.paused = false
	c.fired = false
	c.gen = g
	c.mu.Unlock()

	go c.run(c.newTicker(c.interval), g)
}

// SetOnTimeout swaps the timeout callback without touching the running countdown.
func (c *Countdown) SetOnTimeout(fn func()) {
	c.mu.Lock()
	c.onTimeout = fn
	c.mu.Unlock()
}

// Pause suspends counting.
func (c *Countdown) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume continues counting from the paused value.
func (c *Countdown) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Paused reports whether the countdown is paused.
func (c *Countdown) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Duration returns the seconds the current countdown started from.
func (c *Countdown) Duration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Expired reports whether the current countdown reached zero.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Stop releases the ticker. No callback starts after Stop returns; one that already
// started may still be running. It is safe to call from inside a callback.
func (c *Countdown) Stop() {
	c.halt()
}

func (c *Countdown) halt() {
	c.mu.Lock()
	g := c.gen
	if g == nil || g.stopped {
		c.mu.Unlock()
		return
	}
	g.stopped = true
	close(g.stop)
	calling := g.calling
	c.mu.Unlock()

	// A running callback may be the caller; waiting on it would deadlock. The loop
	// checks stopped before every callback, so nothing new starts.
	if !calling {
		<-g.done
	}
}

func (c *Countdown) run(ticker Ticker, g *generation) {
	defer close(g.done)
	defer ticker.Stop()
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C():
			if c.tick(g) {
				return
			}
		}
	}
}

// tick counts one interval and reports whether the countdown has finished.
func (c *Countdown) tick(g *generation) bool {
	c.mu.Lock()
	if g.stopped || c.fired {
		c.mu.Unlock()
		return true
	}
	if c.paused {
		c.mu.Unlock()
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	remaining := c.remaining
	onTick := c.onTick
	if remaining > 0 {
		c.mu.Unlock()
		if onTick != nil {
			return !c.call(g, func() { onTick(remaining) })
		}
		return false
	}
	c.fired = true
	c.mu.Unlock()

	if onTick != nil && !c.call(g, func() { onTick(0) }) {
		return true
	}
	c.mu.Lock()
	onTimeout := c.onTimeout
	c.mu.Unlock()
	if onTimeout != nil {
		c.call(g, onTimeout)
	}
	return true
}

// call runs fn unless g was stopped and reports whether g is still live afterwards.
func (c *Countdown) call(g *generation, fn func()) bool {
	c.mu.Lock()
	if g.stopped {
		c.mu.Unlock()
		return false
	}
	g.calling = true
	c.mu.Unlock()

	fn()

	c.mu.Lock()
	defer c.mu.Unlock()
	g.calling = false
	return !g.stopped
}

package animate

import (
	"math"
	"sync"
	"time"

	"github.com/rickgao/aviarycare/internal/clock"
)

// Default animation parameters.
const (
	DefaultSteps         = 30
	DefaultDuration      = 1000 * time.Millisecond
	DefaultSnapThreshold = 0.1
)

// Config holds animation parameters.
type Config struct {
	Steps         int           // Ticks per animation (default: 30)
	Duration      time.Duration // Total animation time (default: 1s)
	SnapThreshold float64       // Gaps below this snap without animating (default: 0.1)
}

// DefaultConfig returns the standard card animation.
func DefaultConfig() Config {
	return Config{
		Steps:         DefaultSteps,
		Duration:      DefaultDuration,
		SnapThreshold: DefaultSnapThreshold,
	}
}

// Interval returns the time between animation ticks.
func (c Config) Interval() time.Duration {
	return c.Duration / time.Duration(c.Steps)
}

// Option configures a Counter.
type Option func(*Counter)

// WithClock sets the clock used for animation tickers.
func WithClock(clk clock.Clock) Option {
	return func(c *Counter) {
		c.clk = clk
	}
}

// WithFrameHook registers a callback invoked with the displayed value after
// every animation tick. It runs on the animation goroutine without the
// counter's lock held.
func WithFrameHook(fn func(float64)) Option {
	return func(c *Counter) {
		c.onFrame = fn
	}
}

// Counter is a displayed number that animates toward its target.
// The zero displayed value is 0; the first SetTarget animates up from there.
type Counter struct {
	cfg     Config
	clk     clock.Clock
	onFrame func(float64)

	mu     sync.Mutex
	value  float64
	target int64
	paused bool
	closed bool
	run    *animation

	wg sync.WaitGroup
}

// animation is one in-flight run from start to target.
type animation struct {
	start  float64
	target int64
	stop   chan struct{}
}

// New creates a Counter displaying 0.
func New(cfg Config, opts ...Option) *Counter {
	if cfg.Steps < 1 {
		cfg.Steps = DefaultSteps
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.SnapThreshold <= 0 {
		cfg.SnapThreshold = DefaultSnapThreshold
	}

	c := &Counter{
		cfg: cfg,
		clk: clock.Real(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTarget points the counter at v, superseding any in-flight animation.
func (c *Counter) SetTarget(v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.target = v
	c.cancelLocked()
	if c.paused {
		return
	}
	c.startLocked()
}

// Pause freezes the displayed value. Target changes while paused are recorded
// but not animated.
func (c *Counter) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.paused {
		return
	}
	c.paused = true
	c.cancelLocked()
}

// Resume restarts the animation from the held value toward the current target.
func (c *Counter) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.paused {
		return
	}
	c.paused = false
	c.startLocked()
}

// Close cancels any in-flight animation and waits for its goroutine to exit.
// The counter ignores all further calls.
func (c *Counter) Close() {
	c.mu.Lock()
	c.closed = true
	c.cancelLocked()
	c.mu.Unlock()

	c.wg.Wait()
}

// Value returns the current displayed value.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Rounded returns the displayed value rounded to the nearest integer.
func (c *Counter) Rounded() int64 {
	return int64(math.Round(c.Value()))
}

// Target returns the value the counter is heading toward.
func (c *Counter) Target() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Animating reports whether an animation is in flight.
func (c *Counter) Animating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run != nil
}

// Paused reports whether the counter is paused.
func (c *Counter) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// startLocked snaps or launches an animation toward c.target.
// Must be called with mu held and no animation in flight.
func (c *Counter) startLocked() {
	gap := float64(c.target) - c.value
	if math.Abs(gap) < c.cfg.SnapThreshold {
		c.value = float64(c.target)
		return
	}

	a := &animation{
		start:  c.value,
		target: c.target,
		stop:   make(chan struct{}),
	}
	c.run = a

	ticker := c.clk.NewTicker(c.cfg.Interval())
	c.wg.Add(1)
	go c.animate(a, ticker)
}

// cancelLocked stops the in-flight animation, if any. Must be called with mu held.
func (c *Counter) cancelLocked() {
	if c.run != nil {
		close(c.run.stop)
		c.run = nil
	}
}

// animate drives one animation until it lands, is superseded, or is closed.
func (c *Counter) animate(a *animation, ticker clock.Ticker) {
	defer c.wg.Done()
	defer ticker.Stop()

	step := (float64(a.target) - a.start) / float64(c.cfg.Steps)

	for i := 1; ; i++ {
		select {
		case <-a.stop:
			return
		case <-ticker.C():
		}

		v, done, ok := c.advance(a, i, step)
		if !ok {
			return
		}
		if c.onFrame != nil {
			c.onFrame(v)
		}
		if done {
			return
		}
	}
}

// advance applies step i of a. ok is false if a was superseded.
func (c *Counter) advance(a *animation, i int, step float64) (v float64, done, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != a {
		return 0, true, false
	}

	target := float64(a.target)
	next := a.start + step*float64(i)

	crossed := (step > 0 && next >= target) || (step < 0 && next <= target)
	if crossed || i >= c.cfg.Steps {
		next = target
		done = true
		c.run = nil
	}

	c.value = next
	return next, done, true
}

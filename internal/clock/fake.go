package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock for tests.
//
// Unlike time.Ticker, a fake ticker never drops ticks: Advance blocks until
// each due tick is received by its reader or the ticker is stopped. One-shot
// callbacks run synchronously inside Advance.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	timers  []*fakeTimer
	created chan time.Duration
}

// NewFake returns a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{
		now:     start,
		created: make(chan time.Duration, 64),
	}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTicker registers a ticker with the given period.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker period")
	}
	f.mu.Lock()
	t := &fakeTicker{
		period:  d,
		next:    f.now.Add(d),
		c:       make(chan time.Time),
		stopped: make(chan struct{}),
	}
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()

	select {
	case f.created <- d:
	default:
	}
	return t
}

// AfterFunc registers a one-shot callback.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{at: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// TickerCreated returns a channel reporting the period of each ticker as it is
// created. Tests use it to wait for a goroutine to arm its ticker.
func (f *Fake) TickerCreated() <-chan time.Duration {
	return f.created
}

// ActiveTickers returns the number of tickers that have not been stopped.
func (f *Fake) ActiveTickers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

// PendingTimers returns the number of one-shot timers that have neither fired
// nor been stopped.
func (f *Fake) PendingTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if t.pending() {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, delivering every tick and firing every
// timer that falls due, in time order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	end := f.now.Add(d)
	f.mu.Unlock()

	for f.step(end) {
	}

	f.mu.Lock()
	f.now = end
	f.mu.Unlock()
}

// step runs the earliest tick or timer due at or before end. Ties go to
// tickers, then to registration order.
func (f *Fake) step(end time.Time) bool {
	f.mu.Lock()
	var (
		tk    *fakeTicker
		tm    *fakeTimer
		at    time.Time
		found bool
	)
	for _, t := range f.tickers {
		if t.isStopped() || t.next.After(end) {
			continue
		}
		if !found || t.next.Before(at) {
			tk, tm, at, found = t, nil, t.next, true
		}
	}
	for _, t := range f.timers {
		if !t.pending() || t.at.After(end) {
			continue
		}
		if !found || t.at.Before(at) {
			tk, tm, at, found = nil, t, t.at, true
		}
	}
	if !found {
		f.mu.Unlock()
		return false
	}
	f.now = at
	if tk != nil {
		tk.next = tk.next.Add(tk.period)
	}
	f.mu.Unlock()

	if tk != nil {
		tk.deliver(at)
		return true
	}
	if tm.fire() {
		tm.fn()
	}
	return true
}

type fakeTicker struct {
	period time.Duration
	next   time.Time
	c      chan time.Time

	stopOnce sync.Once
	stopped  chan struct{}
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

func (t *fakeTicker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

// deliver blocks until the tick is read or the ticker is stopped.
func (t *fakeTicker) deliver(at time.Time) {
	select {
	case t.c <- at:
	case <-t.stopped:
	}
}

type fakeTimer struct {
	mu      sync.Mutex
	at      time.Time
	fn      func()
	fired   bool
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (t *fakeTimer) fire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.fired = true
	return true
}

func (t *fakeTimer) pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.fired && !t.stopped
}

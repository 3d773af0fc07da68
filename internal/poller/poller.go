package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/aviarycare/internal/clock"
)

// Fetcher retrieves one observation of a metric.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Handler receives the outcome of each fetch.
type Handler[T any] interface {
	HandleResult(value T)
	HandleError(err error)
}

// HandlerFuncs adapts a pair of functions to Handler. Either may be nil.
type HandlerFuncs[T any] struct {
	OnResult func(T)
	OnError  func(error)
}

func (h HandlerFuncs[T]) HandleResult(v T) {
	if h.OnResult != nil {
		h.OnResult(v)
	}
}

func (h HandlerFuncs[T]) HandleError(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Config holds poller configuration.
type Config struct {
	Name     string        // Metric name used in logs
	Interval time.Duration // Poll interval
	Timeout  time.Duration // Per-fetch timeout (default: 10s)
}

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 10 * time.Second

// Stats contains runtime counters.
type Stats struct {
	Fetches   int64
	Errors    int64
	Refreshes int64
	Skipped   int64
}

// Poller periodically fetches one metric.
type Poller[T any] struct {
	cfg     Config
	fetch   Fetcher[T]
	handler Handler[T]
	clk     clock.Clock
	logger  *slog.Logger

	refresh chan struct{}
	paused  atomic.Bool

	mu      sync.Mutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	fetches   atomic.Int64
	errors    atomic.Int64
	refreshes atomic.Int64
	skipped   atomic.Int64
}

// New creates a new Poller. A nil clock uses the real clock.
func New[T any](cfg Config, fetch Fetcher[T], handler Handler[T], clk clock.Clock, logger *slog.Logger) *Poller[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.Real()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Poller[T]{
		cfg:     cfg,
		fetch:   fetch,
		handler: handler,
		clk:     clk,
		logger:  logger.With("metric", cfg.Name),
		refresh: make(chan struct{}, 1),
	}
}

// Start begins the polling loop. The first fetch runs immediately.
func (p *Poller[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)

	ticker := p.clk.NewTicker(p.cfg.Interval)
	p.wg.Add(1)
	go p.run(ticker)

	p.logger.Info("metric poller started", "interval", p.cfg.Interval)
	return nil
}

// Stop cancels the loop and waits for an in-flight fetch to return.
func (p *Poller[T]) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("metric poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh requests an immediate off-schedule fetch. Requests made while a
// fetch is in flight coalesce into one follow-up fetch. Calls before Start or
// after Stop are no-ops. Never blocks.
func (p *Poller[T]) Refresh() {
	p.mu.Lock()
	live := p.started && !p.stopped
	p.mu.Unlock()
	if !live {
		return
	}

	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// SetPaused pauses or resumes scheduled fetches. Manual refreshes still run.
func (p *Poller[T]) SetPaused(paused bool) {
	if p.paused.Swap(paused) != paused {
		p.logger.Debug("metric poller pause changed", "paused", paused)
	}
}

// Paused reports whether scheduled fetches are paused.
func (p *Poller[T]) Paused() bool {
	return p.paused.Load()
}

// Interval returns the configured poll interval.
func (p *Poller[T]) Interval() time.Duration {
	return p.cfg.Interval
}

// Stats returns current counters.
func (p *Poller[T]) Stats() Stats {
	return Stats{
		Fetches:   p.fetches.Load(),
		Errors:    p.errors.Load(),
		Refreshes: p.refreshes.Load(),
		Skipped:   p.skipped.Load(),
	}
}

// run is the main polling loop.
func (p *Poller[T]) run(ticker clock.Ticker) {
	defer p.wg.Done()
	defer ticker.Stop()

	// Poll immediately on start.
	p.poll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C():
			if p.paused.Load() {
				p.skipped.Add(1)
				continue
			}
			p.poll()
		case <-p.refresh:
			p.refreshes.Add(1)
			p.poll()
		}
	}
}

// poll performs one fetch and dispatches the outcome.
func (p *Poller[T]) poll() {
	if p.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	start := p.clk.Now()
	v, err := p.fetch(ctx)
	p.fetches.Add(1)

	// A fetch cut short by Stop is not reported.
	if p.ctx.Err() != nil {
		return
	}

	if err != nil {
		p.errors.Add(1)
		p.logger.Warn("metric fetch failed", "err", err)
		if p.handler != nil {
			p.handler.HandleError(err)
		}
		return
	}

	p.logger.Debug("metric fetched", "duration", p.clk.Now().Sub(start))
	if p.handler != nil {
		p.handler.HandleResult(v)
	}
}

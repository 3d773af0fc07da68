package livemetrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rickgao/aviarycare/internal/animate"
	"github.com/rickgao/aviarycare/internal/clock"
	"github.com/rickgao/aviarycare/internal/hooks"
	"github.com/rickgao/aviarycare/internal/model"
	"github.com/rickgao/aviarycare/internal/poller"
)

// ErrStopped is returned when Start is called on a stopped widget.
var ErrStopped = errors.New("widget stopped")

// Source fetches the two metrics. *api.Client satisfies it.
type Source interface {
	GetActiveUsers(ctx context.Context) (model.ActiveUsers, error)
	GetActiveSubscriptions(ctx context.Context) (model.ActiveSubscriptions, error)
}

// Recorder observes widget activity. *metrics.Prom satisfies it.
type Recorder interface {
	FetchSucceeded(key model.MetricKey, value int64)
	FetchFailed(key model.MetricKey)
	RefreshTriggered()
	Pulsed()
}

// Option configures a Widget.
type Option func(*Widget)

// WithClock sets the clock for polling, animation and pulse timers.
func WithClock(clk clock.Clock) Option {
	return func(w *Widget) {
		w.clk = clk
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Widget) {
		w.logger = logger
	}
}

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) Option {
	return func(w *Widget) {
		w.rec = r
	}
}

// Widget is the live metrics display.
type Widget struct {
	cfg     Config
	src     Source
	bus     *hooks.Bus
	clk     clock.Clock
	logger  *slog.Logger
	rec     Recorder
	printer *message.Printer

	usersPoller *poller.Poller[model.ActiveUsers]
	subsPoller  *poller.Poller[model.ActiveSubscriptions]
	users       *animate.Counter
	subs        *animate.Counter

	mu          sync.Mutex
	started     bool
	stopped     bool
	reg         hooks.Registration
	lastUsers   *model.ActiveUsers
	lastSubs    *model.ActiveSubscriptions
	pulsing     bool
	pulseGen    uint64
	pulseTimer  clock.Timer
	visible     bool
	hovered     bool
	subscribers map[uuid.UUID]chan model.Snapshot
}

// New creates a Widget. The bus may be shared with other components; the
// widget registers its refresh hook on it between Start and Stop.
func New(cfg Config, src Source, bus *hooks.Bus, opts ...Option) *Widget {
	w := &Widget{
		cfg:         cfg.withDefaults(),
		src:         src,
		bus:         bus,
		clk:         clock.Real(),
		logger:      slog.Default(),
		rec:         nopRecorder{},
		visible:     true,
		subscribers: make(map[uuid.UUID]chan model.Snapshot),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.bus == nil {
		w.bus = hooks.NewBus(w.logger)
	}

	tag, err := language.Parse(w.cfg.Locale)
	if err != nil {
		w.logger.Warn("unknown locale, using English", "locale", w.cfg.Locale, "err", err)
		tag = language.English
	}
	w.printer = message.NewPrinter(tag)

	frame := func(float64) { w.publish() }
	w.users = animate.New(w.cfg.Animation, animate.WithClock(w.clk), animate.WithFrameHook(frame))
	w.subs = animate.New(w.cfg.Animation, animate.WithClock(w.clk), animate.WithFrameHook(frame))

	w.usersPoller = poller.New(
		poller.Config{
			Name:     string(model.ActiveUsersKey),
			Interval: w.cfg.UsersInterval,
			Timeout:  w.cfg.FetchTimeout,
		},
		src.GetActiveUsers,
		poller.HandlerFuncs[model.ActiveUsers]{
			OnResult: w.handleUsers,
			OnError:  func(error) { w.rec.FetchFailed(model.ActiveUsersKey) },
		},
		w.clk,
		w.logger,
	)
	w.subsPoller = poller.New(
		poller.Config{
			Name:     string(model.ActiveSubscriptionsKey),
			Interval: w.cfg.SubscriptionsInterval,
			Timeout:  w.cfg.FetchTimeout,
		},
		src.GetActiveSubscriptions,
		poller.HandlerFuncs[model.ActiveSubscriptions]{
			OnResult: w.handleSubscriptions,
			OnError:  func(error) { w.rec.FetchFailed(model.ActiveSubscriptionsKey) },
		},
		w.clk,
		w.logger,
	)

	return w
}

// Start shows the fallback values, registers the refresh hook and begins
// polling both metrics.
func (w *Widget) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrStopped
	}
	if w.started {
		w.mu.Unlock()
		return poller.ErrAlreadyStarted
	}
	w.started = true
	w.reg = w.bus.Register(hooks.RefetchActiveSubscriptions, w.RefetchActiveSubscriptions)
	w.mu.Unlock()

	w.users.SetTarget(w.cfg.FallbackUsers)
	w.subs.SetTarget(w.cfg.FallbackSubscriptions)

	if err := w.usersPoller.Start(ctx); err != nil {
		return err
	}
	if err := w.subsPoller.Start(ctx); err != nil {
		return err
	}

	w.logger.Info("live metrics widget started",
		"users_interval", w.cfg.UsersInterval,
		"subscriptions_interval", w.cfg.SubscriptionsInterval,
	)
	return nil
}

// Stop unregisters the refresh hook, cancels every poll, animation and pulse
// timer, and closes subscriber channels. Calls after the first are no-ops.
func (w *Widget) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.reg.Unregister()
	if w.pulseTimer != nil {
		w.pulseTimer.Stop()
		w.pulseTimer = nil
	}
	w.pulsing = false
	for id, ch := range w.subscribers {
		close(ch)
		delete(w.subscribers, id)
	}
	w.mu.Unlock()

	err := errors.Join(
		w.usersPoller.Stop(ctx),
		w.subsPoller.Stop(ctx),
	)

	w.users.Close()
	w.subs.Close()

	w.logger.Info("live metrics widget stopped")
	return err
}

// RefetchActiveSubscriptions fetches the subscriptions metric now instead of
// waiting for the next poll. No-op before Start and after Stop.
func (w *Widget) RefetchActiveSubscriptions() {
	w.mu.Lock()
	live := w.started && !w.stopped
	w.mu.Unlock()
	if !live {
		return
	}

	w.rec.RefreshTriggered()
	w.subsPoller.Refresh()
}

// SetVisible reports page visibility. While hidden, scheduled polls are
// skipped; becoming visible again refreshes both metrics immediately.
func (w *Widget) SetVisible(visible bool) {
	w.mu.Lock()
	if w.stopped || w.visible == visible {
		w.mu.Unlock()
		return
	}
	w.visible = visible
	w.mu.Unlock()

	w.usersPoller.SetPaused(!visible)
	w.subsPoller.SetPaused(!visible)
	if visible {
		w.usersPoller.Refresh()
		w.subsPoller.Refresh()
	}
	w.publish()
}

// SetHovered freezes both counters while the pointer is over the widget.
// Ignored before Start so the fallbacks still animate in.
func (w *Widget) SetHovered(hovered bool) {
	w.mu.Lock()
	if !w.started || w.stopped || w.hovered == hovered {
		w.mu.Unlock()
		return
	}
	w.hovered = hovered
	w.mu.Unlock()

	if hovered {
		w.users.Pause()
		w.subs.Pause()
	} else {
		w.users.Resume()
		w.subs.Resume()
	}
	w.publish()
}

// Snapshot returns the current rendered state of both cards.
func (w *Widget) Snapshot() model.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// DisplayState returns the animation state of one card.
func (w *Widget) DisplayState(key model.MetricKey) model.DisplayState {
	w.mu.Lock()
	defer w.mu.Unlock()

	if key == model.ActiveSubscriptionsKey {
		return model.DisplayState{
			Displayed: w.subs.Value(),
			Target:    w.subs.Target(),
			Pulsing:   w.pulsing,
		}
	}
	return model.DisplayState{
		Displayed: w.users.Value(),
		Target:    w.users.Target(),
	}
}

// Subscribe returns a channel of snapshots, starting with the current one.
// A slow reader only sees the latest snapshot. The channel is closed by the
// returned cancel func or by Stop.
func (w *Widget) Subscribe() (<-chan model.Snapshot, func()) {
	ch := make(chan model.Snapshot, 1)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		close(ch)
		return ch, func() {}
	}

	id := uuid.New()
	w.subscribers[id] = ch
	ch <- w.snapshotLocked()

	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if c, ok := w.subscribers[id]; ok {
			close(c)
			delete(w.subscribers, id)
		}
	}
	return ch, cancel
}

// handleUsers applies a fetched active users value.
func (w *Widget) handleUsers(v model.ActiveUsers) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.lastUsers = &v
	w.mu.Unlock()

	w.rec.FetchSucceeded(model.ActiveUsersKey, v.Value)
	w.users.SetTarget(v.Value)
	w.publish()
}

// handleSubscriptions applies a fetched subscriptions value, pulsing the card
// if it differs from the value currently targeted.
func (w *Widget) handleSubscriptions(v model.ActiveSubscriptions) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	prev := w.cfg.FallbackSubscriptions
	if w.lastSubs != nil {
		prev = w.lastSubs.Value
	}
	w.lastSubs = &v
	changed := v.Value != prev
	if changed {
		w.startPulseLocked()
	}
	w.mu.Unlock()

	w.rec.FetchSucceeded(model.ActiveSubscriptionsKey, v.Value)
	if changed {
		w.rec.Pulsed()
		w.logger.Debug("active subscriptions changed", "from", prev, "to", v.Value)
	}
	w.subs.SetTarget(v.Value)
	w.publish()
}

// startPulseLocked (re)starts the pulse window. Must be called with mu held.
func (w *Widget) startPulseLocked() {
	if w.pulseTimer != nil {
		w.pulseTimer.Stop()
	}
	w.pulseGen++
	gen := w.pulseGen
	w.pulsing = true
	w.pulseTimer = w.clk.AfterFunc(w.cfg.PulseDuration, func() { w.endPulse(gen) })
}

// endPulse clears the pulse unless a newer one has started.
func (w *Widget) endPulse(gen uint64) {
	w.mu.Lock()
	if w.stopped || gen != w.pulseGen {
		w.mu.Unlock()
		return
	}
	w.pulsing = false
	w.pulseTimer = nil
	w.mu.Unlock()

	w.publish()
}

// publish fans the current snapshot out to subscribers without blocking.
func (w *Widget) publish() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped || len(w.subscribers) == 0 {
		return
	}

	s := w.snapshotLocked()
	for _, ch := range w.subscribers {
		select {
		case ch <- s:
		default:
			// Replace the unread snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// snapshotLocked builds the rendered state. Must be called with mu held.
func (w *Widget) snapshotLocked() model.Snapshot {
	usersSource := model.SourceFallback
	if w.lastUsers != nil {
		usersSource = model.SourceFetched
	}
	subsSource := model.SourceFallback
	if w.lastSubs != nil {
		subsSource = model.SourceFetched
	}

	return model.Snapshot{
		ActiveUsers:         w.card(model.ActiveUsersKey, w.cfg.UsersCard, w.users, false, usersSource),
		ActiveSubscriptions: w.card(model.ActiveSubscriptionsKey, w.cfg.SubscriptionsCard, w.subs, w.pulsing, subsSource),
		Visible:             w.visible,
		Hovered:             w.hovered,
		At:                  w.clk.Now().UTC(),
	}
}

func (w *Widget) card(key model.MetricKey, text CardText, c *animate.Counter, pulsing bool, source string) model.Card {
	displayed := c.Rounded()
	return model.Card{
		Key:       key,
		Label:     text.Label,
		Subtext:   text.Subtext,
		Displayed: displayed,
		Text:      w.printer.Sprintf("%d", displayed),
		Target:    c.Target(),
		Pulsing:   pulsing,
		Source:    source,
	}
}

type nopRecorder struct{}

func (nopRecorder) FetchSucceeded(model.MetricKey, int64) {}
func (nopRecorder) FetchFailed(model.MetricKey)           {}
func (nopRecorder) RefreshTriggered()                     {}
func (nopRecorder) Pulsed()                               {}

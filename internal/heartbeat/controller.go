// Package heartbeat reports client presence to the API on a fixed interval
// while a screen holds it, keeping at most one reporting cycle per process.
package heartbeat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultInterval      = 30 * time.Second
	DefaultDebounce      = 5 * time.Second
	DefaultSource        = "APP"
	defaultReportTimeout = 10 * time.Second

	// A missing marker counts as a report this long ago, which is always
	// outside the debounce window.
	missingMarkerAge = 60 * time.Second
)

// Reporter delivers one presence report.
type Reporter interface {
	Capture(ctx context.Context, source string) error
}

type ReporterFunc func(ctx context.Context, source string) error

func (f ReporterFunc) Capture(ctx context.Context, source string) error {
	return f(ctx, source)
}

// MarkerStore persists the time of the last report attempt for the session.
type MarkerStore interface {
	LastReport(ctx context.Context) (time.Time, bool, error)
	SetLastReport(ctx context.Context, at time.Time) error
}

type Trigger string

const (
	TriggerImmediate Trigger = "immediate"
	TriggerTimer     Trigger = "timer"
)

type Outcome string

const (
	OutcomeDelivered       Outcome = "delivered"
	OutcomeFailed          Outcome = "failed"
	OutcomeSkippedDebounce Outcome = "skipped_debounce"
	OutcomeSkippedActive   Outcome = "skipped_active"
)

type Event struct {
	Trigger Trigger
	Outcome Outcome
	Err     error
}

type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

type Controller struct {
	reporter      Reporter
	marker        MarkerStore
	scheduler     Scheduler
	now           func() time.Time
	interval      time.Duration
	debounce      time.Duration
	reportTimeout time.Duration
	source        string
	observer      func(Event)

	active   atomic.Bool
	seq      atomic.Uint64
	inflight sync.WaitGroup

	mu      sync.Mutex
	current *Handle
}

type Option func(*Controller)

func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

func WithSource(source string) Option {
	return func(c *Controller) {
		if s := strings.TrimSpace(source); s != "" {
			c.source = s
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

func WithReportTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.reportTimeout = d
		}
	}
}

// WithObserver registers fn to receive every report outcome.
func WithObserver(fn func(Event)) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

func New(reporter Reporter, marker MarkerStore, opts ...Option) (*Controller, error) {
	if reporter == nil {
		return nil, errors.New("heartbeat reporter is required")
	}
	if marker == nil {
		return nil, errors.New("heartbeat marker store is required")
	}
	c := &Controller{
		reporter:      reporter,
		marker:        marker,
		now:           time.Now,
		interval:      DefaultInterval,
		debounce:      DefaultDebounce,
		reportTimeout: defaultReportTimeout,
		source:        DefaultSource,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.scheduler == nil {
		c.scheduler = NewCronScheduler()
	}
	return c, nil
}

func (c *Controller) Active() bool {
	return c.active.Load()
}

func (c *Controller) State() State {
	if c.active.Load() {
		return Running
	}
	return Idle
}

// Start begins a reporting cycle owned by the returned handle. When a cycle is
// already running the call changes nothing and the handle it returns does not
// own a cycle; stopping it is a no-op. ctx bounds the reports the cycle sends.
func (c *Controller) Start(ctx context.Context) (*Handle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !c.active.CompareAndSwap(false, true) {
		log.Printf("event=heartbeat_start_skipped reason=already_active source=%s", c.source)
		c.observe(Event{Trigger: TriggerImmediate, Outcome: OutcomeSkippedActive})
		return &Handle{}, nil
	}

	h := &Handle{c: c, ctx: ctx, id: c.seq.Add(1), owner: true}
	stop, err := c.scheduler.Every(c.interval, func() { c.tick(h) })
	if err != nil {
		c.active.Store(false)
		log.Printf("event=heartbeat_start_failed cycle=%d err=%v", h.id, err)
		return nil, err
	}
	h.mu.Lock()
	h.stop = stop
	h.mu.Unlock()

	c.mu.Lock()
	c.current = h
	c.mu.Unlock()
	log.Printf("event=heartbeat_started cycle=%d interval=%s debounce=%s source=%s", h.id, c.interval, c.debounce, c.source)

	c.reportImmediate(h)
	return h, nil
}

// Stop cancels the running cycle, if any, whoever started it.
func (c *Controller) Stop() {
	c.mu.Lock()
	h := c.current
	c.mu.Unlock()
	h.Stop()
}

// Wait blocks until reports already sent have finished or ctx is done.
// When ctx ends first, a helper goroutine stays parked until those reports
// return; each is bounded by the report timeout.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) reportImmediate(h *Handle) {
	now := c.now()
	elapsed := missingMarkerAge
	last, ok, err := c.marker.LastReport(h.ctx)
	if err != nil {
		log.Printf("event=heartbeat_marker_read_failed cycle=%d err=%v", h.id, err)
	}
	if err == nil && ok {
		elapsed = now.Sub(last)
	}
	if elapsed < c.debounce {
		log.Printf("event=heartbeat_immediate_skipped cycle=%d reason=debounce since_last_ms=%d", h.id, elapsed.Milliseconds())
		c.observe(Event{Trigger: TriggerImmediate, Outcome: OutcomeSkippedDebounce})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	c.send(h, TriggerImmediate, now)
}

func (c *Controller) tick(h *Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	log.Printf("event=heartbeat_tick cycle=%d", h.id)
	c.send(h, TriggerTimer, c.now())
}

// send records the marker and fires the report without waiting for it.
// Callers hold h.mu, so a stopped handle never starts a report.
func (c *Controller) send(h *Handle, trigger Trigger, now time.Time) {
	if err := c.marker.SetLastReport(h.ctx, now); err != nil {
		log.Printf("event=heartbeat_marker_write_failed cycle=%d err=%v", h.id, err)
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		started := time.Now()
		ctx, cancel := context.WithTimeout(h.ctx, c.reportTimeout)
		defer cancel()

		if err := c.reporter.Capture(ctx, c.source); err != nil {
			log.Printf("event=heartbeat_report_failed cycle=%d trigger=%s latency_ms=%d err=%v", h.id, trigger, time.Since(started).Milliseconds(), err)
			c.observe(Event{Trigger: trigger, Outcome: OutcomeFailed, Err: err})
			return
		}
		log.Printf("event=heartbeat_report_completed cycle=%d trigger=%s latency_ms=%d", h.id, trigger, time.Since(started).Milliseconds())
		c.observe(Event{Trigger: trigger, Outcome: OutcomeDelivered})
	}()
}

func (c *Controller) observe(e Event) {
	if c.observer != nil {
		c.observer(e)
	}
}

// Handle is one caller's claim on the controller.
type Handle struct {
	c     *Controller
	ctx   context.Context
	id    uint64
	owner bool

	mu      sync.Mutex
	stop    func()
	stopped bool
}

// Owner reports whether this handle started the running cycle.
func (h *Handle) Owner() bool {
	return h != nil && h.owner
}

// Stop cancels the cycle owned by h. It is safe to call more than once and on
// handles that own nothing. A report already in flight is left to finish.
func (h *Handle) Stop() {
	if h == nil || !h.owner {
		return
	}
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	stop := h.stop
	h.stop = nil
	h.mu.Unlock()

	if stop != nil {
		stop()
	}

	c := h.c
	c.mu.Lock()
	if c.current == h {
		c.current = nil
	}
	c.mu.Unlock()
	c.active.Store(false)
	log.Printf("event=heartbeat_stopped cycle=%d", h.id)
}

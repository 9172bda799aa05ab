// Package scheduler drives periodic and on-demand re-synchronization
// with single-flight de-duplication: concurrent triggers share one
// underlying refresh and receive the same outcome.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

var ErrRefreshTimeout = errors.New("scheduler: refresh timed out")

// Outcome is the result of one refresh attempt, shared by every caller
// that coalesced into it.
type Outcome struct {
	Err       error         `json:"-"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Coalesced bool          `json:"coalesced"`
}

func (o Outcome) Success() bool { return o.Err == nil }

// RefreshFunc performs one synchronization pass against the upstream
// providers. It must honor ctx cancellation.
type RefreshFunc func(ctx context.Context) error

type Scheduler struct {
	refresh RefreshFunc
	timeout time.Duration
	logger  internal.Logger

	mu       sync.Mutex
	inflight *call
	ticker   *time.Ticker
	tickStop chan struct{}

	cancelled atomic.Bool
	failures  atomic.Uint64
}

// call is one in-flight refresh; waiters block on done.
type call struct {
	done    chan struct{}
	outcome Outcome
}

type Option func(*Scheduler)

func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

func WithLogger(l internal.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func New(refresh RefreshFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		refresh: refresh,
		timeout: 10 * time.Second,
		logger:  internal.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SchedulePeriodic starts (or restarts) the periodic tick. Each tick is
// a plain RefreshNow, so a tick landing during a user-triggered refresh
// coalesces into it instead of starting a second one.
func (s *Scheduler) SchedulePeriodic(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled.Load() {
		return
	}
	s.stopTickerLocked()
	s.ticker = time.NewTicker(interval)
	s.tickStop = make(chan struct{})
	go s.tickLoop(s.ticker, s.tickStop)
}

func (s *Scheduler) tickLoop(ticker *time.Ticker, stop chan struct{}) {
	for {
		select {
		case <-ticker.C:
			out := s.RefreshNow(context.Background())
			if !out.Success() {
				s.logger.Warnf("scheduler: periodic refresh failed: %v", out.Err)
			}
		case <-stop:
			return
		}
	}
}

// RefreshNow runs a refresh, or joins the one already in flight. All
// coalesced callers receive the in-flight attempt's outcome; the joiners
// are marked Coalesced.
func (s *Scheduler) RefreshNow(ctx context.Context) Outcome {
	s.mu.Lock()
	if c := s.inflight; c != nil {
		s.mu.Unlock()
		select {
		case <-c.done:
			out := c.outcome
			out.Coalesced = true
			return out
		case <-ctx.Done():
			return Outcome{Err: ctx.Err(), Coalesced: true}
		}
	}
	c := &call{done: make(chan struct{})}
	s.inflight = c
	s.mu.Unlock()

	c.outcome = s.run(ctx)

	s.mu.Lock()
	s.inflight = nil
	s.mu.Unlock()
	close(c.done)

	if !c.outcome.Success() {
		s.failures.Add(1)
	}
	return c.outcome
}

func (s *Scheduler) run(ctx context.Context) Outcome {
	start := time.Now()
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.refresh(rctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = ErrRefreshTimeout
	}
	out := Outcome{Err: err, StartedAt: start, Duration: time.Since(start)}
	if s.cancelled.Load() {
		// Cancelled mid-flight: the attempt finished but its result is
		// discarded; callers see the cancellation, not a stale success.
		out.Err = context.Canceled
	}
	if out.Err != nil {
		s.logger.Debugf("scheduler: refresh failed after %s: %v", out.Duration, out.Err)
	}
	return out
}

// Failures returns the count of failed refresh attempts since startup.
// Failures never shorten the refresh period; they are only counted.
func (s *Scheduler) Failures() uint64 { return s.failures.Load() }

// Cancel stops future periodic ticks. An in-flight refresh runs to
// completion but its outcome is discarded and the period is not re-armed.
func (s *Scheduler) Cancel() {
	s.cancelled.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTickerLocked()
}

func (s *Scheduler) stopTickerLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.tickStop != nil {
		close(s.tickStop)
		s.tickStop = nil
	}
}

// Package emitter rate-limits snapshot notifications so subscribers see
// at most one emission per interval, always the latest value.
package emitter

import (
	"errors"
	"sync"
	"time"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

var ErrClosed = errors.New("emitter: closed")

// Emitter coalesces bursts of snapshot updates. A single pending slot
// plus a re-armable timer, guarded by one mutex; there is never a queue,
// intermediate snapshots are simply dropped.
type Emitter struct {
	interval time.Duration
	logger   internal.Logger

	mu          sync.Mutex
	subscribers map[int]chan internal.DailyMetricSnapshot
	nextSubID   int
	pending     *internal.DailyMetricSnapshot
	timer       *time.Timer
	lastSent    time.Time
	lastAsOf    time.Time
	closed      bool
}

func New(interval time.Duration, logger internal.Logger) *Emitter {
	if interval <= 0 {
		interval = 150 * time.Millisecond
	}
	if logger == nil {
		logger = internal.NopLogger{}
	}
	return &Emitter{
		interval:    interval,
		logger:      logger,
		subscribers: make(map[int]chan internal.DailyMetricSnapshot),
	}
}

// Emit publishes a snapshot. If the interval since the last delivery has
// elapsed it goes out immediately; otherwise it replaces the pending
// slot and the timer delivers whatever is pending when it fires. A
// snapshot older (by AsOf) than one already delivered is dropped.
func (e *Emitter) Emit(snap internal.DailyMetricSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	asOf := snap.AsOf()
	if !asOf.IsZero() && asOf.Before(e.lastAsOf) {
		e.logger.Debugf("emitter: dropping stale snapshot as_of=%s", asOf)
		return
	}

	now := time.Now()
	if since := now.Sub(e.lastSent); since >= e.interval {
		// This snapshot supersedes anything still buffered; a timer
		// callback that lost the lock race must not deliver it later.
		e.pending = nil
		if e.timer != nil {
			e.timer.Stop()
		}
		e.deliverLocked(snap, now)
		return
	}
	e.pending = &snap
	remaining := e.interval - now.Sub(e.lastSent)
	if e.timer == nil {
		e.timer = time.AfterFunc(remaining, e.flush)
	} else {
		e.timer.Reset(remaining)
	}
}

// flush delivers the pending snapshot, if any, when the timer fires.
// A pending snapshot already superseded by a delivered one is dropped.
func (e *Emitter) flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.pending == nil {
		return
	}
	snap := *e.pending
	e.pending = nil
	if asOf := snap.AsOf(); !asOf.IsZero() && asOf.Before(e.lastAsOf) {
		return
	}
	e.deliverLocked(snap, time.Now())
}

func (e *Emitter) deliverLocked(snap internal.DailyMetricSnapshot, now time.Time) {
	e.lastSent = now
	if asOf := snap.AsOf(); asOf.After(e.lastAsOf) {
		e.lastAsOf = asOf
	}
	for _, ch := range e.subscribers {
		// Latest-wins per subscriber: a slow reader loses the older
		// buffered snapshot, never blocks the emit path.
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel func removes
// only this subscription; other subscribers and the emitter itself are
// unaffected.
func (e *Emitter) Subscribe() (<-chan internal.DailyMetricSnapshot, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan internal.DailyMetricSnapshot, 1)
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subscribers[id]; ok {
			delete(e.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close stops the timer, drops any pending snapshot and closes all
// subscriber channels. Emit becomes a no-op.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
	}
	e.pending = nil
	for id, ch := range e.subscribers {
		delete(e.subscribers, id)
		close(ch)
	}
}

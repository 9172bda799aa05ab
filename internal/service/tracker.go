// Package service composes the reconciliation pipeline: source adapters
// feed the slot table, the aggregator builds the daily snapshot, the
// debounced emitter publishes it, and the streak engine folds it into
// streak state. One Tracker per authenticated user.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/emitter"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/reconcile"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/scheduler"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/source"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/storage"
	"github.com/SISIR-REDDY/calorie-vita-sub004/internal/streak"
)

// Options wires a Tracker. Cache and Live may be nil when that upstream
// is unavailable; the pipeline degrades to the remaining sources.
type Options struct {
	User   internal.User
	Logger internal.Logger

	Cache source.CacheProvider
	Live  source.LiveProvider

	Snapshots storage.SnapshotRepository
	Goals     storage.GoalRepository

	Location         *time.Location
	DebounceInterval time.Duration
	RefreshInterval  time.Duration
	RefreshTimeout   time.Duration
	ZeroGuardWindow  time.Duration

	// Now overrides the clock; tests pin the day boundary with it.
	Now func() time.Time
}

type Tracker struct {
	user   internal.User
	loc    *time.Location
	logger internal.Logger
	now    func() time.Time

	table   *reconcile.Table
	emitter *emitter.Emitter
	streaks *streak.Engine
	sched   *scheduler.Scheduler

	cache    source.CacheProvider
	live     source.LiveProvider
	snapRepo storage.SnapshotRepository
	goalRepo storage.GoalRepository

	mu        sync.Mutex
	today     internal.Day
	goals     map[internal.MetricKind]float64
	yesterday *internal.DailyMetricSnapshot
	closed    bool
}

// NewTracker builds the pipeline for one user: loads goal targets and
// snapshot history, seeds today's slots from the persisted store and the
// cache, and starts the periodic refresh.
func NewTracker(ctx context.Context, opts Options) (*Tracker, error) {
	if opts.Snapshots == nil || opts.Goals == nil {
		return nil, fmt.Errorf("service: snapshot and goal repositories are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = internal.NopLogger{}
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	t := &Tracker{
		user:   opts.User,
		loc:    loc,
		logger: logger,
		now:    now,
		table: reconcile.NewTable(reconcile.Options{
			Location:    loc,
			GuardWindow: opts.ZeroGuardWindow,
		}),
		emitter:  emitter.New(opts.DebounceInterval, logger),
		streaks:  streak.New(opts.User.ID, loc, logger),
		cache:    opts.Cache,
		live:     opts.Live,
		snapRepo: opts.Snapshots,
		goalRepo: opts.Goals,
		goals:    make(map[internal.MetricKind]float64),
	}
	t.today = internal.DayOf(now(), loc)

	targets, err := t.goalRepo.GetGoalTargets(ctx, t.user.ID)
	if err != nil {
		return nil, fmt.Errorf("service: load goal targets: %w", err)
	}
	t.goals = targets

	history, err := t.snapRepo.ListSnapshots(ctx, t.user.ID)
	if err != nil {
		return nil, fmt.Errorf("service: load snapshot history: %w", err)
	}
	t.streaks.Load(history)

	// Seed today's slots: persisted record first, then the local cache.
	// Both are absorbed silently when absent.
	seedNow := now()
	if stored, err := t.snapRepo.GetSnapshot(ctx, t.user.ID, t.today); err == nil {
		for _, r := range source.PersistedReadings(*stored, seedNow) {
			t.table.Put(r)
		}
	}
	if t.cache != nil {
		for _, r := range source.CacheReadings(t.cache, seedNow) {
			t.table.Put(r)
		}
	}

	t.sched = scheduler.New(t.refresh,
		scheduler.WithTimeout(opts.RefreshTimeout),
		scheduler.WithLogger(logger))
	if opts.RefreshInterval > 0 {
		t.sched.SchedulePeriodic(opts.RefreshInterval)
	}
	return t, nil
}

// Apply ingests one source reading: reconcile the metric, rebuild the
// snapshot, persist it, publish it, fold it into the streaks. Unchanged
// reconciled values emit nothing.
func (t *Tracker) Apply(r internal.SourceReading) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.rolloverLocked()
	_, changed := t.table.Put(r)
	if !changed {
		t.mu.Unlock()
		return
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.publish(snap)
}

// ApplyAll ingests a batch, publishing once if anything changed.
func (t *Tracker) ApplyAll(readings []internal.SourceReading) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.rolloverLocked()
	anyChanged := false
	for _, r := range readings {
		if _, changed := t.table.Put(r); changed {
			anyChanged = true
		}
	}
	if !anyChanged {
		t.mu.Unlock()
		return
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.publish(snap)
}

// rolloverLocked freezes the previous day's snapshot when the local
// calendar day has changed: persist it, fold it a final time, clear the
// slots. The frozen snapshot is kept only for the transition.
func (t *Tracker) rolloverLocked() {
	day := internal.DayOf(t.now(), t.loc)
	if day == t.today {
		return
	}
	frozen := t.snapshotLocked()
	t.yesterday = &frozen
	t.logger.Infof("day rollover %s -> %s for user %s", t.today, day, t.user.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := t.snapRepo.SaveSnapshot(ctx, frozen); err != nil {
		t.logger.Errorf("failed to persist frozen snapshot %s: %v", frozen.Date, err)
	}
	cancel()
	t.streaks.Observe(frozen)

	t.table.ResetDay()
	t.today = day
}

func (t *Tracker) snapshotLocked() internal.DailyMetricSnapshot {
	snap := internal.DailyMetricSnapshot{
		UserID: t.user.ID,
		Date:   t.today,
		Values: t.table.Snapshot(),
		Goals:  make(map[internal.MetricKind]float64, len(t.goals)),
	}
	for m, v := range t.goals {
		snap.Goals[m] = v
	}
	return snap
}

// publish persists the in-progress snapshot write-behind, hands it to
// the debounced emitter and folds it into the streak engine.
func (t *Tracker) publish(snap internal.DailyMetricSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := t.snapRepo.SaveSnapshot(ctx, snap); err != nil {
		t.logger.Errorf("failed to persist snapshot %s: %v", snap.Date, err)
	}
	cancel()
	t.emitter.Emit(snap)
	t.streaks.Observe(snap)
}

// refresh is the scheduler's work function: poll the live provider for
// today and re-read the persisted record. Provider failure is the
// refresh outcome; last good reconciled values stay in effect.
func (t *Tracker) refresh(ctx context.Context) error {
	nowT := t.now()
	dayStart := internal.DayOf(nowT, t.loc).Time(t.loc)

	var pollErr error
	if t.live != nil {
		sample, err := t.live.Poll(ctx, dayStart, nowT)
		if err != nil {
			pollErr = fmt.Errorf("live provider: %w", err)
		} else {
			t.ApplyAll(source.LiveReadings(sample, nowT))
		}
	}

	if stored, err := t.snapRepo.GetSnapshot(ctx, t.user.ID, internal.DayOf(nowT, t.loc)); err == nil {
		t.ApplyAll(source.PersistedReadings(*stored, nowT))
	}
	return pollErr
}

// RequestRefresh maps to the scheduler's RefreshNow; concurrent callers
// coalesce into one underlying refresh.
func (t *Tracker) RequestRefresh(ctx context.Context) scheduler.Outcome {
	return t.sched.RefreshNow(ctx)
}

// SetOverride records an explicit user edit; it wins over every other
// source, zero included.
func (t *Tracker) SetOverride(ctx context.Context, metric internal.MetricKind, value float64) error {
	if !internal.ValidMetricKind(string(metric)) {
		return internal.NewAppError(400, "unknown metric: "+string(metric))
	}
	if value < 0 {
		return internal.NewAppError(400, "override value must be non-negative")
	}
	t.Apply(source.OverrideReading(metric, value, t.now()))
	return nil
}

// SetGoalTarget updates one goal target, persists the full target set
// and triggers a full streak recompute through today's refreshed record.
func (t *Tracker) SetGoalTarget(ctx context.Context, metric internal.MetricKind, target float64) error {
	if !internal.ValidMetricKind(string(metric)) {
		return internal.NewAppError(400, "unknown metric: "+string(metric))
	}
	if target <= 0 {
		return internal.NewAppError(400, "goal target must be positive")
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return internal.NewAppError(500, "tracker closed")
	}
	t.rolloverLocked()
	t.goals[metric] = target
	targets := make(map[internal.MetricKind]float64, len(t.goals))
	for m, v := range t.goals {
		targets[m] = v
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if err := t.goalRepo.SetGoalTargets(ctx, t.user.ID, targets); err != nil {
		return fmt.Errorf("service: persist goal targets: %w", err)
	}
	t.publish(snap)
	return nil
}

// ObserveSnapshot streams debounced daily snapshots.
func (t *Tracker) ObserveSnapshot() (<-chan internal.DailyMetricSnapshot, func()) {
	return t.emitter.Subscribe()
}

// ObserveStreaks streams regenerated streak summaries.
func (t *Tracker) ObserveStreaks() (<-chan internal.UserStreakSummary, func()) {
	return t.streaks.ObserveSummaries()
}

// Snapshot returns the current in-progress snapshot.
func (t *Tracker) Snapshot() internal.DailyMetricSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()
	return t.snapshotLocked()
}

// StreakSummary regenerates the aggregate streak view.
func (t *Tracker) StreakSummary() internal.UserStreakSummary {
	return t.streaks.Summary()
}

// History lists persisted snapshots, oldest first.
func (t *Tracker) History(ctx context.Context) ([]internal.DailyMetricSnapshot, error) {
	return t.snapRepo.ListSnapshots(ctx, t.user.ID)
}

// RefreshFailures exposes the scheduler's failure counter.
func (t *Tracker) RefreshFailures() uint64 {
	return t.sched.Failures()
}

// Close stops the periodic refresh, persists the current snapshot and
// tears down all subscriptions.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.sched.Cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := t.snapRepo.SaveSnapshot(ctx, snap); err != nil {
		t.logger.Errorf("failed to persist snapshot on close: %v", err)
	}
	cancel()
	t.emitter.Close()
	t.streaks.Close()
}

// Package streak derives per-goal daily-achievement streaks from the
// reconciled snapshot history. Streak state is never patched in place:
// every change re-folds the full retained history, which is bounded to
// roughly a year of days and therefore cheap.
package streak

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

// maxFoldDays caps the history walk so a corrupt date cannot send the
// fold spinning through centuries.
const maxFoldDays = 3 * 366

// dayRecord is what the engine retains per calendar day: the reconciled
// values and the goal targets that were in force on that day.
type dayRecord struct {
	values map[internal.MetricKind]float64
	goals  map[internal.MetricKind]float64
}

type Engine struct {
	userID string
	loc    *time.Location
	logger internal.Logger

	mu       sync.Mutex
	days     map[internal.Day]dayRecord
	earliest internal.Day
	today    internal.Day
	streaks  map[internal.GoalType]internal.GoalStreak
	// longestFloor keeps longestStreak monotone across retroactive
	// corrections that shrink the achieved history.
	longestFloor map[internal.GoalType]int

	subscribers map[int]chan internal.UserStreakSummary
	nextSubID   int
	closed      bool

	inconsistencies atomic.Uint64
}

func New(userID string, loc *time.Location, logger internal.Logger) *Engine {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = internal.NopLogger{}
	}
	e := &Engine{
		userID:       userID,
		loc:          loc,
		logger:       logger,
		days:         make(map[internal.Day]dayRecord),
		streaks:      make(map[internal.GoalType]internal.GoalStreak),
		longestFloor: make(map[internal.GoalType]int),
		subscribers:  make(map[int]chan internal.UserStreakSummary),
	}
	for _, g := range internal.AllGoalTypes() {
		e.streaks[g] = internal.GoalStreak{GoalType: g}
	}
	return e
}

// Observe ingests one daily snapshot. Re-ingesting the same day replaces
// that day's record (a live update of "today" or a retroactive
// correction); either way the streaks are re-folded from the earliest
// retained day, so re-evaluation never double-counts.
func (e *Engine) Observe(snap internal.DailyMetricSnapshot) internal.UserStreakSummary {
	e.mu.Lock()
	rec := dayRecord{
		values: make(map[internal.MetricKind]float64, len(snap.Values)),
		goals:  make(map[internal.MetricKind]float64, len(snap.Goals)),
	}
	for m, v := range snap.Values {
		rec.values[m] = v.Value
	}
	for m, t := range snap.Goals {
		rec.goals[m] = t
	}
	e.days[snap.Date] = rec
	if e.earliest == "" || snap.Date < e.earliest {
		e.earliest = snap.Date
	}
	if snap.Date > e.today {
		e.today = snap.Date
	}
	e.recomputeLocked()
	summary := e.summaryLocked()
	e.mu.Unlock()

	e.publish(summary)
	return summary
}

// Recompute re-folds the whole history without new input, e.g. after a
// goal-target edit already reflected in today's record.
func (e *Engine) Recompute() internal.UserStreakSummary {
	e.mu.Lock()
	e.recomputeLocked()
	summary := e.summaryLocked()
	e.mu.Unlock()

	e.publish(summary)
	return summary
}

// recomputeLocked is the pure fold: for every goal, walk calendar days
// from the earliest retained record through today. A day with no record
// is not achieved and breaks the streak.
func (e *Engine) recomputeLocked() {
	if e.today == "" {
		return
	}
	for _, goal := range internal.AllGoalTypes() {
		st := e.foldGoal(goal)
		if st.CurrentStreak < 0 || st.LongestStreak < st.CurrentStreak {
			// Impossible state; fail closed for this goal only.
			e.inconsistencies.Add(1)
			e.logger.Errorf("streak: inconsistent state for %s user=%s, resetting", goal, e.userID)
			st = internal.GoalStreak{GoalType: goal}
		}
		if floor := e.longestFloor[goal]; st.LongestStreak < floor {
			st.LongestStreak = floor
		} else {
			e.longestFloor[goal] = st.LongestStreak
		}
		e.streaks[goal] = st
	}
}

func (e *Engine) foldGoal(goal internal.GoalType) internal.GoalStreak {
	st := internal.GoalStreak{GoalType: goal}
	run := 0

	d := e.earliest
	for steps := 0; steps < maxFoldDays; steps++ {
		if d > e.today || d.Time(e.loc).IsZero() {
			break
		}
		achieved := e.achievedOn(d, goal)
		if d == e.today {
			st.AchievedToday = achieved
		}
		if achieved {
			run++
			st.TotalDaysAchieved++
			st.LastAchievedDate = d
			if run > st.LongestStreak {
				st.LongestStreak = run
			}
		} else {
			// An unachieved day ends the run, the latest day included; a
			// live re-evaluation of today that achieves later restores it.
			run = 0
		}
		if d == e.today {
			break
		}
		d = d.Next(e.loc)
	}

	st.CurrentStreak = run
	return st
}

// achievedOn evaluates the goal predicate for one day. Missing or
// corrupt records are not achieved; there is nothing to abort.
func (e *Engine) achievedOn(d internal.Day, goal internal.GoalType) bool {
	rec, ok := e.days[d]
	if !ok || rec.values == nil {
		return false
	}
	switch goal {
	case internal.GoalCaloriesConsumed:
		// Under-goal, but an empty log is not an achievement.
		target := rec.goals[internal.CaloriesConsumed]
		v := rec.values[internal.CaloriesConsumed]
		return target > 0 && v > 0 && v <= target
	case internal.GoalSteps:
		target := rec.goals[internal.Steps]
		return target > 0 && rec.values[internal.Steps] >= target
	case internal.GoalWaterGlasses:
		target := rec.goals[internal.WaterGlasses]
		return target > 0 && rec.values[internal.WaterGlasses] >= target
	case internal.GoalSleepHours:
		target := rec.goals[internal.SleepHours]
		return target > 0 && rec.values[internal.SleepHours] >= target
	case internal.GoalExercise:
		// Boolean goal: any recorded exercise activity counts.
		return rec.values[internal.CaloriesBurned] > 0
	}
	return false
}

func (e *Engine) summaryLocked() internal.UserStreakSummary {
	s := internal.UserStreakSummary{
		UserID:      e.userID,
		Streaks:     make(map[internal.GoalType]internal.GoalStreak, len(e.streaks)),
		GeneratedAt: time.Now(),
	}
	for g, st := range e.streaks {
		s.Streaks[g] = st
		if st.CurrentStreak > 0 {
			s.TotalActiveStreaks++
		}
		if st.LongestStreak > s.LongestOverallStreak {
			s.LongestOverallStreak = st.LongestStreak
		}
	}
	for d, rec := range e.days {
		active := false
		for _, v := range rec.values {
			if v > 0 {
				active = true
				break
			}
		}
		if active {
			s.TotalDaysActive++
			if d > s.LastActivityDate {
				s.LastActivityDate = d
			}
		}
	}
	return s
}

// Summary regenerates the aggregate view from current state.
func (e *Engine) Summary() internal.UserStreakSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summaryLocked()
}

// Streak returns the state of one goal.
func (e *Engine) Streak(goal internal.GoalType) internal.GoalStreak {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streaks[goal]
}

// Inconsistencies counts fail-closed resets, for observability.
func (e *Engine) Inconsistencies() uint64 { return e.inconsistencies.Load() }

// Load seeds history from persisted snapshots, oldest first, then folds
// once. Used at startup before any live updates arrive.
func (e *Engine) Load(snaps []internal.DailyMetricSnapshot) internal.UserStreakSummary {
	e.mu.Lock()
	for _, snap := range snaps {
		rec := dayRecord{
			values: make(map[internal.MetricKind]float64, len(snap.Values)),
			goals:  make(map[internal.MetricKind]float64, len(snap.Goals)),
		}
		for m, v := range snap.Values {
			rec.values[m] = v.Value
		}
		for m, t := range snap.Goals {
			rec.goals[m] = t
		}
		e.days[snap.Date] = rec
		if e.earliest == "" || snap.Date < e.earliest {
			e.earliest = snap.Date
		}
		if snap.Date > e.today {
			e.today = snap.Date
		}
	}
	e.recomputeLocked()
	summary := e.summaryLocked()
	e.mu.Unlock()
	return summary
}

// ObserveSummaries streams regenerated summaries; latest-wins buffering,
// cancel removes only this subscriber.
func (e *Engine) ObserveSummaries() (<-chan internal.UserStreakSummary, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan internal.UserStreakSummary, 1)
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

func (e *Engine) publish(summary internal.UserStreakSummary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subscribers {
		select {
		case ch <- summary:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- summary:
			default:
			}
		}
	}
}

// Close closes all summary subscriptions.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, ch := range e.subscribers {
		delete(e.subscribers, id)
		close(ch)
	}
}

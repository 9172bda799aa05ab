package internal

import (
	"math"
	"time"
)

// MetricKind identifies one of the tracked daily quantities. The set is
// closed; adding a kind means touching the reconciler precedence tests too.
type MetricKind string

const (
	CaloriesConsumed MetricKind = "calories_consumed"
	CaloriesBurned   MetricKind = "calories_burned"
	Steps            MetricKind = "steps"
	WaterGlasses     MetricKind = "water_glasses"
	SleepHours       MetricKind = "sleep_hours"
)

// AllMetricKinds returns every tracked metric, in stable order.
func AllMetricKinds() []MetricKind {
	return []MetricKind{CaloriesConsumed, CaloriesBurned, Steps, WaterGlasses, SleepHours}
}

// ValidMetricKind reports whether s names a tracked metric.
func ValidMetricKind(s string) bool {
	switch MetricKind(s) {
	case CaloriesConsumed, CaloriesBurned, Steps, WaterGlasses, SleepHours:
		return true
	}
	return false
}

// Monotonic reports whether the metric can only grow within a day.
// Steps and water glasses are counters; a provider cannot un-walk steps.
func (m MetricKind) Monotonic() bool {
	return m == Steps || m == WaterGlasses
}

// SourceKind identifies which upstream produced a reading.
type SourceKind string

const (
	SourceCache          SourceKind = "cache"
	SourcePersisted      SourceKind = "persisted"
	SourceLiveProvider   SourceKind = "live_provider"
	SourceManualOverride SourceKind = "manual_override"
)

// Trust returns the precedence rank of the source; higher wins.
func (s SourceKind) Trust() int {
	switch s {
	case SourceManualOverride:
		return 4
	case SourceLiveProvider:
		return 3
	case SourcePersisted:
		return 2
	case SourceCache:
		return 1
	}
	return 0
}

// SourceReading is one observation of a metric from one source.
// Immutable once created; a newer reading for the same (metric, source)
// pair supersedes it in the reconciler's slot table.
type SourceReading struct {
	Metric     MetricKind `json:"metric"`
	Source     SourceKind `json:"source"`
	Value      float64    `json:"value"`
	ObservedAt time.Time  `json:"observed_at"`
	Valid      bool       `json:"valid"`
}

// Sane reports whether the reading's value is usable at all. NaN,
// infinities and negative values are adapter artifacts, never real data.
func (r SourceReading) Sane() bool {
	return r.Valid && !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) && r.Value >= 0
}

// ReconciledValue is the single authoritative value for one metric,
// derived from the current set of source readings.
type ReconciledValue struct {
	Metric       MetricKind `json:"metric"`
	Value        float64    `json:"value"`
	ChosenSource SourceKind `json:"chosen_source"`
	AsOf         time.Time  `json:"as_of"`
}

// Day is a calendar day in the user's local time zone, "2006-01-02".
type Day string

const dayLayout = "2006-01-02"

// DayOf truncates t to the calendar day in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	return Day(t.In(loc).Format(dayLayout))
}

// Time returns local midnight of the day. Malformed days map to the
// zero time; callers treat that as missing history.
func (d Day) Time(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(dayLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Next returns the following calendar day.
func (d Day) Next(loc *time.Location) Day {
	return Day(d.Time(loc).AddDate(0, 0, 1).Format(dayLayout))
}

// DailyMetricSnapshot is the bundle of reconciled values for one day.
// Mutated throughout the day as readings arrive; frozen at rollover.
type DailyMetricSnapshot struct {
	UserID string                         `json:"user_id"`
	Date   Day                            `json:"date"`
	Values map[MetricKind]ReconciledValue `json:"values"`
	Goals  map[MetricKind]float64         `json:"goals"`
}

// AsOf returns the latest AsOf among the snapshot's values.
func (s DailyMetricSnapshot) AsOf() time.Time {
	var latest time.Time
	for _, v := range s.Values {
		if v.AsOf.After(latest) {
			latest = v.AsOf
		}
	}
	return latest
}

// Clone deep-copies the snapshot so a frozen day cannot be mutated
// through a retained reference.
func (s DailyMetricSnapshot) Clone() DailyMetricSnapshot {
	out := DailyMetricSnapshot{
		UserID: s.UserID,
		Date:   s.Date,
		Values: make(map[MetricKind]ReconciledValue, len(s.Values)),
		Goals:  make(map[MetricKind]float64, len(s.Goals)),
	}
	for k, v := range s.Values {
		out.Values[k] = v
	}
	for k, v := range s.Goals {
		out.Goals[k] = v
	}
	return out
}

// GoalType is the subset of metrics that participate in streaks, plus
// the boolean exercise goal derived from recorded workout activity.
type GoalType string

const (
	GoalCaloriesConsumed GoalType = "calories_consumed"
	GoalSteps            GoalType = "steps"
	GoalWaterGlasses     GoalType = "water_glasses"
	GoalSleepHours       GoalType = "sleep_hours"
	GoalExercise         GoalType = "exercise"
)

// AllGoalTypes returns every streak goal, in stable order.
func AllGoalTypes() []GoalType {
	return []GoalType{GoalCaloriesConsumed, GoalSteps, GoalWaterGlasses, GoalSleepHours, GoalExercise}
}

// GoalStreak is the streak state for one goal. Owned by the streak
// engine; regenerated by its recompute step, never patched elsewhere.
type GoalStreak struct {
	GoalType          GoalType `json:"goal_type"`
	CurrentStreak     int      `json:"current_streak"`
	LongestStreak     int      `json:"longest_streak"`
	LastAchievedDate  Day      `json:"last_achieved_date,omitempty"`
	AchievedToday     bool     `json:"achieved_today"`
	TotalDaysAchieved int      `json:"total_days_achieved"`
}

// UserStreakSummary aggregates all goal streaks for a user. Regenerated
// whole on every recompute so it can never drift from the per-goal state.
type UserStreakSummary struct {
	UserID               string                  `json:"user_id"`
	Streaks              map[GoalType]GoalStreak `json:"streaks"`
	TotalActiveStreaks   int                     `json:"total_active_streaks"`
	LongestOverallStreak int                     `json:"longest_overall_streak"`
	LastActivityDate     Day                     `json:"last_activity_date,omitempty"`
	TotalDaysActive      int                     `json:"total_days_active"`
	GeneratedAt          time.Time               `json:"generated_at"`
}

// User is the authenticated principal a tracker instance belongs to.
type User struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Name  string `json:"name"`
}

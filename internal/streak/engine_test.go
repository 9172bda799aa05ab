package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

func daySnap(day string, values map[internal.MetricKind]float64, goals map[internal.MetricKind]float64) internal.DailyMetricSnapshot {
	snap := internal.DailyMetricSnapshot{
		UserID: "u1",
		Date:   internal.Day(day),
		Values: make(map[internal.MetricKind]internal.ReconciledValue),
		Goals:  goals,
	}
	for m, v := range values {
		snap.Values[m] = internal.ReconciledValue{Metric: m, Value: v, ChosenSource: internal.SourcePersisted, AsOf: time.Now()}
	}
	return snap
}

func waterDay(day string, glasses float64) internal.DailyMetricSnapshot {
	return daySnap(day,
		map[internal.MetricKind]float64{internal.WaterGlasses: glasses},
		map[internal.MetricKind]float64{internal.WaterGlasses: 8})
}

func TestWaterGlassesScenario(t *testing.T) {
	// Goal 8; daily values [8,8,0,8] -> currentStreak [1,2,0,1], longest 2.
	e := New("u1", time.UTC, internal.NopLogger{})

	e.Observe(waterDay("2026-03-01", 8))
	assert.Equal(t, 1, e.Streak(internal.GoalWaterGlasses).CurrentStreak)

	e.Observe(waterDay("2026-03-02", 8))
	assert.Equal(t, 2, e.Streak(internal.GoalWaterGlasses).CurrentStreak)

	e.Observe(waterDay("2026-03-03", 0))
	assert.Equal(t, 0, e.Streak(internal.GoalWaterGlasses).CurrentStreak)

	e.Observe(waterDay("2026-03-04", 8))
	st := e.Streak(internal.GoalWaterGlasses)
	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, 2, st.LongestStreak)
	assert.Equal(t, 3, st.TotalDaysAchieved)
	assert.Equal(t, internal.Day("2026-03-04"), st.LastAchievedDate)
}

func TestStreakResetAfterMissedDay(t *testing.T) {
	// Achieved D, D+1; missed D+2; achieved D+3.
	e := New("u1", time.UTC, internal.NopLogger{})
	e.Observe(waterDay("2026-03-01", 9))
	e.Observe(waterDay("2026-03-02", 8))
	// D+2 has no snapshot at all: a silent day still breaks the streak.
	e.Observe(waterDay("2026-03-04", 8))

	st := e.Streak(internal.GoalWaterGlasses)
	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, 2, st.LongestStreak)
}

func TestUnachievedTodayReportsZeroUntilAchieved(t *testing.T) {
	e := New("u1", time.UTC, internal.NopLogger{})
	e.Observe(waterDay("2026-03-01", 8))
	e.Observe(waterDay("2026-03-02", 8))

	// Today at 3 glasses: not achieved, so the current streak reads 0.
	e.Observe(waterDay("2026-03-03", 3))
	st := e.Streak(internal.GoalWaterGlasses)
	assert.False(t, st.AchievedToday)
	assert.Equal(t, 0, st.CurrentStreak)
	assert.Equal(t, 2, st.LongestStreak)

	// Live re-evaluation of the same day crossing the target restores
	// the run through today.
	e.Observe(waterDay("2026-03-03", 8))
	st = e.Streak(internal.GoalWaterGlasses)
	assert.True(t, st.AchievedToday)
	assert.Equal(t, 3, st.CurrentStreak)
}

func TestLiveTodayUpdateDoesNotDoubleCount(t *testing.T) {
	e := New("u1", time.UTC, internal.NopLogger{})
	e.Observe(waterDay("2026-03-01", 8))
	// Re-observing the same achieved day repeatedly must count it once.
	e.Observe(waterDay("2026-03-01", 9))
	e.Observe(waterDay("2026-03-01", 10))

	st := e.Streak(internal.GoalWaterGlasses)
	assert.Equal(t, 1, st.TotalDaysAchieved)
	assert.Equal(t, 1, st.CurrentStreak)
}

func TestIdempotentRecompute(t *testing.T) {
	e := New("u1", time.UTC, internal.NopLogger{})
	e.Observe(waterDay("2026-03-01", 8))
	e.Observe(waterDay("2026-03-02", 8))
	e.Observe(waterDay("2026-03-03", 8))

	first := e.Streak(internal.GoalWaterGlasses)
	e.Recompute()
	second := e.Streak(internal.GoalWaterGlasses)
	e.Recompute()
	third := e.Streak(internal.GoalWaterGlasses)
	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
}

func TestLongestStreakNeverDecreases(t *testing.T) {
	e := New("u1", time.UTC, internal.NopLogger{})
	e.Observe(waterDay("2026-03-01", 8))
	e.Observe(waterDay("2026-03-02", 8))
	e.Observe(waterDay("2026-03-03", 8))
	require.Equal(t, 3, e.Streak(internal.GoalWaterGlasses).LongestStreak)

	// Retroactive correction wipes out the middle day; the longest
	// streak already earned stays on the books.
	e.Observe(waterDay("2026-03-02", 0))
	st := e.Streak(internal.GoalWaterGlasses)
	assert.Equal(t, 3, st.LongestStreak)
	assert.Equal(t, 2, st.TotalDaysAchieved)
}

func TestRetroactiveGoalChangeRecomputes(t *testing.T) {
	e := New("u1", time.UTC, internal.NopLogger{})
	e.Observe(daySnap("2026-03-01",
		map[internal.MetricKind]float64{internal.Steps: 9000},
		map[internal.MetricKind]float64{internal.Steps: 10000}))
	assert.False(t, e.Streak(internal.GoalSteps).AchievedToday)

	// User lowers today's target; the same walked distance now achieves.
	e.Observe(daySnap("2026-03-01",
		map[internal.MetricKind]float64{internal.Steps: 9000},
		map[internal.MetricKind]float64{internal.Steps: 8000}))
	st := e.Streak(internal.GoalSteps)
	assert.True(t, st.AchievedToday)
	assert.Equal(t, 1, st.CurrentStreak)
	assert.Equal(t, 1, st.TotalDaysAchieved)
}

func TestCaloriesUnderGoalPredicate(t *testing.T) {
	e := New("u1", time.UTC, internal.NopLogger{})
	goals := map[internal.MetricKind]float64{internal.CaloriesConsumed: 2000}

	e.Observe(daySnap("2026-03-01", map[internal.MetricKind]float64{internal.CaloriesConsumed: 1800}, goals))
	assert.True(t, e.Streak(internal.GoalCaloriesConsumed).AchievedToday)

	e.Observe(daySnap("2026-03-02", map[internal.MetricKind]float64{internal.CaloriesConsumed: 2400}, goals))
	assert.False(t, e.Streak(internal.GoalCaloriesConsumed).AchievedToday)

	// An empty log is not an under-goal achievement.
	e.Observe(daySnap("2026-03-03", map[internal.MetricKind]float64{internal.CaloriesConsumed: 0}, goals))
	assert.False(t, e.Streak(internal.GoalCaloriesConsumed).AchievedToday)
}

func TestExerciseBooleanPredicate(t *testing.T) {
	e := New("u1", time.UTC, internal.NopLogger{})
	e.Observe(daySnap("2026-03-01", map[internal.MetricKind]float64{internal.CaloriesBurned: 320}, nil))
	assert.True(t, e.Streak(internal.GoalExercise).AchievedToday)

	e.Observe(daySnap("2026-03-02", map[internal.MetricKind]float64{internal.CaloriesBurned: 0}, nil))
	assert.False(t, e.Streak(internal.GoalExercise).AchievedToday)
}

func TestNoGoalTargetMeansNoStreak(t *testing.T) {
	e := New("u1", time.UTC, internal.NopLogger{})
	e.Observe(daySnap("2026-03-01", map[internal.MetricKind]float64{internal.Steps: 12000}, nil))
	assert.False(t, e.Streak(internal.GoalSteps).AchievedToday)
	assert.Equal(t, 0, e.Streak(internal.GoalSteps).CurrentStreak)
}

func TestSummaryAggregates(t *testing.T) {
	e := New("u1", time.UTC, internal.NopLogger{})
	e.Observe(daySnap("2026-03-01",
		map[internal.MetricKind]float64{
			internal.WaterGlasses:   8,
			internal.CaloriesBurned: 300,
		},
		map[internal.MetricKind]float64{internal.WaterGlasses: 8}))

	s := e.Summary()
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, 2, s.TotalActiveStreaks) // water + exercise
	assert.Equal(t, 1, s.LongestOverallStreak)
	assert.Equal(t, internal.Day("2026-03-01"), s.LastActivityDate)
	assert.Equal(t, 1, s.TotalDaysActive)
	assert.Len(t, s.Streaks, len(internal.AllGoalTypes()))
}

func TestLoadSeedsHistory(t *testing.T) {
	e := New("u1", time.UTC, internal.NopLogger{})
	e.Load([]internal.DailyMetricSnapshot{
		waterDay("2026-03-01", 8),
		waterDay("2026-03-02", 8),
	})
	st := e.Streak(internal.GoalWaterGlasses)
	assert.Equal(t, 2, st.CurrentStreak)
	assert.Equal(t, 2, st.LongestStreak)
}

func TestObserveSummariesStream(t *testing.T) {
	e := New("u1", time.UTC, internal.NopLogger{})
	ch, cancel := e.ObserveSummaries()
	defer cancel()

	e.Observe(waterDay("2026-03-01", 8))
	select {
	case s := <-ch:
		assert.Equal(t, 1, s.Streaks[internal.GoalWaterGlasses].CurrentStreak)
	case <-time.After(time.Second):
		t.Fatal("expected a summary on observe")
	}
}

func TestCorruptDayFailsClosed(t *testing.T) {
	e := New("u1", time.UTC, internal.NopLogger{})
	e.Observe(waterDay("2026-03-01", 8))
	// A record with nil values must read as not-achieved, not panic.
	e.mu.Lock()
	e.days["2026-03-02"] = dayRecord{}
	if e.today < "2026-03-02" {
		e.today = "2026-03-02"
	}
	e.mu.Unlock()
	e.Recompute()

	st := e.Streak(internal.GoalWaterGlasses)
	assert.False(t, st.AchievedToday)
	assert.Equal(t, 0, st.CurrentStreak)
	// The achieved history before the corrupt day is untouched.
	assert.Equal(t, 1, st.LongestStreak)
	assert.Equal(t, 1, st.TotalDaysAchieved)
}

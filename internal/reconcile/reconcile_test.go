package reconcile

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

var testOpts = Options{Location: time.UTC, GuardWindow: 24 * time.Hour}

func reading(m internal.MetricKind, s internal.SourceKind, v float64, at time.Time) internal.SourceReading {
	return internal.SourceReading{Metric: m, Source: s, Value: v, ObservedAt: at, Valid: true}
}

func TestManualOverrideAlwaysWins(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	readings := []internal.SourceReading{
		reading(internal.CaloriesConsumed, internal.SourceCache, 1200, t0),
		reading(internal.CaloriesConsumed, internal.SourceLiveProvider, 1500, t0.Add(2*time.Hour)),
		reading(internal.CaloriesConsumed, internal.SourceManualOverride, 900, t0.Add(time.Hour)),
	}
	got := Reconcile(internal.CaloriesConsumed, readings, internal.ReconciledValue{}, testOpts)
	assert.Equal(t, 900.0, got.Value)
	assert.Equal(t, internal.SourceManualOverride, got.ChosenSource)
}

func TestManualOverrideZeroWins(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	prior := internal.ReconciledValue{Metric: internal.WaterGlasses, Value: 5, ChosenSource: internal.SourceLiveProvider, AsOf: t0}
	readings := []internal.SourceReading{
		reading(internal.WaterGlasses, internal.SourceLiveProvider, 5, t0),
		reading(internal.WaterGlasses, internal.SourceManualOverride, 0, t0.Add(time.Minute)),
	}
	got := Reconcile(internal.WaterGlasses, readings, prior, testOpts)
	assert.Equal(t, 0.0, got.Value)
	assert.Equal(t, internal.SourceManualOverride, got.ChosenSource)
}

func TestZeroGuardRetainsPriorPositive(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	prior := internal.ReconciledValue{Metric: internal.CaloriesConsumed, Value: 1300, ChosenSource: internal.SourcePersisted, AsOf: t0}
	readings := []internal.SourceReading{
		reading(internal.CaloriesConsumed, internal.SourceLiveProvider, 0, t0.Add(time.Minute)),
	}
	got := Reconcile(internal.CaloriesConsumed, readings, prior, testOpts)
	assert.Equal(t, 1300.0, got.Value)
	assert.Equal(t, internal.SourcePersisted, got.ChosenSource)
	assert.False(t, got.AsOf.Before(t0))
}

func TestZeroGuardDoesNotApplyAcrossDays(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 11, 0, 30, 0, 0, time.UTC)
	prior := internal.ReconciledValue{Metric: internal.CaloriesConsumed, Value: 1800, ChosenSource: internal.SourcePersisted, AsOf: t0}
	readings := []internal.SourceReading{
		reading(internal.CaloriesConsumed, internal.SourcePersisted, 0, nextDay),
	}
	got := Reconcile(internal.CaloriesConsumed, readings, prior, testOpts)
	assert.Equal(t, 0.0, got.Value)
}

func TestScenarioTransientZeroFromLiveProvider(t *testing.T) {
	// Cache=1200(t0), Persisted=1300(t1), LiveProvider=0(t2): the zero is
	// a transient empty fetch, reconciled value stays 1300 from Persisted.
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	t2 := t1.Add(time.Minute)
	prior := internal.ReconciledValue{Metric: internal.CaloriesConsumed, Value: 1300, ChosenSource: internal.SourcePersisted, AsOf: t1}
	readings := []internal.SourceReading{
		reading(internal.CaloriesConsumed, internal.SourceCache, 1200, t0),
		reading(internal.CaloriesConsumed, internal.SourcePersisted, 1300, t1),
		reading(internal.CaloriesConsumed, internal.SourceLiveProvider, 0, t2),
	}
	got := Reconcile(internal.CaloriesConsumed, readings, prior, testOpts)
	assert.Equal(t, 1300.0, got.Value)
	assert.Equal(t, internal.SourcePersisted, got.ChosenSource)
}

func TestZeroGuardWithinSingleBatch(t *testing.T) {
	// No prior yet: the positive persisted reading inside the same batch
	// is the "previously observed positive value" the later zero from the
	// provider must not override.
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	readings := []internal.SourceReading{
		reading(internal.CaloriesConsumed, internal.SourcePersisted, 1300, t0),
		reading(internal.CaloriesConsumed, internal.SourceLiveProvider, 0, t0.Add(time.Minute)),
	}
	got := Reconcile(internal.CaloriesConsumed, readings, internal.ReconciledValue{}, testOpts)
	assert.Equal(t, 1300.0, got.Value)
	assert.Equal(t, internal.SourcePersisted, got.ChosenSource)
}

func TestScenarioLiveProviderStepsWin(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	prior := internal.ReconciledValue{Metric: internal.Steps, Value: 4000, ChosenSource: internal.SourcePersisted, AsOf: t0}
	readings := []internal.SourceReading{
		reading(internal.Steps, internal.SourcePersisted, 4000, t0),
		reading(internal.Steps, internal.SourceLiveProvider, 6000, t0.Add(time.Minute)),
	}
	got := Reconcile(internal.Steps, readings, prior, testOpts)
	assert.Equal(t, 6000.0, got.Value)
	assert.Equal(t, internal.SourceLiveProvider, got.ChosenSource)
}

func TestMonotonicMetricNeverRegresses(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	prior := internal.ReconciledValue{Metric: internal.Steps, Value: 6000, ChosenSource: internal.SourceLiveProvider, AsOf: t0}
	readings := []internal.SourceReading{
		reading(internal.Steps, internal.SourceLiveProvider, 5500, t0.Add(time.Minute)),
	}
	got := Reconcile(internal.Steps, readings, prior, testOpts)
	assert.Equal(t, 6000.0, got.Value)
}

func TestNonMonotonicMetricMayDecrease(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	prior := internal.ReconciledValue{Metric: internal.SleepHours, Value: 8, ChosenSource: internal.SourceLiveProvider, AsOf: t0}
	readings := []internal.SourceReading{
		reading(internal.SleepHours, internal.SourceLiveProvider, 6.5, t0.Add(time.Minute)),
	}
	got := Reconcile(internal.SleepHours, readings, prior, testOpts)
	assert.Equal(t, 6.5, got.Value)
}

func TestNewestReadingPerSourceWins(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	readings := []internal.SourceReading{
		reading(internal.Steps, internal.SourceLiveProvider, 1000, t0),
		reading(internal.Steps, internal.SourceLiveProvider, 2500, t0.Add(time.Hour)),
	}
	got := Reconcile(internal.Steps, readings, internal.ReconciledValue{}, testOpts)
	assert.Equal(t, 2500.0, got.Value)
}

func TestMalformedReadingsAreInvalid(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	readings := []internal.SourceReading{
		reading(internal.Steps, internal.SourceLiveProvider, math.NaN(), t0),
		reading(internal.Steps, internal.SourcePersisted, -100, t0),
		reading(internal.Steps, internal.SourceCache, 3000, t0),
	}
	got := Reconcile(internal.Steps, readings, internal.ReconciledValue{}, testOpts)
	assert.Equal(t, 3000.0, got.Value)
	assert.Equal(t, internal.SourceCache, got.ChosenSource)
}

func TestNoValidReadingFallsBackToZeroCache(t *testing.T) {
	got := Reconcile(internal.Steps, nil, internal.ReconciledValue{}, testOpts)
	assert.Equal(t, 0.0, got.Value)
	assert.Equal(t, internal.SourceCache, got.ChosenSource)

	invalid := internal.SourceReading{Metric: internal.Steps, Source: internal.SourceLiveProvider, Value: 100, Valid: false}
	got = Reconcile(internal.Steps, []internal.SourceReading{invalid}, internal.ReconciledValue{}, testOpts)
	assert.Equal(t, 0.0, got.Value)
	assert.Equal(t, internal.SourceCache, got.ChosenSource)
}

func TestAsOfNeverBeforeChosenReading(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	readings := []internal.SourceReading{
		reading(internal.Steps, internal.SourceLiveProvider, 100, t0),
	}
	got := Reconcile(internal.Steps, readings, internal.ReconciledValue{}, testOpts)
	assert.False(t, got.AsOf.Before(t0))
}

func TestTablePutReportsChange(t *testing.T) {
	table := NewTable(testOpts)
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	v, changed := table.Put(reading(internal.Steps, internal.SourceCache, 1000, t0))
	assert.True(t, changed)
	assert.Equal(t, 1000.0, v.Value)

	// Same value again from the same source: no change, no emission.
	_, changed = table.Put(reading(internal.Steps, internal.SourceCache, 1000, t0.Add(time.Minute)))
	assert.False(t, changed)

	v, changed = table.Put(reading(internal.Steps, internal.SourceLiveProvider, 2000, t0.Add(2*time.Minute)))
	assert.True(t, changed)
	assert.Equal(t, internal.SourceLiveProvider, v.ChosenSource)
}

func TestTableResetDayClearsGuard(t *testing.T) {
	table := NewTable(testOpts)
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	table.Put(reading(internal.CaloriesConsumed, internal.SourcePersisted, 1300, t0))

	table.ResetDay()
	assert.Equal(t, 0.0, table.Get(internal.CaloriesConsumed).Value)

	// A zero after reset is genuine, not guarded: yesterday's positive
	// value must not pin today's.
	v, _ := table.Put(reading(internal.CaloriesConsumed, internal.SourcePersisted, 0, t0.Add(24*time.Hour)))
	assert.Equal(t, 0.0, v.Value)
}

func TestTableSnapshotCoversAllMetrics(t *testing.T) {
	table := NewTable(testOpts)
	snap := table.Snapshot()
	assert.Len(t, snap, len(internal.AllMetricKinds()))
	for _, m := range internal.AllMetricKinds() {
		assert.Equal(t, internal.SourceCache, snap[m].ChosenSource)
	}
}

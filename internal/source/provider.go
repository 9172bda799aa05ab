// Package source normalizes the upstream providers (cache, persisted
// store, live fitness provider, manual edits) into uniform SourceReading
// tuples for the reconciler.
package source

import (
	"context"
	"time"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

// CacheProvider is the synchronous local cache. Absence is normal and
// simply yields no reading.
type CacheProvider interface {
	GetCached(metric internal.MetricKind) (float64, bool)
}

// LiveSample is one poll result from the live fitness provider.
type LiveSample struct {
	Steps          float64   `json:"steps"`
	CaloriesBurned float64   `json:"calories_burned"`
	Workouts       int       `json:"workouts"`
	ObservedAt     time.Time `json:"observed_at"`
}

// LiveProvider is the external fitness-data service. Poll may fail or
// time out; callers degrade to lower-precedence sources.
type LiveProvider interface {
	Poll(ctx context.Context, from, to time.Time) (LiveSample, error)
}

// CacheReadings drains the cache into readings, one per present metric.
func CacheReadings(p CacheProvider, now time.Time) []internal.SourceReading {
	var out []internal.SourceReading
	for _, m := range internal.AllMetricKinds() {
		v, ok := p.GetCached(m)
		if !ok {
			continue
		}
		out = append(out, internal.SourceReading{
			Metric:     m,
			Source:     internal.SourceCache,
			Value:      v,
			ObservedAt: now,
			Valid:      true,
		})
	}
	return out
}

// LiveReadings converts a provider sample into readings. A sample with a
// zero ObservedAt is stamped with now.
func LiveReadings(s LiveSample, now time.Time) []internal.SourceReading {
	at := s.ObservedAt
	if at.IsZero() {
		at = now
	}
	return []internal.SourceReading{
		{Metric: internal.Steps, Source: internal.SourceLiveProvider, Value: s.Steps, ObservedAt: at, Valid: true},
		{Metric: internal.CaloriesBurned, Source: internal.SourceLiveProvider, Value: s.CaloriesBurned, ObservedAt: at, Valid: true},
	}
}

// PersistedReadings turns a stored snapshot for the current day back
// into persisted-source readings.
func PersistedReadings(snap internal.DailyMetricSnapshot, now time.Time) []internal.SourceReading {
	out := make([]internal.SourceReading, 0, len(snap.Values))
	for m, v := range snap.Values {
		at := v.AsOf
		if at.IsZero() {
			at = now
		}
		out = append(out, internal.SourceReading{
			Metric:     m,
			Source:     internal.SourcePersisted,
			Value:      v.Value,
			ObservedAt: at,
			Valid:      true,
		})
	}
	return out
}

// OverrideReading wraps an explicit user edit. Always valid, always
// highest precedence, zero included.
func OverrideReading(metric internal.MetricKind, value float64, now time.Time) internal.SourceReading {
	return internal.SourceReading{
		Metric:     metric,
		Source:     internal.SourceManualOverride,
		Value:      value,
		ObservedAt: now,
		Valid:      true,
	}
}

// MapCache is a trivial in-memory CacheProvider for development and tests.
type MapCache map[internal.MetricKind]float64

func (c MapCache) GetCached(metric internal.MetricKind) (float64, bool) {
	v, ok := c[metric]
	return v, ok
}

var _ CacheProvider = MapCache{}

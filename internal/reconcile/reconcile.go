package reconcile

import (
	"time"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

// Options tune the reconciliation policy. The zero value is usable;
// missing fields fall back to local time and a 24h guard window.
type Options struct {
	// Location defines the local calendar day for the zero-guard and
	// the monotonic rule; both apply only within one day.
	Location *time.Location
	// GuardWindow bounds how long after the prior value a zero reading
	// is still treated as a transient empty fetch.
	GuardWindow time.Duration
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) guardWindow() time.Duration {
	if o.GuardWindow <= 0 {
		return 24 * time.Hour
	}
	return o.GuardWindow
}

// Reconcile picks the single authoritative value for a metric out of the
// current readings. Pure and total: it never panics and always returns a
// usable value, falling back to zero-from-cache when nothing is valid.
//
// Trust order is ManualOverride > LiveProvider > Persisted > Cache. Two
// exceptions: a non-manual zero arriving after a positive value on the
// same day is treated as a transient empty fetch and skipped, and for
// monotonic metrics (steps, water) a non-manual reading below the prior
// value on the same day cannot drag the value back down.
func Reconcile(metric internal.MetricKind, readings []internal.SourceReading, prior internal.ReconciledValue, opts Options) internal.ReconciledValue {
	latest := latestPerSource(metric, readings)

	var chosen *internal.SourceReading
	var guarded *internal.SourceReading
	for i := range latest {
		r := &latest[i]
		if !r.Sane() {
			continue
		}
		if r.Source != internal.SourceManualOverride && zeroGuarded(*r, prior, latest, opts) {
			guarded = r
			continue
		}
		if chosen == nil || r.Source.Trust() > chosen.Source.Trust() {
			chosen = r
		}
	}

	if chosen == nil {
		// Nothing usable this cycle. If the only casualty was a guarded
		// zero, the prior positive value stands.
		if guarded != nil && prior.Value > 0 {
			return internal.ReconciledValue{
				Metric:       metric,
				Value:        prior.Value,
				ChosenSource: prior.ChosenSource,
				AsOf:         maxTime(prior.AsOf, guarded.ObservedAt),
			}
		}
		return internal.ReconciledValue{
			Metric:       metric,
			Value:        0,
			ChosenSource: internal.SourceCache,
			AsOf:         prior.AsOf,
		}
	}

	value := chosen.Value
	source := chosen.Source
	if metric.Monotonic() && source != internal.SourceManualOverride &&
		value < prior.Value && sameDay(chosen.ObservedAt, prior.AsOf, opts.location()) {
		value = prior.Value
		source = prior.ChosenSource
	}

	return internal.ReconciledValue{
		Metric:       metric,
		Value:        value,
		ChosenSource: source,
		AsOf:         maxTime(prior.AsOf, chosen.ObservedAt),
	}
}

// latestPerSource collapses the input to at most one reading per source,
// newest ObservedAt winning, and drops readings for other metrics.
func latestPerSource(metric internal.MetricKind, readings []internal.SourceReading) []internal.SourceReading {
	bySource := make(map[internal.SourceKind]internal.SourceReading, 4)
	for _, r := range readings {
		if r.Metric != metric {
			continue
		}
		if prev, ok := bySource[r.Source]; !ok || r.ObservedAt.After(prev.ObservedAt) {
			bySource[r.Source] = r
		}
	}
	out := make([]internal.SourceReading, 0, len(bySource))
	for _, r := range bySource {
		out = append(out, r)
	}
	return out
}

// zeroGuarded reports whether r is a transient zero: a zero observed
// after a positive value, on the same local day, within the window. The
// earlier positive may be the prior reconciled value or another source's
// reading within the same batch.
func zeroGuarded(r internal.SourceReading, prior internal.ReconciledValue, peers []internal.SourceReading, opts Options) bool {
	if r.Value != 0 {
		return false
	}
	if positiveBefore(prior.Value, prior.AsOf, r.ObservedAt, opts) {
		return true
	}
	for _, p := range peers {
		if p.Source == r.Source || !p.Sane() {
			continue
		}
		if positiveBefore(p.Value, p.ObservedAt, r.ObservedAt, opts) {
			return true
		}
	}
	return false
}

// positiveBefore reports whether a positive value observed at `at` makes
// a zero observed at `zeroAt` look transient.
func positiveBefore(v float64, at, zeroAt time.Time, opts Options) bool {
	if v <= 0 || at.IsZero() || zeroAt.Before(at) {
		return false
	}
	if !sameDay(zeroAt, at, opts.location()) {
		return false
	}
	return zeroAt.Sub(at) <= opts.guardWindow()
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return internal.DayOf(a, loc) == internal.DayOf(b, loc)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

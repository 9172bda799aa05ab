package reconcile

import (
	"sync"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

// Table holds the live per-metric reconciliation state: the latest
// reading per (metric, source) slot and the prior reconciled value the
// zero-guard and monotonic rules compare against. One mutex per metric
// keeps writers for different metrics out of each other's way while
// still serializing updates to any single metric.
type Table struct {
	opts  Options
	slots map[internal.MetricKind]*slot
}

type slot struct {
	mu       sync.Mutex
	readings map[internal.SourceKind]internal.SourceReading
	prior    internal.ReconciledValue
}

func NewTable(opts Options) *Table {
	t := &Table{
		opts:  opts,
		slots: make(map[internal.MetricKind]*slot, len(internal.AllMetricKinds())),
	}
	for _, m := range internal.AllMetricKinds() {
		t.slots[m] = &slot{
			readings: make(map[internal.SourceKind]internal.SourceReading, 4),
			prior:    internal.ReconciledValue{Metric: m, ChosenSource: internal.SourceCache},
		}
	}
	return t
}

// Put records a reading and re-reconciles its metric. The returned bool
// reports whether the reconciled value actually changed; callers skip
// emission when it did not. Readings for unknown metrics are dropped.
func (t *Table) Put(r internal.SourceReading) (internal.ReconciledValue, bool) {
	s, ok := t.slots[r.Metric]
	if !ok {
		return internal.ReconciledValue{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, exists := s.readings[r.Source]; !exists || !r.ObservedAt.Before(prev.ObservedAt) {
		s.readings[r.Source] = r
	}

	readings := make([]internal.SourceReading, 0, len(s.readings))
	for _, sr := range s.readings {
		readings = append(readings, sr)
	}
	next := Reconcile(r.Metric, readings, s.prior, t.opts)
	changed := next.Value != s.prior.Value || next.ChosenSource != s.prior.ChosenSource
	s.prior = next
	return next, changed
}

// Get returns the current reconciled value for a metric.
func (t *Table) Get(m internal.MetricKind) internal.ReconciledValue {
	s, ok := t.slots[m]
	if !ok {
		return internal.ReconciledValue{Metric: m, ChosenSource: internal.SourceCache}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prior
}

// Snapshot copies the reconciled value of every metric.
func (t *Table) Snapshot() map[internal.MetricKind]internal.ReconciledValue {
	out := make(map[internal.MetricKind]internal.ReconciledValue, len(t.slots))
	for m, s := range t.slots {
		s.mu.Lock()
		out[m] = s.prior
		s.mu.Unlock()
	}
	return out
}

// ResetDay clears all slots and priors at midnight rollover. Yesterday's
// readings must not zero-guard or monotonic-pin today's values.
func (t *Table) ResetDay() {
	for _, s := range t.slots {
		s.mu.Lock()
		for k := range s.readings {
			delete(s.readings, k)
		}
		s.prior = internal.ReconciledValue{Metric: s.prior.Metric, ChosenSource: internal.SourceCache}
		s.mu.Unlock()
	}
}

package storage

import (
	"context"
	"errors"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

var ErrNotFound = errors.New("storage: not found")

// SnapshotRepository persists the per-day reconciled snapshots. One row
// per (user, day); saving the same day again replaces it, which is how
// the in-progress "today" snapshot is written behind.
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snap internal.DailyMetricSnapshot) error
	GetSnapshot(ctx context.Context, userID string, day internal.Day) (*internal.DailyMetricSnapshot, error)
	ListSnapshots(ctx context.Context, userID string) ([]internal.DailyMetricSnapshot, error)
}

// GoalRepository persists the user's current goal targets.
type GoalRepository interface {
	SetGoalTargets(ctx context.Context, userID string, targets map[internal.MetricKind]float64) error
	GetGoalTargets(ctx context.Context, userID string) (map[internal.MetricKind]float64, error)
}

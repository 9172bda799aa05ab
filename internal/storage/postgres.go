package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(dsn string, logger internal.Logger) (*PostgresStorage, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

// --- SnapshotRepository ---

func (p *PostgresStorage) SaveSnapshot(ctx context.Context, snap internal.DailyMetricSnapshot) error {
	values, err := json.Marshal(snap.Values)
	if err != nil {
		return err
	}
	goals, err := json.Marshal(snap.Goals)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `INSERT INTO daily_snapshots (user_id, day, reconciled_values, goal_targets)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, day) DO UPDATE SET reconciled_values = $3, goal_targets = $4`,
		snap.UserID, string(snap.Date), values, goals)
	if err != nil {
		p.logger.Errorf("failed to upsert snapshot: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) GetSnapshot(ctx context.Context, userID string, day internal.Day) (*internal.DailyMetricSnapshot, error) {
	row := p.pool.QueryRow(ctx, `SELECT reconciled_values, goal_targets FROM daily_snapshots
		WHERE user_id = $1 AND day = $2`, userID, string(day))
	snap := internal.DailyMetricSnapshot{UserID: userID, Date: day}
	var values, goals []byte
	if err := row.Scan(&values, &goals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		p.logger.Errorf("failed to query snapshot: %v", err)
		return nil, err
	}
	if err := json.Unmarshal(values, &snap.Values); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(goals, &snap.Goals); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (p *PostgresStorage) ListSnapshots(ctx context.Context, userID string) ([]internal.DailyMetricSnapshot, error) {
	rows, err := p.pool.Query(ctx, `SELECT day, reconciled_values, goal_targets FROM daily_snapshots
		WHERE user_id = $1 ORDER BY day ASC`, userID)
	if err != nil {
		p.logger.Errorf("failed to query snapshots: %v", err)
		return nil, err
	}
	defer rows.Close()

	var snaps []internal.DailyMetricSnapshot
	for rows.Next() {
		snap := internal.DailyMetricSnapshot{UserID: userID}
		var day string
		var values, goals []byte
		if err := rows.Scan(&day, &values, &goals); err != nil {
			p.logger.Errorf("failed to scan snapshot: %v", err)
			return nil, err
		}
		snap.Date = internal.Day(day)
		if err := json.Unmarshal(values, &snap.Values); err != nil {
			p.logger.Errorf("corrupt snapshot values for %s/%s: %v", userID, day, err)
			continue
		}
		if err := json.Unmarshal(goals, &snap.Goals); err != nil {
			p.logger.Errorf("corrupt snapshot goals for %s/%s: %v", userID, day, err)
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// --- GoalRepository ---

func (p *PostgresStorage) SetGoalTargets(ctx context.Context, userID string, targets map[internal.MetricKind]float64) error {
	raw, err := json.Marshal(targets)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `INSERT INTO goal_targets (user_id, targets) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET targets = $2`, userID, raw)
	if err != nil {
		p.logger.Errorf("failed to upsert goal targets: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) GetGoalTargets(ctx context.Context, userID string) (map[internal.MetricKind]float64, error) {
	row := p.pool.QueryRow(ctx, `SELECT targets FROM goal_targets WHERE user_id = $1`, userID)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return map[internal.MetricKind]float64{}, nil
		}
		p.logger.Errorf("failed to query goal targets: %v", err)
		return nil, err
	}
	targets := make(map[internal.MetricKind]float64)
	if err := json.Unmarshal(raw, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// --- Compile-time assertions ---
var _ SnapshotRepository = (*PostgresStorage)(nil)
var _ GoalRepository = (*PostgresStorage)(nil)

package storage

import "github.com/SISIR-REDDY/calorie-vita-sub004/internal"

func NewFileRepositories(snapshotsFile, goalsFile string, logger internal.Logger) (SnapshotRepository, GoalRepository, error) {
	storage, err := NewFileStorage(snapshotsFile, goalsFile, logger)
	if err != nil {
		return nil, nil, err
	}
	return storage, storage, nil
}

func NewPostgresRepositories(dsn string, logger internal.Logger) (SnapshotRepository, GoalRepository, error) {
	storage, err := NewPostgresStorage(dsn, logger)
	if err != nil {
		return nil, nil, err
	}
	return storage, storage, nil
}

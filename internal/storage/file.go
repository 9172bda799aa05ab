package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

// FileStorage keeps snapshots and goal targets in memory and writes them
// behind to JSON files. Saves are debounced through single-slot wake
// channels so a burst of updates costs one disk write.
type FileStorage struct {
	snapshots map[string]map[internal.Day]*internal.DailyMetricSnapshot // userID -> day -> snapshot
	goals     map[string]map[internal.MetricKind]float64                // userID -> metric -> target
	mu        sync.RWMutex

	snapshotsFile string
	goalsFile     string

	saveSnapsChan  chan struct{}
	saveGoalsChan  chan struct{}
	shutdownChan   chan struct{}
	saveSnapsDelay time.Duration
	saveGoalsDelay time.Duration
	logger         internal.Logger
}

func NewFileStorage(snapshotsFile, goalsFile string, logger internal.Logger) (*FileStorage, error) {
	s := &FileStorage{
		snapshots:      make(map[string]map[internal.Day]*internal.DailyMetricSnapshot),
		goals:          make(map[string]map[internal.MetricKind]float64),
		snapshotsFile:  snapshotsFile,
		goalsFile:      goalsFile,
		saveSnapsChan:  make(chan struct{}, 1),
		saveGoalsChan:  make(chan struct{}, 1),
		shutdownChan:   make(chan struct{}),
		saveSnapsDelay: 500 * time.Millisecond,
		saveGoalsDelay: 500 * time.Millisecond,
		logger:         logger,
	}

	if err := s.loadSnapshots(); err != nil {
		logger.Errorf("storage: failed to load snapshots: %v", err)
		return nil, err
	}
	if err := s.loadGoals(); err != nil {
		logger.Errorf("storage: failed to load goals: %v", err)
		return nil, err
	}

	go s.saveSnapsWorker()
	go s.saveGoalsWorker()

	return s, nil
}

func (s *FileStorage) loadSnapshots() error {
	file, err := os.Open(s.snapshotsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var snaps []*internal.DailyMetricSnapshot
	if err := json.NewDecoder(file).Decode(&snaps); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snaps {
		if s.snapshots[snap.UserID] == nil {
			s.snapshots[snap.UserID] = make(map[internal.Day]*internal.DailyMetricSnapshot)
		}
		s.snapshots[snap.UserID][snap.Date] = snap
	}
	return nil
}

type goalsRecord struct {
	UserID  string                          `json:"user_id"`
	Targets map[internal.MetricKind]float64 `json:"targets"`
}

func (s *FileStorage) loadGoals() error {
	file, err := os.Open(s.goalsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var records []goalsRecord
	if err := json.NewDecoder(file).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.goals[rec.UserID] = rec.Targets
	}
	return nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

func (s *FileStorage) saveSnapshots() error {
	s.mu.RLock()
	snaps := make([]*internal.DailyMetricSnapshot, 0)
	for _, byDay := range s.snapshots {
		for _, snap := range byDay {
			snaps = append(snaps, snap)
		}
	}
	s.mu.RUnlock()

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].UserID != snaps[j].UserID {
			return snaps[i].UserID < snaps[j].UserID
		}
		return snaps[i].Date < snaps[j].Date
	})
	return atomicWriteFileJSON(s.snapshotsFile, snaps)
}

func (s *FileStorage) saveGoals() error {
	s.mu.RLock()
	records := make([]goalsRecord, 0, len(s.goals))
	for userID, targets := range s.goals {
		records = append(records, goalsRecord{UserID: userID, Targets: targets})
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })
	return atomicWriteFileJSON(s.goalsFile, records)
}

func (s *FileStorage) saveSnapsWorker() {
	timer := time.NewTimer(s.saveSnapsDelay)
	defer timer.Stop()

	for {
		select {
		case <-s.saveSnapsChan:
			timer.Reset(s.saveSnapsDelay)
		case <-timer.C:
			if err := s.saveSnapshots(); err != nil {
				s.logger.Errorf("storage: error saving snapshots: %v", err)
			}
		case <-s.shutdownChan:
			return
		}
	}
}

func (s *FileStorage) saveGoalsWorker() {
	timer := time.NewTimer(s.saveGoalsDelay)
	defer timer.Stop()

	for {
		select {
		case <-s.saveGoalsChan:
			timer.Reset(s.saveGoalsDelay)
		case <-timer.C:
			if err := s.saveGoals(); err != nil {
				s.logger.Errorf("storage: error saving goals: %v", err)
			}
		case <-s.shutdownChan:
			return
		}
	}
}

func (s *FileStorage) Close() error {
	close(s.shutdownChan)

	// Save pending data synchronously on shutdown
	if err := s.saveSnapshots(); err != nil {
		return err
	}
	if err := s.saveGoals(); err != nil {
		return err
	}
	return nil
}

// --- SnapshotRepository ---

func (s *FileStorage) SaveSnapshot(ctx context.Context, snap internal.DailyMetricSnapshot) error {
	clone := snap.Clone()
	s.mu.Lock()
	if s.snapshots[snap.UserID] == nil {
		s.snapshots[snap.UserID] = make(map[internal.Day]*internal.DailyMetricSnapshot)
	}
	s.snapshots[snap.UserID][snap.Date] = &clone
	s.mu.Unlock()

	select {
	case s.saveSnapsChan <- struct{}{}:
	default:
	}
	return nil
}

func (s *FileStorage) GetSnapshot(ctx context.Context, userID string, day internal.Day) (*internal.DailyMetricSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byDay, ok := s.snapshots[userID]
	if !ok {
		return nil, ErrNotFound
	}
	snap, ok := byDay[day]
	if !ok {
		return nil, ErrNotFound
	}
	clone := snap.Clone()
	return &clone, nil
}

func (s *FileStorage) ListSnapshots(ctx context.Context, userID string) ([]internal.DailyMetricSnapshot, error) {
	s.mu.RLock()
	byDay, ok := s.snapshots[userID]
	if !ok {
		s.mu.RUnlock()
		return []internal.DailyMetricSnapshot{}, nil
	}
	snaps := make([]internal.DailyMetricSnapshot, 0, len(byDay))
	for _, snap := range byDay {
		snaps = append(snaps, snap.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Date < snaps[j].Date })
	return snaps, nil
}

// --- GoalRepository ---

func (s *FileStorage) SetGoalTargets(ctx context.Context, userID string, targets map[internal.MetricKind]float64) error {
	copied := make(map[internal.MetricKind]float64, len(targets))
	for m, t := range targets {
		copied[m] = t
	}
	s.mu.Lock()
	s.goals[userID] = copied
	s.mu.Unlock()

	select {
	case s.saveGoalsChan <- struct{}{}:
	default:
	}
	return nil
}

func (s *FileStorage) GetGoalTargets(ctx context.Context, userID string) (map[internal.MetricKind]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	targets, ok := s.goals[userID]
	if !ok {
		return map[internal.MetricKind]float64{}, nil
	}
	out := make(map[internal.MetricKind]float64, len(targets))
	for m, t := range targets {
		out[m] = t
	}
	return out, nil
}

// --- Compile-time assertions ---
var _ SnapshotRepository = (*FileStorage)(nil)
var _ GoalRepository = (*FileStorage)(nil)

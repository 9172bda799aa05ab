package service

import (
	"context"
	"sync"

	"github.com/SISIR-REDDY/calorie-vita-sub004/internal"
)

// Registry owns one Tracker per authenticated user, created lazily on
// first use. There is no other per-user global state.
type Registry struct {
	build func(internal.User) Options

	mu       sync.Mutex
	trackers map[string]*Tracker
	closed   bool
}

func NewRegistry(build func(internal.User) Options) *Registry {
	return &Registry{
		build:    build,
		trackers: make(map[string]*Tracker),
	}
}

// Tracker returns the user's pipeline, starting it if needed.
func (r *Registry) Tracker(ctx context.Context, user internal.User) (*Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, internal.NewAppError(500, "registry closed")
	}
	if t, ok := r.trackers[user.ID]; ok {
		return t, nil
	}
	t, err := NewTracker(ctx, r.build(user))
	if err != nil {
		return nil, err
	}
	r.trackers[user.ID] = t
	return t, nil
}

// Close shuts down every tracker.
func (r *Registry) Close() {
	r.mu.Lock()
	trackers := make([]*Tracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		trackers = append(trackers, t)
	}
	r.trackers = make(map[string]*Tracker)
	r.closed = true
	r.mu.Unlock()

	for _, t := range trackers {
		t.Close()
	}
}

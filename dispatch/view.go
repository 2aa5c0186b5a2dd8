package dispatch

import (
	"context"
	"sync"

	"fielddispatch/domain"
	"fielddispatch/feed"
)

// TrackerControl is the start/stop surface of the location tracker.
type TrackerControl interface {
	Start(ctx context.Context)
	Stop()
	Running() bool
}

// View is one operator's materialized view of the task set. It keeps a single
// authoritative map of task id to latest snapshot and derives the three
// partitions as pure filters on every event, so the partitions cannot drift.
// It also owns the tracker gating rule: tracking runs iff the operator holds
// at least one active task.
type View struct {
	operatorID string
	tracker    TrackerControl

	mu     sync.Mutex
	tasks  map[string]domain.Task
	parts  domain.Partitions
	status feed.Status
}

func NewView(operatorID string, tracker TrackerControl) *View {
	return &View{
		operatorID: operatorID,
		tracker:    tracker,
		tasks:      make(map[string]domain.Task),
		status:     feed.StatusReconnecting,
	}
}

// Apply folds one feed event into the view. Redelivered events overwrite the
// snapshot with identical data, so duplicates are harmless.
func (v *View) Apply(ctx context.Context, ev domain.FeedEvent) {
	if ev.Row.ID == "" {
		return
	}
	v.mu.Lock()
	v.tasks[ev.Row.ID] = ev.Row
	v.recompute()
	v.mu.Unlock()
	v.gateTracker(ctx)
}

// Resync replaces the whole view from an authoritative task list, used after
// the feed reconnects.
func (v *View) Resync(ctx context.Context, tasks []domain.Task) {
	v.mu.Lock()
	v.tasks = make(map[string]domain.Task, len(tasks))
	for _, t := range tasks {
		v.tasks[t.ID] = t
	}
	v.recompute()
	v.mu.Unlock()
	v.gateTracker(ctx)
}

// Partitions returns the operator's current partitions.
func (v *View) Partitions() domain.Partitions {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.parts
}

// SetFeedStatus records the feed connection state for display. Local state is
// kept as last-known while reconnecting.
func (v *View) SetFeedStatus(st feed.Status) {
	v.mu.Lock()
	v.status = st
	v.mu.Unlock()
}

// FeedStatus returns the last reported feed connection state.
func (v *View) FeedStatus() feed.Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

func (v *View) recompute() {
	v.parts = domain.Partition(v.tasks, v.operatorID)
}

// gateTracker enforces: tracker running iff mine-active is non-empty. Start
// and Stop are idempotent on the tracker side, so recomputing on every event
// cannot leak a second loop.
func (v *View) gateTracker(ctx context.Context) {
	if v.tracker == nil {
		return
	}
	v.mu.Lock()
	active := len(v.parts.MineActive) > 0
	v.mu.Unlock()
	if active {
		v.tracker.Start(ctx)
	} else {
		v.tracker.Stop()
	}
}

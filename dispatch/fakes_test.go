package dispatch

import (
	"context"
	"sync"
	"time"

	"fielddispatch/domain"
)

// fakeStore mimics the table store's conditional-write semantics: a claim
// only succeeds if the driver field is still empty when the write applies.
type fakeStore struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
}

func newFakeStore(tasks ...domain.Task) *fakeStore {
	f := &fakeStore{tasks: make(map[string]domain.Task)}
	for _, t := range tasks {
		f.tasks[t.ID] = t
	}
	return f
}

func (f *fakeStore) GetTask(ctx context.Context, id string) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return t, nil
}

func (f *fakeStore) ListTasks(ctx context.Context) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) ClaimTask(ctx context.Context, taskID, driverID string) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	if t.Assigned() || t.DriverStatus != domain.StatusPending {
		return domain.Task{}, domain.ErrTaskTaken
	}
	t.DriverID = driverID
	t.DriverStatus = domain.StatusAccepted
	t.AcceptedAt = time.Now().UTC().Format(time.RFC3339)
	f.tasks[taskID] = t
	return t, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, taskID, driverID string, next domain.DriverStatus) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	if t.DriverID != driverID {
		return domain.Task{}, domain.ErrNotOwner
	}
	if err := domain.CheckTransition(t.DriverStatus, next); err != nil {
		return domain.Task{}, err
	}
	t.DriverStatus = next
	if next.Terminal() {
		t.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	}
	f.tasks[taskID] = t
	return t, nil
}

func (f *fakeStore) CancelTask(ctx context.Context, taskID string) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	if err := domain.CheckTransition(t.DriverStatus, domain.StatusCancelled); err != nil {
		return domain.Task{}, err
	}
	t.DriverStatus = domain.StatusCancelled
	t.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	f.tasks[taskID] = t
	return t, nil
}

type notification struct {
	operatorID string
	eventType  string
	taskID     string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (f *fakeNotifier) Notify(ctx context.Context, operatorID, eventType, taskID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{operatorID, eventType, taskID})
}

func (f *fakeNotifier) all() []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification(nil), f.sent...)
}

type fakeTracker struct {
	mu      sync.Mutex
	running bool
	starts  int
	stops   int
}

func (f *fakeTracker) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return
	}
	f.running = true
	f.starts++
}

func (f *fakeTracker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return
	}
	f.running = false
	f.stops++
}

func (f *fakeTracker) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

package dispatch

import (
	"context"

	log "github.com/sirupsen/logrus"

	"fielddispatch/domain"
	"fielddispatch/notify"
)

// TaskStore is the conditional-write surface the coordinator relies on. The
// claim operation must be a true compare-and-swap: it succeeds only if the
// task's driver field is still empty at write time.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (domain.Task, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	ClaimTask(ctx context.Context, taskID, driverID string) (domain.Task, error)
	UpdateStatus(ctx context.Context, taskID, driverID string, next domain.DriverStatus) (domain.Task, error)
	CancelTask(ctx context.Context, taskID string) (domain.Task, error)
}

// Notifier delivers best-effort push notifications.
type Notifier interface {
	Notify(ctx context.Context, operatorID, eventType, taskID string)
}

// Service executes dispatch commands against the task store and fires the
// notification side effects. It is stateless; the per-operator View holds the
// local partitions.
type Service struct {
	store    TaskStore
	notifier Notifier
}

func NewService(store TaskStore, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Claim lets the operator take ownership of a pending task. Losing the race
// surfaces as domain.ErrTaskTaken; the caller refetches and the task simply
// stops being available.
func (s *Service) Claim(ctx context.Context, op domain.Operator, taskID string) (domain.Task, error) {
	t, err := s.store.ClaimTask(ctx, taskID, op.ID)
	if err != nil {
		return domain.Task{}, err
	}
	s.notifyAssigned(ctx, t)
	return t, nil
}

// Assign gives a pending task to a specific driver on a dispatcher's behalf.
// The same conditional write applies: a task that is no longer pending is
// rejected.
func (s *Service) Assign(ctx context.Context, op domain.Operator, taskID, driverID string) (domain.Task, error) {
	if !op.HasRole(domain.RoleDispatchManager) {
		return domain.Task{}, domain.ErrUnauthorizedRole
	}
	t, err := s.store.ClaimTask(ctx, taskID, driverID)
	if err != nil {
		return domain.Task{}, err
	}
	s.notifyAssigned(ctx, t)
	return t, nil
}

// AdvanceStatus moves a task the operator owns along the fulfillment graph.
func (s *Service) AdvanceStatus(ctx context.Context, op domain.Operator, taskID string, next domain.DriverStatus) (domain.Task, error) {
	return s.store.UpdateStatus(ctx, taskID, op.ID, next)
}

// Cancel aborts any non-terminal task. Privileged.
func (s *Service) Cancel(ctx context.Context, op domain.Operator, taskID string) (domain.Task, error) {
	if !op.HasRole(domain.RoleDispatchManager) {
		return domain.Task{}, domain.ErrUnauthorizedRole
	}
	return s.store.CancelTask(ctx, taskID)
}

func (s *Service) notifyAssigned(ctx context.Context, t domain.Task) {
	if s.notifier == nil {
		return
	}
	log.WithFields(log.Fields{"task": t.ID, "driver": t.DriverID}).Debug("task assigned")
	s.notifier.Notify(ctx, t.DriverID, notify.EventAssigned, t.ID)
}

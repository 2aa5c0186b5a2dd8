package api

import (
	"context"

	"fielddispatch/domain"
)

// Storage abstracts the task reads and inserts handlers need.
type Storage interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	InsertTask(ctx context.Context, t domain.Task) error
}

// Commander executes dispatch commands on behalf of an operator.
type Commander interface {
	Claim(ctx context.Context, op domain.Operator, taskID string) (domain.Task, error)
	Assign(ctx context.Context, op domain.Operator, taskID, driverID string) (domain.Task, error)
	AdvanceStatus(ctx context.Context, op domain.Operator, taskID string, next domain.DriverStatus) (domain.Task, error)
	Cancel(ctx context.Context, op domain.Operator, taskID string) (domain.Task, error)
}

// Authenticator extracts operator identities from Authorization headers.
type Authenticator interface {
	OperatorFromAuthHeader(string) (domain.Operator, error)
}

package domain

import "errors"

// ErrTaskTaken indicates a claim or assignment lost the race: the task's
// driver field was no longer empty when the conditional write was applied.
var ErrTaskTaken = errors.New("task already taken")

// ErrInvalidTransition indicates a status change that is not an edge of the
// fulfillment state machine. It is rejected locally, before any write.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrNotOwner indicates the caller tried to act on a task owned by someone else.
var ErrNotOwner = errors.New("task owned by another driver")

// ErrTaskNotFound indicates the task id does not exist in the store.
var ErrTaskNotFound = errors.New("task not found")

// ErrConcurrencyConflict indicates that the underlying storage rejected an
// update because the entity changed after it was read.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ErrUnauthorizedRole indicates the caller lacks the role a command requires.
var ErrUnauthorizedRole = errors.New("role not authorized for this action")

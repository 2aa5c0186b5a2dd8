package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"fielddispatch/domain"
)

const feedTable = "tasks"

// Storage provides access to the task table and the durable change-event
// queue. Every successful mutation enqueues a feed event; the relay turns the
// queue into the live feed.
type Storage struct {
	taskTable *aztables.Client
	feedQueue *azqueue.QueueClient
	now       func() time.Time
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable, feedQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	fq, err := azqueue.NewQueueClientFromConnectionString(connStr, feedQueue, nil)
	if err != nil {
		return nil, err
	}
	return &Storage{taskTable: svc.NewClient(tasksTable), feedQueue: fq, now: time.Now}, nil
}

// GetTask retrieves a single task by id.
func (s *Storage) GetTask(ctx context.Context, id string) (domain.Task, error) {
	t, _, err := s.getWithETag(ctx, id)
	return t, err
}

func (s *Storage) getWithETag(ctx context.Context, id string) (domain.Task, azcore.ETag, error) {
	resp, err := s.taskTable.GetEntity(ctx, taskPartition, id, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return domain.Task{}, "", domain.ErrTaskNotFound
		}
		return domain.Task{}, "", err
	}
	ent, err := decodeTaskEntity(resp.Value)
	if err != nil {
		return domain.Task{}, "", err
	}
	return taskFromEntity(ent), resp.ETag, nil
}

// ListTasks retrieves every task in the dispatch partition.
func (s *Storage) ListTasks(ctx context.Context) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + taskPartition + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			ent, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, taskFromEntity(ent))
		}
	}
	return tasks, nil
}

// InsertTask creates a new pending task and emits an insert feed event.
func (s *Storage) InsertTask(ctx context.Context, t domain.Task) error {
	t.DriverID = ""
	t.DriverStatus = domain.StatusPending
	payload, err := json.Marshal(entityFromTask(t))
	if err != nil {
		return err
	}
	if _, err := s.taskTable.AddEntity(ctx, payload, nil); err != nil {
		return err
	}
	s.publishEvent(ctx, domain.OpInsert, t)
	return nil
}

// ClaimTask assigns the task to driverID, provided it is still pending and
// unowned at write time. The precondition is enforced by the table service:
// the merge update carries the ETag observed on read, so a competing claim
// that lands first invalidates this one with a 412. Exactly one concurrent
// claimant wins.
func (s *Storage) ClaimTask(ctx context.Context, taskID, driverID string) (domain.Task, error) {
	t, etag, err := s.getWithETag(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t.Assigned() || t.DriverStatus != domain.StatusPending {
		return domain.Task{}, domain.ErrTaskTaken
	}
	acceptedAt := s.now().UTC().Format(time.RFC3339)
	upd := map[string]any{
		"PartitionKey": taskPartition,
		"RowKey":       taskID,
		"DriverId":     driverID,
		"DriverStatus": string(domain.StatusAccepted),
		"AcceptedAt":   acceptedAt,
	}
	if err := s.mergeWithETag(ctx, upd, etag); err != nil {
		if isPreconditionFailure(err) {
			return domain.Task{}, domain.ErrTaskTaken
		}
		return domain.Task{}, err
	}
	t.DriverID = driverID
	t.DriverStatus = domain.StatusAccepted
	t.AcceptedAt = acceptedAt
	s.publishEvent(ctx, domain.OpUpdate, t)
	return t, nil
}

// UpdateStatus advances the task along the fulfillment graph on behalf of its
// owner. Illegal transitions are rejected before any write is issued.
func (s *Storage) UpdateStatus(ctx context.Context, taskID, driverID string, next domain.DriverStatus) (domain.Task, error) {
	t, etag, err := s.getWithETag(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t.DriverID != driverID {
		return domain.Task{}, domain.ErrNotOwner
	}
	if err := domain.CheckTransition(t.DriverStatus, next); err != nil {
		return domain.Task{}, err
	}
	upd := map[string]any{
		"PartitionKey": taskPartition,
		"RowKey":       taskID,
		"DriverStatus": string(next),
	}
	var completedAt string
	if next.Terminal() {
		completedAt = s.now().UTC().Format(time.RFC3339)
		upd["CompletedAt"] = completedAt
	}
	if err := s.mergeWithETag(ctx, upd, etag); err != nil {
		if isPreconditionFailure(err) {
			return domain.Task{}, fmt.Errorf("task %s: %w", taskID, domain.ErrConcurrencyConflict)
		}
		return domain.Task{}, err
	}
	t.DriverStatus = next
	t.CompletedAt = completedAt
	s.publishEvent(ctx, domain.OpUpdate, t)
	return t, nil
}

// CancelTask moves any non-terminal task to cancelled.
func (s *Storage) CancelTask(ctx context.Context, taskID string) (domain.Task, error) {
	t, etag, err := s.getWithETag(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := domain.CheckTransition(t.DriverStatus, domain.StatusCancelled); err != nil {
		return domain.Task{}, err
	}
	completedAt := s.now().UTC().Format(time.RFC3339)
	upd := map[string]any{
		"PartitionKey": taskPartition,
		"RowKey":       taskID,
		"DriverStatus": string(domain.StatusCancelled),
		"CompletedAt":  completedAt,
	}
	if err := s.mergeWithETag(ctx, upd, etag); err != nil {
		if isPreconditionFailure(err) {
			return domain.Task{}, fmt.Errorf("task %s: %w", taskID, domain.ErrConcurrencyConflict)
		}
		return domain.Task{}, err
	}
	t.DriverStatus = domain.StatusCancelled
	t.CompletedAt = completedAt
	s.publishEvent(ctx, domain.OpUpdate, t)
	return t, nil
}

func (s *Storage) mergeWithETag(ctx context.Context, upd map[string]any, etag azcore.ETag) error {
	payload, err := json.Marshal(upd)
	if err != nil {
		return err
	}
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &etag,
		UpdateMode: aztables.UpdateModeMerge,
	})
	return err
}

func isPreconditionFailure(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == 412 || respErr.StatusCode == 409
	}
	return false
}

// publishEvent records the mutation on the feed queue. The table write has
// already succeeded, so an enqueue failure only delays feed consumers until
// the next full resync; it is logged, not propagated.
func (s *Storage) publishEvent(ctx context.Context, op string, t domain.Task) {
	ev := domain.FeedEvent{Operation: op, Table: feedTable, Row: t}
	data, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).WithField("task", t.ID).Error("marshal feed event")
		return
	}
	if _, err := s.feedQueue.EnqueueMessage(ctx, string(data), nil); err != nil {
		log.WithError(err).WithField("task", t.ID).Error("enqueue feed event")
	}
}

// DequeueFeedEvent retrieves a single raw message from the feed queue.
func (s *Storage) DequeueFeedEvent(ctx context.Context) (*azqueue.DequeuedMessage, error) {
	resp, err := s.feedQueue.DequeueMessage(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	return resp.Messages[0], nil
}

// DeleteFeedEvent removes a relayed message from the feed queue.
func (s *Storage) DeleteFeedEvent(ctx context.Context, id, receipt string) error {
	_, err := s.feedQueue.DeleteMessage(ctx, id, receipt, nil)
	return err
}

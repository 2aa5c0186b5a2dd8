package notify

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
)

// Event types carried in push payloads.
const (
	EventAssigned = "assigned"
)

// pushPayload is the message handed to the push gateway.
type pushPayload struct {
	TaskID           string `json:"task_id"`
	EventType        string `json:"event_type"`
	TargetOperatorID string `json:"target_operator_id"`
}

// messageQueue is the subset of the queue client the dispatcher needs.
type messageQueue interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// Dispatcher delivers best-effort push notifications by enqueueing payloads
// on the push gateway's ingress queue. Notification is outside the task's
// consistency boundary: failures are logged and never propagate to the
// mutation that triggered them, and duplicate sends are acceptable.
type Dispatcher struct {
	queue messageQueue
}

// New creates a Dispatcher publishing to the named queue.
func New(connStr, queueName string) (*Dispatcher, error) {
	qc, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, nil)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{queue: qc}, nil
}

// NewWithQueue creates a Dispatcher over an existing queue client.
func NewWithQueue(queue messageQueue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

// Notify pushes eventType for taskID to all registered devices of operatorID.
func (d *Dispatcher) Notify(ctx context.Context, operatorID, eventType, taskID string) {
	if d == nil || d.queue == nil {
		return
	}
	payload := pushPayload{TaskID: taskID, EventType: eventType, TargetOperatorID: operatorID}
	data, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).WithField("task", taskID).Error("marshal push payload")
		return
	}
	if _, err := d.queue.EnqueueMessage(ctx, string(data), nil); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"task":     taskID,
			"operator": operatorID,
			"event":    eventType,
		}).Warn("push notification failed")
	}
}

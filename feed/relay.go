package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"fielddispatch/domain"
)

// EventSource is the durable side of the change feed, backed by the storage
// queue the task writers enqueue into.
type EventSource interface {
	DequeueFeedEvent(ctx context.Context) (*azqueue.DequeuedMessage, error)
	DeleteFeedEvent(ctx context.Context, id, receipt string) error
}

// Relay drains the feed queue and republishes each event on a Redis channel.
// One message is in flight at a time, which preserves the store's apply order
// per task id. A message is deleted only after a successful publish, so a
// crash in between redelivers it: the feed is at-least-once by construction.
type Relay struct {
	source  EventSource
	rc      *redis.Client
	channel string
	idle    time.Duration
}

func NewRelay(source EventSource, rc *redis.Client, channel string) *Relay {
	return &Relay{source: source, rc: rc, channel: channel, idle: time.Second}
}

// Run pumps the queue until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	for ctx.Err() == nil {
		msg, err := r.source.DequeueFeedEvent(ctx)
		if err != nil {
			log.WithError(err).Error("dequeue feed event")
			r.wait(ctx)
			continue
		}
		if msg == nil {
			r.wait(ctx)
			continue
		}
		r.relayOne(ctx, msg)
	}
}

func (r *Relay) relayOne(ctx context.Context, msg *azqueue.DequeuedMessage) {
	payload := *msg.MessageText
	var ev domain.FeedEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		// Poison message: drop it, replaying it will never succeed.
		log.WithError(err).Warn("dropping unparsable feed message")
		r.delete(ctx, msg)
		return
	}
	if err := r.rc.Publish(ctx, r.channel, payload).Err(); err != nil {
		// Leave the message on the queue; visibility timeout redelivers it.
		log.WithError(err).WithField("task", ev.Row.ID).Error("publish feed event")
		r.wait(ctx)
		return
	}
	r.delete(ctx, msg)
}

func (r *Relay) delete(ctx context.Context, msg *azqueue.DequeuedMessage) {
	if err := r.source.DeleteFeedEvent(ctx, *msg.MessageID, *msg.PopReceipt); err != nil {
		log.WithError(err).Error("delete feed message")
	}
}

func (r *Relay) wait(ctx context.Context) {
	t := time.NewTimer(r.idle)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

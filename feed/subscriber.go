package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"fielddispatch/domain"
)

// Status reflects the health of the feed connection so consumers can render
// a reconnecting indicator while keeping their last-known state.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// HandlerFunc consumes one feed event. Handlers are invoked sequentially:
// an event is processed to completion before the next is delivered, which is
// what lets consumers run check-and-insert dedup without a lock.
type HandlerFunc func(ctx context.Context, ev domain.FeedEvent)

// StatusFunc observes connection state changes.
type StatusFunc func(Status)

// Subscriber consumes the live change feed from a Redis pub/sub channel.
// Delivery is at-least-once: the relay may republish after a partial failure
// and consumers may resubscribe mid-stream.
type Subscriber struct {
	rc         *redis.Client
	channel    string
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewSubscriber(rc *redis.Client, channel string) *Subscriber {
	return &Subscriber{
		rc:         rc,
		channel:    channel,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Run blocks delivering feed events until ctx is cancelled. Connection loss
// is reported through status and followed by a backoff resubscribe, never a
// fatal error.
func (s *Subscriber) Run(ctx context.Context, handler HandlerFunc, status StatusFunc) {
	backoff := s.minBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		sub := s.rc.Subscribe(ctx, s.channel)
		if _, err := sub.Receive(ctx); err != nil {
			sub.Close()
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("feed subscribe failed")
			s.report(status, StatusReconnecting)
			backoff = s.sleep(ctx, backoff)
			continue
		}
		s.report(status, StatusConnected)
		backoff = s.minBackoff

		ch := sub.Channel()
	receive:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break receive
				}
				var ev domain.FeedEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.WithError(err).Warn("unparsable feed event")
					continue
				}
				handler(ctx, ev)
			}
		}
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.Warn("feed channel closed, reconnecting")
		s.report(status, StatusReconnecting)
		backoff = s.sleep(ctx, backoff)
	}
}

func (s *Subscriber) report(status StatusFunc, st Status) {
	if status != nil {
		status(st)
	}
}

func (s *Subscriber) sleep(ctx context.Context, backoff time.Duration) time.Duration {
	t := time.NewTimer(backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	next := backoff * 2
	if next > s.maxBackoff {
		next = s.maxBackoff
	}
	return next
}

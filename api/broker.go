package api

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// UpdateBroker fans a "something changed" signal out to SSE subscribers.
// Signals are coalesced per subscriber; a slow client just re-renders once.
type UpdateBroker struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func NewUpdateBroker() *UpdateBroker {
	return &UpdateBroker{subs: make(map[chan struct{}]struct{})}
}

func (b *UpdateBroker) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *UpdateBroker) unsubscribe(ch chan struct{}) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Notify wakes every subscriber.
func (b *UpdateBroker) Notify() {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.mu.Unlock()
}

// NotifyFromFeed subscribes the broker to the feed channel so SSE clients
// re-render on every task mutation. A lost subscription is resubscribed with
// backoff; the broker outlives any single pub/sub connection. It blocks until
// ctx is cancelled.
func (b *UpdateBroker) NotifyFromFeed(ctx context.Context, rc *redis.Client, channel string) {
	const (
		minBackoff = time.Second
		maxBackoff = 30 * time.Second
	)
	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		sub := rc.Subscribe(ctx, channel)
		if _, err := sub.Receive(ctx); err != nil {
			sub.Close()
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("broker feed subscribe failed")
			backoff = sleepBackoff(ctx, backoff, maxBackoff)
			continue
		}
		backoff = minBackoff

		ch := sub.Channel()
	receive:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case _, ok := <-ch:
				if !ok {
					break receive
				}
				b.Notify()
			}
		}
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.Warn("broker feed channel closed, resubscribing")
		backoff = sleepBackoff(ctx, backoff, maxBackoff)
	}
}

func sleepBackoff(ctx context.Context, backoff, max time.Duration) time.Duration {
	t := time.NewTimer(backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	next := backoff * 2
	if next > max {
		next = max
	}
	return next
}

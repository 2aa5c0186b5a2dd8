package api

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// publishUntilReceived retries until the broker's subscription is live; the
// publish count tells us a subscriber actually got the message.
func publishUntilReceived(t *testing.T, rc *redis.Client, channel string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if n, err := rc.Publish(context.Background(), channel, "x").Result(); err == nil && n > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("no subscriber on %q", channel)
}

func TestNotifyFromFeedSignalsSubscribers(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := NewUpdateBroker()
	go broker.NotifyFromFeed(ctx, rc, "task-feed")
	sig := broker.subscribe()
	defer broker.unsubscribe(sig)

	publishUntilReceived(t, rc, "task-feed")
	select {
	case <-sig:
	case <-time.After(2 * time.Second):
		t.Fatalf("subscriber not signalled")
	}
}

func TestNotifyFromFeedResubscribesAfterDisconnect(t *testing.T) {
	m := miniredis.NewMiniRedis()
	if err := m.Start(); err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := m.Addr()
	rc := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := NewUpdateBroker()
	go broker.NotifyFromFeed(ctx, rc, "task-feed")
	sig := broker.subscribe()
	defer broker.unsubscribe(sig)

	publishUntilReceived(t, rc, "task-feed")
	select {
	case <-sig:
	case <-time.After(2 * time.Second):
		t.Fatalf("subscriber not signalled before disconnect")
	}

	// Drop the server; the broker's pub/sub channel closes and it must come
	// back on its own once the server is reachable again.
	m.Close()
	restarted := miniredis.NewMiniRedis()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := restarted.StartAddr(addr); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("could not rebind %s", addr)
		}
		time.Sleep(50 * time.Millisecond)
	}
	defer restarted.Close()

	publishUntilReceived(t, rc, "task-feed")
	select {
	case <-sig:
	case <-time.After(5 * time.Second):
		t.Fatalf("subscriber not signalled after resubscribe")
	}
}

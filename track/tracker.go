package track

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Position is one device location sample.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	At  string  `json:"at"`
}

// PositionFunc reads the device's current coordinates.
type PositionFunc func() (lat, lng float64, err error)

// Tracker periodically reports the operator's position to the location sink
// while they hold at least one active task. Start and Stop are idempotent:
// the coordinator recomputes the gating predicate on every feed event and may
// call either side repeatedly without leaking a second loop.
type Tracker struct {
	rc       *redis.Client
	driverID string
	position PositionFunc
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

func New(rc *redis.Client, driverID string, position PositionFunc, interval, ttl time.Duration) *Tracker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Tracker{
		rc:       rc,
		driverID: driverID,
		position: position,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Running reports whether the reporting loop is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Start begins the reporting loop. A second Start while running is a no-op.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true
	go t.loop(loopCtx)
	log.WithField("driver", t.driverID).Info("location tracking started")
}

// Stop halts the reporting loop. Stopping an idle tracker is a no-op.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.cancel()
	t.cancel = nil
	t.running = false
	log.WithField("driver", t.driverID).Info("location tracking stopped")
}

func (t *Tracker) loop(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	t.report(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.report(ctx)
		}
	}
}

// report sends one sample. Failures are logged and the loop keeps going;
// location is a side channel, never a blocking error.
func (t *Tracker) report(ctx context.Context) {
	lat, lng, err := t.position()
	if err != nil {
		log.WithError(err).WithField("driver", t.driverID).Warn("read position")
		return
	}
	sample := Position{Lat: lat, Lng: lng, At: t.now().UTC().Format(time.RFC3339)}
	data, err := json.Marshal(sample)
	if err != nil {
		log.WithError(err).WithField("driver", t.driverID).Error("marshal position")
		return
	}
	if err := t.rc.Set(ctx, positionKey(t.driverID), data, t.ttl).Err(); err != nil {
		log.WithError(err).WithField("driver", t.driverID).Warn("report position")
	}
}

func positionKey(driverID string) string {
	return "pos:" + driverID
}

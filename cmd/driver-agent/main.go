package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"fielddispatch/dispatch"
	"fielddispatch/feed"
	"fielddispatch/internal/redisconn"
	"fielddispatch/storage"
	"fielddispatch/track"
)

// gpsSample is the fix format written by the on-device GPS bridge.
type gpsSample struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func filePosition(path string) track.PositionFunc {
	return func() (float64, float64, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, 0, err
		}
		var sample gpsSample
		if err := sonic.Unmarshal(data, &sample); err != nil {
			return 0, 0, err
		}
		return sample.Lat, sample.Lng, nil
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	driverID := os.Getenv("DRIVER_ID")
	if driverID == "" {
		log.Fatal("missing DRIVER_ID")
	}
	log.WithField("driver", driverID).Info("driver agent starting")

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTableName := os.Getenv("TASKS_TABLE")
	feedQueueName := os.Getenv("FEED_QUEUE")
	if connStr == "" || tasksTableName == "" || feedQueueName == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, tasksTableName, feedQueueName)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	rc := redis.NewClient(redisconn.Options(redisConn))
	feedChannel := os.Getenv("FEED_CHANNEL")
	if feedChannel == "" {
		feedChannel = "task-feed"
	}

	gpsSource := os.Getenv("GPS_SOURCE")
	if gpsSource == "" {
		log.Fatal("missing GPS_SOURCE")
	}
	interval := 30 * time.Second
	if v := os.Getenv("TRACK_INTERVAL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("invalid TRACK_INTERVAL_SECONDS: %v", err)
		}
		interval = time.Duration(n) * time.Second
	}
	tracker := track.New(rc, driverID, filePosition(gpsSource), interval, 0)

	view := dispatch.NewView(driverID, tracker)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resync := func() {
		tasks, err := store.ListTasks(ctx)
		if err != nil {
			log.WithError(err).Warn("resync task list")
			return
		}
		view.Resync(ctx, tasks)
	}
	resync()

	sub := feed.NewSubscriber(rc, feedChannel)
	sub.Run(ctx, view.Apply, func(st feed.Status) {
		view.SetFeedStatus(st)
		log.WithField("status", st).Info("feed status changed")
		// Events published while we were disconnected are gone from the
		// live channel, so every reconnect refetches the full task list.
		if st == feed.StatusConnected {
			resync()
		}
	})
	tracker.Stop()
	log.Info("driver agent stopped")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"fielddispatch/feed"
	"fielddispatch/internal/redisconn"
	"fielddispatch/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("feed relay starting")

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed.NewRelay(store, rc, feedChannel).Run(ctx)
	log.Info("feed relay stopped")
}

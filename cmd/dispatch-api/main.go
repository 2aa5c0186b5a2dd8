package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/MicahParks/keyfunc"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"fielddispatch/api"
	"fielddispatch/dispatch"
	"fielddispatch/internal/redisconn"
	"fielddispatch/notify"
	"fielddispatch/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTableName := os.Getenv("TASKS_TABLE")
	feedQueueName := os.Getenv("FEED_QUEUE")
	pushQueueName := os.Getenv("PUSH_QUEUE")
	if connStr == "" || tasksTableName == "" || feedQueueName == "" || pushQueueName == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, tasksTableName, feedQueueName)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	notifier, err := notify.New(connStr, pushQueueName)
	if err != nil {
		log.Fatalf("push queue: %v", err)
	}
	svc := dispatch.NewService(store, notifier)

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	rc := redis.NewClient(redisconn.Options(redisConn))
	feedChannel := os.Getenv("FEED_CHANNEL")
	if feedChannel == "" {
		feedChannel = "task-feed"
	}

	testMode := os.Getenv("AUTH_TEST_MODE") == "1"
	var auth *api.Auth
	if testMode {
		auth = api.NewAuth(nil, "", "")
	} else {
		jwtAudience := os.Getenv("AUTH_AUDIENCE")
		domain := os.Getenv("AUTH_DOMAIN")
		if jwtAudience == "" || domain == "" {
			log.Fatal("missing auth config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, jwtAudience, "https://"+domain+"/")
	}

	broker := api.NewUpdateBroker()
	go broker.NotifyFromFeed(context.Background(), rc, feedChannel)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	logger := log.New()
	api.Register(e, store, svc, auth, broker, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("DISPATCH_API_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

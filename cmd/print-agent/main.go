package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"fielddispatch/feed"
	"fielddispatch/internal/redisconn"
	"fielddispatch/printer"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("print agent starting")

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	rc := redis.NewClient(redisconn.Options(redisConn))
	feedChannel := os.Getenv("FEED_CHANNEL")
	if feedChannel == "" {
		feedChannel = "task-feed"
	}

	printerAddr := os.Getenv("PRINTER_ADDR")
	if printerAddr == "" {
		log.Fatal("missing PRINTER_ADDR")
	}
	conn := printer.NewConnection(printer.NewTCPDriver(printerAddr, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The station keeps running without a printer; tasks pile up in the
	// pending queue until the operator reconnects.
	if err := conn.Connect(ctx); err != nil {
		log.WithError(err).Warn("printer unavailable at startup")
	}

	autoPrint := true
	if v := os.Getenv("AUTO_PRINT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Fatalf("invalid AUTO_PRINT: %v", err)
		}
		autoPrint = b
	}
	logCapacity := 200
	if v := os.Getenv("PRINT_LOG_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("invalid PRINT_LOG_CAPACITY: %v", err)
		}
		logCapacity = n
	}
	agent := printer.NewAgent(conn, logCapacity, autoPrint)

	sub := feed.NewSubscriber(rc, feedChannel)
	go sub.Run(ctx, agent.HandleEvent, func(st feed.Status) {
		log.WithField("status", st).Info("feed status changed")
	})

	e := echo.New()
	printer.Register(e, agent)

	listenAddr := ":9100"
	if val, ok := os.LookupEnv("PRINT_AGENT_PORT"); ok {
		listenAddr = ":" + val
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		e.Shutdown(shutdownCtx)
	}()
	if err := e.Start(listenAddr); err != nil {
		log.WithError(err).Info("print agent stopped")
	}
}

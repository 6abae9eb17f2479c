package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/config"
	"github.com/md-rashed-zaman/roombook/libs/db"
	"github.com/md-rashed-zaman/roombook/libs/httpx"
	"github.com/md-rashed-zaman/roombook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/roombook/libs/otel"
	"github.com/md-rashed-zaman/roombook/libs/runtime"
	"github.com/md-rashed-zaman/roombook/services/analytics-service/internal/consumer"
	"github.com/md-rashed-zaman/roombook/services/analytics-service/internal/handlers"
	"github.com/md-rashed-zaman/roombook/services/analytics-service/internal/inbox"
	"github.com/md-rashed-zaman/roombook/services/analytics-service/internal/usage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "analytics-service")
	port, err := config.Port("PORT", "8086")
	if err != nil {
		panic(err)
	}
	startHour, err := config.Int("START_HOUR", 9)
	if err != nil {
		panic(err)
	}
	endHour, err := config.Int("END_HOUR", 22)
	if err != nil {
		panic(err)
	}
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		panic(fmt.Sprintf("invalid bookable window %d-%d", startHour, endHour))
	}
	rooms := config.List("ROOMS", defaultRooms())
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := usage.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		logger.Error("schema migration failed", "err", err)
		panic(err)
	}

	brokers := config.String("KAFKA_BROKERS", "")
	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if len(kafkax.SplitBrokers(brokers)) > 0 {
		cfg := consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "analytics-service"),
			Topics:  usage.Topics,
		}
		c := consumer.New(logger, consumer.NewReader(cfg), pool, inbox.NewRepository(), cfg, usage.NewHandler(repo, logger))
		go c.Run(ctx)
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	} else {
		logger.Warn("KAFKA_BROKERS unset; booking events are not consumed")
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Register(mux, handlers.NewUsageHandler(repo, rooms, (endHour-startHour)*60, logger))

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "analytics")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger, 10*time.Second)
}

func defaultRooms() []string {
	rooms := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		rooms = append(rooms, fmt.Sprintf("Mentoring Room %d", i))
	}
	return rooms
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/db"
	"github.com/md-rashed-zaman/roombook/libs/httpx"
	"github.com/md-rashed-zaman/roombook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/roombook/libs/otel"
	"github.com/md-rashed-zaman/roombook/libs/runtime"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var checks []runtime.ReadyCheck
	store, storeChecks, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()
	checks = append(checks, storeChecks...)

	limit, limitChecks, closeLimiter := openLimiter(cfg, logger)
	defer closeLimiter()
	checks = append(checks, limitChecks...)

	if cfg.admin.Password == "" || cfg.admin.Secret == "" {
		logger.Warn("admin endpoints disabled (ADMIN_PASSWORD or JWT_SECRET unset)")
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Register(mux,
		handlers.NewBookingHandler(store, cfg.calendar, logger),
		handlers.NewAdminHandler(store, cfg.admin, logger),
		limit,
	)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{AllowedOrigins: cfg.corsOrigins, MaxAge: 10 * time.Minute}),
		httpx.WithBodyLimit(64<<10),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger, 10*time.Second)
}

// openStore picks Postgres when DATABASE_URL is set and the in-memory store otherwise.
func openStore(ctx context.Context, cfg serviceConfig, logger *slog.Logger) (storage.Store, []runtime.ReadyCheck, func()) {
	if cfg.databaseURL == "" {
		mem, err := storage.NewMemoryStore(storage.MemoryOptions{
			Path:        cfg.localStorePath,
			Instructors: cfg.instructors,
		})
		if err != nil {
			logger.Error("local store open failed", "err", err, "path", cfg.localStorePath)
			panic(err)
		}
		logger.Warn("DATABASE_URL unset; using in-memory store", "path", cfg.localStorePath)
		return mem, nil, func() {}
	}

	pool, err := db.Open(ctx, cfg.databaseURL, db.Options{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	outboxRepo := outbox.NewRepository()
	pg := storage.NewPostgresStore(pool, outboxRepo)
	if err := pg.Migrate(ctx); err != nil {
		logger.Error("schema migration failed", "err", err)
		panic(err)
	}
	if err := pg.SeedInstructors(ctx, cfg.instructors); err != nil {
		logger.Error("instructor seed failed", "err", err)
	}

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   cfg.kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if publisher.Enabled() {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.kafkaBrokers)})
	}
	return pg, checks, pool.Close
}

// openLimiter shares limits across replicas through Redis when REDIS_ADDR is set.
func openLimiter(cfg serviceConfig, logger *slog.Logger) (httpx.Middleware, []runtime.ReadyCheck, func()) {
	if cfg.ratePerMinute <= 0 {
		return nil, nil, func() {}
	}
	if cfg.redisAddr == "" {
		return httpx.RateLimit(httpx.NewMemoryRateLimiter(cfg.ratePerMinute), logger, true), nil, func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
	limiter := httpx.NewRedisRateLimiter(rdb, cfg.ratePerMinute, time.Minute, "roombook:ratelimit:")
	checks := []runtime.ReadyCheck{{Name: "redis", Check: httpx.RedisReadyCheck(rdb)}}
	return httpx.RateLimit(limiter, logger, true), checks, func() { _ = rdb.Close() }
}

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/globetrace/internal/adapters/http"
	natsadapter "github.com/samirrijal/globetrace/internal/adapters/nats"
	"github.com/samirrijal/globetrace/internal/adapters/postgres"
	"github.com/samirrijal/globetrace/internal/adapters/valkey"
	"github.com/samirrijal/globetrace/internal/bootstrap"
	"github.com/samirrijal/globetrace/internal/core/ports"
	"github.com/samirrijal/globetrace/internal/core/usecases"
	"github.com/samirrijal/globetrace/internal/pkg/config"
	"github.com/samirrijal/globetrace/internal/pkg/logging"
	"github.com/samirrijal/globetrace/internal/pkg/metrics"
	"github.com/samirrijal/globetrace/internal/pkg/telemetry"
	"github.com/samirrijal/globetrace/internal/workflows"
)

var version = "dev"

func main() {
	cfg, err := config.Load("globetrace-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	var (
		db   *postgres.DB
		repo ports.TraceRepository
	)
	if cfg.Database.Enabled {
		db, err = postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		applied, err := db.Migrate(ctx)
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
		slog.Info("migrations applied", "files", applied)
		repo = postgres.NewTraceRepo(db)
		go reportPoolStats(ctx, db)
	}

	// Cache
	var (
		cache      *valkey.Cache
		traceCache ports.CacheService
	)
	if cfg.Valkey.Enabled {
		cache, err = valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer cache.Close()
			traceCache = cache
		}
	}

	// NATS
	var (
		events   ports.EventPublisher
		natsConn *nats.Conn
	)
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
		}

		// Raw NATS connection for WebSocket relay
		natsConn, err = natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer natsConn.Close()
		}
	}

	// Geolocation
	provider, closeGeo, err := bootstrap.Geolocator(cfg.Geo)
	if err != nil {
		log.Fatalf("geolocation: %v", err)
	}
	defer closeGeo()

	// Use cases
	geoSvc := usecases.NewGeolocationService(provider, traceCache, cfg.Geo.CacheTTLSeconds, cfg.Geo.Concurrency)
	traceSvc := usecases.NewTraceService(bootstrap.Tracer(cfg.Traceroute), geoSvc, repo, events)
	if traceCache != nil {
		traceSvc.WithCache(traceCache, 0)
	}
	sceneSvc := usecases.NewSceneService(bootstrap.RenderContext(cfg.Globe), traceSvc)

	// Traces run by the worker arrive as done events; keep them warm in cache.
	if cfg.NATS.Enabled && traceCache != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			if err := sub.SubscribeTraceEvents(ctx, "globetrace-api", traceSvc.HandleEvent); err != nil {
				slog.Warn("trace event subscription failed", "error", err)
			}
		}
	}

	deps := &http.Dependencies{
		Scenes:  sceneSvc,
		Traces:  traceSvc,
		Geo:     geoSvc,
		NATS:    natsConn,
		DB:      db,
		Cache:   cache,
		Version: version,
	}

	// Temporal
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			slog.Warn("temporal unavailable, async traces disabled", "error", err)
		} else {
			defer tc.Close()
			deps.Scheduler = workflows.NewScheduler(tc, cfg.Temporal.TaskQueue,
				time.Duration(cfg.Traceroute.TimeoutSeconds)*time.Second)
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "globetrace API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps, http.RouteOptions{
		TraceTimeout: time.Duration(cfg.Traceroute.TimeoutSeconds+15) * time.Second,
	})

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}

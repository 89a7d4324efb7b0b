package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/globetrace/internal/adapters/nats"
	"github.com/samirrijal/globetrace/internal/adapters/postgres"
	"github.com/samirrijal/globetrace/internal/adapters/valkey"
	"github.com/samirrijal/globetrace/internal/bootstrap"
	"github.com/samirrijal/globetrace/internal/core/ports"
	"github.com/samirrijal/globetrace/internal/core/usecases"
	"github.com/samirrijal/globetrace/internal/pkg/config"
	"github.com/samirrijal/globetrace/internal/pkg/logging"
	"github.com/samirrijal/globetrace/internal/pkg/telemetry"
	"github.com/samirrijal/globetrace/internal/workflows"
)

func main() {
	cfg, err := config.Load("globetrace-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	var repo ports.TraceRepository
	if cfg.Database.Enabled {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewTraceRepo(db)
	}

	var events ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
		}
	}

	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		c, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer c.Close()
			cache = c
		}
	}

	provider, closeGeo, err := bootstrap.Geolocator(cfg.Geo)
	if err != nil {
		log.Fatalf("geolocation: %v", err)
	}
	defer closeGeo()

	geoSvc := usecases.NewGeolocationService(provider, cache, cfg.Geo.CacheTTLSeconds, cfg.Geo.Concurrency)
	traceSvc := usecases.NewTraceService(bootstrap.Tracer(cfg.Traceroute), geoSvc, repo, events)
	if cache != nil {
		traceSvc.WithCache(cache, 0)
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.TraceWorkflow)
	w.RegisterActivity(&workflows.TraceActivities{Traces: traceSvc})

	slog.Info("trace worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

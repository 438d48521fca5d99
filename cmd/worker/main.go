package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/rucachi/NGII-ICUH/internal/adapters/geotiff"
	natsadapter "github.com/rucachi/NGII-ICUH/internal/adapters/nats"
	"github.com/rucachi/NGII-ICUH/internal/adapters/postgres"
	"github.com/rucachi/NGII-ICUH/internal/adapters/valkey"
	"github.com/rucachi/NGII-ICUH/internal/core/ports"
	"github.com/rucachi/NGII-ICUH/internal/core/sites"
	"github.com/rucachi/NGII-ICUH/internal/core/usecases"
	"github.com/rucachi/NGII-ICUH/internal/pkg/config"
	"github.com/rucachi/NGII-ICUH/internal/pkg/logging"
	"github.com/rucachi/NGII-ICUH/internal/workflows"
)

func main() {
	cfg, err := config.Load("ngii-icuh-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx := context.Background()

	// DEM — required for the compute activity
	dem, err := geotiff.OpenDEM(cfg.DEM.Path, cfg.DEM.Proj4)
	if err != nil {
		log.Fatalf("dem: %v", err)
	}
	defer dem.Close()

	rasters, err := geotiff.NewWriter(cfg.DEM.OutputDir)
	if err != nil {
		log.Fatalf("raster output: %v", err)
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	var cacheSvc ports.CacheService
	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS lifecycle events
	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	analysisSvc := usecases.NewAnalysisService(
		dem, rasters,
		postgres.NewRunRepo(db), postgres.NewCandidateRepo(db),
		cacheSvc, events,
		sites.Options{
			ScoreThreshold:   cfg.Analysis.ScoreThreshold,
			MinSpacingMeters: cfg.Analysis.MinSpacingMeters,
			MaxCandidates:    cfg.Analysis.MaxCandidates,
		},
	)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.AnalysisWorkflow)
	w.RegisterActivity(&workflows.AnalysisActivities{
		Analysis: analysisSvc,
	})

	log.Println("analysis worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

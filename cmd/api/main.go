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
	"go.temporal.io/sdk/client"

	"github.com/rucachi/NGII-ICUH/internal/adapters/elevation"
	"github.com/rucachi/NGII-ICUH/internal/adapters/geotiff"
	"github.com/rucachi/NGII-ICUH/internal/adapters/http"
	natsadapter "github.com/rucachi/NGII-ICUH/internal/adapters/nats"
	"github.com/rucachi/NGII-ICUH/internal/adapters/postgres"
	"github.com/rucachi/NGII-ICUH/internal/adapters/shapefile"
	"github.com/rucachi/NGII-ICUH/internal/adapters/valkey"
	"github.com/rucachi/NGII-ICUH/internal/core/ports"
	"github.com/rucachi/NGII-ICUH/internal/core/sites"
	"github.com/rucachi/NGII-ICUH/internal/core/usecases"
	"github.com/rucachi/NGII-ICUH/internal/pkg/config"
	"github.com/rucachi/NGII-ICUH/internal/pkg/logging"
	"github.com/rucachi/NGII-ICUH/internal/pkg/telemetry"
	"github.com/rucachi/NGII-ICUH/internal/workflows"
)

// temporalLauncher dispatches runs as Temporal workflows.
type temporalLauncher struct {
	c         client.Client
	taskQueue string
}

func (l *temporalLauncher) LaunchRun(ctx context.Context, runID string) error {
	_, err := l.c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "analysis-" + runID,
		TaskQueue: l.taskQueue,
	}, workflows.AnalysisWorkflow, workflows.AnalysisInput{RunID: runID})
	return err
}

// inlineLauncher executes runs in-process when no Temporal cluster is
// configured (local development).
type inlineLauncher struct {
	analysis *usecases.AnalysisService
}

func (l *inlineLauncher) LaunchRun(ctx context.Context, runID string) error {
	go func() {
		bg := context.Background()
		res, paths, err := l.analysis.ExecuteRun(bg, runID)
		if err != nil {
			_ = l.analysis.FailRun(bg, runID, err.Error())
			return
		}
		if err := l.analysis.StoreResults(bg, runID, res); err != nil {
			l.analysis.RemoveRasters(bg, paths)
			_ = l.analysis.FailRun(bg, runID, err.Error())
		}
	}()
	return nil
}

func main() {
	cfg, err := config.Load("ngii-icuh-api")
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

	// DEM — required
	dem, err := geotiff.OpenDEM(cfg.DEM.Path, cfg.DEM.Proj4)
	if err != nil {
		log.Fatalf("dem: %v", err)
	}
	defer dem.Close()

	rasters, err := geotiff.NewWriter(cfg.DEM.OutputDir)
	if err != nil {
		log.Fatalf("raster output: %v", err)
	}

	// Elevation tileset fallback — optional
	var tiles ports.PointElevationSource
	if cfg.Tileset.Enabled {
		ts, err := elevation.Open(cfg.Tileset.Dir)
		if err != nil {
			slog.Warn("elevation tileset unavailable", "error", err)
		} else {
			tiles = ts
		}
	}

	// Watershed layer — optional
	var sheds ports.WatershedRepository
	if cfg.Watershed.ShapefilePath != "" {
		store, err := shapefile.Load(cfg.Watershed.ShapefilePath, shapefile.Options{
			CodeColumn: cfg.Watershed.CodeColumn,
			NameColumn: cfg.Watershed.NameColumn,
		}, slog.Default())
		if err != nil {
			slog.Warn("watershed layer unavailable", "error", err)
		} else {
			sheds = store
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	runRepo := postgres.NewRunRepo(db)
	candRepo := postgres.NewCandidateRepo(db)

	// Use cases
	analysisSvc := usecases.NewAnalysisService(dem, rasters, runRepo, candRepo, cacheSvc, events, sites.Options{
		ScoreThreshold:   cfg.Analysis.ScoreThreshold,
		MinSpacingMeters: cfg.Analysis.MinSpacingMeters,
		MaxCandidates:    cfg.Analysis.MaxCandidates,
		MaxAOICells:      cfg.Analysis.MaxAOICells,
	})
	querySvc := usecases.NewQueryService(dem, tiles, cacheSvc)
	var shedSvc *usecases.WatershedService
	if sheds != nil {
		shedSvc = usecases.NewWatershedService(sheds, cacheSvc)
	}
	reportSvc := usecases.NewReportService()

	// Run dispatch: Temporal when reachable, in-process otherwise
	var launcher http.RunLauncher
	tc, err := client.Dial(client.Options{HostPort: cfg.Temporal.HostPort})
	if err != nil {
		slog.Warn("temporal unavailable, executing runs in-process", "error", err)
		launcher = &inlineLauncher{analysis: analysisSvc}
	} else {
		defer tc.Close()
		launcher = &temporalLauncher{c: tc, taskQueue: cfg.Temporal.TaskQueue}
	}

	deps := &http.Dependencies{
		Analysis:   analysisSvc,
		Query:      querySvc,
		Watersheds: shedSvc,
		Reports:    reportSvc,
		Launcher:   launcher,
		DEM:        dem,
		NATS:       natsConn,
		DB:         db,
		Cache:      cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // AOI polygons can carry many vertices
		AppName:      "Terrain Suitability API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

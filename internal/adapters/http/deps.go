package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/rucachi/NGII-ICUH/internal/adapters/postgres"
	"github.com/rucachi/NGII-ICUH/internal/adapters/valkey"
	"github.com/rucachi/NGII-ICUH/internal/core/ports"
	"github.com/rucachi/NGII-ICUH/internal/core/usecases"
)

// RunLauncher dispatches an accepted analysis run to the execution backend
// (Temporal in production, an inline goroutine in tests).
type RunLauncher interface {
	LaunchRun(ctx context.Context, runID string) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Analysis   *usecases.AnalysisService
	Query      *usecases.QueryService
	Watersheds *usecases.WatershedService
	Reports    *usecases.ReportService
	Launcher   RunLauncher
	DEM        ports.DEMSource
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
}

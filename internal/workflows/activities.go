package workflows

import (
	"context"
	"fmt"
	"log"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
	"github.com/rucachi/NGII-ICUH/internal/core/usecases"
)

// AnalysisActivities holds the activity implementations for the analysis
// workflow.
type AnalysisActivities struct {
	Analysis *usecases.AnalysisService
}

// RunTerrainAnalysis clips the DEM to the run's AOI, computes the terrain
// metrics, and evaluates candidate sites.
func (a *AnalysisActivities) RunTerrainAnalysis(ctx context.Context, runID string) (*AnalysisOutput, error) {
	res, paths, err := a.Analysis.ExecuteRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("execute run %s: %w", runID, err)
	}
	return &AnalysisOutput{Result: *res, RasterPaths: paths}, nil
}

// StoreRunResults persists the candidates and marks the run completed.
func (a *AnalysisActivities) StoreRunResults(ctx context.Context, runID string, res domain.AnalysisResult) error {
	if err := a.Analysis.StoreResults(ctx, runID, &res); err != nil {
		return fmt.Errorf("store results for run %s: %w", runID, err)
	}
	return nil
}

// CleanupRasters removes derived raster files (saga compensation / rollback).
func (a *AnalysisActivities) CleanupRasters(ctx context.Context, paths []string) error {
	a.Analysis.RemoveRasters(ctx, paths)
	log.Printf("removed %d derived rasters (saga compensation)", len(paths))
	return nil
}

// MarkRunFailed records the failure on the run.
func (a *AnalysisActivities) MarkRunFailed(ctx context.Context, runID, errMsg string) error {
	if err := a.Analysis.FailRun(ctx, runID, errMsg); err != nil {
		return fmt.Errorf("mark run %s failed: %w", runID, err)
	}
	return nil
}

// Package workflows orchestrates asynchronous analysis runs with Temporal.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

// TaskQueue is the Temporal task queue shared by the API and the worker.
const TaskQueue = "terrain-analysis-queue"

// AnalysisInput is the input for the analysis workflow.
type AnalysisInput struct {
	RunID string
}

// AnalysisOutput carries the computed result between activities.
type AnalysisOutput struct {
	Result      domain.AnalysisResult
	RasterPaths []string
}

// AnalysisWorkflow executes a terrain-suitability run: compute the metrics
// and candidates, then persist them. If persistence fails, the derived
// rasters written during the compute step are removed and the run is marked
// failed (saga compensation).
func AnalysisWorkflow(ctx workflow.Context, input AnalysisInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting analysis workflow", "runID", input.RunID)

	actOpts := workflow.ActivityOptions{
		// Large AOIs take minutes: clipping, flow accumulation, scoring.
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: compute terrain metrics and evaluate candidates
	var out AnalysisOutput
	err := workflow.ExecuteActivity(ctx, "RunTerrainAnalysis", input.RunID).Get(ctx, &out)
	if err != nil {
		_ = workflow.ExecuteActivity(ctx, "MarkRunFailed", input.RunID, err.Error()).Get(ctx, nil)
		return err
	}

	// Step 2: persist candidates and close the run
	err = workflow.ExecuteActivity(ctx, "StoreRunResults", input.RunID, out.Result).Get(ctx, nil)
	if err != nil {
		logger.Warn("persist failed, compensating", "error", err)
		// Compensate: remove derived rasters, mark the run failed
		_ = workflow.ExecuteActivity(ctx, "CleanupRasters", out.RasterPaths).Get(ctx, nil)
		_ = workflow.ExecuteActivity(ctx, "MarkRunFailed", input.RunID, err.Error()).Get(ctx, nil)
		return err
	}

	logger.Info("Analysis workflow completed",
		"runID", input.RunID, "candidates", len(out.Result.Candidates))
	return nil
}

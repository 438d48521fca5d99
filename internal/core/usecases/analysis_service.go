package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
	"github.com/rucachi/NGII-ICUH/internal/core/ports"
	"github.com/rucachi/NGII-ICUH/internal/core/sites"
	"github.com/rucachi/NGII-ICUH/internal/core/terrain"
	"github.com/rucachi/NGII-ICUH/internal/pkg/metrics"
)

// AnalysisService runs the terrain-suitability pipeline over an AOI:
// clip DEM, derive metrics, score cells, cluster candidates.
type AnalysisService struct {
	dem     ports.DEMSource
	rasters ports.RasterWriter
	runs    ports.AnalysisRunRepository
	cands   ports.CandidateRepository
	cache   ports.CacheService
	events  ports.EventPublisher
	opts    sites.Options
}

// NewAnalysisService wires the pipeline. rasters, runs, cands, cache, and
// events may be nil; the corresponding side effects are skipped.
func NewAnalysisService(
	dem ports.DEMSource,
	rasters ports.RasterWriter,
	runs ports.AnalysisRunRepository,
	cands ports.CandidateRepository,
	cache ports.CacheService,
	events ports.EventPublisher,
	opts sites.Options,
) *AnalysisService {
	if opts.ScoreThreshold <= 0 {
		opts = sites.DefaultOptions()
	}
	return &AnalysisService{
		dem: dem, rasters: rasters, runs: runs, cands: cands,
		cache: cache, events: events, opts: opts,
	}
}

// AnalyzeAOI runs the pipeline synchronously for one AOI polygon.
// Results for identical geometries are served from cache.
func (s *AnalysisService) AnalyzeAOI(ctx context.Context, g domain.Geometry) (*domain.AnalysisResult, error) {
	if s.dem == nil {
		return nil, domain.ErrNoDEM
	}
	if _, err := g.PolygonRings(); err != nil {
		return nil, err
	}

	cacheKey := aoiCacheKey(g)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var res domain.AnalysisResult
			if err := json.Unmarshal(data, &res); err == nil {
				metrics.CacheHits.WithLabelValues("analyze_aoi").Inc()
				return &res, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("analyze_aoi").Inc()
	}

	res, _, err := s.analyze(ctx, g, s.opts.MaxAOICells)
	if err != nil {
		return nil, err
	}

	// Analyses are deterministic for a given DEM, so a long TTL is safe.
	if s.cache != nil {
		if data, err := json.Marshal(res); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 3600)
		}
	}
	return res, nil
}

// analyze is the shared pipeline body. It returns the result and the paths
// of any derived rasters written. maxCells > 0 rejects oversized clips; the
// synchronous endpoint passes its cap, async runs pass 0.
func (s *AnalysisService) analyze(ctx context.Context, g domain.Geometry, maxCells int) (*domain.AnalysisResult, []string, error) {
	start := time.Now()

	clipped, err := s.dem.ClipToPolygon(ctx, g)
	if err != nil {
		return nil, nil, fmt.Errorf("clip DEM: %w", err)
	}
	if cells := clipped.Width * clipped.Height; maxCells > 0 && cells > maxCells {
		return nil, nil, fmt.Errorf("%w: clipped AOI is %d cells, limit %d", domain.ErrAOITooLarge, cells, maxCells)
	}

	m := terrain.Compute(clipped)
	metrics.CellsProcessed.Add(float64(clipped.Width * clipped.Height))

	cands, stats, err := sites.Evaluate(m, s.dem.ToWGS84, s.opts)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate sites: %w", err)
	}

	var paths []string
	if s.rasters != nil {
		derived := map[string]*domain.Raster{
			"aoi_clipped_dem": m.DEM,
			"slope":           m.Slope,
			"curvature":       m.Curvature,
			"flow_accum":      m.FlowAcc,
			"twi":             m.TWI,
			"score":           stats.Score,
		}
		for name, r := range derived {
			p, err := s.rasters.WriteRaster(ctx, name, r)
			if err != nil {
				return nil, paths, fmt.Errorf("write %s raster: %w", name, err)
			}
			paths = append(paths, p)
		}
	}

	elapsed := time.Since(start)
	metrics.AnalysisDuration.Observe(elapsed.Seconds())
	metrics.AnalysesTotal.Inc()
	metrics.CandidatesFound.Add(float64(len(cands)))

	return &domain.AnalysisResult{
		Candidates:     cands,
		CellsTotal:     stats.CellsTotal,
		CellsEvaluated: stats.CellsEvaluated,
		Elapsed:        elapsed,
	}, paths, nil
}

// StartRun registers a pending run for asynchronous execution.
func (s *AnalysisService) StartRun(ctx context.Context, g domain.Geometry) (*domain.AnalysisRun, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("run repository not configured")
	}
	if _, err := g.PolygonRings(); err != nil {
		return nil, err
	}

	run := &domain.AnalysisRun{
		ID:        uuid.NewString(),
		Status:    domain.RunPending,
		AOI:       g,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// ExecuteRun performs the pipeline for a stored run and returns the result
// and derived raster paths. It marks the run running and publishes progress
// but leaves terminal status transitions to the caller (workflow saga).
func (s *AnalysisService) ExecuteRun(ctx context.Context, runID string) (*domain.AnalysisResult, []string, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	if err := s.runs.SetRunning(ctx, runID); err != nil {
		return nil, nil, fmt.Errorf("mark running: %w", err)
	}
	if s.events != nil {
		_ = s.events.PublishRunStarted(ctx, run)
		_ = s.events.PublishRunProgress(ctx, runID, "clip", 10)
	}

	res, paths, err := s.analyze(ctx, run.AOI, 0)
	if err != nil {
		return nil, paths, err
	}
	res.RunID = runID

	if s.events != nil {
		_ = s.events.PublishRunProgress(ctx, runID, "evaluate", 80)
	}
	return res, paths, nil
}

// StoreResults persists candidates and completes the run.
func (s *AnalysisService) StoreResults(ctx context.Context, runID string, res *domain.AnalysisResult) error {
	if s.cands != nil {
		if err := s.cands.InsertBatch(ctx, runID, res.Candidates); err != nil {
			return fmt.Errorf("store candidates: %w", err)
		}
	}

	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	now := time.Now().UTC()
	run.Status = domain.RunCompleted
	run.CellsTotal = res.CellsTotal
	run.CellsEvaluated = res.CellsEvaluated
	run.CandidateCount = len(res.Candidates)
	run.CompletedAt = &now
	if err := s.runs.Complete(ctx, run); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}

	if s.events != nil {
		_ = s.events.PublishRunCompleted(ctx, run)
	}
	return nil
}

// FailRun marks a run failed and publishes the failure.
func (s *AnalysisService) FailRun(ctx context.Context, runID, errMsg string) error {
	if err := s.runs.Fail(ctx, runID, errMsg); err != nil {
		return err
	}
	if s.events != nil {
		_ = s.events.PublishRunFailed(ctx, runID, errMsg)
	}
	return nil
}

// RemoveRasters deletes derived rasters written by a failed run.
func (s *AnalysisService) RemoveRasters(ctx context.Context, paths []string) {
	if s.rasters == nil {
		return
	}
	for _, p := range paths {
		_ = s.rasters.Remove(ctx, p)
	}
}

// GetRun returns a stored run.
func (s *AnalysisService) GetRun(ctx context.Context, id string) (*domain.AnalysisRun, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("run repository not configured")
	}
	return s.runs.GetByID(ctx, id)
}

// ListRuns returns stored runs, newest first.
func (s *AnalysisService) ListRuns(ctx context.Context, offset, limit int) ([]domain.AnalysisRun, int, error) {
	if s.runs == nil {
		return nil, 0, fmt.Errorf("run repository not configured")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.runs.List(ctx, offset, limit)
}

// ListCandidates returns stored candidates for a run, rank order.
func (s *AnalysisService) ListCandidates(ctx context.Context, runID string, offset, limit int) ([]domain.CandidateSite, int, error) {
	if s.cands == nil {
		return nil, 0, fmt.Errorf("candidate repository not configured")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.cands.ListByRun(ctx, runID, offset, limit)
}

func aoiCacheKey(g domain.Geometry) string {
	h := sha256.New()
	h.Write([]byte(g.Type))
	h.Write(g.Coordinates)
	return "analysis:aoi:" + hex.EncodeToString(h.Sum(nil)[:12])
}

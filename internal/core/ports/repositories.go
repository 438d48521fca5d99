package ports

import (
	"context"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

// AnalysisRunRepository persists analysis runs.
type AnalysisRunRepository interface {
	Create(ctx context.Context, run *domain.AnalysisRun) error
	SetRunning(ctx context.Context, id string) error
	Complete(ctx context.Context, run *domain.AnalysisRun) error
	Fail(ctx context.Context, id, errMsg string) error
	GetByID(ctx context.Context, id string) (*domain.AnalysisRun, error)
	List(ctx context.Context, offset, limit int) ([]domain.AnalysisRun, int, error)
}

// CandidateRepository persists candidate sites per run.
type CandidateRepository interface {
	InsertBatch(ctx context.Context, runID string, sites []domain.CandidateSite) error
	ListByRun(ctx context.Context, runID string, offset, limit int) ([]domain.CandidateSite, int, error)
	DeleteByRun(ctx context.Context, runID string) error
}

// WatershedRepository serves basin boundary polygons.
type WatershedRepository interface {
	List(ctx context.Context) ([]domain.Watershed, error)
	GetByCode(ctx context.Context, code string) (*domain.Watershed, error)
	FindByPoint(ctx context.Context, lat, lon float64) (*domain.Watershed, error)
	FindByBounds(ctx context.Context, b domain.Bounds) ([]domain.Watershed, error)
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

// RunRepo implements ports.AnalysisRunRepository with pgx.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Create inserts a pending run.
func (r *RunRepo) Create(ctx context.Context, run *domain.AnalysisRun) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO analysis_runs (id, status, aoi, created_at)
		VALUES ($1, $2, ST_SetSRID(ST_GeomFromGeoJSON($3), 4326), $4)
	`, run.ID, run.Status, geometryJSON(run.AOI), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// SetRunning marks a run as running and stamps started_at.
func (r *RunRepo) SetRunning(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE analysis_runs
		SET status = $2, started_at = now()
		WHERE id = $1
	`, id, domain.RunRunning)
	if err != nil {
		return fmt.Errorf("set run running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Complete marks a run as completed with its result counters.
func (r *RunRepo) Complete(ctx context.Context, run *domain.AnalysisRun) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE analysis_runs
		SET status = $2, cells_total = $3, cells_evaluated = $4,
		    candidate_count = $5, completed_at = now()
		WHERE id = $1
	`, run.ID, domain.RunCompleted, run.CellsTotal, run.CellsEvaluated, run.CandidateCount)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Fail marks a run as failed with an error message.
func (r *RunRepo) Fail(ctx context.Context, id, errMsg string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE analysis_runs
		SET status = $2, error = $3, completed_at = now()
		WHERE id = $1
	`, id, domain.RunFailed, errMsg)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns a run including its AOI geometry.
func (r *RunRepo) GetByID(ctx context.Context, id string) (*domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	var aoi []byte
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, status, ST_AsGeoJSON(aoi), cells_total, cells_evaluated,
		       candidate_count, COALESCE(error, ''), created_at, started_at, completed_at
		FROM analysis_runs WHERE id = $1
	`, id).Scan(
		&run.ID, &run.Status, &aoi, &run.CellsTotal, &run.CellsEvaluated,
		&run.CandidateCount, &run.Error, &run.CreatedAt, &run.StartedAt, &run.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if g, err := domain.ExtractGeometry(aoi); err == nil {
		run.AOI = g
	}
	return &run, nil
}

// List returns runs newest first plus the total count.
func (r *RunRepo) List(ctx context.Context, offset, limit int) ([]domain.AnalysisRun, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM analysis_runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, status, cells_total, cells_evaluated, candidate_count,
		       COALESCE(error, ''), created_at, started_at, completed_at
		FROM analysis_runs
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []domain.AnalysisRun
	for rows.Next() {
		var run domain.AnalysisRun
		if err := rows.Scan(
			&run.ID, &run.Status, &run.CellsTotal, &run.CellsEvaluated,
			&run.CandidateCount, &run.Error, &run.CreatedAt, &run.StartedAt, &run.CompletedAt,
		); err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

// geometryJSON renders a domain geometry as the GeoJSON text PostGIS expects.
func geometryJSON(g domain.Geometry) string {
	return fmt.Sprintf(`{"type":%q,"coordinates":%s}`, g.Type, string(g.Coordinates))
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

// CandidateRepo implements ports.CandidateRepository with pgx.
type CandidateRepo struct {
	db *DB
}

// NewCandidateRepo creates a new CandidateRepo.
func NewCandidateRepo(db *DB) *CandidateRepo {
	return &CandidateRepo{db: db}
}

// InsertBatch inserts all candidates of a run using pgx.Batch.
func (r *CandidateRepo) InsertBatch(ctx context.Context, runID string, sites []domain.CandidateSite) error {
	if len(sites) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range sites {
		batch.Queue(`
			INSERT INTO candidate_sites (run_id, rank, location, score, slope, curvature, twi, flow_acc, reason)
			VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5, $6, $7, $8, $9, $10)
		`, runID, s.Rank, s.Location.Lon, s.Location.Lat,
			s.Score, s.Slope, s.Curvature, s.TWI, s.FlowAcc, s.Reason)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range sites {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// ListByRun returns a run's candidates by rank plus the total count.
func (r *CandidateRepo) ListByRun(ctx context.Context, runID string, offset, limit int) ([]domain.CandidateSite, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM candidate_sites WHERE run_id = $1`, runID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, run_id, rank,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       score, slope, curvature, twi, flow_acc, reason, created_at
		FROM candidate_sites
		WHERE run_id = $1
		ORDER BY rank
		OFFSET $2 LIMIT $3
	`, runID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sites []domain.CandidateSite
	for rows.Next() {
		var s domain.CandidateSite
		if err := rows.Scan(
			&s.ID, &s.RunID, &s.Rank,
			&s.Location.Lat, &s.Location.Lon,
			&s.Score, &s.Slope, &s.Curvature, &s.TWI, &s.FlowAcc, &s.Reason, &s.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		sites = append(sites, s)
	}
	return sites, total, rows.Err()
}

// DeleteByRun removes all candidates of a run (compensation path).
func (r *CandidateRepo) DeleteByRun(ctx context.Context, runID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM candidate_sites WHERE run_id = $1`, runID)
	return err
}

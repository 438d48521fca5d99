package domain

import (
	"time"
)

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// AnalysisRun records one terrain-suitability analysis over an AOI.
type AnalysisRun struct {
	ID             string     `json:"id"`
	Status         RunStatus  `json:"status"`
	AOI            Geometry   `json:"aoi"`
	CellsTotal     int        `json:"cells_total"`
	CellsEvaluated int        `json:"cells_evaluated"`
	CandidateCount int        `json:"candidate_count"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// CandidateSite is a discrete location judged suitable for an underground
// water-storage dam, with the metric values that produced its score.
type CandidateSite struct {
	ID        string    `json:"id,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	Rank      int       `json:"rank"`
	Location  GeoPoint  `json:"location"`
	Score     float64   `json:"score"`
	Slope     float64   `json:"slope"`
	Curvature float64   `json:"curvature"`
	TWI       float64   `json:"twi"`
	FlowAcc   float64   `json:"flow_acc"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Watershed is a basin boundary polygon loaded from the national shapefile.
type Watershed struct {
	Code     string   `json:"code"`
	Name     string   `json:"name,omitempty"`
	Bounds   Bounds   `json:"bounds"`
	AreaKm2  float64  `json:"area_km2"`
	Boundary Geometry `json:"boundary,omitempty"`
}

// TerrainPoint is the result of a single-coordinate terrain query.
type TerrainPoint struct {
	Location  GeoPoint `json:"location"`
	Elevation float64  `json:"elevation"`
	Slope     *float64 `json:"slope,omitempty"`
	TWI       *float64 `json:"twi,omitempty"`
	Source    string   `json:"source"` // "dem" or "tileset"
}

// AnalysisResult bundles the candidates of a completed run.
type AnalysisResult struct {
	RunID          string          `json:"run_id,omitempty"`
	Candidates     []CandidateSite `json:"candidates"`
	CellsTotal     int             `json:"cells_total"`
	CellsEvaluated int             `json:"cells_evaluated"`
	Elapsed        time.Duration   `json:"-"`
}

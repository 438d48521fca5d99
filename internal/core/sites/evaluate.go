// Package sites scores terrain metric rasters and extracts ranked candidate
// dam sites.
package sites

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
	"github.com/rucachi/NGII-ICUH/internal/core/terrain"
	"github.com/rucachi/NGII-ICUH/internal/pkg/geospatial"
)

// Options controls thresholding and clustering.
type Options struct {
	// ScoreThreshold is the minimum composite score for a cell to become a
	// candidate.
	ScoreThreshold float64
	// MinSpacingMeters suppresses candidates closer than this to a
	// higher-scoring one, leaving discrete local maxima.
	MinSpacingMeters float64
	// MaxCandidates caps the returned list. 0 means no cap.
	MaxCandidates int
	// MaxAOICells caps the clipped grid size accepted by the synchronous
	// pipeline. 0 means no cap; async runs are never capped.
	MaxAOICells int
}

// DefaultOptions matches the evaluation model's published parameters.
func DefaultOptions() Options {
	return Options{ScoreThreshold: 70, MinSpacingMeters: 250, MaxCandidates: 500, MaxAOICells: 4_000_000}
}

// Weights of the composite score.
const (
	wSlope = 0.3
	wCurv  = 0.2
	wTWI   = 0.3
	wFlow  = 0.2
)

// ToWGS84 converts a native raster coordinate to lon/lat.
type ToWGS84 func(x, y float64) (lon, lat float64, err error)

// Identity is the converter for rasters already in WGS84.
func Identity(x, y float64) (lon, lat float64, err error) { return x, y, nil }

// Stats summarizes an evaluation pass.
type Stats struct {
	CellsTotal     int
	CellsEvaluated int
	// Score holds the composite score of every evaluated cell, nodata
	// elsewhere, on the same grid as the input metrics.
	Score *domain.Raster
}

// Evaluate scores every valid cell of the metric rasters, keeps cells above
// the threshold, clusters them into discrete points, and returns them ranked
// by score descending.
func Evaluate(m *terrain.Metrics, toWGS84 ToWGS84, opts Options) ([]domain.CandidateSite, Stats, error) {
	if opts.ScoreThreshold <= 0 {
		opts.ScoreThreshold = DefaultOptions().ScoreThreshold
	}
	if toWGS84 == nil {
		toWGS84 = Identity
	}

	stats := Stats{CellsTotal: m.DEM.Width * m.DEM.Height, Score: m.DEM.Like()}

	// Normalization ranges over the AOI.
	twiMin, twiMax, twiOK := validRange(m.TWI)
	flowMin, flowMax, flowOK := logRange(m.FlowAcc)

	var raw []domain.CandidateSite
	for row := 0; row < m.DEM.Height; row++ {
		for col := 0; col < m.DEM.Width; col++ {
			slope := m.Slope.At(row, col)
			curv := m.Curvature.At(row, col)
			twi := m.TWI.At(row, col)
			if m.Slope.IsNoData(slope) || m.Curvature.IsNoData(curv) || m.TWI.IsNoData(twi) {
				continue
			}
			acc := m.FlowAcc.At(row, col)
			if m.FlowAcc.IsNoData(acc) {
				acc = 0
			}
			stats.CellsEvaluated++

			score := composite(slope, curv, twi, acc, twiMin, twiMax, twiOK, flowMin, flowMax, flowOK)
			stats.Score.Set(row, col, score)
			if score < opts.ScoreThreshold {
				continue
			}

			x, y := m.DEM.CellCenter(row, col)
			lon, lat, err := toWGS84(x, y)
			if err != nil {
				return nil, stats, fmt.Errorf("reproject cell (%d,%d): %w", row, col, err)
			}

			raw = append(raw, domain.CandidateSite{
				Location:  domain.GeoPoint{Lat: lat, Lon: lon},
				Score:     score,
				Slope:     slope,
				Curvature: curv,
				TWI:       twi,
				FlowAcc:   acc,
				Reason:    reason(slope, curv, twi),
			})
		}
	}

	out := cluster(raw, opts.MinSpacingMeters)
	if opts.MaxCandidates > 0 && len(out) > opts.MaxCandidates {
		out = out[:opts.MaxCandidates]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, stats, nil
}

// composite applies the weighted scoring model and clamps to [0, 100].
func composite(slope, curv, twi, acc, twiMin, twiMax float64, twiOK bool, flowMin, flowMax float64, flowOK bool) float64 {
	slopeScore := 100 - slope*5
	if slope > 20 || slopeScore < 0 {
		slopeScore = 0
	}

	curvScore := 0.0
	if curv < 0 {
		curvScore = math.Min(100, math.Abs(curv)*50)
	}

	twiScore := 0.0
	if twiOK {
		twiScore = (twi - twiMin) / (twiMax - twiMin) * 100
	}

	flowScore := 0.0
	if flowOK {
		flowScore = (math.Log1p(acc) - flowMin) / (flowMax - flowMin) * 100
	}

	total := wSlope*slopeScore + wCurv*curvScore + wTWI*twiScore + wFlow*flowScore
	return math.Max(0, math.Min(100, total))
}

// reason builds the textual justification for a candidate cell.
func reason(slope, curv, twi float64) string {
	var parts []string
	switch {
	case slope < 5:
		parts = append(parts, fmt.Sprintf("very gentle slope (%.1f°)", slope))
	case slope < 15:
		parts = append(parts, fmt.Sprintf("moderate slope (%.1f°)", slope))
	}
	switch {
	case twi > 10:
		parts = append(parts, fmt.Sprintf("high wetness index (%.1f), strong water accumulation", twi))
	case twi > 5:
		parts = append(parts, fmt.Sprintf("favorable wetness index (%.1f)", twi))
	}
	if curv < -0.1 {
		parts = append(parts, "concave terrain favors water collection")
	}
	if len(parts) == 0 {
		return "high composite score"
	}
	s := parts[0]
	for _, p := range parts[1:] {
		s += ", " + p
	}
	return s
}

// cluster keeps candidates in score-descending order, dropping any within
// minSpacing meters of an already-kept candidate.
func cluster(cands []domain.CandidateSite, minSpacing float64) []domain.CandidateSite {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
	if minSpacing <= 0 {
		return cands
	}

	var kept []domain.CandidateSite
	for _, c := range cands {
		tooClose := false
		for _, k := range kept {
			d := geospatial.Haversine(c.Location.Lat, c.Location.Lon, k.Location.Lat, k.Location.Lon)
			if d < minSpacing {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, c)
		}
	}
	return kept
}

// validRange returns the min/max of a raster's valid cells. ok is false when
// the range collapses (all nodata or constant) and normalization would
// divide by zero.
func validRange(r *domain.Raster) (min, max float64, ok bool) {
	vals := validValues(r, func(v float64) float64 { return v })
	if len(vals) == 0 {
		return 0, 0, false
	}
	min, max = floats.Min(vals), floats.Max(vals)
	return min, max, max > min
}

// logRange is validRange over log1p of the values.
func logRange(r *domain.Raster) (min, max float64, ok bool) {
	vals := validValues(r, math.Log1p)
	if len(vals) == 0 {
		return 0, 0, false
	}
	min, max = floats.Min(vals), floats.Max(vals)
	return min, max, max > min
}

func validValues(r *domain.Raster, f func(float64) float64) []float64 {
	vals := make([]float64, 0, len(r.Data))
	for _, v := range r.Data {
		if r.IsNoData(v) {
			continue
		}
		vals = append(vals, f(v))
	}
	return vals
}

package sites_test

import (
	"math"
	"testing"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
	"github.com/rucachi/NGII-ICUH/internal/core/sites"
	"github.com/rucachi/NGII-ICUH/internal/core/terrain"
)

// metricsFixture builds a 3x3 WGS84 metric set with a known score ordering:
// flat slope, concave curvature, and TWI/flow rising with cell index, so the
// south-east cell scores exactly 100 and scores fall off toward the
// north-west corner.
func metricsFixture() *terrain.Metrics {
	transform := [6]float64{127.0, 0.001, 0, 36.0, 0, -0.001}
	mk := func() *domain.Raster {
		r := domain.NewRaster(3, 3, transform, -9999)
		r.Geographic = true
		return r
	}

	dem, slope, curv, twi, acc := mk(), mk(), mk(), mk(), mk()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			i := float64(row*3 + col)
			dem.Set(row, col, 100)
			slope.Set(row, col, 0)
			curv.Set(row, col, -2)
			twi.Set(row, col, i)
			acc.Set(row, col, i)
		}
	}
	return &terrain.Metrics{DEM: dem, Slope: slope, Curvature: curv, FlowAcc: acc, TWI: twi}
}

func TestEvaluateRanksByScore(t *testing.T) {
	cands, stats, err := sites.Evaluate(metricsFixture(), nil, sites.Options{ScoreThreshold: 70})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if stats.CellsTotal != 9 || stats.CellsEvaluated != 9 {
		t.Errorf("expected 9/9 cells, got %d/%d", stats.CellsEvaluated, stats.CellsTotal)
	}
	if len(cands) != 6 {
		t.Fatalf("expected 6 candidates above threshold, got %d", len(cands))
	}
	for i, c := range cands {
		if c.Rank != i+1 {
			t.Errorf("candidate %d: rank %d", i, c.Rank)
		}
		if c.Score < 0 || c.Score > 100 {
			t.Errorf("candidate %d: score %g out of range", i, c.Score)
		}
		if i > 0 && c.Score > cands[i-1].Score {
			t.Errorf("candidate %d: score %g above predecessor %g", i, c.Score, cands[i-1].Score)
		}
		if c.Reason == "" {
			t.Errorf("candidate %d: empty reason", i)
		}
	}

	top := cands[0]
	if math.Abs(top.Score-100) > 1e-9 {
		t.Errorf("expected top score 100, got %g", top.Score)
	}
	if stats.Score == nil {
		t.Fatal("expected a composite score grid")
	}
	if got := stats.Score.At(2, 2); math.Abs(got-100) > 1e-9 {
		t.Errorf("score grid at the best cell: %g, want 100", got)
	}
	// The best cell is the south-east corner's center.
	if math.Abs(top.Location.Lon-127.0025) > 1e-9 || math.Abs(top.Location.Lat-35.9975) > 1e-9 {
		t.Errorf("top candidate at (%g, %g)", top.Location.Lon, top.Location.Lat)
	}
}

func TestEvaluateSteepConvexTerrainYieldsNothing(t *testing.T) {
	// Steep slopes zero the slope weight and convex curvature zeroes the
	// curvature weight, so even the wettest cell tops out at 50.
	m := metricsFixture()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.Slope.Set(row, col, 25) // above the 20 degree cutoff
			m.Curvature.Set(row, col, 2)
		}
	}

	cands, stats, err := sites.Evaluate(m, nil, sites.Options{ScoreThreshold: 70})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("expected no candidates on a steep convex ridge, got %d", len(cands))
	}
	if stats.CellsEvaluated != 9 {
		t.Errorf("steep cells still count as evaluated, got %d", stats.CellsEvaluated)
	}
}

func TestEvaluateThresholdIsInclusive(t *testing.T) {
	// With slope 25 and concave curvature -2 the best cell scores exactly
	// 70: curvature 20 + TWI 30 + flow 20. A score equal to the threshold
	// still qualifies.
	m := metricsFixture()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.Slope.Set(row, col, 25)
		}
	}

	cands, _, err := sites.Evaluate(m, nil, sites.Options{ScoreThreshold: 70})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected exactly the threshold-scoring cell, got %d candidates", len(cands))
	}
	if math.Abs(cands[0].Score-70) > 1e-9 {
		t.Errorf("expected score 70, got %g", cands[0].Score)
	}
}

func TestEvaluateMinSpacingClusters(t *testing.T) {
	cands, _, err := sites.Evaluate(metricsFixture(), nil, sites.Options{
		ScoreThreshold:   70,
		MinSpacingMeters: 100_000, // wider than the whole fixture
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected clustering down to 1 candidate, got %d", len(cands))
	}
	if cands[0].Rank != 1 || math.Abs(cands[0].Score-100) > 1e-9 {
		t.Errorf("survivor should be the top-scoring cell, got rank %d score %g", cands[0].Rank, cands[0].Score)
	}
}

func TestEvaluateMaxCandidates(t *testing.T) {
	cands, _, err := sites.Evaluate(metricsFixture(), nil, sites.Options{
		ScoreThreshold: 70,
		MaxCandidates:  2,
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected truncation to 2 candidates, got %d", len(cands))
	}
	if cands[0].Rank != 1 || cands[1].Rank != 2 {
		t.Errorf("ranks should be reassigned after truncation: %d, %d", cands[0].Rank, cands[1].Rank)
	}
}

func TestEvaluateSkipsNoDataCells(t *testing.T) {
	m := metricsFixture()
	m.Slope.Set(0, 0, m.Slope.NoData)

	_, stats, err := sites.Evaluate(m, nil, sites.Options{ScoreThreshold: 70})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if stats.CellsEvaluated != 8 {
		t.Errorf("expected 8 evaluated cells, got %d", stats.CellsEvaluated)
	}
	if v := stats.Score.At(0, 0); !stats.Score.IsNoData(v) {
		t.Errorf("score grid should hold nodata at the masked cell, got %g", v)
	}
}

func TestEvaluateUniformMetricsStayBelowThreshold(t *testing.T) {
	m := metricsFixture()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.TWI.Set(row, col, 6)
			m.FlowAcc.Set(row, col, 3)
		}
	}

	// With no spread to normalize against, TWI and flow contribute nothing
	// and the remaining weights top out at 50.
	cands, _, err := sites.Evaluate(m, nil, sites.Options{ScoreThreshold: 70})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("expected no candidates, got %d with top score %g", len(cands), cands[0].Score)
	}
}

package usecases

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

// ReportService renders analysis results as downloadable artifacts.
type ReportService struct{}

// NewReportService creates a ReportService.
func NewReportService() *ReportService {
	return &ReportService{}
}

// BuildReport renders a plain-text summary of a completed run.
func (s *ReportService) BuildReport(run *domain.AnalysisRun, cands []domain.CandidateSite) string {
	var b strings.Builder

	b.WriteString("Underground Water-Storage Dam — Terrain Suitability Report\n")
	b.WriteString("===========================================================\n\n")
	if run != nil {
		fmt.Fprintf(&b, "Run ID:          %s\n", run.ID)
		fmt.Fprintf(&b, "Status:          %s\n", run.Status)
		fmt.Fprintf(&b, "Requested at:    %s\n", run.CreatedAt.Format(time.RFC3339))
		if run.CompletedAt != nil {
			fmt.Fprintf(&b, "Completed at:    %s\n", run.CompletedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&b, "Cells evaluated: %d of %d\n", run.CellsEvaluated, run.CellsTotal)
	}
	fmt.Fprintf(&b, "Candidates:      %d\n\n", len(cands))

	if len(cands) == 0 {
		b.WriteString("No suitable sites were found in the requested area.\n")
		return b.String()
	}

	var sum, best float64
	for _, c := range cands {
		sum += c.Score
		if c.Score > best {
			best = c.Score
		}
	}
	fmt.Fprintf(&b, "Best score:      %.1f\n", best)
	fmt.Fprintf(&b, "Mean score:      %.1f\n\n", sum/float64(len(cands)))

	b.WriteString("Rank  Score  Lat        Lon         Slope  TWI    Reason\n")
	b.WriteString("----  -----  ---------  ----------  -----  -----  ------\n")
	for _, c := range cands {
		fmt.Fprintf(&b, "%4d  %5.1f  %9.5f  %10.5f  %5.2f  %5.2f  %s\n",
			c.Rank, c.Score, c.Location.Lat, c.Location.Lon, c.Slope, c.TWI, c.Reason)
	}
	return b.String()
}

// ExportCSV renders candidates as CSV, one row per site.
func (s *ReportService) ExportCSV(cands []domain.CandidateSite) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"rank", "lat", "lon", "score", "slope", "curvature", "twi", "flow_acc", "reason"}); err != nil {
		return nil, err
	}
	for _, c := range cands {
		rec := []string{
			strconv.Itoa(c.Rank),
			strconv.FormatFloat(c.Location.Lat, 'f', 6, 64),
			strconv.FormatFloat(c.Location.Lon, 'f', 6, 64),
			strconv.FormatFloat(c.Score, 'f', 2, 64),
			strconv.FormatFloat(c.Slope, 'f', 3, 64),
			strconv.FormatFloat(c.Curvature, 'f', 5, 64),
			strconv.FormatFloat(c.TWI, 'f', 3, 64),
			strconv.FormatFloat(c.FlowAcc, 'f', 1, 64),
			c.Reason,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportGeoJSON renders candidates as a FeatureCollection of points.
func (s *ReportService) ExportGeoJSON(cands []domain.CandidateSite) *domain.FeatureCollection {
	fc := domain.NewFeatureCollection()
	for _, c := range cands {
		fc.Features = append(fc.Features, domain.Feature{
			Type:     "Feature",
			Geometry: domain.PointGeometry(c.Location.Lon, c.Location.Lat),
			Properties: map[string]any{
				"rank":      c.Rank,
				"score":     c.Score,
				"slope":     c.Slope,
				"curvature": c.Curvature,
				"twi":       c.TWI,
				"flow_acc":  c.FlowAcc,
				"reason":    c.Reason,
			},
		})
	}
	return fc
}

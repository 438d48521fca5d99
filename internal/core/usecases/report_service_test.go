package usecases_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
	"github.com/rucachi/NGII-ICUH/internal/core/usecases"
)

func sampleCandidates() []domain.CandidateSite {
	return []domain.CandidateSite{
		{
			Rank:     1,
			Location: domain.GeoPoint{Lat: 35.9955, Lon: 127.0045},
			Score:    92.5, Slope: 2.1, Curvature: -0.8, TWI: 9.3, FlowAcc: 14,
			Reason: "very gentle slope (2.1°), favorable wetness index (9.3)",
		},
		{
			Rank:     2,
			Location: domain.GeoPoint{Lat: 35.9935, Lon: 127.0065},
			Score:    81.0, Slope: 4.7, Curvature: -0.3, TWI: 7.7, FlowAcc: 6,
			Reason: "very gentle slope (4.7°)",
		},
	}
}

func TestBuildReport(t *testing.T) {
	svc := usecases.NewReportService()
	done := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	run := &domain.AnalysisRun{
		ID:             "run-abc",
		Status:         domain.RunCompleted,
		CellsTotal:     81,
		CellsEvaluated: 77,
		CreatedAt:      done.Add(-time.Minute),
		CompletedAt:    &done,
	}

	report := svc.BuildReport(run, sampleCandidates())

	for _, want := range []string{
		"run-abc",
		"completed",
		"Cells evaluated: 77 of 81",
		"Candidates:      2",
		"Best score:      92.5",
		"35.99550",
		"favorable wetness index",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestBuildReportEmpty(t *testing.T) {
	svc := usecases.NewReportService()
	report := svc.BuildReport(nil, nil)
	if !strings.Contains(report, "No suitable sites were found") {
		t.Errorf("empty report should say so:\n%s", report)
	}
}

func TestExportCSV(t *testing.T) {
	svc := usecases.NewReportService()
	out, err := svc.ExportCSV(sampleCandidates())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "rank" || rows[0][8] != "reason" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "1" || rows[1][3] != "92.50" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
}

func TestExportGeoJSON(t *testing.T) {
	svc := usecases.NewReportService()
	fc := svc.ExportGeoJSON(sampleCandidates())

	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Fatalf("got %q with %d features", fc.Type, len(fc.Features))
	}
	f := fc.Features[0]
	if f.Geometry.Type != "Point" {
		t.Errorf("feature geometry %q, want Point", f.Geometry.Type)
	}
	if f.Properties["rank"] != 1 || f.Properties["score"] != 92.5 {
		t.Errorf("unexpected properties: %v", f.Properties)
	}
}

func TestExportGeoJSONEmpty(t *testing.T) {
	fc := usecases.NewReportService().ExportGeoJSON(nil)
	if fc.Features == nil {
		t.Error("features should be an empty slice, not nil, so it encodes as []")
	}
}

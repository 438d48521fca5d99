package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test-service")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port %d, want 8080", cfg.Server.Port)
	}
	if cfg.Telemetry.ServiceName != "test-service" {
		t.Errorf("telemetry.service_name %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Temporal.TaskQueue != "terrain-analysis-queue" {
		t.Errorf("temporal.task_queue %q", cfg.Temporal.TaskQueue)
	}
	if cfg.Analysis.ScoreThreshold != 70.0 {
		t.Errorf("analysis.score_threshold %g", cfg.Analysis.ScoreThreshold)
	}
	if cfg.Watershed.CodeColumn != "WKW_BSN_CD" {
		t.Errorf("watershed.code_column %q", cfg.Watershed.CodeColumn)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NGII_SERVER_PORT", "9090")
	t.Setenv("NGII_DEM_PATH", "/data/korea_dem.tif")
	t.Setenv("NGII_ANALYSIS_MIN_SPACING_METERS", "500")

	cfg, err := Load("test-service")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port %d, want 9090", cfg.Server.Port)
	}
	if cfg.DEM.Path != "/data/korea_dem.tif" {
		t.Errorf("dem.path %q", cfg.DEM.Path)
	}
	if cfg.Analysis.MinSpacingMeters != 500 {
		t.Errorf("analysis.min_spacing_meters %g", cfg.Analysis.MinSpacingMeters)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("NGII_SERVER_PORT", "-1")

	if _, err := Load("test-service"); err == nil {
		t.Fatal("expected validation to fail for a negative port")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5432, User: "terrain", Password: "secret",
		DBName: "ngii_icuh", SSLMode: "disable",
	}
	want := "postgres://terrain:secret@db:5432/ngii_icuh?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN %q, want %q", got, want)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{} // everything zero
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"server.port", "database.host", "nats.url"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s:\n%v", want, err)
		}
	}
}

func TestValidateTilesetRequiresDir(t *testing.T) {
	cfg, err := Load("test-service")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Tileset.Enabled = true
	cfg.Tileset.Dir = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "tileset.dir") {
		t.Errorf("expected a tileset.dir error, got %v", err)
	}
}

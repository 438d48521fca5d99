// Command analyze is the batch CLI: it can synthesize a test DEM, analyze an
// AOI from a GeoJSON file, or analyze one basin or every basin from the
// watershed layer, writing the report and exports to disk without the HTTP
// service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/rucachi/NGII-ICUH/internal/adapters/geotiff"
	"github.com/rucachi/NGII-ICUH/internal/adapters/shapefile"
	"github.com/rucachi/NGII-ICUH/internal/core/domain"
	"github.com/rucachi/NGII-ICUH/internal/core/sites"
	"github.com/rucachi/NGII-ICUH/internal/core/usecases"
	"github.com/rucachi/NGII-ICUH/internal/pkg/config"
	"github.com/rucachi/NGII-ICUH/internal/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: analyze <gendem|run> [flags]")
	}

	cfg, err := config.Load("ngii-icuh-analyze")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("info", "text")

	switch os.Args[1] {
	case "gendem":
		genDEM(cfg, os.Args[2:])
	case "run":
		runAnalysis(cfg, os.Args[2:])
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// genDEM writes a synthetic DEM for local development: a bowl-shaped basin,
// lowest at the center and climbing toward every edge, with rolling noise so
// the derived metrics are not uniform.
func genDEM(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("gendem", flag.ExitOnError)
	out := fs.String("out", cfg.DEM.Path, "output GeoTIFF path")
	width := fs.Int("width", 4000, "raster width in cells")
	height := fs.Int("height", 4000, "raster height in cells")
	minLon := fs.Float64("min-lon", 126.0, "west edge")
	maxLat := fs.Float64("max-lat", 38.0, "north edge")
	cell := fs.Float64("cell", 0.001, "cell size in degrees")
	seed := fs.Int64("seed", 42, "noise seed")
	_ = fs.Parse(args)

	r := domain.NewRaster(*width, *height, [6]float64{
		*minLon, *cell, 0,
		*maxLat, 0, -*cell,
	}, -9999)
	r.Proj4 = "+proj=longlat +datum=WGS84 +no_defs"
	r.Geographic = true

	rng := rand.New(rand.NewSource(*seed))
	w, h := float64(*width), float64(*height)
	for row := 0; row < *height; row++ {
		for col := 0; col < *width; col++ {
			dx := float64(col)/w - 0.5
			dy := float64(row)/h - 0.5
			base := 120 + 900*(dx*dx+dy*dy)
			// Rolling noise so slope and curvature are not uniform
			ridge := 18 * math.Sin(float64(col)/45) * math.Cos(float64(row)/60)
			r.Set(row, col, base+ridge+6*rng.Float64())
		}
	}

	writer, err := geotiff.NewWriter(filepath.Dir(*out))
	if err != nil {
		log.Fatalf("writer: %v", err)
	}
	name := filepath.Base(*out)
	if ext := filepath.Ext(name); ext != "" {
		name = name[:len(name)-len(ext)]
	}
	path, err := writer.WriteRaster(context.Background(), name, r)
	if err != nil {
		log.Fatalf("write dem: %v", err)
	}
	fmt.Printf("synthetic DEM written: %s (%dx%d cells)\n", path, *width, *height)
}

// runAnalysis analyzes an AOI from a GeoJSON file, one basin, or every basin
// in the watershed layer, writing the report, CSV, and GeoJSON exports next
// to the derived rasters.
func runAnalysis(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	aoiPath := fs.String("aoi", "", "path to a GeoJSON AOI")
	basin := fs.String("basin", "", `watershed code to analyze, or "all" for every basin`)
	outDir := fs.String("out", cfg.DEM.OutputDir, "output directory")
	_ = fs.Parse(args)

	if (*aoiPath == "") == (*basin == "") {
		log.Fatal("exactly one of -aoi or -basin is required")
	}

	ctx := context.Background()

	dem, err := geotiff.OpenDEM(cfg.DEM.Path, cfg.DEM.Proj4)
	if err != nil {
		log.Fatalf("dem: %v", err)
	}
	defer dem.Close()

	switch {
	case *aoiPath != "":
		body, err := os.ReadFile(*aoiPath)
		if err != nil {
			log.Fatalf("read aoi: %v", err)
		}
		aoi, err := domain.ExtractGeometry(body)
		if err != nil {
			log.Fatalf("parse aoi: %v", err)
		}
		if err := analyzeOne(ctx, cfg, dem, aoi, "aoi", *outDir); err != nil {
			log.Fatal(err)
		}

	case *basin == "all":
		store := openWatersheds(cfg)
		basins, err := store.List(ctx)
		if err != nil {
			log.Fatalf("list basins: %v", err)
		}
		var failed int
		for _, b := range basins {
			w, err := store.GetByCode(ctx, b.Code)
			if err != nil {
				log.Printf("basin %s: %v", b.Code, err)
				failed++
				continue
			}
			if err := analyzeOne(ctx, cfg, dem, w.Boundary, w.Code, filepath.Join(*outDir, w.Code)); err != nil {
				log.Printf("%v", err)
				failed++
			}
		}
		fmt.Printf("%d basins analyzed, %d failed\n", len(basins)-failed, failed)

	default:
		store := openWatersheds(cfg)
		w, err := store.GetByCode(ctx, *basin)
		if err != nil {
			log.Fatalf("basin %s: %v", *basin, err)
		}
		if err := analyzeOne(ctx, cfg, dem, w.Boundary, w.Code, *outDir); err != nil {
			log.Fatal(err)
		}
	}
}

func openWatersheds(cfg *config.Config) *shapefile.Store {
	store, err := shapefile.Load(cfg.Watershed.ShapefilePath, shapefile.Options{
		CodeColumn: cfg.Watershed.CodeColumn,
		NameColumn: cfg.Watershed.NameColumn,
	}, slog.Default())
	if err != nil {
		log.Fatalf("watershed layer: %v", err)
	}
	return store
}

// analyzeOne clips, scores, and writes the full output set for one AOI:
// derived rasters, report.txt, candidates.csv, and candidates.geojson.
func analyzeOne(ctx context.Context, cfg *config.Config, dem *geotiff.DEM, aoi domain.Geometry, label, outDir string) error {
	rasters, err := geotiff.NewWriter(outDir)
	if err != nil {
		return fmt.Errorf("raster output for %s: %w", label, err)
	}

	// No cell cap here: the batch CLI is where oversized AOIs belong.
	analysis := usecases.NewAnalysisService(dem, rasters, nil, nil, nil, nil, sites.Options{
		ScoreThreshold:   cfg.Analysis.ScoreThreshold,
		MinSpacingMeters: cfg.Analysis.MinSpacingMeters,
		MaxCandidates:    cfg.Analysis.MaxCandidates,
	})

	res, err := analysis.AnalyzeAOI(ctx, aoi)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", label, err)
	}

	reports := usecases.NewReportService()
	run := &domain.AnalysisRun{
		ID:             label,
		Status:         domain.RunCompleted,
		AOI:            aoi,
		CellsTotal:     res.CellsTotal,
		CellsEvaluated: res.CellsEvaluated,
		CandidateCount: len(res.Candidates),
	}

	report := reports.BuildReport(run, res.Candidates)
	if err := os.WriteFile(filepath.Join(outDir, "report.txt"), []byte(report), 0o644); err != nil {
		return fmt.Errorf("write report for %s: %w", label, err)
	}

	csvData, err := reports.ExportCSV(res.Candidates)
	if err != nil {
		return fmt.Errorf("export csv for %s: %w", label, err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "candidates.csv"), csvData, 0o644); err != nil {
		return fmt.Errorf("write csv for %s: %w", label, err)
	}

	fcData, err := json.MarshalIndent(reports.ExportGeoJSON(res.Candidates), "", "  ")
	if err != nil {
		return fmt.Errorf("export geojson for %s: %w", label, err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "candidates.geojson"), fcData, 0o644); err != nil {
		return fmt.Errorf("write geojson for %s: %w", label, err)
	}

	fmt.Printf("%s: %d candidates, outputs in %s\n", label, len(res.Candidates), outDir)
	return nil
}

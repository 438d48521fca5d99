package ports

import (
	"context"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

// DEMSource reads elevation data for the configured project DEM.
type DEMSource interface {
	// Bounds returns the DEM extent in WGS84.
	Bounds(ctx context.Context) (domain.Bounds, error)
	// ElevationAt samples the DEM at a WGS84 coordinate.
	ElevationAt(ctx context.Context, lon, lat float64) (float64, error)
	// Window reads a square of cells centered on a WGS84 coordinate.
	Window(ctx context.Context, lon, lat float64, cells int) (*domain.Raster, error)
	// ClipToPolygon reads the DEM masked to a WGS84 GeoJSON polygon.
	// Cells outside the polygon are nodata.
	ClipToPolygon(ctx context.Context, g domain.Geometry) (*domain.Raster, error)
	// ToWGS84 converts a native DEM coordinate to lon/lat.
	ToWGS84(x, y float64) (lon, lat float64, err error)
}

// RasterWriter persists derived rasters (clipped DEM, slope, TWI, score).
type RasterWriter interface {
	// WriteRaster writes r under the given name and returns the file path.
	WriteRaster(ctx context.Context, name string, r *domain.Raster) (string, error)
	// Remove deletes a previously written raster (rollback).
	Remove(ctx context.Context, path string) error
}

// PointElevationSource is a fallback elevation provider (tiled DEM sets)
// used when no project DEM covers the queried coordinate.
type PointElevationSource interface {
	ElevationAt(ctx context.Context, lon, lat float64) (float64, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes analysis lifecycle events to a message broker.
type EventPublisher interface {
	PublishRunStarted(ctx context.Context, run *domain.AnalysisRun) error
	PublishRunProgress(ctx context.Context, runID, stage string, percent int) error
	PublishRunCompleted(ctx context.Context, run *domain.AnalysisRun) error
	PublishRunFailed(ctx context.Context, runID, errMsg string) error
}

// Package elevation provides a point-elevation fallback backed by a tiled
// GeoTIFF dataset (EU-DEM layout) for coordinates outside the project DEM.
package elevation

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/twpayne/go-elevation"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

type service interface {
	Elevation4326(coords [][]float64) ([]float64, error)
}

// Tileset wraps a go-elevation service over a local tile directory.
type Tileset struct {
	es service
}

// Open builds the service over the tile directory at dir.
func Open(dir string) (*Tileset, error) {
	es, err := elevation.NewEUDEMElevationService(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("open elevation tileset %s: %w", dir, err)
	}
	return &Tileset{es: es}, nil
}

// ElevationAt samples the tileset at a WGS84 coordinate. Coordinates with no
// covering tile or a nodata sample are reported as out of bounds.
func (t *Tileset) ElevationAt(ctx context.Context, lon, lat float64) (float64, error) {
	elevations, err := t.es.Elevation4326([][]float64{{lon, lat}})
	if err != nil {
		return 0, fmt.Errorf("tileset elevation: %w", err)
	}
	if len(elevations) == 0 || math.IsNaN(elevations[0]) {
		return 0, domain.ErrOutOfBounds
	}
	return elevations[0], nil
}

package geotiff

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lukeroth/gdal"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

// Writer persists derived rasters as GTiff files under a base directory.
type Writer struct {
	mu  sync.Mutex
	dir string
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// WriteRaster writes r as <dir>/<name>.tif and returns the file path.
func (w *Writer) WriteRaster(ctx context.Context, name string, r *domain.Raster) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	path := filepath.Join(w.dir, name+".tif")

	driver, err := gdal.GetDriverByName("GTiff")
	if err != nil {
		return "", fmt.Errorf("gtiff driver: %w", err)
	}
	ds := driver.Create(path, r.Width, r.Height, 1, gdal.Float64, []string{"COMPRESS=DEFLATE"})
	defer ds.Close()

	ds.SetGeoTransform(r.Transform)
	if r.Proj4 != "" {
		sr := gdal.CreateSpatialReference("")
		if err := sr.FromProj4(r.Proj4); err == nil {
			if wkt, err := sr.ToWKT(); err == nil {
				ds.SetProjection(wkt)
			}
		}
	}

	band := ds.RasterBand(1)
	if err := band.SetNoDataValue(r.NoData); err != nil {
		return "", fmt.Errorf("set nodata on %s: %w", path, err)
	}
	if err := band.IO(gdal.Write, 0, 0, r.Width, r.Height, r.Data, r.Width, r.Height, 0, 0); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Remove deletes a previously written raster. Missing files are not an error.
func (w *Writer) Remove(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove raster %s: %w", path, err)
	}
	return nil
}

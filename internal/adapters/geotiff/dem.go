// Package geotiff reads and writes single-band GeoTIFF rasters through GDAL.
package geotiff

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/lukeroth/gdal"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

const wgs84Proj4 = "+proj=longlat +datum=WGS84 +no_defs"

// DEM is a GeoTIFF-backed elevation source. GDAL dataset handles are not
// safe for concurrent raster IO, so reads are serialized with a mutex.
type DEM struct {
	mu   sync.Mutex
	ds   gdal.Dataset
	band gdal.RasterBand

	width, height int
	transform     [6]float64
	noData        float64
	proj4         string
	geographic    bool

	toWGS84   proj.Transformer
	fromWGS84 proj.Transformer
}

// OpenDEM opens the GeoTIFF at path. proj4 declares the raster's CRS; GDAL's
// embedded CRS metadata is often missing on national datasets, so the caller
// supplies it explicitly.
func OpenDEM(path, proj4 string) (*DEM, error) {
	ds, err := gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("open DEM %s: %w", path, err)
	}

	d := &DEM{
		ds:         ds,
		band:       ds.RasterBand(1),
		width:      ds.RasterXSize(),
		height:     ds.RasterYSize(),
		proj4:      proj4,
		geographic: strings.Contains(proj4, "+proj=longlat"),
	}

	gt := ds.GeoTransform()
	copy(d.transform[:], gt[:])
	if d.transform[1] == 0 || d.transform[5] == 0 {
		ds.Close()
		return nil, fmt.Errorf("DEM %s has a degenerate geotransform", path)
	}

	nd, ok := d.band.NoDataValue()
	if !ok {
		nd = math.NaN()
	}
	d.noData = nd

	sr, err := proj.Parse(proj4)
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("parse DEM projection: %w", err)
	}
	wgs, err := proj.Parse(wgs84Proj4)
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("parse WGS84 projection: %w", err)
	}
	if d.toWGS84, err = sr.NewTransform(wgs); err != nil {
		ds.Close()
		return nil, fmt.Errorf("DEM to WGS84 transform: %w", err)
	}
	if d.fromWGS84, err = wgs.NewTransform(sr); err != nil {
		ds.Close()
		return nil, fmt.Errorf("WGS84 to DEM transform: %w", err)
	}

	return d, nil
}

// Close releases the underlying GDAL dataset.
func (d *DEM) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ds.Close()
}

// ToWGS84 converts a native DEM coordinate to lon/lat.
func (d *DEM) ToWGS84(x, y float64) (lon, lat float64, err error) {
	return d.toWGS84(x, y)
}

// Bounds returns the DEM extent in WGS84, expanded to cover all four
// reprojected corners.
func (d *DEM) Bounds(ctx context.Context) (domain.Bounds, error) {
	x0 := d.transform[0]
	y0 := d.transform[3]
	x1 := x0 + float64(d.width)*d.transform[1]
	y1 := y0 + float64(d.height)*d.transform[5]

	b := domain.Bounds{MinLat: 90, MaxLat: -90, MinLon: 180, MaxLon: -180}
	for _, c := range [][2]float64{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		lon, lat, err := d.toWGS84(c[0], c[1])
		if err != nil {
			return domain.Bounds{}, fmt.Errorf("reproject DEM corner: %w", err)
		}
		b.MinLat = math.Min(b.MinLat, lat)
		b.MaxLat = math.Max(b.MaxLat, lat)
		b.MinLon = math.Min(b.MinLon, lon)
		b.MaxLon = math.Max(b.MaxLon, lon)
	}
	return b, nil
}

// pixel converts a native coordinate to raster indices.
func (d *DEM) pixel(x, y float64) (row, col int, ok bool) {
	col = int(math.Floor((x - d.transform[0]) / d.transform[1]))
	row = int(math.Floor((y - d.transform[3]) / d.transform[5]))
	if row < 0 || row >= d.height || col < 0 || col >= d.width {
		return 0, 0, false
	}
	return row, col, true
}

// ElevationAt samples the DEM at a WGS84 coordinate. NoData cells are
// reported as out of bounds so callers can fall back to other providers.
func (d *DEM) ElevationAt(ctx context.Context, lon, lat float64) (float64, error) {
	x, y, err := d.fromWGS84(lon, lat)
	if err != nil {
		return 0, fmt.Errorf("reproject query point: %w", err)
	}
	row, col, ok := d.pixel(x, y)
	if !ok {
		return 0, domain.ErrOutOfBounds
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]float64, 1)
	if err := d.band.IO(gdal.Read, col, row, 1, 1, buf, 1, 1, 0, 0); err != nil {
		return 0, fmt.Errorf("read DEM cell: %w", err)
	}
	v := buf[0]
	if math.IsNaN(v) || v == d.noData {
		return 0, domain.ErrOutOfBounds
	}
	return v, nil
}

// Window reads a square of cells centered on a WGS84 coordinate, clamped to
// the raster edges.
func (d *DEM) Window(ctx context.Context, lon, lat float64, cells int) (*domain.Raster, error) {
	if cells < 3 {
		cells = 3
	}
	x, y, err := d.fromWGS84(lon, lat)
	if err != nil {
		return nil, fmt.Errorf("reproject query point: %w", err)
	}
	row, col, ok := d.pixel(x, y)
	if !ok {
		return nil, domain.ErrOutOfBounds
	}

	half := cells / 2
	c0 := max(0, col-half)
	r0 := max(0, row-half)
	c1 := min(d.width, col+half+1)
	r1 := min(d.height, row+half+1)
	return d.readWindow(r0, c0, r1-r0, c1-c0)
}

// readWindow reads a rectangular block into a domain.Raster whose
// geotransform is shifted to the window origin.
func (d *DEM) readWindow(row, col, h, w int) (*domain.Raster, error) {
	if w <= 0 || h <= 0 {
		return nil, domain.ErrOutOfBounds
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]float64, w*h)
	if err := d.band.IO(gdal.Read, col, row, w, h, buf, w, h, 0, 0); err != nil {
		return nil, fmt.Errorf("read DEM window: %w", err)
	}

	t := d.transform
	t[0] += float64(col)*d.transform[1] + float64(row)*d.transform[2]
	t[3] += float64(col)*d.transform[4] + float64(row)*d.transform[5]

	noData := d.noData
	if math.IsNaN(noData) {
		noData = -9999
		for i, v := range buf {
			if math.IsNaN(v) {
				buf[i] = noData
			}
		}
	}

	return &domain.Raster{
		Width:      w,
		Height:     h,
		Data:       buf,
		Transform:  t,
		NoData:     noData,
		Proj4:      d.proj4,
		Geographic: d.geographic,
	}, nil
}

// ClipToPolygon reads the DEM restricted to a WGS84 GeoJSON polygon. The
// polygon is reprojected to the raster CRS, the bounding window is read, and
// cells whose centers fall outside the rings are set to nodata.
func (d *DEM) ClipToPolygon(ctx context.Context, g domain.Geometry) (*domain.Raster, error) {
	poly, err := d.nativePolygon(g)
	if err != nil {
		return nil, err
	}

	pb := poly.Bounds()
	c0, r0 := d.floorPixel(pb.Min.X, pb.Max.Y)
	c1, r1 := d.ceilPixel(pb.Max.X, pb.Min.Y)
	c0 = max(0, c0)
	r0 = max(0, r0)
	c1 = min(d.width, c1)
	r1 = min(d.height, r1)
	if c1 <= c0 || r1 <= r0 {
		return nil, domain.ErrOutOfBounds
	}

	out, err := d.readWindow(r0, c0, r1-r0, c1-c0)
	if err != nil {
		return nil, err
	}

	masked := 0
	for row := 0; row < out.Height; row++ {
		for col := 0; col < out.Width; col++ {
			x, y := out.CellCenter(row, col)
			pt := geom.Point{X: x, Y: y}
			if pt.Within(poly) == geom.Outside {
				out.Set(row, col, out.NoData)
			} else if !out.IsNoData(out.At(row, col)) {
				masked++
			}
		}
	}
	if masked == 0 {
		return nil, domain.ErrOutOfBounds
	}
	return out, nil
}

// nativePolygon converts a WGS84 GeoJSON polygon to a geom.Polygon in the
// DEM's CRS.
func (d *DEM) nativePolygon(g domain.Geometry) (geom.Polygon, error) {
	rings, err := g.PolygonRings()
	if err != nil {
		return nil, err
	}
	poly := make(geom.Polygon, 0, len(rings))
	for _, ring := range rings {
		path := make([]geom.Point, 0, len(ring))
		for _, c := range ring {
			x, y, err := d.fromWGS84(c[0], c[1])
			if err != nil {
				return nil, fmt.Errorf("reproject AOI vertex: %w", err)
			}
			path = append(path, geom.Point{X: x, Y: y})
		}
		poly = append(poly, path)
	}
	return poly, nil
}

func (d *DEM) floorPixel(x, y float64) (col, row int) {
	col = int(math.Floor((x - d.transform[0]) / d.transform[1]))
	row = int(math.Floor((y - d.transform[3]) / d.transform[5]))
	return col, row
}

func (d *DEM) ceilPixel(x, y float64) (col, row int) {
	col = int(math.Ceil((x - d.transform[0]) / d.transform[1]))
	row = int(math.Ceil((y - d.transform[3]) / d.transform[5]))
	return col, row
}

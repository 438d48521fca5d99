package domain

import (
	"math"
)

// Raster is a single-band grid of float64 values with a GDAL-style affine
// geotransform. Data is row-major with row 0 at the north edge.
type Raster struct {
	Width, Height int
	Data          []float64
	// Transform maps cell indices to world coordinates:
	//   x = T[0] + col*T[1] + row*T[2]
	//   y = T[3] + col*T[4] + row*T[5]
	Transform  [6]float64
	NoData     float64
	Proj4      string
	Geographic bool // coordinates are degrees (EPSG:4326 and friends)
}

// NewRaster allocates a raster filled with the nodata value.
func NewRaster(width, height int, transform [6]float64, noData float64) *Raster {
	data := make([]float64, width*height)
	for i := range data {
		data[i] = noData
	}
	return &Raster{
		Width:     width,
		Height:    height,
		Data:      data,
		Transform: transform,
		NoData:    noData,
	}
}

// At returns the value at (row, col). Out-of-range indices return nodata.
func (r *Raster) At(row, col int) float64 {
	if row < 0 || row >= r.Height || col < 0 || col >= r.Width {
		return r.NoData
	}
	return r.Data[row*r.Width+col]
}

// Set writes the value at (row, col). Out-of-range indices are ignored.
func (r *Raster) Set(row, col int, v float64) {
	if row < 0 || row >= r.Height || col < 0 || col >= r.Width {
		return
	}
	r.Data[row*r.Width+col] = v
}

// IsNoData reports whether v is the raster's nodata marker or NaN.
func (r *Raster) IsNoData(v float64) bool {
	return math.IsNaN(v) || v == r.NoData
}

// CellCenter returns the world coordinate of a cell center, the same
// convention as rasterio's transform.xy with offset="center".
func (r *Raster) CellCenter(row, col int) (x, y float64) {
	fc, fr := float64(col)+0.5, float64(row)+0.5
	x = r.Transform[0] + fc*r.Transform[1] + fr*r.Transform[2]
	y = r.Transform[3] + fc*r.Transform[4] + fr*r.Transform[5]
	return x, y
}

// Index converts a world coordinate to cell indices. ok is false when the
// coordinate falls outside the raster. Only north-up rasters (no rotation
// terms) are supported.
func (r *Raster) Index(x, y float64) (row, col int, ok bool) {
	if r.Transform[1] == 0 || r.Transform[5] == 0 {
		return 0, 0, false
	}
	col = int(math.Floor((x - r.Transform[0]) / r.Transform[1]))
	row = int(math.Floor((y - r.Transform[3]) / r.Transform[5]))
	if row < 0 || row >= r.Height || col < 0 || col >= r.Width {
		return 0, 0, false
	}
	return row, col, true
}

// CellSize returns the absolute cell spacing in the raster's native units.
func (r *Raster) CellSize() (dx, dy float64) {
	return math.Abs(r.Transform[1]), math.Abs(r.Transform[5])
}

// CellSizeMeters returns the cell spacing in meters. For geographic rasters
// the degree spacing is scaled at the raster's mid latitude.
func (r *Raster) CellSizeMeters() (dx, dy float64) {
	dx, dy = r.CellSize()
	if !r.Geographic {
		return dx, dy
	}
	const metersPerDegree = 111320.0
	_, midY := r.CellCenter(r.Height/2, r.Width/2)
	return dx * metersPerDegree * math.Cos(midY*math.Pi/180), dy * metersPerDegree
}

// Bounds returns the raster extent in native coordinates
// (MinLon/MaxLon carry X, MinLat/MaxLat carry Y for projected rasters).
func (r *Raster) Bounds() Bounds {
	x0 := r.Transform[0]
	y0 := r.Transform[3]
	x1 := x0 + float64(r.Width)*r.Transform[1]
	y1 := y0 + float64(r.Height)*r.Transform[5]
	return Bounds{
		MinLon: math.Min(x0, x1),
		MaxLon: math.Max(x0, x1),
		MinLat: math.Min(y0, y1),
		MaxLat: math.Max(y0, y1),
	}
}

// Like allocates an empty raster with the same shape and georeferencing.
func (r *Raster) Like() *Raster {
	out := NewRaster(r.Width, r.Height, r.Transform, r.NoData)
	out.Proj4 = r.Proj4
	out.Geographic = r.Geographic
	return out
}

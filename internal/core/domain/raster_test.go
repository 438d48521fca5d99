package domain_test

import (
	"math"
	"testing"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

func testRaster() *domain.Raster {
	// 10x10 grid over [127.0, 127.01] x [35.99, 36.0], 0.001 degree cells.
	r := domain.NewRaster(10, 10, [6]float64{127.0, 0.001, 0, 36.0, 0, -0.001}, -9999)
	r.Geographic = true
	return r
}

func TestRasterAtSetRoundTrip(t *testing.T) {
	r := testRaster()
	r.Set(3, 7, 42.5)
	if v := r.At(3, 7); v != 42.5 {
		t.Errorf("expected 42.5, got %g", v)
	}
	if v := r.At(0, 0); !r.IsNoData(v) {
		t.Errorf("untouched cell should be nodata, got %g", v)
	}
}

func TestRasterOutOfRangeAccess(t *testing.T) {
	r := testRaster()
	if v := r.At(-1, 0); !r.IsNoData(v) {
		t.Errorf("negative row should read as nodata, got %g", v)
	}
	r.Set(10, 0, 1) // silently ignored
	if v := r.At(9, 0); !r.IsNoData(v) {
		t.Errorf("out-of-range write leaked into the grid: %g", v)
	}
}

func TestRasterIsNoDataNaN(t *testing.T) {
	r := testRaster()
	if !r.IsNoData(math.NaN()) {
		t.Error("NaN should always read as nodata")
	}
}

func TestRasterCellCenter(t *testing.T) {
	r := testRaster()
	x, y := r.CellCenter(0, 0)
	if math.Abs(x-127.0005) > 1e-12 || math.Abs(y-35.9995) > 1e-12 {
		t.Errorf("cell (0,0) center at (%g, %g)", x, y)
	}
}

func TestRasterIndexInvertsCellCenter(t *testing.T) {
	r := testRaster()
	for _, cell := range [][2]int{{0, 0}, {4, 7}, {9, 9}} {
		x, y := r.CellCenter(cell[0], cell[1])
		row, col, ok := r.Index(x, y)
		if !ok || row != cell[0] || col != cell[1] {
			t.Errorf("cell %v round-tripped to (%d,%d) ok=%v", cell, row, col, ok)
		}
	}
}

func TestRasterIndexOutside(t *testing.T) {
	r := testRaster()
	if _, _, ok := r.Index(126.0, 36.0); ok {
		t.Error("coordinate west of the raster should not resolve")
	}
	if _, _, ok := r.Index(127.005, 37.0); ok {
		t.Error("coordinate north of the raster should not resolve")
	}
}

func TestRasterBounds(t *testing.T) {
	r := testRaster()
	b := r.Bounds()
	want := domain.Bounds{MinLat: 35.99, MinLon: 127.0, MaxLat: 36.0, MaxLon: 127.01}
	if math.Abs(b.MinLat-want.MinLat) > 1e-9 || math.Abs(b.MaxLon-want.MaxLon) > 1e-9 ||
		math.Abs(b.MaxLat-want.MaxLat) > 1e-9 || math.Abs(b.MinLon-want.MinLon) > 1e-9 {
		t.Errorf("bounds %+v, want %+v", b, want)
	}
}

func TestRasterCellSizeMeters(t *testing.T) {
	r := testRaster()
	dx, dy := r.CellSizeMeters()
	// 0.001 degrees of latitude is about 111 m; longitude shrinks by cos(lat).
	if math.Abs(dy-111.32) > 0.5 {
		t.Errorf("expected ~111 m latitude spacing, got %g", dy)
	}
	if dx >= dy {
		t.Errorf("longitude spacing %g should be below latitude spacing %g at 36N", dx, dy)
	}

	p := domain.NewRaster(4, 4, [6]float64{0, 30, 0, 0, 0, -30}, -9999)
	if px, py := p.CellSizeMeters(); px != 30 || py != 30 {
		t.Errorf("projected raster spacing (%g, %g), want (30, 30)", px, py)
	}
}

func TestRasterLike(t *testing.T) {
	r := testRaster()
	r.Set(2, 2, 55)
	c := r.Like()
	if c.Width != r.Width || c.Height != r.Height || c.Transform != r.Transform {
		t.Error("copy should share shape and georeferencing")
	}
	if !c.Geographic || c.NoData != r.NoData {
		t.Error("copy should carry Geographic and NoData")
	}
	if v := c.At(2, 2); !c.IsNoData(v) {
		t.Errorf("copy should start empty, got %g", v)
	}
}

// Package terrain computes derived terrain metrics (slope, curvature, flow
// accumulation, topographic wetness index) from a clipped DEM raster.
package terrain

import (
	"math"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

// gradient computes central-difference partial derivatives of the DEM along
// columns (gx) and rows (gy), with one-sided differences at the edges. A
// single-row or single-column raster has zero gradient along the missing
// axis. Cells touching nodata come out as nodata.
func gradient(dem *domain.Raster, dx, dy float64) (gx, gy *domain.Raster) {
	gx, gy = dem.Like(), dem.Like()

	diff := func(a, b float64, h float64) (float64, bool) {
		if dem.IsNoData(a) || dem.IsNoData(b) {
			return 0, false
		}
		return (a - b) / h, true
	}

	for row := 0; row < dem.Height; row++ {
		for col := 0; col < dem.Width; col++ {
			if dem.IsNoData(dem.At(row, col)) {
				continue
			}

			var vx, vy float64
			var ok bool
			switch {
			case dem.Width == 1:
				vx, ok = 0, true
			case col == 0:
				vx, ok = diff(dem.At(row, col+1), dem.At(row, col), dx)
			case col == dem.Width-1:
				vx, ok = diff(dem.At(row, col), dem.At(row, col-1), dx)
			default:
				vx, ok = diff(dem.At(row, col+1), dem.At(row, col-1), 2*dx)
			}
			if !ok {
				continue
			}
			gx.Set(row, col, vx)

			switch {
			case dem.Height == 1:
				vy, ok = 0, true
			case row == 0:
				vy, ok = diff(dem.At(row+1, col), dem.At(row, col), dy)
			case row == dem.Height-1:
				vy, ok = diff(dem.At(row, col), dem.At(row-1, col), dy)
			default:
				vy, ok = diff(dem.At(row+1, col), dem.At(row-1, col), 2*dy)
			}
			if !ok {
				gx.Set(row, col, gx.NoData)
				continue
			}
			gy.Set(row, col, vy)
		}
	}
	return gx, gy
}

// Slope returns per-cell slope in degrees:
// atan(sqrt(gx^2 + gy^2)) over the cell spacing in meters.
func Slope(dem *domain.Raster) *domain.Raster {
	dx, dy := dem.CellSizeMeters()
	gx, gy := gradient(dem, dx, dy)

	out := dem.Like()
	for row := 0; row < dem.Height; row++ {
		for col := 0; col < dem.Width; col++ {
			vx, vy := gx.At(row, col), gy.At(row, col)
			if gx.IsNoData(vx) || gy.IsNoData(vy) {
				continue
			}
			rad := math.Atan(math.Hypot(vx, vy))
			out.Set(row, col, rad*180/math.Pi)
		}
	}
	return out
}

// Curvature returns the Laplacian of the surface (zxx + zyy) as a convexity
// proxy. Negative values are concave (valleys, hollows).
func Curvature(dem *domain.Raster) *domain.Raster {
	dx, dy := dem.CellSizeMeters()
	gx, gy := gradient(dem, dx, dy)
	gxx, _ := gradient(gx, dx, dy)
	_, gyy := gradient(gy, dx, dy)

	out := dem.Like()
	for row := 0; row < dem.Height; row++ {
		for col := 0; col < dem.Width; col++ {
			a, b := gxx.At(row, col), gyy.At(row, col)
			if gxx.IsNoData(a) || gyy.IsNoData(b) {
				continue
			}
			out.Set(row, col, a+b)
		}
	}
	return out
}

// TWI computes the topographic wetness index ln(a / tan(b)) where a is the
// specific catchment area (flowAcc+1)*cellsize and b the slope. tan(b) is
// floored at 0.001 so flat cells stay finite.
func TWI(slope, flowAcc *domain.Raster) *domain.Raster {
	cellSize, _ := slope.CellSizeMeters()

	out := slope.Like()
	for row := 0; row < slope.Height; row++ {
		for col := 0; col < slope.Width; col++ {
			s := slope.At(row, col)
			if slope.IsNoData(s) {
				continue
			}
			acc := flowAcc.At(row, col)
			if flowAcc.IsNoData(acc) {
				acc = 0
			}
			tan := math.Tan(s * math.Pi / 180)
			if tan < 0.001 {
				tan = 0.001
			}
			a := (acc + 1) * cellSize
			out.Set(row, col, math.Log(a/tan))
		}
	}
	return out
}

// Metrics is the full derived-metric set for one clipped DEM.
type Metrics struct {
	DEM       *domain.Raster
	Slope     *domain.Raster
	Curvature *domain.Raster
	FlowAcc   *domain.Raster
	TWI       *domain.Raster
}

// Compute runs the whole pipeline on a clipped DEM.
func Compute(dem *domain.Raster) *Metrics {
	slope := Slope(dem)
	curv := Curvature(dem)
	acc := FlowAccumulation(dem)
	twi := TWI(slope, acc)
	return &Metrics{DEM: dem, Slope: slope, Curvature: curv, FlowAcc: acc, TWI: twi}
}

package terrain

import (
	"math"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

// d8 neighbor offsets and their traversal distances in cell units.
var d8 = [8]struct {
	dr, dc int
	dist   float64
}{
	{-1, 0, 1}, {1, 0, 1}, {0, -1, 1}, {0, 1, 1},
	{-1, -1, math.Sqrt2}, {-1, 1, math.Sqrt2}, {1, -1, math.Sqrt2}, {1, 1, math.Sqrt2},
}

// flowDirections assigns each cell the index of its steepest-descent D8
// neighbor, or -1 for sinks, flats, and nodata cells. The result is a
// downslope tree: every cell drains to at most one neighbor.
func flowDirections(dem *domain.Raster) []int {
	ds := make([]int, dem.Width*dem.Height)
	for i := range ds {
		ds[i] = -1
	}

	for row := 0; row < dem.Height; row++ {
		for col := 0; col < dem.Width; col++ {
			z := dem.At(row, col)
			if dem.IsNoData(z) {
				continue
			}
			best, bestDrop := -1, 0.0
			for _, n := range d8 {
				nr, nc := row+n.dr, col+n.dc
				if nr < 0 || nr >= dem.Height || nc < 0 || nc >= dem.Width {
					continue
				}
				nz := dem.At(nr, nc)
				if dem.IsNoData(nz) {
					continue
				}
				drop := (z - nz) / n.dist
				if drop > bestDrop {
					bestDrop = drop
					best = nr*dem.Width + nc
				}
			}
			ds[row*dem.Width+col] = best
		}
	}
	return ds
}

// FlowAccumulation counts, for every cell, the number of upslope cells that
// drain through it along D8 steepest-descent directions. The count is taken
// in topological order over the downslope tree (upslope accumulation over a
// tree-graph topology), so each cell is visited once and no recursion depth
// is involved.
func FlowAccumulation(dem *domain.Raster) *domain.Raster {
	ds := flowDirections(dem)
	n := dem.Width * dem.Height

	indeg := make([]int, n)
	for _, d := range ds {
		if d >= 0 {
			indeg[d]++
		}
	}

	acc := make([]float64, n)
	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		d := ds[c]
		if d < 0 {
			continue
		}
		acc[d] += acc[c] + 1
		indeg[d]--
		if indeg[d] == 0 {
			queue = append(queue, d)
		}
	}

	out := dem.Like()
	for i, v := range acc {
		if dem.IsNoData(dem.Data[i]) {
			continue
		}
		out.Data[i] = v
	}
	return out
}

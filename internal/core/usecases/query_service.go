package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
	"github.com/rucachi/NGII-ICUH/internal/core/ports"
	"github.com/rucachi/NGII-ICUH/internal/core/terrain"
)

// queryWindow is the square of DEM cells read around a queried point so
// slope and TWI have enough context to be meaningful at its center.
const queryWindow = 33

// QueryService answers single-coordinate terrain queries.
type QueryService struct {
	dem   ports.DEMSource
	tiles ports.PointElevationSource
	cache ports.CacheService
}

// NewQueryService creates a QueryService. dem and tiles may each be nil.
func NewQueryService(dem ports.DEMSource, tiles ports.PointElevationSource, cache ports.CacheService) *QueryService {
	return &QueryService{dem: dem, tiles: tiles, cache: cache}
}

// QueryPoint samples elevation, slope, and TWI at a WGS84 coordinate.
// The project DEM is preferred; the tile-set fallback serves elevation only.
func (s *QueryService) QueryPoint(ctx context.Context, lon, lat float64) (*domain.TerrainPoint, error) {
	cacheKey := fmt.Sprintf("query:point:%.5f:%.5f", lon, lat)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var tp domain.TerrainPoint
			if err := json.Unmarshal(data, &tp); err == nil {
				return &tp, nil
			}
		}
	}

	tp, err := s.query(ctx, lon, lat)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(tp); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}
	return tp, nil
}

func (s *QueryService) query(ctx context.Context, lon, lat float64) (*domain.TerrainPoint, error) {
	if s.dem != nil {
		tp, err := s.queryDEM(ctx, lon, lat)
		if err == nil {
			return tp, nil
		}
		if err != domain.ErrOutOfBounds || s.tiles == nil {
			return nil, err
		}
		// fall through to the tile set for out-of-bounds coordinates
	}

	if s.tiles == nil {
		if s.dem == nil {
			return nil, domain.ErrNoDEM
		}
		return nil, domain.ErrOutOfBounds
	}

	elev, err := s.tiles.ElevationAt(ctx, lon, lat)
	if err != nil {
		return nil, err
	}
	return &domain.TerrainPoint{
		Location:  domain.GeoPoint{Lat: lat, Lon: lon},
		Elevation: elev,
		Source:    "tileset",
	}, nil
}

func (s *QueryService) queryDEM(ctx context.Context, lon, lat float64) (*domain.TerrainPoint, error) {
	elev, err := s.dem.ElevationAt(ctx, lon, lat)
	if err != nil {
		return nil, err
	}

	tp := &domain.TerrainPoint{
		Location:  domain.GeoPoint{Lat: lat, Lon: lon},
		Elevation: elev,
		Source:    "dem",
	}

	// Derived metrics need a neighborhood; failure to read one degrades the
	// answer to elevation-only rather than failing the query.
	win, err := s.dem.Window(ctx, lon, lat, queryWindow)
	if err != nil {
		return tp, nil
	}

	slope := terrain.Slope(win)
	acc := terrain.FlowAccumulation(win)
	twi := terrain.TWI(slope, acc)

	row, col := win.Height/2, win.Width/2
	if v := slope.At(row, col); !slope.IsNoData(v) {
		tp.Slope = &v
	}
	if v := twi.At(row, col); !twi.IsNoData(v) {
		tp.TWI = &v
	}
	return tp, nil
}

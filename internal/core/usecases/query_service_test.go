package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
	"github.com/rucachi/NGII-ICUH/internal/core/usecases"
)

// mockTiles implements PointElevationSource.
type mockTiles struct {
	elevFn func(ctx context.Context, lon, lat float64) (float64, error)
	calls  int
}

func (m *mockTiles) ElevationAt(ctx context.Context, lon, lat float64) (float64, error) {
	m.calls++
	if m.elevFn != nil {
		return m.elevFn(ctx, lon, lat)
	}
	return 0, domain.ErrOutOfBounds
}

func TestQueryPointFromDEM(t *testing.T) {
	dem := newMemDEM()
	svc := usecases.NewQueryService(dem, nil, nil)

	// Center of cell (4,4), the valley floor.
	tp, err := svc.QueryPoint(context.Background(), 127.0045, 35.9955)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if tp.Source != "dem" {
		t.Errorf("expected DEM source, got %q", tp.Source)
	}
	if tp.Elevation != 104 {
		t.Errorf("expected elevation 104, got %g", tp.Elevation)
	}
	if tp.Slope == nil || tp.TWI == nil {
		t.Error("expected derived slope and TWI for an in-bounds point")
	}
	if tp.Location.Lat != 35.9955 || tp.Location.Lon != 127.0045 {
		t.Errorf("location echoed as (%g, %g)", tp.Location.Lat, tp.Location.Lon)
	}
}

func TestQueryPointFallsBackToTileset(t *testing.T) {
	dem := newMemDEM()
	tiles := &mockTiles{
		elevFn: func(ctx context.Context, lon, lat float64) (float64, error) {
			return 321.5, nil
		},
	}
	svc := usecases.NewQueryService(dem, tiles, nil)

	tp, err := svc.QueryPoint(context.Background(), 10.0, 50.0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if tp.Source != "tileset" {
		t.Errorf("expected tileset source, got %q", tp.Source)
	}
	if tp.Elevation != 321.5 {
		t.Errorf("expected tileset elevation, got %g", tp.Elevation)
	}
	if tp.Slope != nil || tp.TWI != nil {
		t.Error("tileset answers are elevation-only")
	}
}

func TestQueryPointOutOfBoundsWithoutTileset(t *testing.T) {
	svc := usecases.NewQueryService(newMemDEM(), nil, nil)
	if _, err := svc.QueryPoint(context.Background(), 10.0, 50.0); !errors.Is(err, domain.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestQueryPointTilesetOnly(t *testing.T) {
	tiles := &mockTiles{
		elevFn: func(ctx context.Context, lon, lat float64) (float64, error) {
			return 88, nil
		},
	}
	svc := usecases.NewQueryService(nil, tiles, nil)

	tp, err := svc.QueryPoint(context.Background(), 127.0, 36.0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if tp.Source != "tileset" || tp.Elevation != 88 {
		t.Errorf("got %q / %g", tp.Source, tp.Elevation)
	}
}

func TestQueryPointNoSources(t *testing.T) {
	svc := usecases.NewQueryService(nil, nil, nil)
	if _, err := svc.QueryPoint(context.Background(), 127.0, 36.0); !errors.Is(err, domain.ErrNoDEM) {
		t.Fatalf("expected ErrNoDEM, got %v", err)
	}
}

func TestQueryPointCached(t *testing.T) {
	dem := newMemDEM()
	svc := usecases.NewQueryService(dem, nil, newMemCache())

	for i := 0; i < 3; i++ {
		if _, err := svc.QueryPoint(context.Background(), 127.0045, 35.9955); err != nil {
			t.Fatalf("query %d: %v", i, err)
		}
	}
	if dem.elevCalls != 1 {
		t.Errorf("expected one DEM sample, got %d", dem.elevCalls)
	}
}

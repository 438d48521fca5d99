package geospatial_test

import (
	"math"
	"testing"

	"github.com/rucachi/NGII-ICUH/internal/pkg/geospatial"
)

func TestHaversineZeroDistance(t *testing.T) {
	if d := geospatial.Haversine(36.5, 127.5, 36.5, 127.5); d != 0 {
		t.Errorf("expected 0 for identical points, got %g", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Seoul City Hall to Busan City Hall, roughly 325 km.
	d := geospatial.Haversine(37.5663, 126.9779, 35.1798, 129.0750)
	if d < 320_000 || d > 330_000 {
		t.Errorf("Seoul-Busan distance %g m outside expected range", d)
	}
}

func TestHaversineOneDegreeLatitude(t *testing.T) {
	d := geospatial.Haversine(36.0, 127.0, 37.0, 127.0)
	if math.Abs(d-111_195) > 500 {
		t.Errorf("one degree of latitude should be ~111.2 km, got %g m", d)
	}
}

func TestHaversineSymmetric(t *testing.T) {
	a := geospatial.Haversine(36.0, 127.0, 36.3, 127.4)
	b := geospatial.Haversine(36.3, 127.4, 36.0, 127.0)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("distance should be symmetric: %g vs %g", a, b)
	}
}

func TestBoundingBoxRoundTrip(t *testing.T) {
	const radius = 500.0
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(36.5, 127.5, radius)

	if minLat >= 36.5 || maxLat <= 36.5 || minLon >= 127.5 || maxLon <= 127.5 {
		t.Fatalf("box [%g,%g]x[%g,%g] does not surround the center", minLat, maxLat, minLon, maxLon)
	}

	// Edge midpoints sit at the requested radius.
	if d := geospatial.Haversine(36.5, 127.5, maxLat, 127.5); math.Abs(d-radius) > radius*0.01 {
		t.Errorf("north edge at %g m, want ~%g", d, radius)
	}
	if d := geospatial.Haversine(36.5, 127.5, 36.5, maxLon); math.Abs(d-radius) > radius*0.01 {
		t.Errorf("east edge at %g m, want ~%g", d, radius)
	}
}

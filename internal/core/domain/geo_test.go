package domain_test

import (
	"strings"
	"testing"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

const squareAOI = `{"type":"Polygon","coordinates":[[[127.0,36.0],[127.1,36.0],[127.1,36.1],[127.0,36.1],[127.0,36.0]]]}`

func TestExtractGeometryBare(t *testing.T) {
	g, err := domain.ExtractGeometry([]byte(squareAOI))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if g.Type != "Polygon" {
		t.Errorf("expected Polygon, got %q", g.Type)
	}
}

func TestExtractGeometryFeature(t *testing.T) {
	body := `{"type":"Feature","properties":{"name":"aoi"},"geometry":` + squareAOI + `}`
	g, err := domain.ExtractGeometry([]byte(body))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if g.Type != "Polygon" {
		t.Errorf("expected Polygon, got %q", g.Type)
	}
}

func TestExtractGeometryFeatureCollection(t *testing.T) {
	body := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":` + squareAOI + `}]}`
	g, err := domain.ExtractGeometry([]byte(body))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if g.Type != "Polygon" {
		t.Errorf("expected Polygon, got %q", g.Type)
	}
}

func TestExtractGeometryErrors(t *testing.T) {
	cases := map[string]string{
		"not json":         `{`,
		"missing type":     `{"coordinates":[]}`,
		"empty collection": `{"type":"FeatureCollection","features":[]}`,
	}
	for name, body := range cases {
		if _, err := domain.ExtractGeometry([]byte(body)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestPolygonRings(t *testing.T) {
	g, _ := domain.ExtractGeometry([]byte(squareAOI))
	rings, err := g.PolygonRings()
	if err != nil {
		t.Fatalf("rings: %v", err)
	}
	if len(rings) != 1 || len(rings[0]) != 5 {
		t.Fatalf("expected 1 ring of 5 points, got %d rings", len(rings))
	}
	if rings[0][1] != [2]float64{127.1, 36.0} {
		t.Errorf("unexpected second vertex: %v", rings[0][1])
	}
}

func TestPolygonRingsMultiPolygonUsesFirst(t *testing.T) {
	g := domain.MultiPolygonGeometry([][][][2]float64{
		{{{127.0, 36.0}, {127.1, 36.0}, {127.1, 36.1}, {127.0, 36.0}}},
		{{{128.0, 37.0}, {128.1, 37.0}, {128.1, 37.1}, {128.0, 37.0}}},
	})
	rings, err := g.PolygonRings()
	if err != nil {
		t.Fatalf("rings: %v", err)
	}
	if rings[0][0][0] != 127.0 {
		t.Errorf("expected first polygon's rings, got lon %g", rings[0][0][0])
	}
}

func TestPolygonRingsRejectsPoint(t *testing.T) {
	g := domain.PointGeometry(127.0, 36.0)
	if _, err := g.PolygonRings(); err == nil || !strings.Contains(err.Error(), "not polygonal") {
		t.Errorf("expected a non-polygonal error, got %v", err)
	}
}

func TestPolygonBounds(t *testing.T) {
	g, _ := domain.ExtractGeometry([]byte(squareAOI))
	b, err := g.PolygonBounds()
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	want := domain.Bounds{MinLat: 36.0, MinLon: 127.0, MaxLat: 36.1, MaxLon: 127.1}
	if b != want {
		t.Errorf("bounds %+v, want %+v", b, want)
	}
}

func TestBoundsContains(t *testing.T) {
	b := domain.Bounds{MinLat: 36, MinLon: 127, MaxLat: 37, MaxLon: 128}
	if !b.Contains(domain.GeoPoint{Lat: 36.5, Lon: 127.5}) {
		t.Error("interior point should be contained")
	}
	if !b.Contains(domain.GeoPoint{Lat: 36, Lon: 127}) {
		t.Error("edge point should be contained")
	}
	if b.Contains(domain.GeoPoint{Lat: 35.9, Lon: 127.5}) {
		t.Error("outside point should not be contained")
	}
}

func TestBoundsOverlaps(t *testing.T) {
	b := domain.Bounds{MinLat: 36, MinLon: 127, MaxLat: 37, MaxLon: 128}
	if !b.Overlaps(domain.Bounds{MinLat: 36.5, MinLon: 127.5, MaxLat: 38, MaxLon: 129}) {
		t.Error("intersecting boxes should overlap")
	}
	if b.Overlaps(domain.Bounds{MinLat: 40, MinLon: 127, MaxLat: 41, MaxLon: 128}) {
		t.Error("disjoint boxes should not overlap")
	}
}

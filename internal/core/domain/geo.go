package domain

import (
	"encoding/json"
	"fmt"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies inside the box (inclusive).
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Overlaps reports whether two boxes intersect.
func (b Bounds) Overlaps(o Bounds) bool {
	return b.MinLon <= o.MaxLon && b.MaxLon >= o.MinLon &&
		b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat
}

// Geometry is a GeoJSON geometry. Coordinates stay raw until a caller
// asks for a concrete shape, so Point and (Multi)Polygon share one type.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection returns an empty, typed collection.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// PointGeometry builds a GeoJSON Point from lon/lat.
func PointGeometry(lon, lat float64) Geometry {
	coords, _ := json.Marshal([]float64{lon, lat})
	return Geometry{Type: "Point", Coordinates: coords}
}

// PolygonGeometry builds a GeoJSON Polygon from rings of [lon, lat] pairs.
func PolygonGeometry(rings [][][2]float64) Geometry {
	coords, _ := json.Marshal(rings)
	return Geometry{Type: "Polygon", Coordinates: coords}
}

// MultiPolygonGeometry builds a GeoJSON MultiPolygon from per-polygon rings.
func MultiPolygonGeometry(polys [][][][2]float64) Geometry {
	coords, _ := json.Marshal(polys)
	return Geometry{Type: "MultiPolygon", Coordinates: coords}
}

// PolygonRings returns the rings of a Polygon geometry, or the rings of the
// first polygon of a MultiPolygon, as [lon, lat] pairs.
func (g Geometry) PolygonRings() ([][][2]float64, error) {
	switch g.Type {
	case "Polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("polygon coordinates: %w", err)
		}
		return rings, nil
	case "MultiPolygon":
		var polys [][][][2]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("multipolygon coordinates: %w", err)
		}
		if len(polys) == 0 {
			return nil, fmt.Errorf("multipolygon has no polygons")
		}
		return polys[0], nil
	default:
		return nil, fmt.Errorf("geometry type %q is not polygonal", g.Type)
	}
}

// PolygonBounds computes the bounding box of a polygonal geometry
// (coordinates assumed lon/lat).
func (g Geometry) PolygonBounds() (Bounds, error) {
	rings, err := g.PolygonRings()
	if err != nil {
		return Bounds{}, err
	}
	if len(rings) == 0 || len(rings[0]) == 0 {
		return Bounds{}, fmt.Errorf("polygon has no coordinates")
	}
	b := Bounds{MinLat: 90, MaxLat: -90, MinLon: 180, MaxLon: -180}
	for _, ring := range rings {
		for _, c := range ring {
			lon, lat := c[0], c[1]
			if lat < b.MinLat {
				b.MinLat = lat
			}
			if lat > b.MaxLat {
				b.MaxLat = lat
			}
			if lon < b.MinLon {
				b.MinLon = lon
			}
			if lon > b.MaxLon {
				b.MaxLon = lon
			}
		}
	}
	return b, nil
}

// ExtractGeometry accepts a bare geometry, a Feature, or a FeatureCollection
// (taking the first feature) and returns the contained geometry. This mirrors
// what map-drawing clients actually post.
func ExtractGeometry(body []byte) (Geometry, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return Geometry{}, fmt.Errorf("invalid GeoJSON: %w", err)
	}

	switch probe.Type {
	case "FeatureCollection":
		var fc FeatureCollection
		if err := json.Unmarshal(body, &fc); err != nil {
			return Geometry{}, fmt.Errorf("invalid FeatureCollection: %w", err)
		}
		if len(fc.Features) == 0 {
			return Geometry{}, fmt.Errorf("FeatureCollection has no features")
		}
		return fc.Features[0].Geometry, nil
	case "Feature":
		var f Feature
		if err := json.Unmarshal(body, &f); err != nil {
			return Geometry{}, fmt.Errorf("invalid Feature: %w", err)
		}
		return f.Geometry, nil
	case "":
		return Geometry{}, fmt.Errorf("GeoJSON type is required")
	default:
		var g Geometry
		if err := json.Unmarshal(body, &g); err != nil {
			return Geometry{}, fmt.Errorf("invalid geometry: %w", err)
		}
		return g, nil
	}
}

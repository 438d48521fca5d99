// Package shapefile serves watershed boundary polygons from a national basin
// shapefile, reprojected to WGS84 and indexed with an R-tree.
package shapefile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

const wgs84Proj4 = "+proj=longlat +datum=WGS84 +no_defs"

// basin is the rtree payload: one watershed polygon plus its attributes.
type basin struct {
	geom.Polygonal
	code string
	name string
}

// Store holds all watershed polygons in memory. National basin layers are a
// few thousand features, small enough to load once on startup.
type Store struct {
	tree   *rtree.Rtree
	byCode map[string]*basin
	codes  []string
	logger *slog.Logger
}

// Options name the attribute columns carrying the basin code and name.
type Options struct {
	CodeColumn string
	NameColumn string
}

// Load reads the shapefile at path, transforming every polygon to WGS84
// using the .prj sidecar.
func Load(path string, opts Options, logger *slog.Logger) (*Store, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open watershed shapefile %s: %w", path, err)
	}
	defer dec.Close()

	srcSR, err := dec.SR()
	if err != nil {
		return nil, fmt.Errorf("watershed shapefile projection: %w", err)
	}
	wgsSR, err := proj.Parse(wgs84Proj4)
	if err != nil {
		return nil, fmt.Errorf("parse WGS84 projection: %w", err)
	}
	trans, err := srcSR.NewTransform(wgsSR)
	if err != nil {
		return nil, fmt.Errorf("watershed to WGS84 transform: %w", err)
	}

	s := &Store{
		tree:   rtree.NewTree(25, 50),
		byCode: make(map[string]*basin),
		logger: logger,
	}

	skipped := 0
	for {
		g, fields, more := dec.DecodeRowFields(opts.CodeColumn, opts.NameColumn)
		if !more {
			break
		}
		code, ok := fields[opts.CodeColumn]
		if !ok || code == "" {
			skipped++
			continue
		}

		gg, err := g.Transform(trans)
		if err != nil {
			return nil, fmt.Errorf("reproject watershed %s: %w", code, err)
		}
		poly, ok := gg.(geom.Polygonal)
		if !ok {
			skipped++
			continue
		}

		b := &basin{Polygonal: poly, code: code, name: fields[opts.NameColumn]}
		s.tree.Insert(b)
		s.byCode[code] = b
		s.codes = append(s.codes, code)
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("decode watershed shapefile: %w", err)
	}

	sort.Strings(s.codes)
	logger.Info("watershed shapefile loaded",
		"path", path, "basins", len(s.codes), "skipped", skipped)
	return s, nil
}

// Count returns the number of loaded basins.
func (s *Store) Count() int {
	return len(s.codes)
}

// List returns every basin without boundary geometry, ordered by code.
func (s *Store) List(ctx context.Context) ([]domain.Watershed, error) {
	out := make([]domain.Watershed, 0, len(s.codes))
	for _, code := range s.codes {
		out = append(out, s.byCode[code].summary())
	}
	return out, nil
}

// GetByCode returns one basin including its boundary polygon.
func (s *Store) GetByCode(ctx context.Context, code string) (*domain.Watershed, error) {
	b, ok := s.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	w := b.summary()
	w.Boundary = b.boundaryGeoJSON()
	return &w, nil
}

// FindByPoint returns the basin containing a WGS84 coordinate.
func (s *Store) FindByPoint(ctx context.Context, lat, lon float64) (*domain.Watershed, error) {
	pt := geom.Point{X: lon, Y: lat}
	for _, item := range s.tree.SearchIntersect(pt.Bounds()) {
		b := item.(*basin)
		if pt.Within(b.Polygonal) != geom.Outside {
			w := b.summary()
			w.Boundary = b.boundaryGeoJSON()
			return &w, nil
		}
	}
	return nil, domain.ErrNotFound
}

// FindByBounds returns every basin overlapping a WGS84 bounding box, without
// boundary geometry, ordered by code.
func (s *Store) FindByBounds(ctx context.Context, bb domain.Bounds) ([]domain.Watershed, error) {
	box := &geom.Bounds{
		Min: geom.Point{X: bb.MinLon, Y: bb.MinLat},
		Max: geom.Point{X: bb.MaxLon, Y: bb.MaxLat},
	}
	var out []domain.Watershed
	for _, item := range s.tree.SearchIntersect(box) {
		out = append(out, item.(*basin).summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (b *basin) summary() domain.Watershed {
	gb := b.Bounds()
	return domain.Watershed{
		Code: b.code,
		Name: b.name,
		Bounds: domain.Bounds{
			MinLon: gb.Min.X,
			MinLat: gb.Min.Y,
			MaxLon: gb.Max.X,
			MaxLat: gb.Max.Y,
		},
		AreaKm2: b.areaKm2(),
	}
}

// areaKm2 approximates the polygon area by scaling the planar degree area at
// the basin's mid latitude.
func (b *basin) areaKm2() float64 {
	gb := b.Bounds()
	midLat := (gb.Min.Y + gb.Max.Y) / 2
	const kmPerDegree = 111.32
	scale := kmPerDegree * kmPerDegree * math.Cos(midLat*math.Pi/180)
	return math.Abs(b.Area()) * scale
}

// boundaryGeoJSON converts the polygonal to a GeoJSON geometry.
func (b *basin) boundaryGeoJSON() domain.Geometry {
	switch p := b.Polygonal.(type) {
	case geom.Polygon:
		return domain.PolygonGeometry(ringsOf(p))
	case geom.MultiPolygon:
		if len(p) == 1 {
			return domain.PolygonGeometry(ringsOf(p[0]))
		}
		all := make([][][][2]float64, 0, len(p))
		for _, poly := range p {
			all = append(all, ringsOf(poly))
		}
		return domain.MultiPolygonGeometry(all)
	default:
		return domain.Geometry{}
	}
}

func ringsOf(p geom.Polygon) [][][2]float64 {
	rings := make([][][2]float64, 0, len(p))
	for _, ring := range p {
		coords := make([][2]float64, 0, len(ring)+1)
		for _, pt := range ring {
			coords = append(coords, [2]float64{pt.X, pt.Y})
		}
		// GeoJSON rings are closed.
		if len(coords) > 0 && coords[0] != coords[len(coords)-1] {
			coords = append(coords, coords[0])
		}
		rings = append(rings, coords)
	}
	return rings
}

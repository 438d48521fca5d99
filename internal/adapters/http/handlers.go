package http

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
)

// QueryHandler samples terrain metrics at a single coordinate. The map
// client sends x (lon) and y (lat); lat/lon are accepted as aliases.
// GET /api/query?x=<lon>&y=<lat>
func QueryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lonStr := c.Query("x", c.Query("lon"))
		latStr := c.Query("y", c.Query("lat"))
		if lonStr == "" || latStr == "" {
			return errBadRequest(c, "x and y coordinates are required")
		}

		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return errBadRequest(c, "x must be a number")
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return errBadRequest(c, "y must be a number")
		}
		if lat < -90 || lat > 90 {
			return errBadRequest(c, "y must be between -90 and 90")
		}
		if lon < -180 || lon > 180 {
			return errBadRequest(c, "x must be between -180 and 180")
		}

		pt, err := deps.Query.QueryPoint(c.Context(), lon, lat)
		if errors.Is(err, domain.ErrOutOfBounds) {
			// The map client keys on this exact error field.
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "coordinate out of bounds",
			})
		}
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(pt)
	}
}

// AnalyzeAOIHandler runs a synchronous suitability analysis over a GeoJSON
// AOI. Accepts a bare geometry, a Feature, or a FeatureCollection, and
// answers with a FeatureCollection of candidate sites, or a message object
// when nothing clears the threshold.
// POST /api/analyze_aoi
func AnalyzeAOIHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		g, err := parseAOI(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		res, err := deps.Analysis.AnalyzeAOI(c.Context(), g)
		if errors.Is(err, domain.ErrOutOfBounds) {
			return errBadRequest(c, "AOI does not overlap the DEM extent")
		}
		if errors.Is(err, domain.ErrAOITooLarge) {
			return newError(c, fiber.StatusRequestEntityTooLarge, "aoi_too_large",
				"AOI exceeds the synchronous analysis limit; submit it to POST /v1/analyses instead")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}

		if len(res.Candidates) == 0 {
			return c.JSON(fiber.Map{
				"message":    "no suitable sites found",
				"candidates": []domain.CandidateSite{},
			})
		}
		return c.JSON(deps.Reports.ExportGeoJSON(res.Candidates))
	}
}

// StartAnalysisHandler accepts an AOI and queues an asynchronous run.
// POST /v1/analyses
func StartAnalysisHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		g, err := parseAOI(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		run, err := deps.Analysis.StartRun(c.Context(), g)
		if err != nil {
			return errInternal(c, err.Error())
		}

		if deps.Launcher != nil {
			if err := deps.Launcher.LaunchRun(c.Context(), run.ID); err != nil {
				_ = deps.Analysis.FailRun(c.Context(), run.ID, "dispatch: "+err.Error())
				return errInternal(c, "failed to dispatch analysis: "+err.Error())
			}
		}

		c.Set("Location", "/v1/analyses/"+run.ID)
		return c.Status(fiber.StatusAccepted).JSON(run)
	}
}

// GetAnalysisHandler returns one run with its status and counters.
// GET /v1/analyses/:id
func GetAnalysisHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		run, err := deps.Analysis.GetRun(c.Context(), c.Params("id"))
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "analysis run not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(run)
	}
}

// ListAnalysesHandler returns runs newest first, paginated.
// GET /v1/analyses
func ListAnalysesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}

		runs, total, err := deps.Analysis.ListRuns(c.Context(), offset, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: runs, Pagination: pg})
	}
}

// ListCandidatesHandler returns a run's candidate sites by rank.
// GET /v1/analyses/:id/candidates
func ListCandidatesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}

		if _, err := deps.Analysis.GetRun(c.Context(), id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errNotFound(c, "analysis run not found")
			}
			return errInternal(c, err.Error())
		}

		sites, total, err := deps.Analysis.ListCandidates(c.Context(), id, offset, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: sites, Pagination: pg})
	}
}

// ReportHandler renders a plain-text summary report for a completed run.
// GET /v1/analyses/:id/report
func ReportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		run, err := deps.Analysis.GetRun(c.Context(), id)
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "analysis run not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}

		sites, _, err := deps.Analysis.ListCandidates(c.Context(), id, 0, 500)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Content-Type", "text/plain; charset=utf-8")
		c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis_%s.txt"`, id))
		return c.SendString(deps.Reports.BuildReport(run, sites))
	}
}

// ExportHandler downloads a run's candidates as CSV or GeoJSON.
// GET /v1/analyses/:id/export?format=csv|geojson
func ExportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		format := c.Query("format", "csv")

		if _, err := deps.Analysis.GetRun(c.Context(), id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errNotFound(c, "analysis run not found")
			}
			return errInternal(c, err.Error())
		}

		sites, _, err := deps.Analysis.ListCandidates(c.Context(), id, 0, 500)
		if err != nil {
			return errInternal(c, err.Error())
		}

		switch format {
		case "csv":
			data, err := deps.Reports.ExportCSV(sites)
			if err != nil {
				return errInternal(c, err.Error())
			}
			c.Set("Content-Type", "text/csv; charset=utf-8")
			c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="candidates_%s.csv"`, id))
			return c.Send(data)
		case "geojson":
			c.Set("Content-Type", "application/geo+json")
			c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="candidates_%s.geojson"`, id))
			return c.JSON(deps.Reports.ExportGeoJSON(sites))
		default:
			return errBadRequest(c, "format must be csv or geojson")
		}
	}
}

// ListWatershedsHandler returns basin summaries, optionally filtered by a
// bounding box (bbox=minLon,minLat,maxLon,maxLat).
// GET /v1/watersheds
func ListWatershedsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Watersheds == nil {
			return errNotFound(c, "watershed layer not configured")
		}

		if bbox := c.Query("bbox"); bbox != "" {
			b, err := parseBBox(bbox)
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			basins, err := deps.Watersheds.FindByBounds(c.Context(), b)
			if err != nil {
				return errInternal(c, err.Error())
			}
			return c.JSON(basins)
		}

		basins, err := deps.Watersheds.List(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(basins)
	}
}

// GetWatershedHandler returns one basin with its boundary polygon.
// GET /v1/watersheds/:code
func GetWatershedHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Watersheds == nil {
			return errNotFound(c, "watershed layer not configured")
		}

		w, err := deps.Watersheds.GetByCode(c.Context(), c.Params("code"))
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "watershed not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(w)
	}
}

// FindWatershedHandler returns the basin containing a coordinate.
// GET /v1/watersheds/locate?lat=..&lon=..
func FindWatershedHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Watersheds == nil {
			return errNotFound(c, "watershed layer not configured")
		}

		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}

		w, err := deps.Watersheds.FindByPoint(c.Context(), lat, lon)
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "no watershed contains this coordinate")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(w)
	}
}

// parseAOI extracts a polygonal GeoJSON geometry from the request body.
func parseAOI(c *fiber.Ctx) (domain.Geometry, error) {
	body := c.Body()
	if len(body) == 0 {
		return domain.Geometry{}, errors.New("request body must contain a GeoJSON AOI")
	}
	g, err := domain.ExtractGeometry(body)
	if err != nil {
		return domain.Geometry{}, err
	}
	if g.Type != "Polygon" && g.Type != "MultiPolygon" {
		return domain.Geometry{}, fmt.Errorf("AOI must be a Polygon or MultiPolygon, got %q", g.Type)
	}
	return g, nil
}

// parseBBox parses "minLon,minLat,maxLon,maxLat".
func parseBBox(s string) (domain.Bounds, error) {
	var b domain.Bounds
	n, err := fmt.Sscanf(s, "%f,%f,%f,%f", &b.MinLon, &b.MinLat, &b.MaxLon, &b.MaxLat)
	if err != nil || n != 4 {
		return b, errors.New("bbox must be minLon,minLat,maxLon,maxLat")
	}
	if b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat {
		return b, errors.New("bbox min values must be less than max values")
	}
	return b, nil
}

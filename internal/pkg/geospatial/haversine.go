// Package geospatial holds the WGS84 distance math shared by candidate
// clustering and the watershed lookups.
package geospatial

import "math"

const earthRadiusMeters = 6_371_000

// Haversine returns the great-circle distance in meters between two WGS84
// points. Candidate spacing is enforced with it.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// BoundingBox returns a lat/lon box around a point with the given radius in
// meters, for prefiltering before exact point-in-polygon checks.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

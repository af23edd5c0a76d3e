// Package geo implements the distance filter and reference-point resolution
// for monitoring zones.
package geo

import (
	"math"

	"github.com/roadwatch/datex-zone-monitor/internal/domain"
)

// earthRadiusKM is the mean Earth radius. The haversine result on a sphere
// is within ~0.5% of the ellipsoid distance, which is well inside the
// 0.1 km rounding precision used downstream.
const earthRadiusKM = 6371.0

// DistanceKM returns the great-circle distance in kilometers between two
// coordinates, computed with the haversine formula.
func DistanceKM(a, b domain.Geo) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}

// RoundDistanceKM rounds a distance to 0.1 km. Annotated distances are
// rounded to a fixed precision so identical real-world positions compare
// equal across cycles.
func RoundDistanceKM(km float64) float64 {
	return math.Round(km*10) / 10
}

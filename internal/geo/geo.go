// Package geo holds the coordinate math shared by the matcher and resolver:
// great-circle distance and rectangular search regions.
package geo

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000.0

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both components are finite and inside their ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// String renders "lat,lon", the form search APIs expect in query strings.
func (c Coordinate) String() string {
	return fmt.Sprintf("%s,%s", formatDegrees(c.Lat), formatDegrees(c.Lon))
}

// DistanceMeters returns the haversine distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)
	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*sinLon*sinLon
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func formatDegrees(v float64) string {
	return fmt.Sprintf("%.7f", v)
}

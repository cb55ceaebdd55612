package geo

import "math"

const (
	expandMultiplier = 3.25
	minExpandedSpan  = 0.5
	maxExpandedSpan  = 4.5
)

// Region is a latitude/longitude box described by its center and full span
// in degrees.
type Region struct {
	Center   Coordinate `json:"center"`
	LatDelta float64    `json:"lat_delta"`
	LonDelta float64    `json:"lon_delta"`
}

// NewRegion builds a region around center with the given spans.
func NewRegion(center Coordinate, latDelta, lonDelta float64) Region {
	return Region{Center: center, LatDelta: latDelta, LonDelta: lonDelta}
}

// Contains reports whether c lies inside the box, edges included. A region
// with a non-positive span contains nothing.
func (r Region) Contains(c Coordinate) bool {
	halfLat := r.LatDelta / 2
	halfLon := r.LonDelta / 2
	if halfLat <= 0 || halfLon <= 0 {
		return false
	}
	return c.Lat >= r.Center.Lat-halfLat &&
		c.Lat <= r.Center.Lat+halfLat &&
		c.Lon >= r.Center.Lon-halfLon &&
		c.Lon <= r.Center.Lon+halfLon
}

// Expand widens the region for a broader second search pass. Each span is
// multiplied by 3.25 and clamped to [0.5, 4.5] degrees.
func (r Region) Expand() Region {
	return Region{
		Center:   r.Center,
		LatDelta: clamp(r.LatDelta*expandMultiplier, minExpandedSpan, maxExpandedSpan),
		LonDelta: clamp(r.LonDelta*expandMultiplier, minExpandedSpan, maxExpandedSpan),
	}
}

// RadiusMeters approximates the region as a circle: the distance from the
// center to a corner.
func (r Region) RadiusMeters() float64 {
	corner := Coordinate{Lat: r.Center.Lat + r.LatDelta/2, Lon: r.Center.Lon + r.LonDelta/2}
	return DistanceMeters(r.Center, corner)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(v, lo))
}

const metersPerDegreeLat = 111320.0

// RegionAround returns the smallest region containing a circle of
// radiusMeters around center.
func RegionAround(center Coordinate, radiusMeters float64) Region {
	latDelta := 2 * radiusMeters / metersPerDegreeLat
	cosLat := math.Cos(toRadians(center.Lat))
	lonDelta := maxExpandedSpan * 2
	if cosLat > 1e-9 {
		lonDelta = 2 * radiusMeters / (metersPerDegreeLat * cosLat)
	}
	return Region{Center: center, LatDelta: latDelta, LonDelta: lonDelta}
}

// Low returns the south-west corner.
func (r Region) Low() Coordinate {
	return Coordinate{Lat: r.Center.Lat - r.LatDelta/2, Lon: r.Center.Lon - r.LonDelta/2}
}

// High returns the north-east corner.
func (r Region) High() Coordinate {
	return Coordinate{Lat: r.Center.Lat + r.LatDelta/2, Lon: r.Center.Lon + r.LonDelta/2}
}

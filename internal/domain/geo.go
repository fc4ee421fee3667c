package domain

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// GeoPoint is an immutable coordinate pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both coordinates are finite and inside WGS84 bounds.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Label renders a plain "lat, lon" fallback string for display.
func (p GeoPoint) Label() string {
	return fmt.Sprintf("%.4f, %.4f", p.Lat, p.Lon)
}

// DistanceKm returns the great-circle distance to other in kilometers.
func (p GeoPoint) DistanceKm(other GeoPoint) float64 {
	dLat := toRad(other.Lat - p.Lat)
	dLon := toRad(other.Lon - p.Lon)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(p.Lat))*math.Cos(toRad(other.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// RoundCoord rounds a coordinate to 4 decimal places (~11m). Used for cache
// and dedup keys only, never for coordinates returned to callers.
func RoundCoord(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

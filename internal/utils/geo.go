package utils

import (
	"fmt"
	"math"
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Bounds is a latitude/longitude box. It does not wrap the antimeridian.
type Bounds struct {
	Northeast Point `json:"northeast"`
	Southwest Point `json:"southwest"`
}

func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.Southwest.Lat && p.Lat <= b.Northeast.Lat &&
		p.Lng >= b.Southwest.Lng && p.Lng <= b.Northeast.Lng
}

// IndiaBounds is the default service region.
var IndiaBounds = Bounds{
	Southwest: Point{Lat: 6.0, Lng: 68.0},
	Northeast: Point{Lat: 37.5, Lng: 97.5},
}

func IsValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// IsNullIsland reports the (0,0) fix some devices emit before a lock.
func IsNullIsland(lat, lng float64) bool {
	return lat == 0 && lng == 0
}

// MapsLink is the shareable link sent to family contacts.
func MapsLink(lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", lat, lng)
}

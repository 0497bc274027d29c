package utils

import (
	"math"
)

// CalculateDistance returns the great-circle distance in kilometres.
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

func DistanceMeters(a, b Point) float64 {
	return CalculateDistance(a.Lat, a.Lng, b.Lat, b.Lng) * 1000
}

func IsWithinRadius(centerLat, centerLon, pointLat, pointLon, radiusKM float64) bool {
	return CalculateDistance(centerLat, centerLon, pointLat, pointLon) <= radiusKM
}

func EstimateETAMinutes(distanceKM float64, averageSpeedKMH float64) int {
	if averageSpeedKMH <= 0 {
		averageSpeedKMH = DefaultAverageSpeedKMH
	}

	timeMinutes := distanceKM * 60 / averageSpeedKMH
	return int(math.Ceil(timeMinutes))
}

// EstimateETASeconds is the straight-line travel time, rounded up.
func EstimateETASeconds(distanceMeters float64, averageSpeedKMH float64) int {
	if averageSpeedKMH <= 0 {
		averageSpeedKMH = DefaultAverageSpeedKMH
	}
	return int(math.Ceil(distanceMeters * 3.6 / averageSpeedKMH))
}

package models

import (
	"time"
)

type RouteSource string

const (
	RouteSourceRouting      RouteSource = "routing"
	RouteSourceStraightLine RouteSource = "straight_line"
)

// RouteSummary is the route from the ambulance to the assigned hospital.
type RouteSummary struct {
	HospitalID      string      `json:"hospital_id" bson:"hospital_id"`
	Origin          GeoPoint    `json:"origin" bson:"origin"`
	Destination     GeoPoint    `json:"destination" bson:"destination"`
	EncodedPolyline string      `json:"encoded_polyline" bson:"encoded_polyline"`
	DistanceMeters  float64     `json:"distance_meters" bson:"distance_meters"`
	DurationSeconds int         `json:"duration_seconds" bson:"duration_seconds"`
	Steps           []RouteStep `json:"steps,omitempty" bson:"steps,omitempty"`
	Source          RouteSource `json:"source" bson:"source"`
	ComputedAt      time.Time   `json:"computed_at" bson:"computed_at"`
}

type RouteStep struct {
	Instruction     string   `json:"instruction" bson:"instruction"`
	DistanceMeters  float64  `json:"distance_meters" bson:"distance_meters"`
	DurationSeconds int      `json:"duration_seconds" bson:"duration_seconds"`
	StartLocation   GeoPoint `json:"start_location" bson:"start_location"`
	EndLocation     GeoPoint `json:"end_location" bson:"end_location"`
	EncodedPolyline string   `json:"encoded_polyline,omitempty" bson:"encoded_polyline,omitempty"`
}

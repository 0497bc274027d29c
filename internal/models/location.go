package models

import (
	"time"
)

type GeoPoint struct {
	Lat float64 `json:"lat" bson:"lat" validate:"latitude"`
	Lng float64 `json:"lng" bson:"lng" validate:"longitude"`
}

// LocationErrorCode mirrors the device position error taxonomy.
type LocationErrorCode string

const (
	LocationErrorPermissionDenied LocationErrorCode = "permission_denied"
	LocationErrorUnavailable      LocationErrorCode = "unavailable"
	LocationErrorTimeout          LocationErrorCode = "timeout"
)

type LocationSample struct {
	Latitude   float64           `json:"latitude" bson:"latitude"`
	Longitude  float64           `json:"longitude" bson:"longitude"`
	Accuracy   float64           `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
	Heading    *float64          `json:"heading,omitempty" bson:"heading,omitempty"`
	Speed      *float64          `json:"speed,omitempty" bson:"speed,omitempty"`
	Error      LocationErrorCode `json:"error,omitempty" bson:"-"`
	RecordedAt time.Time         `json:"recorded_at" bson:"recorded_at"`
}

func (s LocationSample) Point() GeoPoint {
	return GeoPoint{Lat: s.Latitude, Lng: s.Longitude}
}

func (s LocationSample) HasError() bool {
	return s.Error != ""
}

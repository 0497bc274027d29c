package models

import (
	"time"
)

type Hospital struct {
	ID              string    `json:"id" bson:"_id"`
	Name            string    `json:"name" bson:"name"`
	Specialty       string    `json:"specialty,omitempty" bson:"specialty,omitempty"`
	Address         string    `json:"address" bson:"address"`
	Coordinates     GeoPoint  `json:"coordinates" bson:"coordinates"`
	Phone           string    `json:"phone,omitempty" bson:"phone,omitempty"`
	BedAvailability int       `json:"bed_availability" bson:"bed_availability"`
	DeviceTokens    []string  `json:"-" bson:"device_tokens,omitempty"`
	Active          bool      `json:"active" bson:"active"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}

// HospitalCandidate is one ranked destination offered to the driver.
type HospitalCandidate struct {
	HospitalID     string      `json:"hospital_id"`
	Name           string      `json:"name"`
	Specialty      string      `json:"specialty,omitempty"`
	Address        string      `json:"address"`
	Coordinates    GeoPoint    `json:"coordinates"`
	DistanceMeters float64     `json:"distance_meters"`
	ETASeconds     int         `json:"eta_seconds"`
	Source         RouteSource `json:"source"`
}

// CuratedHospitals is the default destination set for the Jaipur pilot.
func CuratedHospitals() []*Hospital {
	return []*Hospital{
		{
			ID:          "hosp-001",
			Name:        "Mahatma Gandhi Hospital (MGH)",
			Specialty:   "Trauma & Advanced Care",
			Address:     "RIICO Institutional Area, Sitapura, Jaipur",
			Coordinates: GeoPoint{Lat: 26.7690, Lng: 75.8550},
			Active:      true,
		},
		{
			ID:          "hosp-002",
			Name:        "Bombay Hospital Jaipur",
			Specialty:   "Multi-Specialty",
			Address:     "Sector 5, Pratap Nagar, Jaipur",
			Coordinates: GeoPoint{Lat: 26.7850, Lng: 75.8600},
			Active:      true,
		},
		{
			ID:          "hosp-003",
			Name:        "Narayana Multispeciality Hospital",
			Specialty:   "Cardiac & Critical Care",
			Address:     "Sector 28, Kumbha Marg, Pratap Nagar, Jaipur",
			Coordinates: GeoPoint{Lat: 26.8080, Lng: 75.8350},
			Active:      true,
		},
		{
			ID:          "hosp-004",
			Name:        "RUHS College of Medical Sciences",
			Specialty:   "Government/General",
			Address:     "Kumbha Marg, Pratap Nagar, Jaipur",
			Coordinates: GeoPoint{Lat: 26.8100, Lng: 75.8400},
			Active:      true,
		},
		{
			ID:          "hosp-005",
			Name:        "Jeevan Rekha Superspeciality",
			Specialty:   "Emergency",
			Address:     "Jagatpura, Jaipur",
			Coordinates: GeoPoint{Lat: 26.8150, Lng: 75.8200},
			Active:      true,
		},
	}
}

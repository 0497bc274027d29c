package maps

import (
	"context"
	"errors"
)

var ErrNoResults = errors.New("maps: no results")

// Geocoder converts between addresses and coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodeResponse, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error)
}

// Router computes routes and travel distances.
type Router interface {
	GetDirections(ctx context.Context, request *DirectionsRequest) (*DirectionsResponse, error)
	CalculateDistance(ctx context.Context, request *DistanceRequest) (*DistanceResponse, error)
}

type MapsProvider interface {
	Geocoder
	Router
}

type GeocodeResponse struct {
	Results []GeocodeResult `json:"results"`
}

// FirstAddress returns the best formatted address or ErrNoResults.
func (r *GeocodeResponse) FirstAddress() (string, error) {
	if r == nil || len(r.Results) == 0 || r.Results[0].Address == "" {
		return "", ErrNoResults
	}
	return r.Results[0].Address, nil
}

type GeocodeResult struct {
	PlaceID     string   `json:"place_id"`
	Address     string   `json:"formatted_address"`
	Coordinates Location `json:"geometry"`
	Types       []string `json:"types"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type DirectionsRequest struct {
	Origin      Location   `json:"origin"`
	Destination Location   `json:"destination"`
	Waypoints   []Location `json:"waypoints,omitempty"`
	Mode        string     `json:"mode"` // driving, walking, bicycling
}

type DirectionsResponse struct {
	Routes []Route `json:"routes"`
}

type Route struct {
	Summary  string   `json:"summary"`
	Distance Distance `json:"distance"`
	Duration Duration `json:"duration"`
	Steps    []Step   `json:"steps"`
	Polyline string   `json:"overview_polyline"`
	Bounds   Bounds   `json:"bounds"`
}

type Distance struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"` // in meters
}

type Duration struct {
	Text  string `json:"text"`
	Value int    `json:"value"` // in seconds
}

type Step struct {
	Instructions string   `json:"html_instructions"`
	Distance     Distance `json:"distance"`
	Duration     Duration `json:"duration"`
	StartPoint   Location `json:"start_location"`
	EndPoint     Location `json:"end_location"`
	Polyline     string   `json:"polyline"`
	Maneuver     string   `json:"maneuver"`
}

type Bounds struct {
	Northeast Location `json:"northeast"`
	Southwest Location `json:"southwest"`
}

type DistanceRequest struct {
	Origins      []Location `json:"origins"`
	Destinations []Location `json:"destinations"`
	Mode         string     `json:"mode"`
	Units        string     `json:"units"` // metric, imperial
}

type DistanceResponse struct {
	Rows []DistanceRow `json:"rows"`
}

type DistanceRow struct {
	Elements []DistanceElement `json:"elements"`
}

const ElementStatusOK = "OK"

type DistanceElement struct {
	Distance Distance `json:"distance"`
	Duration Duration `json:"duration"`
	Status   string   `json:"status"`
}

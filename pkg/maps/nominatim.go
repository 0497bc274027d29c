package maps

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimGeocoder talks to an OpenStreetMap Nominatim server. It only
// geocodes; routing stays with the configured MapsProvider.
type NominatimGeocoder struct {
	client *resty.Client
}

func NewNominatimGeocoder(baseURL, userAgent string) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetQueryParam("format", "jsonv2")

	return &NominatimGeocoder{client: client}
}

type nominatimPlace struct {
	PlaceID     int64  `json:"place_id"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Error       string `json:"error"`
}

func (p nominatimPlace) toResult() GeocodeResult {
	lat, _ := strconv.ParseFloat(p.Lat, 64)
	lng, _ := strconv.ParseFloat(p.Lon, 64)
	return GeocodeResult{
		PlaceID:     strconv.FormatInt(p.PlaceID, 10),
		Address:     p.DisplayName,
		Coordinates: Location{Latitude: lat, Longitude: lng},
		Types:       []string{p.Category, p.Type},
	}
}

func (n *NominatimGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error) {
	var place nominatimPlace
	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat": strconv.FormatFloat(lat, 'f', 6, 64),
			"lon": strconv.FormatFloat(lng, 'f', 6, 64),
		}).
		SetResult(&place).
		Get("/reverse")
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("nominatim error: %s", resp.Status())
	}
	if place.Error != "" || place.DisplayName == "" {
		return &GeocodeResponse{}, nil
	}
	return &GeocodeResponse{Results: []GeocodeResult{place.toResult()}}, nil
}

func (n *NominatimGeocoder) Geocode(ctx context.Context, address string) (*GeocodeResponse, error) {
	var places []nominatimPlace
	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     address,
			"limit": "5",
		}).
		SetResult(&places).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("geocoding failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("nominatim error: %s", resp.Status())
	}

	results := make([]GeocodeResult, len(places))
	for i, p := range places {
		results[i] = p.toResult()
	}
	return &GeocodeResponse{Results: results}, nil
}

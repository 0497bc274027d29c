package maps

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type MapboxProvider struct {
	accessToken string
	client      *resty.Client
}

func NewMapboxProvider(accessToken string) *MapboxProvider {
	return newMapboxProvider(accessToken, "https://api.mapbox.com")
}

func newMapboxProvider(accessToken, baseURL string) *MapboxProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json").
		SetQueryParam("access_token", accessToken)

	return &MapboxProvider{
		accessToken: accessToken,
		client:      client,
	}
}

type mapboxFeatures struct {
	Features []struct {
		ID        string    `json:"id"`
		PlaceName string    `json:"place_name"`
		PlaceType []string  `json:"place_type"`
		Center    []float64 `json:"center"`
	} `json:"features"`
}

func (f *mapboxFeatures) toResponse() *GeocodeResponse {
	results := make([]GeocodeResult, 0, len(f.Features))
	for _, feature := range f.Features {
		if len(feature.Center) < 2 {
			continue
		}
		results = append(results, GeocodeResult{
			PlaceID:     feature.ID,
			Address:     feature.PlaceName,
			Coordinates: Location{Latitude: feature.Center[1], Longitude: feature.Center[0]},
			Types:       feature.PlaceType,
		})
	}
	return &GeocodeResponse{Results: results}
}

func (m *MapboxProvider) geocode(ctx context.Context, query string) (*GeocodeResponse, error) {
	var result mapboxFeatures
	resp, err := m.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/geocoding/v5/mapbox.places/" + url.PathEscape(query) + ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("mapbox API error: %s", resp.Status())
	}
	return result.toResponse(), nil
}

func (m *MapboxProvider) Geocode(ctx context.Context, address string) (*GeocodeResponse, error) {
	return m.geocode(ctx, address)
}

func (m *MapboxProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error) {
	return m.geocode(ctx, lngLat(Location{Latitude: lat, Longitude: lng}))
}

func (m *MapboxProvider) GetDirections(ctx context.Context, request *DirectionsRequest) (*DirectionsResponse, error) {
	coords := []string{lngLat(request.Origin)}
	for _, wp := range request.Waypoints {
		coords = append(coords, lngLat(wp))
	}
	coords = append(coords, lngLat(request.Destination))

	var result struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Geometry string  `json:"geometry"`
			Legs     []struct {
				Steps []struct {
					Distance float64 `json:"distance"`
					Duration float64 `json:"duration"`
					Geometry string  `json:"geometry"`
					Maneuver struct {
						Instruction string    `json:"instruction"`
						Type        string    `json:"type"`
						Location    []float64 `json:"location"`
					} `json:"maneuver"`
				} `json:"steps"`
			} `json:"legs"`
		} `json:"routes"`
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"overview":   "full",
			"geometries": "polyline",
			"steps":      "true",
		}).
		SetResult(&result).
		Get(fmt.Sprintf("/directions/v5/mapbox/%s/%s", mapboxProfile(request.Mode), strings.Join(coords, ";")))
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("mapbox API error: %s", resp.Status())
	}
	if len(result.Routes) == 0 {
		return nil, ErrNoResults
	}

	routes := make([]Route, len(result.Routes))
	for i, route := range result.Routes {
		var steps []Step
		for _, leg := range route.Legs {
			for _, step := range leg.Steps {
				s := Step{
					Instructions: step.Maneuver.Instruction,
					Distance:     Distance{Value: step.Distance, Text: fmt.Sprintf("%.0f m", step.Distance)},
					Duration:     Duration{Value: int(step.Duration), Text: fmt.Sprintf("%.0f s", step.Duration)},
					Polyline:     step.Geometry,
					Maneuver:     step.Maneuver.Type,
				}
				if len(step.Maneuver.Location) == 2 {
					s.StartPoint = Location{Latitude: step.Maneuver.Location[1], Longitude: step.Maneuver.Location[0]}
				}
				steps = append(steps, s)
			}
		}

		routes[i] = Route{
			Distance: Distance{Value: route.Distance, Text: fmt.Sprintf("%.1f km", route.Distance/1000)},
			Duration: Duration{Value: int(route.Duration), Text: fmt.Sprintf("%.0f min", route.Duration/60)},
			Steps:    steps,
			Polyline: route.Geometry,
		}
	}

	return &DirectionsResponse{Routes: routes}, nil
}

// CalculateDistance uses the Matrix API. Unreachable pairs come back with
// status ZERO_RESULTS.
func (m *MapboxProvider) CalculateDistance(ctx context.Context, request *DistanceRequest) (*DistanceResponse, error) {
	coords := make([]string, 0, len(request.Origins)+len(request.Destinations))
	sources := make([]string, 0, len(request.Origins))
	destinations := make([]string, 0, len(request.Destinations))
	for _, o := range request.Origins {
		sources = append(sources, strconv.Itoa(len(coords)))
		coords = append(coords, lngLat(o))
	}
	for _, d := range request.Destinations {
		destinations = append(destinations, strconv.Itoa(len(coords)))
		coords = append(coords, lngLat(d))
	}

	var result struct {
		Code      string       `json:"code"`
		Distances [][]*float64 `json:"distances"`
		Durations [][]*float64 `json:"durations"`
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"sources":      strings.Join(sources, ";"),
			"destinations": strings.Join(destinations, ";"),
			"annotations":  "distance,duration",
		}).
		SetResult(&result).
		Get(fmt.Sprintf("/directions-matrix/v1/mapbox/%s/%s", mapboxProfile(request.Mode), strings.Join(coords, ";")))
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.IsError() || result.Code != "Ok" {
		return nil, fmt.Errorf("mapbox matrix error: %s %s", resp.Status(), result.Code)
	}

	rows := make([]DistanceRow, len(request.Origins))
	for i := range rows {
		elements := make([]DistanceElement, len(request.Destinations))
		for j := range elements {
			dist := matrixValue(result.Distances, i, j)
			dur := matrixValue(result.Durations, i, j)
			if dist == nil || dur == nil {
				elements[j] = DistanceElement{Status: "ZERO_RESULTS"}
				continue
			}
			elements[j] = DistanceElement{
				Distance: Distance{Value: *dist, Text: fmt.Sprintf("%.1f km", *dist/1000)},
				Duration: Duration{Value: int(*dur), Text: fmt.Sprintf("%.0f min", *dur/60)},
				Status:   ElementStatusOK,
			}
		}
		rows[i] = DistanceRow{Elements: elements}
	}

	return &DistanceResponse{Rows: rows}, nil
}

func matrixValue(m [][]*float64, i, j int) *float64 {
	if i >= len(m) || j >= len(m[i]) {
		return nil
	}
	return m[i][j]
}

func lngLat(l Location) string {
	return fmt.Sprintf("%f,%f", l.Longitude, l.Latitude)
}

func mapboxProfile(mode string) string {
	switch mode {
	case "walking", "cycling":
		return mode
	case "bicycling":
		return "cycling"
	}
	return "driving"
}

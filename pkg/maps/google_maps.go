package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

type GoogleMapsProvider struct {
	client *maps.Client
}

func NewGoogleMapsProvider(apiKey string, opts ...maps.ClientOption) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{
		client: client,
	}, nil
}

func (g *GoogleMapsProvider) Geocode(ctx context.Context, address string) (*GeocodeResponse, error) {
	resp, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("geocoding failed: %w", err)
	}
	return toGeocodeResponse(resp), nil
}

func (g *GoogleMapsProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error) {
	resp, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}
	return toGeocodeResponse(resp), nil
}

func toGeocodeResponse(resp []maps.GeocodingResult) *GeocodeResponse {
	results := make([]GeocodeResult, len(resp))
	for i, result := range resp {
		results[i] = GeocodeResult{
			PlaceID:     result.PlaceID,
			Address:     result.FormattedAddress,
			Coordinates: fromLatLng(result.Geometry.Location),
			Types:       result.Types,
		}
	}
	return &GeocodeResponse{Results: results}
}

func (g *GoogleMapsProvider) GetDirections(ctx context.Context, request *DirectionsRequest) (*DirectionsResponse, error) {
	req := &maps.DirectionsRequest{
		Origin:      latLngString(request.Origin),
		Destination: latLngString(request.Destination),
		Mode:        travelMode(request.Mode),
	}
	for _, wp := range request.Waypoints {
		req.Waypoints = append(req.Waypoints, latLngString(wp))
	}

	resp, _, err := g.client.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}

	routes := make([]Route, 0, len(resp))
	for _, route := range resp {
		if len(route.Legs) == 0 {
			continue
		}
		leg := route.Legs[0]

		steps := make([]Step, len(leg.Steps))
		for j, step := range leg.Steps {
			steps[j] = Step{
				Instructions: step.HTMLInstructions,
				Distance:     Distance{Text: step.Distance.HumanReadable, Value: float64(step.Distance.Meters)},
				Duration:     Duration{Text: step.Duration.String(), Value: int(step.Duration.Seconds())},
				StartPoint:   fromLatLng(step.StartLocation),
				EndPoint:     fromLatLng(step.EndLocation),
				Polyline:     step.Polyline.Points,
			}
		}

		routes = append(routes, Route{
			Summary:  route.Summary,
			Distance: Distance{Text: leg.Distance.HumanReadable, Value: float64(leg.Distance.Meters)},
			Duration: Duration{Text: leg.Duration.String(), Value: int(leg.Duration.Seconds())},
			Steps:    steps,
			Polyline: route.OverviewPolyline.Points,
			Bounds: Bounds{
				Northeast: fromLatLng(route.Bounds.NorthEast),
				Southwest: fromLatLng(route.Bounds.SouthWest),
			},
		})
	}
	if len(routes) == 0 {
		return nil, ErrNoResults
	}

	return &DirectionsResponse{Routes: routes}, nil
}

func (g *GoogleMapsProvider) CalculateDistance(ctx context.Context, request *DistanceRequest) (*DistanceResponse, error) {
	req := &maps.DistanceMatrixRequest{
		Mode:  travelMode(request.Mode),
		Units: maps.UnitsMetric,
	}
	if request.Units == "imperial" {
		req.Units = maps.UnitsImperial
	}
	for _, origin := range request.Origins {
		req.Origins = append(req.Origins, latLngString(origin))
	}
	for _, dest := range request.Destinations {
		req.Destinations = append(req.Destinations, latLngString(dest))
	}

	resp, err := g.client.DistanceMatrix(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("distance matrix request failed: %w", err)
	}

	rows := make([]DistanceRow, len(resp.Rows))
	for i, row := range resp.Rows {
		elements := make([]DistanceElement, len(row.Elements))
		for j, element := range row.Elements {
			elements[j] = DistanceElement{
				Distance: Distance{Text: element.Distance.HumanReadable, Value: float64(element.Distance.Meters)},
				Duration: Duration{Text: element.Duration.String(), Value: int(element.Duration.Seconds())},
				Status:   element.Status,
			}
		}
		rows[i] = DistanceRow{Elements: elements}
	}

	return &DistanceResponse{Rows: rows}, nil
}

func latLngString(l Location) string {
	return fmt.Sprintf("%f,%f", l.Latitude, l.Longitude)
}

func fromLatLng(l maps.LatLng) Location {
	return Location{Latitude: l.Lat, Longitude: l.Lng}
}

func travelMode(mode string) maps.Mode {
	if mode == "" {
		return maps.TravelModeDriving
	}
	return maps.Mode(mode)
}

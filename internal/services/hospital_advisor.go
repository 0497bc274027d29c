package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"swiftresponse/internal/dispatch"
	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/cache"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/maps"
	"swiftresponse/pkg/metrics"
)

type HospitalAdvisor interface {
	// Candidates ranks active hospitals by ETA, then distance, from origin.
	// A nil origin falls back to the driver's last position and then the
	// pickup point.
	Candidates(ctx context.Context, emergencyID string, origin *models.GeoPoint) ([]models.HospitalCandidate, error)
	Confirm(ctx context.Context, request *ConfirmRequest) (*ConfirmResult, error)
	Route(ctx context.Context, emergencyID string, origin *models.GeoPoint) (*models.RouteSummary, error)
}

type ConfirmRequest struct {
	EmergencyID string           `json:"-"`
	HospitalID  string           `json:"hospital_id" validate:"required"`
	Origin      *models.GeoPoint `json:"origin,omitempty"`
	ActorID     string           `json:"-"`
	Role        models.UserType  `json:"-"`
}

type ConfirmResult struct {
	Record           *models.EmergencyRecord `json:"record"`
	AlreadyConfirmed bool                    `json:"already_confirmed"`
	Route            *models.RouteSummary    `json:"route,omitempty"`
}

type AdvisorOptions struct {
	RoutingTimeout  time.Duration
	AverageSpeedKMH float64
}

type hospitalAdvisor struct {
	dispatch     DispatchService
	hospitalRepo interfaces.HospitalRepository
	sessions     interfaces.DriverSessionStore
	router       maps.Router
	memo         *cache.LocalCache
	opts         AdvisorOptions
	logger       *logger.Logger
}

func NewHospitalAdvisor(
	dispatch DispatchService,
	hospitalRepo interfaces.HospitalRepository,
	sessions interfaces.DriverSessionStore,
	router maps.Router,
	memo *cache.LocalCache,
	opts AdvisorOptions,
	logger *logger.Logger,
) HospitalAdvisor {
	if opts.RoutingTimeout <= 0 {
		opts.RoutingTimeout = 3 * time.Second
	}
	if opts.AverageSpeedKMH <= 0 {
		opts.AverageSpeedKMH = utils.DefaultAverageSpeedKMH
	}
	return &hospitalAdvisor{
		dispatch:     dispatch,
		hospitalRepo: hospitalRepo,
		sessions:     sessions,
		router:       router,
		memo:         memo,
		opts:         opts,
		logger:       logger.WithField("service", "hospital_advisor"),
	}
}

func (a *hospitalAdvisor) Candidates(ctx context.Context, emergencyID string, origin *models.GeoPoint) ([]models.HospitalCandidate, error) {
	record, err := a.dispatch.Get(ctx, emergencyID)
	if err != nil {
		return nil, err
	}
	from := a.origin(ctx, record, origin)

	key := fmt.Sprintf("%s%.4f,%.4f", utils.CacheCandidatesPrefix, from.Lat, from.Lng)
	if a.memo != nil {
		var cached []models.HospitalCandidate
		if err := a.memo.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	hospitals, err := a.hospitalRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list hospitals: %w", err)
	}
	if len(hospitals) == 0 {
		return []models.HospitalCandidate{}, nil
	}

	candidates := make([]models.HospitalCandidate, len(hospitals))
	for i, h := range hospitals {
		candidates[i] = models.HospitalCandidate{
			HospitalID:  h.ID,
			Name:        h.Name,
			Specialty:   h.Specialty,
			Address:     h.Address,
			Coordinates: h.Coordinates,
		}
	}
	a.measure(ctx, from, candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ETASeconds != candidates[j].ETASeconds {
			return candidates[i].ETASeconds < candidates[j].ETASeconds
		}
		return candidates[i].DistanceMeters < candidates[j].DistanceMeters
	})

	if a.memo != nil {
		_ = a.memo.Set(ctx, key, candidates, utils.CandidateCacheTTL)
	}
	return candidates, nil
}

// origin picks the first known position: the caller's, the driver's last
// reported one, then the pickup point.
func (a *hospitalAdvisor) origin(ctx context.Context, record *models.EmergencyRecord, requested *models.GeoPoint) models.GeoPoint {
	if requested != nil && utils.IsValidCoordinates(requested.Lat, requested.Lng) && !utils.IsNullIsland(requested.Lat, requested.Lng) {
		return *requested
	}
	if record.AssignedDriverID != "" && a.sessions != nil {
		if session, err := a.sessions.Get(ctx, record.AssignedDriverID); err == nil && session.LastLocation != nil {
			return session.LastLocation.Point()
		}
	}
	if record.DriverLocation != nil {
		return record.DriverLocation.Point()
	}
	return record.Location.Point()
}

// measure fills distance and ETA from the distance matrix, falling back to
// the straight-line estimate per element.
func (a *hospitalAdvisor) measure(ctx context.Context, from models.GeoPoint, candidates []models.HospitalCandidate) {
	var row []maps.DistanceElement
	if a.router != nil {
		destinations := make([]maps.Location, len(candidates))
		for i, c := range candidates {
			destinations[i] = toLocation(c.Coordinates)
		}

		rctx, cancel := context.WithTimeout(ctx, a.opts.RoutingTimeout)
		resp, err := a.router.CalculateDistance(rctx, &maps.DistanceRequest{
			Origins:      []maps.Location{toLocation(from)},
			Destinations: destinations,
			Mode:         "driving",
			Units:        "metric",
		})
		cancel()

		switch {
		case err != nil:
			a.logger.WithError(err).Warn("Distance matrix failed, using straight-line estimates")
		case len(resp.Rows) == 0:
			a.logger.Warn("Distance matrix returned no rows, using straight-line estimates")
		default:
			row = resp.Rows[0].Elements
		}
	}

	fallbacks := 0
	for i := range candidates {
		c := &candidates[i]
		if i < len(row) && row[i].Status == maps.ElementStatusOK {
			c.DistanceMeters = row[i].Distance.Value
			c.ETASeconds = row[i].Duration.Value
			c.Source = models.RouteSourceRouting
			continue
		}
		fallbacks++
		c.DistanceMeters = utils.DistanceMeters(toPoint(from), toPoint(c.Coordinates))
		c.ETASeconds = utils.EstimateETASeconds(c.DistanceMeters, a.opts.AverageSpeedKMH)
		c.Source = models.RouteSourceStraightLine
	}
	if fallbacks > 0 {
		metrics.RoutingFallbacks.WithLabelValues("distance").Add(float64(fallbacks))
	}
}

func (a *hospitalAdvisor) Confirm(ctx context.Context, request *ConfirmRequest) (*ConfirmResult, error) {
	if request.HospitalID == "" {
		return nil, ErrHospitalRequired
	}
	if _, err := a.hospitalRepo.GetByID(ctx, request.HospitalID); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrHospitalNotFound
		}
		return nil, err
	}

	record, err := a.dispatch.Get(ctx, request.EmergencyID)
	if err != nil {
		return nil, err
	}

	event, already, err := confirmStep(record, request.HospitalID)
	if err != nil {
		return nil, err
	}
	if already {
		return &ConfirmResult{Record: record, AlreadyConfirmed: true, Route: record.Route}, nil
	}

	updated, err := a.dispatch.Transition(ctx, &TransitionRequest{
		EmergencyID: record.ID,
		Event:       event,
		HospitalID:  request.HospitalID,
		ActorID:     request.ActorID,
		Role:        request.Role,
	})
	if errors.Is(err, interfaces.ErrStatusConflict) {
		return a.resolveConflict(ctx, request, err)
	}
	if err != nil {
		return nil, err
	}

	result := &ConfirmResult{Record: updated}
	if route, err := a.Route(ctx, updated.ID, request.Origin); err == nil {
		result.Route = route
	} else {
		a.logger.WithEmergencyID(updated.ID).WithError(err).Warn("Failed to store route")
	}
	return result, nil
}

// resolveConflict re-reads once after a lost race. If the winner already
// confirmed the same hospital the call is idempotent.
func (a *hospitalAdvisor) resolveConflict(ctx context.Context, request *ConfirmRequest, conflict error) (*ConfirmResult, error) {
	record, err := a.dispatch.Get(ctx, request.EmergencyID)
	if err != nil {
		return nil, err
	}
	_, already, err := confirmStep(record, request.HospitalID)
	if err != nil {
		return nil, err
	}
	if already {
		return &ConfirmResult{Record: record, AlreadyConfirmed: true, Route: record.Route}, nil
	}
	return nil, conflict
}

// confirmStep maps the record's status to the event a hospital
// confirmation performs.
func confirmStep(record *models.EmergencyRecord, hospitalID string) (dispatch.Event, bool, error) {
	switch record.Status {
	case models.EmergencyStatusPending:
		return dispatch.EventAssignHospital, false, nil
	case models.EmergencyStatusArrivedPickup:
		if record.AssignedHospitalID != "" && record.AssignedHospitalID != hospitalID {
			return "", false, ErrHospitalAlreadyAssigned
		}
		return dispatch.EventStartTransport, false, nil
	}
	switch record.AssignedHospitalID {
	case hospitalID:
		return "", true, nil
	case "":
		return "", false, ErrInvalidConfirmStep
	default:
		return "", false, ErrHospitalAlreadyAssigned
	}
}

// Route computes the route to the assigned hospital and stores it on the
// record. Routing errors fall back to a straight line; only the write can
// fail.
func (a *hospitalAdvisor) Route(ctx context.Context, emergencyID string, origin *models.GeoPoint) (*models.RouteSummary, error) {
	record, err := a.dispatch.Get(ctx, emergencyID)
	if err != nil {
		return nil, err
	}
	if record.AssignedHospitalID == "" {
		return nil, ErrHospitalRequired
	}
	hospital, err := a.hospitalRepo.GetByID(ctx, record.AssignedHospitalID)
	if err != nil {
		return nil, err
	}

	from := a.origin(ctx, record, origin)
	route := a.computeRoute(ctx, hospital, from)

	if _, err := a.dispatch.UpdateFields(ctx, record.ID, map[string]interface{}{
		models.FieldRoute: route,
	}); err != nil {
		metrics.SideEffectFailures.WithLabelValues("route").Inc()
		return route, err
	}
	return route, nil
}

func (a *hospitalAdvisor) computeRoute(ctx context.Context, hospital *models.Hospital, from models.GeoPoint) *models.RouteSummary {
	summary := &models.RouteSummary{
		HospitalID:  hospital.ID,
		Origin:      from,
		Destination: hospital.Coordinates,
		ComputedAt:  time.Now(),
	}

	if a.router != nil {
		rctx, cancel := context.WithTimeout(ctx, a.opts.RoutingTimeout)
		resp, err := a.router.GetDirections(rctx, &maps.DirectionsRequest{
			Origin:      toLocation(from),
			Destination: toLocation(hospital.Coordinates),
			Mode:        "driving",
		})
		cancel()
		if err == nil && len(resp.Routes) > 0 {
			r := resp.Routes[0]
			summary.EncodedPolyline = r.Polyline
			summary.DistanceMeters = r.Distance.Value
			summary.DurationSeconds = r.Duration.Value
			summary.Source = models.RouteSourceRouting
			for _, step := range r.Steps {
				summary.Steps = append(summary.Steps, models.RouteStep{
					Instruction:     step.Instructions,
					DistanceMeters:  step.Distance.Value,
					DurationSeconds: step.Duration.Value,
					StartLocation:   models.GeoPoint{Lat: step.StartPoint.Latitude, Lng: step.StartPoint.Longitude},
					EndLocation:     models.GeoPoint{Lat: step.EndPoint.Latitude, Lng: step.EndPoint.Longitude},
					EncodedPolyline: step.Polyline,
				})
			}
			return summary
		}
		if err == nil {
			err = maps.ErrNoResults
		}
		a.logger.WithError(err).WithField("hospital_id", hospital.ID).Warn("Directions failed, using straight line")
	}

	metrics.RoutingFallbacks.WithLabelValues("directions").Inc()
	summary.EncodedPolyline = maps.StraightLinePolyline(toLocation(from), toLocation(hospital.Coordinates))
	summary.DistanceMeters = utils.DistanceMeters(toPoint(from), toPoint(hospital.Coordinates))
	summary.DurationSeconds = utils.EstimateETASeconds(summary.DistanceMeters, a.opts.AverageSpeedKMH)
	summary.Source = models.RouteSourceStraightLine
	return summary
}

func toLocation(p models.GeoPoint) maps.Location {
	return maps.Location{Latitude: p.Lat, Longitude: p.Lng}
}

func toPoint(p models.GeoPoint) utils.Point {
	return utils.Point{Lat: p.Lat, Lng: p.Lng}
}

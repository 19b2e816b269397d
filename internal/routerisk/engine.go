package routerisk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanhutnik/routerisk-service/internal/evaluator"
	"github.com/evanhutnik/routerisk-service/internal/forecast"
	"github.com/evanhutnik/routerisk-service/internal/observability"
	"github.com/evanhutnik/routerisk-service/internal/positionstack"
	"github.com/evanhutnik/routerisk-service/internal/risk"
	"github.com/evanhutnik/routerisk-service/internal/sampler"
	t "github.com/evanhutnik/routerisk-service/internal/types"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Average speeds used for the rough travel estimates, in km/h.
const (
	carKmh  = 60
	bikeKmh = 40
	airKmh  = 800
)

type Geocoder interface {
	Resolve(ctx context.Context, place string) (t.GeoPoint, error)
	Reverse(ctx context.Context, point t.GeoPoint) (string, error)
}

type Router interface {
	Route(ctx context.Context, origin, destination t.GeoPoint) (t.RouteSummary, error)
}

type WeatherGateway interface {
	Current(ctx context.Context, point t.GeoPoint) (t.WeatherSnapshot, error)
	Forecast(ctx context.Context, point t.GeoPoint) ([]t.ForecastEntry, error)
}

type ReportPublisher interface {
	Publish(ctx context.Context, report *t.RouteRiskReport) error
}

type EngineOption func(*Engine)

func SamplerOption(s *sampler.Sampler) EngineOption {
	return func(e *Engine) {
		e.sampler = s
	}
}

func MaxConcurrencyOption(n int) EngineOption {
	return func(e *Engine) {
		e.maxConcurrency = n
	}
}

func MetricsOption(m *observability.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

func LoggerOption(l *zap.SugaredLogger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

func ClockOption(c clockwork.Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

func PublisherOption(p ReportPublisher) EngineOption {
	return func(e *Engine) {
		e.publisher = p
	}
}

// Engine turns a pair of place names into a risk-annotated sample of the route between them.
type Engine struct {
	geocoder       Geocoder
	router         Router
	weather        WeatherGateway
	sampler        *sampler.Sampler
	evaluator      *evaluator.Evaluator
	forecasts      *forecast.Orchestrator
	publisher      ReportPublisher
	maxConcurrency int
	metrics        *observability.Metrics
	clock          clockwork.Clock
	logger         *zap.SugaredLogger
}

func NewEngine(geocoder Geocoder, router Router, weather WeatherGateway, opts ...EngineOption) *Engine {
	e := &Engine{
		geocoder:       geocoder,
		router:         router,
		weather:        weather,
		sampler:        sampler.New(),
		maxConcurrency: evaluator.DefaultMaxConcurrency,
		clock:          clockwork.NewRealClock(),
		logger:         zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.maxConcurrency <= 0 {
		e.maxConcurrency = evaluator.DefaultMaxConcurrency
	}

	// One budget covers every weather, reverse geocode and forecast call of a route.
	calls := semaphore.NewWeighted(int64(e.maxConcurrency))
	e.evaluator = evaluator.New(weather, geocoder,
		evaluator.MaxConcurrencyOption(e.maxConcurrency),
		evaluator.LimiterOption(calls),
		evaluator.MetricsOption(e.metrics),
		evaluator.LoggerOption(e.logger),
	)
	e.forecasts = forecast.New(weather, e.metrics, e.logger, forecast.LimiterOption(calls))
	return e
}

// EvaluateRoute geocodes both places, routes between them, samples the route every
// sampleIntervalKm, evaluates weather risk at each sample and aggregates the verdict.
// Forecasts for origin, midpoint and destination are fetched alongside. Any error is an
// *EngineError; a cancelled ctx discards all partial work.
func (e *Engine) EvaluateRoute(ctx context.Context, origin, destination string, sampleIntervalKm float64) (*t.RouteRiskReport, error) {
	start := e.clock.Now()
	report, err := e.evaluateRoute(ctx, origin, destination, sampleIntervalKm)
	if e.metrics != nil {
		e.metrics.RouteDuration.Observe(e.clock.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = KindOf(err).String()
		}
		e.metrics.RouteRequests.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		return nil, err
	}

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, report); err != nil {
			e.logger.Warnw("failed to publish route report",
				"origin", origin, "destination", destination, "error", err)
		}
	}
	return report, nil
}

func (e *Engine) evaluateRoute(ctx context.Context, origin, destination string, sampleIntervalKm float64) (*t.RouteRiskReport, error) {
	origin, destination = strings.TrimSpace(origin), strings.TrimSpace(destination)
	if origin == "" || destination == "" {
		return nil, &EngineError{Kind: KindNotFound, Err: errors.New("origin and destination are required")}
	}
	if sampleIntervalKm <= 0 {
		sampleIntervalKm = sampler.DefaultIntervalKm
	}

	from, to, err := e.tripCoordinates(ctx, origin, destination)
	if err != nil {
		return nil, err
	}

	route, err := e.router.Route(ctx, from, to)
	if err != nil {
		e.logger.Errorf("Error routing trip (%v,%v) to (%v,%v): %v",
			from.Latitude, from.Longitude, to.Latitude, to.Longitude, err.Error())
		return nil, classify(err, KindRouteUnavailable)
	}

	points, err := e.sampler.Sample(route.Geometry, route.TotalDistanceKm, sampleIntervalKm)
	if err != nil {
		return nil, classify(err, KindInvalidGeometry)
	}
	if e.metrics != nil {
		e.metrics.SampledPoints.Observe(float64(len(points)))
	}

	var (
		records   []t.RouteRiskRecord
		diag      t.Diagnostics
		forecasts t.Forecasts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, diag, err = e.evaluator.Evaluate(gctx, points)
		return err
	})
	g.Go(func() error {
		forecasts = e.forecasts.Run(gctx, from, to, route.Geometry)
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, classify(err, KindNoWeatherDataAvailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(err, KindCanceled)
	}

	overall, err := risk.Aggregate(records)
	if err != nil {
		return nil, classify(err, KindEmptyRouteRisk)
	}
	if e.metrics != nil {
		e.metrics.OverallRisk.WithLabelValues(overall.String()).Inc()
	}

	return &t.RouteRiskReport{
		Origin:          origin,
		Destination:     destination,
		From:            from,
		To:              to,
		TotalDistanceKm: route.TotalDistanceKm,
		Travel:          travelEstimate(route.TotalDistanceKm),
		Geometry:        route.Geometry,
		Records:         records,
		Overall:         overall,
		Diagnostics:     diag,
		Forecasts:       forecasts,
		GeneratedAt:     e.clock.Now().UTC(),
	}, nil
}

func (e *Engine) tripCoordinates(ctx context.Context, origin, destination string) (t.GeoPoint, t.GeoPoint, error) {
	var from, to t.GeoPoint
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		from, err = e.geoCode(gctx, origin)
		return err
	})
	g.Go(func() error {
		var err error
		to, err = e.geoCode(gctx, destination)
		return err
	})

	if err := g.Wait(); err != nil {
		return t.GeoPoint{}, t.GeoPoint{}, err
	}
	return from, to, nil
}

func (e *Engine) geoCode(ctx context.Context, address string) (t.GeoPoint, error) {
	p, err := e.geocoder.Resolve(ctx, address)
	if err != nil {
		if errors.Is(err, positionstack.ErrNotFound) {
			return t.GeoPoint{}, &EngineError{Kind: KindNotFound, Err: err}
		}
		if ctx.Err() == nil {
			e.logger.Errorw(err.Error(), "address", address, "action", "GeoCode")
		}
		return t.GeoPoint{}, classify(fmt.Errorf("geocoding %q: %w", address, err), KindUpstream)
	}
	if !p.Valid() {
		return t.GeoPoint{}, &EngineError{Kind: KindNotFound, Err: fmt.Errorf("geocoder returned invalid coordinates for %q", address)}
	}
	return p, nil
}

func travelEstimate(distanceKm float64) t.TravelEstimate {
	return t.TravelEstimate{
		CarHours:  distanceKm / carKmh,
		BikeHours: distanceKm / bikeKmh,
		AirHours:  distanceKm / airKmh,
	}
}

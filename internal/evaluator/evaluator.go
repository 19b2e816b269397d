package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/evanhutnik/routerisk-service/internal/observability"
	"github.com/evanhutnik/routerisk-service/internal/risk"
	t "github.com/evanhutnik/routerisk-service/internal/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrency caps simultaneous point lookups when no width is configured.
const DefaultMaxConcurrency = 8

var ErrNoWeatherDataAvailable = errors.New("weather lookup failed for every sample point")

type WeatherGateway interface {
	Current(ctx context.Context, point t.GeoPoint) (t.WeatherSnapshot, error)
}

type PlaceNameResolver interface {
	Reverse(ctx context.Context, point t.GeoPoint) (string, error)
}

type Option func(*Evaluator)

func MaxConcurrencyOption(n int) Option {
	return func(e *Evaluator) {
		e.maxConcurrency = n
	}
}

// LimiterOption shares an outbound call budget with other callers of the same
// collaborators. Every Current and Reverse call holds one unit of it.
func LimiterOption(sem *semaphore.Weighted) Option {
	return func(e *Evaluator) {
		e.limiter = sem
	}
}

func MetricsOption(m *observability.Metrics) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

func LoggerOption(l *zap.SugaredLogger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

type Evaluator struct {
	weather        WeatherGateway
	places         PlaceNameResolver
	maxConcurrency int
	limiter        *semaphore.Weighted
	metrics        *observability.Metrics
	logger         *zap.SugaredLogger
}

func New(weather WeatherGateway, places PlaceNameResolver, opts ...Option) *Evaluator {
	e := &Evaluator{
		weather:        weather,
		places:         places,
		maxConcurrency: DefaultMaxConcurrency,
		logger:         zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type result struct {
	record t.RouteRiskRecord
	err    error
}

// Evaluate looks up weather and a place name for every sample point and classifies it.
// Points whose weather lookup fails are dropped and reported in the diagnostics. Records
// come back in route order with segment indexes 1..k over the surviving points.
func (e *Evaluator) Evaluate(ctx context.Context, points []t.SamplePoint) ([]t.RouteRiskRecord, t.Diagnostics, error) {
	diag := t.Diagnostics{SampledPoints: len(points)}
	if len(points) == 0 {
		return nil, diag, ErrNoWeatherDataAvailable
	}

	results := make([]result, len(points))
	g := new(errgroup.Group)
	g.SetLimit(e.width(len(points)))
	for i, sp := range points {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = e.evaluatePoint(ctx, sp)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, t.Diagnostics{}, err
	}

	records := make([]t.RouteRiskRecord, 0, len(points))
	var errs error
	for i, r := range results {
		if r.err != nil {
			diag.Failures = append(diag.Failures, t.PointFailure{
				Index:  points[i].Index,
				Point:  points[i].Point,
				Reason: r.err.Error(),
			})
			errs = multierr.Append(errs, fmt.Errorf("point %d: %w", points[i].Index, r.err))
			continue
		}
		rec := r.record
		rec.SegmentIndex = len(records) + 1
		records = append(records, rec)
	}
	diag.FailedPoints = len(diag.Failures)

	if e.metrics != nil {
		e.metrics.PointLookups.WithLabelValues("success").Add(float64(len(records)))
		e.metrics.PointLookups.WithLabelValues("failed").Add(float64(diag.FailedPoints))
	}
	if errs != nil {
		e.logger.Warnw("dropped sample points without weather",
			"failed", diag.FailedPoints, "sampled", diag.SampledPoints, "error", errs)
	}
	if len(records) == 0 {
		return nil, diag, fmt.Errorf("%w: %v", ErrNoWeatherDataAvailable, errs)
	}
	return records, diag, nil
}

func (e *Evaluator) width(n int) int {
	w := e.maxConcurrency
	if w <= 0 {
		w = DefaultMaxConcurrency
	}
	if n < w {
		w = n
	}
	return w
}

func (e *Evaluator) acquire(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Acquire(ctx, 1)
}

func (e *Evaluator) release() {
	if e.limiter != nil {
		e.limiter.Release(1)
	}
}

func (e *Evaluator) current(ctx context.Context, point t.GeoPoint) (t.WeatherSnapshot, error) {
	if err := e.acquire(ctx); err != nil {
		return t.WeatherSnapshot{}, err
	}
	defer e.release()
	return e.weather.Current(ctx, point)
}

func (e *Evaluator) reverse(ctx context.Context, point t.GeoPoint) (string, error) {
	if err := e.acquire(ctx); err != nil {
		return "", err
	}
	defer e.release()
	return e.places.Reverse(ctx, point)
}

func (e *Evaluator) evaluatePoint(ctx context.Context, sp t.SamplePoint) result {
	snapshot, err := e.current(ctx, sp.Point)
	if err != nil {
		return result{err: err}
	}

	level := risk.ClassifySnapshot(snapshot)
	return result{record: t.RouteRiskRecord{
		PlaceName:    e.placeName(ctx, sp.Point),
		Point:        sp.Point,
		Snapshot:     snapshot,
		Risk:         level,
		SafetyStatus: risk.Status(level),
	}}
}

func (e *Evaluator) placeName(ctx context.Context, point t.GeoPoint) string {
	if e.places == nil {
		return point.String()
	}
	name, err := e.reverse(ctx, point)
	if err != nil || name == "" {
		if err != nil {
			e.logger.Debugw("reverse geocode failed, using coordinates",
				"lat", point.Latitude, "lon", point.Longitude, "error", err)
		}
		if e.metrics != nil {
			e.metrics.PlaceFallbacks.Inc()
		}
		return point.String()
	}
	return name
}

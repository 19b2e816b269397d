package forecast

import (
	"context"

	"github.com/evanhutnik/routerisk-service/internal/geo"
	"github.com/evanhutnik/routerisk-service/internal/observability"
	t "github.com/evanhutnik/routerisk-service/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// MaxEntries is the longest series forwarded per location.
const MaxEntries = 16

type Source interface {
	Forecast(ctx context.Context, point t.GeoPoint) ([]t.ForecastEntry, error)
}

type Orchestrator struct {
	source  Source
	limiter *semaphore.Weighted
	metrics *observability.Metrics
	logger  *zap.SugaredLogger
}

type Option func(*Orchestrator)

// LimiterOption makes every Forecast call hold one unit of sem for its duration.
func LimiterOption(sem *semaphore.Weighted) Option {
	return func(o *Orchestrator) {
		o.limiter = sem
	}
}

func New(source Source, metrics *observability.Metrics, logger *zap.SugaredLogger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	o := &Orchestrator{source: source, metrics: metrics, logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ForecastFor returns at most MaxEntries entries of the source series, in source order.
func (o *Orchestrator) ForecastFor(ctx context.Context, point t.GeoPoint) ([]t.ForecastEntry, error) {
	if o.limiter != nil {
		if err := o.limiter.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer o.limiter.Release(1)
	}
	entries, err := o.source.Forecast(ctx, point)
	if err != nil {
		return nil, err
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries, nil
}

// Run fetches origin, midpoint and destination series concurrently. A failed lookup
// leaves that series nil and never affects the other two.
func (o *Orchestrator) Run(ctx context.Context, origin, destination t.GeoPoint, geometry t.RouteGeometry) t.Forecasts {
	var out t.Forecasts
	g := new(errgroup.Group)

	g.Go(func() error {
		out.Origin = o.lookup(ctx, "origin", origin)
		return nil
	})
	if mid, ok := geo.Midpoint(geometry); ok {
		g.Go(func() error {
			out.Midpoint = o.lookup(ctx, "midpoint", mid)
			return nil
		})
	}
	g.Go(func() error {
		out.Destination = o.lookup(ctx, "destination", destination)
		return nil
	})

	_ = g.Wait()
	return out
}

func (o *Orchestrator) lookup(ctx context.Context, location string, point t.GeoPoint) []t.ForecastEntry {
	entries, err := o.ForecastFor(ctx, point)
	if err != nil {
		o.logger.Warnw("forecast lookup failed",
			"location", location, "lat", point.Latitude, "lon", point.Longitude, "error", err)
		o.observe(location, "failed")
		return nil
	}
	o.observe(location, "success")
	return entries
}

func (o *Orchestrator) observe(location, outcome string) {
	if o.metrics != nil {
		o.metrics.ForecastLookups.WithLabelValues(location, outcome).Inc()
	}
}

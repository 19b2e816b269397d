// Package weathercache decorates a weather gateway with a Redis geo index of
// recent current-conditions lookups, so nearby sample points within the same
// hour reuse one upstream call.
package weathercache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evanhutnik/routerisk-service/internal/observability"
	t "github.com/evanhutnik/routerisk-service/internal/types"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	DefaultRadiusKm = 10
	DefaultTTL      = 2 * time.Hour
	keyPrefix       = "routerisk:weather:"
)

type Weather interface {
	Current(ctx context.Context, point t.GeoPoint) (t.WeatherSnapshot, error)
	Forecast(ctx context.Context, point t.GeoPoint) ([]t.ForecastEntry, error)
}

type cachedSnapshot struct {
	Lat      float64
	Lon      float64
	Snapshot t.WeatherSnapshot
}

type Option func(*Gateway)

func RadiusOption(km float64) Option {
	return func(g *Gateway) {
		g.radiusKm = km
	}
}

func TTLOption(ttl time.Duration) Option {
	return func(g *Gateway) {
		g.ttl = ttl
	}
}

func ClockOption(c clockwork.Clock) Option {
	return func(g *Gateway) {
		g.clock = c
	}
}

func MetricsOption(m *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

func LoggerOption(l *zap.SugaredLogger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

type Gateway struct {
	inner    Weather
	rc       *redis.Client
	radiusKm float64
	ttl      time.Duration
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *zap.SugaredLogger
}

func New(inner Weather, rc *redis.Client, opts ...Option) *Gateway {
	g := &Gateway{
		inner:    inner,
		rc:       rc,
		radiusKm: DefaultRadiusKm,
		ttl:      DefaultTTL,
		clock:    clockwork.NewRealClock(),
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Current serves the nearest snapshot cached this hour within the radius, falling back to
// the wrapped gateway. Redis failures are logged and never fail the lookup.
func (g *Gateway) Current(ctx context.Context, point t.GeoPoint) (t.WeatherSnapshot, error) {
	key := g.hourKey()

	locations, err := g.rc.GeoRadius(ctx, key, point.Longitude, point.Latitude, &redis.GeoRadiusQuery{
		Radius:    g.radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Count:     1,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		g.observe("error")
		g.logger.Errorf("Redis error when fetching GeoRadius for (%v, %v): %v",
			point.Latitude, point.Longitude, err.Error())
	}
	if len(locations) > 0 {
		var cached cachedSnapshot
		if err := json.Unmarshal([]byte(locations[0].Name), &cached); err != nil {
			g.logger.Errorf("Error unmarshalling redis weather for (%v, %v): %v",
				point.Latitude, point.Longitude, err.Error())
		} else {
			g.observe("hit")
			return cached.Snapshot, nil
		}
	}
	g.observe("miss")

	snapshot, err := g.inner.Current(ctx, point)
	if err != nil {
		return t.WeatherSnapshot{}, err
	}
	g.store(ctx, key, point, snapshot)
	return snapshot, nil
}

func (g *Gateway) Forecast(ctx context.Context, point t.GeoPoint) ([]t.ForecastEntry, error) {
	return g.inner.Forecast(ctx, point)
}

func (g *Gateway) store(ctx context.Context, key string, point t.GeoPoint, snapshot t.WeatherSnapshot) {
	member, err := json.Marshal(cachedSnapshot{Lat: point.Latitude, Lon: point.Longitude, Snapshot: snapshot})
	if err != nil {
		return
	}
	_, err = g.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.GeoAdd(ctx, key, &redis.GeoLocation{
			Name:      string(member),
			Longitude: point.Longitude,
			Latitude:  point.Latitude,
		})
		pipe.Expire(ctx, key, g.ttl)
		return nil
	})
	if err != nil {
		g.logger.Warnf("Redis error caching weather for (%v, %v): %v",
			point.Latitude, point.Longitude, err.Error())
	}
}

func (g *Gateway) hourKey() string {
	hour := g.clock.Now().UTC().Truncate(time.Hour).Unix()
	return fmt.Sprintf("%s%d", keyPrefix, hour)
}

func (g *Gateway) observe(result string) {
	if g.metrics != nil {
		g.metrics.WeatherCache.WithLabelValues(result).Inc()
	}
}

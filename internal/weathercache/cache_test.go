package weathercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/evanhutnik/routerisk-service/internal/observability"
	"github.com/evanhutnik/routerisk-service/internal/types"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWeather struct {
	currentCalls  int
	forecastCalls int
	err           error
	snapshot      types.WeatherSnapshot
}

func (c *countingWeather) Current(_ context.Context, _ types.GeoPoint) (types.WeatherSnapshot, error) {
	c.currentCalls++
	return c.snapshot, c.err
}

func (c *countingWeather) Forecast(_ context.Context, _ types.GeoPoint) ([]types.ForecastEntry, error) {
	c.forecastCalls++
	return []types.ForecastEntry{{TemperatureC: 1}}, nil
}

var (
	kurnool     = types.GeoPoint{Latitude: 15.8281, Longitude: 78.0373}
	nearKurnool = types.GeoPoint{Latitude: 15.85, Longitude: 78.05}
	anantapur   = types.GeoPoint{Latitude: 14.6819, Longitude: 77.6006}
)

func setup(t *testing.T, inner Weather, opts ...Option) (*Gateway, *miniredis.Miniredis, *clockwork.FakeClock, *observability.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2026, time.October, 18, 9, 15, 0, 0, time.UTC))
	m := observability.NewMetricsForTesting()
	opts = append([]Option{ClockOption(clock), MetricsOption(m)}, opts...)
	return New(inner, rc, opts...), mr, clock, m
}

func TestCurrent_CachesNearbyPoints(t *testing.T) {
	inner := &countingWeather{snapshot: types.WeatherSnapshot{TemperatureC: 31, WindSpeedKmh: 12, Description: "Haze"}}
	g, _, _, m := setup(t, inner)

	s1, err := g.Current(context.Background(), kurnool)
	require.NoError(t, err)
	s2, err := g.Current(context.Background(), nearKurnool)
	require.NoError(t, err)

	assert.Equal(t, inner.snapshot, s1)
	assert.Equal(t, inner.snapshot, s2)
	assert.Equal(t, 1, inner.currentCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WeatherCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WeatherCache.WithLabelValues("miss")))
}

func TestCurrent_DistantPointMisses(t *testing.T) {
	inner := &countingWeather{snapshot: types.WeatherSnapshot{TemperatureC: 31}}
	g, _, _, _ := setup(t, inner)

	_, err := g.Current(context.Background(), kurnool)
	require.NoError(t, err)
	_, err = g.Current(context.Background(), anantapur)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.currentCalls)
}

func TestCurrent_RadiusBoundsReuse(t *testing.T) {
	inner := &countingWeather{snapshot: types.WeatherSnapshot{TemperatureC: 31}}
	// kurnool and nearKurnool are roughly 3 km apart
	g, _, _, _ := setup(t, inner, RadiusOption(1))

	_, err := g.Current(context.Background(), kurnool)
	require.NoError(t, err)
	_, err = g.Current(context.Background(), nearKurnool)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.currentCalls)
}

func TestCurrent_NewHourMisses(t *testing.T) {
	inner := &countingWeather{snapshot: types.WeatherSnapshot{TemperatureC: 31}}
	g, _, clock, _ := setup(t, inner)

	_, err := g.Current(context.Background(), kurnool)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = g.Current(context.Background(), kurnool)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.currentCalls)
}

func TestCurrent_KeyExpires(t *testing.T) {
	inner := &countingWeather{snapshot: types.WeatherSnapshot{TemperatureC: 31}}
	g, mr, _, _ := setup(t, inner)

	_, err := g.Current(context.Background(), kurnool)
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 1)
	assert.Equal(t, DefaultTTL, mr.TTL(mr.Keys()[0]))

	mr.FastForward(DefaultTTL + time.Second)
	assert.Empty(t, mr.Keys())
}

func TestCurrent_InnerErrorNotCached(t *testing.T) {
	inner := &countingWeather{err: errors.New("openweather down")}
	g, mr, _, _ := setup(t, inner)

	_, err := g.Current(context.Background(), kurnool)
	require.Error(t, err)
	assert.Empty(t, mr.Keys())
}

func TestCurrent_RedisDownFallsThrough(t *testing.T) {
	inner := &countingWeather{snapshot: types.WeatherSnapshot{TemperatureC: 31}}
	g, mr, _, m := setup(t, inner)
	mr.Close()

	s, err := g.Current(context.Background(), kurnool)
	require.NoError(t, err)
	assert.Equal(t, 31.0, s.TemperatureC)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WeatherCache.WithLabelValues("error")))
}

func TestForecast_PassesThrough(t *testing.T) {
	inner := &countingWeather{}
	g, _, _, _ := setup(t, inner)

	entries, err := g.Forecast(context.Background(), kurnool)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, inner.forecastCalls)
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for route evaluation.
type Metrics struct {
	RouteRequests  *prometheus.CounterVec // labels: outcome={ok,not_found,route_unavailable,invalid_geometry,no_weather,empty_route_risk,upstream,canceled,unknown}
	RouteDuration  prometheus.Histogram
	SampledPoints  prometheus.Histogram
	OverallRisk    *prometheus.CounterVec // labels: level={Low,Medium,High}
	PointLookups   *prometheus.CounterVec // labels: outcome={success,failed}
	PlaceFallbacks prometheus.Counter

	ForecastLookups *prometheus.CounterVec // labels: location={origin,midpoint,destination}, outcome={success,failed}
	WeatherCache    *prometheus.CounterVec // labels: result={hit,miss,error}

	ReportsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		RouteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routerisk",
			Name:      "route_requests_total",
			Help:      "Route evaluations by outcome.",
		}, []string{"outcome"}),
		RouteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "routerisk",
			Name:      "route_duration_seconds",
			Help:      "Duration of a complete route evaluation.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SampledPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "routerisk",
			Name:      "sampled_points",
			Help:      "Number of sample points taken per route.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		OverallRisk: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routerisk",
			Name:      "overall_risk_total",
			Help:      "Overall route verdicts by risk level.",
		}, []string{"level"}),
		PointLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routerisk",
			Name:      "point_lookups_total",
			Help:      "Per-point weather lookups by outcome.",
		}, []string{"outcome"}),
		PlaceFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "routerisk",
			Name:      "place_name_fallbacks_total",
			Help:      "Reverse geocode failures replaced by formatted coordinates.",
		}),
		ForecastLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routerisk",
			Name:      "forecast_lookups_total",
			Help:      "Forecast lookups by location and outcome.",
		}, []string{"location", "outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routerisk",
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
		ReportsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routerisk",
			Name:      "reports_published_total",
			Help:      "Reports published to NATS by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetrics creates all collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.RouteRequests,
		m.RouteDuration,
		m.SampledPoints,
		m.OverallRisk,
		m.PointLookups,
		m.PlaceFallbacks,
		m.ForecastLookups,
		m.WeatherCache,
		m.ReportsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors so tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

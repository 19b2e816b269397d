package types

import (
	"encoding/json"
	"fmt"
	"time"
)

type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.4f, %.4f", p.Latitude, p.Longitude)
}

// RouteGeometry is the travel-ordered polyline from origin to destination.
type RouteGeometry []GeoPoint

type RouteSummary struct {
	Geometry        RouteGeometry
	TotalDistanceKm float64
}

// SamplePoint keeps the index of the point in the geometry it was taken from.
type SamplePoint struct {
	Index int
	Point GeoPoint
}

type WeatherSnapshot struct {
	TemperatureC float64 `json:"temperatureC"`
	WindSpeedKmh float64 `json:"windSpeedKmh"`
	Description  string  `json:"description"`
}

type ForecastEntry struct {
	Time         time.Time `json:"time"`
	TemperatureC float64   `json:"temperatureC"`
}

// RiskLevel is ordered: Low < Medium < High.
type RiskLevel int

const (
	Low RiskLevel = iota
	Medium
	High
)

func (r RiskLevel) String() string {
	switch r {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	}
	return fmt.Sprintf("RiskLevel(%d)", int(r))
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

type SafetyStatus int

const (
	Safe SafetyStatus = iota
	NotSafe
)

func (s SafetyStatus) String() string {
	if s == Safe {
		return "Safe"
	}
	return "Not Safe"
}

func (s SafetyStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

type RouteRiskRecord struct {
	SegmentIndex int             `json:"segment"`
	PlaceName    string          `json:"place"`
	Point        GeoPoint        `json:"point"`
	Snapshot     WeatherSnapshot `json:"weather"`
	Risk         RiskLevel       `json:"risk"`
	SafetyStatus SafetyStatus    `json:"status"`
}

// PointFailure describes a sample point dropped from the report.
type PointFailure struct {
	Index  int      `json:"index"`
	Point  GeoPoint `json:"point"`
	Reason string   `json:"reason"`
}

type Diagnostics struct {
	SampledPoints int            `json:"sampledPoints"`
	FailedPoints  int            `json:"failedPoints"`
	Failures      []PointFailure `json:"failures,omitempty"`
}

// TravelEstimate holds rough travel durations in hours.
type TravelEstimate struct {
	CarHours  float64 `json:"carHours"`
	BikeHours float64 `json:"bikeHours"`
	AirHours  float64 `json:"airHours"`
}

// Forecasts are nil for any location whose lookup failed.
type Forecasts struct {
	Origin      []ForecastEntry `json:"origin"`
	Midpoint    []ForecastEntry `json:"midpoint"`
	Destination []ForecastEntry `json:"destination"`
}

type RouteRiskReport struct {
	Origin          string            `json:"origin"`
	Destination     string            `json:"destination"`
	From            GeoPoint          `json:"from"`
	To              GeoPoint          `json:"to"`
	TotalDistanceKm float64           `json:"totalDistanceKm"`
	Travel          TravelEstimate    `json:"travel"`
	Geometry        RouteGeometry     `json:"geometry,omitempty"`
	Records         []RouteRiskRecord `json:"records"`
	Overall         RiskLevel         `json:"overall"`
	Diagnostics     Diagnostics       `json:"diagnostics"`
	Forecasts       Forecasts         `json:"forecasts"`
	GeneratedAt     time.Time         `json:"generatedAt"`
}

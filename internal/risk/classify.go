// Package risk classifies weather at a single point and reduces point-level
// risk into a verdict for a whole route.
package risk

import (
	"errors"
	"strings"

	t "github.com/evanhutnik/routerisk-service/internal/types"
)

const (
	highWindKmh   = 40
	mediumWindKmh = 25
	freezingC     = 0
)

var ErrEmptyRouteRisk = errors.New("no risk records to aggregate")

// Classify applies the hazard rules in priority order; the first matching rule wins.
//
//	High:   description mentions "storm", or wind above 40 km/h
//	Medium: wind above 25 km/h, below freezing, or description mentions "fog" or "rain"
//	Low:    anything else
func Classify(temperatureC, windSpeedKmh float64, description string) t.RiskLevel {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "storm") || windSpeedKmh > highWindKmh:
		return t.High
	case windSpeedKmh > mediumWindKmh || temperatureC < freezingC ||
		strings.Contains(desc, "fog") || strings.Contains(desc, "rain"):
		return t.Medium
	default:
		return t.Low
	}
}

func ClassifySnapshot(s t.WeatherSnapshot) t.RiskLevel {
	return Classify(s.TemperatureC, s.WindSpeedKmh, s.Description)
}

func Status(level t.RiskLevel) t.SafetyStatus {
	if level == t.Low {
		return t.Safe
	}
	return t.NotSafe
}

// Aggregate returns the worst risk level present in records.
func Aggregate(records []t.RouteRiskRecord) (t.RiskLevel, error) {
	if len(records) == 0 {
		return t.Low, ErrEmptyRouteRisk
	}
	overall := t.Low
	for _, r := range records {
		if r.Risk > overall {
			overall = r.Risk
		}
	}
	return overall, nil
}

package sampler

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/evanhutnik/routerisk-service/internal/geo"
	t "github.com/evanhutnik/routerisk-service/internal/types"
)

const DefaultIntervalKm = 50.0

var ErrInvalidGeometry = errors.New("route geometry is empty")

// Policy selects how sample points are spaced along the geometry.
type Policy int

const (
	// StrideByIndex takes every stride-th geometry point, with the stride derived from
	// the point count and the total route length. Spacing is uniform in index space only.
	StrideByIndex Policy = iota
	// StrideByDistance walks the cumulative haversine distance and selects the next point
	// at least intervalKm past the previous selection.
	StrideByDistance
)

func (p Policy) String() string {
	if p == StrideByDistance {
		return "distance"
	}
	return "index"
}

// ParsePolicy maps "index" or "distance" (case-insensitive) to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "index":
		return StrideByIndex, nil
	case "distance":
		return StrideByDistance, nil
	}
	return StrideByIndex, fmt.Errorf("unknown sampling policy %q", s)
}

type Sampler struct {
	policy Policy
}

type Option func(*Sampler)

func PolicyOption(p Policy) Option {
	return func(s *Sampler) {
		s.policy = p
	}
}

func New(opts ...Option) *Sampler {
	s := &Sampler{policy: StrideByIndex}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample picks route-ordered sample points from geometry. The first geometry point is
// always included. A non-positive intervalKm falls back to DefaultIntervalKm.
func (s *Sampler) Sample(geometry t.RouteGeometry, totalDistanceKm, intervalKm float64) ([]t.SamplePoint, error) {
	if len(geometry) == 0 {
		return nil, ErrInvalidGeometry
	}
	if intervalKm <= 0 {
		intervalKm = DefaultIntervalKm
	}
	if len(geometry) < 2 {
		return []t.SamplePoint{{Index: 0, Point: geometry[0]}}, nil
	}

	if s.policy == StrideByDistance {
		return byDistance(geometry, intervalKm), nil
	}
	return byIndex(geometry, Stride(len(geometry), totalDistanceKm, intervalKm)), nil
}

// Stride returns the index step for n geometry points covering totalDistanceKm.
// Routes shorter than one interval (including zero-length ones) get a stride of n.
func Stride(n int, totalDistanceKm, intervalKm float64) int {
	if totalDistanceKm < intervalKm || totalDistanceKm <= 0 {
		return n
	}
	stride := int(math.Floor(float64(n) / (totalDistanceKm / intervalKm)))
	if stride < 1 {
		stride = 1
	}
	return stride
}

func byIndex(geometry t.RouteGeometry, stride int) []t.SamplePoint {
	points := make([]t.SamplePoint, 0, len(geometry)/stride+1)
	for i := 0; i < len(geometry); i += stride {
		points = append(points, t.SamplePoint{Index: i, Point: geometry[i]})
	}
	return points
}

func byDistance(geometry t.RouteGeometry, intervalKm float64) []t.SamplePoint {
	points := []t.SamplePoint{{Index: 0, Point: geometry[0]}}
	var sinceLast float64
	for i := 1; i < len(geometry); i++ {
		sinceLast += geo.GreatCircleKm(geometry[i-1], geometry[i])
		if sinceLast >= intervalKm {
			points = append(points, t.SamplePoint{Index: i, Point: geometry[i]})
			sinceLast = 0
		}
	}
	return points
}

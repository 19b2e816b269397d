package geo

import (
	"testing"

	"github.com/evanhutnik/routerisk-service/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestGreatCircleKm_SamePoint(t *testing.T) {
	p := types.GeoPoint{Latitude: 17.385, Longitude: 78.4867}
	assert.InDelta(t, 0, GreatCircleKm(p, p), 1e-9)
}

func TestGreatCircleKm_KnownDistance(t *testing.T) {
	hyderabad := types.GeoPoint{Latitude: 17.385, Longitude: 78.4867}
	bangalore := types.GeoPoint{Latitude: 12.9716, Longitude: 77.5946}

	assert.InDelta(t, 499.0, GreatCircleKm(hyderabad, bangalore), 5.0)
}

func TestGreatCircleKm_Symmetric(t *testing.T) {
	a := types.GeoPoint{Latitude: 40.7128, Longitude: -74.006}
	b := types.GeoPoint{Latitude: 51.5074, Longitude: -0.1278}

	assert.InDelta(t, GreatCircleKm(a, b), GreatCircleKm(b, a), 1e-9)
	assert.InDelta(t, 5570, GreatCircleKm(a, b), 10)
}

func TestGreatCircleKm_OneDegreeOfLatitude(t *testing.T) {
	d := GreatCircleKm(types.GeoPoint{Latitude: 0, Longitude: 0}, types.GeoPoint{Latitude: 1, Longitude: 0})
	assert.InDelta(t, 111.19, d, 0.01)
}

func TestPathLengthKm(t *testing.T) {
	g := types.RouteGeometry{{Latitude: 0, Longitude: 0}, {Latitude: 1, Longitude: 0}, {Latitude: 2, Longitude: 0}}
	assert.InDelta(t, 222.39, PathLengthKm(g), 0.02)
	assert.Zero(t, PathLengthKm(g[:1]))
}

func TestMidpoint(t *testing.T) {
	g := types.RouteGeometry{{Latitude: 0}, {Latitude: 1}, {Latitude: 2}, {Latitude: 3}, {Latitude: 4}}
	mid, ok := Midpoint(g)
	assert.True(t, ok)
	assert.Equal(t, 2.0, mid.Latitude)

	mid, ok = Midpoint(g[:4])
	assert.True(t, ok)
	assert.Equal(t, 2.0, mid.Latitude)

	_, ok = Midpoint(nil)
	assert.False(t, ok)
}

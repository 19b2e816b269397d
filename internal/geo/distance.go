package geo

import (
	"math"

	t "github.com/evanhutnik/routerisk-service/internal/types"
)

const earthRadiusKm = 6371.0

// GreatCircleKm returns the haversine distance between two points in kilometres.
func GreatCircleKm(p1, p2 t.GeoPoint) float64 {
	dLat := toRad(p2.Latitude - p1.Latitude)
	dLon := toRad(p2.Longitude - p1.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(p1.Latitude))*math.Cos(toRad(p2.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// PathLengthKm sums the great-circle length of every segment of the geometry.
func PathLengthKm(geometry t.RouteGeometry) float64 {
	var total float64
	for i := 1; i < len(geometry); i++ {
		total += GreatCircleKm(geometry[i-1], geometry[i])
	}
	return total
}

// Midpoint returns the geometry element at len/2. ok is false for an empty geometry.
func Midpoint(geometry t.RouteGeometry) (t.GeoPoint, bool) {
	if len(geometry) == 0 {
		return t.GeoPoint{}, false
	}
	return geometry[len(geometry)/2], true
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

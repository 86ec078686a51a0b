// Package geo holds the distance kernel and the in-memory region filters used
// by the location queries. There is no spatial index: callers hand in the
// full candidate set and get the matching subset back.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by DistanceMeters.
const EarthRadiusMeters = 6371000

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

var (
	errLatRange = errors.New("latitude must be within [-90, 90]")
	errLngRange = errors.New("longitude must be within [-180, 180]")
)

// Validate checks that p lies on the globe.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return errLatRange
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return errLngRange
	}
	return nil
}

// DistanceMeters returns the great-circle (Haversine) distance between a and b.
func DistanceMeters(a, b Point) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lng - a.Lng)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

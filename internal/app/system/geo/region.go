package geo

import (
	"errors"
	"math"
	"sort"
)

// MetersPerDegree is the flat conversion used to size pre-filter boxes.
// It is slightly below the true length of a degree, so boxes err on the
// large side.
const MetersPerDegree = 111000

// Box is a lat/lng rectangle. Edges are inclusive. Boxes that cross the
// anti-meridian (West > East) are not supported.
type Box struct {
	North float64
	South float64
	East  float64
	West  float64
}

var (
	errBoxInverted     = errors.New("south must not be greater than north")
	errBoxAntimeridian = errors.New("west must not be greater than east (anti-meridian boxes are not supported)")
	errNegativeRadius  = errors.New("radius must be zero or positive")
)

// Validate checks the box edges.
func (b Box) Validate() error {
	for _, lat := range []float64{b.North, b.South} {
		if math.IsNaN(lat) || lat < -90 || lat > 90 {
			return errLatRange
		}
	}
	for _, lng := range []float64{b.East, b.West} {
		if math.IsNaN(lng) || lng < -180 || lng > 180 {
			return errLngRange
		}
	}
	if b.South > b.North {
		return errBoxInverted
	}
	if b.West > b.East {
		return errBoxAntimeridian
	}
	return nil
}

// Contains reports whether p lies inside or on the edge of b.
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.South && p.Lat <= b.North &&
		p.Lng >= b.West && p.Lng <= b.East
}

// ValidateRadius rejects negative or non-finite radii.
func ValidateRadius(radiusMeters float64) error {
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) || radiusMeters < 0 {
		return errNegativeRadius
	}
	return nil
}

// BoxAround returns a box that encloses the circle of radiusMeters around
// center. It is a pre-filter only; FilterRadius must still run on the result.
//
// The longitude span uses the cosine of the poleward edge when the circle
// moves toward a pole, and falls back to the full longitude range when the
// span would wrap the anti-meridian.
func BoxAround(center Point, radiusMeters float64) Box {
	dLat := radiusMeters / MetersPerDegree

	north := math.Min(90, center.Lat+dLat)
	south := math.Max(-90, center.Lat-dLat)

	edge := math.Max(math.Abs(north), math.Abs(south))
	cos := math.Cos(radians(edge))

	west, east := -180.0, 180.0
	if cos > 1e-12 {
		dLng := radiusMeters / (MetersPerDegree * cos)
		if center.Lng-dLng >= -180 && center.Lng+dLng <= 180 {
			west = center.Lng - dLng
			east = center.Lng + dLng
		}
	}

	return Box{North: north, South: south, East: east, West: west}
}

// FilterBox keeps the items whose point lies in box, preserving input order.
func FilterBox[T any](items []T, box Box, at func(T) Point) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if box.Contains(at(it)) {
			out = append(out, it)
		}
	}
	return out
}

// Ranked pairs an item with its distance from the query center.
type Ranked[T any] struct {
	Item   T
	Meters float64
}

// FilterRadius keeps the items whose exact distance from center is at most
// radiusMeters, nearest first. Ties keep input order.
func FilterRadius[T any](items []T, center Point, radiusMeters float64, at func(T) Point) []Ranked[T] {
	out := make([]Ranked[T], 0, len(items))
	for _, it := range items {
		d := DistanceMeters(center, at(it))
		if d <= radiusMeters {
			out = append(out, Ranked[T]{Item: it, Meters: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Meters < out[j].Meters })
	return out
}

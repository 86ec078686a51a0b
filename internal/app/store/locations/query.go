package locationstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/geo"
	"github.com/dalemusser/campushub/internal/app/system/timeouts"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SearchFilters narrow a text search. Empty fields match everything.
type SearchFilters struct {
	Type string
	Tag  string
}

// BoundingBox returns every location inside box, edges included.
func (s *Store) BoundingBox(ctx context.Context, box geo.Box) ([]models.Location, error) {
	const op = "locations.box"

	if err := box.Validate(); err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}
	return s.inBox(ctx, op, box)
}

func (s *Store) inBox(ctx context.Context, op string, box geo.Box) ([]models.Location, error) {
	all, err := s.scan(ctx, op, bson.M{})
	if err != nil {
		return nil, err
	}
	return geo.FilterBox(all, box, pointOf), nil
}

// Nearby returns the locations within radiusMeters of center, nearest first.
// The enclosing box only narrows the candidates; every result is checked
// against the exact great-circle distance.
func (s *Store) Nearby(ctx context.Context, center geo.Point, radiusMeters float64) ([]models.Location, error) {
	const op = "locations.nearby"

	if err := center.Validate(); err != nil {
		return nil, apperr.Validation(op, "center: %v", err)
	}
	if err := geo.ValidateRadius(radiusMeters); err != nil {
		return nil, apperr.Validation(op, "%v", err)
	}

	candidates, err := s.inBox(ctx, op, geo.BoxAround(center, radiusMeters))
	if err != nil {
		return nil, err
	}

	ranked := geo.FilterRadius(candidates, center, radiusMeters, pointOf)
	out := make([]models.Location, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item
	}
	return out, nil
}

// Search matches query as a case- and accent-insensitive substring of the
// name, description or any tag. An empty query lists everything that passes
// the filters. This is a linear scan.
func (s *Store) Search(ctx context.Context, query string, f SearchFilters) ([]models.Location, error) {
	const op = "locations.search"

	filter := bson.M{}
	if t := strings.ToLower(strings.TrimSpace(f.Type)); t != "" {
		if !models.IsLocationType(t) {
			return nil, apperr.Validation(op, "unknown location type %q", t)
		}
		filter["type"] = t
	}
	if tag := text.Fold(strings.TrimSpace(f.Tag)); tag != "" {
		filter["tags"] = tag
	}

	all, err := s.scan(ctx, op, filter)
	if err != nil {
		return nil, err
	}

	q := text.Fold(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}
	out := make([]models.Location, 0, len(all))
	for _, loc := range all {
		if matches(loc, q) {
			out = append(out, loc)
		}
	}
	return out, nil
}

// scan loads every location matching filter. It reads one record past the
// cap so an oversized collection is reported instead of silently truncated.
func (s *Store) scan(ctx context.Context, op string, filter bson.M) ([]models.Location, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeouts.Scan())
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}}).
		SetLimit(int64(s.maxScan) + 1)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer cur.Close(ctx)

	out := make([]models.Location, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Store(op, err)
	}
	s.metrics.ObserveScan(strings.TrimPrefix(op, "locations."), len(out), time.Since(start))
	if len(out) > s.maxScan {
		return nil, apperr.ScanLimit(op, "more than %d locations; raise location_max_scan or add an index", s.maxScan)
	}
	return out, nil
}

func matches(loc models.Location, foldedQuery string) bool {
	if strings.Contains(loc.NameCI, foldedQuery) {
		return true
	}
	if loc.Description != "" && strings.Contains(text.Fold(loc.Description), foldedQuery) {
		return true
	}
	for _, t := range loc.Tags {
		if strings.Contains(t, foldedQuery) {
			return true
		}
	}
	return false
}

func pointOf(loc models.Location) geo.Point {
	return geo.Point{Lat: loc.Coordinates.Lat, Lng: loc.Coordinates.Lng}
}

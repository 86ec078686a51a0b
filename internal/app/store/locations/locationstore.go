// internal/app/store/locations/locationstore.go
package locationstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/geo"
	"github.com/dalemusser/campushub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/campushub/internal/app/system/metrics"
	"github.com/dalemusser/campushub/internal/app/system/normalize"
	"github.com/dalemusser/campushub/internal/app/system/timeouts"
	"github.com/dalemusser/campushub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the MongoDB collection holding location records.
const Collection = "locations"

// DefaultMaxScan bounds a full-collection scan when no limit is configured.
const DefaultMaxScan = 5000

const (
	maxNameLen        = 200
	maxDescriptionLen = 4000
	maxMetaEntries    = 50
)

// Store is the only writer of the locations collection.
type Store struct {
	c       *mongo.Collection
	maxScan int
	metrics *metrics.Metrics
}

// New returns a Store whose queries refuse to scan more than maxScan
// records. maxScan <= 0 selects DefaultMaxScan.
func New(db *mongo.Database, maxScan int) *Store {
	if maxScan <= 0 {
		maxScan = DefaultMaxScan
	}
	return &Store{c: db.Collection(Collection), maxScan: maxScan}
}

// SetMetrics enables scan metrics. A nil m turns them off.
func (s *Store) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// Create validates loc and inserts it with a new ID.
func (s *Store) Create(ctx context.Context, loc models.Location) (models.Location, error) {
	const op = "locations.create"

	loc, err := clean(op, loc)
	if err != nil {
		return models.Location{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	if loc.BuildingID != nil {
		if err := s.requireExists(ctx, op, *loc.BuildingID); err != nil {
			return models.Location{}, err
		}
	}

	now := time.Now().UTC()
	loc.ID = primitive.NewObjectID()
	loc.CreatedAt = now
	loc.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, loc); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Location{}, apperr.Conflict(op, "a location named %q already exists", loc.Name)
		}
		return models.Location{}, apperr.Store(op, err)
	}
	return loc, nil
}

// GetByID loads one location.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Location, error) {
	const op = "locations.get"

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	var loc models.Location
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&loc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Location{}, apperr.NotFound(op, "location %s", id.Hex())
		}
		return models.Location{}, apperr.Store(op, err)
	}
	return loc, nil
}

// Update replaces the mutable fields of location id with those of loc and
// returns the stored result.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, loc models.Location) (models.Location, error) {
	const op = "locations.update"

	loc, err := clean(op, loc)
	if err != nil {
		return models.Location{}, err
	}
	if loc.BuildingID != nil && *loc.BuildingID == id {
		return models.Location{}, apperr.Validation(op, "a location cannot be its own building")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	if loc.BuildingID != nil {
		if err := s.requireExists(ctx, op, *loc.BuildingID); err != nil {
			return models.Location{}, err
		}
	}

	set := bson.M{
		"name":        loc.Name,
		"name_ci":     loc.NameCI,
		"type":        loc.Type,
		"description": loc.Description,
		"coordinates": loc.Coordinates,
		"tags":        loc.Tags,
		"meta":        loc.Meta,
		"updated_at":  time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if loc.BuildingID != nil {
		set["building_id"] = *loc.BuildingID
	} else {
		update["$unset"] = bson.M{"building_id": ""}
	}

	var out models.Location
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Location{}, apperr.Conflict(op, "a location named %q already exists", loc.Name)
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Location{}, apperr.NotFound(op, "location %s", id.Hex())
		}
		return models.Location{}, apperr.Store(op, err)
	}
	return out, nil
}

// Delete removes a location. References to it from events and other
// locations are weak and left as they are.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	const op = "locations.delete"

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Store(op, err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound(op, "location %s", id.Hex())
	}
	return nil
}

func (s *Store) requireExists(ctx context.Context, op string, id primitive.ObjectID) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return apperr.Store(op, err)
	}
	if n == 0 {
		return apperr.NotFound(op, "building %s", id.Hex())
	}
	return nil
}

// clean normalizes loc in place and rejects anything that may not be stored.
func clean(op string, loc models.Location) (models.Location, error) {
	loc.Name = normalize.Name(loc.Name)
	if loc.Name == "" {
		return loc, apperr.Validation(op, "name is required")
	}
	if len(loc.Name) > maxNameLen {
		return loc, apperr.Validation(op, "name must be at most %d characters", maxNameLen)
	}
	loc.NameCI = text.Fold(loc.Name)

	loc.Type = strings.ToLower(strings.TrimSpace(loc.Type))
	if loc.Type == "" {
		loc.Type = models.LocationOther
	}
	if !models.IsLocationType(loc.Type) {
		return loc, apperr.Validation(op, "unknown location type %q", loc.Type)
	}

	loc.Description = htmlsanitize.PlainText(loc.Description)
	if len(loc.Description) > maxDescriptionLen {
		return loc, apperr.Validation(op, "description must be at most %d characters", maxDescriptionLen)
	}

	p := geo.Point{Lat: loc.Coordinates.Lat, Lng: loc.Coordinates.Lng}
	if err := p.Validate(); err != nil {
		return loc, apperr.Validation(op, "coordinates: %v", err)
	}

	loc.Tags = normalize.Tags(loc.Tags)

	if len(loc.Meta) > maxMetaEntries {
		return loc, apperr.Validation(op, "meta may hold at most %d entries", maxMetaEntries)
	}
	for k := range loc.Meta {
		if k == "" || strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
			return loc, apperr.Validation(op, "invalid meta key %q", k)
		}
	}
	if len(loc.Meta) == 0 {
		loc.Meta = nil
	}
	return loc, nil
}

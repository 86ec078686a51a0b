// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/campushub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, validator bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if validator == nil {
			return
		}
		if err := setValidator(ctx, db, coll, validator); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("locations", locationsSchema())
	ensure("events", eventsSchema())
	ensure("profiles", profilesSchema())
	ensure("identity_deletions", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func commandErr(err error, code int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErr(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandErr(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandErr(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func enumOf(values []string) bson.A {
	out := make(bson.A, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func locationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "type", "coordinates"},
			"properties": bson.M{
				"name":    nonBlank,
				"name_ci": nonBlank,
				"type":    bson.M{"enum": enumOf(models.LocationTypes)},
				"coordinates": bson.M{
					"bsonType": "object",
					"required": bson.A{"lat", "lng"},
					"properties": bson.M{
						"lat": bson.M{"bsonType": "double", "minimum": -90, "maximum": 90},
						"lng": bson.M{"bsonType": "double", "minimum": -180, "maximum": 180},
					},
				},
				"tags":        bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"building_id": bson.M{"bsonType": "objectId"},
				"meta":        bson.M{"bsonType": "object"},
			},
		},
	}
}

// eventsSchema also carries the capacity invariant, so no write path can
// store more attendees than places even if it bypasses the event store.
func eventsSchema() bson.M {
	return bson.M{
		"$and": bson.A{
			bson.M{"$jsonSchema": bson.M{
				"bsonType": "object",
				"required": bson.A{"title", "location_id", "capacity", "attendees", "status", "start_time", "end_time", "created_by", "version"},
				"properties": bson.M{
					"title":       nonBlank,
					"location_id": bson.M{"bsonType": "objectId"},
					"capacity":    bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
					"attendees": bson.M{
						"bsonType": "array",
						"items": bson.M{
							"bsonType": "object",
							"required": bson.A{"user_id", "registered_at"},
							"properties": bson.M{
								"user_id":       nonBlank,
								"registered_at": bson.M{"bsonType": "date"},
							},
						},
					},
					"status":     bson.M{"enum": bson.A{models.EventDraft, models.EventPublished, models.EventCancelled}},
					"start_time": bson.M{"bsonType": "date"},
					"end_time":   bson.M{"bsonType": "date"},
					"created_by": nonBlank,
					"version":    bson.M{"bsonType": bson.A{"int", "long"}},
				},
			}},
			bson.M{"$expr": bson.M{"$lte": bson.A{bson.M{"$size": "$attendees"}, "$capacity"}}},
		},
	}
}

func profilesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email", "role", "version", "claims_version"},
			"properties": bson.M{
				"name":           nonBlank,
				"email":          nonBlank,
				"role":           bson.M{"enum": bson.A{models.RoleUnprivileged, models.RolePrivileged, models.RoleAdmin}},
				"interests":      bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"photo_url":      bson.M{"bsonType": bson.A{"string", "null"}},
				"version":        bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
				"claims_version": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			},
		},
	}
}

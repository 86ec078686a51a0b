// internal/app/store/profiles/profilestore.go
package profilestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/timeouts"
	"github.com/dalemusser/campushub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the MongoDB collection holding profiles.
const Collection = "profiles"

// ErrVersionMismatch is returned by Update when the document moved past
// the version the caller read.
var ErrVersionMismatch = errors.New("profile version changed")

// Store owns the profiles and identity_deletions collections. It performs
// no authorization; the claims synchronizer is its only writer.
type Store struct {
	c         *mongo.Collection
	deletions *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:         db.Collection(Collection),
		deletions: db.Collection(DeletionsCollection),
	}
}

// Get loads the profile for uid.
func (s *Store) Get(ctx context.Context, uid string) (models.Profile, error) {
	const op = "profiles.get"

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	var p models.Profile
	if err := s.c.FindOne(ctx, bson.M{"_id": uid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Profile{}, apperr.NotFound(op, "profile %s", uid)
		}
		return models.Profile{}, apperr.Store(op, err)
	}
	return p, nil
}

// Insert stores a new profile at version 1 with no claims written yet.
// A duplicate uid or email is a Conflict.
func (s *Store) Insert(ctx context.Context, p models.Profile) (models.Profile, error) {
	const op = "profiles.insert"

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	now := time.Now().UTC()
	p.Version = 1
	p.ClaimsVersion = 0
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Profile{}, apperr.Conflict(op, "a profile with this uid or email already exists")
		}
		return models.Profile{}, apperr.Store(op, err)
	}
	return p, nil
}

// Update writes the mutable fields of next (name, role, interests,
// photo_url) if the stored version is still version, bumping it by one.
// Email and uid are never written here.
func (s *Store) Update(ctx context.Context, uid string, version int64, next models.Profile) (models.Profile, error) {
	const op = "profiles.update"

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	set := bson.M{
		"name":       next.Name,
		"role":       next.Role,
		"photo_url":  next.PhotoURL,
		"updated_at": time.Now().UTC(),
	}
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	if len(next.Interests) > 0 {
		set["interests"] = next.Interests
	} else {
		update["$unset"] = bson.M{"interests": ""}
	}

	var out models.Profile
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": uid, "version": version},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Profile{}, apperr.Store(op, err)
	}

	n, cerr := s.c.CountDocuments(ctx, bson.M{"_id": uid}, options.Count().SetLimit(1))
	if cerr != nil {
		return models.Profile{}, apperr.Store(op, cerr)
	}
	if n == 0 {
		return models.Profile{}, apperr.NotFound(op, "profile %s", uid)
	}
	return models.Profile{}, ErrVersionMismatch
}

// MarkClaimsSynced records that the claims for version were written to the
// provider. It reports false when the document has moved on (or is gone),
// in which case claims_version is left alone.
func (s *Store) MarkClaimsSynced(ctx context.Context, uid string, version int64) (bool, error) {
	const op = "profiles.mark_synced"

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": uid, "version": version},
		bson.M{"$set": bson.M{"claims_version": version}},
	)
	if err != nil {
		return false, apperr.Store(op, err)
	}
	return res.MatchedCount == 1, nil
}

// Delete removes the profile document. It reports whether one was removed.
func (s *Store) Delete(ctx context.Context, uid string) (bool, error) {
	const op = "profiles.delete"

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	res, err := s.c.DeleteOne(ctx, bson.M{"_id": uid})
	if err != nil {
		return false, apperr.Store(op, err)
	}
	return res.DeletedCount == 1, nil
}

var pendingFilter = bson.M{"$expr": bson.M{"$ne": bson.A{"$claims_version", "$version"}}}

// ListPending returns up to limit profiles whose claims trail the document,
// oldest update first.
func (s *Store) ListPending(ctx context.Context, limit int) ([]models.Profile, error) {
	const op = "profiles.list_pending"

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := s.c.Find(ctx, pendingFilter, opts)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer cur.Close(ctx)

	out := make([]models.Profile, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Store(op, err)
	}
	return out, nil
}

// CountPending counts profiles whose claims trail the document.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	n, err := s.c.CountDocuments(ctx, pendingFilter)
	if err != nil {
		return 0, apperr.Store("profiles.count_pending", err)
	}
	return n, nil
}

// CountByRole counts profiles holding role.
func (s *Store) CountByRole(ctx context.Context, role string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	n, err := s.c.CountDocuments(ctx, bson.M{"role": role})
	if err != nil {
		return 0, apperr.Store("profiles.count_role", err)
	}
	return n, nil
}

// InvalidateClaims marks uid's claims as not matching any version, so the
// reconciler rewrites them.
func (s *Store) InvalidateClaims(ctx context.Context, uid string) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": bson.M{"claims_version": 0}}); err != nil {
		return apperr.Store("profiles.invalidate_claims", err)
	}
	return nil
}

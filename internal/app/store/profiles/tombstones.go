package profilestore

import (
	"context"
	"time"

	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/timeouts"
	"github.com/dalemusser/campushub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeletionsCollection holds identity deletion tombstones.
const DeletionsCollection = "identity_deletions"

// maxErrorLen caps the stored last_error text.
const maxErrorLen = 500

// AddTombstone records that uid is being deleted. Adding one that already
// exists keeps the original request time and attempt count.
func (s *Store) AddTombstone(ctx context.Context, uid string) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	_, err := s.deletions.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$setOnInsert": bson.M{"requested_at": time.Now().UTC(), "attempts": 0}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return apperr.Store("profiles.add_tombstone", err)
	}
	return nil
}

// RecordDeletionFailure bumps the attempt count and stores cause.
func (s *Store) RecordDeletionFailure(ctx context.Context, uid string, attempts int, cause error) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	msg := ""
	if cause != nil {
		msg = cause.Error()
		if len(msg) > maxErrorLen {
			msg = msg[:maxErrorLen]
		}
	}
	_, err := s.deletions.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$inc": bson.M{"attempts": attempts}, "$set": bson.M{"last_error": msg}},
	)
	if err != nil {
		return apperr.Store("profiles.record_deletion_failure", err)
	}
	return nil
}

// RemoveTombstone clears the marker once the identity is gone.
func (s *Store) RemoveTombstone(ctx context.Context, uid string) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	if _, err := s.deletions.DeleteOne(ctx, bson.M{"_id": uid}); err != nil {
		return apperr.Store("profiles.remove_tombstone", err)
	}
	return nil
}

// HasTombstone reports whether a deletion of uid is in progress.
func (s *Store) HasTombstone(ctx context.Context, uid string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	n, err := s.deletions.CountDocuments(ctx, bson.M{"_id": uid}, options.Count().SetLimit(1))
	if err != nil {
		return false, apperr.Store("profiles.has_tombstone", err)
	}
	return n > 0, nil
}

// ListTombstones returns up to limit pending deletions, oldest first.
func (s *Store) ListTombstones(ctx context.Context, limit int) ([]models.IdentityDeletion, error) {
	const op = "profiles.list_tombstones"

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "requested_at", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := s.deletions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer cur.Close(ctx)

	out := make([]models.IdentityDeletion, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Store(op, err)
	}
	return out, nil
}

// CountTombstones counts pending deletions.
func (s *Store) CountTombstones(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	n, err := s.deletions.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, apperr.Store("profiles.count_tombstones", err)
	}
	return n, nil
}

package eventstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/retry"
	"github.com/dalemusser/campushub/internal/app/system/timeouts"
	"github.com/dalemusser/campushub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Register appends userID to the event's attendees.
//
// The capacity, duplicate and status checks are part of the update filter,
// so the append happens only if all three still hold at write time. When
// the filter matches nothing the event is re-read to find out why; if none
// of the refusal reasons apply, the document changed between the two reads
// and the whole check-and-append is tried again.
func (s *Store) Register(ctx context.Context, eventID primitive.ObjectID, userID string) (models.Event, error) {
	const op = "events.register"

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Event{}, apperr.Validation(op, "user id is required")
	}

	var out models.Event
	attempts := 0
	err := retry.Do(ctx, s.policy, s.log, op, func(attempt int) error {
		attempts = attempt
		actx, cancel := context.WithTimeout(ctx, timeouts.Store())
		defer cancel()

		now := time.Now().UTC()
		filter := bson.M{
			"_id":               eventID,
			"status":            bson.M{"$ne": models.EventCancelled},
			"attendees.user_id": bson.M{"$ne": userID},
			"$expr":             bson.M{"$lt": bson.A{bson.M{"$size": "$attendees"}, "$capacity"}},
		}
		update := bson.M{
			"$push": bson.M{"attendees": models.Attendee{UserID: userID, RegisteredAt: now}},
			"$inc":  bson.M{"version": 1},
			"$set":  bson.M{"updated_at": now},
		}

		err := s.c.FindOneAndUpdate(actx, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
		if err == nil {
			return nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			// Not retried: the write may have landed.
			return retry.Stop(apperr.Store(op, err))
		}

		cur, err := s.get(actx, op, eventID)
		if err != nil {
			return retry.Stop(err)
		}
		switch {
		case cur.Status == models.EventCancelled:
			return retry.Stop(apperr.InvalidState(op, "event %s is cancelled", eventID.Hex()))
		case cur.HasAttendee(userID):
			return retry.Stop(apperr.Conflict(op, "user %s is already registered", userID))
		case len(cur.Attendees) >= cur.Capacity:
			return retry.Stop(apperr.CapacityExceeded(op, "event %s is full (%d places)", eventID.Hex(), cur.Capacity))
		}
		return errRaced
	})

	s.metrics.Registration("register", outcome(err), attempts)
	if err != nil {
		if errors.Is(err, errRaced) {
			s.log.Warn("registration gave up after concurrent changes",
				zap.String("event_id", eventID.Hex()),
				zap.String("user_id", userID),
				zap.Int("attempts", attempts))
		}
		return models.Event{}, finish(op, err)
	}
	return out, nil
}

// Unregister removes userID from the event's attendees. Removing someone
// who is not registered is a successful no-op.
func (s *Store) Unregister(ctx context.Context, eventID primitive.ObjectID, userID string) error {
	const op = "events.unregister"

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperr.Validation(op, "user id is required")
	}

	attempts := 0
	err := retry.Do(ctx, s.policy, s.log, op, func(attempt int) error {
		attempts = attempt
		actx, cancel := context.WithTimeout(ctx, timeouts.Store())
		defer cancel()

		now := time.Now().UTC()
		filter := bson.M{
			"_id":               eventID,
			"status":            bson.M{"$ne": models.EventCancelled},
			"attendees.user_id": userID,
		}
		update := bson.M{
			"$pull": bson.M{"attendees": bson.M{"user_id": userID}},
			"$inc":  bson.M{"version": 1},
			"$set":  bson.M{"updated_at": now},
		}

		res, err := s.c.UpdateOne(actx, filter, update)
		if err != nil {
			return retry.Stop(apperr.Store(op, err))
		}
		if res.MatchedCount == 1 {
			return nil
		}

		cur, err := s.get(actx, op, eventID)
		if err != nil {
			return retry.Stop(err)
		}
		switch {
		case cur.Status == models.EventCancelled:
			return retry.Stop(apperr.InvalidState(op, "event %s is cancelled", eventID.Hex()))
		case !cur.HasAttendee(userID):
			return nil
		}
		return errRaced
	})

	s.metrics.Registration("unregister", outcome(err), attempts)
	if err != nil {
		return finish(op, err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errRaced):
		return "conflict_exhausted"
	case errors.Is(err, apperr.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case errors.Is(err, apperr.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// internal/app/store/events/eventstore.go
package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/campushub/internal/app/system/metrics"
	"github.com/dalemusser/campushub/internal/app/system/normalize"
	"github.com/dalemusser/campushub/internal/app/system/retry"
	"github.com/dalemusser/campushub/internal/app/system/timeouts"
	"github.com/dalemusser/campushub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection is the MongoDB collection holding events.
const Collection = "events"

const (
	maxTitleLen       = 200
	maxDescriptionLen = 4000
	MaxCapacity       = 100000

	DefaultListLimit = 50
	MaxListLimit     = 200
)

// errRaced means the conditional write matched nothing but the re-read
// shows no reason to refuse; the document changed in between.
var errRaced = errors.New("event changed concurrently")

// Store owns the events collection. Every write to an event's attendees or
// status is a single conditional update on the event document.
type Store struct {
	c         *mongo.Collection
	locations *mongo.Collection
	policy    retry.Policy
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func New(db *mongo.Database, policy retry.Policy, logger *zap.Logger) *Store {
	return &Store{
		c:         db.Collection(Collection),
		locations: db.Collection("locations"),
		policy:    policy,
		log:       logger,
	}
}

// SetMetrics enables registration metrics. A nil m turns them off.
func (s *Store) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// Patch lists the fields Update may change. Nil fields are left alone.
// CreatedBy and the attendee list are never patchable.
type Patch struct {
	Title       *string
	Description *string
	LocationID  *primitive.ObjectID
	Capacity    *int
	StartTime   *time.Time
	EndTime     *time.Time
}

// Create validates ev and inserts it with an empty attendee list. Status
// defaults to draft; only draft or published may be requested.
func (s *Store) Create(ctx context.Context, ev models.Event) (models.Event, error) {
	const op = "events.create"

	now := time.Now().UTC()
	ev.Title = normalize.Name(ev.Title)
	ev.Description = htmlsanitize.PlainText(ev.Description)
	if ev.Status == "" {
		ev.Status = models.EventDraft
	}
	if ev.Status != models.EventDraft && ev.Status != models.EventPublished {
		return models.Event{}, apperr.Validation(op, "new events must be draft or published")
	}
	if ev.CreatedBy == "" {
		return models.Event{}, apperr.Validation(op, "created_by is required")
	}
	if err := validateFields(op, ev); err != nil {
		return models.Event{}, err
	}
	if !ev.StartTime.After(now) {
		return models.Event{}, apperr.Validation(op, "start_time must be in the future")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	if err := s.requireLocation(ctx, op, ev.LocationID); err != nil {
		return models.Event{}, err
	}

	ev.ID = primitive.NewObjectID()
	ev.StartTime = ev.StartTime.UTC()
	ev.EndTime = ev.EndTime.UTC()
	ev.Attendees = []models.Attendee{}
	ev.Version = 1
	ev.CreatedAt = now
	ev.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, ev); err != nil {
		return models.Event{}, apperr.Store(op, err)
	}
	return ev, nil
}

// GetByID loads one event.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()
	return s.get(ctx, "events.get", id)
}

func (s *Store) get(ctx context.Context, op string, id primitive.ObjectID) (models.Event, error) {
	var ev models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Event{}, apperr.NotFound(op, "event %s", id.Hex())
		}
		return models.Event{}, apperr.Store(op, err)
	}
	return ev, nil
}

// ListUpcoming returns published events that have not ended, soonest first.
func (s *Store) ListUpcoming(ctx context.Context, limit int) ([]models.Event, error) {
	const op = "events.list"

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	filter := bson.M{
		"status":   models.EventPublished,
		"end_time": bson.M{"$gt": time.Now().UTC()},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer cur.Close(ctx)

	out := make([]models.Event, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Store(op, err)
	}
	return out, nil
}

// Update applies p to a non-cancelled event. The write is conditional on
// the version read, so a concurrent registration forces a re-check; the
// capacity may never drop below the current attendee count.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p Patch) (models.Event, error) {
	const op = "events.update"

	var out models.Event
	err := retry.Do(ctx, s.policy, s.log, op, func(attempt int) error {
		actx, cancel := context.WithTimeout(ctx, timeouts.Store())
		defer cancel()

		cur, err := s.get(actx, op, id)
		if err != nil {
			return retry.Stop(err)
		}
		if cur.Status == models.EventCancelled {
			return retry.Stop(apperr.InvalidState(op, "event %s is cancelled", id.Hex()))
		}

		next, set, err := apply(op, cur, p)
		if err != nil {
			return retry.Stop(err)
		}
		if len(set) == 0 {
			out = cur
			return nil
		}
		if next.Capacity < len(cur.Attendees) {
			return retry.Stop(apperr.Conflict(op, "capacity %d is below the %d registered attendees", next.Capacity, len(cur.Attendees)))
		}
		if p.LocationID != nil && *p.LocationID != cur.LocationID {
			if err := s.requireLocation(actx, op, *p.LocationID); err != nil {
				return retry.Stop(err)
			}
		}

		set["updated_at"] = time.Now().UTC()
		filter := bson.M{
			"_id":     id,
			"version": cur.Version,
			"status":  bson.M{"$ne": models.EventCancelled},
			"$expr":   bson.M{"$lte": bson.A{bson.M{"$size": "$attendees"}, next.Capacity}},
		}
		update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}

		err = s.c.FindOneAndUpdate(actx, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return errRaced
		}
		if err != nil {
			return retry.Stop(apperr.Store(op, err))
		}
		return nil
	})
	if err != nil {
		return models.Event{}, finish(op, err)
	}
	return out, nil
}

// apply merges p into cur, validates the result and returns the $set document.
func apply(op string, cur models.Event, p Patch) (models.Event, bson.M, error) {
	next := cur
	set := bson.M{}

	if p.Title != nil {
		next.Title = normalize.Name(*p.Title)
		set["title"] = next.Title
	}
	if p.Description != nil {
		next.Description = htmlsanitize.PlainText(*p.Description)
		set["description"] = next.Description
	}
	if p.LocationID != nil {
		next.LocationID = *p.LocationID
		set["location_id"] = next.LocationID
	}
	if p.Capacity != nil {
		next.Capacity = *p.Capacity
		set["capacity"] = next.Capacity
	}
	if p.StartTime != nil {
		next.StartTime = p.StartTime.UTC()
		set["start_time"] = next.StartTime
		if !next.StartTime.Equal(cur.StartTime) && !next.StartTime.After(time.Now()) {
			return next, nil, apperr.Validation(op, "start_time must be in the future")
		}
	}
	if p.EndTime != nil {
		next.EndTime = p.EndTime.UTC()
		set["end_time"] = next.EndTime
	}
	if err := validateFields(op, next); err != nil {
		return next, nil, err
	}
	return next, set, nil
}

// Publish moves a draft event to published.
func (s *Store) Publish(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	const op = "events.publish"

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	now := time.Now().UTC()
	var out models.Event
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.EventDraft},
		bson.M{"$set": bson.M{"status": models.EventPublished, "updated_at": now}, "$inc": bson.M{"version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Event{}, apperr.Store(op, err)
	}

	cur, err := s.get(ctx, op, id)
	if err != nil {
		return models.Event{}, err
	}
	return models.Event{}, apperr.InvalidState(op, "cannot publish a %s event", cur.Status)
}

// Cancel marks the event cancelled. Attendees are kept. Cancelling an
// already-cancelled event succeeds without another write.
func (s *Store) Cancel(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	const op = "events.cancel"

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	now := time.Now().UTC()
	var out models.Event
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.EventCancelled}},
		bson.M{"$set": bson.M{"status": models.EventCancelled, "updated_at": now}, "$inc": bson.M{"version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Event{}, apperr.Store(op, err)
	}
	// Either missing or already cancelled.
	return s.get(ctx, op, id)
}

// Delete removes an event and its registrations.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	const op = "events.delete"

	ctx, cancel := context.WithTimeout(ctx, timeouts.Store())
	defer cancel()

	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Store(op, err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound(op, "event %s", id.Hex())
	}
	return nil
}

func (s *Store) requireLocation(ctx context.Context, op string, id primitive.ObjectID) error {
	n, err := s.locations.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return apperr.Store(op, err)
	}
	if n == 0 {
		return apperr.NotFound(op, "location %s", id.Hex())
	}
	return nil
}

func validateFields(op string, ev models.Event) error {
	if ev.Title == "" {
		return apperr.Validation(op, "title is required")
	}
	if len(ev.Title) > maxTitleLen {
		return apperr.Validation(op, "title must be at most %d characters", maxTitleLen)
	}
	if len(ev.Description) > maxDescriptionLen {
		return apperr.Validation(op, "description must be at most %d characters", maxDescriptionLen)
	}
	if ev.LocationID.IsZero() {
		return apperr.Validation(op, "location_id is required")
	}
	if ev.Capacity < 1 || ev.Capacity > MaxCapacity {
		return apperr.Validation(op, "capacity must be between 1 and %d", MaxCapacity)
	}
	if ev.StartTime.IsZero() || ev.EndTime.IsZero() {
		return apperr.Validation(op, "start_time and end_time are required")
	}
	if !ev.StartTime.Before(ev.EndTime) {
		return apperr.Validation(op, "start_time must be before end_time")
	}
	return nil
}

// finish turns a retry result into the error returned to callers.
func finish(op string, err error) error {
	if errors.Is(err, errRaced) {
		return apperr.Conflict(op, "event kept changing; gave up")
	}
	return apperr.Store(op, err)
}

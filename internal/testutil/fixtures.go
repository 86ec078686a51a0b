package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test documents directly, bypassing the stores' validation.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateLocation inserts a location of type "academic" at (lat, lng).
func (f *Fixtures) CreateLocation(ctx context.Context, name string, lat, lng float64) models.Location {
	f.t.Helper()
	return f.CreateLocationWith(ctx, models.Location{
		Name:        name,
		Type:        models.LocationAcademic,
		Coordinates: models.Coordinates{Lat: lat, Lng: lng},
	})
}

// CreateLocationWith inserts loc, filling in ID, NameCI and timestamps.
func (f *Fixtures) CreateLocationWith(ctx context.Context, loc models.Location) models.Location {
	f.t.Helper()

	now := time.Now().UTC()
	if loc.ID.IsZero() {
		loc.ID = primitive.NewObjectID()
	}
	if loc.Type == "" {
		loc.Type = models.LocationOther
	}
	loc.NameCI = text.Fold(loc.Name)
	loc.CreatedAt = now
	loc.UpdatedAt = now

	if _, err := f.db.Collection("locations").InsertOne(ctx, loc); err != nil {
		f.t.Fatalf("failed to create test location: %v", err)
	}
	return loc
}

// CreateEvent inserts a published event with the given capacity that starts
// in one week at locationID.
func (f *Fixtures) CreateEvent(ctx context.Context, title string, locationID primitive.ObjectID, capacity int) models.Event {
	f.t.Helper()
	return f.CreateEventWithStatus(ctx, title, locationID, capacity, models.EventPublished)
}

// CreateEventWithStatus is CreateEvent with an explicit status.
func (f *Fixtures) CreateEventWithStatus(ctx context.Context, title string, locationID primitive.ObjectID, capacity int, status string) models.Event {
	f.t.Helper()

	now := time.Now().UTC()
	start := now.Add(7 * 24 * time.Hour).Truncate(time.Millisecond)
	ev := models.Event{
		ID:         primitive.NewObjectID(),
		Title:      title,
		LocationID: locationID,
		Capacity:   capacity,
		Attendees:  []models.Attendee{},
		Status:     status,
		StartTime:  start,
		EndTime:    start.Add(2 * time.Hour),
		CreatedBy:  "fixture",
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("events").InsertOne(ctx, ev); err != nil {
		f.t.Fatalf("failed to create test event: %v", err)
	}
	return ev
}

// CreateProfile inserts a profile whose claims are marked as already synced.
func (f *Fixtures) CreateProfile(ctx context.Context, uid, name, role string) models.Profile {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Profile{
		UID:           uid,
		Name:          name,
		Email:         uid + "@campus.test",
		Role:          role,
		Version:       1,
		ClaimsVersion: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := f.db.Collection("profiles").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

// CreateAdmin inserts an admin profile.
func (f *Fixtures) CreateAdmin(ctx context.Context, uid string) models.Profile {
	f.t.Helper()
	return f.CreateProfile(ctx, uid, "Test Admin", models.RoleAdmin)
}

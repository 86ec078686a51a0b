package eventstore_test

import (
	"errors"
	"testing"
	"time"

	eventstore "github.com/dalemusser/campushub/internal/app/store/events"
	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/retry"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/dalemusser/campushub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newStore(t *testing.T) (*eventstore.Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	policy := retry.Policy{MaxAttempts: 5, Initial: time.Millisecond, Max: 10 * time.Millisecond}
	return eventstore.New(db, policy, zap.NewNop()), testutil.NewFixtures(t, db)
}

func validEvent(locationID primitive.ObjectID) models.Event {
	start := time.Now().Add(48 * time.Hour)
	return models.Event{
		Title:      "Freshers Orientation",
		LocationID: locationID,
		Capacity:   100,
		StartTime:  start,
		EndTime:    start.Add(3 * time.Hour),
		CreatedBy:  "organizer-1",
	}
}

func TestStore_Create(t *testing.T) {
	store, fx := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	loc := fx.CreateLocation(ctx, "Auditorium", 30.35, 76.36)
	in := validEvent(loc.ID)
	in.Description = "<script>x()</script>Welcome talk"

	ev, err := store.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if ev.ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if ev.Status != models.EventDraft {
		t.Errorf("Status: got %q, want %q", ev.Status, models.EventDraft)
	}
	if ev.Version != 1 {
		t.Errorf("Version: got %d, want 1", ev.Version)
	}
	if ev.Attendees == nil || len(ev.Attendees) != 0 {
		t.Errorf("Attendees: got %#v, want empty slice", ev.Attendees)
	}
	if ev.Description != "Welcome talk" {
		t.Errorf("Description: got %q", ev.Description)
	}

	got, err := store.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != ev.Title || got.CreatedBy != "organizer-1" {
		t.Errorf("GetByID: got %+v", got)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	store, fx := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	loc := fx.CreateLocation(ctx, "Auditorium", 30.35, 76.36)

	tests := []struct {
		name   string
		mutate func(*models.Event)
	}{
		{"blank title", func(e *models.Event) { e.Title = "  " }},
		{"zero capacity", func(e *models.Event) { e.Capacity = 0 }},
		{"start after end", func(e *models.Event) { e.EndTime = e.StartTime.Add(-time.Minute) }},
		{"start equals end", func(e *models.Event) { e.EndTime = e.StartTime }},
		{"start in past", func(e *models.Event) {
			e.StartTime = time.Now().Add(-time.Hour)
			e.EndTime = time.Now().Add(time.Hour)
		}},
		{"missing creator", func(e *models.Event) { e.CreatedBy = "" }},
		{"cancelled on create", func(e *models.Event) { e.Status = models.EventCancelled }},
		{"no location", func(e *models.Event) { e.LocationID = primitive.NilObjectID }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent(loc.ID)
			tt.mutate(&ev)
			if _, err := store.Create(ctx, ev); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}

	if _, err := store.Create(ctx, validEvent(primitive.NewObjectID())); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown location: got %v, want ErrNotFound", err)
	}
}

func TestStore_Update(t *testing.T) {
	store, fx := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	loc := fx.CreateLocation(ctx, "Hall", 30.35, 76.36)
	other := fx.CreateLocation(ctx, "Lawn", 30.36, 76.37)
	ev := fx.CreateEvent(ctx, "Quiz", loc.ID, 3)
	for _, uid := range []string{"a", "b"} {
		if _, err := store.Register(ctx, ev.ID, uid); err != nil {
			t.Fatalf("Register %s failed: %v", uid, err)
		}
	}

	title := "Quiz Night"
	capacity := 2
	updated, err := store.Update(ctx, ev.ID, eventstore.Patch{Title: &title, Capacity: &capacity, LocationID: &other.ID})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != title || updated.Capacity != 2 || updated.LocationID != other.ID {
		t.Errorf("Update: got %+v", updated)
	}
	if updated.CreatedBy != ev.CreatedBy {
		t.Errorf("CreatedBy changed: got %q, want %q", updated.CreatedBy, ev.CreatedBy)
	}
	if len(updated.Attendees) != 2 {
		t.Errorf("Attendees: got %d, want 2", len(updated.Attendees))
	}

	tooSmall := 1
	if _, err := store.Update(ctx, ev.ID, eventstore.Patch{Capacity: &tooSmall}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("capacity below attendees: got %v, want ErrConflict", err)
	}

	end := updated.StartTime.Add(-time.Hour)
	if _, err := store.Update(ctx, ev.ID, eventstore.Patch{EndTime: &end}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("end before start: got %v, want ErrValidation", err)
	}

	missing := primitive.NewObjectID()
	if _, err := store.Update(ctx, ev.ID, eventstore.Patch{LocationID: &missing}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown location: got %v, want ErrNotFound", err)
	}

	if _, err := store.Cancel(ctx, ev.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if _, err := store.Update(ctx, ev.ID, eventstore.Patch{Title: &title}); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("update cancelled: got %v, want ErrInvalidState", err)
	}
}

func TestStore_StatusTransitions(t *testing.T) {
	store, fx := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	loc := fx.CreateLocation(ctx, "Hall", 30.35, 76.36)
	ev := fx.CreateEventWithStatus(ctx, "Draft Talk", loc.ID, 10, models.EventDraft)

	pub, err := store.Publish(ctx, ev.ID)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if pub.Status != models.EventPublished || pub.Version != ev.Version+1 {
		t.Errorf("Publish: status %q version %d", pub.Status, pub.Version)
	}

	if _, err := store.Publish(ctx, ev.ID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("publish twice: got %v, want ErrInvalidState", err)
	}

	if _, err := store.Register(ctx, ev.ID, "early-bird"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	c1, err := store.Cancel(ctx, ev.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if c1.Status != models.EventCancelled || len(c1.Attendees) != 1 {
		t.Errorf("Cancel: status %q attendees %d", c1.Status, len(c1.Attendees))
	}

	c2, err := store.Cancel(ctx, ev.ID)
	if err != nil {
		t.Fatalf("second Cancel failed: %v", err)
	}
	if c2.Version != c1.Version {
		t.Errorf("second Cancel wrote again: version %d -> %d", c1.Version, c2.Version)
	}

	if _, err := store.Publish(ctx, ev.ID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("publish cancelled: got %v, want ErrInvalidState", err)
	}
	if _, err := store.Cancel(ctx, primitive.NewObjectID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cancel missing: got %v, want ErrNotFound", err)
	}
}

func TestStore_ListUpcoming(t *testing.T) {
	store, fx := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	loc := fx.CreateLocation(ctx, "Hall", 30.35, 76.36)
	fx.CreateEvent(ctx, "Published", loc.ID, 10)
	fx.CreateEventWithStatus(ctx, "Draft", loc.ID, 10, models.EventDraft)
	fx.CreateEventWithStatus(ctx, "Cancelled", loc.ID, 10, models.EventCancelled)

	got, err := store.ListUpcoming(ctx, 0)
	if err != nil {
		t.Fatalf("ListUpcoming failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Published" {
		t.Errorf("got %d events, want only the published one", len(got))
	}
}

func TestStore_Delete(t *testing.T) {
	store, fx := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	loc := fx.CreateLocation(ctx, "Hall", 30.35, 76.36)
	ev := fx.CreateEvent(ctx, "Gone", loc.ID, 10)

	if err := store.Delete(ctx, ev.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, ev.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetByID after delete: got %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, ev.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Delete: got %v, want ErrNotFound", err)
	}
}

func TestStore_CancelDraft(t *testing.T) {
	store, fx := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	loc := fx.CreateLocation(ctx, "Hall", 30.35, 76.36)
	ev := fx.CreateEventWithStatus(ctx, "Shelved Talk", loc.ID, 10, models.EventDraft)

	got, err := store.Cancel(ctx, ev.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if got.Status != models.EventCancelled {
		t.Errorf("status: got %q, want %q", got.Status, models.EventCancelled)
	}
	if _, err := store.Publish(ctx, ev.ID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("publish after cancel: got %v, want ErrInvalidState", err)
	}
}

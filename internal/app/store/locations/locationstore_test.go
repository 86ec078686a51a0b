package locationstore_test

import (
	"context"
	"errors"
	"math"
	"testing"

	locationstore "github.com/dalemusser/campushub/internal/app/store/locations"
	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/indexes"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/dalemusser/campushub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) (*mongo.Database, *locationstore.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return db, locationstore.New(db, 0)
}

func TestStore_Create(t *testing.T) {
	_, store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	loc, err := store.Create(ctx, models.Location{
		Name:        "  Main   Library ",
		Type:        "Library",
		Description: "<p>Open <b>24h</b> during exams</p>",
		Coordinates: models.Coordinates{Lat: 30.3548, Lng: 76.3635},
		Tags:        []string{"Study", "study", " WiFi ", ""},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if loc.ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if loc.Name != "Main Library" {
		t.Errorf("Name: got %q, want %q", loc.Name, "Main Library")
	}
	if loc.NameCI != "main library" {
		t.Errorf("NameCI: got %q, want %q", loc.NameCI, "main library")
	}
	if loc.Type != models.LocationLibrary {
		t.Errorf("Type: got %q, want %q", loc.Type, models.LocationLibrary)
	}
	if loc.Description != "Open 24h during exams" {
		t.Errorf("Description: got %q", loc.Description)
	}
	if len(loc.Tags) != 2 || loc.Tags[0] != "study" || loc.Tags[1] != "wifi" {
		t.Errorf("Tags: got %v, want [study wifi]", loc.Tags)
	}

	got, err := store.GetByID(ctx, loc.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != loc.Name || got.Coordinates != loc.Coordinates {
		t.Errorf("GetByID: got %+v, want %+v", got, loc)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	_, store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name string
		loc  models.Location
	}{
		{"blank name", models.Location{Name: "   ", Coordinates: models.Coordinates{Lat: 1, Lng: 1}}},
		{"unknown type", models.Location{Name: "A", Type: "castle"}},
		{"latitude too high", models.Location{Name: "B", Coordinates: models.Coordinates{Lat: 90.0001, Lng: 0}}},
		{"longitude too low", models.Location{Name: "C", Coordinates: models.Coordinates{Lat: 0, Lng: -180.5}}},
		{"NaN latitude", models.Location{Name: "D", Coordinates: models.Coordinates{Lat: math.NaN(), Lng: 0}}},
		{"bad meta key", models.Location{Name: "E", Meta: map[string]string{"$where": "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, tt.loc)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestStore_Create_MissingBuilding(t *testing.T) {
	_, store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.Location{Name: "Annex", BuildingID: ptrID(primitive.NewObjectID())})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestStore_Create_DuplicateNameCaseInsensitive(t *testing.T) {
	_, store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.Location{Name: "Student Centre"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.Location{Name: "STUDENT centre"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("got %v, want ErrConflict", err)
	}
}

func TestStore_Update(t *testing.T) {
	db, store := setup(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	building := fx.CreateLocation(ctx, "Block A", 30.35, 76.36)
	room := fx.CreateLocation(ctx, "Room 101", 30.35, 76.36)

	updated, err := store.Update(ctx, room.ID, models.Location{
		Name:        "Room 101A",
		Type:        models.LocationAcademic,
		Coordinates: models.Coordinates{Lat: 30.351, Lng: 76.361},
		BuildingID:  &building.ID,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "Room 101A" || updated.NameCI != "room 101a" {
		t.Errorf("Name: got %q/%q", updated.Name, updated.NameCI)
	}
	if updated.BuildingID == nil || *updated.BuildingID != building.ID {
		t.Errorf("BuildingID: got %v, want %v", updated.BuildingID, building.ID)
	}

	// Self-reference is rejected before any write.
	_, err = store.Update(ctx, building.ID, models.Location{Name: "Block A", BuildingID: &building.ID})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("self reference: got %v, want ErrValidation", err)
	}

	// Renaming onto another location's name conflicts.
	_, err = store.Update(ctx, room.ID, models.Location{Name: "block a"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("rename collision: got %v, want ErrConflict", err)
	}

	// Clearing the building unsets it.
	cleared, err := store.Update(ctx, room.ID, models.Location{Name: "Room 101A"})
	if err != nil {
		t.Fatalf("Update (clear building) failed: %v", err)
	}
	if cleared.BuildingID != nil {
		t.Errorf("BuildingID: got %v, want nil", cleared.BuildingID)
	}
}

func TestStore_NotFound(t *testing.T) {
	_, store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	missing := primitive.NewObjectID()

	if _, err := store.GetByID(ctx, missing); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetByID: got %v, want ErrNotFound", err)
	}
	if _, err := store.Update(ctx, missing, models.Location{Name: "X"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Update: got %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, missing); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete: got %v, want ErrNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	db, store := setup(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	loc := fx.CreateLocation(ctx, "Old Gym", 30.35, 76.36)
	if err := store.Delete(ctx, loc.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, loc.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetByID after delete: got %v, want NotFound", err)
	}
}

func TestStore_UnreachableStoreIsAnError(t *testing.T) {
	_, store := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	locs, err := store.Search(ctx, "", locationstore.SearchFilters{})
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Errorf("got %v, want ErrUpstreamUnavailable", err)
	}
	if locs != nil {
		t.Errorf("expected nil result on failure, got %v", locs)
	}
}

func ptrID(id primitive.ObjectID) *primitive.ObjectID { return &id }

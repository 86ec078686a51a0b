package locationstore_test

import (
	"errors"
	"math"
	"testing"

	locationstore "github.com/dalemusser/campushub/internal/app/store/locations"
	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/geo"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/dalemusser/campushub/internal/testutil"
)

// north returns the point meters due north of p. Along a meridian the
// Haversine distance is exactly R·Δφ.
func north(p geo.Point, meters float64) geo.Point {
	return geo.Point{Lat: p.Lat + meters/geo.EarthRadiusMeters*180/math.Pi, Lng: p.Lng}
}

func names(locs []models.Location) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = l.Name
	}
	return out
}

func TestBoundingBox_BoundaryInclusion(t *testing.T) {
	db, store := setup(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	box := geo.Box{North: 30.36, South: 30.34, East: 76.37, West: 76.35}

	fx.CreateLocation(ctx, "On North Edge", box.North, 76.36)
	fx.CreateLocation(ctx, "On West Edge", 30.35, box.West)
	fx.CreateLocation(ctx, "Just Outside", box.North+1e-9, 76.36)
	fx.CreateLocation(ctx, "Far Away", 28.61, 77.20)

	got, err := store.BoundingBox(ctx, box)
	if err != nil {
		t.Fatalf("BoundingBox failed: %v", err)
	}

	have := map[string]bool{}
	for _, n := range names(got) {
		have[n] = true
	}
	if !have["On North Edge"] || !have["On West Edge"] {
		t.Errorf("expected edge locations included, got %v", names(got))
	}
	if have["Just Outside"] || have["Far Away"] {
		t.Errorf("expected outside locations excluded, got %v", names(got))
	}
}

func TestBoundingBox_Validation(t *testing.T) {
	_, store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name string
		box  geo.Box
	}{
		{"anti-meridian", geo.Box{North: 10, South: 0, East: -170, West: 170}},
		{"south above north", geo.Box{North: 0, South: 10, East: 10, West: 0}},
		{"latitude out of range", geo.Box{North: 95, South: 0, East: 10, West: 0}},
	}
	for _, tt := range tests {
		if _, err := store.BoundingBox(ctx, tt.box); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%s: got %v, want ErrValidation", tt.name, err)
		}
	}
}

func TestBoundingBox_EmptyCollection(t *testing.T) {
	_, store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got, err := store.BoundingBox(ctx, geo.Box{North: 90, South: -90, East: 180, West: -180})
	if err != nil {
		t.Fatalf("BoundingBox failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestNearby_RadiusExactness(t *testing.T) {
	db, store := setup(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	center := geo.Point{Lat: 30.3548, Lng: 76.3635}
	const radius = 500.0

	inside := north(center, radius-1)
	outside := north(center, radius+1)
	fx.CreateLocation(ctx, "Inside", inside.Lat, inside.Lng)
	fx.CreateLocation(ctx, "Just Beyond", outside.Lat, outside.Lng)

	// Inside the pre-filter box but outside the circle.
	box := geo.BoxAround(center, radius)
	fx.CreateLocation(ctx, "Corner", center.Lat+(box.North-center.Lat)*0.9, center.Lng+(box.East-center.Lng)*0.9)

	got, err := store.Nearby(ctx, center, radius)
	if err != nil {
		t.Fatalf("Nearby failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Inside" {
		t.Errorf("got %v, want [Inside]", names(got))
	}
}

func TestNearby_ZeroRadiusCoincidentOnly(t *testing.T) {
	db, store := setup(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateLocation(ctx, "Clock Tower", 30.3548, 76.3635)
	fx.CreateLocation(ctx, "Clock Tower Plaque", 30.3548, 76.3635)
	fx.CreateLocation(ctx, "Fountain", 30.3549, 76.3635)

	got, err := store.Nearby(ctx, geo.Point{Lat: 30.3548, Lng: 76.3635}, 0)
	if err != nil {
		t.Fatalf("Nearby failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want the two coincident locations", names(got))
	}
	for _, l := range got {
		if l.Name == "Fountain" {
			t.Errorf("non-coincident location returned: %v", names(got))
		}
	}
}

func TestNearby_SortedByDistance(t *testing.T) {
	db, store := setup(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	center := geo.Point{Lat: 30.3548, Lng: 76.3635}
	for _, tc := range []struct {
		name string
		m    float64
	}{{"Far", 900}, {"Near", 100}, {"Middle", 400}} {
		p := north(center, tc.m)
		fx.CreateLocation(ctx, tc.name, p.Lat, p.Lng)
	}

	got, err := store.Nearby(ctx, center, 1000)
	if err != nil {
		t.Fatalf("Nearby failed: %v", err)
	}
	want := []string{"Near", "Middle", "Far"}
	if g := names(got); len(g) != 3 || g[0] != want[0] || g[1] != want[1] || g[2] != want[2] {
		t.Errorf("order: got %v, want %v", g, want)
	}
}

func TestNearby_Validation(t *testing.T) {
	_, store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Nearby(ctx, geo.Point{Lat: 0, Lng: 0}, -1); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("negative radius: got %v, want ErrValidation", err)
	}
	if _, err := store.Nearby(ctx, geo.Point{Lat: 100, Lng: 0}, 10); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad center: got %v, want ErrValidation", err)
	}
}

func TestSearch(t *testing.T) {
	db, store := setup(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateLocationWith(ctx, models.Location{Name: "Café Coffee Day", Type: models.LocationDining})
	fx.CreateLocationWith(ctx, models.Location{Name: "Central Library", Type: models.LocationLibrary, Description: "Quiet study floors"})
	fx.CreateLocationWith(ctx, models.Location{Name: "Hostel J", Type: models.LocationHostel, Tags: []string{"girls", "mess"}})

	tests := []struct {
		name    string
		query   string
		filters locationstore.SearchFilters
		want    []string
	}{
		{"empty query lists all", "", locationstore.SearchFilters{}, []string{"Café Coffee Day", "Central Library", "Hostel J"}},
		{"case insensitive", "LIBRARY", locationstore.SearchFilters{}, []string{"Central Library"}},
		{"diacritic insensitive", "cafe", locationstore.SearchFilters{}, []string{"Café Coffee Day"}},
		{"description", "quiet", locationstore.SearchFilters{}, []string{"Central Library"}},
		{"tag", "mes", locationstore.SearchFilters{}, []string{"Hostel J"}},
		{"type filter", "", locationstore.SearchFilters{Type: "hostel"}, []string{"Hostel J"}},
		{"tag filter", "", locationstore.SearchFilters{Tag: "Girls"}, []string{"Hostel J"}},
		{"no match", "stadium", locationstore.SearchFilters{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Search(ctx, tt.query, tt.filters)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			g := names(got)
			if len(g) != len(tt.want) {
				t.Fatalf("got %v, want %v", g, tt.want)
			}
			for i := range g {
				if g[i] != tt.want[i] {
					t.Errorf("got %v, want %v", g, tt.want)
					break
				}
			}
		})
	}

	if _, err := store.Search(ctx, "", locationstore.SearchFilters{Type: "castle"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown type: got %v, want ErrValidation", err)
	}
}

func TestScanLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateLocation(ctx, "One", 1, 1)
	fx.CreateLocation(ctx, "Two", 2, 2)

	atCap := locationstore.New(db, 2)
	if got, err := atCap.Search(ctx, "", locationstore.SearchFilters{}); err != nil || len(got) != 2 {
		t.Errorf("at cap: got %d locations, err %v; want 2, nil", len(got), err)
	}

	fx.CreateLocation(ctx, "Three", 3, 3)

	_, err := atCap.BoundingBox(ctx, geo.Box{North: 90, South: -90, East: 180, West: -180})
	if !errors.Is(err, apperr.ErrScanLimit) {
		t.Errorf("over cap: got %v, want ErrScanLimit", err)
	}
}

package geo

import (
	"math"
	"testing"
)

type site struct {
	name string
	at   Point
}

func siteAt(s site) Point { return s.at }

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Point
		want  float64
		delta float64
	}{
		{"same point", Point{30.3548, 76.3635}, Point{30.3548, 76.3635}, 0, 0},
		{"one degree of latitude", Point{0, 0}, Point{1, 0}, 111195, 1},
		{"one degree of longitude at equator", Point{0, 0}, Point{0, 1}, 111195, 1},
		{"quarter meridian", Point{0, 0}, Point{90, 0}, math.Pi / 2 * EarthRadiusMeters, 0.001},
		{"antipodes", Point{0, 0}, Point{0, 180}, math.Pi * EarthRadiusMeters, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.delta {
				t.Errorf("DistanceMeters = %f, want %f (±%f)", got, tt.want, tt.delta)
			}
			if back := DistanceMeters(tt.b, tt.a); math.Abs(back-got) > 1e-6 {
				t.Errorf("distance not symmetric: %f vs %f", got, back)
			}
		})
	}
}

func TestPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Point
		wantErr bool
	}{
		{"origin", Point{0, 0}, false},
		{"corners", Point{90, -180}, false},
		{"lat too high", Point{90.0001, 0}, true},
		{"lng too low", Point{0, -180.5}, true},
		{"nan", Point{math.NaN(), 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBoxValidate(t *testing.T) {
	tests := []struct {
		name    string
		box     Box
		wantErr bool
	}{
		{"campus box", Box{North: 30.36, South: 30.35, East: 76.37, West: 76.36}, false},
		{"single point", Box{North: 1, South: 1, East: 1, West: 1}, false},
		{"inverted", Box{North: 30.35, South: 30.36, East: 76.37, West: 76.36}, true},
		{"anti-meridian", Box{North: 10, South: -10, East: -170, West: 170}, true},
		{"north out of range", Box{North: 91, South: 0, East: 1, West: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.box.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBoxContains_Boundary(t *testing.T) {
	box := Box{North: 30.36, South: 30.35, East: 76.37, West: 76.36}

	if !box.Contains(Point{Lat: 30.36, Lng: 76.365}) {
		t.Error("point on the north edge should be inside")
	}
	if !box.Contains(Point{Lat: 30.35, Lng: 76.36}) {
		t.Error("south-west corner should be inside")
	}
	if box.Contains(Point{Lat: 30.36 + 1e-9, Lng: 76.365}) {
		t.Error("point just past the north edge should be outside")
	}
	if box.Contains(Point{Lat: 30.355, Lng: 76.37 + 1e-9}) {
		t.Error("point just past the east edge should be outside")
	}
}

func TestBoxAround_EnclosesCircle(t *testing.T) {
	centers := []Point{{30.3548, 76.3635}, {0, 0}, {-45, 120}, {70, 10}}
	radii := []float64{50, 1000, 25000}

	for _, c := range centers {
		for _, r := range radii {
			box := BoxAround(c, r)
			if err := box.Validate(); err != nil {
				t.Fatalf("BoxAround(%v, %v) produced invalid box: %v", c, r, err)
			}
			// Walk the circle and make sure every point on it is in the box.
			for deg := 0; deg < 360; deg += 15 {
				p := destination(c, float64(deg), r)
				if !box.Contains(p) {
					t.Errorf("BoxAround(%v, %v): circle point %v at bearing %d outside box %+v", c, r, p, deg, box)
				}
			}
		}
	}
}

func TestBoxAround_ZeroRadius(t *testing.T) {
	c := Point{Lat: 30.3548, Lng: 76.3635}
	box := BoxAround(c, 0)
	if box.North != c.Lat || box.South != c.Lat || box.East != c.Lng || box.West != c.Lng {
		t.Errorf("zero radius box = %+v, want degenerate box at %v", box, c)
	}
}

func TestBoxAround_AntimeridianWidens(t *testing.T) {
	box := BoxAround(Point{Lat: 0, Lng: 179.99}, 5000)
	if box.West != -180 || box.East != 180 {
		t.Errorf("expected full longitude range near the anti-meridian, got %+v", box)
	}
}

func TestBoxAround_PoleWidens(t *testing.T) {
	box := BoxAround(Point{Lat: 89.999, Lng: 0}, 5000)
	if box.North != 90 {
		t.Errorf("north should clamp to 90, got %v", box.North)
	}
	if box.West != -180 || box.East != 180 {
		t.Errorf("expected full longitude range at the pole, got %+v", box)
	}
}

func TestFilterBox_KeepsOrder(t *testing.T) {
	sites := []site{
		{"c", Point{30.355, 76.365}},
		{"outside", Point{31, 76.365}},
		{"a", Point{30.351, 76.361}},
	}
	got := FilterBox(sites, Box{North: 30.36, South: 30.35, East: 76.37, West: 76.36}, siteAt)
	if len(got) != 2 || got[0].name != "c" || got[1].name != "a" {
		t.Errorf("FilterBox = %+v, want [c a]", got)
	}
}

func TestFilterRadius_ExcludesCorner(t *testing.T) {
	center := Point{Lat: 30.3548, Lng: 76.3635}
	corner := Point{Lat: 30.3598, Lng: 76.3685}

	radius := DistanceMeters(center, corner) - 1

	box := BoxAround(center, radius)
	if !box.Contains(corner) {
		t.Fatalf("test setup: corner point should fall inside the pre-filter box")
	}

	got := FilterRadius([]site{{"corner", corner}}, center, radius, siteAt)
	if len(got) != 0 {
		t.Errorf("point at radius+1 must be excluded, got %+v", got)
	}

	got = FilterRadius([]site{{"corner", corner}}, center, radius+1, siteAt)
	if len(got) != 1 {
		t.Errorf("point at exactly the radius must be included, got %+v", got)
	}
}

func TestFilterRadius_SortsNearestFirst(t *testing.T) {
	center := Point{Lat: 30.3548, Lng: 76.3635}
	sites := []site{
		{"far", Point{30.3600, 76.3635}},
		{"here", center},
		{"near", Point{30.3550, 76.3635}},
	}
	got := FilterRadius(sites, center, 2000, siteAt)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	want := []string{"here", "near", "far"}
	for i, w := range want {
		if got[i].Item.name != w {
			t.Errorf("result[%d] = %s, want %s", i, got[i].Item.name, w)
		}
	}
	if got[0].Meters != 0 {
		t.Errorf("coincident point should have distance 0, got %f", got[0].Meters)
	}
}

func TestFilterRadius_ZeroRadiusCoincidentOnly(t *testing.T) {
	center := Point{Lat: 30.3548, Lng: 76.3635}
	sites := []site{
		{"here", center},
		{"also here", Point{30.3548, 76.3635}},
		{"next door", Point{30.35481, 76.3635}},
	}
	got := FilterRadius(sites, center, 0, siteAt)
	if len(got) != 2 {
		t.Fatalf("expected only the 2 coincident points, got %+v", got)
	}
}

func TestValidateRadius(t *testing.T) {
	for _, r := range []float64{-1, math.NaN(), math.Inf(1)} {
		if ValidateRadius(r) == nil {
			t.Errorf("ValidateRadius(%v) should fail", r)
		}
	}
	if err := ValidateRadius(0); err != nil {
		t.Errorf("ValidateRadius(0) = %v", err)
	}
}

// destination walks meters along bearing from p on the sphere.
func destination(p Point, bearingDeg, meters float64) Point {
	delta := meters / EarthRadiusMeters
	theta := radians(bearingDeg)
	phi1 := radians(p.Lat)
	lambda1 := radians(p.Lng)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2))

	return Point{Lat: phi2 * 180 / math.Pi, Lng: lambda2 * 180 / math.Pi}
}

package locations

import (
	"net/http"

	locationstore "github.com/dalemusser/campushub/internal/app/store/locations"
	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/geo"
	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"github.com/dalemusser/campushub/internal/app/system/limits"
	"github.com/dalemusser/campushub/internal/app/system/normalize"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type listResponse struct {
	Locations []models.Location `json:"locations"`
	Count     int               `json:"count"`
}

type nearbyItem struct {
	models.Location
	DistanceMeters float64 `json:"distance_m"`
}

type nearbyResponse struct {
	Locations []nearbyItem `json:"locations"`
	Count     int          `json:"count"`
}

// ServeBox handles GET /locations/box?north=&south=&east=&west=.
func (h *Handler) ServeBox(w http.ResponseWriter, r *http.Request) {
	var box geo.Box
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"north", &box.North},
		{"south", &box.South},
		{"east", &box.East},
		{"west", &box.West},
	} {
		v, err := floatParam(r, p.name)
		if err != nil {
			httpjson.Error(w, r, h.Log, err)
			return
		}
		*p.dst = v
	}

	locs, err := h.Locations.BoundingBox(r.Context(), box)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, listResponse{Locations: locs, Count: len(locs)})
}

// ServeNearby handles GET /locations/nearby?lat=&lng=&radius=.
// Results are nearest first and carry their distance in meters.
func (h *Handler) ServeNearby(w http.ResponseWriter, r *http.Request) {
	lat, err := floatParam(r, "lat")
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	lng, err := floatParam(r, "lng")
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	radius, err := floatParam(r, "radius")
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}

	center := geo.Point{Lat: lat, Lng: lng}
	locs, err := h.Locations.Nearby(r.Context(), center, radius)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}

	items := make([]nearbyItem, len(locs))
	for i, loc := range locs {
		items[i] = nearbyItem{
			Location:       loc,
			DistanceMeters: geo.DistanceMeters(center, geo.Point{Lat: loc.Coordinates.Lat, Lng: loc.Coordinates.Lng}),
		}
	}
	httpjson.Write(w, http.StatusOK, nearbyResponse{Locations: items, Count: len(items)})
}

// ServeSearch handles GET /locations/search?q=&type=&tag=.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	q := normalize.QueryParam(query.Get(r, "q"))
	if len(q) > limits.MaxSearchQuery {
		httpjson.Error(w, r, h.Log, apperr.Validation("locations.search", "q must be at most %d characters", limits.MaxSearchQuery))
		return
	}
	filters := locationstore.SearchFilters{
		Type: normalize.QueryParam(query.Get(r, "type")),
		Tag:  normalize.QueryParam(query.Get(r, "tag")),
	}

	locs, err := h.Locations.Search(r.Context(), q, filters)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, listResponse{Locations: locs, Count: len(locs)})
}

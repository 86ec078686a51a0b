package locations

import (
	"net/http"

	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/auth"
	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// locationInput is the body of POST /locations and PUT /locations/{id}.
type locationInput struct {
	Name        string              `json:"name"`
	Type        string              `json:"type"`
	Description string              `json:"description"`
	Coordinates *coordinatesInput `json:"coordinates"`
	Tags        []string          `json:"tags"`
	BuildingID  *string           `json:"building_id"`
	Meta        map[string]string `json:"meta"`
}

// coordinatesInput keeps a missing lat or lng apart from a zero one.
type coordinatesInput struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (in locationInput) toModel() (models.Location, error) {
	const op = "locations.input"

	if in.Coordinates == nil {
		return models.Location{}, apperr.Validation(op, "coordinates are required")
	}
	if in.Coordinates.Lat == nil || in.Coordinates.Lng == nil {
		return models.Location{}, apperr.Validation(op, "coordinates need both lat and lng")
	}
	loc := models.Location{
		Name:        in.Name,
		Type:        in.Type,
		Description: in.Description,
		Coordinates: models.Coordinates{Lat: *in.Coordinates.Lat, Lng: *in.Coordinates.Lng},
		Tags:        in.Tags,
		Meta:        in.Meta,
	}
	if in.BuildingID != nil && *in.BuildingID != "" {
		id, err := primitive.ObjectIDFromHex(*in.BuildingID)
		if err != nil {
			return models.Location{}, apperr.Validation(op, "building_id is not a valid id")
		}
		loc.BuildingID = &id
	}
	return loc, nil
}

func idParam(r *http.Request) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, "id")
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, httpjson.BadParam("id", raw)
	}
	return id, nil
}

func actor(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.UID
	}
	return ""
}

// ServeLocation handles GET /locations/{id}.
func (h *Handler) ServeLocation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	loc, err := h.Locations.GetByID(r.Context(), id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, loc)
}

// HandleCreate handles POST /locations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in locationInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	loc, err := in.toModel()
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}

	created, err := h.Locations.Create(r.Context(), loc)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.Audit.LocationCreated(r.Context(), r, actor(r), created)
	w.Header().Set("Location", "/locations/"+created.ID.Hex())
	httpjson.Write(w, http.StatusCreated, created)
}

// HandleUpdate handles PUT /locations/{id}. The body replaces every
// editable field.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	var in locationInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	loc, err := in.toModel()
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}

	updated, err := h.Locations.Update(r.Context(), id, loc)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.Audit.LocationUpdated(r.Context(), r, actor(r), updated)
	httpjson.Write(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /locations/{id}. Events and buildings that
// point at the location are left as they are.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	if err := h.Locations.Delete(r.Context(), id); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.Audit.LocationDeleted(r.Context(), r, actor(r), id.Hex())
	w.WriteHeader(http.StatusNoContent)
}

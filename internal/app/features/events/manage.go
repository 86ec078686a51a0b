package events

import (
	"net/http"
	"time"

	eventstore "github.com/dalemusser/campushub/internal/app/store/events"
	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"github.com/dalemusser/campushub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	LocationID  string    `json:"location_id"`
	Capacity    int       `json:"capacity"`
	Status      string    `json:"status"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// updateInput carries only the fields the caller wants to change.
type updateInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	LocationID  *string    `json:"location_id"`
	Capacity    *int       `json:"capacity"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

func parseLocationID(op, raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation(op, "location_id is not a valid id")
	}
	return id, nil
}

// HandleCreate handles POST /events. The caller becomes the creator.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "events.input"

	var in createInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	locID, err := parseLocationID(op, in.LocationID)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}

	created, err := h.Events.Create(r.Context(), models.Event{
		Title:       in.Title,
		Description: in.Description,
		LocationID:  locID,
		Capacity:    in.Capacity,
		Status:      in.Status,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		CreatedBy:   actor(r),
	})
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.Audit.EventCreated(r.Context(), r, actor(r), created)
	w.Header().Set("Location", "/events/"+created.ID.Hex())
	httpjson.Write(w, http.StatusCreated, toView(created, viewer{uid: actor(r), manager: true}))
}

// HandleUpdate handles PUT /events/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "events.input"

	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	var in updateInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}

	p := eventstore.Patch{
		Title:       in.Title,
		Description: in.Description,
		Capacity:    in.Capacity,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
	}
	if in.LocationID != nil {
		locID, err := parseLocationID(op, *in.LocationID)
		if err != nil {
			httpjson.Error(w, r, h.Log, err)
			return
		}
		p.LocationID = &locID
	}

	updated, err := h.Events.Update(r.Context(), id, p)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.Audit.EventUpdated(r.Context(), r, actor(r), updated)
	httpjson.Write(w, http.StatusOK, toView(updated, viewer{uid: actor(r), manager: true}))
}

// HandlePublish handles POST /events/{id}/publish.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ev, err := h.Events.Publish(r.Context(), id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.Audit.EventPublished(r.Context(), r, actor(r), ev)
	httpjson.Write(w, http.StatusOK, toView(ev, viewer{uid: actor(r), manager: true}))
}

// HandleCancel handles POST /events/{id}/cancel. Cancelling twice is not
// an error.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	ev, err := h.Events.Cancel(r.Context(), id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.Audit.EventCancelled(r.Context(), r, actor(r), ev)
	httpjson.Write(w, http.StatusOK, toView(ev, viewer{uid: actor(r), manager: true}))
}

// HandleDelete handles DELETE /events/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	if err := h.Events.Delete(r.Context(), id); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	h.Audit.EventDeleted(r.Context(), r, actor(r), id.Hex())
	w.WriteHeader(http.StatusNoContent)
}

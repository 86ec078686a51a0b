package events

import (
	"net/http"

	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// HandleRegister handles POST /events/{id}/registration for the caller.
// A full event answers 409 with error "capacity_exceeded".
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	uid := actor(r)

	ev, err := h.Events.Register(r.Context(), id, uid)
	if err != nil {
		h.Log.Debug("registration refused",
			zap.String("event_id", id.Hex()),
			zap.String("uid", uid),
			zap.Error(err))
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toView(ev, viewer{uid: uid}))
}

// HandleUnregister handles DELETE /events/{id}/registration. Removing a
// registration that does not exist succeeds.
func (h *Handler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	if err := h.Events.Unregister(r.Context(), id, actor(r)); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package events

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"github.com/dalemusser/waffle/pantry/query"
)

type listResponse struct {
	Events []eventView `json:"events"`
	Count  int         `json:"count"`
}

// ServeList handles GET /events?limit=. Only published events that have
// not yet ended are listed, soonest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := query.Get(r, "limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpjson.Error(w, r, h.Log, httpjson.BadParam("limit", raw))
			return
		}
		limit = n
	}

	v, err := h.viewerOf(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}

	evs, err := h.Events.ListUpcoming(r.Context(), limit)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}

	out := make([]eventView, len(evs))
	for i, ev := range evs {
		out[i] = toView(ev, v)
	}
	httpjson.Write(w, http.StatusOK, listResponse{Events: out, Count: len(out)})
}

// ServeEvent handles GET /events/{id}.
func (h *Handler) ServeEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	v, err := h.viewerOf(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}

	ev, err := h.Events.GetByID(r.Context(), id)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toView(ev, v))
}

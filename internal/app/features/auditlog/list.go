// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"time"

	"github.com/dalemusser/campushub/internal/app/store/audit"
	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"github.com/dalemusser/campushub/internal/app/system/paging"
	"github.com/dalemusser/campushub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
)

const dateLayout = "2006-01-02"

// ServeList returns one page of audit events, newest first.
//
// Query parameters: actor, subject, category, event_type,
// start_date and end_date (YYYY-MM-DD, inclusive), page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter := audit.QueryFilter{
		ActorUID:  query.Get(r, "actor"),
		SubjectID: query.Get(r, "subject"),
		Category:  query.Get(r, "category"),
		EventType: query.Get(r, "event_type"),
	}

	switch filter.Category {
	case "", audit.CategoryCatalog, audit.CategoryAccounts:
	default:
		httpjson.Error(w, r, h.Log, httpjson.BadParam("category", filter.Category))
		return
	}

	if raw := query.Get(r, "start_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			httpjson.Error(w, r, h.Log, httpjson.BadParam("start_date", raw))
			return
		}
		filter.StartTime = &t
	}
	if raw := query.Get(r, "end_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			httpjson.Error(w, r, h.Log, httpjson.BadParam("end_date", raw))
			return
		}
		// Include the whole end day.
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &end
	}

	page := paging.ParsePage(query.Get(r, "page"))
	filter.Limit = paging.PageSize
	filter.Offset = paging.Offset(page, paging.PageSize)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Store(), h.Log, "audit.list")
	defer cancel()

	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}

	items := make([]eventItem, 0, len(events))
	for _, e := range events {
		items = append(items, toItem(e))
	}
	httpjson.Write(w, http.StatusOK, listResponse{
		Events: items,
		Paging: paging.Compute(page, paging.PageSize, total),
	})
}

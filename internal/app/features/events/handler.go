// internal/app/features/events/handler.go
package events

import (
	"errors"
	"net/http"
	"time"

	eventstore "github.com/dalemusser/campushub/internal/app/store/events"
	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/auditlog"
	"github.com/dalemusser/campushub/internal/app/system/auth"
	"github.com/dalemusser/campushub/internal/app/system/authz"
	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"github.com/dalemusser/campushub/internal/app/system/ratelimit"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves event listing, management and registration.
type Handler struct {
	Events *eventstore.Store
	Authz  authz.Authorizer
	Audit  *auditlog.Logger
	Log    *zap.Logger

	// Limiter throttles registration requests per caller. Nil disables it.
	Limiter *ratelimit.Limiter
}

func NewHandler(store *eventstore.Store, a authz.Authorizer, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Events: store,
		Authz:  a,
		Audit:  audit,
		Log:    logger,
	}
}

// eventView is the public shape of an event. Attendees are listed only
// for managers; everyone else sees the count.
type eventView struct {
	ID            primitive.ObjectID `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description,omitempty"`
	LocationID    primitive.ObjectID `json:"location_id"`
	Capacity      int                `json:"capacity"`
	AttendeeCount int                `json:"attendee_count"`
	Remaining     int                `json:"remaining"`
	Registered    bool               `json:"registered"`
	Attendees     []models.Attendee  `json:"attendees,omitempty"`
	Status        string             `json:"status"`
	StartTime     time.Time          `json:"start_time"`
	EndTime       time.Time          `json:"end_time"`
	CreatedBy     string             `json:"created_by"`
	Version       int64              `json:"version"`
}

// viewer is what the handler knows about the caller when shaping output.
type viewer struct {
	uid     string
	manager bool
}

func toView(ev models.Event, v viewer) eventView {
	out := eventView{
		ID:            ev.ID,
		Title:         ev.Title,
		Description:   ev.Description,
		LocationID:    ev.LocationID,
		Capacity:      ev.Capacity,
		AttendeeCount: len(ev.Attendees),
		Remaining:     ev.Remaining(),
		Status:        ev.Status,
		StartTime:     ev.StartTime,
		EndTime:       ev.EndTime,
		CreatedBy:     ev.CreatedBy,
		Version:       ev.Version,
	}
	if v.uid != "" {
		out.Registered = ev.HasAttendee(v.uid)
	}
	if v.manager {
		out.Attendees = ev.Attendees
		if out.Attendees == nil {
			out.Attendees = []models.Attendee{}
		}
	}
	return out
}

// viewerOf resolves the caller for display. Managers are recognized by
// their profile document, the same check RequireRole makes.
func (h *Handler) viewerOf(r *http.Request) (viewer, error) {
	if p, ok := authz.Profile(r); ok {
		return viewer{uid: p.UID, manager: authz.CanManage(r)}, nil
	}
	u, ok := auth.CurrentUser(r)
	if !ok {
		return viewer{}, nil
	}
	_, err := h.Authz.Authorize(r.Context(), u.UID, authz.Managers...)
	switch {
	case err == nil:
		return viewer{uid: u.UID, manager: true}, nil
	case errors.Is(err, apperr.ErrForbidden):
		return viewer{uid: u.UID}, nil
	default:
		return viewer{}, err
	}
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

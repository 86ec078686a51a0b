package health

import (
	"context"
	"encoding/json"
	"net/http"

	profilestore "github.com/dalemusser/campushub/internal/app/store/profiles"
	"github.com/dalemusser/campushub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client   *mongo.Client
	Profiles *profilestore.Store
	Log      *zap.Logger
}

// NewHandler constructs a health Handler. profiles may be nil, in which
// case the backlog is not reported.
func NewHandler(client *mongo.Client, profiles *profilestore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Client:   client,
		Profiles: profiles,
		Log:      logger,
	}
}

type healthResponse struct {
	Status   string   `json:"status"`
	Database string   `json:"database"`
	Message  string   `json:"message,omitempty"`
	Error    string   `json:"error,omitempty"`
	Backlog  *backlog `json:"backlog,omitempty"`
}

// backlog is the reconciler's outstanding work.
type backlog struct {
	ClaimsPending    int64 `json:"claims_pending"`
	DeletionsPending int64 `json:"deletions_pending"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "backlog":{"claims_pending":0,"deletions_pending":0} }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	// Informational; a failed count does not fail the check.
	if h.Profiles != nil {
		claims, cerr := h.Profiles.CountPending(ctx)
		deletions, derr := h.Profiles.CountTombstones(ctx)
		if cerr == nil && derr == nil {
			resp.Backlog = &backlog{ClaimsPending: claims, DeletionsPending: deletions}
		} else {
			h.Log.Warn("health-check: backlog count failed", zap.NamedError("claims", cerr), zap.NamedError("deletions", derr))
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}

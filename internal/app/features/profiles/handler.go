// internal/app/features/profiles/handler.go
package profiles

import (
	"net/http"

	"github.com/dalemusser/campushub/internal/app/system/auditlog"
	"github.com/dalemusser/campushub/internal/app/system/auth"
	"github.com/dalemusser/campushub/internal/app/system/claimsync"
	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"github.com/dalemusser/campushub/internal/app/system/inputval"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes profile management. Every write goes through the claims
// synchronizer so the provider's claims follow the document.
type Handler struct {
	Sync  *claimsync.Synchronizer
	Audit *auditlog.Logger
	Log   *zap.Logger
}

func NewHandler(cs *claimsync.Synchronizer, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Sync:  cs,
		Audit: audit,
		Log:   logger,
	}
}

// caller returns the signed-in user as a claimsync caller. Routes are
// mounted behind auth.RequireSignedIn, so the user is always present.
func caller(r *http.Request) claimsync.Caller {
	u, _ := auth.CurrentUser(r)
	if u == nil {
		return claimsync.Caller{}
	}
	return claimsync.Caller{UID: u.UID}
}

func uidParam(r *http.Request) (string, error) {
	uid := chi.URLParam(r, "uid")
	if !inputval.IsValidUID(uid) {
		return "", httpjson.BadParam("uid", uid)
	}
	return uid, nil
}

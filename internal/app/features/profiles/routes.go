// internal/app/features/profiles/routes.go
package profiles

import (
	"github.com/dalemusser/campushub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes requires a signed-in user for everything; who may act on which
// profile is decided against the profile documents.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/", h.HandleCreate)
	r.Get("/{uid}", h.ServeProfile)
	r.Patch("/{uid}", h.HandleUpdate)
	r.Delete("/{uid}", h.HandleDelete)
	r.Post("/{uid}/claims/refresh", h.HandleRefreshClaims)

	return r
}

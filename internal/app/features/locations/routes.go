// internal/app/features/locations/routes.go
package locations

import (
	"github.com/dalemusser/campushub/internal/app/system/authz"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, a authz.Authorizer) chi.Router {
	r := chi.NewRouter()

	// Map discovery is public.
	r.Get("/box", h.ServeBox)
	r.Get("/nearby", h.ServeNearby)
	r.Get("/search", h.ServeSearch)
	r.Get("/{id}", h.ServeLocation)

	r.Group(func(pr chi.Router) {
		pr.Use(authz.RequireRole(a, h.Log, authz.Managers...))
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(authz.RequireRole(a, h.Log, models.RoleAdmin))
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}

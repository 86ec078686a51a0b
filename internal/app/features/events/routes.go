// internal/app/features/events/routes.go
package events

import (
	"github.com/dalemusser/campushub/internal/app/system/auth"
	"github.com/dalemusser/campushub/internal/app/system/authz"
	"github.com/dalemusser/campushub/internal/app/system/ratelimit"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeEvent)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn, ratelimit.Middleware(h.Limiter, h.Log))
		pr.Post("/{id}/registration", h.HandleRegister)
		pr.Delete("/{id}/registration", h.HandleUnregister)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(authz.RequireRole(h.Authz, h.Log, authz.Managers...))
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Post("/{id}/publish", h.HandlePublish)
		pr.Post("/{id}/cancel", h.HandleCancel)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(authz.RequireRole(h.Authz, h.Log, models.RoleAdmin))
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}

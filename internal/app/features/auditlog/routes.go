// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/campushub/internal/app/system/authz"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit trail. Only admins may read it.
func Routes(h *Handler, a authz.Authorizer) chi.Router {
	r := chi.NewRouter()
	r.Use(authz.RequireRole(a, h.Log, models.RoleAdmin))
	r.Get("/", h.ServeList)
	return r
}

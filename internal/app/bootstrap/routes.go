// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	auditfeature "github.com/dalemusser/campushub/internal/app/features/auditlog"
	eventsfeature "github.com/dalemusser/campushub/internal/app/features/events"
	healthfeature "github.com/dalemusser/campushub/internal/app/features/health"
	locationsfeature "github.com/dalemusser/campushub/internal/app/features/locations"
	profilesfeature "github.com/dalemusser/campushub/internal/app/features/profiles"
	"github.com/dalemusser/campushub/internal/app/system/auth"
	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"github.com/dalemusser/campushub/internal/app/system/requestlog"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so deps.Services is populated.
//
// Every request gets an id and an access log line, then has its bearer
// token (if any) verified. Feature routers decide what needs a signed-in
// user or a particular role.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	return newRouter(deps, logger), nil
}

func newRouter(deps DBDeps, logger *zap.Logger) chi.Router {
	svc := deps.Services

	r := chi.NewRouter()
	r.Use(requestlog.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(auth.Middleware(svc.Provider, logger))

	// Probes and scraping
	healthHandler := healthfeature.NewHandler(deps.MongoClient, svc.Profiles, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", svc.Metrics.Handler())

	// Map
	locationsHandler := locationsfeature.NewHandler(svc.Locations, svc.Audit, logger)
	r.Mount("/locations", locationsfeature.Routes(locationsHandler, svc.Sync))

	// Events and registration
	eventsHandler := eventsfeature.NewHandler(svc.Events, svc.Sync, svc.Audit, logger)
	eventsHandler.Limiter = svc.Limiter
	r.Mount("/events", eventsfeature.Routes(eventsHandler))

	// Profiles and claims
	profilesHandler := profilesfeature.NewHandler(svc.Sync, svc.Audit, logger)
	r.Mount("/profiles", profilesfeature.Routes(profilesHandler))

	// Audit trail (admin only)
	auditHandler := auditfeature.NewHandler(svc.AuditTrail, logger)
	r.Mount("/audit", auditfeature.Routes(auditHandler, svc.Sync))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpjson.WriteError(w, http.StatusNotFound, "not_found", "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpjson.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed here")
	})

	return r
}

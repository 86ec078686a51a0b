// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"net/http"

	"github.com/dalemusser/campushub/internal/app/system/auth"
	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"github.com/dalemusser/campushub/internal/domain/models"
	"go.uber.org/zap"
)

// Authorizer checks a uid's role against the profile document.
// claimsync.Synchronizer implements it.
type Authorizer interface {
	Authorize(ctx context.Context, uid string, roles ...string) (models.Profile, error)
}

type ctxKey string

const profileKey ctxKey = "authzProfile"

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireRole lets the request through only if the signed-in user's profile
// document holds one of roles. Token claims are not consulted: a token
// issued before a demotion still carries the old role.
//
// No user: 401. Role mismatch or no profile: 403. Store down: 503.
// On success the loaded profile is available through Profile.
func RequireRole(a Authorizer, logger *zap.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := auth.CurrentUser(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="campushub"`)
				httpjson.WriteError(w, http.StatusUnauthorized, "unauthorized", "sign-in required")
				return
			}

			p, err := a.Authorize(r.Context(), u.UID, roles...)
			if err != nil {
				if u.Claims.Role != "" {
					logger.Debug("role check refused",
						zap.String("uid", u.UID),
						zap.String("token_role", u.Claims.Role),
						zap.Error(err))
				}
				httpjson.Error(w, r, logger, err)
				return
			}

			next.ServeHTTP(w, WithProfile(r, p))
		})
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Context helpers                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// WithProfile stores a document-validated profile in the request context.
func WithProfile(r *http.Request, p models.Profile) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), profileKey, p))
}

// Profile returns the profile loaded by RequireRole.
func Profile(r *http.Request) (models.Profile, bool) {
	p, ok := r.Context().Value(profileKey).(models.Profile)
	return p, ok
}

// IsAdmin reports whether RequireRole loaded an admin profile.
func IsAdmin(r *http.Request) bool {
	p, ok := Profile(r)
	return ok && p.Role == models.RoleAdmin
}

// CanManage reports whether RequireRole loaded a privileged or admin profile.
func CanManage(r *http.Request) bool {
	p, ok := Profile(r)
	return ok && (p.Role == models.RolePrivileged || p.Role == models.RoleAdmin)
}

// Managers is the role set allowed to create and edit locations and events.
var Managers = []string{models.RolePrivileged, models.RoleAdmin}

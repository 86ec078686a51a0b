package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"github.com/dalemusser/campushub/internal/app/system/identity"
	"github.com/dalemusser/campushub/internal/domain/models"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// TokenUser is the verified bearer of the request's ID token.
//
// Claims are whatever the provider embedded when the token was issued. They
// may be up to one token lifetime out of date and are only fit for display;
// role checks go through authz, which reads the profile document.
type TokenUser struct {
	UID    string
	Claims models.Claims
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*TokenUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*TokenUser)
	return u, ok
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// Middleware verifies "Authorization: Bearer <token>" when present and
// injects the TokenUser into the context. Requests without the header pass
// through anonymously; a header with a bad token is rejected with 401.
func Middleware(p identity.Provider, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(raw)
			if !ok {
				unauthorized(w, "malformed authorization header")
				return
			}

			v, err := p.VerifyToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, identity.ErrInvalidToken) {
					unauthorized(w, "invalid token")
					return
				}
				logger.Error("token verification failed", zap.Error(err))
				httpjson.Write(w, http.StatusServiceUnavailable, httpjson.ErrorBody{
					Error:   "upstream_unavailable",
					Message: "identity provider unavailable",
					Side:    apperr.SideIdentity,
				})
				return
			}

			next.ServeHTTP(w, withUser(r, &TokenUser{UID: v.SubjectID, Claims: v.Claims}))
		})
	}
}

// RequireSignedIn ensures there is a user in context (set by Middleware).
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		unauthorized(w, "sign-in required")
	})
}

// WithTestUser injects u into the request context. Handler tests use it to
// skip token verification.
func WithTestUser(r *http.Request, u *TokenUser) *http.Request {
	return withUser(r, u)
}

// helpers

func withUser(r *http.Request, u *TokenUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func bearerToken(h string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="campushub"`)
	httpjson.WriteError(w, http.StatusUnauthorized, "unauthorized", msg)
}
